package ledger

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/roach88/bosync/internal/ir"
	"github.com/roach88/bosync/internal/testutil"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const testFixture = `
accounts:
  - {id: "1.2.1", name: witness-account}
  - {id: "1.2.7", name: init0, witness: true}
  - {id: "1.2.8", name: init1, witness: true}
  - {id: "1.2.9", name: init2, witness: true}
  - {id: "1.2.20", name: observer}
objects:
  - id: "1.20.0"
    fields:
      name: [["en", "Basketball"]]
  - id: "1.21.0"
    fields:
      name: [["en", "NBA Regular Season"]]
      sport_id: "1.20.0"
`

// createTestLedger opens a seeded ledger on a temp file.
func createTestLedger(t *testing.T, opts ...Option) (*Ledger, *testutil.ManualClock) {
	t.Helper()
	clock := testutil.NewManualClock(testStart)
	opts = append([]Option{WithNow(clock.Now)}, opts...)

	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	f, err := LoadFixture(strings.NewReader(testFixture))
	if err != nil {
		t.Fatalf("LoadFixture() failed: %v", err)
	}
	if err := l.Seed(context.Background(), f); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	return l, clock
}

func sportCreate(name string) ir.Operation {
	return ir.NewOperation(ir.OpSportCreate, ir.Fields{
		"name": ir.LangList{{Lang: "en", Text: name}},
	})
}

// propose broadcasts a proposal of ops by proposer and returns its id.
func propose(t *testing.T, l *Ledger, proposer ir.ObjectID, ops ...ir.Operation) ir.ObjectID {
	t.Helper()
	op := ir.NewProposalCreate(proposer, testStart.Add(time.Hour), ops)
	res, err := l.Broadcast(context.Background(), ir.Transaction{Operations: []ir.Operation{op}})
	if err != nil {
		t.Fatalf("Broadcast(proposal_create) failed: %v", err)
	}
	return res.OperationResults[0]
}

func approve(t *testing.T, l *Ledger, account, proposal ir.ObjectID) {
	t.Helper()
	tx := ir.Transaction{Operations: []ir.Operation{ir.NewApproval(account, proposal)}}
	if _, err := l.Broadcast(context.Background(), tx); err != nil {
		t.Fatalf("Broadcast(proposal_update) failed: %v", err)
	}
}

func pending(t *testing.T, l *Ledger) []ir.Proposal {
	t.Helper()
	var out []ir.Proposal
	for p, err := range l.ListPendingProposals(context.Background(), DefaultAuthority) {
		if err != nil {
			t.Fatalf("ListPendingProposals() failed: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func objects(t *testing.T, l *Ledger, kind ir.ObjectKind, parent ir.ObjectID) []ir.Fields {
	t.Helper()
	var out []ir.Fields
	for obj, err := range l.ListObjects(context.Background(), kind, parent) {
		if err != nil {
			t.Fatalf("ListObjects() failed: %v", err)
		}
		out = append(out, obj)
	}
	return out
}
