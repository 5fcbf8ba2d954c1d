package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/bosync/internal/chain"
	"github.com/roach88/bosync/internal/ir"
)

func TestSeed_AccountsAndObjects(t *testing.T) {
	l, _ := createTestLedger(t)
	ctx := context.Background()

	witnesses, err := l.ListAuthorizedProposers(ctx)
	if err != nil {
		t.Fatalf("ListAuthorizedProposers() failed: %v", err)
	}
	want := []ir.ObjectID{"1.2.7", "1.2.8", "1.2.9"}
	if len(witnesses) != len(want) {
		t.Fatalf("witnesses = %v, want %v", witnesses, want)
	}
	for i := range want {
		if witnesses[i] != want[i] {
			t.Errorf("witnesses[%d] = %s, want %s", i, witnesses[i], want[i])
		}
	}

	a, err := l.LookupAccount(ctx, "init1")
	if err != nil {
		t.Fatalf("LookupAccount() failed: %v", err)
	}
	if a.ID != "1.2.8" || !a.Witness {
		t.Errorf("LookupAccount(init1) = %+v", a)
	}
	if _, err := l.LookupAccount(ctx, "nobody"); !errors.Is(err, chain.ErrNotFound) {
		t.Errorf("LookupAccount(nobody) error = %v, want ErrNotFound", err)
	}

	groups := objects(t, l, ir.KindEventGroup, "1.20.0")
	if len(groups) != 1 || groups[0].ObjectID("id") != "1.21.0" {
		t.Errorf("event groups of 1.20.0 = %v", groups)
	}
}

func TestSeed_Repeatable(t *testing.T) {
	l, _ := createTestLedger(t)
	ctx := context.Background()

	f, err := LoadFixture(strings.NewReader(testFixture))
	if err != nil {
		t.Fatalf("LoadFixture() failed: %v", err)
	}
	if err := l.Seed(ctx, f); err != nil {
		t.Fatalf("second Seed() failed: %v", err)
	}
	if got := len(objects(t, l, ir.KindSport, "")); got != 1 {
		t.Errorf("sports = %d, want 1", got)
	}
}

func TestSeed_AdvancesCounters(t *testing.T) {
	l, _ := createTestLedger(t, WithQuorum(1))

	approve(t, l, "1.2.7", propose(t, l, "1.2.7", sportCreate("Soccer")))

	if _, err := l.GetObject(context.Background(), "1.20.1"); err != nil {
		t.Errorf("new sport did not follow seeded instance: %v", err)
	}
}

func TestSeed_RejectsBadIDs(t *testing.T) {
	l, _ := createTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		fixture *Fixture
	}{
		{
			name:    "account in wrong space",
			fixture: &Fixture{Accounts: []Account{{ID: "1.20.5", Name: "x"}}},
		},
		{
			name:    "provisional object",
			fixture: &Fixture{Objects: []FixtureEntry{{ID: "0.0.1"}}},
		},
		{
			name:    "missing parent",
			fixture: &Fixture{Objects: []FixtureEntry{{ID: "1.21.5", Fields: map[string]any{}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := l.Seed(ctx, tt.fixture); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFixture_RejectsUnknownKeys(t *testing.T) {
	_, err := LoadFixture(strings.NewReader("acounts: []\n"))
	if err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestLoadFixture_Empty(t *testing.T) {
	f, err := LoadFixture(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFixture() failed: %v", err)
	}
	if len(f.Accounts) != 0 || len(f.Objects) != 0 {
		t.Errorf("empty fixture = %+v", f)
	}
}

func TestLoadFixtureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	if err := os.WriteFile(path, []byte(testFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFixtureFile(path)
	if err != nil {
		t.Fatalf("LoadFixtureFile() failed: %v", err)
	}
	if len(f.Accounts) != 5 || len(f.Objects) != 2 {
		t.Errorf("fixture = %d accounts, %d objects", len(f.Accounts), len(f.Objects))
	}

	if _, err := LoadFixtureFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
