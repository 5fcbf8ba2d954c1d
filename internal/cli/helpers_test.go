package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/bosync/internal/ledger"
)

var (
	testCatalog = filepath.Join("..", "catalog", "testdata", "catalog")
	testEvents  = filepath.Join("..", "catalog", "testdata", "events.yaml")
)

const testFixture = `
accounts:
  - {id: "1.2.1", name: witness-account}
  - {id: "1.2.7", name: init0, witness: true}
  - {id: "1.2.8", name: init1, witness: true}
  - {id: "1.2.9", name: init2, witness: true}
objects:
  - id: "1.3.0"
    fields: {symbol: BTF}
`

// createTestLedger returns the path of a seeded ledger in a temp dir.
func createTestLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	f, err := ledger.LoadFixture(strings.NewReader(testFixture))
	if err != nil {
		t.Fatalf("LoadFixture() failed: %v", err)
	}
	if err := l.Seed(context.Background(), f); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	return path
}

// openTestLedger reopens a ledger created by createTestLedger.
func openTestLedger(t *testing.T, path string) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// executeCommand runs the root command with args and returns stdout.
// Logs go to a separate buffer.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	logs := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(logs)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// decodeData decodes the data payload of a JSON response.
func decodeData(t *testing.T, output string, data any) CLIResponse {
	t.Helper()
	var resp struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(output), &resp); err != nil {
		t.Fatalf("invalid JSON output %q: %v", output, err)
	}
	if data != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("invalid data payload: %v", err)
		}
	}
	return resp.CLIResponse
}
