package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/bosync/internal/ir"
	"github.com/roach88/bosync/internal/ledger"
)

// SeedResult reports what a fixture wrote.
type SeedResult struct {
	Ledger   string         `json:"ledger"`
	Accounts int            `json:"accounts"`
	Objects  map[string]int `json:"objects"`
}

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Manage the local SQLite ledger",
	}
	cmd.AddCommand(newLedgerSeedCommand(rootOpts))
	return cmd
}

func newLedgerSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load accounts and objects into the ledger",
		Long: `Write the accounts and objects of a YAML fixture into the ledger,
creating the database when it does not exist. Rows with the same id are
replaced, so a fixture can be seeded again.

Example:
  bosync ledger seed --ledger ./bosync.db ./fixtures/accounts.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedgerSeed(cmd.Context(), rootOpts, args[0], cmd.OutOrStdout())
		},
	}
}

func runLedgerSeed(ctx context.Context, opts *RootOptions, path string, w io.Writer) error {
	formatter := newFormatter(opts, w)
	cfg := &opts.Config
	if ctx == nil {
		ctx = context.Background()
	}

	fixture, err := ledger.LoadFixtureFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to read fixture", err, nil)
	}
	l, err := openLedger(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLedger, "failed to open ledger", err, nil)
	}
	defer l.Close()

	if err := l.Seed(ctx, fixture); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeLedger, "failed to seed ledger", err, nil)
	}

	result := SeedResult{Ledger: cfg.Ledger, Accounts: len(fixture.Accounts), Objects: make(map[string]int)}
	for _, obj := range fixture.Objects {
		result.Objects[obj.ID.Kind().Name()]++
	}
	return formatter.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "Seeded %s: %d account(s), %d object(s)\n", result.Ledger, result.Accounts, len(fixture.Objects))
		for _, kind := range kindOrder {
			if n := result.Objects[kind.Name()]; n > 0 {
				fmt.Fprintf(w, "  %-22s %d\n", kind.Name(), n)
			}
		}
	})
}

// kindOrder lists the seedable object kinds in hierarchy order.
var kindOrder = []ir.ObjectKind{
	ir.KindAsset,
	ir.KindSport,
	ir.KindEventGroup,
	ir.KindEvent,
	ir.KindRules,
	ir.KindBettingMarketGroup,
	ir.KindBettingMarket,
}
