package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/ir"
)

// ProposalsResult lists the pending proposals and our view of them.
type ProposalsResult struct {
	Authority ir.ObjectID             `json:"authority"`
	Proposals []ProposalInfo          `json:"proposals"`
	Approvals []engine.ApprovalStatus `json:"approvals"`
	Checked   bool                    `json:"checked"`

	// Approvable lists the proposals whose operations all match the
	// catalog.
	Approvable []ir.ObjectID `json:"approvable,omitempty"`
}

// ProposalInfo summarizes one pending proposal.
type ProposalInfo struct {
	ID         ir.ObjectID   `json:"id"`
	Proposer   ir.ObjectID   `json:"proposer"`
	Expiration string        `json:"expiration_time"`
	Operations []string      `json:"operations"`
	Approvals  []ir.ObjectID `json:"approvals"`
}

// NewProposalsCommand creates the proposals command.
func NewProposalsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "List pending proposals at the authority account",
		Long: `List the pending proposals of trusted proposers at the authority account.

When a catalog is configured it is reconciled in a dry run first, so each
proposal shows which of its operations match the catalog. A proposal whose
operations all match would be approved by sync.

Example:
  bosync proposals --ledger ./bosync.db
  bosync proposals --catalog ./catalog --events ./events.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProposals(cmd.Context(), rootOpts, cmd.OutOrStdout())
		},
	}
	return cmd
}

func runProposals(ctx context.Context, opts *RootOptions, w io.Writer) error {
	formatter := newFormatter(opts, w)
	cfg := &opts.Config
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLedger, "failed to open ledger", err, nil)
	}
	defer s.Close()

	result := ProposalsResult{Authority: ir.ObjectID(cfg.Authority)}
	if cfg.Catalog != "" {
		tree, err := loadTree(cfg, true)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeCatalog, "failed to load catalog", err, nil)
		}
		if _, err := s.engine.RunPass(ctx, tree.All(), false); err != nil {
			return formatter.Fail(ExitFailure, ErrCodeSync, "failed to check proposals against the catalog", err, nil)
		}
		result.Checked = true
	}

	proposals, err := s.engine.TrackPending(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLedger, "failed to list proposals", err, nil)
	}
	for _, p := range proposals {
		info := ProposalInfo{
			ID:         p.ID,
			Proposer:   p.Proposer,
			Expiration: p.ExpirationTime,
			Approvals:  p.AvailableActiveApprovals,
		}
		for _, op := range p.Operations() {
			info.Operations = append(info.Operations, op.Type.String())
		}
		result.Proposals = append(result.Proposals, info)
	}
	// Approvals completed during the dry pass left the map; the direct
	// buffer holds them.
	result.Approvals = s.engine.Context().Approvals()
	queued := make(map[ir.ObjectID]bool)
	for _, op := range s.engine.Context().DirectBuffer() {
		pid := op.Fields.ObjectID("proposal")
		queued[pid] = true
		result.Approvable = append(result.Approvable, pid)
	}

	return formatter.Emit(result, func(w io.Writer) {
		if len(result.Proposals) == 0 {
			fmt.Fprintf(w, "No pending proposals at %s\n", result.Authority)
			return
		}
		matched := make(map[ir.ObjectID]engine.ApprovalStatus, len(result.Approvals))
		for _, a := range result.Approvals {
			matched[a.Proposal] = a
		}
		for _, p := range result.Proposals {
			fmt.Fprintf(w, "%s  proposer %s  expires %s  approvals %d\n", p.ID, p.Proposer, p.Expiration, len(p.Approvals))
			switch a, ok := matched[p.ID]; {
			case !result.Checked:
			case queued[p.ID]:
				fmt.Fprintln(w, "  matches the catalog, would be approved")
			case ok:
				fmt.Fprintf(w, "  %d/%d operation(s) match the catalog\n", len(a.Approved), a.Total)
			}
			fmt.Fprintf(w, "  %s\n", strings.Join(p.Operations, ", "))
		}
	})
}
