package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/entity"
	"github.com/roach88/bosync/internal/grading"
	"github.com/roach88/bosync/internal/ir"
)

// GradeOptions holds flags for the grade command.
type GradeOptions struct {
	*RootOptions
	Event   string
	Group   string
	Result  string
	Propose bool
}

// GradeResult is the settlement computed for one market group.
type GradeResult struct {
	Event            ir.ObjectID           `json:"event_id"`
	Group            ir.ObjectID           `json:"betting_market_group_id"`
	Identifier       string                `json:"identifier"`
	Result           [2]int64              `json:"result"`
	MetricExpression string                `json:"metric_expression"`
	Metric           string                `json:"metric"`
	Resolutions      grading.ResolutionSet `json:"resolutions"`
	State            string                `json:"state,omitempty"`
	Flush            *engine.FlushResult   `json:"flush,omitempty"`
}

// NewGradeCommand creates the grade command.
func NewGradeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GradeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Compute the resolutions of a betting market group",
		Long: `Grade a betting market group of the ledger for a final result.

The catalog is reconciled in a dry run first, so the group and its markets
are known by their ledger ids and dynamic groups carry the handicap or line
recorded on the ledger. Results in the events file are ignored. With
--propose the resolution is proposed and broadcast.

Example:
  bosync grade --catalog ./catalog --events ./events.yaml --event 1.22.1 --bmg 1.24.4 --result 101:99`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrade(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Event, "event", "", "ledger id of the event (required)")
	cmd.Flags().StringVar(&opts.Group, "bmg", "", "ledger id of the betting market group (required)")
	cmd.Flags().StringVar(&opts.Result, "result", "", "final result as HOME:AWAY (required)")
	cmd.Flags().BoolVar(&opts.Propose, "propose", false, "propose and broadcast the resolution")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("bmg")
	_ = cmd.MarkFlagRequired("result")

	return cmd
}

// parseResult parses "HOME:AWAY".
func parseResult(s string) ([2]int64, error) {
	home, away, ok := strings.Cut(s, ":")
	if !ok {
		return [2]int64{}, fmt.Errorf("result %q: want HOME:AWAY", s)
	}
	var out [2]int64
	for i, part := range []string{home, away} {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return [2]int64{}, fmt.Errorf("result %q: %w", s, err)
		}
		if n < 0 {
			return [2]int64{}, fmt.Errorf("result %q: scores must not be negative", s)
		}
		out[i] = n
	}
	return out, nil
}

func runGrade(ctx context.Context, opts *GradeOptions, w io.Writer) error {
	formatter := newFormatter(opts.RootOptions, w)
	cfg := &opts.Config
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := parseResult(opts.Result)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil, nil)
	}
	eventID, err := ir.ParseObjectID(opts.Event)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil, nil)
	}
	groupID, err := ir.ParseObjectID(opts.Group)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil, nil)
	}

	tree, err := loadTree(cfg, false)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeCatalog, "failed to load catalog", err, nil)
	}
	s, err := openSession(ctx, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLedger, "failed to open ledger", err, nil)
	}
	defer s.Close()
	if opts.Propose && s.proposer == "" {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "--propose needs a proposer account (--proposer)", nil, nil)
	}

	// The dry pass assigns ledger ids and adopts on-ledger parameters.
	if _, err := s.engine.RunPass(ctx, tree.All(), false); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeSync, "failed to locate the catalog on the ledger", err, nil)
	}
	s.engine.Context().Reset()

	found, ok := tree.ByID(groupID)
	group, isGroup := found.(*entity.MarketGroup)
	if !ok || !isGroup {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("no catalog betting market group has ledger id %s", groupID), nil, nil)
	}
	if got := group.Event().ID(); got != eventID {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("betting market group %s belongs to event %q, not %s", groupID, got, eventID), nil, nil)
	}

	resolve, err := tree.AddResolve(group, result)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGrade, "failed to grade", err, nil)
	}
	graded, err := resolve.Grade(ctx, s.engine)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGrade, "failed to grade", err, nil)
	}

	out := GradeResult{
		Event:            eventID,
		Group:            groupID,
		Identifier:       group.Identifier(),
		Result:           result,
		MetricExpression: graded.MetricExpression,
		Metric:           graded.Metric.String(),
		Resolutions:      graded.Resolutions,
	}

	if opts.Propose {
		state, err := s.engine.Reconcile(ctx, resolve)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeSync, "failed to propose the resolution", err, out)
		}
		out.State = state.String()
		flush, err := s.engine.Flush(ctx)
		out.Flush = flush
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeSync, "failed to broadcast the resolution", err, out)
		}
	}

	return formatter.Emit(out, func(w io.Writer) {
		fmt.Fprintf(w, "Group:   %s %s\n", out.Group, out.Identifier)
		fmt.Fprintf(w, "Result:  %d:%d\n", out.Result[0], out.Result[1])
		fmt.Fprintf(w, "Metric:  %s = %s\n", out.MetricExpression, out.Metric)
		for _, r := range out.Resolutions {
			fmt.Fprintf(w, "  %-10s %s\n", r.Market, r.Outcome)
		}
		if out.State != "" {
			fmt.Fprintf(w, "State:   %s\n", out.State)
		}
		if out.Flush != nil {
			for _, b := range out.Flush.Broadcasts {
				fmt.Fprintf(w, "Broadcast %s buffer: tx %s, %d operation(s)\n", b.Buffer, b.TxID, b.Operations)
			}
		}
	})
}
