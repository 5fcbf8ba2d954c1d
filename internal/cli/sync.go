package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/bosync/internal/engine"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Broadcast   bool
	Watch       bool
	MetricsFile string

	// Debounce is the quiet period --watch waits for. Zero uses
	// defaultDebounce.
	Debounce time.Duration
}

// SyncResult is the output of one pass.
type SyncResult struct {
	Report *engine.Report `json:"report"`
	Counts map[string]int `json:"counts"`

	// Operations and approvals left in the buffers because the pass was
	// not broadcast.
	Unsent    int `json:"unsent_operations,omitempty"`
	Approvals int `json:"unsent_approvals,omitempty"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the catalog against the ledger",
		Long: `Run one reconciliation pass over every entity of the catalog.

Without --broadcast the pass is a dry run: the operations that would be
proposed and the approvals that would be granted are reported and then
dropped. With --watch a new pass runs whenever a catalog document or the
events file changes, until interrupted.

Example:
  bosync sync --catalog ./catalog --events ./events.yaml --proposer init0 --broadcast
  bosync sync --config bosync.yaml --broadcast --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Broadcast, "broadcast", false, "broadcast the buffered operations and approvals")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "run again whenever the catalog or events file changes")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write reconciliation counters in Prometheus text format after each pass")

	return cmd
}

func runSync(parent context.Context, opts *SyncOptions, w io.Writer) error {
	formatter := newFormatter(opts.RootOptions, w)
	cfg := &opts.Config

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLedger, "failed to open ledger", err, nil)
	}
	defer s.Close()

	if opts.Broadcast && s.proposer == "" {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "--broadcast needs a proposer account (--proposer)", nil, nil)
	}

	pass := func(ctx context.Context) error {
		return syncPass(ctx, opts, s, formatter)
	}
	if err := pass(ctx); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	watcher, err := newInputWatcher(cfg.Catalog, cfg.Events, debounce)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to watch inputs", err, nil)
	}
	defer watcher.Close()

	slog.Info("watching inputs", "catalog", cfg.Catalog, "events", cfg.Events)
	return watcher.Run(ctx, func(ctx context.Context) error {
		err := pass(ctx)
		if GetExitCode(err) == ExitFailure {
			// A broken edit is reported and the watch goes on.
			return nil
		}
		return err
	})
}

// syncPass loads the inputs and runs one pass.
func syncPass(ctx context.Context, opts *SyncOptions, s *session, formatter *OutputFormatter) error {
	tree, err := loadTree(&opts.Config, true)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeCatalog, "failed to load catalog", err, nil)
	}

	report, err := s.engine.RunPass(ctx, tree.All(), opts.Broadcast)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeSync, "pass aborted", err, report)
	}

	result := SyncResult{Report: report, Counts: make(map[string]int)}
	for _, e := range report.Entries {
		result.Counts[e.State.String()]++
	}
	if !opts.Broadcast {
		rctx := s.engine.Context()
		result.Unsent = len(rctx.ProposalBuffer())
		result.Approvals = len(rctx.DirectBuffer())
		rctx.Reset()
	}

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, s.registry); err != nil {
			slog.Error("failed to write metrics", "path", opts.MetricsFile, "error", err)
		}
	}
	return outputSyncResult(formatter, result)
}

func outputSyncResult(formatter *OutputFormatter, result SyncResult) error {
	return formatter.Emit(result, func(w io.Writer) {
		report := result.Report
		fmt.Fprintf(w, "Pass %s: %d entities\n", report.PassID, len(report.Entries))
		for _, state := range slices.Sorted(maps.Keys(result.Counts)) {
			fmt.Fprintf(w, "  %-22s %d\n", state, result.Counts[state])
		}

		if errs := report.Errors(); len(errs) > 0 {
			fmt.Fprintf(w, "\n%d entities skipped:\n", len(errs))
			for _, e := range errs {
				fmt.Fprintf(w, "  %s: %s\n", e.Identifier, e.Error)
			}
		}

		if formatter.Verbose {
			fmt.Fprintln(w)
			for _, e := range report.Entries {
				fmt.Fprintf(w, "  %-22s %-10s %s\n", e.State, e.ID, e.Identifier)
			}
		}

		if report.Flush != nil {
			for _, b := range report.Flush.Broadcasts {
				fmt.Fprintf(w, "\nBroadcast %s buffer: tx %s, %d operation(s)", b.Buffer, b.TxID, b.Operations)
				if b.Summary.IsProposal() {
					fmt.Fprintf(w, ", proposal %v", b.Summary.Proposals)
				}
				if b.Summary.IsApproval() {
					fmt.Fprintf(w, ", approved %v", b.Summary.Approvals)
				}
				fmt.Fprintln(w)
			}
		}
		if result.Unsent > 0 || result.Approvals > 0 {
			fmt.Fprintf(w, "\nDry run: %d operation(s) and %d approval(s) not broadcast\n", result.Unsent, result.Approvals)
		}
	})
}
