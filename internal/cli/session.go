package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/bosync/internal/catalog"
	"github.com/roach88/bosync/internal/chain"
	"github.com/roach88/bosync/internal/engine"
	"github.com/roach88/bosync/internal/entity"
	"github.com/roach88/bosync/internal/ir"
	"github.com/roach88/bosync/internal/ledger"
)

// session is the ledger and engine one command works with.
type session struct {
	ledger   *ledger.Ledger
	client   chain.Client
	engine   *engine.Engine
	registry *prometheus.Registry
	proposer ir.ObjectID
	approver ir.ObjectID
}

func openLedger(cfg *Config) (*ledger.Ledger, error) {
	opts := []ledger.Option{ledger.WithAuthority(ir.ObjectID(cfg.Authority))}
	if cfg.Quorum > 0 {
		opts = append(opts, ledger.WithQuorum(cfg.Quorum))
	}
	slog.Debug("opening ledger", "path", cfg.Ledger)
	return ledger.Open(cfg.Ledger, opts...)
}

// openSession opens the ledger and creates an engine for the configured
// accounts. The caller must close the session.
func openSession(ctx context.Context, cfg *Config) (*session, error) {
	l, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}
	s := &session{ledger: l, client: l, registry: prometheus.NewRegistry()}
	if cfg.Rate > 0 {
		s.client = chain.NewRateLimited(l, cfg.Rate, cfg.Burst)
	}

	if s.proposer, err = s.account(ctx, cfg.Proposer); err != nil {
		s.Close()
		return nil, fmt.Errorf("proposer: %w", err)
	}
	if s.approver, err = s.account(ctx, cfg.Approver); err != nil {
		s.Close()
		return nil, fmt.Errorf("approver: %w", err)
	}

	s.engine = engine.New(s.client,
		engine.WithProposer(s.proposer),
		engine.WithApprover(s.approver),
		engine.WithAuthority(ir.ObjectID(cfg.Authority)),
		engine.WithMaxProposalOps(cfg.MaxProposalOps),
		engine.WithExpiration(cfg.Expiration),
		engine.WithMetrics(engine.NewMetrics(s.registry)),
	)
	return s, nil
}

// account resolves an account name or id. An empty value stays empty.
func (s *session) account(ctx context.Context, nameOrID string) (ir.ObjectID, error) {
	if nameOrID == "" {
		return "", nil
	}
	a, err := s.ledger.LookupAccount(ctx, nameOrID)
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

func (s *session) Close() {
	if err := s.ledger.Close(); err != nil {
		slog.Error("error closing ledger", "error", err)
	}
}

// loadInputs loads the catalog and, when configured, the events file.
func loadInputs(cfg *Config) (*catalog.Catalog, []*catalog.EventDef, error) {
	if cfg.Catalog == "" {
		return nil, nil, errors.New("no catalog directory given (--catalog)")
	}
	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return nil, nil, err
	}
	var events []*catalog.EventDef
	if cfg.Events != "" {
		if events, err = catalog.LoadEvents(cfg.Events); err != nil {
			return cat, nil, err
		}
	}
	return cat, events, nil
}

func buildTree(cfg *Config, cat *catalog.Catalog, events []*catalog.EventDef) (*entity.Tree, error) {
	tolerance, err := cfg.tolerance()
	if err != nil {
		return nil, err
	}
	return entity.Build(cat, events, entity.WithDefaultTolerance(tolerance))
}

// loadTree loads the inputs and builds the entity tree. With withResults
// unset the results of the events file are ignored.
func loadTree(cfg *Config, withResults bool) (*entity.Tree, error) {
	cat, events, err := loadInputs(cfg)
	if err != nil {
		return nil, err
	}
	if !withResults {
		for _, ev := range events {
			ev.Result = nil
		}
	}
	return buildTree(cfg, cat, events)
}
