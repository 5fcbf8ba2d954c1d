package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/bosync/internal/chain"
	"github.com/roach88/bosync/internal/ir"
)

const (
	// DefaultAuthority is the account whose pending proposals are
	// inspected for auto-approval.
	DefaultAuthority ir.ObjectID = "1.2.1"

	// DefaultExpiration is the lifetime of proposals created by Flush.
	DefaultExpiration = 24 * time.Hour
)

// Engine reconciles catalog entities against the ledger.
//
// Thread-safety model:
//   - Reconcile, RunPass, Flush: serialized on an internal mutex
//   - Reference: called by entities while they build operation fields,
//     i.e. from inside Reconcile; it takes no engine lock
//   - Context(): safe from any goroutine
type Engine struct {
	mu         sync.Mutex
	client     chain.Client
	rctx       *Context
	proposer   ir.ObjectID
	approver   ir.ObjectID
	authority  ir.ObjectID
	expiration time.Duration
	quota      *ProposalQuota
	retries    *RetryGuard
	passIDs    PassIDGenerator
	now        func() time.Time
	metrics    *Metrics
	seq        int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithProposer sets the account paying for and proposing new proposals.
func WithProposer(id ir.ObjectID) Option {
	return func(e *Engine) { e.proposer = id }
}

// WithApprover sets the account that approves matching proposals.
// Defaults to the proposer.
func WithApprover(id ir.ObjectID) Option {
	return func(e *Engine) { e.approver = id }
}

// WithAuthority sets the account whose pending proposals are inspected.
func WithAuthority(id ir.ObjectID) Option {
	return func(e *Engine) { e.authority = id }
}

// WithMaxProposalOps caps the operations per proposal. Zero disables the
// cap.
func WithMaxProposalOps(n int) Option {
	return func(e *Engine) { e.quota = NewProposalQuota(n) }
}

// WithExpiration sets the lifetime of created proposals.
func WithExpiration(d time.Duration) Option {
	return func(e *Engine) { e.expiration = d }
}

// WithNow sets the wall clock used for proposal expirations.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPassIDGenerator sets the pass id source.
func WithPassIDGenerator(g PassIDGenerator) Option {
	return func(e *Engine) { e.passIDs = g }
}

// WithMetrics enables counters.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithContext shares an existing Context.
func WithContext(c *Context) Option {
	return func(e *Engine) { e.rctx = c }
}

// New creates an Engine talking to client.
func New(client chain.Client, opts ...Option) *Engine {
	e := &Engine{
		client:     client,
		rctx:       NewContext(),
		authority:  DefaultAuthority,
		expiration: DefaultExpiration,
		quota:      NewProposalQuota(0),
		retries:    NewRetryGuard(),
		passIDs:    UUIDv7Generator{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.approver == "" {
		e.approver = e.proposer
	}
	return e
}

// Context returns the shared buffers and approval bookkeeping.
func (e *Engine) Context() *Context {
	return e.rctx
}

// Client returns the ledger client.
func (e *Engine) Client() chain.Client {
	return e.client
}

// Reconcile runs the sync state machine once for s.
//
// Submission problems come back as SyncErrors; comparator shape errors and
// entity field errors are returned unchanged.
func (e *Engine) Reconcile(ctx context.Context, s Syncable) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reconcile(ctx, s)
}

func (e *Engine) reconcile(ctx context.Context, s Syncable) (State, error) {
	var (
		state State
		err   error
	)
	if s.ID().IsResolved() {
		state, err = e.reconcileResolved(ctx, s)
	} else {
		state, err = e.reconcileUnresolved(ctx, s)
	}
	e.metrics.observeState(s, state)
	return state, err
}

func (e *Engine) reconcileUnresolved(ctx context.Context, s Syncable) (State, error) {
	schema := s.Schema()

	obj, found, err := e.findID(ctx, s)
	if err != nil {
		return StateUnresolved, err
	}
	if found {
		id := obj.ObjectID("id")
		s.SetID(id)
		e.observe(s, obj)
		if _, located := s.(Locator); located {
			slog.Info("object located on the ledger",
				"identifier", s.Identifier(),
				"id", id,
			)
		} else {
			slog.Warn("object carries an id on the ledger, please update the catalog",
				"identifier", s.Identifier(),
				"id", id,
			)
		}
		return StateResolved, nil
	}

	if schema.Create == 0 {
		return StateUnresolved, NewNotFoundError(s.Identifier())
	}

	approved, err := e.approvePending(ctx, s, schema.Create)
	if err != nil {
		return StateUnresolved, err
	}
	if approved {
		slog.Info("pending create found, approving",
			"identifier", s.Identifier(),
		)
		return StatePendingCreateFound, nil
	}

	ref, buffered, err := e.findBuffered(s, schema.Create)
	if err != nil {
		return StateUnresolved, err
	}
	if buffered {
		slog.Debug("create already buffered",
			"identifier", s.Identifier(),
			"ref", ref,
		)
		return StateCreateSubmitted, nil
	}

	fields, err := s.CreateFields(ctx, e)
	if err != nil {
		return StateUnresolved, err
	}
	if err := e.propose(s, ir.NewOperation(schema.Create, fields)); err != nil {
		return StateUnresolved, err
	}
	return StateCreateSubmitted, nil
}

func (e *Engine) reconcileResolved(ctx context.Context, s Syncable) (State, error) {
	schema := s.Schema()

	obj, err := e.client.GetObject(ctx, s.ID())
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			return StateUnresolved, &SyncError{
				Code:       ErrCodeNotFound,
				Identifier: s.Identifier(),
				Message:    fmt.Sprintf("catalog id %s does not exist on the ledger", s.ID()),
				Err:        err,
			}
		}
		return StateUnresolved, fmt.Errorf("get %s: %w", s.ID(), err)
	}
	if schema.Update == 0 {
		e.observe(s, obj)
		return StateSynced, nil
	}

	// Only a matching object may hand its values to the entity.
	synced, err := e.isSynced(s, obj)
	if err != nil {
		return StateUnresolved, err
	}
	if synced {
		e.observe(s, obj)
		return StateSynced, nil
	}
	slog.Info("object not synced",
		"identifier", s.Identifier(),
		"id", s.ID(),
	)

	approved, err := e.approvePending(ctx, s, schema.Update)
	if err != nil {
		return StateUnresolved, err
	}
	if approved {
		slog.Info("pending update found, approving",
			"identifier", s.Identifier(),
		)
		return StatePendingUpdateFound, nil
	}

	_, buffered, err := e.findBuffered(s, schema.Update)
	if err != nil {
		return StateUnresolved, err
	}
	if buffered {
		return StateUpdateSubmitted, nil
	}

	fields, err := s.UpdateFields(ctx, e)
	if err != nil {
		return StateUnresolved, err
	}
	if fields == nil {
		fields = ir.Fields{}
	}
	fields[schema.TargetField] = s.ID()
	if err := e.propose(s, ir.NewOperation(schema.Update, fields)); err != nil {
		return StateUnresolved, err
	}
	return StateUpdateSubmitted, nil
}

// Reference implements Resolver.
//
// It returns, in order: the entity's own id, an id found on the ledger,
// or the provisional id of its buffered create. An entity whose create
// only exists in an on-ledger proposal yields a PARENT_PENDING error;
// anything else is NOT_FOUND.
func (e *Engine) Reference(ctx context.Context, s Syncable) (ir.ObjectID, error) {
	if id := s.ID(); id.IsResolved() {
		return id, nil
	}

	obj, found, err := e.findID(ctx, s)
	if err != nil {
		return "", err
	}
	if found {
		return obj.ObjectID("id"), nil
	}

	create := s.Schema().Create
	if create == 0 {
		return "", NewNotFoundError(s.Identifier())
	}

	ref, buffered, err := e.findBuffered(s, create)
	if err != nil {
		return "", err
	}
	if buffered {
		return ref, nil
	}

	pending, err := e.pendingOps(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range pending {
		ok, err := e.operationMatches(s, create, p.op, p.proposal.Operations())
		if err != nil {
			return "", err
		}
		if ok {
			return "", NewParentPendingError(s.Identifier())
		}
	}
	return "", NewNotFoundError(s.Identifier())
}

// findID looks for the entity among the confirmed ledger objects.
func (e *Engine) findID(ctx context.Context, s Syncable) (ir.Fields, bool, error) {
	if l, ok := s.(Locator); ok {
		return l.Locate(ctx, e.client)
	}
	cmp := s.FindComparator()
	if cmp == nil {
		return nil, false, nil
	}

	var parentID ir.ObjectID
	if p := s.Parent(); p != nil {
		parentID = p.ID()
		if !parentID.IsResolved() {
			// Nothing can be confirmed below an unconfirmed parent.
			return nil, false, nil
		}
	}

	kind := s.Schema().Kind
	for obj, err := range e.client.ListObjects(ctx, kind, parentID) {
		if err != nil {
			return nil, false, fmt.Errorf("list %s objects: %w", kind.Name(), err)
		}
		ok, err := cmp(s, obj)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return obj, true, nil
		}
	}
	return nil, false, nil
}

func (e *Engine) observe(s Syncable, obj ir.Fields) {
	if o, ok := s.(Observer); ok {
		o.Observe(obj)
	}
}

func (e *Engine) isSynced(s Syncable, obj ir.Fields) (bool, error) {
	if c, ok := s.(SyncChecker); ok {
		return c.Synced(obj)
	}
	return s.EqualComparator()(s, obj)
}

// operationMatches tests op against the canonical content of s. Update
// operations must also target s.
func (e *Engine) operationMatches(s Syncable, opType ir.OpType, op ir.Operation, bundle []ir.Operation) (bool, error) {
	if op.Type != opType {
		return false, nil
	}
	schema := s.Schema()
	if opType == schema.Update && op.Fields.ObjectID(schema.TargetField) != s.ID() {
		return false, nil
	}
	return e.match(s, op.Fields, bundle)
}

// match applies the EqualComparator of s to fields. When the parent
// reference points at a sibling operation of the same bundle, the sibling
// must match the parent entity as well.
func (e *Engine) match(s Syncable, fields ir.Fields, bundle []ir.Operation) (bool, error) {
	ok, err := s.EqualComparator()(s, fields)
	if err != nil || !ok {
		return false, err
	}

	schema := s.Schema()
	parent := s.Parent()
	if schema.ParentField == "" || parent == nil {
		return true, nil
	}
	ref := fields.ObjectID(schema.ParentField)
	if !ref.IsProvisional() {
		return true, nil
	}
	i := ref.Instance()
	if i < 0 || i >= len(bundle) {
		return false, nil
	}
	sibling := bundle[i]
	if sibling.Type != parent.Schema().Create {
		return false, nil
	}
	return e.match(parent, sibling.Fields, bundle)
}

func (e *Engine) findBuffered(s Syncable, opType ir.OpType) (ir.ObjectID, bool, error) {
	ops := e.rctx.proposalOps()
	for i, op := range ops {
		ok, err := e.operationMatches(s, opType, op, ops)
		if err != nil {
			return "", false, err
		}
		if ok {
			return ir.ProvisionalID(i), true, nil
		}
	}
	return "", false, nil
}

func (e *Engine) propose(s Syncable, op ir.Operation) error {
	if err := e.quota.Check(s.Identifier()); err != nil {
		return err
	}
	ref := e.rctx.bufferProposal(op, s.Identifier())
	slog.Info("operation buffered",
		"identifier", s.Identifier(),
		"op", op.Type.String(),
		"ref", ref,
	)
	e.metrics.observeBuffered(op.Type.String())
	return nil
}
