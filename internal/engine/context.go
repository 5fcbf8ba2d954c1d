package engine

import (
	"maps"
	"slices"
	"sync"

	"github.com/roach88/bosync/internal/ir"
)

// BufferedOp is an operation waiting in the proposal buffer.
type BufferedOp struct {
	Op ir.Operation

	// Owner is the identifier of the entity that buffered the operation.
	Owner string
}

// Context holds the state shared by every reconcile call: the two
// transaction buffers and the approval bookkeeping.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Context struct {
	mu        sync.Mutex
	proposal  []BufferedOp
	direct    []ir.Operation
	approvals ApprovalMap
	queued    map[ir.ObjectID]bool // proposals with an approval in the direct buffer
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{
		approvals: make(ApprovalMap),
		queued:    make(map[ir.ObjectID]bool),
	}
}

// ClearProposalBuffer drops every buffered proposal operation. It must be
// called before starting an unrelated batch.
func (c *Context) ClearProposalBuffer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proposal = nil
}

// ClearDirectBuffer drops every queued approval.
func (c *Context) ClearDirectBuffer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.direct = nil
	clear(c.queued)
}

// Reset clears both buffers and the approval map.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proposal = nil
	c.direct = nil
	clear(c.queued)
	clear(c.approvals)
}

// ProposalBuffer returns a copy of the buffered proposal operations.
func (c *Context) ProposalBuffer() []BufferedOp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.proposal)
}

// DirectBuffer returns a copy of the queued approvals.
func (c *Context) DirectBuffer() []ir.Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.direct)
}

// Approvals returns a snapshot of the approval map, ordered by proposal id.
func (c *Context) Approvals() []ApprovalStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.approvals.snapshot()
}

// Owners returns the distinct owners of the proposal buffer in buffer
// order.
func (c *Context) Owners() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	var owners []string
	for _, b := range c.proposal {
		if !seen[b.Owner] {
			seen[b.Owner] = true
			owners = append(owners, b.Owner)
		}
	}
	return owners
}

// bufferProposal appends op and returns its provisional id.
func (c *Context) bufferProposal(op ir.Operation, owner string) ir.ObjectID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proposal = append(c.proposal, BufferedOp{Op: op, Owner: owner})
	return ir.ProvisionalID(len(c.proposal) - 1)
}

// proposalOps returns the raw buffered operations.
func (c *Context) proposalOps() []ir.Operation {
	c.mu.Lock()
	defer c.mu.Unlock()

	ops := make([]ir.Operation, len(c.proposal))
	for i, b := range c.proposal {
		ops[i] = b.Op
	}
	return ops
}

// track registers every operation of p in the approval map. Known entries
// keep their marks.
func (c *Context) track(p ir.Proposal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.approvals.track(p)
}

// mark flags one operation as approved by us and queues a ledger-level
// approval by approver for every fully approved proposal. It returns the
// proposals whose approval was queued.
func (c *Context) mark(pid ir.ObjectID, index int, approver ir.ObjectID) []ir.ObjectID {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.approvals[pid]
	if !ok {
		return nil
	}
	entry.ops[index] = true

	var queued []ir.ObjectID
	for _, id := range slices.Sorted(maps.Keys(c.approvals)) {
		e := c.approvals[id]
		if !e.complete() {
			continue
		}
		switch {
		case e.proposal.ApprovedBy(approver):
			// Already approved on the ledger.
		case c.queued[id]:
			// Already in the direct buffer.
		default:
			c.direct = append(c.direct, ir.NewApproval(approver, id))
			c.queued[id] = true
			queued = append(queued, id)
		}
		delete(c.approvals, id)
	}
	return queued
}

// ApprovalMap maps a proposal id to the approval state of each of its
// operations.
type ApprovalMap map[ir.ObjectID]*approvalEntry

type approvalEntry struct {
	proposal ir.Proposal
	ops      map[int]bool
}

func (m ApprovalMap) track(p ir.Proposal) {
	entry, ok := m[p.ID]
	if !ok {
		entry = &approvalEntry{ops: make(map[int]bool)}
		m[p.ID] = entry
	}
	// The latest observation carries the freshest approvals.
	entry.proposal = p
	for i := range p.Operations() {
		if _, ok := entry.ops[i]; !ok {
			entry.ops[i] = false
		}
	}
}

func (e *approvalEntry) complete() bool {
	for _, ok := range e.ops {
		if !ok {
			return false
		}
	}
	return true
}

// ApprovalStatus summarizes one tracked proposal.
type ApprovalStatus struct {
	Proposal ir.ObjectID `json:"proposal"`
	Proposer ir.ObjectID `json:"proposer"`
	Approved []int       `json:"approved"`
	Total    int         `json:"total"`
}

func (m ApprovalMap) snapshot() []ApprovalStatus {
	out := make([]ApprovalStatus, 0, len(m))
	for _, id := range slices.Sorted(maps.Keys(m)) {
		e := m[id]
		st := ApprovalStatus{Proposal: id, Proposer: e.proposal.Proposer, Total: len(e.ops), Approved: []int{}}
		for _, i := range slices.Sorted(maps.Keys(e.ops)) {
			if e.ops[i] {
				st.Approved = append(st.Approved, i)
			}
		}
		out = append(out, st)
	}
	return out
}
