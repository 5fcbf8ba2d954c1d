package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bosync/internal/ir"
)

func makeTestProposal(id ir.ObjectID, ops int) ir.Proposal {
	p := ir.Proposal{ID: id, Proposer: testProposer}
	for i := range ops {
		p.Transaction.Operations = append(p.Transaction.Operations,
			ir.NewOperation(ir.OpSportCreate, ir.Fields{"name": ir.LangList{{Lang: "en", Text: string(rune('A' + i))}}}))
	}
	return p
}

func TestContext_MarkQueuesApprovalWhenComplete(t *testing.T) {
	c := NewContext()
	c.track(makeTestProposal("1.10.1", 2))

	assert.Empty(t, c.mark("1.10.1", 1, testApprover))
	require.Len(t, c.Approvals(), 1)
	assert.Equal(t, []int{1}, c.Approvals()[0].Approved)

	queued := c.mark("1.10.1", 0, testApprover)
	assert.Equal(t, []ir.ObjectID{"1.10.1"}, queued)
	assert.Empty(t, c.Approvals())
	require.Len(t, c.DirectBuffer(), 1)
}

func TestContext_TrackKeepsMarks(t *testing.T) {
	c := NewContext()
	p := makeTestProposal("1.10.1", 2)
	c.track(p)
	c.mark("1.10.1", 0, testApprover)
	c.track(p)

	require.Len(t, c.Approvals(), 1)
	assert.Equal(t, []int{0}, c.Approvals()[0].Approved)
}

func TestContext_MarkUnknownProposal(t *testing.T) {
	c := NewContext()
	assert.Empty(t, c.mark("1.10.9", 0, testApprover))
	assert.Empty(t, c.DirectBuffer())
}

func TestContext_ApprovalNotQueuedTwice(t *testing.T) {
	c := NewContext()
	p := makeTestProposal("1.10.1", 1)

	c.track(p)
	c.mark("1.10.1", 0, testApprover)
	c.track(p)
	assert.Empty(t, c.mark("1.10.1", 0, testApprover))
	assert.Len(t, c.DirectBuffer(), 1)

	// Once the direct buffer is flushed the guard is lifted.
	c.ClearDirectBuffer()
	c.track(p)
	assert.Equal(t, []ir.ObjectID{"1.10.1"}, c.mark("1.10.1", 0, testApprover))
}

func TestContext_BuffersAndReset(t *testing.T) {
	c := NewContext()
	op := ir.NewOperation(ir.OpSportCreate, ir.Fields{})

	assert.Equal(t, ir.ObjectID("0.0.0"), c.bufferProposal(op, "a"))
	assert.Equal(t, ir.ObjectID("0.0.1"), c.bufferProposal(op, "b"))
	assert.Equal(t, ir.ObjectID("0.0.2"), c.bufferProposal(op, "a"))
	assert.Equal(t, []string{"a", "b"}, c.Owners())
	assert.Len(t, c.proposalOps(), 3)

	c.track(makeTestProposal("1.10.1", 1))
	c.ClearProposalBuffer()
	assert.Empty(t, c.ProposalBuffer())
	assert.Len(t, c.Approvals(), 1, "clearing a buffer keeps the approval map")

	c.Reset()
	assert.Empty(t, c.Approvals())
	assert.Empty(t, c.DirectBuffer())
}
