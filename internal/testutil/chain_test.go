package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bosync/internal/chain"
	"github.com/roach88/bosync/internal/ir"
)

func TestFakeChain_Objects(t *testing.T) {
	ctx := context.Background()
	f := NewFakeChain()
	f.AddObject("1.20.0", ir.Fields{"name": ir.LangList{{Lang: "en", Text: "Basketball"}}})
	f.AddObject("1.21.0", ir.Fields{"sport_id": "1.20.0"})
	f.AddObject("1.21.1", ir.Fields{"sport_id": "1.20.9"})

	obj, err := f.GetObject(ctx, "1.20.0")
	require.NoError(t, err)
	assert.Equal(t, "1.20.0", obj["id"])

	_, err = f.GetObject(ctx, "1.20.5")
	assert.ErrorIs(t, err, chain.ErrNotFound)

	var ids []string
	for obj, err := range f.ListObjects(ctx, ir.KindEventGroup, "1.20.0") {
		require.NoError(t, err)
		ids = append(ids, obj.String("id"))
	}
	assert.Equal(t, []string{"1.21.0"}, ids)

	count := 0
	for range f.ListObjects(ctx, ir.KindEventGroup, "") {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestFakeChain_BroadcastProposalAndApproval(t *testing.T) {
	ctx := context.Background()
	f := NewFakeChain()

	op := ir.Operation{Type: ir.OpSportCreate, Fields: ir.Fields{"name": ir.LangList{{Lang: "en", Text: "Soccer"}}}}
	res, err := f.Broadcast(ctx, ir.Transaction{Operations: []ir.Operation{
		ir.NewProposalCreate("1.2.7", time.Unix(0, 0), []ir.Operation{op}),
	}})
	require.NoError(t, err)
	assert.Equal(t, []ir.ObjectID{"1.10.0"}, res.OperationResults)

	_, err = f.Broadcast(ctx, ir.Transaction{Operations: []ir.Operation{ir.NewApproval("1.2.8", "1.10.0")}})
	require.NoError(t, err)

	var pending []ir.Proposal
	for p, err := range f.ListPendingProposals(ctx, "1.2.1") {
		require.NoError(t, err)
		pending = append(pending, p)
	}
	require.Len(t, pending, 1)
	assert.Equal(t, ir.ObjectID("1.2.7"), pending[0].Proposer)
	assert.True(t, pending[0].ApprovedBy("1.2.8"))
	assert.Len(t, f.Broadcasts(), 2)
}

func TestFakeChain_FailBroadcast(t *testing.T) {
	f := NewFakeChain()
	f.FailBroadcast(chain.ErrAlreadyExists)

	_, err := f.Broadcast(context.Background(), ir.Transaction{})
	assert.ErrorIs(t, err, chain.ErrAlreadyExists)

	_, err = f.Broadcast(context.Background(), ir.Transaction{})
	assert.NoError(t, err)
	assert.Equal(t, 2, f.Calls("Broadcast"))
	assert.Len(t, f.Broadcasts(), 1)
}
