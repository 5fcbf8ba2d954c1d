package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposalQuota_WithinLimit(t *testing.T) {
	q := NewProposalQuota(3)
	for i := 0; i < 3; i++ {
		assert.NoError(t, q.Check("x"), "operation %d should fit", i+1)
	}
	assert.Equal(t, 3, q.Current())
	assert.Equal(t, 3, q.Limit())
}

func TestProposalQuota_ExceedsLimit(t *testing.T) {
	q := NewProposalQuota(1)
	require.NoError(t, q.Check("soccer"))

	err := q.Check("soccer/premier-league")
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
	assert.True(t, IsSubmissionError(err))
	assert.Contains(t, err.Error(), "soccer/premier-league")
	assert.Equal(t, 1, q.Current(), "rejected operations are not counted")

	q.Reset()
	assert.NoError(t, q.Check("soccer/premier-league"))
}

func TestProposalQuota_Unlimited(t *testing.T) {
	q := NewProposalQuota(0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, q.Check("x"))
	}
}
