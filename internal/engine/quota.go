package engine

import "fmt"

// ProposalQuota caps the number of operations bundled into one proposal.
//
// A catalog change that touches many entities would otherwise produce a
// single proposal too large for the approvers to review. The quota is
// checked before every operation enters the proposal buffer and reset
// whenever the buffer is flushed or cleared.
//
// A limit of zero or less disables the quota.
type ProposalQuota struct {
	limit   int
	current int
}

// NewProposalQuota creates a quota allowing limit operations per proposal.
func NewProposalQuota(limit int) *ProposalQuota {
	return &ProposalQuota{limit: limit}
}

// Check counts one more operation for identifier.
//
// Returns a QUOTA_EXCEEDED SyncError if the operation does not fit. The
// counter is not incremented in that case.
func (q *ProposalQuota) Check(identifier string) error {
	if q.limit > 0 && q.current >= q.limit {
		return &SyncError{
			Code:       ErrCodeQuotaExceeded,
			Identifier: identifier,
			Message:    fmt.Sprintf("proposal buffer is full (%d operations)", q.limit),
		}
	}
	q.current++
	return nil
}

// Reset sets the counter to 0.
func (q *ProposalQuota) Reset() {
	q.current = 0
}

// Current returns the number of counted operations.
func (q *ProposalQuota) Current() int {
	return q.current
}

// Limit returns the configured limit.
func (q *ProposalQuota) Limit() int {
	return q.limit
}
