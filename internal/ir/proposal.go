package ir

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Proposal is a bundle of operations awaiting a quorum of approvals.
type Proposal struct {
	ID                       ObjectID            `json:"id"`
	Proposer                 ObjectID            `json:"proposer"`
	ExpirationTime           string              `json:"expiration_time"`
	Transaction              ProposedTransaction `json:"proposed_transaction"`
	RequiredActiveApprovals  []ObjectID          `json:"required_active_approvals"`
	AvailableActiveApprovals []ObjectID          `json:"available_active_approvals"`
}

// ProposedTransaction is the transaction carried by a proposal.
type ProposedTransaction struct {
	Operations []Operation `json:"operations"`
}

// Operations returns the bundled operations in index order.
func (p Proposal) Operations() []Operation {
	return p.Transaction.Operations
}

// Operation returns the bundled operation at index.
func (p Proposal) Operation(index int) (Operation, bool) {
	ops := p.Transaction.Operations
	if index < 0 || index >= len(ops) {
		return Operation{}, false
	}
	return ops[index], true
}

// ApprovedBy reports whether account already granted its approval.
func (p Proposal) ApprovedBy(account ObjectID) bool {
	return slices.Contains(p.AvailableActiveApprovals, account)
}

// NewProposalCreate wraps ops into a proposal_create operation paid by
// proposer.
func NewProposalCreate(proposer ObjectID, expiration time.Time, ops []Operation) Operation {
	proposed := make([]Fields, len(ops))
	for i, op := range ops {
		proposed[i] = Fields{"op": op}
	}
	return Operation{
		Type: OpProposalCreate,
		Fields: Fields{
			"fee_paying_account": proposer,
			"expiration_time":    FormatTime(expiration),
			"proposed_ops":       proposed,
			"extensions":         []any{},
		},
	}
}

// ProposedOps extracts field_map["proposed_ops"][i]["op"] from a
// proposal_create operation.
func ProposedOps(op Operation) ([]Operation, error) {
	if op.Type != OpProposalCreate {
		return nil, fmt.Errorf("%s is not a proposal", op.Type)
	}
	raw, ok := op.Fields["proposed_ops"]
	if !ok {
		return nil, fmt.Errorf("proposal_create without proposed_ops")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("proposed_ops: %w", err)
	}
	var wrapped []struct {
		Op Operation `json:"op"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("proposed_ops: %w", err)
	}
	ops := make([]Operation, len(wrapped))
	for i, w := range wrapped {
		ops[i] = w.Op
	}
	return ops, nil
}

// NewApproval returns the proposal_update operation by which account
// approves proposal.
func NewApproval(account, proposal ObjectID) Operation {
	return Operation{
		Type: OpProposalUpdate,
		Fields: Fields{
			"fee_paying_account":      account,
			"proposal":                proposal,
			"active_approvals_to_add": []ObjectID{account},
			"extensions":              []any{},
		},
	}
}

// ApprovedAccounts returns the accounts added by a proposal_update.
func ApprovedAccounts(op Operation) []ObjectID {
	raw, ok := op.Fields["active_approvals_to_add"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []ObjectID:
		return slices.Clone(v)
	case []any:
		out := make([]ObjectID, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, ObjectID(s))
			}
		}
		return out
	default:
		return nil
	}
}
