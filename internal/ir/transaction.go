package ir

// Transaction is a signed-and-broadcast unit of operations.
type Transaction struct {
	Operations []Operation `json:"operations"`
}

// TxResult is returned by a successful broadcast.
type TxResult struct {
	// ID identifies the transaction on the ledger.
	ID string `json:"id"`

	// OperationResults holds, per operation, the id assigned to a newly
	// created object or proposal ("" when the operation creates nothing).
	OperationResults []ObjectID `json:"operation_results"`
}

// TxSummary classifies what a broadcast transaction did.
type TxSummary struct {
	// Proposals lists proposals created by the transaction.
	Proposals []ObjectID `json:"proposals,omitempty"`

	// Approvals lists proposals the transaction approved.
	Approvals []ObjectID `json:"approvals,omitempty"`

	// Created lists objects created directly (outside a proposal).
	Created []ObjectID `json:"created,omitempty"`
}

// IsProposal reports whether the transaction created at least one proposal.
func (s TxSummary) IsProposal() bool { return len(s.Proposals) > 0 }

// IsApproval reports whether the transaction approved at least one proposal.
func (s TxSummary) IsApproval() bool { return len(s.Approvals) > 0 }

// Classify pairs each operation of tx with its result.
func Classify(tx Transaction, res TxResult) TxSummary {
	var s TxSummary
	for i, op := range tx.Operations {
		var assigned ObjectID
		if i < len(res.OperationResults) {
			assigned = res.OperationResults[i]
		}
		info, _ := op.Type.Info()
		switch info.Role {
		case RoleProposal:
			if assigned.IsResolved() {
				s.Proposals = append(s.Proposals, assigned)
			}
		case RoleApproval:
			s.Approvals = append(s.Approvals, op.Fields.ObjectID("proposal"))
		case RoleCreate:
			if assigned.IsResolved() {
				s.Created = append(s.Created, assigned)
			}
		}
	}
	return s
}
