package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/roach88/bosync/internal/chain"
	"github.com/roach88/bosync/internal/ir"
)

// GetObject implements chain.Reader.
func (l *Ledger) GetObject(ctx context.Context, id ir.ObjectID) (ir.Fields, error) {
	return getObject(ctx, l.db, id)
}

func getObject(ctx context.Context, q querier, id ir.ObjectID) (ir.Fields, error) {
	var body string
	err := q.QueryRowContext(ctx, `SELECT body FROM objects WHERE id = ?`, string(id)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, chain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", id, err)
	}
	return unmarshalFields(body)
}

// ListObjects implements chain.Reader.
//
// Rows are read when iteration starts, so the sequence can be ranged over
// again to restart it and the caller may query the ledger while iterating.
func (l *Ledger) ListObjects(ctx context.Context, kind ir.ObjectKind, parent ir.ObjectID) iter.Seq2[ir.Fields, error] {
	return func(yield func(ir.Fields, error) bool) {
		objects, err := l.listObjects(ctx, kind, parent)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, obj := range objects {
			if !yield(obj, nil) {
				return
			}
		}
	}
}

func (l *Ledger) listObjects(ctx context.Context, kind ir.ObjectKind, parent ir.ObjectID) ([]ir.Fields, error) {
	query := `SELECT body FROM objects WHERE kind = ? ORDER BY instance ASC`
	args := []any{string(kind)}
	if parent != "" {
		query = `SELECT body FROM objects WHERE kind = ? AND parent_id = ? ORDER BY instance ASC`
		args = append(args, string(parent))
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	var objects []ir.Fields
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		obj, err := unmarshalFields(body)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return objects, nil
}

// ListPendingProposals implements chain.Reader. Expired proposals are not
// listed.
func (l *Ledger) ListPendingProposals(ctx context.Context, authority ir.ObjectID) iter.Seq2[ir.Proposal, error] {
	return func(yield func(ir.Proposal, error) bool) {
		proposals, err := l.listProposals(ctx, authority, statusPending)
		if err != nil {
			yield(ir.Proposal{}, err)
			return
		}
		for _, p := range proposals {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// Proposals returns every proposal with status at authority, in creation
// order. An empty status matches all.
func (l *Ledger) Proposals(ctx context.Context, authority ir.ObjectID, status string) ([]ir.Proposal, error) {
	return l.listProposals(ctx, authority, status)
}

func (l *Ledger) listProposals(ctx context.Context, authority ir.ObjectID, status string) ([]ir.Proposal, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, proposer, authority, expiration, operations, approvals, status
		FROM proposals
		WHERE authority = ? AND (? = '' OR status = ?)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, string(authority), status, status)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	now := l.now()
	var out []ir.Proposal
	for rows.Next() {
		p, st, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		if st == statusPending && expired(p, now) {
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProposal(row scanner) (ir.Proposal, string, error) {
	var (
		id, proposer, authority, expiration string
		operations, approvals, status       string
	)
	if err := row.Scan(&id, &proposer, &authority, &expiration, &operations, &approvals, &status); err != nil {
		return ir.Proposal{}, "", fmt.Errorf("scan proposal: %w", err)
	}
	ops, err := unmarshalOperations(operations)
	if err != nil {
		return ir.Proposal{}, "", err
	}
	approved, err := unmarshalIDs(approvals)
	if err != nil {
		return ir.Proposal{}, "", err
	}
	return ir.Proposal{
		ID:                       ir.ObjectID(id),
		Proposer:                 ir.ObjectID(proposer),
		ExpirationTime:           expiration,
		Transaction:              ir.ProposedTransaction{Operations: ops},
		RequiredActiveApprovals:  []ir.ObjectID{ir.ObjectID(authority)},
		AvailableActiveApprovals: approved,
	}, status, nil
}

// ListAuthorizedProposers implements chain.Reader: every witness account
// is an authorized proposer.
func (l *Ledger) ListAuthorizedProposers(ctx context.Context) ([]ir.ObjectID, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT id FROM accounts WHERE witness = 1 ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query witnesses: %w", err)
	}
	defer rows.Close()

	var ids []ir.ObjectID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan witness: %w", err)
		}
		ids = append(ids, ir.ObjectID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate witnesses: %w", err)
	}
	return ids, nil
}

// Account is a ledger account.
type Account struct {
	ID      ir.ObjectID `json:"id" yaml:"id"`
	Name    string      `json:"name" yaml:"name"`
	Witness bool        `json:"witness,omitempty" yaml:"witness"`
}

// LookupAccount resolves an account by id or name.
func (l *Ledger) LookupAccount(ctx context.Context, nameOrID string) (Account, error) {
	var (
		a       Account
		id      string
		witness int
	)
	err := l.db.QueryRowContext(ctx, `
		SELECT id, name, witness FROM accounts WHERE id = ? OR name = ?
	`, nameOrID, nameOrID).Scan(&id, &a.Name, &witness)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("account %q: %w", nameOrID, chain.ErrNotFound)
	}
	if err != nil {
		return Account{}, fmt.Errorf("lookup account %q: %w", nameOrID, err)
	}
	a.ID = ir.ObjectID(id)
	a.Witness = witness == 1
	return a, nil
}
