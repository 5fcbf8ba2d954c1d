package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/bosync/internal/chain"
	"github.com/roach88/bosync/internal/ir"
)

const (
	statusPending  = "pending"
	statusExecuted = "executed"
)

const seqCounter = "seq"

func expired(p ir.Proposal, now time.Time) bool {
	t, err := ir.ParseTime(p.ExpirationTime)
	return err == nil && !t.After(now)
}

// Broadcast implements chain.Broadcaster.
//
// The transaction is applied atomically. Only proposal_create and
// proposal_update operations are accepted; catalog operations must be
// proposed.
func (l *Ledger) Broadcast(ctx context.Context, tx ir.Transaction) (ir.TxResult, error) {
	if len(tx.Operations) == 0 {
		return ir.TxResult{}, errors.New("broadcast: empty transaction")
	}

	txID, err := ir.TransactionID(tx, uuid.NewString())
	if err != nil {
		return ir.TxResult{}, err
	}

	sqlTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.TxResult{}, fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	res := ir.TxResult{ID: txID, OperationResults: make([]ir.ObjectID, len(tx.Operations))}
	for i, op := range tx.Operations {
		id, err := l.apply(ctx, sqlTx, op)
		if err != nil {
			return ir.TxResult{}, fmt.Errorf("operation %d (%s): %w", i, op.Type, err)
		}
		res.OperationResults[i] = id
	}

	body, err := marshalOperations(tx.Operations)
	if err != nil {
		return ir.TxResult{}, err
	}
	results, err := marshalIDs(res.OperationResults)
	if err != nil {
		return ir.TxResult{}, err
	}
	seq, err := nextValue(ctx, sqlTx, seqCounter)
	if err != nil {
		return ir.TxResult{}, err
	}
	if _, err := sqlTx.ExecContext(ctx, `
		INSERT INTO transactions (id, body, results, seq) VALUES (?, ?, ?, ?)
	`, txID, body, results, seq); err != nil {
		return ir.TxResult{}, fmt.Errorf("write transaction: %w", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return ir.TxResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func (l *Ledger) apply(ctx context.Context, q querier, op ir.Operation) (ir.ObjectID, error) {
	info, ok := op.Type.Info()
	if !ok {
		return "", fmt.Errorf("unsupported operation %s", op.Type)
	}
	switch info.Role {
	case ir.RoleProposal:
		return l.createProposal(ctx, q, op)
	case ir.RoleApproval:
		return "", l.approveProposal(ctx, q, op)
	default:
		return "", fmt.Errorf("%s requires a proposal", op.Type)
	}
}

func (l *Ledger) createProposal(ctx context.Context, q querier, op ir.Operation) (ir.ObjectID, error) {
	proposer := op.Fields.ObjectID("fee_paying_account")
	if _, err := accountWitness(ctx, q, proposer); err != nil {
		return "", fmt.Errorf("proposer: %w", err)
	}

	expiration := op.Fields.String("expiration_time")
	exp, err := ir.ParseTime(expiration)
	if err != nil {
		return "", err
	}
	now := l.now()
	if !exp.After(now) {
		return "", fmt.Errorf("proposal expired at %s", expiration)
	}

	ops, err := ir.ProposedOps(op)
	if err != nil {
		return "", err
	}
	if len(ops) == 0 {
		return "", errors.New("proposal without operations")
	}

	fingerprints := make([]string, len(ops))
	for i, pop := range ops {
		info, ok := pop.Type.Info()
		if !ok || info.Role == ir.RoleProposal || info.Role == ir.RoleApproval {
			return "", fmt.Errorf("operation %d: %s cannot be proposed", i, pop.Type)
		}
		fp, err := ir.Fingerprint(pop)
		if err != nil {
			return "", err
		}
		var dup string
		err = q.QueryRowContext(ctx, `
			SELECT po.proposal_id
			FROM proposal_ops po
			JOIN proposals p ON p.id = po.proposal_id
			WHERE po.fingerprint = ? AND p.status = ? AND p.expiration > ?
			LIMIT 1
		`, fp, statusPending, ir.FormatTime(now)).Scan(&dup)
		if err == nil {
			return "", fmt.Errorf("operation %d (%s) already proposed in %s: %w", i, pop.Type, dup, chain.ErrAlreadyExists)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("check duplicates: %w", err)
		}
		fingerprints[i] = fp
	}

	instance, err := nextValue(ctx, q, string(ir.KindProposal))
	if err != nil {
		return "", err
	}
	id := ir.KindProposal.ID(instance)
	opsJSON, err := marshalOperations(ops)
	if err != nil {
		return "", err
	}
	seq, err := nextValue(ctx, q, seqCounter)
	if err != nil {
		return "", err
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO proposals (id, instance, proposer, authority, expiration, operations, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(id), instance, string(proposer), string(l.authority), ir.FormatTime(exp), opsJSON, seq); err != nil {
		return "", fmt.Errorf("write proposal: %w", err)
	}
	for i, fp := range fingerprints {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO proposal_ops (proposal_id, op_index, fingerprint) VALUES (?, ?, ?)
		`, string(id), i, fp); err != nil {
			return "", fmt.Errorf("write proposal op: %w", err)
		}
	}

	slog.Debug("proposal created",
		"proposal", id,
		"proposer", proposer,
		"operations", len(ops),
	)
	return id, nil
}

func (l *Ledger) approveProposal(ctx context.Context, q querier, op ir.Operation) error {
	pid := op.Fields.ObjectID("proposal")
	row := q.QueryRowContext(ctx, `
		SELECT id, proposer, authority, expiration, operations, approvals, status
		FROM proposals WHERE id = ?
	`, string(pid))
	p, status, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("proposal %s: %w", pid, chain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if status != statusPending {
		return fmt.Errorf("proposal %s is %s", pid, status)
	}
	if expired(p, l.now()) {
		return fmt.Errorf("proposal %s expired", pid)
	}

	added := ir.ApprovedAccounts(op)
	if len(added) == 0 {
		return fmt.Errorf("proposal_update for %s adds no approvals", pid)
	}
	for _, account := range added {
		if _, err := accountWitness(ctx, q, account); err != nil {
			return fmt.Errorf("approver: %w", err)
		}
		if !slices.Contains(p.AvailableActiveApprovals, account) {
			p.AvailableActiveApprovals = append(p.AvailableActiveApprovals, account)
		}
	}

	approvals, err := marshalIDs(p.AvailableActiveApprovals)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `UPDATE proposals SET approvals = ? WHERE id = ?`, approvals, string(pid)); err != nil {
		return fmt.Errorf("write approvals: %w", err)
	}

	votes := 0
	for _, account := range p.AvailableActiveApprovals {
		witness, err := accountWitness(ctx, q, account)
		if err != nil {
			return err
		}
		if witness {
			votes++
		}
	}
	quorum, err := l.quorumSize(ctx, q)
	if err != nil {
		return err
	}
	if votes < quorum {
		return nil
	}
	return l.execute(ctx, q, p)
}

// execute applies the operations of an approved proposal in order.
func (l *Ledger) execute(ctx context.Context, q querier, p ir.Proposal) error {
	ops := p.Operations()
	created := make([]ir.ObjectID, len(ops))
	for i, op := range ops {
		fields, err := resolveProvisional(op.Fields, created[:i])
		if err != nil {
			return fmt.Errorf("proposal %s operation %d: %w", p.ID, i, err)
		}
		id, err := l.executeOp(ctx, q, ir.Operation{Type: op.Type, Fields: fields})
		if err != nil {
			return fmt.Errorf("proposal %s operation %d (%s): %w", p.ID, i, op.Type, err)
		}
		created[i] = id
	}
	if _, err := q.ExecContext(ctx, `UPDATE proposals SET status = ? WHERE id = ?`, statusExecuted, string(p.ID)); err != nil {
		return fmt.Errorf("write proposal status: %w", err)
	}
	slog.Info("proposal executed",
		"proposal", p.ID,
		"operations", len(ops),
	)
	return nil
}

// resolveProvisional replaces top-level "0.0.N" references with the id
// created by operation N of the same proposal.
func resolveProvisional(f ir.Fields, created []ir.ObjectID) (ir.Fields, error) {
	out := f.Clone()
	for k, v := range f {
		s, ok := v.(string)
		if !ok {
			continue
		}
		ref := ir.ObjectID(s)
		if !ref.IsProvisional() {
			continue
		}
		n := ref.Instance()
		if n >= len(created) || created[n] == "" {
			return nil, fmt.Errorf("field %s references %s, which created nothing", k, ref)
		}
		out[k] = string(created[n])
	}
	return out, nil
}

func (l *Ledger) executeOp(ctx context.Context, q querier, op ir.Operation) (ir.ObjectID, error) {
	info, _ := op.Type.Info()
	switch info.Role {
	case ir.RoleCreate:
		return createObject(ctx, q, info.Kind, op.Fields)
	case ir.RoleUpdate:
		return "", modifyObject(ctx, q, op.Fields.ObjectID(info.Target), func(body ir.Fields) {
			for k, v := range op.Fields {
				if name, ok := strings.CutPrefix(k, ir.UpdatePrefix); ok {
					body[name] = v
				}
			}
		})
	case ir.RoleResolve:
		return "", modifyObject(ctx, q, op.Fields.ObjectID(info.Target), func(body ir.Fields) {
			body["status"] = "graded"
			body["resolutions"] = op.Fields["resolutions"]
		})
	case ir.RoleStatus:
		return "", modifyObject(ctx, q, op.Fields.ObjectID(info.Target), func(body ir.Fields) {
			body["status"] = op.Fields.String("status")
			if scores, ok := op.Fields["scores"]; ok {
				body["scores"] = scores
			}
		})
	default:
		return "", fmt.Errorf("%s cannot be executed", op.Type)
	}
}

func createObject(ctx context.Context, q querier, kind ir.ObjectKind, fields ir.Fields) (ir.ObjectID, error) {
	var parent ir.ObjectID
	if pf := kind.ParentField(); pf != "" {
		parent = fields.ObjectID(pf)
		if _, err := getObject(ctx, q, parent); err != nil {
			return "", fmt.Errorf("%s: %w", pf, err)
		}
	}

	instance, err := nextValue(ctx, q, string(kind))
	if err != nil {
		return "", err
	}
	id := kind.ID(instance)
	body := fields.Clone()
	body["id"] = string(id)
	if kind == ir.KindEvent && !body.Has("status") {
		body["status"] = "upcoming"
	}
	if err := writeObject(ctx, q, id, parent, body); err != nil {
		return "", err
	}
	return id, nil
}

func modifyObject(ctx context.Context, q querier, id ir.ObjectID, change func(body ir.Fields)) error {
	body, err := getObject(ctx, q, id)
	if err != nil {
		return err
	}
	change(body)
	body["id"] = string(id)

	var parent ir.ObjectID
	if pf := id.Kind().ParentField(); pf != "" {
		parent = body.ObjectID(pf)
	}
	return writeObject(ctx, q, id, parent, body)
}

// writeObject inserts or replaces an object.
func writeObject(ctx context.Context, q querier, id, parent ir.ObjectID, body ir.Fields) error {
	data, err := marshalFields(body)
	if err != nil {
		return err
	}
	seq, err := nextValue(ctx, q, seqCounter)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO objects (id, kind, instance, parent_id, body, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			body = excluded.body,
			seq = excluded.seq
	`, string(id), string(id.Kind()), id.Instance(), string(parent), data, seq)
	if err != nil {
		return fmt.Errorf("write object %s: %w", id, err)
	}
	return nil
}

// nextValue returns the next value of a counter and advances it.
func nextValue(ctx context.Context, q querier, key string) (int, error) {
	var next int
	err := q.QueryRowContext(ctx, `SELECT next FROM counters WHERE kind = ?`, key).Scan(&next)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read counter %s: %w", key, err)
	}
	if err := bumpCounter(ctx, q, key, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// bumpCounter raises a counter to at least next.
func bumpCounter(ctx context.Context, q querier, key string, next int) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO counters (kind, next) VALUES (?, ?)
		ON CONFLICT(kind) DO UPDATE SET next = MAX(next, excluded.next)
	`, key, next)
	if err != nil {
		return fmt.Errorf("write counter %s: %w", key, err)
	}
	return nil
}

// accountWitness reports whether id is a witness account. Unknown
// accounts return chain.ErrNotFound.
func accountWitness(ctx context.Context, q querier, id ir.ObjectID) (bool, error) {
	var witness int
	err := q.QueryRowContext(ctx, `SELECT witness FROM accounts WHERE id = ?`, string(id)).Scan(&witness)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("account %s: %w", id, chain.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("read account %s: %w", id, err)
	}
	return witness == 1, nil
}
