// Package ledger provides a SQLite-backed development ledger.
//
// The ledger implements chain.Client so that bosync can run end to end
// without a network: catalog objects, accounts and proposals live in one
// database file, and proposals execute once enough witnesses approve them.
//
// # Rules
//
//   - Catalog operations are only accepted inside a proposal_create.
//   - A proposal_create whose operation duplicates an operation of another
//     pending proposal is rejected with chain.ErrAlreadyExists. Duplicates
//     are detected by operation fingerprint (RFC 8785 canonical JSON,
//     SHA-256 with domain separation, see internal/ir/hash.go).
//   - A proposal executes when approvals from witness accounts reach the
//     quorum. Provisional "0.0.N" references inside the proposal resolve
//     to the id created by operation N of the same proposal.
//   - Every broadcast is applied in one SQL transaction: it fully applies
//     or not at all.
//
// # Ordering
//
// All listings use ORDER BY instance or seq, never timestamps. Ids are
// allocated per object kind from the counters table.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package ledger
