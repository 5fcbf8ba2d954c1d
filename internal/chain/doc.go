// Package chain defines the contract bosync expects from a ledger client.
//
// The reconciliation engine reads confirmed objects, enumerates children of
// a parent, lists proposals pending at an authority account, asks which
// accounts may propose, and broadcasts transactions. Transport, signing and
// timeouts belong to the implementation; package ledger provides a local
// SQLite-backed one.
package chain
