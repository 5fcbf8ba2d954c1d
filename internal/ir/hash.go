package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainOperation   = "bosync/operation/v1"
	DomainTransaction = "bosync/transaction/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MarshalCanonical produces RFC 8785 canonical JSON for v.
func MarshalCanonical(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(data)
}

// Fingerprint returns a content hash of op that is stable across key
// order and number formatting. Two operations with the same fingerprint
// make the same change to the ledger.
func Fingerprint(op Operation) (string, error) {
	canonical, err := MarshalCanonical(op)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", op.Type, err)
	}
	return hashWithDomain(DomainOperation, canonical), nil
}

// TransactionID returns a content hash of tx salted with nonce.
func TransactionID(tx Transaction, nonce string) (string, error) {
	canonical, err := MarshalCanonical(tx)
	if err != nil {
		return "", fmt.Errorf("transaction id: %w", err)
	}
	return hashWithDomain(DomainTransaction, append(canonical, nonce...)), nil
}
