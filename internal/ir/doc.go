// Package ir provides the ledger wire model shared by every bosync package.
//
// This package contains type definitions and small helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key conventions:
//   - Object ids are "space.type.instance" strings; space 0 marks a
//     provisional reference to an operation inside the same proposal
//   - An operation is the 2-tuple (type code, field map) on the wire
//   - Multi-language text is a list of [language, text] pairs
//   - Update operations name their fields with the "new_" prefix
//   - Fingerprints use RFC 8785 canonical JSON with domain separation
package ir
