package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for record fingerprints.
// Version suffix enables future algorithm migration.
const DomainRecord = "recordgraph/record/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordETag fingerprints a record's stored state. Two records with equal
// type names and equal canonical property maps share an ETag.
func RecordETag(typeName string, rec IRObject) (string, error) {
	obj := IRObject{
		"type":   IRString(typeName),
		"record": rec,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RecordETag: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainRecord, canonical), nil
}

// MustRecordETag is like RecordETag but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRecordETag(typeName string, rec IRObject) string {
	tag, err := RecordETag(typeName, rec)
	if err != nil {
		panic(err)
	}
	return tag
}
