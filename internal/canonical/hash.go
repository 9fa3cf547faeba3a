package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Domain prefixes for content-addressed identity. The version suffix enables
// future algorithm migration without colliding with old hashes.
const (
	DomainDocument = "varq/document/v1"
	DomainQuery    = "varq/query/v1"
	DomainResult   = "varq/result/v1"
)

// hashWithDomain computes SHA-256 over domain + 0x00 + data. The null
// separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash computes the content hash of a variant document. The hash is
// stable across key order and re-ingest, which is what makes loading
// idempotent: UNIQUE(sample_id, kind, content_hash) in the store.
func DocumentHash(doc map[string]any) (string, error) {
	data, err := Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("document hash: %w", err)
	}
	return hashWithDomain(DomainDocument, data), nil
}

// QueryHash fingerprints a compiled query for the audit log. v is typically
// the canonical map form of a predicate tree.
func QueryHash(v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("query hash: %w", err)
	}
	return hashWithDomain(DomainQuery, data), nil
}

// ResultHash fingerprints a result set by its document IDs. Order does not
// matter: IDs are sorted before hashing, so two executions that return the
// same documents produce the same hash regardless of scan order.
func ResultHash(ids []string) (string, error) {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	data, err := Marshal(sorted)
	if err != nil {
		return "", fmt.Errorf("result hash: %w", err)
	}
	return hashWithDomain(DomainResult, data), nil
}
