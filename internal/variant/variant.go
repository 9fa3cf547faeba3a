// Package variant defines the document model the query subsystem runs
// against: SNV, CNV, and fusion records plus the samples that own them.
//
// A document's payload is schemaless - callers load whatever the
// upstream pipelines emitted - but three things are pinned down at
// construction time: the kind, a non-empty owning sample, and a stable ID.
// The payload always carries SAMPLE_ID and ID mirrors of the pinned
// values, because predicate trees address them as document fields.
package variant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/varq/internal/canonical"
)

// Kind identifies a variant document family.
type Kind string

const (
	KindSNV    Kind = "snv"
	KindCNV    Kind = "cnv"
	KindFusion Kind = "fusion"
)

// ParseKind normalizes a kind string. Unknown kinds are an error - unlike
// assay groups there is no fail-open here, a document of unknown shape
// cannot be stored or queried.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSNV:
		return KindSNV, nil
	case KindCNV:
		return KindCNV, nil
	case KindFusion:
		return KindFusion, nil
	default:
		return "", fmt.Errorf("unknown variant kind %q", s)
	}
}

// Kinds returns all document kinds in fixed order.
func Kinds() []Kind {
	return []Kind{KindSNV, KindCNV, KindFusion}
}

// Document is one variant record.
type Document struct {
	ID       string
	SampleID string
	Kind     Kind

	// Body is the full payload, including the ID and SAMPLE_ID mirrors.
	// Treated as immutable after New.
	Body map[string]any
}

// NewID returns a fresh time-sortable document ID.
func NewID() string {
	return "var-" + uuid.Must(uuid.NewV7()).String()
}

// New builds a Document from a raw payload.
//
// The payload must carry a non-empty SAMPLE_ID - a document that cannot
// be scoped to a sample is unqueryable and is rejected at the door. An ID
// is taken from the payload when present, otherwise generated. New copies
// the top level of body before normalizing, so the caller's map is not
// mutated.
func New(kind Kind, body map[string]any) (Document, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return Document{}, err
	}

	sampleID, _ := body["SAMPLE_ID"].(string)
	if strings.TrimSpace(sampleID) == "" {
		return Document{}, fmt.Errorf("%s document without SAMPLE_ID", kind)
	}

	normalized := make(map[string]any, len(body)+1)
	for k, v := range body {
		normalized[k] = v
	}

	id, _ := normalized["ID"].(string)
	if strings.TrimSpace(id) == "" {
		id = NewID()
		normalized["ID"] = id
	}

	return Document{
		ID:       id,
		SampleID: sampleID,
		Kind:     kind,
		Body:     normalized,
	}, nil
}

// CanonicalJSON renders the payload as RFC 8785 canonical JSON. This is
// the stored representation and the input to Hash.
func (d Document) CanonicalJSON() ([]byte, error) {
	data, err := canonical.Marshal(d.Body)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", d.ID, err)
	}
	return data, nil
}

// Hash returns the document content hash. The ID mirror is excluded so
// the hash identifies the payload: two loads of the same file hash
// identically even when the loader assigned fresh IDs, whatever the key
// order of the source.
func (d Document) Hash() (string, error) {
	content := make(map[string]any, len(d.Body))
	for k, v := range d.Body {
		if k == "ID" {
			continue
		}
		content[k] = v
	}
	h, err := canonical.DocumentHash(content)
	if err != nil {
		return "", fmt.Errorf("document %s: %w", d.ID, err)
	}
	return h, nil
}

// DecodeBody parses a stored payload back into the generic map form the
// matcher evaluates. Numbers decode as json.Number so integer fields
// survive the round trip undamaged.
func DecodeBody(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode document body: %w", err)
	}
	return body, nil
}

// Sample is the owning record every query scopes to. Assay names the
// panel the sample was sequenced with; panel configuration maps it to an
// assay group.
type Sample struct {
	ID    string
	Assay string
	Meta  map[string]any
}

// NewSample validates and builds a Sample.
func NewSample(id, assayName string, meta map[string]any) (Sample, error) {
	if strings.TrimSpace(id) == "" {
		return Sample{}, fmt.Errorf("sample without id")
	}
	if strings.TrimSpace(assayName) == "" {
		return Sample{}, fmt.Errorf("sample %s without assay", id)
	}
	return Sample{ID: id, Assay: assayName, Meta: meta}, nil
}
