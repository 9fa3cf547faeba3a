package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/varq/internal/variant"
)

// createTestStore creates a fresh store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSample registers a sample, failing the test on error.
func createTestSample(t *testing.T, s *Store, id, assay string) variant.Sample {
	t.Helper()
	smp, err := variant.NewSample(id, assay, nil)
	if err != nil {
		t.Fatalf("NewSample() failed: %v", err)
	}
	if err := s.WriteSample(context.Background(), smp); err != nil {
		t.Fatalf("WriteSample() failed: %v", err)
	}
	return smp
}

// createTestDocument builds a document with an explicit ID so ordering
// assertions are stable.
func createTestDocument(t *testing.T, sampleID string, kind variant.Kind, id string, fields map[string]any) variant.Document {
	t.Helper()
	body := map[string]any{
		"ID":        id,
		"SAMPLE_ID": sampleID,
	}
	for k, v := range fields {
		body[k] = v
	}
	doc, err := variant.New(kind, body)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return doc
}

// countRows returns the row count of a table.
func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return n
}
