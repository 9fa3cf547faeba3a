package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/varq/internal/variant"
)

// Lookup failures callers branch on.
var (
	// ErrSampleNotFound reports a sample ID with no registered sample.
	ErrSampleNotFound = errors.New("E401: sample not found")

	// ErrQueryRecordNotFound reports an unknown query log ID.
	ErrQueryRecordNotFound = errors.New("E402: query record not found")
)

// GetSample returns the sample with the given ID.
// Returns ErrSampleNotFound if no such sample is registered.
func (s *Store) GetSample(ctx context.Context, id string) (variant.Sample, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, assay, meta
		FROM samples
		WHERE id = ?
	`, id)

	var smp variant.Sample
	var metaJSON string
	if err := row.Scan(&smp.ID, &smp.Assay, &metaJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return variant.Sample{}, fmt.Errorf("get sample %q: %w", id, ErrSampleNotFound)
		}
		return variant.Sample{}, fmt.Errorf("get sample: %w", err)
	}

	meta, err := unmarshalMeta(metaJSON)
	if err != nil {
		return variant.Sample{}, fmt.Errorf("get sample %q: %w", id, err)
	}
	smp.Meta = meta

	return smp, nil
}

// ListSamples returns all registered samples ordered by ID.
//
// Returns an empty slice (not nil) if no samples are registered.
func (s *Store) ListSamples(ctx context.Context) ([]variant.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assay, meta
		FROM samples
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []variant.Sample
	for rows.Next() {
		var smp variant.Sample
		var metaJSON string
		if err := rows.Scan(&smp.ID, &smp.Assay, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		meta, err := unmarshalMeta(metaJSON)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", smp.ID, err)
		}
		smp.Meta = meta
		samples = append(samples, smp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}

	// Return empty slice instead of nil
	if samples == nil {
		samples = []variant.Sample{}
	}

	return samples, nil
}

// ListVariants returns every document of one kind for one sample, ordered
// deterministically by ID. This is the corpus the in-memory matcher
// evaluates when cross-checking a compiled query.
//
// Returns an empty slice (not nil) if the sample has no documents.
func (s *Store) ListVariants(ctx context.Context, sampleID string, kind variant.Kind) ([]variant.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sample_id, kind, doc
		FROM variants
		WHERE sample_id = ? AND kind = ?
		ORDER BY id COLLATE BINARY ASC
	`, sampleID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	var docs []variant.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}

	// Return empty slice instead of nil
	if docs == nil {
		docs = []variant.Document{}
	}

	return docs, nil
}

// scanDocument reads one variants row into a Document, decoding the
// stored canonical JSON back into the generic body form.
func scanDocument(rows *sql.Rows) (variant.Document, error) {
	var doc variant.Document
	var kindStr, docJSON string
	if err := rows.Scan(&doc.ID, &doc.SampleID, &kindStr, &docJSON); err != nil {
		return variant.Document{}, fmt.Errorf("scan variant: %w", err)
	}

	body, err := variant.DecodeBody([]byte(docJSON))
	if err != nil {
		return variant.Document{}, fmt.Errorf("variant %s: %w", doc.ID, err)
	}

	doc.Kind = variant.Kind(kindStr)
	doc.Body = body
	return doc, nil
}

// VariantRow is one row returned by a compiled query: the document ID and
// the stored canonical JSON payload.
type VariantRow struct {
	ID  string
	Doc []byte
}

// QueryVariants executes a compiled SELECT with its bind parameters and
// returns the matching rows in the order the SQL dictates. The SQL is
// executed verbatim; this is the execution path for both fresh queries
// and replays of logged ones.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryVariants(ctx context.Context, sqlText string, params []any) ([]VariantRow, error) {
	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	var result []VariantRow
	for rows.Next() {
		var row VariantRow
		var docJSON string
		if err := rows.Scan(&row.ID, &docJSON); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		row.Doc = []byte(docJSON)
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	// Return empty slice instead of nil
	if result == nil {
		result = []VariantRow{}
	}

	return result, nil
}

// GetQueryRecord returns one audit log entry by ID.
// Returns ErrQueryRecordNotFound if no such record exists.
func (s *Store) GetQueryRecord(ctx context.Context, id string) (QueryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sample_id, kind, query_hash, sql_text, params, result_hash, result_count, executed_at
		FROM query_log
		WHERE id = ?
	`, id)

	rec, err := scanQueryRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QueryRecord{}, fmt.Errorf("get query record %q: %w", id, ErrQueryRecordNotFound)
		}
		return QueryRecord{}, fmt.Errorf("get query record: %w", err)
	}

	return rec, nil
}

// ListQueryRecords returns the audit log for one sample in execution
// order.
//
// Returns an empty slice (not nil) if the sample has no logged queries.
func (s *Store) ListQueryRecords(ctx context.Context, sampleID string) ([]QueryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sample_id, kind, query_hash, sql_text, params, result_hash, result_count, executed_at
		FROM query_log
		WHERE sample_id = ?
		ORDER BY executed_at ASC, id COLLATE BINARY ASC
	`, sampleID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []QueryRecord
	for rows.Next() {
		rec, err := scanQueryRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query records: %w", err)
	}

	// Return empty slice instead of nil
	if records == nil {
		records = []QueryRecord{}
	}

	return records, nil
}

// LatestQueryRecord returns the most recently executed audit log entry
// across all samples, ties broken by ID.
// Returns ErrQueryRecordNotFound when the log is empty.
func (s *Store) LatestQueryRecord(ctx context.Context) (QueryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sample_id, kind, query_hash, sql_text, params, result_hash, result_count, executed_at
		FROM query_log
		ORDER BY executed_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`)

	rec, err := scanQueryRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return QueryRecord{}, fmt.Errorf("latest query record: %w", ErrQueryRecordNotFound)
		}
		return QueryRecord{}, fmt.Errorf("latest query record: %w", err)
	}

	return rec, nil
}

// scanQueryRecord reads one query_log row. Takes the Scan func so it
// works for both QueryRow and Rows.
func scanQueryRecord(scan func(dest ...any) error) (QueryRecord, error) {
	var rec QueryRecord
	var paramsJSON string
	err := scan(
		&rec.ID,
		&rec.SampleID,
		&rec.Kind,
		&rec.QueryHash,
		&rec.SQL,
		&paramsJSON,
		&rec.ResultHash,
		&rec.ResultCount,
		&rec.ExecutedAt,
	)
	if err != nil {
		return QueryRecord{}, err
	}

	params, err := unmarshalParams(paramsJSON)
	if err != nil {
		return QueryRecord{}, fmt.Errorf("query record %s: %w", rec.ID, err)
	}
	rec.Params = params

	return rec, nil
}
