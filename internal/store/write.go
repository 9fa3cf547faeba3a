package store

import (
	"context"
	"fmt"

	"github.com/roach88/varq/internal/variant"
)

// WriteSample upserts a sample record. Re-registering a sample updates
// its assay and metadata in place: the panel a sample was sequenced with
// is a property of the sample, not of any one load.
func (s *Store) WriteSample(ctx context.Context, smp variant.Sample) error {
	metaJSON, err := marshalMeta(smp.Meta)
	if err != nil {
		return fmt.Errorf("write sample: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO samples (id, assay, meta)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			assay = excluded.assay,
			meta = excluded.meta
	`,
		smp.ID,
		smp.Assay,
		metaJSON,
	)
	if err != nil {
		return fmt.Errorf("write sample: %w", err)
	}

	return nil
}

// WriteVariant inserts a single variant document.
// Returns whether a new record was inserted.
func (s *Store) WriteVariant(ctx context.Context, doc variant.Document) (bool, error) {
	n, err := s.WriteVariants(ctx, []variant.Document{doc})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// WriteVariants inserts variant documents in one transaction and returns
// how many were actually inserted.
//
// Documents are content addressed: re-loading the same payload for the
// same sample and kind is silently ignored, so a load is safe to rerun
// after a partial failure. Every document's sample must already be
// registered; an unknown sample fails the whole batch with
// ErrSampleNotFound before anything is written.
func (s *Store) WriteVariants(ctx context.Context, docs []variant.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write variants: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if seen[doc.SampleID] {
			continue
		}
		seen[doc.SampleID] = true

		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM samples WHERE id = ?`, doc.SampleID,
		).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("write variants: check sample: %w", err)
		}
		if n == 0 {
			return 0, fmt.Errorf("write variants: sample %q: %w", doc.SampleID, ErrSampleNotFound)
		}
	}

	inserted := 0
	for _, doc := range docs {
		docJSON, err := doc.CanonicalJSON()
		if err != nil {
			return 0, fmt.Errorf("write variants: %w", err)
		}
		hash, err := doc.Hash()
		if err != nil {
			return 0, fmt.Errorf("write variants: %w", err)
		}

		// Bare ON CONFLICT DO NOTHING handles both:
		// 1. Duplicate document ID (same document written twice)
		// 2. Duplicate (sample_id, kind, content_hash) (same payload re-loaded)
		// Both are silently ignored for idempotency.
		result, err := tx.ExecContext(ctx, `
			INSERT INTO variants (id, sample_id, kind, content_hash, doc)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			doc.ID,
			doc.SampleID,
			string(doc.Kind),
			hash,
			string(docJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("write variants: insert %s: %w", doc.ID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("write variants: rows affected: %w", err)
		}
		inserted += int(rowsAffected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write variants: commit: %w", err)
	}

	return inserted, nil
}

// WriteQueryRecord appends one executed query to the audit log.
// Uses ON CONFLICT DO NOTHING for idempotency - duplicate writes are
// silently ignored.
func (s *Store) WriteQueryRecord(ctx context.Context, rec QueryRecord) error {
	paramsJSON, err := marshalParams(rec.Params)
	if err != nil {
		return fmt.Errorf("write query record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_log
		(id, sample_id, kind, query_hash, sql_text, params, result_hash, result_count, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.ID,
		rec.SampleID,
		rec.Kind,
		rec.QueryHash,
		rec.SQL,
		paramsJSON,
		rec.ResultHash,
		rec.ResultCount,
		rec.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("write query record: %w", err)
	}

	return nil
}
