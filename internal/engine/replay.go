package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/varq/internal/canonical"
	"github.com/roach88/varq/internal/store"
)

// ReplayResult compares a logged query against its re-execution.
type ReplayResult struct {
	// Record is the audit log entry that was replayed.
	Record store.QueryRecord

	// Rows is what the stored SQL returns against the current store.
	Rows []store.VariantRow

	// ResultHash fingerprints Rows.
	ResultHash string

	// Match is true when the re-execution reproduced the logged result
	// hash, meaning neither the data nor the evaluation has drifted.
	Match bool
}

// Replay re-executes one logged query verbatim and reports whether the
// result hash still matches the logged one.
//
// Replay is structural, not a special mode: the stored sql_text and
// params run through the exact execution path a fresh query uses. A
// divergence therefore means the underlying data changed, never a
// re-derivation difference.
func (e *Engine) Replay(ctx context.Context, queryID string) (ReplayResult, error) {
	rec, err := e.store.GetQueryRecord(ctx, queryID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	rows, err := e.store.QueryVariants(ctx, rec.SQL, rec.Params)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: execute: %w", queryID, err)
	}

	hash, err := canonical.ResultHash(rowIDs(rows))
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: result hash: %w", queryID, err)
	}

	result := ReplayResult{
		Record:     rec,
		Rows:       rows,
		ResultHash: hash,
		Match:      hash == rec.ResultHash,
	}

	if result.Match {
		slog.Info("replay verified",
			"query_id", rec.ID,
			"sample", rec.SampleID,
			"matches", len(rows))
	} else {
		slog.Warn("replay diverged",
			"query_id", rec.ID,
			"sample", rec.SampleID,
			"logged_hash", rec.ResultHash,
			"current_hash", hash)
	}

	return result, nil
}

// ReplaySample replays every logged query for a sample in execution
// order. Returns one result per audit record; an empty slice when the
// sample has no logged queries.
func (e *Engine) ReplaySample(ctx context.Context, sampleID string) ([]ReplayResult, error) {
	records, err := e.store.ListQueryRecords(ctx, sampleID)
	if err != nil {
		return nil, fmt.Errorf("replay sample: %w", err)
	}

	results := make([]ReplayResult, 0, len(records))
	for _, rec := range records {
		result, err := e.Replay(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}
