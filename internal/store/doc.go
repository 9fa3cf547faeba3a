// Package store provides SQLite-backed durable storage for samples,
// variant documents, and the query audit log.
//
// The store holds three tables:
//   - Samples: the owning record every query scopes to
//   - Variants: canonical JSON documents, content addressed per sample and kind
//   - Query log: every executed query with its SQL, parameters, and result hash
//
// # Critical Patterns
//
// Content-addressed idempotency
//   - UNIQUE(sample_id, kind, content_hash) constraint on variants
//   - Re-loading the same payload is a no-op, so loads are safe to rerun
//
// Deterministic query results
//   - All listing queries include: ORDER BY id COLLATE BINARY ASC
//   - Compiled queries carry the same clause, so a replay against the same
//     database state returns the same rows in the same order
//
// Verbatim replay
//   - query_log keeps sql_text and params exactly as executed
//   - A replay re-runs the stored SQL, never a re-derivation from settings
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Connections are opened through a driver variant that defines the SQL
// REGEXP function, which compiled regex predicates depend on. Content
// hashes come from internal/canonical: RFC 8785 canonical JSON and
// SHA-256 with domain separation.
package store
