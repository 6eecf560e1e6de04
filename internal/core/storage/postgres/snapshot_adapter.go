package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
)

const (
	querySelectSnapshotRevisionForUpdate = `
		SELECT revision
		FROM rollup_snapshots
		WHERE signature = $1
		FOR UPDATE
	`

	queryUpsertSnapshot = `
		INSERT INTO rollup_snapshots (signature, revision, payload, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (signature)
		DO UPDATE SET
			revision    = EXCLUDED.revision,
			payload     = EXCLUDED.payload,
			computed_at = EXCLUDED.computed_at
	`

	queryLoadSnapshot = `
		SELECT payload
		FROM rollup_snapshots
		WHERE signature = $1
	`

	queryPruneSnapshots = `
		DELETE FROM rollup_snapshots
		WHERE computed_at < $1
	`
)

// SnapshotAdapter implements storage.SnapshotStore using PostgreSQL.
// Snapshot writes are monotonic in revision: a slow writer holding an older
// rollup never replaces a newer one.
type SnapshotAdapter struct {
	db *sql.DB
}

// NewSnapshotAdapter creates a new SnapshotAdapter sharing the given connection.
func NewSnapshotAdapter(db *sql.DB) *SnapshotAdapter {
	return &SnapshotAdapter{db: db}
}

// SaveSnapshot upserts r keyed by its signature.
func (a *SnapshotAdapter) SaveSnapshot(ctx context.Context, r *aggregation.Rollup) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("snapshot save: marshal: %w", err)
	}
	sig := r.Key.Signature()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot save: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Lock the existing row and enforce monotonic revisions.
	var durable int64
	err = tx.QueryRowContext(ctx, querySelectSnapshotRevisionForUpdate, sig).Scan(&durable)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// first snapshot for this key
	case err != nil:
		return fmt.Errorf("snapshot save: read revision for update: %w", err)
	case r.SourceRevision < durable:
		slog.Debug("[SnapshotAdapter] Skipping stale snapshot",
			"signature", sig,
			"source_revision", r.SourceRevision,
			"durable_revision", durable)
		return nil
	}

	if _, err := tx.ExecContext(ctx, queryUpsertSnapshot, sig, r.SourceRevision, payload, r.ComputedAt); err != nil {
		return fmt.Errorf("snapshot save: upsert %s: %w", sig, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("snapshot save: commit: %w", err)
	}
	return nil
}

// LoadSnapshot returns storage.ErrNotFound when nothing is stored for signature.
func (a *SnapshotAdapter) LoadSnapshot(ctx context.Context, signature string) (*aggregation.Rollup, error) {
	var payload []byte
	err := a.db.QueryRowContext(ctx, queryLoadSnapshot, signature).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot load %s: %w", signature, err)
	}

	var r aggregation.Rollup
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("snapshot load %s: unmarshal: %w", signature, err)
	}
	return &r, nil
}

// PruneSnapshots deletes snapshots computed before cutoff and returns how many were removed.
func (a *SnapshotAdapter) PruneSnapshots(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := a.db.ExecContext(ctx, queryPruneSnapshots, cutoff)
	if err != nil {
		return 0, fmt.Errorf("snapshot prune: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("snapshot prune: rows affected: %w", err)
	}
	if n > 0 {
		slog.Info("[SnapshotAdapter] Pruned snapshots", "removed", n, "cutoff", cutoff)
	}
	return n, nil
}
