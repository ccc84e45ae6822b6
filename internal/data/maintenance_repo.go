package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/target/folio/internal/core"
	"github.com/target/folio/internal/data/pgxutil"
	"github.com/target/folio/internal/domain/schema"
)

// Advisory lock namespace for reaper sweeps, taken with the two-argument
// pg_try_advisory_xact_lock(major, minor).
const (
	advisoryLockReaperMajor       = 1000
	advisoryLockReaperResetTokens = 1
	advisoryLockReaperLocks       = 2
	advisoryLockReaperVersions    = 3
)

// MaintenanceRepo runs the batched cleanup statements behind the reaper.
// Timestamps in document data are RFC3339 UTC strings, so expiry checks
// compare them as text against a cutoff in the same format.
type MaintenanceRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ core.MaintenanceRepository = (*MaintenanceRepo)(nil)

// NewMaintenanceRepo creates a MaintenanceRepo using the wall clock.
func NewMaintenanceRepo(db *sql.DB) *MaintenanceRepo {
	return &MaintenanceRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewMaintenanceRepoWithTimeProvider creates a MaintenanceRepo with a custom clock.
func NewMaintenanceRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *MaintenanceRepo {
	return &MaintenanceRepo{DB: db, timeProvider: tp}
}

// ClearExpiredResetTokens strips forgot-password tokens whose expiry has passed.
func (r *MaintenanceRepo) ClearExpiredResetTokens(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	now := authStamp(r.timeProvider.Now())
	return r.sweep(ctx, advisoryLockReaperResetTokens, `
		UPDATE documents
		SET data = data - $1::text - $2::text
		WHERE id IN (
			SELECT id FROM documents
			WHERE data ? $1::text
			  AND jsonb_typeof(data->$2::text) = 'string'
			  AND data->>$2::text < $3
			ORDER BY id
			LIMIT $4
		)`, schema.KeyResetPasswordToken, schema.KeyResetPasswordExpiration, now, batchSize)
}

// ReleaseExpiredLocks clears login lockouts that have run out and resets
// the attempt counter.
func (r *MaintenanceRepo) ReleaseExpiredLocks(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	now := authStamp(r.timeProvider.Now())
	return r.sweep(ctx, advisoryLockReaperLocks, `
		UPDATE documents
		SET data = (data - $1::text) || jsonb_build_object($2::text, 0)
		WHERE id IN (
			SELECT id FROM documents
			WHERE jsonb_typeof(data->$1::text) = 'string'
			  AND data->>$1::text < $3
			ORDER BY id
			LIMIT $4
		)`, schema.KeyLockUntil, schema.KeyLoginAttempts, now, batchSize)
}

// DeleteStaleVersions removes versions older than MaxAge. The newest
// version of each document or global is always kept.
func (r *MaintenanceRepo) DeleteStaleVersions(ctx context.Context, p core.DeleteStaleVersionsParams) (int64, error) {
	if p.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	if p.MaxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}
	cutoff := r.timeProvider.Now().Add(-p.MaxAge).UTC()
	return r.sweep(ctx, advisoryLockReaperVersions, `
		DELETE FROM versions
		WHERE id IN (
			SELECT v.id FROM versions v
			WHERE v.created_at < $1
			  AND EXISTS (
				SELECT 1 FROM versions n
				WHERE n.entity_type = v.entity_type
				  AND n.slug = v.slug
				  AND n.parent_id = v.parent_id
				  AND n.created_at > v.created_at
			  )
			ORDER BY v.created_at
			LIMIT $2
		)`, cutoff, p.BatchSize)
}

// sweep runs stmt inside a transaction guarded by an advisory lock so that
// concurrent instances skip a batch instead of fighting over it.
func (r *MaintenanceRepo) sweep(ctx context.Context, minor int, stmt string, args ...any) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, minor).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}
			res, err := tx.ExecContext(ctx, stmt, args...)
			if err != nil {
				return err
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}
