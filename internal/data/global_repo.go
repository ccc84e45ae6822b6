package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/target/folio/internal/data/pgxutil"
	"github.com/target/folio/internal/domain/model"
	apperrors "github.com/target/folio/internal/errors"
)

// GlobalRepo stores one JSONB document per global slug.
type GlobalRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewGlobalRepo creates a new GlobalRepo with real time provider.
func NewGlobalRepo(db *sql.DB) *GlobalRepo {
	return &GlobalRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Get returns the stored global or ErrGlobalNotFound when it was never saved.
func (r *GlobalRepo) Get(ctx context.Context, slug string) (*model.Global, error) {
	var g *model.Global
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT slug, data, created_at, updated_at FROM globals WHERE slug = $1`, slug)
		if err != nil {
			return err
		}
		g, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Global])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGlobalNotFound
		}
		return nil, fmt.Errorf("failed to get global: %w", err)
	}
	return g, nil
}

// Upsert replaces the stored data of a global, creating it on first save.
func (r *GlobalRepo) Upsert(ctx context.Context, slug string, data map[string]any) (*model.Global, error) {
	if data == nil {
		data = map[string]any{}
	}
	now := r.timeProvider.Now().UTC()
	var g *model.Global
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO globals (slug, data, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			ON CONFLICT (slug) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
			RETURNING slug, data, created_at, updated_at`,
			slug, data, now,
		)
		if err != nil {
			return err
		}
		g, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Global])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return g, nil
}
