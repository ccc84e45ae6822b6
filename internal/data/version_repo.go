package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/target/folio/internal/data/pgxutil"
	"github.com/target/folio/internal/domain/model"
)

// VersionRepo stores snapshots of documents and globals.
type VersionRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewVersionRepo creates a new VersionRepo with real time provider.
func NewVersionRepo(db *sql.DB) *VersionRepo {
	return &VersionRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// Create stores a snapshot. ID and CreatedAt are assigned when empty.
func (r *VersionRepo) Create(ctx context.Context, v *model.Version) (*model.Version, error) {
	if v == nil {
		return nil, errors.New("version is required")
	}
	id := v.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.timeProvider.Now().UTC()
	}

	var out *model.Version
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO versions (id, entity_type, slug, parent_id, data, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+versionColumns,
			id, v.EntityType, v.Slug, v.ParentID, v.Data, createdAt,
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Version])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}
	return out, nil
}

// List returns the newest-first history of one document or global.
func (r *VersionRepo) List(ctx context.Context, p model.VersionListParams) (*model.VersionPage, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = model.DefaultPageLimit
	}
	page := max(p.Page, 1)

	var (
		versions []*model.Version
		total    int
	)
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		if err := conn.QueryRow(ctx, versionCountQuery, p.EntityType, p.Slug, p.ParentID).Scan(&total); err != nil {
			return err
		}
		rows, err := conn.Query(ctx, versionListQuery, p.EntityType, p.Slug, p.ParentID, limit, (page-1)*limit)
		if err != nil {
			return err
		}
		versions, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Version])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return &model.VersionPage{Docs: versions, PageInfo: model.NewPageInfo(total, limit, page)}, nil
}

// Get returns a single version scoped to its entity.
func (r *VersionRepo) Get(ctx context.Context, entity model.VersionEntity, slug, id string) (*model.Version, error) {
	var v *model.Version
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+versionColumns+` FROM versions WHERE entity_type = $1 AND slug = $2 AND id = $3`,
			entity, slug, id,
		)
		if err != nil {
			return err
		}
		v, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Version])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return v, nil
}

// Prune deletes all but the newest Keep versions. Keep <= 0 deletes nothing.
func (r *VersionRepo) Prune(ctx context.Context, p model.PruneVersionsParams) (int64, error) {
	if p.Keep <= 0 {
		return 0, nil
	}
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM versions WHERE id IN (
			SELECT id FROM versions
			WHERE entity_type = $1 AND slug = $2 AND parent_id = $3
			ORDER BY created_at DESC
			OFFSET $4
		)`, p.EntityType, p.Slug, p.ParentID, p.Keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune versions: %w", err)
	}
	return res.RowsAffected()
}

// DeleteForParent removes the history of a deleted document.
func (r *VersionRepo) DeleteForParent(ctx context.Context, slug, parentID string) error {
	_, err := r.DB.ExecContext(ctx,
		`DELETE FROM versions WHERE entity_type = $1 AND slug = $2 AND parent_id = $3`,
		model.VersionEntityCollection, slug, parentID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete versions: %w", err)
	}
	return nil
}

const (
	versionColumns = `id, entity_type, slug, parent_id, data, created_at`

	versionCountQuery = `
		SELECT COUNT(*) FROM versions
		WHERE entity_type = $1 AND slug = $2 AND parent_id = $3`

	versionListQuery = `
		SELECT ` + versionColumns + ` FROM versions
		WHERE entity_type = $1 AND slug = $2 AND parent_id = $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`
)
