package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/target/folio/internal/data/database"
	"github.com/target/folio/internal/data/pgxutil"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/query"
	apperrors "github.com/target/folio/internal/errors"
)

const documentsTable = "documents"

// DocumentRepo stores collection documents as JSONB rows.
type DocumentRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewDocumentRepo creates a new DocumentRepo with real time provider.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewDocumentRepoWithTimeProvider creates a DocumentRepo with a custom time provider (useful for tests).
func NewDocumentRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *DocumentRepo {
	return &DocumentRepo{DB: db, timeProvider: tp}
}

func documentColumns() []string {
	return []string{"id", "collection", "email", "data", "created_at", "updated_at"}
}

const documentReturning = ` RETURNING id, collection, email, data, created_at, updated_at`

// Find runs a filtered, sorted query over one collection. With Pagination a
// second COUNT query fills the page metadata.
func (r *DocumentRepo) Find(ctx context.Context, p model.FindParams) (*model.FindResult, error) {
	base, err := r.baseOptions(p.Collection, p.Where)
	if err != nil {
		return nil, err
	}
	sortOpt, err := sortOption(p.Sort)
	if err != nil {
		return nil, err
	}

	page := max(p.Page, 1)
	listOpts := append([]database.ListQueryOption{database.WithColumns(documentColumns()...), sortOpt}, base...)
	if p.Limit > 0 {
		listOpts = append(listOpts, database.WithLimit(p.Limit))
		if p.Pagination {
			listOpts = append(listOpts, database.WithOffset((page-1)*p.Limit))
		}
	}
	listQuery, listArgs := database.BuildListQuery(database.NewListQueryOptions(documentsTable, listOpts...))

	var (
		docs  []*model.Document
		total int
	)
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, listQuery, listArgs...)
		if qErr != nil {
			return qErr
		}
		docs, qErr = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Document])
		if qErr != nil || !p.Pagination {
			return qErr
		}
		countQuery, countArgs := database.BuildListQuery(
			database.NewListQueryOptions(documentsTable, append(base, database.WithCountOnly())...),
		)
		return conn.QueryRow(ctx, countQuery, countArgs...).Scan(&total)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find %s documents: %w", p.Collection, apperrors.MapDBError(err))
	}

	if !p.Pagination {
		total = len(docs)
		page = 1
	}
	return &model.FindResult{Docs: docs, PageInfo: model.NewPageInfo(total, p.Limit, page)}, nil
}

// Count returns the number of documents in collection matching where.
func (r *DocumentRepo) Count(ctx context.Context, collection string, where query.Where) (int, error) {
	base, err := r.baseOptions(collection, where)
	if err != nil {
		return 0, err
	}
	q, args := database.BuildListQuery(
		database.NewListQueryOptions(documentsTable, append(base, database.WithCountOnly())...),
	)
	var n int
	if err := r.DB.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s documents: %w", collection, err)
	}
	return n, nil
}

func (r *DocumentRepo) baseOptions(collection string, where query.Where) ([]database.ListQueryOption, error) {
	cond, err := whereCondition(where)
	if err != nil {
		return nil, err
	}
	return []database.ListQueryOption{
		database.WithCondition(database.WhereCond("collection", database.Equal, collection)),
		database.WithCondition(cond),
	}, nil
}

// FindByID retrieves a single document.
func (r *DocumentRepo) FindByID(ctx context.Context, collection, id string) (*model.Document, error) {
	var doc *model.Document
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, documentGetByIDQuery, collection, id)
		if err != nil {
			return err
		}
		doc, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Document])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// FindByIDs retrieves the listed documents in no particular order; missing ids are skipped.
func (r *DocumentRepo) FindByIDs(ctx context.Context, collection string, ids []string) ([]*model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args := database.BuildListQuery(database.NewListQueryOptions(documentsTable,
		database.WithColumns(documentColumns()...),
		database.WithCondition(database.WhereCond("collection", database.Equal, collection)),
		database.WithCondition(database.WhereCond("id", database.Any, ids)),
	))
	var docs []*model.Document
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		docs, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Document])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s documents: %w", collection, err)
	}
	return docs, nil
}

// Create inserts a document. Unique email violations surface as Conflict AppErrors.
func (r *DocumentRepo) Create(ctx context.Context, req model.CreateDocumentRequest) (*model.Document, error) {
	if req.Collection == "" {
		return nil, errors.New("collection is required")
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	data := req.Data
	if data == nil {
		data = map[string]any{}
	}
	now := r.timeProvider.Now().UTC()

	var doc *model.Document
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO documents (id, collection, email, data, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)`+documentReturning,
			id, req.Collection, req.Email, data, now,
		)
		if err != nil {
			return err
		}
		doc, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Document])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return doc, nil
}

// Update replaces the stored data and email of a document.
func (r *DocumentRepo) Update(ctx context.Context, req model.UpdateDocumentRequest) (*model.Document, error) {
	now := r.timeProvider.Now().UTC()
	var doc *model.Document
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE documents SET data = $1, email = $2, updated_at = $3
			WHERE collection = $4 AND id = $5`+documentReturning,
			req.Data, req.Email, now, req.Collection, req.ID,
		)
		if err != nil {
			return err
		}
		doc, err = pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Document])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, apperrors.MapDBError(err)
	}
	return doc, nil
}

// Delete deletes a document and reports whether a row was removed.
func (r *DocumentRepo) Delete(ctx context.Context, collection, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	return n > 0, nil
}

const documentGetByIDQuery = `
	SELECT id, collection, email, data, created_at, updated_at
	FROM documents
	WHERE collection = $1 AND id = $2`
