package core

import (
	"context"
	"time"

	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/query"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// DocumentRepository defines the interface for collection document storage.
type DocumentRepository interface {
	Find(ctx context.Context, p model.FindParams) (*model.FindResult, error)
	FindByID(ctx context.Context, collection, id string) (*model.Document, error)
	FindByIDs(ctx context.Context, collection string, ids []string) ([]*model.Document, error)
	Count(ctx context.Context, collection string, where query.Where) (int, error)
	Create(ctx context.Context, req model.CreateDocumentRequest) (*model.Document, error)
	Update(ctx context.Context, req model.UpdateDocumentRequest) (*model.Document, error)
	Delete(ctx context.Context, collection, id string) (bool, error)
}

// GlobalRepository defines the interface for global document storage.
type GlobalRepository interface {
	Get(ctx context.Context, slug string) (*model.Global, error)
	Upsert(ctx context.Context, slug string, data map[string]any) (*model.Global, error)
}

// VersionRepository defines the interface for version history storage.
type VersionRepository interface {
	Create(ctx context.Context, v *model.Version) (*model.Version, error)
	List(ctx context.Context, p model.VersionListParams) (*model.VersionPage, error)
	Get(ctx context.Context, entity model.VersionEntity, slug, id string) (*model.Version, error)
	Prune(ctx context.Context, p model.PruneVersionsParams) (int64, error)
	DeleteForParent(ctx context.Context, slug, parentID string) error
}

// DeleteStaleVersionsParams bounds one version-history sweep.
type DeleteStaleVersionsParams struct {
	MaxAge    time.Duration
	BatchSize int
}

// MaintenanceRepository clears expired auth state and old history. Each
// call touches at most one batch and reports the rows it changed.
type MaintenanceRepository interface {
	ClearExpiredResetTokens(ctx context.Context, batchSize int) (int64, error)
	ReleaseExpiredLocks(ctx context.Context, batchSize int) (int64, error)
	DeleteStaleVersions(ctx context.Context, p DeleteStaleVersionsParams) (int64, error)
}
