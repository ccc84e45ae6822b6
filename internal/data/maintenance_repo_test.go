package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/folio/internal/core"
	"github.com/target/folio/internal/domain/model"
	"github.com/target/folio/internal/domain/schema"
	"github.com/target/folio/internal/testutil"
)

func TestMaintenanceRepo_ClearExpiredResetTokens(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		docs := NewDocumentRepo(db)
		repo := NewMaintenanceRepoWithTimeProvider(db, NewFixedTimeProvider(now))

		expired, err := docs.Create(ctx, model.CreateDocumentRequest{
			Collection: "users",
			Email:      testutil.Ptr("old@example.com"),
			Data: map[string]any{
				"email":                           "old@example.com",
				schema.KeyResetPasswordToken:      "hashed",
				schema.KeyResetPasswordExpiration: now.Add(-time.Minute).Format(time.RFC3339),
			},
		})
		require.NoError(t, err)
		live, err := docs.Create(ctx, model.CreateDocumentRequest{
			Collection: "users",
			Email:      testutil.Ptr("new@example.com"),
			Data: map[string]any{
				"email":                           "new@example.com",
				schema.KeyResetPasswordToken:      "hashed",
				schema.KeyResetPasswordExpiration: now.Add(time.Hour).Format(time.RFC3339),
			},
		})
		require.NoError(t, err)

		count, err := repo.ClearExpiredResetTokens(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		got, err := docs.FindByID(ctx, "users", expired.ID)
		require.NoError(t, err)
		assert.NotContains(t, got.Data, schema.KeyResetPasswordToken)
		assert.NotContains(t, got.Data, schema.KeyResetPasswordExpiration)
		assert.Equal(t, "old@example.com", got.Data["email"])
		assert.Equal(t, expired.UpdatedAt, got.UpdatedAt, "sweeps leave updated_at alone")

		got, err = docs.FindByID(ctx, "users", live.ID)
		require.NoError(t, err)
		assert.Equal(t, "hashed", got.Data[schema.KeyResetPasswordToken])

		_, err = repo.ClearExpiredResetTokens(ctx, 0)
		require.Error(t, err)
	})
}

func TestMaintenanceRepo_ReleaseExpiredLocks(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		docs := NewDocumentRepo(db)
		repo := NewMaintenanceRepoWithTimeProvider(db, NewFixedTimeProvider(now))

		locked, err := docs.Create(ctx, model.CreateDocumentRequest{
			Collection: "users",
			Email:      testutil.Ptr("locked@example.com"),
			Data: map[string]any{
				schema.KeyLoginAttempts: 5,
				schema.KeyLockUntil:     now.Add(-time.Second).Format(time.RFC3339),
			},
		})
		require.NoError(t, err)
		stillLocked, err := docs.Create(ctx, model.CreateDocumentRequest{
			Collection: "users",
			Email:      testutil.Ptr("still@example.com"),
			Data: map[string]any{
				schema.KeyLoginAttempts: 5,
				schema.KeyLockUntil:     now.Add(10 * time.Minute).Format(time.RFC3339),
			},
		})
		require.NoError(t, err)

		count, err := repo.ReleaseExpiredLocks(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		got, err := docs.FindByID(ctx, "users", locked.ID)
		require.NoError(t, err)
		assert.NotContains(t, got.Data, schema.KeyLockUntil)
		assert.InDelta(t, 0, got.Data[schema.KeyLoginAttempts], 0)

		got, err = docs.FindByID(ctx, "users", stillLocked.ID)
		require.NoError(t, err)
		assert.Contains(t, got.Data, schema.KeyLockUntil)
	})
}

func TestMaintenanceRepo_DeleteStaleVersions(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		versions := NewVersionRepo(db)
		repo := NewMaintenanceRepoWithTimeProvider(db, NewFixedTimeProvider(now))

		add := func(parent string, age time.Duration) {
			_, err := versions.Create(ctx, &model.Version{
				EntityType: model.VersionEntityCollection,
				Slug:       "posts",
				ParentID:   parent,
				Data:       map[string]any{"title": parent},
				CreatedAt:  now.Add(-age),
			})
			require.NoError(t, err)
		}
		// p1 has two old versions and one recent; p2 has a single old one.
		add("p1", 100*24*time.Hour)
		add("p1", 95*24*time.Hour)
		add("p1", time.Hour)
		add("p2", 200*24*time.Hour)

		count, err := repo.DeleteStaleVersions(ctx, core.DeleteStaleVersionsParams{MaxAge: 90 * 24 * time.Hour, BatchSize: 100})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		page, err := versions.List(ctx, model.VersionListParams{EntityType: model.VersionEntityCollection, Slug: "posts", ParentID: "p1"})
		require.NoError(t, err)
		assert.Len(t, page.Docs, 1)

		page, err = versions.List(ctx, model.VersionListParams{EntityType: model.VersionEntityCollection, Slug: "posts", ParentID: "p2"})
		require.NoError(t, err)
		assert.Len(t, page.Docs, 1, "the newest version always survives")
	})
}
