// Package mocks provides gomock implementations of the Folio repository ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	t.Cleanup(ctrl.Finish)
//	docs := mocks.NewMockDocumentRepository(ctrl)
//	docs.EXPECT().FindByID(gomock.Any(), "posts", "p1").Return(doc, nil)
package mocks

// DocumentRepository: Find, FindByID, FindByIDs, Count, Create, Update, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=document_repository_mock.go github.com/target/folio/internal/core DocumentRepository

// GlobalRepository: Get, Upsert
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=global_repository_mock.go github.com/target/folio/internal/core GlobalRepository

// VersionRepository: Create, List, Get, Prune, DeleteForParent
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=version_repository_mock.go github.com/target/folio/internal/core VersionRepository

// CacheRepository: Set, Get, Delete, SetIfNotExists, Health
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/folio/internal/core CacheRepository
