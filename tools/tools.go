//go:build tools

// Package tools lists the development tools used while working on Folio.
// They are run with `go run` or installed with `go install` and are not
// tracked in go.mod.
package tools

// mockgen - regenerates internal/mocks from the core repository ports
//   Run: go generate ./internal/mocks
//   Pinned in the directives: go.uber.org/mock/mockgen@v0.6.0
//
// air - live reload of cmd/folio against a local schema and fixture file
//   Install: go install github.com/air-verse/air@v1.63.0
//   Use with DEV=true and SEED_PATH pointing at a devseed fixture file.
