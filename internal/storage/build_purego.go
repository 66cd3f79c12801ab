//go:build !cgo || purego
// +build !cgo purego

package storage

// Compiled without CGO (or with the purego tag). Uses the pure Go SQLite
// implementation, which cross-compiles everywhere.
//
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver to use.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
