//go:build cgo && !purego
// +build cgo,!purego

package storage

// Compiled when CGO is available. Uses the C SQLite driver, which is the
// faster option for large indexes.
//
//   CGO_ENABLED=1 go build ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver to use.
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"
)
