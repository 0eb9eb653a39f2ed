//go:build cgo && duckdb && (linux || darwin) && (amd64 || arm64)

// The DuckDB driver talks to the C/C++ engine through CGO, so it stays
// behind a build tag and the default builds remain CGO-free.
// Enable with: CGO_ENABLED=1 go build -tags duckdb
package drivers

import (
	_ "github.com/marcboeker/go-duckdb"
)
