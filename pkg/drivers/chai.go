package drivers

import (
	"database/sql"
	"database/sql/driver"

	sqlite "modernc.org/sqlite"
)

// init wires up the "chai" driver name so callers can request it via
// database/sql.  Chai stores data in SQLite-compatible files, so the
// modernc backend serves both names and the build stays CGO-free.
func init() {
	sql.Register("chai", newChaiDriver())
}

func newChaiDriver() driver.Driver {
	return &sqlite.Driver{}
}
