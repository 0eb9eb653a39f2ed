package drivers

import (
	// pgx registers itself as "pgx" through its stdlib adapter.
	_ "github.com/jackc/pgx/v5/stdlib"
)
