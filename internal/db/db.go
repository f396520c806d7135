package db

import "database/sql"

// DB wraps the raw connection pool so callers depend on one type.
type DB struct {
	*sql.DB
}
