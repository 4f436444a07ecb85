package adapter

import (
	"fmt"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
)

// ListTablesQuery returns a read query yielding one table_name column.
func ListTablesQuery(k backend.Kind, database string) (string, []any, error) {
	switch k {
	case backend.SQLite:
		return `SELECT name AS table_name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`, nil, nil
	case backend.Postgres:
		return `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_catalog = $1 ORDER BY table_name`,
			[]any{database}, nil
	case backend.MySQL:
		return `SELECT table_name AS table_name FROM information_schema.tables WHERE table_schema = ? ORDER BY table_name`,
			[]any{database}, nil
	case backend.MongoDB:
	}
	return "", nil, fmt.Errorf("%s has no table catalog", k)
}

// DescribeTableQuery returns a read query describing the columns of table
// with column_name, data_type, is_nullable, column_default and column_key.
func DescribeTableQuery(k backend.Kind, database, table string) (string, []any, error) {
	switch k {
	case backend.SQLite:
		return `SELECT name AS column_name, type AS data_type,
			CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END AS is_nullable,
			dflt_value AS column_default,
			CASE WHEN pk > 0 THEN 'PRI' ELSE '' END AS column_key
			FROM pragma_table_info(?) ORDER BY cid`, []any{table}, nil
	case backend.Postgres:
		return `SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
			CASE WHEN k.column_name IS NOT NULL THEN 'PRI' ELSE '' END AS column_key
			FROM information_schema.columns c
			LEFT JOIN (
				SELECT kcu.column_name
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = 'public' AND tc.table_name = $2
			) k ON k.column_name = c.column_name
			WHERE c.table_catalog = $1 AND c.table_schema = 'public' AND c.table_name = $2
			ORDER BY c.ordinal_position`, []any{database, table}, nil
	case backend.MySQL:
		return `SELECT column_name AS column_name, data_type AS data_type, is_nullable AS is_nullable,
			column_default AS column_default, column_key AS column_key
			FROM information_schema.columns
			WHERE table_schema = ? AND table_name = ?
			ORDER BY ordinal_position`, []any{database, table}, nil
	case backend.MongoDB:
	}
	return "", nil, fmt.Errorf("%s has no table catalog", k)
}
