// Package backend describes the database backends the gateway can reach and
// how a set of connection parameters maps to a connection identity.
package backend

import (
	"fmt"
	"strings"
)

// Kind identifies one of the supported backends.
type Kind string

const (
	SQLite   Kind = "sqlite"
	Postgres Kind = "postgres"
	MongoDB  Kind = "mongodb"
	MySQL    Kind = "mysql"
)

// Kinds lists every backend in a stable order.
var Kinds = []Kind{SQLite, Postgres, MongoDB, MySQL}

// ParseKind accepts the canonical names plus the aliases used by tool callers
// ("postgresql", "mongo", "sqlite3").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mongodb", "mongo":
		return MongoDB, nil
	case "mysql":
		return MySQL, nil
	default:
		return "", fmt.Errorf("unknown database type %q (want sqlite, postgresql, mysql or mongodb)", s)
	}
}

// IsSQL reports whether the backend speaks SQL.
func (k Kind) IsSQL() bool {
	switch k {
	case SQLite, Postgres, MySQL:
		return true
	case MongoDB:
		return false
	}
	return false
}

// Networked reports whether the backend is reached over the network.
func (k Kind) Networked() bool {
	return k != SQLite
}

// DisplayName is the human name used in tool output.
func (k Kind) DisplayName() string {
	switch k {
	case SQLite:
		return "SQLite"
	case Postgres:
		return "PostgreSQL"
	case MongoDB:
		return "MongoDB"
	case MySQL:
		return "MySQL"
	}
	return string(k)
}

func (k Kind) String() string { return string(k) }
