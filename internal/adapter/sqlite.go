package adapter

import (
	"context"
	"database/sql"
	"net/url"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/conn"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
)

// SQLite runs against a database file through modernc.org/sqlite.
type SQLite struct {
	exec sqlExecutor
}

func NewSQLite(opts Options) *SQLite {
	return &SQLite{exec: sqlExecutor{kind: backend.SQLite, maxRows: opts.MaxRows, lastInsertID: true}}
}

func (a *SQLite) Kind() backend.Kind { return backend.SQLite }

// DSN builds the driver URI for path, normalized the same way the connection
// key is. The file is created if it does not exist.
func (a *SQLite) DSN(path string) string {
	p := filepath.ToSlash(backend.NormalizePath(path))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{
		Scheme:   "file",
		Path:     p,
		RawQuery: "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
	}
	return u.String()
}

func (a *SQLite) Open(ctx context.Context, cfg backend.Config) (conn.Handle, error) {
	db, err := sql.Open("sqlite", a.DSN(cfg.Path))
	if err != nil {
		return nil, err
	}
	// One writer per file; concurrent callers queue on the pool.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLHandle{DB: db, Kind: backend.SQLite, Database: backend.NormalizePath(cfg.Path)}, nil
}

func (a *SQLite) Execute(ctx context.Context, h conn.Handle, d Descriptor) (*result.Result, error) {
	sh, ok := h.(*SQLHandle)
	if !ok {
		return nil, wrongHandle(backend.SQLite, h)
	}
	return a.exec.execute(ctx, sh.DB, d.SQL)
}
