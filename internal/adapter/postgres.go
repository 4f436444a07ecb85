package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/lib/pq"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/conn"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
)

// Postgres runs queries through lib/pq. lib/pq does not report insert ids.
type Postgres struct {
	exec sqlExecutor
}

func NewPostgres(opts Options) *Postgres {
	return &Postgres{exec: sqlExecutor{kind: backend.Postgres, maxRows: opts.MaxRows}}
}

func (a *Postgres) Kind() backend.Kind { return backend.Postgres }

// DSN builds a postgres:// URL for cfg, which must already carry defaults.
func (a *Postgres) DSN(cfg backend.Config) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func (a *Postgres) Open(ctx context.Context, cfg backend.Config) (conn.Handle, error) {
	db, err := sql.Open("postgres", a.DSN(cfg))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLHandle{DB: db, Kind: backend.Postgres, Database: cfg.Database}, nil
}

func (a *Postgres) Execute(ctx context.Context, h conn.Handle, d Descriptor) (*result.Result, error) {
	sh, ok := h.(*SQLHandle)
	if !ok {
		return nil, wrongHandle(backend.Postgres, h)
	}
	return a.exec.execute(ctx, sh.DB, d.SQL)
}
