package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/conn"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
)

// MySQL runs queries through go-sql-driver/mysql.
type MySQL struct {
	exec sqlExecutor
}

func NewMySQL(opts Options) *MySQL {
	return &MySQL{exec: sqlExecutor{kind: backend.MySQL, maxRows: opts.MaxRows, lastInsertID: true}}
}

func (a *MySQL) Kind() backend.Kind { return backend.MySQL }

// DriverConfig maps cfg onto the driver's config. database may override
// cfg.Database; pass "" to connect without selecting one.
func (a *MySQL) DriverConfig(cfg backend.Config, database string) *mysql.Config {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mc.DBName = database
	mc.ParseTime = true
	mc.Timeout = 10 * time.Second
	return mc
}

func (a *MySQL) Open(ctx context.Context, cfg backend.Config) (conn.Handle, error) {
	connector, err := mysql.NewConnector(a.DriverConfig(cfg, cfg.Database))
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLHandle{DB: db, Kind: backend.MySQL, Database: cfg.Database}, nil
}

func (a *MySQL) Execute(ctx context.Context, h conn.Handle, d Descriptor) (*result.Result, error) {
	sh, ok := h.(*SQLHandle)
	if !ok {
		return nil, wrongHandle(backend.MySQL, h)
	}
	return a.exec.execute(ctx, sh.DB, d.SQL)
}
