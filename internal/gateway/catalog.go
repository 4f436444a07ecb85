package gateway

import (
	"context"
	"fmt"
	"sort"

	"github.com/shakram02/go-mcp-db-gateway/internal/adapter"
	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/conn"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
)

type collectionLister interface {
	ListCollections(ctx context.Context, h conn.Handle) ([]string, error)
}

// ListTables names the tables (collections for MongoDB) of cfg's database,
// sorted.
func (g *Gateway) ListTables(ctx context.Context, cfg backend.Config) ([]string, error) {
	cfg = cfg.WithDefaults()
	if cfg.Kind == backend.MongoDB {
		return g.listCollections(ctx, cfg)
	}

	q, args, err := adapter.ListTablesQuery(cfg.Kind, cfg.Database)
	if err != nil {
		return nil, errors.Invalid(cfg.Kind, err.Error())
	}
	r, err := g.catalogQuery(ctx, cfg, q, args)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		if v, ok := row.Get("table_name"); ok {
			names = append(names, result.Cell(v))
		}
	}
	sort.Strings(names)
	return names, nil
}

// DescribeTable returns one row per column of table.
func (g *Gateway) DescribeTable(ctx context.Context, cfg backend.Config, table string) (*result.Result, error) {
	cfg = cfg.WithDefaults()
	if table == "" {
		return nil, errors.Invalid(cfg.Kind, "table_name is required")
	}
	q, args, err := adapter.DescribeTableQuery(cfg.Kind, cfg.Database, table)
	if err != nil {
		return nil, errors.Invalid(cfg.Kind, err.Error())
	}
	r, err := g.catalogQuery(ctx, cfg, q, args)
	if err != nil {
		return nil, err
	}
	if r.Count == 0 {
		return nil, errors.Query(cfg.Kind, fmt.Sprintf("table %q not found", table), nil)
	}
	return r, nil
}

// catalogQuery runs an internal read. It bypasses the read-only guard,
// which would reject the catalog's own SELECTs on some dialects.
func (g *Gateway) catalogQuery(ctx context.Context, cfg backend.Config, q string, args []any) (*result.Result, error) {
	lease, err := g.Acquire(ctx, cfg, false)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	a, ok := g.adapters[cfg.Kind]
	if !ok {
		return nil, errors.Query(cfg.Kind, "no adapter registered", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()
	return a.Execute(ctx, lease.Handle(), adapter.Descriptor{SQL: &adapter.SQLQuery{Query: q, Params: args}})
}

func (g *Gateway) listCollections(ctx context.Context, cfg backend.Config) ([]string, error) {
	a, ok := g.adapters[backend.MongoDB].(collectionLister)
	if !ok {
		return nil, errors.Query(backend.MongoDB, "adapter cannot list collections", nil)
	}
	lease, err := g.Acquire(ctx, cfg, false)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()
	names, err := a.ListCollections(ctx, lease.Handle())
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
