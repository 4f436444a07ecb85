// Package gateway is the single entry point the tool layer talks to. It ties
// the connection manager to the per-backend adapters and adds the request
// timeout, the optional read-only guard and query metrics.
package gateway

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shakram02/go-mcp-db-gateway/internal/adapter"
	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/conn"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/observe"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
	"github.com/shakram02/go-mcp-db-gateway/internal/sqltext"
)

// DefaultQueryTimeout bounds one Execute call.
const DefaultQueryTimeout = 30 * time.Second

type Options struct {
	QueryTimeout   time.Duration
	ConnectTimeout time.Duration
	SweepInterval  time.Duration
	IdleTimeout    time.Duration
	MaxRows        int
	ReadOnly       bool
	KeyPolicy      backend.KeyPolicy
	Logger         *slog.Logger

	// Adapters replaces the built-in adapters. Used by tests.
	Adapters map[backend.Kind]adapter.Adapter
	// Now replaces the clock used for last-use bookkeeping.
	Now func() time.Time
}

type Gateway struct {
	mgr          *conn.Manager
	sweeper      *conn.Sweeper
	adapters     map[backend.Kind]adapter.Adapter
	queryTimeout time.Duration
	readOnly     bool
	log          *slog.Logger
}

func New(opts Options) *Gateway {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	adapters := opts.Adapters
	if adapters == nil {
		adapters = adapter.All(adapter.Options{MaxRows: opts.MaxRows})
	}
	mgr := conn.NewManager(conn.Options{
		Openers:        adapter.Openers(adapters),
		KeyPolicy:      opts.KeyPolicy,
		ConnectTimeout: opts.ConnectTimeout,
		Logger:         opts.Logger,
		Now:            opts.Now,
	})
	return &Gateway{
		mgr:          mgr,
		sweeper:      conn.NewSweeper(mgr, opts.SweepInterval, opts.IdleTimeout),
		adapters:     adapters,
		queryTimeout: opts.QueryTimeout,
		readOnly:     opts.ReadOnly,
		log:          opts.Logger.With("component", "gateway"),
	}
}

// Manager exposes the underlying connection manager.
func (g *Gateway) Manager() *conn.Manager { return g.mgr }

// Sweeper exposes the idle sweeper; StartSweeper runs it.
func (g *Gateway) Sweeper() *conn.Sweeper { return g.sweeper }

// StartSweeper runs the idle sweeper until ctx is done.
func (g *Gateway) StartSweeper(ctx context.Context) {
	go g.sweeper.Run(ctx)
}

// ReadOnly reports whether the read-only guard is active.
func (g *Gateway) ReadOnly() bool { return g.readOnly }

// Key resolves the connection identity for cfg.
func (g *Gateway) Key(cfg backend.Config) backend.Key { return g.mgr.Key(cfg) }

// Acquire returns a lease on the connection for cfg. Callers must Release it.
func (g *Gateway) Acquire(ctx context.Context, cfg backend.Config, forceNew bool) (*conn.Lease, error) {
	return g.mgr.Acquire(ctx, cfg, forceNew)
}

// Execute runs d on the leased connection.
func (g *Gateway) Execute(ctx context.Context, lease *conn.Lease, d adapter.Descriptor) (*result.Result, error) {
	kind := lease.Kind()
	a, ok := g.adapters[kind]
	if !ok {
		return nil, errors.Query(kind, "no adapter registered", nil)
	}
	if err := g.check(kind, d); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	start := time.Now()
	r, err := a.Execute(ctx, lease.Handle(), d)
	observe.QueryDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		observe.Queries.WithLabelValues(string(kind), "error").Inc()
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.IsKind(err, errors.QueryFailed) {
			err = errors.Query(kind, fmt.Sprintf("timed out after %s", g.queryTimeout), err)
		}
		g.log.Debug("query failed", "backend", kind, "key", lease.Key(), "error", observe.Mask(err.Error()))
		return nil, err
	}
	observe.Queries.WithLabelValues(string(kind), string(r.Kind)).Inc()
	g.log.Debug("query done", "backend", kind, "key", lease.Key(), "kind", r.Kind, "count", r.Count, "took", time.Since(start))
	return r, nil
}

// Query acquires, executes and releases in one call.
func (g *Gateway) Query(ctx context.Context, cfg backend.Config, d adapter.Descriptor, forceNew bool) (*result.Result, error) {
	lease, err := g.Acquire(ctx, cfg, forceNew)
	if err != nil {
		return nil, err
	}
	defer lease.Release()
	return g.Execute(ctx, lease, d)
}

// check rejects descriptors that do not fit the backend, and writes when the
// read-only guard is on.
func (g *Gateway) check(kind backend.Kind, d adapter.Descriptor) error {
	switch kind {
	case backend.SQLite, backend.Postgres, backend.MySQL:
		if d.SQL == nil {
			return errors.Invalid(kind, "a SQL query is required")
		}
		if g.readOnly {
			if err := sqltext.ValidateReadOnly(kind, d.SQL.Query); err != nil {
				return errors.Invalid(kind, "query rejected: "+err.Error())
			}
		}
	case backend.MongoDB:
		if d.Document == nil {
			return errors.Invalid(kind, "a document operation is required")
		}
		if g.readOnly {
			return guardDocument(d.Document)
		}
	default:
		return errors.Invalid(kind, "unsupported backend")
	}
	return nil
}

// guardDocument allows only find and aggregate pipelines without output stages.
func guardDocument(q *adapter.DocQuery) error {
	op, err := adapter.ParseDocOp(q.Operation)
	if err != nil {
		return errors.Query(backend.MongoDB, err.Error(), nil)
	}
	if adapter.DocOpKind(op) != result.Read {
		return errors.Invalid(backend.MongoDB, fmt.Sprintf("query rejected: %s is not allowed in read-only mode", op))
	}
	if op != result.OpAggregate {
		return nil
	}
	stages, err := adapter.ToDocs(q.PipelineJSON())
	if err != nil {
		return errors.Query(backend.MongoDB, "invalid pipeline", err)
	}
	if adapter.WritesOutput(stages) {
		return errors.Invalid(backend.MongoDB, "query rejected: $out and $merge stages are not allowed in read-only mode")
	}
	return nil
}

// Release closes one connection. A missing key reports zero.
func (g *Gateway) Release(ctx context.Context, kind backend.Kind, key backend.Key) (int, error) {
	return g.mgr.Release(ctx, kind, key)
}

// ReleaseKind closes every connection of kind, best effort.
func (g *Gateway) ReleaseKind(ctx context.Context, kind backend.Kind) (int, error) {
	return g.mgr.ReleaseKind(ctx, kind)
}

// ReleaseAll closes every connection, best effort.
func (g *Gateway) ReleaseAll(ctx context.Context) (int, error) {
	return g.mgr.ReleaseAll(ctx)
}

// ListActive lists live connections sorted by kind, then key.
func (g *Gateway) ListActive() []conn.Info { return g.mgr.ListActive() }

// Close drains every connection. The gateway is unusable afterwards.
func (g *Gateway) Close(ctx context.Context) error {
	return g.mgr.Close(ctx)
}
