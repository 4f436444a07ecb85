package gateway

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shakram02/go-mcp-db-gateway/internal/adapter"
	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/conn"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
)

func sqliteCfg(t *testing.T) backend.Config {
	t.Helper()
	return backend.Config{Kind: backend.SQLite, Path: filepath.Join(t.TempDir(), "t.db")}
}

func sqlDesc(q string, params ...any) adapter.Descriptor {
	return adapter.Descriptor{SQL: &adapter.SQLQuery{Query: q, Params: params}}
}

func newGateway(t *testing.T, opts Options) *Gateway {
	t.Helper()
	g := New(opts)
	t.Cleanup(func() { _ = g.Close(context.Background()) })
	return g
}

func TestQuery_SelectOneScenario(t *testing.T) {
	g := newGateway(t, Options{})
	r, err := g.Query(context.Background(), sqliteCfg(t), sqlDesc("SELECT 1"), false)
	require.NoError(t, err)
	assert.Equal(t, result.Read, r.Kind)
	assert.Equal(t, int64(1), r.Count)
	assert.Equal(t, []result.Record{{{Key: "1", Value: int64(1)}}}, r.Rows)
}

func TestQuery_ReusesConnectionAcrossRelativeSpellings(t *testing.T) {
	dir := t.TempDir()
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(dir))
	g := newGateway(t, Options{})
	ctx := context.Background()

	_, err := g.Query(ctx, backend.Config{Kind: backend.SQLite, Path: "app.db"}, sqlDesc("CREATE TABLE t (x INTEGER)"), false)
	require.NoError(t, err)
	r, err := g.Query(ctx, backend.Config{Kind: backend.SQLite, Path: "./sub/../app.db"}, sqlDesc("INSERT INTO t VALUES (1)"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.Count)

	active := g.ListActive()
	require.Len(t, active, 1)
	assert.Equal(t, "app.db", filepath.Base(string(active[0].Key)))
}

func TestQuery_SQLitePathMatchesFileOnDisk(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name, path, want string
	}{
		{"trailing whitespace", "a.db ", "a.db"},
		{"question mark", "a?b.db", "a?b.db"},
		{"hash and space", "my #1.db", "my #1.db"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			g := newGateway(t, Options{})

			_, err := g.Query(ctx, backend.Config{Kind: backend.SQLite, Path: filepath.Join(dir, tc.path)}, sqlDesc("CREATE TABLE t (x INTEGER)"), false)
			require.NoError(t, err)
			r, err := g.Query(ctx, backend.Config{Kind: backend.SQLite, Path: filepath.Join(dir, tc.want)}, sqlDesc("INSERT INTO t VALUES (1)"), false)
			require.NoError(t, err)
			assert.Equal(t, int64(1), r.Count)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tc.want, entries[0].Name())
			assert.Len(t, g.ListActive(), 1)
		})
	}
}

func TestQuery_ReadOnlyGuard(t *testing.T) {
	g := newGateway(t, Options{ReadOnly: true})
	cfg := sqliteCfg(t)
	ctx := context.Background()

	_, err := g.Query(ctx, cfg, sqlDesc("CREATE TABLE t (x INTEGER)"), false)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.InvalidArgument))
	assert.Contains(t, err.Error(), "query rejected")

	_, err = g.Query(ctx, cfg, sqlDesc("SELECT 1"), false)
	require.NoError(t, err)
}

func TestQuery_DescriptorMustMatchBackend(t *testing.T) {
	g := newGateway(t, Options{})
	_, err := g.Query(context.Background(), sqliteCfg(t), adapter.Descriptor{Document: &adapter.DocQuery{Operation: "find"}}, false)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.InvalidArgument))
}

func TestRelease_NonexistentKey(t *testing.T) {
	g := newGateway(t, Options{})
	n, err := g.Release(context.Background(), backend.MySQL, "nowhere:3306:db:root")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRelease_ThenReopen(t *testing.T) {
	g := newGateway(t, Options{})
	ctx := context.Background()
	cfg := sqliteCfg(t)

	_, err := g.Query(ctx, cfg, sqlDesc("SELECT 1"), false)
	require.NoError(t, err)

	n, err := g.Release(ctx, backend.SQLite, g.Key(cfg))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, g.ListActive())

	_, err = g.Query(ctx, cfg, sqlDesc("SELECT 1"), false)
	require.NoError(t, err)
	assert.Len(t, g.ListActive(), 1)
}

func TestCatalog_SQLite(t *testing.T) {
	g := newGateway(t, Options{ReadOnly: false})
	ctx := context.Background()
	cfg := sqliteCfg(t)

	for _, q := range []string{
		"CREATE TABLE zebras (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE apples (id INTEGER PRIMARY KEY)",
	} {
		_, err := g.Query(ctx, cfg, sqlDesc(q), false)
		require.NoError(t, err)
	}

	tables, err := g.ListTables(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"apples", "zebras"}, tables)

	r, err := g.DescribeTable(ctx, cfg, "zebras")
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.Count)

	_, err = g.DescribeTable(ctx, cfg, "missing")
	require.Error(t, err)
}

// slowAdapter blocks every Execute until the context ends.
type slowAdapter struct {
	opens atomic.Int64
}

type nopHandle struct{}

func (nopHandle) Ping(context.Context) error  { return nil }
func (nopHandle) Close(context.Context) error { return nil }

func (a *slowAdapter) Kind() backend.Kind { return backend.Postgres }

func (a *slowAdapter) Open(context.Context, backend.Config) (conn.Handle, error) {
	a.opens.Add(1)
	return nopHandle{}, nil
}

func (a *slowAdapter) Execute(ctx context.Context, _ conn.Handle, _ adapter.Descriptor) (*result.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExecute_Timeout(t *testing.T) {
	slow := &slowAdapter{}
	g := newGateway(t, Options{
		QueryTimeout: 20 * time.Millisecond,
		Adapters:     map[backend.Kind]adapter.Adapter{backend.Postgres: slow},
	})

	_, err := g.Query(context.Background(), backend.Config{Kind: backend.Postgres, Database: "shop"}, sqlDesc("SELECT pg_sleep(10)"), false)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.QueryFailed))
	assert.Contains(t, err.Error(), "timed out")
	// The lease was released even though the query failed.
	require.Len(t, g.ListActive(), 1)
	assert.Equal(t, 0, g.ListActive()[0].InUse)
}

func TestSweeper_EvictsThroughGateway(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	slow := &slowAdapter{}
	g := newGateway(t, Options{
		IdleTimeout: time.Minute,
		Adapters:    map[backend.Kind]adapter.Adapter{backend.Postgres: slow},
		Now:         clock,
	})
	ctx := context.Background()
	cfg := backend.Config{Kind: backend.Postgres, Database: "shop"}

	lease, err := g.Acquire(ctx, cfg, false)
	require.NoError(t, err)
	lease.Release()

	assert.Equal(t, 1, g.Sweeper().Sweep(ctx, now.Add(2*time.Minute)))
	lease, err = g.Acquire(ctx, cfg, false)
	require.NoError(t, err)
	lease.Release()
	assert.Equal(t, int64(2), slow.opens.Load())
}

func TestClose_RefusesFurtherQueries(t *testing.T) {
	g := New(Options{})
	ctx := context.Background()
	cfg := sqliteCfg(t)

	_, err := g.Query(ctx, cfg, sqlDesc("SELECT 1"), false)
	require.NoError(t, err)
	require.NoError(t, g.Close(ctx))
	assert.Empty(t, g.ListActive())

	_, err = g.Query(ctx, cfg, sqlDesc("SELECT 1"), false)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ConnectionFailed))
}

func TestGuardDocument(t *testing.T) {
	tests := []struct {
		name    string
		q       adapter.DocQuery
		wantErr bool
	}{
		{"find", adapter.DocQuery{Operation: "find"}, false},
		{"aggregate", adapter.DocQuery{Operation: "aggregate", Pipeline: json.RawMessage(`[{"$match": {"a": 1}}]`)}, false},
		{"aggregate out", adapter.DocQuery{Operation: "aggregate", Pipeline: json.RawMessage(`[{"$match": {}}, {"$out": "copy"}]`)}, true},
		{"aggregate merge via filter", adapter.DocQuery{Operation: "aggregate", Filter: json.RawMessage(`[{"$merge": {"into": "x"}}]`)}, true},
		{"insert", adapter.DocQuery{Operation: "insertOne"}, true},
		{"unknown", adapter.DocQuery{Operation: "mapReduce"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := tc.q
			err := guardDocument(&q)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
