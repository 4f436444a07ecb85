package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shakram02/go-mcp-db-gateway/internal/adapter"
	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/gateway"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
)

func seeded(t *testing.T, opts gateway.Options) (*Exporter, backend.Config, string) {
	t.Helper()
	gw := gateway.New(opts)
	t.Cleanup(func() { _ = gw.Close(context.Background()) })

	dir := t.TempDir()
	cfg := backend.Config{Kind: backend.SQLite, Path: filepath.Join(dir, "shop.db")}
	for _, q := range []string{
		"CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, note TEXT)",
		`INSERT INTO items (name, note) VALUES ('pen', 'blue, fine'), ('ink', NULL), ('pad', 'say "hi"')`,
		"CREATE TABLE tags (tag TEXT)",
	} {
		_, err := gw.Query(context.Background(), cfg, adapter.Descriptor{SQL: &adapter.SQLQuery{Query: q}}, false)
		require.NoError(t, err)
	}
	out := filepath.Join(dir, "out")
	return New(gw, out, nil), cfg, out
}

func TestWriteCSV(t *testing.T) {
	rows := []result.Record{
		{{Key: "a", Value: int64(1)}, {Key: "b", Value: "x,y"}},
		{{Key: "a", Value: nil}, {Key: "b", Value: []byte("z")}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{"a", "b"}, rows, true))
	assert.Equal(t, "a,b\n1,\"x,y\"\n,z\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, nil, rows, false))
	assert.Equal(t, "1,\"x,y\"\n,z\n", buf.String())
}

func TestWriteCSV_DuplicateColumnNames(t *testing.T) {
	rows := []result.Record{{{Key: "id", Value: int64(1)}, {Key: "id", Value: int64(2)}}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{"id", "id"}, rows, true))
	assert.Equal(t, "id,id\n1,2\n", buf.String())
}

func TestTable(t *testing.T) {
	e, cfg, dir := seeded(t, gateway.Options{})
	f, err := e.Table(context.Background(), cfg, "items", TableOptions{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "items_export.csv"), f.Path)
	assert.Equal(t, 3, f.Rows)
	assert.Equal(t, []string{"id", "name", "note"}, f.Columns)

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "id,name,note\n1,pen,\"blue, fine\"\n2,ink,\n3,pad,\"say \"\"hi\"\"\"\n", string(data))
	assert.Equal(t, int64(len(data)), f.Size)
	assert.Contains(t, f.String(), "Exported 3 rows to ")
}

func TestTable_LimitAndNoHeader(t *testing.T) {
	e, cfg, dir := seeded(t, gateway.Options{})
	path := filepath.Join(dir, "custom", "two.csv")
	f, err := e.Table(context.Background(), cfg, "items", TableOptions{Limit: 2, OutputPath: path, NoHeader: true})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Rows)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1,pen,\"blue, fine\"\n2,ink,\n", string(data))
}

func TestTable_Missing(t *testing.T) {
	e, cfg, _ := seeded(t, gateway.Options{})
	_, err := e.Table(context.Background(), cfg, "nope", TableOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.QueryFailed))
}

func TestQuery(t *testing.T) {
	e, cfg, dir := seeded(t, gateway.Options{})
	e.now = func() time.Time { return time.UnixMilli(1700000000000) }
	ctx := context.Background()

	f, err := e.Query(ctx, cfg, "SELECT name FROM items WHERE note IS NOT NULL ORDER BY name", "", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "query_export_1700000000000.csv"), f.Path)
	assert.Equal(t, "name\npad\npen", f.Preview)

	f, err = e.Query(ctx, cfg, "SELECT 1 AS one", "ones", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ones.csv"), f.Path)

	_, err = e.Query(ctx, cfg, "DELETE FROM items", "", "")
	assert.True(t, errors.IsKind(err, errors.InvalidArgument))
}

func TestPreviewIsCapped(t *testing.T) {
	e, cfg, _ := seeded(t, gateway.Options{})
	f, err := e.Query(context.Background(), cfg,
		"WITH RECURSIVE n(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM n WHERE x < 25) SELECT x FROM n", "", "")
	require.Error(t, err, "WITH is not a SELECT")
	assert.Nil(t, f)

	f, err = e.Query(context.Background(), cfg,
		"SELECT value AS x FROM json_each('[1,2,3,4,5,6,7,8,9,10,11,12]')", "", "")
	require.NoError(t, err)
	assert.Equal(t, 12, f.Rows)
	assert.Contains(t, f.Preview, "\n10\n... and 2 more rows")
}

func TestAllTables(t *testing.T) {
	e, cfg, _ := seeded(t, gateway.Options{})
	dir := filepath.Join(t.TempDir(), "bulk")
	b, err := e.AllTables(context.Background(), cfg, dir)
	require.NoError(t, err)

	require.Len(t, b.Files, 2)
	assert.Equal(t, "items", b.Files[0].Table)
	assert.Equal(t, "tags", b.Files[1].Table)
	assert.Equal(t, 3, b.Rows())
	assert.Empty(t, b.Failed)
	assert.FileExists(t, filepath.Join(dir, "items.csv"))

	data, err := os.ReadFile(filepath.Join(dir, "tags.csv"))
	require.NoError(t, err)
	assert.Equal(t, "tag\n", string(data))
	assert.Contains(t, b.String(), "Exported 2 tables (3 rows)")
}

func TestExport_RejectsMongo(t *testing.T) {
	e, _, _ := seeded(t, gateway.Options{})
	_, err := e.Table(context.Background(), backend.Config{Kind: backend.MongoDB}, "c", TableOptions{})
	assert.True(t, errors.IsKind(err, errors.InvalidArgument))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"a""b"`, QuoteIdent(backend.Postgres, `a"b`))
	assert.Equal(t, "`a``b`", QuoteIdent(backend.MySQL, "a`b"))
}
