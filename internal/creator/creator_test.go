package creator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shakram02/go-mcp-db-gateway/internal/adapter"
	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/gateway"
)

func newCreator(t *testing.T, opts gateway.Options) (*Creator, *gateway.Gateway) {
	t.Helper()
	gw := gateway.New(opts)
	t.Cleanup(func() { _ = gw.Close(context.Background()) })
	return New(gw, nil), gw
}

func sqliteReq(dir, name string) Request {
	return Request{Config: backend.Config{Kind: backend.SQLite, Path: dir}, Name: name}
}

func TestCreateSQLite_FromDescription(t *testing.T) {
	c, gw := newCreator(t, gateway.Options{})
	dir := t.TempDir()
	ctx := context.Background()

	req := sqliteReq(dir, "school")
	req.Description = "a school system"
	out, err := c.Create(ctx, req)
	require.NoError(t, err)

	path := filepath.Join(dir, "school.db")
	assert.Equal(t, path, out.Location)
	assert.True(t, out.Schema)
	assert.True(t, out.Data)
	assert.Equal(t, "school system", out.Template)
	assert.FileExists(t, path)

	cfg := backend.Config{Kind: backend.SQLite, Path: path}
	tables, err := gw.ListTables(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"classes", "enrollments", "students", "teachers"}, tables)

	r, err := gw.Query(ctx, cfg, adapter.Descriptor{SQL: &adapter.SQLQuery{Query: "SELECT COUNT(*) AS n FROM students"}}, false)
	require.NoError(t, err)
	n, _ := r.Rows[0].Get("n")
	assert.Equal(t, int64(3), n)
}

func TestCreateSQLite_ExplicitSchemaWinsOverDescription(t *testing.T) {
	c, _ := newCreator(t, gateway.Options{})
	req := sqliteReq(t.TempDir(), "notes.db")
	req.Schema = "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT);"
	req.Data = "INSERT INTO notes (body) VALUES ('a'); INSERT INTO notes (body) VALUES ('b');"
	req.Description = "blog"

	out, err := c.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, out.Template)
	assert.True(t, out.Schema)
	assert.True(t, out.Data)
	assert.Equal(t, "notes.db", filepath.Base(out.Location))
}

func TestCreateSQLite_EmptyCreatesFile(t *testing.T) {
	c, _ := newCreator(t, gateway.Options{})
	dir := t.TempDir()
	out, err := c.Create(context.Background(), sqliteReq(dir, "empty"))
	require.NoError(t, err)
	assert.False(t, out.Schema)
	assert.False(t, out.Data)
	assert.FileExists(t, filepath.Join(dir, "empty.db"))
}

func TestCreateSQLite_ExistingNeedsOverwrite(t *testing.T) {
	c, gw := newCreator(t, gateway.Options{})
	dir := t.TempDir()
	ctx := context.Background()

	req := sqliteReq(dir, "lib")
	req.Description = "library management"
	_, err := c.Create(ctx, req)
	require.NoError(t, err)

	_, err = c.Create(ctx, req)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.QueryFailed))
	assert.Contains(t, err.Error(), "already exists")

	req.Overwrite = true
	req.Description = "blog"
	out, err := c.Create(ctx, req)
	require.NoError(t, err)
	assert.True(t, out.Replaced)

	tables, err := gw.ListTables(ctx, backend.Config{Kind: backend.SQLite, Path: filepath.Join(dir, "lib.db")})
	require.NoError(t, err)
	assert.Equal(t, []string{"authors", "comments", "posts"}, tables)
}

func TestCreateSQLite_BadStatementReportsPosition(t *testing.T) {
	c, _ := newCreator(t, gateway.Options{})
	req := sqliteReq(t.TempDir(), "bad")
	req.Schema = "CREATE TABLE a (x INTEGER); CREATE TABLE oops ("

	_, err := c.Create(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema statement 2")
}

func TestCreate_RefusedInReadOnlyMode(t *testing.T) {
	c, _ := newCreator(t, gateway.Options{ReadOnly: true})
	dir := t.TempDir()
	_, err := c.Create(context.Background(), sqliteReq(dir, "x"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.InvalidArgument))
	_, statErr := os.Stat(filepath.Join(dir, "x.db"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCreate_ArgumentChecks(t *testing.T) {
	c, _ := newCreator(t, gateway.Options{})
	ctx := context.Background()

	_, err := c.Create(ctx, sqliteReq(t.TempDir(), " "))
	assert.True(t, errors.IsKind(err, errors.InvalidArgument))

	_, err = c.Create(ctx, Request{Config: backend.Config{Kind: backend.Postgres}, Name: "shop"})
	assert.True(t, errors.IsKind(err, errors.InvalidArgument))
	assert.Contains(t, err.Error(), "password is required")

	_, err = c.Create(ctx, Request{Config: backend.Config{Kind: backend.MySQL}, Name: "shop"})
	assert.True(t, errors.IsKind(err, errors.InvalidArgument))
}

func TestOutcome_String(t *testing.T) {
	out := &Outcome{Kind: backend.Postgres, Location: "localhost:5432", Database: "shop", User: "postgres", Schema: true, Template: "ecommerce"}
	assert.Equal(t, "PostgreSQL database created successfully\n"+
		"Location: localhost:5432\n"+
		"Database: shop\n"+
		"User: postgres\n"+
		"Schema: Applied\n"+
		"Sample data: None\n"+
		"Template: ecommerce", out.String())

	mongo := &Outcome{Kind: backend.MongoDB, Location: "mongodb://localhost:27017", Database: "school", Collections: 4, Data: true, Replaced: true}
	assert.Contains(t, mongo.String(), "Collections: 4\n")
	assert.Contains(t, mongo.String(), "Sample data: Inserted\n")
	assert.Contains(t, mongo.String(), "Replaced an existing database")
}

func TestNames(t *testing.T) {
	assert.Equal(t, "shop.db", FileName("shop"))
	assert.Equal(t, "shop.db", FileName("shop.db"))
	assert.Equal(t, "`we``ird`", QuoteMySQL("we`ird"))
}
