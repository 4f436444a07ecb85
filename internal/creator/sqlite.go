package creator

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
)

// FileName appends the .db extension when name has none.
func FileName(name string) string {
	if strings.HasSuffix(name, ".db") {
		return name
	}
	return name + ".db"
}

func (c *Creator) createSQLite(ctx context.Context, req Request, out *Outcome) error {
	dir := req.Config.Path
	if dir == "" {
		dir = "."
	}
	path, err := filepath.Abs(filepath.Join(dir, FileName(req.Name)))
	if err != nil {
		return errors.Invalid(backend.SQLite, "invalid database_path: "+err.Error())
	}
	cfg := backend.Config{Kind: backend.SQLite, Path: path}

	if _, err := os.Stat(path); err == nil {
		if !req.Overwrite {
			return exists(backend.SQLite, filepath.Base(path))
		}
		if _, err := c.gw.Release(ctx, backend.SQLite, c.gw.Key(cfg)); err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			return errors.Connection(backend.SQLite, "removing existing database", err)
		}
		out.Replaced = true
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Connection(backend.SQLite, "creating database directory", err)
	}

	out.Location = path
	if req.Schema == "" && req.Data == "" {
		// Opening the handle creates the file.
		lease, err := c.gw.Acquire(ctx, cfg, false)
		if err != nil {
			return err
		}
		lease.Release()
		return nil
	}
	return c.seed(ctx, cfg, req, out)
}
