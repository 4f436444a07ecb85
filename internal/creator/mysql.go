package creator

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
)

// QuoteMySQL quotes an identifier with backticks.
func QuoteMySQL(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (c *Creator) createMySQL(ctx context.Context, req Request, out *Outcome) error {
	if req.Config.Password == "" {
		return errors.Invalid(backend.MySQL, "password is required")
	}
	connector, err := mysql.NewConnector(c.mysql.DriverConfig(req.Config, ""))
	if err != nil {
		return errors.Connection(backend.MySQL, "building connector", err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()

	var name string
	err = db.QueryRowContext(ctx, "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?", req.Name).Scan(&name)
	found := err == nil
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return errors.Connection(backend.MySQL, "checking for an existing database", err)
	}

	target := req.Config
	target.Database = req.Name
	if found {
		if !req.Overwrite {
			return exists(backend.MySQL, req.Name)
		}
		if _, err := c.gw.Release(ctx, backend.MySQL, c.gw.Key(target)); err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, "DROP DATABASE "+QuoteMySQL(req.Name)); err != nil {
			return errors.Query(backend.MySQL, "dropping existing database", err)
		}
		out.Replaced = true
	}
	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+QuoteMySQL(req.Name)); err != nil {
		return errors.Query(backend.MySQL, "creating database", err)
	}

	out.Location = target.Address()
	out.Database = req.Name
	out.User = target.User
	return c.seed(ctx, target, req, out)
}
