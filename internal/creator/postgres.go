package creator

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
)

// adminDatabase is the maintenance database CREATE and DROP run from.
const adminDatabase = "postgres"

func (c *Creator) createPostgres(ctx context.Context, req Request, out *Outcome) error {
	if req.Config.Password == "" {
		return errors.Invalid(backend.Postgres, "password is required")
	}
	admin := req.Config
	admin.Database = adminDatabase
	pc, err := pgx.Connect(ctx, c.pg.DSN(admin))
	if err != nil {
		return errors.Connection(backend.Postgres, "connecting to the maintenance database", err)
	}
	defer pc.Close(context.WithoutCancel(ctx))

	var one int
	err = pc.QueryRow(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", req.Name).Scan(&one)
	found := err == nil
	if err != nil && !stderrors.Is(err, pgx.ErrNoRows) {
		return errors.Query(backend.Postgres, "checking for an existing database", err)
	}

	target := req.Config
	target.Database = req.Name
	ident := pgx.Identifier{req.Name}.Sanitize()
	if found {
		if !req.Overwrite {
			return exists(backend.Postgres, req.Name)
		}
		// Our own pooled connection would block the drop.
		if _, err := c.gw.Release(ctx, backend.Postgres, c.gw.Key(target)); err != nil {
			return err
		}
		if _, err := pc.Exec(ctx, "DROP DATABASE "+ident); err != nil {
			return errors.Query(backend.Postgres, "dropping existing database", err)
		}
		out.Replaced = true
	}
	if _, err := pc.Exec(ctx, "CREATE DATABASE "+ident); err != nil {
		return errors.Query(backend.Postgres, "creating database", err)
	}

	out.Location = target.Address()
	out.Database = req.Name
	out.User = target.User
	return c.seed(ctx, target, req, out)
}
