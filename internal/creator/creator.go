// Package creator provisions new databases on each backend and seeds them
// with a schema and sample data, either given verbatim or taken from a
// template matched against a description.
package creator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shakram02/go-mcp-db-gateway/internal/adapter"
	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/gateway"
	"github.com/shakram02/go-mcp-db-gateway/internal/sqltext"
	"github.com/shakram02/go-mcp-db-gateway/internal/templates"
)

// Request describes a database to create. For SQLite, Config.Path is the
// directory the file is created in.
type Request struct {
	Config      backend.Config
	Name        string
	Schema      string
	Data        string
	Collections []string
	Documents   map[string]json.RawMessage
	Description string
	Overwrite   bool
	ForceNew    bool
}

// Outcome reports what Create did.
type Outcome struct {
	Kind        backend.Kind
	Location    string
	Database    string
	User        string
	Schema      bool
	Data        bool
	Collections int
	Template    string
	Replaced    bool
}

func (o *Outcome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s database created successfully\n", o.Kind.DisplayName())
	fmt.Fprintf(&b, "Location: %s\n", o.Location)
	if o.Database != "" {
		fmt.Fprintf(&b, "Database: %s\n", o.Database)
	}
	if o.User != "" {
		fmt.Fprintf(&b, "User: %s\n", o.User)
	}
	if o.Kind == backend.MongoDB {
		fmt.Fprintf(&b, "Collections: %d\n", o.Collections)
	} else {
		fmt.Fprintf(&b, "Schema: %s\n", yesNo(o.Schema, "Applied"))
	}
	fmt.Fprintf(&b, "Sample data: %s\n", yesNo(o.Data, "Inserted"))
	if o.Template != "" {
		fmt.Fprintf(&b, "Template: %s", o.Template)
	} else {
		b.WriteString("Template: None")
	}
	if o.Replaced {
		b.WriteString("\nReplaced an existing database")
	}
	return b.String()
}

func yesNo(ok bool, yes string) string {
	if ok {
		return yes
	}
	return "None"
}

// Creator runs creation requests. Seeding goes through the gateway, so the
// new database's connection stays registered for later queries.
type Creator struct {
	gw    *gateway.Gateway
	mysql *adapter.MySQL
	pg    *adapter.Postgres
	log   *slog.Logger
}

func New(gw *gateway.Gateway, logger *slog.Logger) *Creator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Creator{
		gw:    gw,
		mysql: adapter.NewMySQL(adapter.Options{}),
		pg:    adapter.NewPostgres(adapter.Options{}),
		log:   logger.With("component", "creator"),
	}
}

// Create provisions the database described by req. An existing database is an
// error unless Overwrite is set.
func (c *Creator) Create(ctx context.Context, req Request) (*Outcome, error) {
	kind := req.Config.Kind
	if c.gw.ReadOnly() {
		return nil, errors.Invalid(kind, "database creation is disabled in read-only mode")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.Invalid(kind, "database_name is required")
	}
	req.Config = req.Config.WithDefaults()
	out := &Outcome{Kind: kind}
	applyTemplate(&req, out)

	var err error
	switch kind {
	case backend.SQLite:
		err = c.createSQLite(ctx, req, out)
	case backend.Postgres:
		err = c.createPostgres(ctx, req, out)
	case backend.MySQL:
		err = c.createMySQL(ctx, req, out)
	case backend.MongoDB:
		err = c.createMongo(ctx, req, out)
	default:
		return nil, errors.Invalid(kind, "unsupported backend")
	}
	if err != nil {
		return nil, err
	}
	c.log.Info("database created", "backend", kind, "database", req.Name, "template", out.Template, "replaced", out.Replaced)
	return out, nil
}

// applyTemplate fills schema and data from the description when none were
// given explicitly.
func applyTemplate(req *Request, out *Outcome) {
	if req.Description == "" {
		return
	}
	kind := req.Config.Kind
	if kind == backend.MongoDB && len(req.Collections) > 0 {
		return
	}
	if kind != backend.MongoDB && req.Schema != "" {
		return
	}
	p, ok := templates.Lookup(req.Description, kind)
	if !ok {
		return
	}
	out.Template = p.Name
	if kind == backend.MongoDB {
		req.Collections = p.Collections
		req.Documents = p.Documents
		return
	}
	req.Schema = p.Schema
	req.Data = p.Data
}

func exists(kind backend.Kind, name string) error {
	return errors.Query(kind, fmt.Sprintf("database %q already exists; set overwrite to replace it", name), nil)
}

// seed runs schema then data against cfg one statement at a time.
func (c *Creator) seed(ctx context.Context, cfg backend.Config, req Request, out *Outcome) error {
	for _, part := range []struct {
		script string
		done   *bool
		what   string
	}{
		{req.Schema, &out.Schema, "schema"},
		{req.Data, &out.Data, "sample data"},
	} {
		if strings.TrimSpace(part.script) == "" {
			continue
		}
		for i, stmt := range sqltext.Split(cfg.Kind, part.script) {
			d := adapter.Descriptor{SQL: &adapter.SQLQuery{Query: stmt}}
			if _, err := c.gw.Query(ctx, cfg, d, false); err != nil {
				return fmt.Errorf("%s statement %d: %w", part.what, i+1, err)
			}
		}
		*part.done = true
	}
	return nil
}
