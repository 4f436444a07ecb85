package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shakram02/go-mcp-db-gateway/internal/adapter"
	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/creator"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/export"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
)

// connArgs are the connection fields shared by most tools.
type connArgs struct {
	DatabasePath     string `json:"database_path"`
	ConnectionString string `json:"connection_string"`
	Host             string `json:"host"`
	Port             int    `json:"port" validate:"gte=0,lte=65535"`
	Database         string `json:"database"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	SSLMode          string `json:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
}

func (a connArgs) config(kind backend.Kind) backend.Config {
	return backend.Config{
		Kind:             kind,
		Path:             a.DatabasePath,
		Host:             a.Host,
		Port:             a.Port,
		Database:         a.Database,
		User:             a.Username,
		Password:         a.Password,
		SSLMode:          a.SSLMode,
		ConnectionString: a.ConnectionString,
	}
}

// targetArgs address a database whose backend is named by the caller.
// The type defaults to postgresql.
type targetArgs struct {
	DatabaseType string `json:"database_type" validate:"omitempty,oneof=sqlite sqlite3 postgres postgresql pg mysql mongodb mongo"`
	connArgs
}

func (a targetArgs) config() (backend.Config, error) {
	if a.DatabaseType == "" {
		return a.connArgs.config(backend.Postgres), nil
	}
	kind, err := backend.ParseKind(a.DatabaseType)
	if err != nil {
		return backend.Config{}, errors.Invalid("", err.Error())
	}
	return a.connArgs.config(kind), nil
}

type sqlQueryArgs struct {
	connArgs
	Query  string `json:"query" validate:"required"`
	Params []any  `json:"params"`
}

type mongoQueryArgs struct {
	connArgs
	Database   string          `json:"database" validate:"required"`
	Collection string          `json:"collection" validate:"required"`
	Operation  string          `json:"operation" validate:"required"`
	Filter     json.RawMessage `json:"filter"`
	Document   json.RawMessage `json:"document"`
	Update     json.RawMessage `json:"update"`
	Pipeline   json.RawMessage `json:"pipeline"`
	Options    json.RawMessage `json:"options"`
	ForceNew   bool            `json:"force_new_connection"`
}

type createArgs struct {
	connArgs
	DatabaseName string `json:"database_name" validate:"required"`
	Schema       string `json:"initial_schema"`
	Description  string `json:"description"`
	Overwrite    bool   `json:"overwrite"`
	// OpenTool is accepted and ignored; no desktop tools are launched.
	OpenTool *bool `json:"open_tool"`
}

type createSQLArgs struct {
	createArgs
	SampleData string `json:"sample_data"`
}

type createMongoArgs struct {
	createArgs
	Collections []string                   `json:"initial_collections"`
	SampleData  map[string]json.RawMessage `json:"sample_data"`
	ForceNew    bool                       `json:"force_new_connection"`
}

type closeArgs struct {
	DatabaseType string `json:"database_type" validate:"omitempty,oneof=sqlite sqlite3 postgres postgresql pg mysql mongodb mongo"`
	ConnectionID string `json:"connection_id"`
}

type describeArgs struct {
	targetArgs
	TableName string `json:"table_name" validate:"required"`
}

type exportTableArgs struct {
	targetArgs
	TableName      string `json:"table_name" validate:"required"`
	Limit          int    `json:"limit" validate:"gte=0"`
	OutputPath     string `json:"output_path"`
	IncludeHeaders *bool  `json:"include_headers"`
}

type exportQueryArgs struct {
	targetArgs
	Query      string `json:"query" validate:"required"`
	Filename   string `json:"filename"`
	OutputPath string `json:"output_path"`
}

type exportAllArgs struct {
	targetArgs
	OutputDirectory string `json:"output_directory"`
}

func (s *MCPServer) registerTools() {
	s.register(Tool{
		Name:        "query_sqlite",
		Description: "Execute a SQL statement on a SQLite database file",
		InputSchema: schema(props(map[string]Property{
			"database_path": str("Path to the SQLite database file"),
			"query":         str("SQL statement to execute"),
			"params":        arr("Positional parameters (optional)"),
		}), "database_path", "query"),
	}, s.sqlQuery(backend.SQLite))

	s.register(Tool{
		Name:        "query_postgresql",
		Description: "Execute a SQL statement on a PostgreSQL database",
		InputSchema: schema(props(netProps(backend.DefaultPostgresPort, backend.DefaultPostgresUser), map[string]Property{
			"database": str("Database name"),
			"sslmode":  str("SSL mode (default: disable)"),
			"query":    str("SQL statement to execute"),
			"params":   arr("Positional parameters (optional)"),
		}), "database", "query"),
	}, s.sqlQuery(backend.Postgres))

	s.register(Tool{
		Name:        "query_mysql",
		Description: "Execute a SQL statement on a MySQL database",
		InputSchema: schema(props(netProps(backend.DefaultMySQLPort, backend.DefaultMySQLUser), map[string]Property{
			"database": str("Database name"),
			"query":    str("SQL statement to execute"),
			"params":   arr("Positional parameters (optional)"),
		}), "database", "query"),
	}, s.sqlQuery(backend.MySQL))

	s.register(Tool{
		Name:        "query_mongodb",
		Description: "Run a document operation on a MongoDB collection",
		InputSchema: schema(props(netProps(backend.DefaultMongoPort, ""), map[string]Property{
			"connection_string":    str("Full MongoDB connection string (optional)"),
			"database":             str("Database name"),
			"collection":           str("Collection name"),
			"operation":            str("One of: find, insertOne, insertMany, updateOne, deleteOne, aggregate"),
			"filter":               obj("Query filter; for aggregate an array is read as the pipeline"),
			"document":             obj("Document (or array of documents) to insert"),
			"update":               obj("Update operators for updateOne"),
			"pipeline":             arr("Aggregation pipeline"),
			"options":              obj("limit, skip, sort, projection, upsert"),
			"force_new_connection": boolean("Open a fresh connection, replacing a cached one"),
		}), "database", "collection", "operation"),
	}, s.mongoQuery)

	createSQL := map[string]Property{
		"database_name":  str("Name of the database to create"),
		"initial_schema": str("SQL schema to apply"),
		"sample_data":    str("SQL INSERT statements to run after the schema"),
		"description":    str("Description used to pick a template schema (blog, ecommerce, school system, library management)"),
		"overwrite":      boolean("Replace the database if it exists (default: false)"),
		"open_tool":      boolean("Accepted for compatibility; ignored"),
	}
	s.register(Tool{
		Name:        "create_sqlite_database",
		Description: "Create a SQLite database file with an optional schema and data",
		InputSchema: schema(props(createSQL, map[string]Property{
			"database_path": str("Directory to create the file in (default: working directory)"),
		}), "database_name"),
	}, s.createSQL(backend.SQLite))

	s.register(Tool{
		Name:        "create_postgresql_database",
		Description: "Create a PostgreSQL database with an optional schema and data",
		InputSchema: schema(props(createSQL, netProps(backend.DefaultPostgresPort, backend.DefaultPostgresUser), map[string]Property{
			"sslmode": str("SSL mode (default: disable)"),
		}), "database_name", "password"),
	}, s.createSQL(backend.Postgres))

	s.register(Tool{
		Name:        "create_mysql_database",
		Description: "Create a MySQL database with an optional schema and data",
		InputSchema: schema(props(createSQL, netProps(backend.DefaultMySQLPort, backend.DefaultMySQLUser)), "database_name", "password"),
	}, s.createSQL(backend.MySQL))

	s.register(Tool{
		Name:        "create_mongodb_database",
		Description: "Create a MongoDB database with optional collections and documents",
		InputSchema: schema(props(netProps(backend.DefaultMongoPort, ""), map[string]Property{
			"database_name":        str("Name of the database to create"),
			"connection_string":    str("Full MongoDB connection string (optional)"),
			"initial_collections":  arr("Collection names to create"),
			"sample_data":          obj("Collection name to array of documents"),
			"description":          str("Description used to pick template collections"),
			"overwrite":            boolean("Replace the database if it exists (default: false)"),
			"open_tool":            boolean("Accepted for compatibility; ignored"),
			"force_new_connection": boolean("Open a fresh connection, replacing a cached one"),
		}), "database_name"),
	}, s.createMongo)

	s.register(Tool{
		Name:        "list_active_connections",
		Description: "List the cached database connections",
		InputSchema: schema(map[string]Property{}),
	}, s.listConnections)

	s.register(Tool{
		Name:        "close_connections",
		Description: "Close one connection, every connection of a type, or all connections",
		InputSchema: schema(map[string]Property{
			"database_type": str("Type to close: sqlite, postgresql, mysql or mongodb (optional)"),
			"connection_id": str("Connection id or key from list_active_connections (optional)"),
		}),
	}, s.closeConnections)

	s.register(Tool{
		Name:        "list_database_tables",
		Description: "List the tables (collections for MongoDB) of a database",
		InputSchema: schema(targetProps()),
	}, s.listTables)

	s.register(Tool{
		Name:        "describe_table",
		Description: "Describe the columns of a table",
		InputSchema: schema(props(targetProps(), map[string]Property{
			"table_name": str("Table to describe"),
		}), "table_name"),
	}, s.describeTable)

	s.register(Tool{
		Name:        "export_table_to_csv",
		Description: "Export a table to a CSV file and show a preview",
		InputSchema: schema(props(targetProps(), map[string]Property{
			"table_name":      str("Table to export"),
			"limit":           num("Maximum rows to export (optional)"),
			"output_path":     str("Full path of the CSV file (optional)"),
			"include_headers": {Type: "boolean", Description: "Write a header row", Default: true},
		}), "table_name"),
	}, s.exportTable)

	s.register(Tool{
		Name:        "export_query_to_csv",
		Description: "Export the rows of a SELECT to a CSV file and show a preview",
		InputSchema: schema(props(targetProps(), map[string]Property{
			"query":       str("SELECT to export"),
			"filename":    str("File name inside the export directory (optional)"),
			"output_path": str("Full path of the CSV file (optional)"),
		}), "query"),
	}, s.exportQuery)

	s.register(Tool{
		Name:        "export_all_tables_to_csv",
		Description: "Export every table of a database to <table>.csv files",
		InputSchema: schema(props(targetProps(), map[string]Property{
			"output_directory": str("Directory for the CSV files (optional)"),
		})),
	}, s.exportAll)
}

func (s *MCPServer) sqlQuery(kind backend.Kind) toolHandler {
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args sqlQueryArgs
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		d := adapter.Descriptor{SQL: &adapter.SQLQuery{Query: args.Query, Params: args.Params}}
		r, err := s.gw.Query(ctx, args.config(kind), d, false)
		if err != nil {
			return "", err
		}
		return queryText(kind, r), nil
	}
}

func (s *MCPServer) mongoQuery(ctx context.Context, raw json.RawMessage) (string, error) {
	var args mongoQueryArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	cfg := args.config(backend.MongoDB)
	cfg.Database = args.Database
	d := adapter.Descriptor{Document: &adapter.DocQuery{
		Collection: args.Collection,
		Operation:  args.Operation,
		Filter:     args.Filter,
		Document:   args.Document,
		Update:     args.Update,
		Pipeline:   args.Pipeline,
		Options:    args.Options,
	}}
	r, err := s.gw.Query(ctx, cfg, d, args.ForceNew)
	if err != nil {
		return "", err
	}
	return queryText(backend.MongoDB, r), nil
}

func queryText(kind backend.Kind, r *result.Result) string {
	return fmt.Sprintf("%s result:\n\n%s\n\nType: %s | Rows: %d", kind.DisplayName(), result.Render(r), r.Kind, r.Count)
}

func (s *MCPServer) createSQL(kind backend.Kind) toolHandler {
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args createSQLArgs
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		out, err := s.creator.Create(ctx, creator.Request{
			Config:      args.config(kind),
			Name:        args.DatabaseName,
			Schema:      args.Schema,
			Data:        args.SampleData,
			Description: args.Description,
			Overwrite:   args.Overwrite,
		})
		if err != nil {
			return "", err
		}
		return out.String(), nil
	}
}

func (s *MCPServer) createMongo(ctx context.Context, raw json.RawMessage) (string, error) {
	var args createMongoArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	out, err := s.creator.Create(ctx, creator.Request{
		Config:      args.config(backend.MongoDB),
		Name:        args.DatabaseName,
		Collections: args.Collections,
		Documents:   args.SampleData,
		Description: args.Description,
		Overwrite:   args.Overwrite,
		ForceNew:    args.ForceNew,
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

func (s *MCPServer) listConnections(_ context.Context, raw json.RawMessage) (string, error) {
	if err := decodeArgs(raw, &struct{}{}); err != nil {
		return "", err
	}
	active := s.gw.ListActive()
	if len(active) == 0 {
		return "No active connections", nil
	}
	cols := []string{"type", "key", "id", "in_use", "created_at", "last_used_at"}
	rows := make([]result.Record, len(active))
	for i, info := range active {
		rows[i] = result.Record{
			{Key: "type", Value: info.Kind},
			{Key: "key", Value: info.Key},
			{Key: "id", Value: info.ID},
			{Key: "in_use", Value: info.InUse},
			{Key: "created_at", Value: info.CreatedAt.Format(time.RFC3339)},
			{Key: "last_used_at", Value: info.LastUsedAt.Format(time.RFC3339)},
		}
	}
	return fmt.Sprintf("Active connections: %d\n\n%s", len(active), result.Table(cols, rows)), nil
}

func (s *MCPServer) closeConnections(ctx context.Context, raw json.RawMessage) (string, error) {
	var args closeArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	var kind backend.Kind
	if args.DatabaseType != "" {
		k, err := backend.ParseKind(args.DatabaseType)
		if err != nil {
			return "", errors.Invalid("", err.Error())
		}
		kind = k
	}

	var (
		n   int
		err error
	)
	switch {
	case args.ConnectionID != "":
		for _, info := range s.gw.ListActive() {
			if kind != "" && info.Kind != kind {
				continue
			}
			if info.ID == args.ConnectionID || string(info.Key) == args.ConnectionID {
				n, err = s.gw.Release(ctx, info.Kind, info.Key)
				break
			}
		}
	case kind != "":
		n, err = s.gw.ReleaseKind(ctx, kind)
	default:
		n, err = s.gw.ReleaseAll(ctx)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Closed %d connection(s)", n), nil
}

func (s *MCPServer) listTables(ctx context.Context, raw json.RawMessage) (string, error) {
	var args targetArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	cfg, err := args.config()
	if err != nil {
		return "", err
	}
	names, err := s.gw.ListTables(ctx, cfg)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "No tables found", nil
	}
	return fmt.Sprintf("Tables (%d):\n- %s", len(names), strings.Join(names, "\n- ")), nil
}

func (s *MCPServer) describeTable(ctx context.Context, raw json.RawMessage) (string, error) {
	var args describeArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	cfg, err := args.config()
	if err != nil {
		return "", err
	}
	r, err := s.gw.DescribeTable(ctx, cfg, args.TableName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Table %s:\n\n%s", args.TableName, result.Render(r)), nil
}

func (s *MCPServer) exportTable(ctx context.Context, raw json.RawMessage) (string, error) {
	var args exportTableArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	cfg, err := args.config()
	if err != nil {
		return "", err
	}
	f, err := s.exporter.Table(ctx, cfg, args.TableName, export.TableOptions{
		Limit:      args.Limit,
		OutputPath: args.OutputPath,
		NoHeader:   args.IncludeHeaders != nil && !*args.IncludeHeaders,
	})
	if err != nil {
		return "", err
	}
	return f.String(), nil
}

func (s *MCPServer) exportQuery(ctx context.Context, raw json.RawMessage) (string, error) {
	var args exportQueryArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	cfg, err := args.config()
	if err != nil {
		return "", err
	}
	f, err := s.exporter.Query(ctx, cfg, args.Query, args.Filename, args.OutputPath)
	if err != nil {
		return "", err
	}
	return f.String(), nil
}

func (s *MCPServer) exportAll(ctx context.Context, raw json.RawMessage) (string, error) {
	var args exportAllArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	cfg, err := args.config()
	if err != nil {
		return "", err
	}
	b, err := s.exporter.AllTables(ctx, cfg, args.OutputDirectory)
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// Schema helpers

func schema(properties map[string]Property, required ...string) InputSchema {
	if required == nil {
		required = []string{}
	}
	return InputSchema{Type: "object", Properties: properties, Required: required}
}

func props(sets ...map[string]Property) map[string]Property {
	out := make(map[string]Property)
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}

func str(desc string) Property     { return Property{Type: "string", Description: desc} }
func num(desc string) Property     { return Property{Type: "number", Description: desc} }
func boolean(desc string) Property { return Property{Type: "boolean", Description: desc} }
func obj(desc string) Property     { return Property{Type: "object", Description: desc} }
func arr(desc string) Property     { return Property{Type: "array", Description: desc} }

func netProps(port int, user string) map[string]Property {
	userDesc := "Username (optional)"
	if user != "" {
		userDesc = fmt.Sprintf("Username (default: %s)", user)
	}
	return map[string]Property{
		"host":     {Type: "string", Description: "Host (default: localhost)"},
		"port":     {Type: "number", Description: fmt.Sprintf("Port (default: %d)", port)},
		"username": {Type: "string", Description: userDesc},
		"password": {Type: "string", Description: "Password"},
	}
}

func targetProps() map[string]Property {
	return props(netProps(backend.DefaultPostgresPort, backend.DefaultPostgresUser), map[string]Property{
		"database_type":     str("sqlite, postgresql, mysql or mongodb (default: postgresql)"),
		"database_path":     str("SQLite database file"),
		"database":          str("Database name"),
		"connection_string": str("MongoDB connection string (optional)"),
		"sslmode":           str("PostgreSQL SSL mode (default: disable)"),
	})
}
