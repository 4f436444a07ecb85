// Package adapter runs queries and document operations against a live handle
// and normalises what comes back. There is one Adapter per backend kind; each
// also knows how to open and ping its own kind of handle.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/conn"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
)

// Adapter is the per-backend contract.
type Adapter interface {
	Kind() backend.Kind

	// Open connects and pings. It never returns a handle that failed to ping.
	Open(ctx context.Context, cfg backend.Config) (conn.Handle, error)

	// Execute runs d on h. Any backend fault is returned as a query error.
	Execute(ctx context.Context, h conn.Handle, d Descriptor) (*result.Result, error)
}

// Descriptor is the payload of one request. Exactly one of SQL and Document
// is set, matching the adapter's kind.
type Descriptor struct {
	SQL      *SQLQuery
	Document *DocQuery
}

// SQLQuery is a raw statement with positional parameters.
type SQLQuery struct {
	Query  string
	Params []any
}

// DocQuery is a structured document operation. Filter, Document, Update,
// Pipeline and Options hold (extended) JSON exactly as the caller sent it so
// that key order survives into the driver.
type DocQuery struct {
	Collection string
	Operation  string
	Filter     json.RawMessage
	Document   json.RawMessage
	Update     json.RawMessage
	Pipeline   json.RawMessage
	Options    json.RawMessage
}

// PipelineJSON returns the aggregation pipeline, falling back to an
// array-valued Filter.
func (q *DocQuery) PipelineJSON() json.RawMessage {
	if len(q.Pipeline) > 0 {
		return q.Pipeline
	}
	return q.Filter
}

// Options apply to every adapter.
type Options struct {
	// MaxRows caps the rows kept from a read. Zero means unlimited.
	MaxRows int
}

// All returns one adapter per supported kind.
func All(opts Options) map[backend.Kind]Adapter {
	return map[backend.Kind]Adapter{
		backend.SQLite:   NewSQLite(opts),
		backend.Postgres: NewPostgres(opts),
		backend.MySQL:    NewMySQL(opts),
		backend.MongoDB:  NewMongo(opts),
	}
}

// Openers exposes adapters as the manager's openers.
func Openers(adapters map[backend.Kind]Adapter) map[backend.Kind]conn.Opener {
	out := make(map[backend.Kind]conn.Opener, len(adapters))
	for k, a := range adapters {
		out[k] = a
	}
	return out
}

func wrongHandle(k backend.Kind, h conn.Handle) error {
	return errors.Query(k, fmt.Sprintf("unexpected handle type %T", h), nil)
}
