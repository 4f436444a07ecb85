package adapter

import (
	"context"
	"database/sql"
	"math"
	"strings"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
	"github.com/shakram02/go-mcp-db-gateway/internal/sqltext"
)

// SQLHandle is a database/sql pool for one database.
type SQLHandle struct {
	DB       *sql.DB
	Kind     backend.Kind
	Database string
}

func (h *SQLHandle) Ping(ctx context.Context) error { return h.DB.PingContext(ctx) }

func (h *SQLHandle) Close(context.Context) error { return h.DB.Close() }

// sqlExecutor is shared by the three SQL adapters.
type sqlExecutor struct {
	kind    backend.Kind
	maxRows int
	// lastInsertID is false for drivers that cannot report one (lib/pq).
	lastInsertID bool
}

func (x sqlExecutor) execute(ctx context.Context, db *sql.DB, q *SQLQuery) (*result.Result, error) {
	if q == nil || strings.TrimSpace(q.Query) == "" {
		return nil, errors.Invalid(x.kind, "query is required")
	}
	args := normalizeParams(q.Params)

	if sqltext.IsRead(x.kind, q.Query) {
		cols, rows, truncated, err := queryRecords(ctx, db, q.Query, args, x.maxRows)
		if err != nil {
			return nil, errors.Query(x.kind, "query failed", err)
		}
		r := result.NewRead(cols, rows)
		r.Truncated = truncated
		return r, nil
	}

	res, err := db.ExecContext(ctx, q.Query, args...)
	if err != nil {
		return nil, errors.Query(x.kind, "statement failed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Query(x.kind, "reading affected rows", err)
	}
	r := result.NewWrite(affected)
	if x.lastInsertID && isInsert(x.kind, q.Query) {
		if id, err := res.LastInsertId(); err == nil {
			r.LastInsertID = &id
		}
	}
	return r, nil
}

// queryRecords reads every row of query, stopping after maxRows when it is
// positive.
func queryRecords(ctx context.Context, db *sql.DB, query string, args []any, maxRows int) ([]string, []result.Record, bool, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, false, err
	}

	records := make([]result.Record, 0)
	truncated := false
	for rows.Next() {
		if maxRows > 0 && len(records) >= maxRows {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, false, err
		}
		rec := make(result.Record, len(columns))
		for i, col := range columns {
			rec[i] = result.Field{Key: col, Value: normalizeValue(values[i])}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, err
	}
	return columns, records, truncated, nil
}

// normalizeValue converts driver values into JSON-friendly ones.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// normalizeParams binds integral JSON numbers as integers; every other value
// is passed through.
func normalizeParams(params []any) []any {
	out := make([]any, len(params))
	for i, p := range params {
		if f, ok := p.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			out[i] = int64(f)
			continue
		}
		out[i] = p
	}
	return out
}

func isInsert(k backend.Kind, query string) bool {
	switch sqltext.LeadingKeyword(k, query) {
	case "INSERT", "REPLACE":
		return true
	}
	return false
}
