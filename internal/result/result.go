// Package result holds the normalised shape every backend produces and the
// text rendering handed back to the calling agent.
package result

import (
	"bytes"
	"encoding/json"
)

// Kind tells a row-returning read from a mutation.
type Kind string

const (
	Read  Kind = "read"
	Write Kind = "write"
)

// Field is one named value of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is a single row or document. Field order is the column order reported
// by the driver, or the key order stored in the document.
type Record []Field

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// At returns the value of column i when the field at that position is named
// key, so duplicate column names keep their own values. Documents whose keys
// do not line up with the columns fall back to Get.
func (r Record) At(i int, key string) (any, bool) {
	if i < len(r) && r[i].Key == key {
		return r[i].Value, true
	}
	return r.Get(key)
}

// MarshalJSON encodes the record as an object, preserving field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DocOp names the document operation that produced a result. It is empty for
// SQL results.
type DocOp string

const (
	OpFind       DocOp = "find"
	OpInsertOne  DocOp = "insertOne"
	OpInsertMany DocOp = "insertMany"
	OpUpdateOne  DocOp = "updateOne"
	OpDeleteOne  DocOp = "deleteOne"
	OpAggregate  DocOp = "aggregate"
)

// Result is the normalised outcome of a query or document operation.
//
// For reads Count equals len(Rows). For writes Count is the affected row or
// document count reported by the backend, which may be zero.
type Result struct {
	Kind    Kind     `json:"kind"`
	Count   int64    `json:"count"`
	Columns []string `json:"columns,omitempty"`
	Rows    []Record `json:"rows,omitempty"`

	// LastInsertID is set when the driver reports one (sqlite, mysql).
	LastInsertID *int64 `json:"last_insert_id,omitempty"`
	InsertedIDs  []any  `json:"inserted_ids,omitempty"`
	// Matched and UpsertedID are only meaningful for updateOne.
	Matched    int64 `json:"matched,omitempty"`
	UpsertedID any   `json:"upserted_id,omitempty"`

	// Truncated is set when a row limit cut the read short.
	Truncated bool  `json:"truncated,omitempty"`
	Document  bool  `json:"document,omitempty"`
	Operation DocOp `json:"operation,omitempty"`
}

// NewRead builds a read result; Count is derived from rows.
func NewRead(columns []string, rows []Record) *Result {
	return &Result{Kind: Read, Count: int64(len(rows)), Columns: columns, Rows: rows}
}

// NewWrite builds a write result with the backend-reported count.
func NewWrite(count int64) *Result {
	return &Result{Kind: Write, Count: count}
}

// IsRead reports whether the result carries rows.
func (r *Result) IsRead() bool { return r.Kind == Read }
