package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/conn"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
)

// MongoHandle is a client bound to one database.
type MongoHandle struct {
	Client   *mongo.Client
	Database string
}

func (h *MongoHandle) DB() *mongo.Database { return h.Client.Database(h.Database) }

func (h *MongoHandle) Ping(ctx context.Context) error {
	return h.Client.Ping(ctx, readpref.Primary())
}

func (h *MongoHandle) Close(ctx context.Context) error { return h.Client.Disconnect(ctx) }

// Mongo runs document operations through the official driver.
type Mongo struct {
	maxRows int
}

func NewMongo(opts Options) *Mongo { return &Mongo{maxRows: opts.MaxRows} }

func (a *Mongo) Kind() backend.Kind { return backend.MongoDB }

func (a *Mongo) Open(ctx context.Context, cfg backend.Config) (conn.Handle, error) {
	opts := options.Client().ApplyURI(cfg.MongoURI())
	if deadline, ok := ctx.Deadline(); ok {
		opts.SetServerSelectionTimeout(time.Until(deadline))
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	h := &MongoHandle{Client: client, Database: cfg.Database}
	if err := h.Ping(ctx); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return h, nil
}

// ListCollections returns the collection names of the handle's database.
func (a *Mongo) ListCollections(ctx context.Context, h conn.Handle) ([]string, error) {
	mh, ok := h.(*MongoHandle)
	if !ok {
		return nil, wrongHandle(backend.MongoDB, h)
	}
	names, err := mh.DB().ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, errors.Query(backend.MongoDB, "listing collections", err)
	}
	return names, nil
}

type docOptions struct {
	Limit      *int64          `json:"limit"`
	Skip       *int64          `json:"skip"`
	Sort       json.RawMessage `json:"sort"`
	Projection json.RawMessage `json:"projection"`
	Upsert     *bool           `json:"upsert"`
}

func (a *Mongo) Execute(ctx context.Context, h conn.Handle, d Descriptor) (*result.Result, error) {
	q := d.Document
	if q == nil {
		return nil, errors.Invalid(backend.MongoDB, "document operation is required")
	}
	op, err := ParseDocOp(q.Operation)
	if err != nil {
		return nil, errors.Query(backend.MongoDB, err.Error(), nil)
	}
	if q.Collection == "" {
		return nil, errors.Invalid(backend.MongoDB, "collection is required")
	}
	mh, ok := h.(*MongoHandle)
	if !ok {
		return nil, wrongHandle(backend.MongoDB, h)
	}

	var opts docOptions
	if len(q.Options) > 0 && string(q.Options) != "null" {
		if err := json.Unmarshal(q.Options, &opts); err != nil {
			return nil, errors.Query(backend.MongoDB, "invalid options", err)
		}
	}

	coll := mh.DB().Collection(q.Collection)
	r, err := a.run(ctx, coll, op, q, opts)
	if err != nil {
		return nil, errors.Query(backend.MongoDB, fmt.Sprintf("%s on %s failed", op, q.Collection), err)
	}
	r.Operation = op
	return r, nil
}

func (a *Mongo) run(ctx context.Context, coll *mongo.Collection, op result.DocOp, q *DocQuery, opts docOptions) (*result.Result, error) {
	switch op {
	case result.OpFind:
		filter, err := ToDoc(q.Filter)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		fo := options.Find()
		if opts.Limit != nil {
			fo.SetLimit(*opts.Limit)
		} else if a.maxRows > 0 {
			// One extra so truncation can be detected.
			fo.SetLimit(int64(a.maxRows) + 1)
		}
		if opts.Skip != nil {
			fo.SetSkip(*opts.Skip)
		}
		if len(opts.Sort) > 0 {
			order, err := ToDoc(opts.Sort)
			if err != nil {
				return nil, fmt.Errorf("sort: %w", err)
			}
			fo.SetSort(order)
		}
		if len(opts.Projection) > 0 {
			proj, err := ToDoc(opts.Projection)
			if err != nil {
				return nil, fmt.Errorf("projection: %w", err)
			}
			fo.SetProjection(proj)
		}
		cur, err := coll.Find(ctx, filter, fo)
		if err != nil {
			return nil, err
		}
		return a.readAll(ctx, cur)

	case result.OpInsertOne:
		doc, err := ToDoc(q.Document)
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		res, err := coll.InsertOne(ctx, doc)
		if err != nil {
			return nil, err
		}
		r := result.NewWrite(1)
		r.InsertedIDs = []any{NormalizeBSON(res.InsertedID)}
		return r, nil

	case result.OpInsertMany:
		docs, err := ToDocs(q.Document)
		if err != nil {
			return nil, fmt.Errorf("documents: %w", err)
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("insertMany needs at least one document")
		}
		res, err := coll.InsertMany(ctx, docs)
		if err != nil {
			return nil, err
		}
		r := result.NewWrite(int64(len(res.InsertedIDs)))
		for _, id := range res.InsertedIDs {
			r.InsertedIDs = append(r.InsertedIDs, NormalizeBSON(id))
		}
		return r, nil

	case result.OpUpdateOne:
		filter, err := ToDoc(q.Filter)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		update, err := ToDoc(q.Update)
		if err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
		uo := options.Update()
		if opts.Upsert != nil {
			uo.SetUpsert(*opts.Upsert)
		}
		res, err := coll.UpdateOne(ctx, filter, update, uo)
		if err != nil {
			return nil, err
		}
		r := result.NewWrite(res.ModifiedCount)
		r.Matched = res.MatchedCount
		if res.UpsertedID != nil {
			r.UpsertedID = NormalizeBSON(res.UpsertedID)
		}
		return r, nil

	case result.OpDeleteOne:
		filter, err := ToDoc(q.Filter)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		res, err := coll.DeleteOne(ctx, filter)
		if err != nil {
			return nil, err
		}
		return result.NewWrite(res.DeletedCount), nil

	case result.OpAggregate:
		stages, err := ToDocs(q.PipelineJSON())
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		cur, err := coll.Aggregate(ctx, mongo.Pipeline(toStages(stages)))
		if err != nil {
			return nil, err
		}
		return a.readAll(ctx, cur)
	}
	return nil, fmt.Errorf("unsupported operation %q", op)
}

func (a *Mongo) readAll(ctx context.Context, cur *mongo.Cursor) (*result.Result, error) {
	defer cur.Close(ctx)
	records := make([]result.Record, 0)
	truncated := false
	for cur.Next(ctx) {
		if a.maxRows > 0 && len(records) >= a.maxRows {
			truncated = true
			break
		}
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, DocToRecord(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	r := result.NewRead(nil, records)
	r.Document = true
	r.Truncated = truncated
	return r, nil
}

// WritesOutput reports whether any stage is $out or $merge.
func WritesOutput(stages []any) bool {
	for _, s := range stages {
		d, ok := s.(bson.D)
		if !ok || len(d) == 0 {
			continue
		}
		if d[0].Key == "$out" || d[0].Key == "$merge" {
			return true
		}
	}
	return false
}

func toStages(docs []any) []bson.D {
	stages := make([]bson.D, 0, len(docs))
	for _, d := range docs {
		if s, ok := d.(bson.D); ok {
			stages = append(stages, s)
		}
	}
	return stages
}

// ToDoc parses relaxed extended JSON into an ordered document. Empty input
// and null yield an empty document.
func ToDoc(raw json.RawMessage) (bson.D, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return bson.D{}, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ToDocs parses a JSON array of documents. A single object is accepted as a
// one-element array.
func ToDocs(raw json.RawMessage) ([]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	// Extended JSON must be a document at the top level.
	wrapped := append(append([]byte(`{"v":`), raw...), '}')
	var holder struct {
		V bson.RawValue `bson:"v"`
	}
	if err := bson.UnmarshalExtJSON(wrapped, false, &holder); err != nil {
		return nil, err
	}
	switch holder.V.Type {
	case bson.TypeEmbeddedDocument:
		var d bson.D
		if err := holder.V.Unmarshal(&d); err != nil {
			return nil, err
		}
		return []any{d}, nil
	case bson.TypeArray:
		vals, err := holder.V.Array().Values()
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(vals))
		for i, v := range vals {
			var d bson.D
			if err := v.Unmarshal(&d); err != nil {
				return nil, fmt.Errorf("element %d is not a document: %w", i, err)
			}
			out = append(out, d)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a document or an array of documents")
}

// DocToRecord converts a decoded document into a Record, keeping key order.
func DocToRecord(doc bson.D) result.Record {
	rec := make(result.Record, len(doc))
	for i, e := range doc {
		rec[i] = result.Field{Key: e.Key, Value: NormalizeBSON(e.Value)}
	}
	return rec
}

// NormalizeBSON turns driver types into plain values that render cleanly.
func NormalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.D:
		return DocToRecord(t)
	case bson.A:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = NormalizeBSON(x)
		}
		return out
	case bson.M:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := make(bson.D, 0, len(t))
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: t[k]})
		}
		return DocToRecord(d)
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Decimal128:
		return t.String()
	case primitive.Binary:
		return fmt.Sprintf("Binary(%d bytes)", len(t.Data))
	case primitive.Regex:
		return t.String()
	case primitive.Timestamp:
		return fmt.Sprintf("Timestamp(%d, %d)", t.T, t.I)
	}
	return v
}
