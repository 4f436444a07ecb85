package creator

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/shakram02/go-mcp-db-gateway/internal/adapter"
	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/observe"
)

func (c *Creator) createMongo(ctx context.Context, req Request, out *Outcome) error {
	cfg := req.Config
	cfg.Database = req.Name
	lease, err := c.gw.Acquire(ctx, cfg, req.ForceNew)
	if err != nil {
		return err
	}
	defer lease.Release()
	mh, ok := lease.Handle().(*adapter.MongoHandle)
	if !ok {
		return errors.Connection(backend.MongoDB, fmt.Sprintf("unexpected handle %T", lease.Handle()), nil)
	}

	names, err := mh.Client.ListDatabaseNames(ctx, bson.D{{Key: "name", Value: req.Name}})
	if err != nil {
		return errors.Query(backend.MongoDB, "listing databases", err)
	}
	db := mh.DB()
	if len(names) > 0 {
		if !req.Overwrite {
			return exists(backend.MongoDB, req.Name)
		}
		if err := db.Drop(ctx); err != nil {
			return errors.Query(backend.MongoDB, "dropping existing database", err)
		}
		out.Replaced = true
	}

	for _, coll := range req.Collections {
		if err := db.CreateCollection(ctx, coll); err != nil {
			return errors.Query(backend.MongoDB, fmt.Sprintf("creating collection %q", coll), err)
		}
	}

	colls := make([]string, 0, len(req.Documents))
	for coll := range req.Documents {
		colls = append(colls, coll)
	}
	sort.Strings(colls)
	for _, coll := range colls {
		docs, err := adapter.ToDocs(req.Documents[coll])
		if err != nil {
			return errors.Invalid(backend.MongoDB, fmt.Sprintf("sample_data for %q: %v", coll, err))
		}
		if len(docs) == 0 {
			continue
		}
		if _, err := db.Collection(coll).InsertMany(ctx, docs); err != nil {
			return errors.Query(backend.MongoDB, fmt.Sprintf("inserting sample data into %q", coll), err)
		}
		out.Data = true
	}

	out.Location = observe.Mask(cfg.MongoURI())
	out.Database = req.Name
	out.Collections = len(req.Collections)
	return nil
}
