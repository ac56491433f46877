package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/txn2/mcp-data-gateway/pkg/audit"
	"github.com/txn2/mcp-data-gateway/pkg/canonical"
	"github.com/txn2/mcp-data-gateway/pkg/query"
	"github.com/txn2/mcp-data-gateway/pkg/toolkit"
)

const (
	statsSampleDocs = 5

	// Per-tool row limits applied when the caller does not request one.
	defaultFindLimit      = 10
	defaultAggregateLimit = 50
)

type listCollectionsInput struct{}

type getSchemaInput struct {
	Collection string `json:"collection"`
	SampleSize int    `json:"sample_size,omitempty"`
}

type findInput struct {
	Collection     string         `json:"collection"`
	Filter         map[string]any `json:"filter,omitempty"`
	Limit          int            `json:"limit,omitempty"`
	TimeoutSeconds int            `json:"timeout_seconds,omitempty"`
}

type aggregateInput struct {
	Collection     string           `json:"collection"`
	Pipeline       []map[string]any `json:"pipeline"`
	Limit          int              `json:"limit,omitempty"`
	TimeoutSeconds int              `json:"timeout_seconds,omitempty"`
}

type sampleInput struct {
	Collection string `json:"collection"`
	Limit      int    `json:"limit,omitempty"`
}

type countInput struct {
	Collection string `json:"collection"`
}

type searchInput struct {
	Collection string `json:"collection"`
	Keyword    string `json:"keyword"`
	Limit      int    `json:"limit,omitempty"`
}

type collectionStatsInput struct {
	Collection string `json:"collection"`
}

func (t *Toolkit) handleListCollections(ctx context.Context, _ *mcp.CallToolRequest, _ listCollectionsInput) (*mcp.CallToolResult, any, error) {
	var names []string
	err := t.introspect(ctx, "mongodb_list_collections", "", func(ctx context.Context, client *mongo.Client) error {
		var opErr error
		names, opErr = t.listCollections(ctx, client)
		return opErr
	})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	if names == nil {
		names = []string{}
	}
	return toolkit.JSONResult(map[string]any{"collections": names, "count": len(names)})
}

func (t *Toolkit) handleGetSchema(ctx context.Context, _ *mcp.CallToolRequest, in getSchemaInput) (*mcp.CallToolResult, any, error) {
	collection, err := query.SanitizeIdentifier(in.Collection)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}

	var schema *query.Schema
	err = t.introspect(ctx, "mongodb_get_schema", collection, func(ctx context.Context, client *mongo.Client) error {
		var opErr error
		schema, opErr = t.inferSchema(ctx, client, collection, in.SampleSize)
		return opErr
	})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	if schema.Empty {
		return toolkit.JSONResult(map[string]any{
			"collection": collection,
			"empty":      true,
			"info":       fmt.Sprintf("collection %q is empty", collection),
		})
	}
	return toolkit.JSONResult(schema)
}

func (t *Toolkit) handleFind(ctx context.Context, _ *mcp.CallToolRequest, in findInput) (*mcp.CallToolResult, any, error) {
	collection, err := query.SanitizeIdentifier(in.Collection)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	filter := in.Filter
	if filter == nil {
		filter = map[string]any{}
	}
	limit := in.Limit
	if limit == 0 {
		limit = defaultFindLimit
	}

	spec := query.Spec{
		Target:  collection,
		Filter:  filter,
		Limit:   limit,
		Timeout: time.Duration(in.TimeoutSeconds) * time.Second,
	}
	result, err := t.executor.Execute(ctx, "mongodb_find", spec,
		func(ctx context.Context, client *mongo.Client, fetchLimit int) ([]map[string]any, error) {
			coll := client.Database(t.config.Database).Collection(collection)
			cursor, err := coll.Find(ctx, filter, options.Find().SetLimit(int64(fetchLimit)))
			if err != nil {
				return nil, err
			}
			return decodeDocs(ctx, cursor)
		})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	return toolkit.JSONResult(result)
}

func (t *Toolkit) handleAggregate(ctx context.Context, _ *mcp.CallToolRequest, in aggregateInput) (*mcp.CallToolResult, any, error) {
	collection, err := query.SanitizeIdentifier(in.Collection)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}

	limit := in.Limit
	if limit == 0 {
		limit = defaultAggregateLimit
	}

	spec := query.Spec{
		Target:   collection,
		Pipeline: in.Pipeline,
		Limit:    limit,
		Timeout:  time.Duration(in.TimeoutSeconds) * time.Second,
	}
	result, err := t.executor.Execute(ctx, "mongodb_aggregate", spec,
		func(ctx context.Context, client *mongo.Client, fetchLimit int) ([]map[string]any, error) {
			// The caller's pipeline is trailed by a $limit stage so the
			// result bound holds regardless of the stages before it.
			stages := make([]bson.M, 0, len(in.Pipeline)+1)
			for _, stage := range in.Pipeline {
				stages = append(stages, bson.M(stage))
			}
			stages = append(stages, bson.M{"$limit": fetchLimit})

			coll := client.Database(t.config.Database).Collection(collection)
			cursor, err := coll.Aggregate(ctx, stages)
			if err != nil {
				return nil, err
			}
			return decodeDocs(ctx, cursor)
		})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	return toolkit.JSONResult(result)
}

func (t *Toolkit) handleSample(ctx context.Context, _ *mcp.CallToolRequest, in sampleInput) (*mcp.CallToolResult, any, error) {
	collection, err := query.SanitizeIdentifier(in.Collection)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}

	spec := query.Spec{Target: collection, Limit: in.Limit}
	result, err := t.executor.Execute(ctx, "mongodb_sample", spec,
		func(ctx context.Context, client *mongo.Client, fetchLimit int) ([]map[string]any, error) {
			coll := client.Database(t.config.Database).Collection(collection)
			cursor, err := coll.Aggregate(ctx, []bson.M{
				{"$sample": bson.M{"size": fetchLimit}},
			})
			if err != nil {
				return nil, err
			}
			return decodeDocs(ctx, cursor)
		})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	return toolkit.JSONResult(result)
}

func (t *Toolkit) handleCount(ctx context.Context, _ *mcp.CallToolRequest, in countInput) (*mcp.CallToolResult, any, error) {
	collection, err := query.SanitizeIdentifier(in.Collection)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}

	var count int64
	err = t.introspect(ctx, "mongodb_count", collection, func(ctx context.Context, client *mongo.Client) error {
		var opErr error
		count, opErr = client.Database(t.config.Database).Collection(collection).CountDocuments(ctx, bson.D{})
		return opErr
	})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	return toolkit.JSONResult(map[string]any{"collection": collection, "document_count": count})
}

func (t *Toolkit) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, any, error) {
	collection, err := query.SanitizeIdentifier(in.Collection)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	if in.Keyword == "" {
		return toolkit.ErrorResult("keyword is required"), nil, nil
	}

	noStringFields := false
	spec := query.Spec{Target: collection, Limit: in.Limit}
	result, err := t.executor.Execute(ctx, "mongodb_search", spec,
		func(ctx context.Context, client *mongo.Client, fetchLimit int) ([]map[string]any, error) {
			schema, err := t.inferSchema(ctx, client, collection, 0)
			if err != nil {
				return nil, err
			}
			fields := stringFields(schema)
			if len(fields) == 0 {
				noStringFields = true
				return nil, nil
			}

			pattern := regexp.QuoteMeta(in.Keyword)
			conditions := make([]bson.M, 0, len(fields))
			for _, field := range fields {
				conditions = append(conditions, bson.M{
					field: bson.M{"$regex": pattern, "$options": "i"},
				})
			}

			coll := client.Database(t.config.Database).Collection(collection)
			cursor, err := coll.Find(ctx, bson.M{"$or": conditions},
				options.Find().SetLimit(int64(fetchLimit)))
			if err != nil {
				return nil, err
			}
			return decodeDocs(ctx, cursor)
		})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	if noStringFields {
		return toolkit.JSONResult(map[string]any{"info": "no searchable string fields found"})
	}
	return toolkit.JSONResult(result)
}

func (t *Toolkit) handleCollectionStats(ctx context.Context, _ *mcp.CallToolRequest, in collectionStatsInput) (*mcp.CallToolResult, any, error) {
	collection, err := query.SanitizeIdentifier(in.Collection)
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}

	stats := map[string]any{}
	var sample []map[string]any
	err = t.introspect(ctx, "mongodb_collection_stats", collection, func(ctx context.Context, client *mongo.Client) error {
		db := client.Database(t.config.Database)

		var statsDoc bson.M
		cmd := bson.D{{Key: "collStats", Value: collection}}
		if err := db.RunCommand(ctx, cmd).Decode(&statsDoc); err != nil {
			return fmt.Errorf("fetching collection stats: %w", err)
		}
		for _, key := range []string{"count", "size", "avgObjSize", "storageSize", "nindexes", "totalIndexSize"} {
			if v, ok := statsDoc[key]; ok {
				stats[key] = canonical.Value(v)
			}
		}

		cursor, err := db.Collection(collection).Aggregate(ctx, []bson.M{
			{"$sample": bson.M{"size": statsSampleDocs}},
		})
		if err != nil {
			return fmt.Errorf("sampling collection: %w", err)
		}
		sample, err = decodeDocs(ctx, cursor)
		return err
	})
	if err != nil {
		return toolkit.ErrorResultFrom(err), nil, nil
	}
	return toolkit.JSONResult(map[string]any{
		"collection":  collection,
		"stats":       stats,
		"sample_docs": sample,
	})
}

// decodeDocs drains a cursor and converts each document to its canonical
// representation.
func decodeDocs(ctx context.Context, cursor *mongo.Cursor) ([]map[string]any, error) {
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		out = append(out, canonical.Document(doc))
	}
	return out, nil
}

// introspect runs a metadata operation on a pooled session with the same
// scoped-release, timeout classification, and audit guarantees as query
// execution.
func (t *Toolkit) introspect(ctx context.Context, tool, target string, fn func(ctx context.Context, client *mongo.Client) error) error {
	start := time.Now()
	err := t.pool.WithSession(ctx, func(ctx context.Context, client *mongo.Client) error {
		opCtx, cancel := context.WithTimeout(ctx, t.config.MaxQueryTime)
		defer cancel()
		return fn(opCtx, client)
	})
	err = query.Classify("mongodb", err)
	t.auditIntrospect(tool, target, start, err)
	return err
}

func (t *Toolkit) auditIntrospect(tool, target string, start time.Time, err error) {
	if t.auditor == nil {
		return
	}
	duration := time.Since(start)
	if err != nil {
		t.auditor.Log(audit.NewEvent(audit.SeverityError, err.Error()).
			WithTool(tool, "mongodb").
			WithTarget(target).
			WithResult(false, string(query.KindOf(err)), duration))
		return
	}
	t.auditor.Log(audit.NewEvent(audit.SeverityInfo, "introspection completed").
		WithTool(tool, "mongodb").
		WithTarget(target).
		WithResult(true, "", duration))
}
