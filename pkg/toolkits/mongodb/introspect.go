package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/txn2/mcp-data-gateway/pkg/canonical"
	"github.com/txn2/mcp-data-gateway/pkg/query"
)

const maxSampleValuesPerField = 3

// listCollections returns the collection names of the configured database.
func (t *Toolkit) listCollections(ctx context.Context, client *mongo.Client) ([]string, error) {
	names, err := client.Database(t.config.Database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return names, nil
}

// inferSchema samples documents from a collection and accumulates, per
// field, the set of observed type tags and a few truncated example values.
// Field order follows first observation across the sample; documents are
// decoded as bson.D so that order is the documents' own key order, not map
// iteration order. The result is approximate: fields absent from the sample
// are not reported. A sampleSize of zero or less falls back to the
// configured default; values above the cap are clamped.
func (t *Toolkit) inferSchema(ctx context.Context, client *mongo.Client, collection string, sampleSize int) (*query.Schema, error) {
	coll := client.Database(t.config.Database).Collection(collection)

	pipeline := []bson.D{
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: t.effectiveSampleSize(sampleSize)}}}},
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sampling collection: %w", err)
	}
	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("reading sample: %w", err)
	}

	return accumulateSchema(collection, docs), nil
}

// effectiveSampleSize resolves a per-call sample size against the configured
// default and the hard cap.
func (t *Toolkit) effectiveSampleSize(requested int) int {
	if requested <= 0 {
		return t.config.SampleSize
	}
	if requested > maxSampleSize {
		return maxSampleSize
	}
	return requested
}

// accumulateSchema folds sampled documents into per-field descriptors.
func accumulateSchema(collection string, docs []bson.D) *query.Schema {
	schema := &query.Schema{
		Target:     collection,
		Sampled:    true,
		SampleSize: len(docs),
	}
	if len(docs) == 0 {
		schema.Empty = true
		return schema
	}

	index := map[string]int{}
	for _, doc := range docs {
		for _, elem := range doc {
			i, seen := index[elem.Key]
			if !seen {
				i = len(schema.Fields)
				index[elem.Key] = i
				schema.Fields = append(schema.Fields, query.SchemaField{Name: elem.Key})
			}
			field := &schema.Fields[i]

			tag := bsonTypeName(elem.Value)
			if !contains(field.Types, tag) {
				field.Types = append(field.Types, tag)
			}
			if len(field.SampleValues) < maxSampleValuesPerField {
				field.SampleValues = append(field.SampleValues,
					canonical.TruncateSample(fmt.Sprintf("%v", canonical.Value(elem.Value))))
			}
		}
	}

	schema.TotalFields = len(schema.Fields)
	return schema
}

// stringFields returns the fields of the sampled schema that were observed
// holding string values, used to scope keyword search.
func stringFields(schema *query.Schema) []string {
	var fields []string
	for _, f := range schema.Fields {
		if contains(f.Types, "string") {
			fields = append(fields, f.Name)
		}
	}
	return fields
}

// bsonTypeName maps a decoded BSON value to its wire type tag.
func bsonTypeName(v any) string {
	switch v.(type) {
	case nil, bson.Null:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int32:
		return "int"
	case int64:
		return "long"
	case float64:
		return "double"
	case bson.ObjectID:
		return "objectId"
	case bson.DateTime:
		return "date"
	case bson.Decimal128:
		return "decimal"
	case bson.Binary, []byte:
		return "binData"
	case bson.A, []any:
		return "array"
	case bson.M, bson.D, map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
