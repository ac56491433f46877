package mongodb

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/txn2/mcp-data-gateway/pkg/query"
)

func TestBsonTypeName(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{bson.Null{}, "null"},
		{"hello", "string"},
		{true, "bool"},
		{int32(1), "int"},
		{int64(1), "long"},
		{1.5, "double"},
		{bson.NewObjectID(), "objectId"},
		{bson.NewDateTimeFromTime(time.Now()), "date"},
		{bson.Binary{Data: []byte{1}}, "binData"},
		{bson.A{"a"}, "array"},
		{bson.M{"k": "v"}, "object"},
		{bson.D{{Key: "k", Value: "v"}}, "object"},
	}
	for _, tc := range tests {
		if got := bsonTypeName(tc.in); got != tc.want {
			t.Errorf("bsonTypeName(%T) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEffectiveSampleSize(t *testing.T) {
	kit := &Toolkit{config: Config{SampleSize: 100}}

	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"zero falls back to configured default", 0, 100},
		{"negative falls back to configured default", -5, 100},
		{"explicit value honored", 25, 25},
		{"clamped at the cap", maxSampleSize + 500, maxSampleSize},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := kit.effectiveSampleSize(tc.requested); got != tc.want {
				t.Errorf("effectiveSampleSize(%d) = %d, want %d", tc.requested, got, tc.want)
			}
		})
	}
}

func TestAccumulateSchema(t *testing.T) {
	docs := []bson.D{
		{
			{Key: "_id", Value: bson.NewObjectID()},
			{Key: "name", Value: "ada"},
			{Key: "age", Value: int32(36)},
		},
		{
			{Key: "_id", Value: bson.NewObjectID()},
			{Key: "name", Value: "grace"},
			{Key: "age", Value: int64(44)},
			{Key: "note", Value: "pioneer"},
		},
	}

	schema := accumulateSchema("people", docs)

	if schema.Empty {
		t.Fatal("Empty = true for a non-empty sample")
	}
	if schema.SampleSize != 2 || schema.TotalFields != 4 {
		t.Errorf("SampleSize = %d, TotalFields = %d, want 2 and 4", schema.SampleSize, schema.TotalFields)
	}

	wantOrder := []string{"_id", "name", "age", "note"}
	for i, want := range wantOrder {
		if schema.Fields[i].Name != want {
			t.Errorf("Fields[%d].Name = %q, want %q", i, schema.Fields[i].Name, want)
		}
	}

	age := schema.Fields[2]
	if len(age.Types) != 2 || age.Types[0] != "int" || age.Types[1] != "long" {
		t.Errorf("age Types = %v, want [int long]", age.Types)
	}
	if len(age.SampleValues) != 2 {
		t.Errorf("age SampleValues = %v, want two entries", age.SampleValues)
	}
}

func TestAccumulateSchema_FieldOrderIsStable(t *testing.T) {
	docs := []bson.D{
		{
			{Key: "alpha", Value: "a"},
			{Key: "beta", Value: "b"},
			{Key: "gamma", Value: "c"},
			{Key: "delta", Value: "d"},
		},
	}

	first := accumulateSchema("c", docs)
	for range 20 {
		again := accumulateSchema("c", docs)
		for i := range first.Fields {
			if again.Fields[i].Name != first.Fields[i].Name {
				t.Fatalf("field order varies across calls: %q vs %q at %d",
					again.Fields[i].Name, first.Fields[i].Name, i)
			}
		}
	}
}

func TestAccumulateSchema_EmptyCollection(t *testing.T) {
	schema := accumulateSchema("empty", nil)
	if !schema.Empty {
		t.Error("Empty = false for an empty sample")
	}
	if schema.SampleSize != 0 || len(schema.Fields) != 0 {
		t.Errorf("SampleSize = %d, Fields = %v, want zero and none", schema.SampleSize, schema.Fields)
	}
}

func TestStringFields(t *testing.T) {
	schema := &query.Schema{
		Fields: []query.SchemaField{
			{Name: "name", Types: []string{"string"}},
			{Name: "age", Types: []string{"int", "long"}},
			{Name: "note", Types: []string{"null", "string"}},
			{Name: "ref", Types: []string{"objectId"}},
		},
	}

	got := stringFields(schema)
	if len(got) != 2 || got[0] != "name" || got[1] != "note" {
		t.Errorf("stringFields() = %v, want [name note]", got)
	}
}
