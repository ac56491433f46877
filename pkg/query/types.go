// Package query provides the shared request model, validation policy, and
// execution orchestration for the read-only data gateway.
//
//nolint:revive // package contains related DTO types
package query

import "time"

// Spec describes a single read request against one backend. Exactly one of
// Filter, Pipeline, or SQL is set depending on the backend family; Target is
// the collection or table name.
type Spec struct {
	Target   string           `json:"target,omitempty"`
	Filter   map[string]any   `json:"filter,omitempty"`
	Pipeline []map[string]any `json:"pipeline,omitempty"`
	SQL      string           `json:"sql,omitempty"`
	Limit    int              `json:"limit,omitempty"`
	Timeout  time.Duration    `json:"timeout,omitempty"`
}

// Verdict is the outcome of validating a Spec before any backend contact.
// Allowed=false must prevent any subsequent adapter call for the request.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns a passing verdict.
func Allow() Verdict {
	return Verdict{Allowed: true}
}

// Deny returns a failing verdict with a reason.
func Deny(reason string) Verdict {
	return Verdict{Allowed: false, Reason: reason}
}

// SchemaField describes one field or column of a backend schema. For sampled
// schemas Types holds every type tag observed across the sample and
// SampleValues holds up to three truncated example values.
type SchemaField struct {
	Name         string   `json:"field"`
	Types        []string `json:"types"`
	Nullable     *bool    `json:"nullable,omitempty"`
	Default      string   `json:"default,omitempty"`
	SampleValues []string `json:"sample_values,omitempty"`
}

// Schema is the canonical cross-backend schema shape: the collection or table
// identifier, the total field count, and the ordered per-field descriptors.
//
// Schemas produced by document-store sampling are probabilistic, not
// authoritative: fields absent from the sample are not reported, and a field's
// type set reflects only the sampled documents. Empty reports whether the
// collection had no documents to sample; an empty collection is an explicit
// result, never a zero-field success.
type Schema struct {
	Target      string        `json:"target"`
	TotalFields int           `json:"total_fields"`
	Fields      []SchemaField `json:"fields"`
	Sampled     bool          `json:"sampled,omitempty"`
	SampleSize  int           `json:"sample_size,omitempty"`
	Empty       bool          `json:"empty,omitempty"`
}

// ForeignKeyEdge is one referential-constraint edge read from a relational
// catalog, recomputed per request.
type ForeignKeyEdge struct {
	SourceColumn     string `json:"source_column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// Result holds canonical rows returned by a successful execution. Rows are in
// backend order; an empty result set is a valid success.
type Result struct {
	Rows  []map[string]any `json:"rows"`
	Count int              `json:"count"`
}
