// Package mongodb provides the MongoDB backend toolkit for the data gateway:
// read-only document queries, aggregation with write-stage blocking, and
// sampling-based schema inference over pooled sessions.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/txn2/mcp-data-gateway/pkg/audit"
	"github.com/txn2/mcp-data-gateway/pkg/pool"
	"github.com/txn2/mcp-data-gateway/pkg/query"
)

const connectProbeTimeout = 5 * time.Second

// Toolkit wraps a MongoDB backend for the gateway. Each pooled session owns
// its own client so checkout grants exclusive use of one server connection.
type Toolkit struct {
	name     string
	config   Config
	pool     *pool.Pool[*mongo.Client]
	executor *query.Executor[*mongo.Client]
	auditor  *audit.Logger
}

// New creates a MongoDB toolkit and probes the backend by opening the pool's
// minimum sessions. A probe failure is returned as an error; the caller
// exits rather than running degraded.
func New(name string, cfg Config, auditor *audit.Logger) (*Toolkit, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectProbeTimeout)
	defer cancel()

	p, err := pool.New(ctx, pool.Config{
		Backend: "mongodb",
		MinSize: cfg.PoolMin,
		MaxSize: cfg.PoolMax,
		Policy:  cfg.PoolPolicy,
	}, sessionFactory(cfg), closeSession)
	if err != nil {
		return nil, err
	}

	return &Toolkit{
		name:     name,
		config:   cfg,
		pool:     p,
		executor: query.NewExecutor("mongodb", p, cfg.Limits(), auditor),
		auditor:  auditor,
	}, nil
}

// sessionFactory dials one single-connection client per pooled session and
// verifies it with a ping before handing it out.
func sessionFactory(cfg Config) pool.Factory[*mongo.Client] {
	return func(ctx context.Context) (*mongo.Client, error) {
		opts := options.Client().
			ApplyURI(cfg.URI()).
			SetMaxPoolSize(1).
			SetServerSelectionTimeout(connectProbeTimeout)
		client, err := mongo.Connect(opts)
		if err != nil {
			return nil, fmt.Errorf("connecting to mongodb: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("pinging mongodb: %w", err)
		}
		return client, nil
	}
}

func closeSession(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectProbeTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "mongodb"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// RegisterTools registers MongoDB tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        "mongodb_list_collections",
		Description: "List all collections in the configured database.",
	}, t.handleListCollections)
	mcp.AddTool(s, &mcp.Tool{
		Name: "mongodb_get_schema",
		Description: "Infer a collection's schema by sampling documents. Field names, observed " +
			"types, and truncated sample values are reported; rare fields may be missed. " +
			"Accepts an optional sample_size overriding the configured default.",
	}, t.handleGetSchema)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "mongodb_find",
		Description: "Run a read-only find query against a collection with an enforced result limit.",
	}, t.handleFind)
	mcp.AddTool(s, &mcp.Tool{
		Name: "mongodb_aggregate",
		Description: "Run a read-only aggregation pipeline. Write stages such as $out and $merge " +
			"are rejected; a result limit is appended to the pipeline.",
	}, t.handleAggregate)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "mongodb_sample",
		Description: "Return randomly sampled documents from a collection.",
	}, t.handleSample)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "mongodb_count",
		Description: "Return the total number of documents in a collection.",
	}, t.handleCount)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "mongodb_search",
		Description: "Search for a keyword across the string fields of a collection.",
	}, t.handleSearch)
	mcp.AddTool(s, &mcp.Tool{
		Name:        "mongodb_collection_stats",
		Description: "Return storage statistics and sample documents for a collection.",
	}, t.handleCollectionStats)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{
		"mongodb_list_collections",
		"mongodb_get_schema",
		"mongodb_find",
		"mongodb_aggregate",
		"mongodb_sample",
		"mongodb_count",
		"mongodb_search",
		"mongodb_collection_stats",
	}
}

// Close releases the pool, disconnecting every session client.
func (t *Toolkit) Close() error {
	return t.pool.Close()
}

// Verify interface compliance.
var _ interface {
	Kind() string
	Name() string
	RegisterTools(s *mcp.Server)
	Tools() []string
	Close() error
} = (*Toolkit)(nil)
