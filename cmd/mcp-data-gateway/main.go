// Package main provides the entry point for the mcp-data-gateway server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcpserver "github.com/txn2/mcp-data-gateway/internal/server"
	"github.com/txn2/mcp-data-gateway/pkg/platform"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type serverOptions struct {
	configPath  string
	transport   string
	address     string
	showVersion bool
}

func parseFlags() serverOptions {
	opts := serverOptions{}
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.transport, "transport", "", "Transport type: stdio, http")
	flag.StringVar(&opts.address, "address", "", "Server address for HTTP transport")
	flag.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	flag.Parse()
	return opts
}

func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

func createPlatform(opts serverOptions) (*platform.Platform, error) {
	if opts.configPath != "" {
		return mcpserver.NewWithConfig(opts.configPath)
	}
	return mcpserver.NewFromEnv()
}

func run() error {
	opts := parseFlags()

	if opts.showVersion {
		fmt.Printf("mcp-data-gateway version %s\n", mcpserver.Version)
		return nil
	}

	ctx := setupSignalHandler()

	p, err := createPlatform(opts)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	defer func() { _ = p.Close() }()

	// Flags beat config file settings.
	transport := p.Config().Server.Transport
	if opts.transport != "" {
		transport = opts.transport
	}
	address := p.Config().Server.Address
	if opts.address != "" {
		address = opts.address
	}

	switch transport {
	case "stdio":
		return p.MCPServer().Run(ctx, &mcp.StdioTransport{})
	case "http":
		return serveHTTP(ctx, p, address)
	default:
		return fmt.Errorf("unknown transport %q", transport)
	}
}

// serveHTTP serves the MCP streamable-HTTP endpoint alongside health probes
// and shuts down gracefully when the context is canceled.
func serveHTTP(ctx context.Context, p *platform.Platform, address string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return p.MCPServer()
	}, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", p.Health().LivenessHandler())
	mux.HandleFunc("/readyz", p.Health().ReadinessHandler())
	mux.Handle("/", handler)

	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		p.Health().SetDraining()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return nil
	}
}
