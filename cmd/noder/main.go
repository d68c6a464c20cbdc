// ABOUTME: CLI entrypoint for the noder workflow graph server with server and validate modes.
// ABOUTME: Wires together configuration, the document mirror, HTTP serving, and signal handling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/2389-research/noder/graph"
	"github.com/2389-research/noder/graph/validator"
	"github.com/2389-research/noder/workflow/server"
	"github.com/2389-research/noder/workflow/store"
)

var version = "dev"

// config holds all CLI configuration parsed from flags and positional arguments.
type config struct {
	serverMode   bool
	validateOnly bool
	showVersion  bool
	workflowFile string
}

func main() {
	if err := server.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("noder %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated config.
func parseFlags() config {
	var cfg config

	fs := flag.NewFlagSet("noder", flag.ContinueOnError)
	fs.BoolVar(&cfg.serverMode, "server", false, "Start HTTP server mode")
	fs.BoolVar(&cfg.validateOnly, "validate", false, "Lint a workflow file without serving")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(os.Stderr, version)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if fs.NArg() > 0 {
		cfg.workflowFile = fs.Arg(0)
	}

	return cfg
}

// run dispatches to the appropriate mode based on the config.
// Returns an exit code: 0 for success, 1 for failure.
func run(cfg config) int {
	if cfg.serverMode {
		return runServer()
	}

	if cfg.workflowFile == "" {
		printHelp(os.Stderr, version)
		return 0
	}

	return validateWorkflow(cfg)
}

// runServer starts the HTTP workflow server with the mirror named by the
// environment configuration.
func runServer() int {
	srvCfg, err := server.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	mirror, closeMirror, err := buildMirror(srvCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeMirror()

	srv := server.NewServer(srvCfg, mirror)

	stopCleanup := srv.Sessions().StartCleanup(10 * time.Minute)
	defer stopCleanup()

	// Set up context with signal handling for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	httpServer := &http.Server{
		Addr:              srvCfg.Bind,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	fmt.Fprintf(os.Stderr, "listening on %s\n", srvCfg.Bind)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return 0
}

// buildMirror constructs the document mirror named by the config. The
// returned close function releases any underlying database handle.
func buildMirror(cfg *server.Config) (store.Mirror, func(), error) {
	switch cfg.Mirror {
	case server.MirrorSqlite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		m, err := store.OpenSqlite(filepath.Join(cfg.DataDir, "mirror.db"))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite mirror: %w", err)
		}
		return m, func() { _ = m.Close() }, nil
	default:
		return store.NewMemoryMirror(), func() {}, nil
	}
}

// validateWorkflow parses and lints a workflow document file without serving it.
func validateWorkflow(cfg config) int {
	data, err := os.ReadFile(cfg.workflowFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	doc, err := graph.ParseDocument(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	diags := validator.Lint(doc, graph.BuiltinRegistry(nil))

	hasErrors := false
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "[%s] %s", d.Severity, d.Message)
		if d.NodeID != "" {
			fmt.Fprintf(os.Stderr, " (node: %s)", d.NodeID)
		}
		if d.EdgeID != "" {
			fmt.Fprintf(os.Stderr, " (edge: %s)", d.EdgeID)
		}
		fmt.Fprintln(os.Stderr)

		if d.Severity == "error" {
			hasErrors = true
		}
	}

	if hasErrors {
		fmt.Fprintf(os.Stderr, "Validation failed.\n")
		return 1
	}

	fmt.Println("Workflow is valid.")
	return 0
}
