// Command libsqld runs the libSQL HTTP protocol gateway, with serve and
// sql-shell subcommands.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/horos/libsqld-gateway/internal/authadapt"
	"github.com/horos/libsqld-gateway/internal/config"
	"github.com/horos/libsqld-gateway/internal/executor"
	"github.com/horos/libsqld-gateway/internal/httpapi"
	"github.com/horos/libsqld-gateway/internal/obslog"
	"github.com/horos/libsqld-gateway/internal/obsmetrics"
	"github.com/horos/libsqld-gateway/internal/pipeline"
	"github.com/horos/libsqld-gateway/internal/sqliteexec"
	"github.com/horos/libsqld-gateway/internal/sqlshell"
	"github.com/horos/libsqld-gateway/internal/stream"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		runServe(os.Args[1:])
		return
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "sql-shell":
		runShell(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		runServe(os.Args[1:])
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a JSON config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	obslog.Configure(cfg.LogFormat, cfg.LogLevel)
	log := obslog.L()

	backend, err := sqliteexec.Open(cfg.DBPath)
	if err != nil {
		log.Error("open backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	ctx := context.Background()
	if err := backend.Checkpoint(ctx); err != nil {
		log.Warn("checkpoint failed", "error", err)
	}
	if err := backend.Migrate(ctx, cfg.MigrationsDir); err != nil {
		log.Error("migrate", "error", err)
		os.Exit(1)
	}

	exec := executor.New(backend)
	registry := stream.New(cfg.StreamIdleTimeout, cfg.BatonBytes)
	defer registry.Shutdown()
	engine := pipeline.New(exec)

	var metrics *obsmetrics.Collector
	if cfg.MetricsEnabled {
		metrics = obsmetrics.NewCollector(nil)
	}

	srv := &httpapi.Server{
		Streams:             registry,
		Engine:              engine,
		Executor:            exec,
		Metrics:             metrics,
		MaxPipelineRequests: cfg.MaxPipelineRequests,
		StartedAt:           time.Now(),
	}
	var handler http.Handler = srv.NewMux()

	if cfg.AuthEnabled {
		tokens := tokensFromEnv()
		authenticator := authadapt.NewBearerAuthenticator(tokens)
		handler = authadapt.Middleware(authenticator, []string{"/health", "/version"})(handler)
	}

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("serve", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
}

func runShell(args []string) {
	fs := flag.NewFlagSet("sql-shell", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to the backend SQLite file")
	query := fs.String("q", "", "run a single query and exit")
	fs.Parse(args)

	sh := sqlshell.New(*dbPath)
	if *query != "" {
		if err := sh.Run(*query); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if err := sh.Interactive(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func tokensFromEnv() map[string]string {
	tokens := make(map[string]string)
	if v := os.Getenv("LIBSQLD_AUTH_TOKEN"); v != "" {
		tokens[v] = os.Getenv("LIBSQLD_AUTH_IDENTITY")
		if tokens[v] == "" {
			tokens[v] = "default"
		}
	}
	return tokens
}
