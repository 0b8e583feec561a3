// Buildd is the project-build orchestration daemon.
//
// It exposes an HTTP API for starting builds, polling their progress, and
// chatting with the intent router. Each build runs a six-phase pipeline
// (research, plan, code, test, deploy, complete) asynchronously against the
// configured providers.
//
// Configuration is loaded from ~/.config/buildd/config.yaml and BUILDD_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	buildd
//
//	# Configure via environment
//	BUILDD_SERVER_PORT=8844 BUILDD_GITHUB_TOKEN=ghp_... buildd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/paceworks/buildd/internal/config"
	httpapi "github.com/paceworks/buildd/internal/http"
	"github.com/paceworks/buildd/internal/logging"
	"github.com/paceworks/buildd/internal/metrics"
	"github.com/paceworks/buildd/internal/pipeline"
	"github.com/paceworks/buildd/internal/provider/llm"
	"github.com/paceworks/buildd/internal/provider/repohost"
	"github.com/paceworks/buildd/internal/provider/search"
	"github.com/paceworks/buildd/internal/provider/telegram"
	"github.com/paceworks/buildd/internal/registry"
	"github.com/paceworks/buildd/internal/status"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/buildd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  buildd           Start the buildd daemon\n")
			fmt.Fprintf(os.Stderr, "  buildd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("buildd %s (commit %s, built %s)\n", version, gitCommit, buildDate)
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("buildd starting",
		zap.String("version", version),
		zap.String("commit", gitCommit),
	)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics := metrics.New(promReg)

	store := registry.NewMemoryStore()

	searchClient := search.New(cfg.Search, logger.Named("search"))

	llmClient, err := llm.New(cfg.LLM, logger.Named("llm"))
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}

	var publisher pipeline.Publisher
	if cfg.GitHub.Token.IsSet() {
		repoClient, err := repohost.New(ctx, cfg.GitHub, logger.Named("repohost"))
		if err != nil {
			return fmt.Errorf("failed to create repohost client: %w", err)
		}
		publisher = repoClient
	} else {
		logger.Warn("github token not configured, builds will fail at the deploy phase")
	}

	notifier := telegram.New(cfg.Telegram, logger.Named("telegram"))
	reporter := status.NewReporter(notifier, logger.Named("status"))

	executor, err := pipeline.New(pipeline.Options{
		Store:           store,
		Search:          searchClient,
		Generate:        llmClient,
		Publish:         publisher,
		Reporter:        reporter,
		Metrics:         pipelineMetrics,
		Logger:          logger.Named("pipeline"),
		PhaseTimeout:    cfg.Pipeline.PhaseTimeout.Duration(),
		RepoSettleDelay: cfg.Pipeline.RepoSettleDelay.Duration(),
		PrivateRepos:    cfg.Pipeline.PrivateRepos,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline executor: %w", err)
	}

	server, err := httpapi.NewServer(executor, store, logger.Named("http"), &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, promReg)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
