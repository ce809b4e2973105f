// Command linehaul runs the telemetry ingestion daemon: a "server"
// subcommand that listens for syslog-framed download events and ships
// them to the warehouse, and a "migrate" subcommand that synchronizes
// the destination table's schema. Subcommand dispatch with independent
// flag.FlagSets is grounded on the teacher's (since-removed)
// cmd/go-ffmpeg-hls-swarm/main.go entry-point structure, generalized
// from a single-mode CLI to two subcommands so config.ParseFlags's
// FlagSet can't be parsed twice against the global flag.CommandLine.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dstufft/linehaul/internal/bigquery"
	"github.com/dstufft/linehaul/internal/config"
	"github.com/dstufft/linehaul/internal/linehaulerr"
	"github.com/dstufft/linehaul/internal/listener"
	"github.com/dstufft/linehaul/internal/logging"
	"github.com/dstufft/linehaul/internal/metrics"
	"github.com/dstufft/linehaul/internal/tokencache"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "server":
		err = runServer(os.Args[2:])
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "linehaul:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: linehaul <server|migrate> [flags] <TABLE>

TABLE is "projectId.datasetId.tableId".`)
}

func runServer(args []string) error {
	fs := newFlagSet("server")
	cfg, err := config.ParseFlags(fs, args)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return &linehaulerr.ConfigError{Err: err}
	}

	logger := logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	logging.SetDefault(logger)
	logger.Info("starting linehaul server", "config", config.Redact(cfg))

	creds, err := bigquery.LoadCredentials(cfg.CredentialsFile, cfg.CredentialsBlob)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	sink, err := metrics.New(fmt.Sprintf("%s:%d", cfg.StatsdHost, cfg.StatsdPort), cfg.StatsdNamespace, logger)
	if err != nil {
		return fmt.Errorf("configuring metrics sink: %w", err)
	}
	defer sink.Close()

	authHTTPClient := &http.Client{Timeout: cfg.APITimeout}
	minter := bigquery.NewMinter(creds, authHTTPClient)
	tokens := tokencache.New(minter.Mint)

	insertHTTPClient := &http.Client{Timeout: cfg.APITimeout}
	endpoint := insertAllEndpoint(cfg.Table)
	client := bigquery.NewClient(insertHTTPClient, endpoint)

	var promServer *metrics.Server
	if cfg.MetricsAddr != "" {
		collector, reg := metrics.NewCollector()
		sink.SetCollector(collector)
		promServer = metrics.NewServer(cfg.MetricsAddr, reg, logger)
		promServer.Start()
	}

	pipeline := listener.New(listener.Config{
		BindAddr:          fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Token:             cfg.Token,
		MaxLineSize:       cfg.MaxLineSize,
		RecvSize:          cfg.RecvSize,
		CleanupTimeout:    cfg.CleanupTimeout,
		QueuedEvents:      cfg.QueuedEvents,
		BatchSize:         cfg.BatchSize,
		BatchTimeout:      cfg.BatchTimeout,
		RetryMaxAttempts:  cfg.RetryMaxAttempts,
		RetryMaxWait:      cfg.RetryMaxWait,
		RetryMultiplier:   cfg.RetryMultiplier,
		APIMaxConnections: cfg.APIMaxConnections,
		Client:            client,
		Tokens:            tokens,
		Metrics:           sink,
		Logger:            logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := pipeline.Run(ctx)

	if promServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := promServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown error", "error", err)
		}
	}

	logger.Info("linehaul server stopped")
	return runErr
}

func runMigrate(args []string) error {
	fs := newFlagSet("migrate")
	credentialsFile := fs.String("credentials-file", "", "Path to a service-account JSON credentials file")
	credentialsBlob := fs.String("credentials-blob", "", "Base64-encoded service-account JSON credentials")
	apiTimeout := fs.Duration("api-timeout", 30*time.Second, "Per-request HTTP timeout to the warehouse API")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "linehaul migrate [flags] <TABLE>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fs.Usage()
		return fmt.Errorf("TABLE argument is required")
	}
	table := rest[0]

	creds, err := bigquery.LoadCredentials(*credentialsFile, *credentialsBlob)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	httpClient := &http.Client{Timeout: *apiTimeout}
	minter := bigquery.NewMinter(creds, httpClient)

	ctx, cancel := context.WithTimeout(context.Background(), *apiTimeout)
	defer cancel()

	tok, err := minter.Mint(ctx)
	if err != nil {
		return fmt.Errorf("minting token: %w", err)
	}

	if err := bigquery.Migrate(ctx, httpClient, tablesPatchEndpoint(table), tok); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	fmt.Printf("synchronized schema for %s\n", table)
	return nil
}
