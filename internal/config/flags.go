package config

import (
	"flag"
	"fmt"
	"os"
)

// ParseFlags parses command-line flags for the "server" subcommand and
// returns a Config. Returns an error if flag parsing fails.
//
// CLI argument parsing is an external collaborator per the daemon's
// specification; this glue exists only so the pipeline components below
// have something to construct them from. It intentionally mirrors the
// flag names of the original daemon's "server" command.
func ParseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Default()

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `linehaul server [flags] <TABLE>

TABLE is "projectId.datasetId.tableId".

Flags:
`)
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.BindAddress, "bind", cfg.BindAddress, "Address to bind the TCP listener")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "TCP port to listen on")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "Required prefix token for inbound lines (empty disables auth)")

	fs.IntVar(&cfg.MaxLineSize, "max-line-size", cfg.MaxLineSize, "Maximum accepted syslog line length in bytes")
	fs.IntVar(&cfg.RecvSize, "recv-size", cfg.RecvSize, "Socket read chunk size in bytes")

	fs.DurationVar(&cfg.CleanupTimeout, "cleanup-timeout", cfg.CleanupTimeout, "Grace period for draining a connection on shutdown")

	fs.IntVar(&cfg.QueuedEvents, "queued-events", cfg.QueuedEvents, "Capacity of the bounded event queue")

	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Maximum events per batch")
	fs.DurationVar(&cfg.BatchTimeout, "batch-timeout", cfg.BatchTimeout, "Maximum time an incomplete batch waits before shipping")

	fs.IntVar(&cfg.RetryMaxAttempts, "retry-max-attempts", cfg.RetryMaxAttempts, "Maximum delivery attempts per batch")
	fs.DurationVar(&cfg.RetryMaxWait, "retry-max-wait", cfg.RetryMaxWait, "Cap on the decorrelated-jitter backoff sleep")
	fs.Float64Var(&cfg.RetryMultiplier, "retry-multiplier", cfg.RetryMultiplier, "Backoff base multiplier")

	fs.DurationVar(&cfg.APITimeout, "api-timeout", cfg.APITimeout, "Per-request HTTP timeout to the warehouse API")
	fs.IntVar(&cfg.APIMaxConnections, "api-max-connections", cfg.APIMaxConnections, "Shipper worker pool size / outbound connection cap")

	fs.StringVar(&cfg.CredentialsFile, "credentials-file", cfg.CredentialsFile, "Path to a service-account JSON credentials file")
	fs.StringVar(&cfg.CredentialsBlob, "credentials-blob", cfg.CredentialsBlob, "Base64-encoded service-account JSON credentials")

	fs.StringVar(&cfg.StatsdHost, "datadog-host", cfg.StatsdHost, "DogStatsD host")
	fs.IntVar(&cfg.StatsdPort, "datadog-port", cfg.StatsdPort, "DogStatsD port")
	fs.StringVar(&cfg.StatsdNamespace, "datadog-namespace", cfg.StatsdNamespace, "DogStatsD metric namespace prefix")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Optional Prometheus /metrics listen address (disabled if empty)")

	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose (debug) logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if rest := fs.Args(); len(rest) >= 1 {
		cfg.Table = rest[0]
	}

	return cfg, nil
}
