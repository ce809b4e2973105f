// Package listener wires the accept loop, batcher, and shipper pool
// together into one running pipeline and coordinates graceful shutdown.
// The "wait for the dependent goroutines, each with a done channel"
// shape is grounded on the teacher's (since-removed)
// internal/orchestrator/client_manager.go Shutdown method.
package listener

import (
	"context"
	"log/slog"
	"time"

	"github.com/dstufft/linehaul/internal/batch"
	"github.com/dstufft/linehaul/internal/ingest"
	"github.com/dstufft/linehaul/internal/metrics"
	"github.com/dstufft/linehaul/internal/parser"
	"github.com/dstufft/linehaul/internal/shipper"
	"github.com/dstufft/linehaul/internal/tokencache"
)

// Pipeline owns the three long-running stages and the channels between
// them (spec §5 "Pipeline topology"): ingest.Listener -> queue ->
// batch.Batcher -> handoff -> shipper.Shipper.
type Pipeline struct {
	Ingest  *ingest.Listener
	Batcher *batch.Batcher
	Shipper *shipper.Shipper

	CleanupTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Sink

	queue chan parser.DownloadEvent
}

// queueDepthReportInterval is how often Run samples the ingest queue's
// length for the queue.depth gauge (spec §6).
const queueDepthReportInterval = time.Second

// New builds a Pipeline from its configuration, allocating the queue and
// handoff channels that connect the three stages.
func New(cfg Config) *Pipeline {
	queue := make(chan parser.DownloadEvent, cfg.QueuedEvents)
	handoff := make(chan *batch.Batch, cfg.APIMaxConnections)

	il := &ingest.Listener{
		Addr:           cfg.BindAddr,
		Queue:          queue,
		Token:          cfg.Token,
		MaxLineSize:    cfg.MaxLineSize,
		RecvSize:       cfg.RecvSize,
		CleanupTimeout: cfg.CleanupTimeout,
		Metrics:        cfg.Metrics,
		Logger:         cfg.Logger,
	}

	b := &batch.Batcher{
		In:           queue,
		Out:          handoff,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		Logger:       cfg.Logger,
	}

	s := &shipper.Shipper{
		PoolSize: cfg.APIMaxConnections,
		In:       handoff,
		Client:   cfg.Client,
		Tokens:   cfg.Tokens,
		BackoffConfig: shipper.BackoffConfig{
			MaxWait:    cfg.RetryMaxWait,
			Multiplier: cfg.RetryMultiplier,
		},
		RetryMaxAttempts: cfg.RetryMaxAttempts,
		Metrics:          cfg.Metrics,
		Logger:           cfg.Logger,
	}

	return &Pipeline{
		Ingest:         il,
		Batcher:        b,
		Shipper:        s,
		CleanupTimeout: cfg.CleanupTimeout,
		Logger:         cfg.Logger,
		Metrics:        cfg.Metrics,
		queue:          queue,
	}
}

// Config collects everything Pipeline needs to construct its stages.
type Config struct {
	BindAddr          string
	Token             string
	MaxLineSize       int
	RecvSize          int
	CleanupTimeout    time.Duration
	QueuedEvents      int
	BatchSize         int
	BatchTimeout      time.Duration
	RetryMaxAttempts  int
	RetryMaxWait      time.Duration
	RetryMultiplier   float64
	APIMaxConnections int

	Client  shipper.InsertClient
	Tokens  *tokencache.Cache
	Metrics *metrics.Sink
	Logger  *slog.Logger
}

// Run binds the listener socket and starts all three stages. It blocks
// until ctx is canceled, then drains in dependency order: stop accepting
// new connections and let in-flight ones finish draining, close the
// queue so the batcher flushes its final partial batch, then let the
// shipper pool empty its handoff channel before returning.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Ingest.Listen(); err != nil {
		return err
	}

	batcherDone := make(chan struct{})
	shipperDone := make(chan struct{})

	// The batcher and shipper run on a context that is never canceled:
	// they stop when the queue, and then the handoff channel, is closed.
	go func() {
		p.Batcher.Run(context.Background())
		close(batcherDone)
	}()
	go func() {
		p.Shipper.Run(context.Background())
		close(shipperDone)
	}()
	go p.reportQueueDepth(ctx)

	p.Ingest.Serve(ctx)
	close(p.queue)

	<-batcherDone
	<-shipperDone
	return nil
}

// reportQueueDepth polls the ingest queue's length into the queue.depth
// gauge (spec §6) until ctx is canceled.
func (p *Pipeline) reportQueueDepth(ctx context.Context) {
	if p.Metrics == nil {
		return
	}
	ticker := time.NewTicker(queueDepthReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Metrics.QueueDepth(len(p.queue))
		case <-ctx.Done():
			return
		}
	}
}
