// Package shipper implements the shipper (spec §4.5): a fixed worker
// pool that pulls Batches off a handoff channel and delivers them to the
// warehouse API, retrying transient failures with decorrelated-jitter
// backoff and handling 401/403 token rejection by invalidating the
// cached token and retrying immediately. Grounded structurally on
// other_examples/dac78216_PilotFiber-icmp-mon__agent-internal-shipper-shipper.go.go
// (buffer/flush/ship shape), with the single buffered shipper replaced
// by a fixed-size worker pool per spec §4.5 step "A fixed worker pool of
// size api_max_connections."
package shipper

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/dstufft/linehaul/internal/batch"
	"github.com/dstufft/linehaul/internal/linehaulerr"
	"github.com/dstufft/linehaul/internal/metrics"
	"github.com/dstufft/linehaul/internal/parser"
	"github.com/dstufft/linehaul/internal/tokencache"
)

// InsertClient is the narrow interface the shipper needs against the
// warehouse client (matches bigquery.Client.Insert), so tests can
// substitute a fake without standing up an HTTP server.
type InsertClient interface {
	Insert(ctx context.Context, tok *oauth2.Token, events []parser.DownloadEvent) (droppedRows int, err error)
}

// Shipper owns a fixed pool of delivery workers.
type Shipper struct {
	PoolSize int

	In     <-chan *batch.Batch
	Client InsertClient
	Tokens *tokencache.Cache

	BackoffConfig    BackoffConfig
	RetryMaxAttempts int

	Metrics *metrics.Sink
	Logger  *slog.Logger

	wg sync.WaitGroup
}

// Run starts PoolSize workers, each consuming batches from In until it is
// closed, then blocks until all workers have finished their in-flight
// deliveries.
func (s *Shipper) Run(ctx context.Context) {
	n := s.PoolSize
	if n <= 0 {
		n = 1
	}
	s.wg.Add(n)
	for i := 0; i < n; i++ {
		seed := time.Now().UnixNano() ^ int64(i)
		go func(seed int64) {
			defer s.wg.Done()
			s.worker(ctx, seed)
		}(seed)
	}
	s.wg.Wait()
}

func (s *Shipper) worker(ctx context.Context, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for b := range s.In {
		s.deliver(ctx, b, rng)
	}
}

func (s *Shipper) deliver(ctx context.Context, b *batch.Batch, rng *rand.Rand) {
	bo := &Backoff{config: s.BackoffConfig, rng: rng}

	for {
		tok, err := s.Tokens.Get(ctx)
		if err != nil {
			if !s.waitOrDrop(ctx, bo, b, err) {
				return
			}
			continue
		}

		dropped, err := s.timedInsert(ctx, tok, b.Events)
		if err == nil {
			sent := len(b.Events) - dropped
			s.metricCount("bigquery.rows.sent", int64(sent))
			if dropped > 0 {
				s.metricCount("bigquery.rows.dropped", int64(dropped))
				if s.Logger != nil {
					s.Logger.Warn("warehouse rejected rows within an accepted batch", "dropped", dropped, "batch_size", len(b.Events))
				}
			}
			s.metricIncr("bigquery.batches.sent")
			return
		}

		var authErr *linehaulerr.AuthTokenRejected
		if errors.As(err, &authErr) {
			s.Tokens.Invalidate()
			bo.Reset()
			s.metricIncr("bigquery.auth.rejected")
			continue
		}

		var permErr *linehaulerr.PermanentAPIError
		if errors.As(err, &permErr) {
			s.metricIncr("bigquery.batches.dropped")
			if s.Logger != nil {
				s.Logger.Error("dropping batch after permanent warehouse error", "status", permErr.StatusCode, "batch_size", len(b.Events))
			}
			return
		}

		if !s.waitOrDrop(ctx, bo, b, err) {
			return
		}
	}
}

// waitOrDrop sleeps for the next backoff interval and returns true to
// retry, or drops the batch (logging and counting it) and returns false
// once retry_max_attempts attempts (the initial one plus retries) have
// been made or ctx is done.
func (s *Shipper) waitOrDrop(ctx context.Context, bo *Backoff, b *batch.Batch, cause error) bool {
	if bo.Attempts()+1 >= s.RetryMaxAttempts {
		s.metricIncr("bigquery.batches.dropped")
		if s.Logger != nil {
			s.Logger.Error("dropping batch after exhausting retries", "attempts", bo.Attempts()+1, "batch_size", len(b.Events), "error", cause)
		}
		return false
	}

	s.metricIncr("bigquery.batches.retried")
	wait := bo.Next()
	select {
	case <-time.After(wait):
		return true
	case <-ctx.Done():
		s.metricIncr("bigquery.batches.dropped")
		return false
	}
}

// timedInsert wraps a single warehouse HTTP call in a bigquery.request.duration
// timing scope (spec §6), using the Sink's decorator-style Timed helper so
// the metric is recorded on every exit path.
func (s *Shipper) timedInsert(ctx context.Context, tok *oauth2.Token, events []parser.DownloadEvent) (int, error) {
	if s.Metrics != nil {
		s.Metrics.DeliveryStarted()
		defer s.Metrics.DeliveryFinished()
		done := s.Metrics.Timed("bigquery.request.duration")
		defer done()
	}
	return s.Client.Insert(ctx, tok, events)
}

func (s *Shipper) metricIncr(name string) {
	if s.Metrics != nil {
		s.Metrics.Incr(name)
	}
}

func (s *Shipper) metricCount(name string, n int64) {
	if s.Metrics != nil {
		s.Metrics.Count(name, n)
	}
}
