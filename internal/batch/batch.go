// Package batch implements the batcher (spec §4.4): it accumulates
// parsed events from the queue into Batches, handing each off to the
// shipper when it reaches batch_size or batch_timeout elapses since the
// batch's first event, whichever comes first. Grounded on
// other_examples/dac78216_PilotFiber-icmp-mon__agent-internal-shipper-shipper.go.go's
// Run loop (ticker/flush-signal/shutdown select), adapted from a
// single-buffer-with-ticker design to one that times each batch from its
// own first event rather than a fixed wall-clock ticker, per spec §4.4's
// "timer starts when the first event is added to a new batch."
package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/dstufft/linehaul/internal/parser"
)

// Batch is a group of events accumulated for one delivery attempt.
type Batch struct {
	Events          []parser.DownloadEvent
	FirstEnqueuedAt time.Time
}

// Batcher reads events from In and writes completed Batches to Out.
type Batcher struct {
	In  <-chan parser.DownloadEvent
	Out chan<- *Batch

	BatchSize    int
	BatchTimeout time.Duration

	Logger *slog.Logger
}

// Run drains In until it is closed or ctx is done, handing off Batches
// to Out as they fill or time out. On shutdown it flushes any
// in-progress batch using a detached context (so the final handoff is
// not itself cut off by ctx's cancellation) and then closes Out, which
// signals the shipper pool to drain and exit once its workers finish
// in-flight deliveries.
func (b *Batcher) Run(ctx context.Context) {
	var current *Batch
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C
		}

		select {
		case ev, ok := <-b.In:
			if !ok {
				if current != nil {
					b.handoff(context.Background(), current)
				}
				close(b.Out)
				return
			}
			if current == nil {
				current = &Batch{FirstEnqueuedAt: time.Now()}
				timer = time.NewTimer(b.BatchTimeout)
			}
			current.Events = append(current.Events, ev)
			if len(current.Events) >= b.BatchSize {
				b.handoff(ctx, current)
				current = nil
				if timer != nil {
					timer.Stop()
					timer = nil
				}
			}

		case <-timerC:
			timer = nil
			if current != nil {
				b.handoff(ctx, current)
				current = nil
			}

		case <-ctx.Done():
			if current != nil {
				b.handoff(context.Background(), current)
			}
			close(b.Out)
			return
		}
	}
}

func (b *Batcher) handoff(ctx context.Context, batch *Batch) {
	select {
	case b.Out <- batch:
	case <-ctx.Done():
		if b.Logger != nil {
			b.Logger.Warn("dropped batch on shutdown deadline", "events", len(batch.Events))
		}
	}
}
