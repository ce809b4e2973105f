package batch

import (
	"context"
	"testing"
	"time"

	"github.com/dstufft/linehaul/internal/parser"
)

func runBatcher(t *testing.T, batchSize int, batchTimeout time.Duration) (in chan parser.DownloadEvent, out chan *Batch, done chan struct{}) {
	t.Helper()
	in = make(chan parser.DownloadEvent)
	out = make(chan *Batch, 4)
	b := &Batcher{In: in, Out: out, BatchSize: batchSize, BatchTimeout: batchTimeout}
	done = make(chan struct{})
	go func() {
		b.Run(context.Background())
		close(done)
	}()
	return in, out, done
}

func TestBatcher_FlushesOnSize(t *testing.T) {
	in, out, _ := runBatcher(t, 2, time.Hour)
	in <- parser.DownloadEvent{Project: "a"}
	in <- parser.DownloadEvent{Project: "b"}

	select {
	case b := <-out:
		if len(b.Events) != 2 {
			t.Fatalf("len(Events) = %d, want 2", len(b.Events))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for size-triggered batch")
	}
	close(in)
}

func TestBatcher_FlushesOnTimeout(t *testing.T) {
	in, out, _ := runBatcher(t, 100, 20*time.Millisecond)
	in <- parser.DownloadEvent{Project: "a"}

	select {
	case b := <-out:
		if len(b.Events) != 1 {
			t.Fatalf("len(Events) = %d, want 1", len(b.Events))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for timeout-triggered batch")
	}
	close(in)
}

func TestBatcher_FlushesOnClose(t *testing.T) {
	in, out, done := runBatcher(t, 100, time.Hour)
	in <- parser.DownloadEvent{Project: "a"}
	close(in)

	select {
	case b := <-out:
		if len(b.Events) != 1 {
			t.Fatalf("len(Events) = %d, want 1", len(b.Events))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for final flush")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after In closed")
	}

	if _, ok := <-out; ok {
		t.Fatal("Out should be closed after final flush")
	}
}

func TestBatcher_EmptyCloseProducesNoBatch(t *testing.T) {
	in, out, done := runBatcher(t, 100, time.Hour)
	close(in)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	select {
	case b, ok := <-out:
		if ok {
			t.Fatalf("unexpected batch with %d events", len(b.Events))
		}
	default:
		t.Fatal("Out channel should be closed, not merely empty")
	}
}
