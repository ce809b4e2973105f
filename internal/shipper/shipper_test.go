package shipper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/dstufft/linehaul/internal/batch"
	"github.com/dstufft/linehaul/internal/linehaulerr"
	"github.com/dstufft/linehaul/internal/parser"
	"github.com/dstufft/linehaul/internal/tokencache"
)

func freshToken(ctx context.Context) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}, nil
}

type fakeClient struct {
	calls     int32
	failUntil int32
	err       error
	dropped   int
}

func (f *fakeClient) Insert(ctx context.Context, tok *oauth2.Token, events []parser.DownloadEvent) (int, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failUntil {
		return 0, f.err
	}
	return f.dropped, nil
}

func runOneBatch(t *testing.T, s *Shipper, b *batch.Batch) {
	t.Helper()
	in := make(chan *batch.Batch, 1)
	in <- b
	close(in)
	s.In = in
	s.PoolSize = 1
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shipper did not finish")
	}
}

func TestShipper_SucceedsFirstTry(t *testing.T) {
	client := &fakeClient{}
	s := &Shipper{
		Client:           client,
		Tokens:           tokencache.New(freshToken),
		BackoffConfig:    BackoffConfig{MaxWait: time.Second, Multiplier: 0.001},
		RetryMaxAttempts: 3,
	}
	runOneBatch(t, s, &batch.Batch{Events: []parser.DownloadEvent{{Project: "a"}}})
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
}

func TestShipper_RetriesTransientThenSucceeds(t *testing.T) {
	client := &fakeClient{failUntil: 2, err: &linehaulerr.TransientAPIError{StatusCode: 503}}
	s := &Shipper{
		Client:           client,
		Tokens:           tokencache.New(freshToken),
		BackoffConfig:    BackoffConfig{MaxWait: 50 * time.Millisecond, Multiplier: 0.001},
		RetryMaxAttempts: 5,
	}
	runOneBatch(t, s, &batch.Batch{Events: []parser.DownloadEvent{{Project: "a"}}})
	if client.calls != 3 {
		t.Fatalf("calls = %d, want 3", client.calls)
	}
}

func TestShipper_DropsAfterExhaustingRetries(t *testing.T) {
	client := &fakeClient{failUntil: 100, err: &linehaulerr.TransientAPIError{StatusCode: 503}}
	s := &Shipper{
		Client:           client,
		Tokens:           tokencache.New(freshToken),
		BackoffConfig:    BackoffConfig{MaxWait: 10 * time.Millisecond, Multiplier: 0.001},
		RetryMaxAttempts: 2,
	}
	runOneBatch(t, s, &batch.Batch{Events: []parser.DownloadEvent{{Project: "a"}}})
	if client.calls != 2 {
		t.Fatalf("calls = %d, want 2 (retry_max_attempts total submissions)", client.calls)
	}
}

func TestShipper_PermanentErrorDropsWithoutRetry(t *testing.T) {
	client := &fakeClient{failUntil: 100, err: &linehaulerr.PermanentAPIError{StatusCode: 400, Body: "bad request"}}
	s := &Shipper{
		Client:           client,
		Tokens:           tokencache.New(freshToken),
		BackoffConfig:    BackoffConfig{MaxWait: time.Second, Multiplier: 0.001},
		RetryMaxAttempts: 5,
	}
	runOneBatch(t, s, &batch.Batch{Events: []parser.DownloadEvent{{Project: "a"}}})
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on permanent error)", client.calls)
	}
}

func TestShipper_AuthRejectionInvalidatesAndRetriesUncounted(t *testing.T) {
	var mintCalls int32
	mint := func(ctx context.Context) (*oauth2.Token, error) {
		atomic.AddInt32(&mintCalls, 1)
		return &oauth2.Token{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}, nil
	}
	client := &fakeClient{failUntil: 1, err: &linehaulerr.AuthTokenRejected{StatusCode: 401}}
	s := &Shipper{
		Client:           client,
		Tokens:           tokencache.New(mint),
		BackoffConfig:    BackoffConfig{MaxWait: time.Second, Multiplier: 0.001},
		RetryMaxAttempts: 1,
	}
	runOneBatch(t, s, &batch.Batch{Events: []parser.DownloadEvent{{Project: "a"}}})
	if client.calls != 2 {
		t.Fatalf("calls = %d, want 2", client.calls)
	}
	if mintCalls != 2 {
		t.Fatalf("mintCalls = %d, want 2 (initial + post-invalidate refresh)", mintCalls)
	}
}
