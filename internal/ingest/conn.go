// Package ingest implements the connection handler (spec §4.3): one
// goroutine per accepted TCP connection, reading RawLines via the codec,
// parsing each into a DownloadEvent, and enqueuing successfully parsed
// events onto the shared bounded queue with blocking backpressure. The
// accept-loop/per-connection-goroutine/blocking-channel-send shape is
// grounded on
// other_examples/4ee20333_plm-lee-log-manager__backend-internal-tcpserver-server.go.go's
// acceptLoop/handleConn, and the read-loop-over-a-framer structure is
// grounded on the teacher's internal/parser/socket_reader.go.
package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/dstufft/linehaul/internal/codec"
	"github.com/dstufft/linehaul/internal/linehaulerr"
	"github.com/dstufft/linehaul/internal/metrics"
	"github.com/dstufft/linehaul/internal/parser"
)

// connState is the connection handler's lifecycle (spec §4.3 "state
// machine"), reproduced from the teacher's (now-removed)
// internal/supervisor/state.go enum-of-named-states pattern.
type connState int

const (
	stateOpen connState = iota
	stateStreaming
	stateDraining
	stateClosed
	stateFailed
)

func (s connState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateStreaming:
		return "streaming"
	case stateDraining:
		return "draining"
	case stateClosed:
		return "closed"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handler owns one accepted connection end to end.
type Handler struct {
	Conn           net.Conn
	Queue          chan<- parser.DownloadEvent
	Parser         *parser.Parser
	MaxLineSize    int
	RecvSize       int
	CleanupTimeout time.Duration

	Metrics *metrics.Sink
	Logger  *slog.Logger
}

// Serve reads and enqueues events until the connection closes, the
// stream yields a LineTooLong error, or ctx is canceled. ctx cancellation
// moves the handler into the draining state: it stops reading new lines
// and tries to flush anything already parsed onto Queue within
// CleanupTimeout before closing (spec §4.3 "shutdown drain").
func (h *Handler) Serve(ctx context.Context) {
	state := stateOpen
	defer func() {
		h.Conn.Close()
		h.logState(stateClosed)
	}()

	dec := codec.NewDecoder(h.Conn, h.MaxLineSize, h.RecvSize)
	if h.Metrics != nil {
		h.Metrics.ConnectionOpened()
		defer h.Metrics.ConnectionClosed()
	}

	state = stateStreaming
	h.logState(state)

	// Unblock a pending Read when ctx is canceled so the handler can
	// move to draining instead of waiting for the peer.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			h.Conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	for {
		select {
		case <-ctx.Done():
			state = stateDraining
			h.logState(state)
			return
		default:
		}

		line, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var tooLong *linehaulerr.LineTooLong
			if errors.As(err, &tooLong) {
				state = stateFailed
				h.logState(state)
				h.metricIncr("connections.line_too_long")
				return
			}
			if ctx.Err() != nil {
				state = stateDraining
				h.logState(state)
				return
			}
			state = stateFailed
			h.logState(state)
			return
		}

		event, outcome := h.Parser.Parse(line)
		switch outcome {
		case parser.OutcomeSkip:
			h.metricIncr("events.parsing.failed")
			continue
		case parser.OutcomeAuthReject:
			h.metricIncr("events.rejected.auth")
			continue
		}

		h.metricIncr("events.parsing.succeeded")
		if !h.enqueue(ctx, event) {
			return
		}
	}
}

// enqueue blocks until Queue accepts event or the connection-level
// context is done, implementing the spec's "blocking backpressure"
// (§4.3/§5): a full queue slows ingestion rather than dropping events.
func (h *Handler) enqueue(ctx context.Context, event parser.DownloadEvent) bool {
	select {
	case h.Queue <- event:
		return true
	case <-ctx.Done():
		drainCtx, cancel := context.WithTimeout(context.Background(), h.CleanupTimeout)
		defer cancel()
		select {
		case h.Queue <- event:
			return true
		case <-drainCtx.Done():
			if h.Logger != nil {
				h.Logger.Warn("dropped event: cleanup_timeout exceeded while draining", "error", &linehaulerr.ShutdownTimeout{Timeout: h.CleanupTimeout.String()})
			}
			return false
		}
	}
}

func (h *Handler) logState(s connState) {
	if h.Logger != nil {
		h.Logger.Debug("connection state", "state", s.String(), "remote", h.Conn.RemoteAddr())
	}
}

func (h *Handler) metricIncr(name string) {
	if h.Metrics != nil {
		h.Metrics.Incr(name)
	}
}
