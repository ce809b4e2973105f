package ingest

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/dstufft/linehaul/internal/metrics"
	"github.com/dstufft/linehaul/internal/parser"
)

// Listener accepts TCP connections and spawns a Handler goroutine for
// each, grounded on
// other_examples/4ee20333_plm-lee-log-manager__backend-internal-tcpserver-server.go.go's
// Server.acceptLoop (net.Listen, accept-in-a-loop, stop-channel-aware
// error handling, one goroutine per connection).
type Listener struct {
	Addr string

	Queue          chan<- parser.DownloadEvent
	Token          string
	MaxLineSize    int
	RecvSize       int
	CleanupTimeout time.Duration

	Metrics *metrics.Sink
	Logger  *slog.Logger

	listener net.Listener
	wg       sync.WaitGroup
}

// Listen binds the TCP socket. Call before Serve.
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.Addr)
	if err != nil {
		return err
	}
	l.listener = ln
	return nil
}

// Serve accepts connections until ctx is canceled, at which point it
// closes the listener socket (unblocking Accept) and waits for every
// in-flight Handler to finish draining.
func (l *Listener) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		l.listener.Close()
	}()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				l.wg.Wait()
				return
			default:
				if l.Logger != nil {
					l.Logger.Warn("accept failed", "error", err)
				}
				continue
			}
		}
		if ctx.Err() == nil {
			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				h := &Handler{
					Conn:           conn,
					Queue:          l.Queue,
					Parser:         parser.New(l.Token),
					MaxLineSize:    l.MaxLineSize,
					RecvSize:       l.RecvSize,
					CleanupTimeout: l.CleanupTimeout,
					Metrics:        l.Metrics,
					Logger:         l.Logger,
				}
				h.Serve(ctx)
			}()
		}
	}
}

// Wait blocks until every accepted connection's Handler has returned.
func (l *Listener) Wait() {
	l.wg.Wait()
}
