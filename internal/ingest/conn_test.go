package ingest

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dstufft/linehaul/internal/parser"
)

func TestHandler_ParsesAndEnqueuesValidLines(t *testing.T) {
	client, server := net.Pipe()
	queue := make(chan parser.DownloadEvent, 4)
	h := &Handler{
		Conn:           server,
		Queue:          queue,
		Parser:         parser.New(""),
		MaxLineSize:    4096,
		RecvSize:       512,
		CleanupTimeout: time.Second,
	}

	done := make(chan struct{})
	go func() {
		h.Serve(context.Background())
		close(done)
	}()

	line := "<22>2024-01-01T00:00:00Z cache-host fetch: 2024-01-01T00:00:00Z /packages/ab/cd/requests-2.31.0-py3-none-any.whl TLSv1.3 ECDHE-RSA-AES128-GCM-SHA256 US python-requests/2.31.0\n"
	go func() {
		client.Write([]byte(line))
		client.Close()
	}()

	select {
	case ev := <-queue:
		if ev.Project != "requests" {
			t.Errorf("Project = %q, want requests", ev.Project)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for enqueued event")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after connection closed")
	}
}

func TestHandler_AuthRejectDoesNotEnqueue(t *testing.T) {
	client, server := net.Pipe()
	queue := make(chan parser.DownloadEvent, 4)
	h := &Handler{
		Conn:           server,
		Queue:          queue,
		Parser:         parser.New("secret"),
		MaxLineSize:    4096,
		RecvSize:       512,
		CleanupTimeout: time.Second,
	}

	go h.Serve(context.Background())

	line := "<22>2024-01-01T00:00:00Z cache-host fetch: wrong-token 2024-01-01T00:00:00Z /x TLSv1.3 X US ua\n"
	go func() {
		client.Write([]byte(line))
		client.Close()
	}()

	select {
	case ev := <-queue:
		t.Fatalf("unexpected event enqueued: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestHandler_LineTooLongClosesConnection(t *testing.T) {
	client, server := net.Pipe()
	queue := make(chan parser.DownloadEvent, 4)
	h := &Handler{
		Conn:           server,
		Queue:          queue,
		Parser:         parser.New(""),
		MaxLineSize:    16,
		RecvSize:       8,
		CleanupTimeout: time.Second,
	}

	done := make(chan struct{})
	go func() {
		h.Serve(context.Background())
		close(done)
	}()

	go func() {
		client.Write([]byte("this line has no newline and exceeds sixteen bytes"))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after oversize line")
	}
}
