package bigquery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/dstufft/linehaul/internal/linehaulerr"
	"github.com/dstufft/linehaul/internal/parser"
)

func tok() *oauth2.Token {
	return &oauth2.Token{AccessToken: "a-token", Expiry: time.Now().Add(time.Hour)}
}

func TestClient_Insert_CleanSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer a-token" {
			t.Errorf("Authorization header = %q", got)
		}
		var req insertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Rows) != 2 {
			t.Errorf("len(Rows) = %d, want 2", len(req.Rows))
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	dropped, err := c.Insert(context.Background(), tok(), []parser.DownloadEvent{{Project: "a"}, {Project: "b"}})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
}

func TestClient_Insert_PerRowErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"insertErrors":[{"index":1,"errors":[{"reason":"invalid","message":"bad row"}]}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	dropped, err := c.Insert(context.Background(), tok(), []parser.DownloadEvent{{Project: "a"}, {Project: "b"}})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
}

func TestClient_Insert_AuthRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		c := NewClient(srv.Client(), srv.URL)
		_, err := c.Insert(context.Background(), tok(), []parser.DownloadEvent{{Project: "a"}})
		var authErr *linehaulerr.AuthTokenRejected
		if !errors.As(err, &authErr) {
			t.Fatalf("status %d: error = %v, want *linehaulerr.AuthTokenRejected", status, err)
		}
		srv.Close()
	}
}

func TestClient_Insert_TransientOn5xxAnd429(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		c := NewClient(srv.Client(), srv.URL)
		_, err := c.Insert(context.Background(), tok(), []parser.DownloadEvent{{Project: "a"}})
		var transientErr *linehaulerr.TransientAPIError
		if !errors.As(err, &transientErr) {
			t.Fatalf("status %d: error = %v, want *linehaulerr.TransientAPIError", status, err)
		}
		srv.Close()
	}
}

func TestClient_Insert_PermanentOnOther4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("malformed"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	_, err := c.Insert(context.Background(), tok(), []parser.DownloadEvent{{Project: "a"}})
	var permErr *linehaulerr.PermanentAPIError
	if !errors.As(err, &permErr) {
		t.Fatalf("error = %v, want *linehaulerr.PermanentAPIError", err)
	}
}
