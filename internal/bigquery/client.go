// client.go implements the warehouse's streaming-insert HTTP contract
// (spec §6): an insertAll-shaped JSON request, a bearer-token
// Authorization header, and per-status-code outcome classification.
// Grounded structurally on
// other_examples/dac78216_PilotFiber-icmp-mon__agent-internal-shipper-shipper.go.go's
// shipper HTTP POST + status-based retry classification.
package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dstufft/linehaul/internal/linehaulerr"
	"github.com/dstufft/linehaul/internal/parser"
)

// Client delivers batches of parsed events to the warehouse's
// tabledata.insertAll-shaped endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient builds a Client that POSTs to endpoint (the fully-qualified
// table insert URL derived from the TABLE argument).
func NewClient(httpClient *http.Client, endpoint string) *Client {
	return &Client{httpClient: httpClient, endpoint: endpoint}
}

type insertRow struct {
	JSON bqEvent `json:"json"`
}

type insertRequest struct {
	SkipInvalidRows     bool        `json:"skipInvalidRows"`
	IgnoreUnknownValues bool        `json:"ignoreUnknownValues"`
	Rows                []insertRow `json:"rows"`
}

type rowError struct {
	Index  int `json:"index"`
	Errors []struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"errors"`
}

type insertResponse struct {
	InsertErrors []rowError `json:"insertErrors"`
}

type bqUserAgent struct {
	Installer            string `json:"installer,omitempty"`
	InstallerVersion     string `json:"installer_version,omitempty"`
	PythonImplementation string `json:"python,omitempty"`
	PythonVersion        string `json:"python_version,omitempty"`
	Distro               string `json:"distro,omitempty"`
	DistroVersion        string `json:"distro_version,omitempty"`
	CPU                  string `json:"cpu,omitempty"`
	OpenSSLVersion       string `json:"openssl_version,omitempty"`
	SetuptoolsVersion    string `json:"setuptools_version,omitempty"`
	Raw                  string `json:"raw"`
}

type bqEvent struct {
	Timestamp   string      `json:"timestamp"`
	Project     string      `json:"project,omitempty"`
	Version     string      `json:"version,omitempty"`
	Filename    string      `json:"filename,omitempty"`
	URL         string      `json:"url"`
	TLSProtocol string      `json:"tls_protocol,omitempty"`
	TLSCipher   string      `json:"tls_cipher,omitempty"`
	CountryCode string      `json:"country_code,omitempty"`
	UserAgent   bqUserAgent `json:"details"`
}

func toRow(e parser.DownloadEvent) insertRow {
	return insertRow{JSON: bqEvent{
		Timestamp:   e.Timestamp.UTC().Format("2006-01-02T15:04:05.999999Z"),
		Project:     e.Project,
		Version:     e.Version,
		Filename:    e.Filename,
		URL:         e.URL,
		TLSProtocol: e.TLSProtocol,
		TLSCipher:   e.TLSCipher,
		CountryCode: e.CountryCode,
		UserAgent: bqUserAgent{
			Installer:            e.UserAgent.Installer,
			InstallerVersion:     e.UserAgent.InstallerVersion,
			PythonImplementation: e.UserAgent.PythonImplementation,
			PythonVersion:        e.UserAgent.PythonVersion,
			Distro:               e.UserAgent.Distro,
			DistroVersion:        e.UserAgent.DistroVersion,
			CPU:                  e.UserAgent.CPU,
			OpenSSLVersion:       e.UserAgent.OpenSSLVersion,
			SetuptoolsVersion:    e.UserAgent.SetuptoolsVersion,
			Raw:                  e.UserAgent.Raw,
		},
	}}
}

// Insert delivers events to the warehouse using tok as the bearer
// credential. It returns the count of rows the warehouse itself rejected
// (dropped individually, per spec §4.5 step 2's "2xx with per-row
// errors" case) and a classified error for anything that should change
// the caller's retry behavior. A nil error with droppedRows == 0 is a
// clean success.
func (c *Client) Insert(ctx context.Context, tok *oauth2.Token, events []parser.DownloadEvent) (droppedRows int, err error) {
	rows := make([]insertRow, len(events))
	for i, e := range events {
		rows[i] = toRow(e)
	}

	body, err := json.Marshal(insertRequest{
		SkipInvalidRows:     false,
		IgnoreUnknownValues: false,
		Rows:                rows,
	})
	if err != nil {
		return 0, fmt.Errorf("marshaling insert request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("building insert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &linehaulerr.TransientAPIError{StatusCode: 0, Err: err}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return 0, &linehaulerr.AuthTokenRejected{StatusCode: resp.StatusCode}

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return 0, &linehaulerr.TransientAPIError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", respBody)}

	case resp.StatusCode >= 400:
		return 0, &linehaulerr.PermanentAPIError{StatusCode: resp.StatusCode, Body: string(respBody)}

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if readErr != nil {
			return 0, nil
		}
		var ir insertResponse
		if err := json.Unmarshal(respBody, &ir); err != nil || len(ir.InsertErrors) == 0 {
			return 0, nil
		}
		return len(ir.InsertErrors), nil

	default:
		return 0, &linehaulerr.TransientAPIError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}
}
