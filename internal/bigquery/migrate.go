package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

type patchSchemaRequest struct {
	Schema struct {
		Fields []Field `json:"fields"`
	} `json:"schema"`
}

// Migrate synchronizes table's schema to Schema via a tables.patch-shaped
// request, for the migrate subcommand (spec §1's "schema migration
// command" — a listed external collaborator, included here as a thin
// adapter rather than implemented against the real BigQuery API surface).
func Migrate(ctx context.Context, httpClient *http.Client, tablesEndpoint string, tok *oauth2.Token) error {
	var body patchSchemaRequest
	body.Schema.Fields = Schema

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling schema patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, tablesEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("schema patch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return fmt.Errorf("schema patch failed with status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
