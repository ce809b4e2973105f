package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// assertionLifetime bounds the signed JWT assertion's own exp claim. It is
// unrelated to the oauth2.Token's expiry returned by the token endpoint.
const assertionLifetime = time.Hour

// Minter mints OAuth2 bearer tokens for the warehouse API by signing a
// JWT assertion with the service-account key and exchanging it at the
// token endpoint (spec §6 "Token exchange"). The signing shape (RS256,
// jwt.NewWithClaims(...).SignedString(...)) is grounded on
// ClusterCockpit-cc-backend's internal/auth-v2/jwt.go, adapted from its
// EdDSA/ed25519 peer-to-peer tokens to the RS256 service-account assertion
// the warehouse's OAuth2 endpoint expects.
type Minter struct {
	creds  *Credentials
	client *http.Client
}

// NewMinter builds a Minter bound to creds, using client for the token
// exchange HTTP call.
func NewMinter(creds *Credentials, client *http.Client) *Minter {
	return &Minter{creds: creds, client: client}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Mint signs a fresh JWT assertion and exchanges it for a bearer token.
// It satisfies the tokencache.MintFunc signature.
func (m *Minter) Mint(ctx context.Context) (*oauth2.Token, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   m.creds.ClientEmail,
		"scope": Scope,
		"aud":   m.creds.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}
	assertion := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := assertion.SignedString(m.creds.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("signing JWT assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {signed},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.creds.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	return &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		Expiry:      now.Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
