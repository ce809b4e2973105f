// Package bigquery adapts the ingestion pipeline to the warehouse's
// streaming-insert HTTP API and OAuth2 token endpoint (spec §6).
// Credentials decoding is explicitly out of spec scope (§1); this file
// exists only so the shipper and migrate command have a concrete type to
// construct from, mirroring the original daemon's _configure_bigquery
// helper in linehaul/cli.py (credentials-file XOR credentials-blob).
package bigquery

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// Scope is the OAuth2 scope requested for the warehouse streaming-insert
// API (spec §6 "Token exchange").
const Scope = "https://www.googleapis.com/auth/bigquery.insertdata"

// Credentials is the service-account identity and signing key used to
// mint bearer tokens (spec §3 "Credentials").
type Credentials struct {
	ClientEmail string
	PrivateKey  *rsa.PrivateKey
	TokenURI    string
}

type serviceAccountJSON struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// LoadCredentials reads a service-account JSON key from file or blob
// (base64-encoded JSON). If both are set, file is used; if neither is
// set, it returns an error. The server command's config.Validate rejects
// both combinations before this is called; the migrate command does not.
func LoadCredentials(file, blob string) (*Credentials, error) {
	var raw []byte
	switch {
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		raw = b
	case blob != "":
		b, err := base64.StdEncoding.DecodeString(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding credentials blob: %w", err)
		}
		raw = b
	default:
		return nil, errors.New("no credentials source configured")
	}

	var sa serviceAccountJSON
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parsing credentials JSON: %w", err)
	}

	key, err := parseRSAPrivateKey(sa.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	tokenURI := sa.TokenURI
	if tokenURI == "" {
		tokenURI = "https://oauth2.googleapis.com/token"
	}

	return &Credentials{
		ClientEmail: sa.ClientEmail,
		PrivateKey:  key,
		TokenURI:    tokenURI,
	}, nil
}

func parseRSAPrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return rsaKey, nil
}
