package signing

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Custodian is the key custody boundary.  The engine defines what gets
// signed (see payload.go) but never holds an event's private key;
// signing is delegated through this interface and only public keys are
// ever returned.
type Custodian interface {
	// Sign produces an Ed25519 signature over payload with the
	// private key belonging to eventID.  The signature is returned
	// hex-encoded, matching how it is stored and transported.
	Sign(ctx context.Context, eventID string, payload []byte) (string, error)
	// PublicKey returns the hex-encoded public half for eventID.
	PublicKey(ctx context.Context, eventID string) (string, error)
}

// HTTPCustodian talks to an external custody service over HTTP.  The
// service holds event private keys on behalf of their creators and
// exposes POST /sign and GET /keys/{event_id}.
type HTTPCustodian struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCustodian builds a custodian client for the given base URL.
func NewHTTPCustodian(baseURL string) *HTTPCustodian {
	return &HTTPCustodian{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type signRequest struct {
	EventID string `json:"event_id"`
	Payload string `json:"payload"` // base64
}

type signResponse struct {
	Signature string `json:"signature"` // hex
}

type keyResponse struct {
	PublicKey string `json:"public_key"` // hex
}

// Sign implements Custodian.
func (h *HTTPCustodian) Sign(ctx context.Context, eventID string, payload []byte) (string, error) {
	body, err := json.Marshal(signRequest{
		EventID: eventID,
		Payload: base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		return "", fmt.Errorf("encoding sign request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/sign", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling custody service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("custody service returned %d for event %s", resp.StatusCode, eventID)
	}
	var out signResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding sign response: %w", err)
	}
	if _, err := ParseSignature(out.Signature); err != nil {
		return "", fmt.Errorf("custody service returned malformed signature: %w", err)
	}
	return out.Signature, nil
}

// PublicKey implements Custodian.
func (h *HTTPCustodian) PublicKey(ctx context.Context, eventID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/keys/"+eventID, nil)
	if err != nil {
		return "", fmt.Errorf("building key request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling custody service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("custody service returned %d for event %s", resp.StatusCode, eventID)
	}
	var out keyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding key response: %w", err)
	}
	if _, err := ParsePublicKey(out.PublicKey); err != nil {
		return "", fmt.Errorf("custody service returned malformed key: %w", err)
	}
	return out.PublicKey, nil
}

// LocalCustodian keeps keypairs in memory.  It exists for local
// development and tests, where running a separate custody service is
// overkill.  Not for production use: a crashed process takes its
// private keys with it.
type LocalCustodian struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PrivateKey
}

// NewLocalCustodian returns an empty in-memory custodian.
func NewLocalCustodian() *LocalCustodian {
	return &LocalCustodian{keys: make(map[string]ed25519.PrivateKey)}
}

// Generate creates a fresh keypair for eventID and returns the hex
// public key for persisting on the event record.
func (l *LocalCustodian) Generate(eventID string) (string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generating keypair: %w", err)
	}
	l.mu.Lock()
	l.keys[eventID] = priv
	l.mu.Unlock()
	return EncodePublicKey(pub), nil
}

// Sign implements Custodian.
func (l *LocalCustodian) Sign(_ context.Context, eventID string, payload []byte) (string, error) {
	l.mu.RLock()
	priv, ok := l.keys[eventID]
	l.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no key material for event %s", eventID)
	}
	return hex.EncodeToString(ed25519.Sign(priv, payload)), nil
}

// PublicKey implements Custodian.
func (l *LocalCustodian) PublicKey(_ context.Context, eventID string) (string, error) {
	l.mu.RLock()
	priv, ok := l.keys[eventID]
	l.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no key material for event %s", eventID)
	}
	return EncodePublicKey(priv.Public().(ed25519.PublicKey)), nil
}
