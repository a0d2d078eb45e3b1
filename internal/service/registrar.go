package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mintgate/ticket-engine/internal/model"
	"github.com/mintgate/ticket-engine/internal/signing"
)

// HTTPRegistrar talks to the external identity service that registers
// a contact detail as a full identity with a signing key.  Its
// failures are survivable: issuance falls back to a deterministic
// placeholder identity (see FallbackDID).
type HTTPRegistrar struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRegistrar builds a registrar client for the given base URL.
func NewHTTPRegistrar(baseURL string) *HTTPRegistrar {
	return &HTTPRegistrar{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type registerRequest struct {
	Contact string `json:"contact"`
}

type registerResponse struct {
	DID         string `json:"did"`
	PublicKey   string `json:"public_key"` // hex
	DisplayName string `json:"display_name"`
}

// Register implements Registrar.
func (r *HTTPRegistrar) Register(ctx context.Context, contact string) (model.Identity, error) {
	body, err := json.Marshal(registerRequest{Contact: contact})
	if err != nil {
		return model.Identity{}, fmt.Errorf("encoding register request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/register", bytes.NewReader(body))
	if err != nil {
		return model.Identity{}, fmt.Errorf("building register request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return model.Identity{}, fmt.Errorf("calling identity service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return model.Identity{}, fmt.Errorf("identity service returned %d", resp.StatusCode)
	}
	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.Identity{}, fmt.Errorf("decoding register response: %w", err)
	}
	if out.DID == "" {
		return model.Identity{}, fmt.Errorf("identity service returned empty did")
	}
	if _, err := signing.ParsePublicKey(out.PublicKey); err != nil {
		return model.Identity{}, fmt.Errorf("identity service returned malformed key: %w", err)
	}
	identity := model.Identity{DID: out.DID, Contact: &contact}
	identity.PublicKey = &out.PublicKey
	if out.DisplayName != "" {
		identity.DisplayName = &out.DisplayName
	}
	return identity, nil
}
