package signing

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// ParsePublicKey decodes a hex-encoded Ed25519 public key and
// validates its length.  Keys arrive as hex strings from the identity
// service, from event registration and from storage, so every consumer
// funnels through this one decoder.
func ParsePublicKey(hexKey string) (ed25519.PublicKey, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("public key is empty")
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("hex-decoding public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key has wrong length: got %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// EncodePublicKey is the inverse of ParsePublicKey.
func EncodePublicKey(key ed25519.PublicKey) string {
	return hex.EncodeToString(key)
}

// ParseSignature decodes a hex-encoded Ed25519 signature.
func ParseSignature(hexSig string) ([]byte, error) {
	if hexSig == "" {
		return nil, fmt.Errorf("signature is empty")
	}
	raw, err := hex.DecodeString(hexSig)
	if err != nil {
		return nil, fmt.Errorf("hex-decoding signature: %w", err)
	}
	if len(raw) != ed25519.SignatureSize {
		return nil, fmt.Errorf("signature has wrong length: got %d bytes, want %d", len(raw), ed25519.SignatureSize)
	}
	return raw, nil
}

// Verify checks sig (hex) against payload under the given hex public
// key.  It returns false, never an error, for malformed input: a
// garbage signature is simply not a valid one.
func Verify(hexKey string, payload []byte, hexSig string) bool {
	pub, err := ParsePublicKey(hexKey)
	if err != nil {
		return false
	}
	sig, err := ParseSignature(hexSig)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, payload, sig)
}
