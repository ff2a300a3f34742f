// Package qr implements the QR token protocol: minting customer-bound
// single-use tokens, encoding them into the scannable payload, and decoding
// operator-submitted payloads back.
package qr

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the decoded content of a scanned QR code. DisplayName is
// carried for operator UX only and is never authoritative for anything.
type Payload struct {
	CustomerID  string
	Token       string
	IssuedAt    time.Time
	DisplayName string
}

// wirePayload is the on-the-wire shape. The timestamp travels as epoch
// milliseconds. Unknown extra fields are ignored on decode so old readers
// keep working when new fields appear.
type wirePayload struct {
	CustomerID string `json:"customer_id"`
	Token      string `json:"token"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	Name       string `json:"name,omitempty"`
}

// MalformedPayloadError reports input that could not be parsed into the
// expected payload shape.
type MalformedPayloadError struct {
	reason string
}

func (e *MalformedPayloadError) Error() string {
	return "malformed qr payload: " + e.reason
}

// Encode serializes a payload into the string embedded in the QR image.
func Encode(p Payload) (string, error) {
	if p.CustomerID == "" || p.Token == "" || p.IssuedAt.IsZero() {
		return "", fmt.Errorf("qr: encode requires customer_id, token and issued_at")
	}
	data, err := json.Marshal(wirePayload{
		CustomerID: p.CustomerID,
		Token:      p.Token,
		Timestamp:  p.IssuedAt.UnixMilli(),
		Name:       p.DisplayName,
	})
	if err != nil {
		return "", fmt.Errorf("qr: encode payload: %w", err)
	}
	return string(data), nil
}

// Decode parses a scanned payload. The input may be the payload object
// itself or a JSON string containing it (operator clients paste both).
// Missing fields do not fail here; completeness is the caller's check.
func Decode(raw []byte) (Payload, error) {
	if len(raw) == 0 {
		return Payload{}, &MalformedPayloadError{reason: "empty input"}
	}

	// Unwrap a double-encoded payload ("{\"customer_id\":...}").
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = []byte(asString)
	}

	var wire wirePayload
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Payload{}, &MalformedPayloadError{reason: err.Error()}
	}

	p := Payload{
		CustomerID:  wire.CustomerID,
		Token:       wire.Token,
		DisplayName: wire.Name,
	}
	if wire.Timestamp > 0 {
		p.IssuedAt = time.UnixMilli(wire.Timestamp).UTC()
	}
	return p, nil
}

// Complete reports whether the payload carries every field redemption
// requires. display name stays optional.
func (p Payload) Complete() bool {
	return p.CustomerID != "" && p.Token != "" && !p.IssuedAt.IsZero()
}
