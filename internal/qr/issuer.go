package qr

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// ValidityWindow is how long an issued token may be redeemed. The issuer and
// the redemption side must agree on this value or validation will disagree.
const ValidityWindow = 5 * time.Minute

// Token is a freshly minted single-use redemption capability.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer mints customer-bound tokens. Issuance is purely local: no storage
// or network side effects, redemption is what touches the ledger.
type Issuer struct {
	window time.Duration
	now    func() time.Time
}

// NewIssuer returns an issuer using the standard validity window.
func NewIssuer() *Issuer {
	return &Issuer{window: ValidityWindow, now: time.Now}
}

// NewIssuerWithWindow returns an issuer with a custom window and clock.
// A nil clock defaults to time.Now. Used by tests and the auto-refresher.
func NewIssuerWithWindow(window time.Duration, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{window: window, now: now}
}

// Issue mints a new token bound to the customer. The value combines the
// customer id, a millisecond clock reading and a random suffix; uniqueness
// is the requirement here, the used-token store is what prevents reuse.
func (i *Issuer) Issue(customerID string) Token {
	issuedAt := i.now().UTC()
	value := fmt.Sprintf("%s:%d:%s", customerID, issuedAt.UnixMilli(), randomSuffix())
	return Token{
		Value:     value,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(i.window),
	}
}

// Payload builds the encodable payload for a token.
func (i *Issuer) Payload(customerID, displayName string, t Token) Payload {
	return Payload{
		CustomerID:  customerID,
		Token:       t.Value,
		IssuedAt:    t.IssuedAt,
		DisplayName: displayName,
	}
}

// AutoRefresh issues a token immediately and then re-issues one every
// validity window, so a displayed code is replaced before it expires.
// Each token is delivered to fn. Blocks until ctx is done.
func (i *Issuer) AutoRefresh(ctx context.Context, customerID string, fn func(Token)) {
	fn(i.Issue(customerID))

	ticker := time.NewTicker(i.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn(i.Issue(customerID))
		case <-ctx.Done():
			return
		}
	}
}

// randomSuffix returns 8 random bytes hex-encoded. Not a secrecy boundary,
// just enough entropy to deter casual forgery and avoid collisions.
func randomSuffix() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to the
		// clock so issuance cannot panic.
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf[:])
}
