package service

import "errors"

// Classified failures of the redemption and reward flows. Handlers map
// these to HTTP statuses with errors.Is; everything else is treated as a
// storage failure.
var (
	ErrInvalidAmount      = errors.New("amount must be a positive number")
	ErrMalformedPayload   = errors.New("invalid qr payload format")
	ErrIncompleteToken    = errors.New("qr payload missing required fields")
	ErrTokenExpired       = errors.New("qr code expired")
	ErrTokenAlreadyUsed   = errors.New("qr code already used")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrRewardNotFound     = errors.New("reward not found")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrStorage            = errors.New("storage failure")

	// ErrPartialCommit means the used-token marker was written but the
	// balance credit or audit append then failed. The token is consumed
	// with no/partial credit applied; this needs manual reconciliation and
	// must never be reported as success.
	ErrPartialCommit = errors.New("redemption partially committed")
)
