package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// MaxAmount caps a single purchase; anything above it is treated as
// operator input error.
const MaxAmount = 100_000

// MaxNameLength bounds customer and reward names.
const MaxNameLength = 120

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateAmount checks that a purchase amount is a positive, finite number
// within bounds.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return &ValidationError{
			Field:   "amount",
			Message: "must be a finite number",
		}
	}

	if amount <= 0 {
		return &ValidationError{
			Field:   "amount",
			Message: "must be positive",
		}
	}

	if amount > MaxAmount {
		return &ValidationError{
			Field:   "amount",
			Message: "exceeds maximum allowed amount",
		}
	}

	return nil
}

// ValidateCustomerName checks a customer display name.
func ValidateCustomerName(name string) error {
	if name == "" {
		return &ValidationError{
			Field:   "name",
			Message: "is required",
		}
	}

	if len(name) > MaxNameLength {
		return &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("cannot exceed %d characters", MaxNameLength),
		}
	}

	return nil
}

// ValidateReward checks a reward catalog entry.
func ValidateReward(name string, pointsCost int64) error {
	if name == "" {
		return &ValidationError{
			Field:   "name",
			Message: "is required",
		}
	}

	if len(name) > MaxNameLength {
		return &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("cannot exceed %d characters", MaxNameLength),
		}
	}

	if pointsCost <= 0 {
		return &ValidationError{
			Field:   "points_cost",
			Message: "must be positive",
		}
	}

	return nil
}

// SanitizeString strips control characters and trims whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// ValidateUUID checks that id is a valid UUID v4.
func ValidateUUID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	id = SanitizeString(id)

	if !uuidRegex.MatchString(strings.ToLower(id)) {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be a valid UUID v4",
		}
	}

	return nil
}
