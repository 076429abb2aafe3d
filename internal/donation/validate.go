package donation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ameentrust/donorgate/internal/model"
)

// ValidationError blocks a submission before any network call is made.
// Field names the offending form field so the UI can focus it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// emailPattern is deliberately loose: the backend does the real
// validation, this only catches obvious typos before a network call.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// normalizeAmount parses a submitted amount string and returns its
// canonical form. The amount must be a positive decimal with at most two
// fraction digits.
func normalizeAmount(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &ValidationError{Field: "amount", Message: "Please enter a donation amount"}
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if !digitsOnly(whole) || (hasFrac && !digitsOnly(frac)) {
		return "", &ValidationError{Field: "amount", Message: "Amount must be a number"}
	}
	if hasFrac && len(frac) > 2 {
		return "", &ValidationError{Field: "amount", Message: "Amount can have at most two decimal places"}
	}

	whole = strings.TrimLeft(whole, "0")
	frac = strings.TrimRight(frac, "0")
	if whole == "" && frac == "" {
		return "", &ValidationError{Field: "amount", Message: "Amount must be greater than zero"}
	}
	if whole == "" {
		whole = "0"
	}
	if frac == "" {
		return whole, nil
	}
	return whole + "." + frac, nil
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// validateContact checks the caller-supplied contact block for a named
// donation. When State is "Other" the free-text district carries the
// effective state name and must be present.
func validateContact(contact model.DonorContact) error {
	if strings.TrimSpace(contact.Name) == "" {
		return &ValidationError{Field: "name", Message: "Please enter your name"}
	}
	email := strings.TrimSpace(contact.Email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Please enter your email address"}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Message: "Please enter a valid email address"}
	}
	if contact.Address.State == stateOther && strings.TrimSpace(contact.Address.District) == "" {
		return &ValidationError{Field: "district", Message: "Please enter your state or region"}
	}
	return nil
}
