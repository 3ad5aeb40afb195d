package auth

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/cropauth/internal/common"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 6
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Validation messages, returned to clients verbatim.
const (
	MsgSignupFieldsRequired = "Username, email, and password are required"
	MsgInvalidUsername      = "Invalid username format (3-50 characters, alphanumeric, underscore, hyphen only)"
	MsgInvalidEmail         = "Invalid email format"
	MsgPasswordTooShort     = "Password must be at least 6 characters"
)

// ValidationError carries a client-facing message and matches
// common.ErrorValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return common.ErrorValidation }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateUsername(username string) error {
	if n := len(username); n < MinUsernameLength || n > MaxUsernameLength || !usernamePattern.MatchString(username) {
		return invalid(MsgInvalidUsername)
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return invalid(MsgInvalidEmail)
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return invalid(MsgPasswordTooShort)
	}
	return nil
}

// ValidateSignup checks all signup fields in the order clients see errors.
// email is expected to be normalized already.
func ValidateSignup(username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return invalid(MsgSignupFieldsRequired)
	}
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	return nil
}

// Required returns a validation error naming the missing field when v is empty.
func Required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid(fmt.Sprintf("%s is required", field))
	}
	return nil
}
