// Package validation holds the jellydator/validation rules shared by request DTOs, the user
// use case and the configuration.
package validation

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/sessions/internal/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// WrapValidationError puts err in the invalid input category.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// PasswordPolicy is the rule applied to passwords chosen at user creation.
type PasswordPolicy struct {
	MinLength     int
	RequireLetter bool
	RequireDigit  bool
	RequireSymbol bool
}

// Validate implements validation.Rule.
func (p PasswordPolicy) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_password_type", "password must be a string")
	}
	if s == "" {
		return nil
	}

	if n := len([]rune(s)); n < p.MinLength {
		return validation.NewError(
			"validation_password_min_length",
			"password must be at least "+strconv.Itoa(p.MinLength)+" characters",
		)
	}

	var letter, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	switch {
	case p.RequireLetter && !letter:
		return validation.NewError("validation_password_letter", "password must contain a letter")
	case p.RequireDigit && !digit:
		return validation.NewError("validation_password_digit", "password must contain a digit")
	case p.RequireSymbol && !symbol:
		return validation.NewError("validation_password_symbol", "password must contain a symbol")
	}
	return nil
}

// Email checks the address shape only. Deliverability is not verified.
var Email = validation.NewStringRuleWithError(
	emailRegex.MatchString,
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// NoWhitespace rejects leading or trailing whitespace.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank rejects strings made only of whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Base64 accepts standard padded base64, the encoding of KMS ciphertext in the environment.
var Base64 = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		return err == nil
	},
	validation.NewError("validation_base64", "must be valid base64-encoded data"),
)
