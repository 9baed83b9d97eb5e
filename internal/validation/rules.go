// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/pem"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/SuYehTarn/jitr/internal/errors"
)

var (
	// nameRegex allows lowercase letters, digits, dots, underscores and dashes.
	nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,127}$`)
)

// AllSentinel selects every verifier in the registry at registration time.
const AllSentinel = "all"

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// VerifierName validates a verifier binding name. "all" is reserved for the
// registration sentinel.
var VerifierName = validation.NewStringRuleWithError(
	func(s string) bool {
		return s != AllSentinel && nameRegex.MatchString(s)
	},
	validation.NewError(
		"validation_verifier_name",
		"must be lowercase alphanumeric with dots, underscores or dashes, and not 'all'",
	),
)

// PEMCertificate validates that a string holds at least one PEM CERTIFICATE block.
var PEMCertificate = validation.NewStringRuleWithError(
	func(s string) bool {
		block, _ := pem.Decode([]byte(s))
		return block != nil && block.Type == "CERTIFICATE"
	},
	validation.NewError("validation_pem_certificate", "must be a PEM encoded certificate"),
)
