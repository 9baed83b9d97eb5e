package httputil

import (
	"strconv"

	validation "github.com/jellydator/validation"

	apperrors "github.com/SuYehTarn/jitr/internal/errors"
)

// Pagination bounds for list endpoints.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Page is an offset window over a list endpoint.
type Page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Validate checks the window bounds.
func (p Page) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Offset, validation.Min(0)),
		validation.Field(&p.Limit, validation.Required, validation.Min(1), validation.Max(MaxLimit)),
	)
}

// ParsePage reads the offset and limit query parameters. Errors wrap ErrInvalidInput.
func ParsePage(query func(key, fallback string) string) (Page, error) {
	offset, err := strconv.Atoi(query("offset", "0"))
	if err != nil {
		return Page{}, apperrors.Wrap(apperrors.ErrInvalidInput, "offset must be an integer")
	}

	limit, err := strconv.Atoi(query("limit", strconv.Itoa(DefaultLimit)))
	if err != nil {
		return Page{}, apperrors.Wrap(apperrors.ErrInvalidInput, "limit must be an integer")
	}

	page := Page{Offset: offset, Limit: limit}
	if err := page.Validate(); err != nil {
		return Page{}, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	return page, nil
}
