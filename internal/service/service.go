package service

import (
	"errors"

	"storefront/internal/apperror"
	"storefront/internal/store"
)

// Page is a 1-based page request
type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// notFoundAs replaces store.ErrNotFound with a caller-facing 404
func notFoundAs(err error, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound(message)
	}
	return err
}
