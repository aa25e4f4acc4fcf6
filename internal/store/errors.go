package store

import (
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/apperror"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

var uniqueMessages = map[string]string{
	"users_email_key":             "Email already exists",
	"users_phone_key":             "Phone already exists",
	"orders_order_number_key":     "Order number already exists",
	"wishlists_user_product_key":  "Product already in wishlist",
	"cart_items_cart_product_key": "Product already in cart",
	"carts_user_id_key":           "Cart already exists",
}

// translateError maps driver errors onto the API error taxonomy
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		msg, ok := uniqueMessages[pqErr.Constraint]
		if !ok {
			msg = "Duplicate value"
		}
		return &apperror.Error{Kind: apperror.KindConflict, Message: msg, Err: err}
	case pqCheckViolation:
		return &apperror.Error{
			Kind:    apperror.KindValidation,
			Message: fmt.Sprintf("Invalid value (%s)", pqErr.Constraint),
			Err:     err,
		}
	case pqForeignKeyViolation:
		return &apperror.Error{Kind: apperror.KindNotFound, Message: "Referenced record not found", Err: err}
	}
	return err
}
