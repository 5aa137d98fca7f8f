package service

import "github.com/go-faster/errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserBanned         = errors.New("user is banned")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrForbidden          = errors.New("forbidden")
	// ErrInvalidInput marks caller mistakes such as a short password or an unknown role.
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyInCart     = errors.New("item already in cart")
	ErrAlreadyPurchased  = errors.New("course already purchased")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
