package services

import "errors"

// Typed errors returned by the trade lifecycle and escrow engine.
// Handlers translate these to HTTP statuses; none of them is retried
// automatically, retries in this workflow are driven by user action.
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrHoldAlreadyExists = errors.New("escrow hold already exists for this trade")
	ErrHoldNotFound      = errors.New("no active escrow hold for this trade")
	ErrInvalidTransition = errors.New("transition not valid from current trade state")
	ErrUnauthorized      = errors.New("caller is not allowed to perform this action")
	ErrPolicyViolation   = errors.New("offer exceeds the valuation policy cap")
	ErrNotFound          = errors.New("record not found")
)
