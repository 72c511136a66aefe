package domain

import (
	"errors"
	"fmt"
)

// Base kinds. Concrete errors wrap one of these so callers can classify with
// errors.Is and HTTP handlers can pick a status code.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrExternal   = errors.New("external failure")
)

var (
	ErrBookingNotFound     = fmt.Errorf("booking %w", ErrNotFound)
	ErrRoomTypeNotFound    = fmt.Errorf("room type %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)

	ErrInsufficientInventory = fmt.Errorf("insufficient inventory: %w", ErrConflict)
	ErrRoomLocked            = fmt.Errorf("room is held by another booking: %w", ErrConflict)
	ErrInvalidTransition     = fmt.Errorf("invalid booking transition: %w", ErrConflict)

	ErrInvalidDateRange    = fmt.Errorf("check-out must be after check-in: %w", ErrValidation)
	ErrInvalidQuantity     = fmt.Errorf("quantity must be positive: %w", ErrValidation)
	ErrInvalidAmount       = fmt.Errorf("amount must be positive: %w", ErrValidation)
	ErrRefundExceedsPaid   = fmt.Errorf("refund exceeds paid amount: %w", ErrValidation)
	ErrDepositExceedsTotal = fmt.Errorf("deposit exceeds booking total: %w", ErrValidation)

	ErrBadSignature     = fmt.Errorf("webhook signature mismatch: %w", ErrExternal)
	ErrUnknownReference = fmt.Errorf("unknown order code: %w", ErrExternal)
)
