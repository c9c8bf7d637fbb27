package services

import (
	"errors"
	"fmt"
)

// Error classes. Handlers map these to HTTP statuses with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrPersistence = errors.New("persistence error")
)

// Specific errors wrap one of the classes above.
var (
	ErrUserNotFound          = fmt.Errorf("user %w", ErrNotFound)
	ErrInventoryItemNotFound = fmt.Errorf("inventory item %w", ErrNotFound)
	ErrCustomerNotFound      = fmt.Errorf("customer %w", ErrNotFound)
	ErrAgencyNotFound        = fmt.Errorf("agency %w", ErrNotFound)
	ErrBillNotFound          = fmt.Errorf("bill %w", ErrNotFound)
	ErrPlanNotFound          = fmt.Errorf("subscription plan %w", ErrNotFound)
	ErrSubscriptionNotFound  = fmt.Errorf("subscription %w", ErrNotFound)

	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrEmailExists       = fmt.Errorf("%w: email already exists", ErrConflict)
	ErrInUse             = fmt.Errorf("%w: record is still referenced", ErrConflict)
	ErrInvalidTransition = fmt.Errorf("%w: subscription status transition not allowed", ErrConflict)

	ErrLimitExceeded = fmt.Errorf("%w: plan limit reached", ErrForbidden)

	ErrInvalidCredentials = errors.New("invalid email or password")
)
