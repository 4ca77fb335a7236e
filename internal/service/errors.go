package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Domain errors. Callers match them with errors.Is; every returned error wraps
// one of these with the offending id or quantity.
var (
	// ErrConfiguration aborts a company's recompute: its settings are missing.
	ErrConfiguration = errors.New("company settings missing")
	// ErrInsufficientStock rejects a move larger than its source holds.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrReferenceNotFound rejects an operation on an unknown row.
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrExternalFeed marks a marketplace pull that failed and was skipped.
	ErrExternalFeed = errors.New("external feed unavailable")
	// ErrValidation rejects malformed operator input.
	ErrValidation = errors.New("validation failed")
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// lookup translates a repository miss into ErrReferenceNotFound.
func lookup(err error, what string, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrReferenceNotFound)
	}
	return fmt.Errorf("load %s %s: %w", what, id, err)
}

func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid("invalid %s", field)
	}
	return id, nil
}
