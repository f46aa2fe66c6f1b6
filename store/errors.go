package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when an entity is not found.
	ErrNotFound = errors.New("entity not found")

	// ErrForeignKey is returned when a referenced entity does not exist.
	ErrForeignKey = errors.New("foreign key constraint violated")

	// ErrExpired is returned when a token or login ticket is past its expiration.
	ErrExpired = errors.New("expired")
)

// StoreError wraps errors with additional context.
type StoreError struct {
	Op      string // Operation that failed (e.g., "CreateSurvey")
	Entity  string // Entity type (e.g., "survey", "category")
	ID      string // Entity ID if applicable
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NewStoreError(op, entity, id, message string, err error) *StoreError {
	return &StoreError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}

// UniqueViolationError is returned when a write loses against an existing
// row on a UNIQUE column, e.g. two users creating the same category at once.
type UniqueViolationError struct {
	Entity     string
	Constraint string // "table.column" as reported by SQLite
	Err        error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("%s: unique constraint violated on %s", e.Entity, e.Constraint)
}

func (e *UniqueViolationError) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err is a lost uniqueness race.
func IsUniqueViolation(err error) bool {
	var uv *UniqueViolationError
	return errors.As(err, &uv)
}

// classify turns driver errors into the store's error types using the
// extended result code of the SQLite error.
func classify(op, entity, id string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &UniqueViolationError{
				Entity:     entity,
				Constraint: strings.TrimPrefix(sqliteErr.Error(), "UNIQUE constraint failed: "),
				Err:        err,
			}
		case sqlite3.ErrConstraintForeignKey:
			return NewStoreError(op, entity, id, "referenced entity does not exist", ErrForeignKey)
		}
	}
	return NewStoreError(op, entity, id, err.Error(), err)
}
