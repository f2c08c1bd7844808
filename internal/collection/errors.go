package collection

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotInitialized is returned when the store is used before it was
	// opened or after it was closed.
	ErrNotInitialized = errors.New("collection: store not initialized")

	// ErrNotFound is returned for unknown spider, species or document ids.
	ErrNotFound = errors.New("collection: not found")

	// ErrInvalid wraps input the store refuses to persist.
	ErrInvalid = errors.New("collection: invalid input")

	// ErrConflict is returned when a unique value already exists.
	ErrConflict = errors.New("collection: already exists")

	// ErrStorage matches every *StorageError via errors.Is.
	ErrStorage = errors.New("collection: storage failure")
)

// StorageError reports a failed database operation. Callers can offer a
// retry when errors.Is(err, ErrStorage).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("collection: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes every StorageError match ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
