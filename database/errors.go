package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/speakerid/errors"
)

// IsConnectionError reports whether err looks like a lost or refused connection.
func IsConnectionError(err error) bool {
	return containsAny(err,
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"connection closed",
		"driver: bad connection",
	)
}

// IsRetryableError reports whether a database error may succeed on retry.
func IsRetryableError(err error) bool {
	if IsConnectionError(err) {
		return true
	}
	return containsAny(err,
		"deadlock",
		"lock timeout",
		"database is locked",
		"too many connections",
		"could not serialize access",
	)
}

// IsNotFoundError reports whether err is a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique-constraint violation.
// TranslateError covers both drivers; the string checks catch raw Exec errors.
func IsDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return containsAny(err, "unique constraint failed", "duplicate key value", "sqlstate 23505")
}

func containsAny(err error, patterns ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a store error into an AppError. AppErrors already in
// the chain pass through untouched; anything unrecognized is a persistence
// failure, retryable when IsRetryableError says so.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	switch {
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "").WithCause(err)
	case IsDuplicateError(err):
		return apperrors.AlreadyExists(resource).WithCause(err)
	default:
		appErr := apperrors.Persistence(err)
		appErr.Retryable = IsRetryableError(err)
		return appErr
	}
}
