package pgsql

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeInvalidTextRepr      = "22P02"
	codeLockNotAvailable     = "55P03"
	connectionExceptionClass = "08"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == codeUniqueViolation
}

// violatedConstraint names the constraint or index a Postgres error refers to.
func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// isInvalidID reports a malformed UUID literal, which callers treat as not found.
func isInvalidID(err error) bool {
	return pgErrorCode(err) == codeInvalidTextRepr
}

// IsTransient reports whether err is a failure that may succeed if the whole
// operation is retried: serialization failures, deadlocks, lock timeouts and
// dropped connections. Business errors are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch code := pgErrorCode(err); {
	case code == codeSerializationFailure, code == codeDeadlockDetected, code == codeLockNotAvailable:
		return true
	case strings.HasPrefix(code, connectionExceptionClass):
		return true
	}
	return pgconn.SafeToRetry(err)
}
