package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError reports malformed or inconsistent input. It is raised
// before any transaction is opened and is never retried.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// SchemaError reports a target schema the writer cannot work with. Table and
// Column name the offending object for operator diagnosis.
type SchemaError struct {
	Table  string
	Column string
	msg    string
}

func (e *SchemaError) Error() string { return e.msg }

func schemaErrf(table, column, format string, args ...any) error {
	return &SchemaError{Table: table, Column: column, msg: fmt.Sprintf(format, args...)}
}

// InconsistentStateError signals a detected partial prior import: only one
// of the two movement kinds exists for an external reference. This requires
// manual intervention and is never retried or auto-repaired.
type InconsistentStateError struct {
	msg string
}

func (e *InconsistentStateError) Error() string { return e.msg }

func inconsistentf(format string, args ...any) error {
	return &InconsistentStateError{msg: fmt.Sprintf(format, args...)}
}

// ConflictError wraps a uniqueness violation caused by the read-then-insert
// sequence allocation window. The orchestrator retries it once; a conflict
// that survives the retry is surfaced wrapped in this type.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return "sequence allocation conflict: " + e.Err.Error()
}

func (e *ConflictError) Unwrap() error { return e.Err }

// isUniqueViolation classifies constraint violations. pgx exposes the
// SQLSTATE natively; the message scan covers errors that crossed a non-pgx
// boundary (legacy drivers, proxied sessions).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "violation of primary or unique key constraint") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "sqlstate = 23000")
}

// isRetryableConflict widens the classifier to conflicts the writer has
// already recognized itself, such as losing the article-code race.
func isRetryableConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict) || isUniqueViolation(err)
}
