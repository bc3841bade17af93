package errors

// Postgres helpers: SQLSTATE classification, field extraction from
// constraint metadata, and retry semantics for transient failures.

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the classifier distinguishes
const (
	pgErrUniqueViolation           = "23505"
	pgErrForeignKeyViolation       = "23503"
	pgErrNotNullViolation          = "23502"
	pgErrCheckViolation            = "23514"
	pgErrStringDataRightTruncation = "22001"
	pgErrInvalidTextRepresentation = "22P02"

	pgErrSerializationFailure   = "40001"
	pgErrDeadlockDetected       = "40P01"
	pgErrLockNotAvailable       = "55P03"
	pgErrReadOnlySQLTransaction = "25006"
	pgErrCannotConnectNow       = "57P03" // server still starting up
)

// sqlstateCodes maps the SQLSTATEs above onto project error codes.
// Anything not listed stays a generic DB error.
var sqlstateCodes = map[string]ErrorCode{
	pgErrUniqueViolation: ErrorCodeDuplicateKey,

	// a missing referenced row is bad input, not a storage fault
	pgErrForeignKeyViolation: ErrorCodeInvalidArgument,

	pgErrNotNullViolation: ErrorCodeValidation,
	pgErrCheckViolation:   ErrorCodeValidation,

	pgErrStringDataRightTruncation: ErrorCodeInvalidArgument,
	pgErrInvalidTextRepresentation: ErrorCodeInvalidArgument,

	// server-side contention, retryable at the service layer
	pgErrSerializationFailure: ErrorCodeDB,
	pgErrDeadlockDetected:     ErrorCodeDB,
	pgErrLockNotAvailable:     ErrorCodeDB,

	pgErrReadOnlySQLTransaction: ErrorCodeUnavailable,
	pgErrCannotConnectNow:       ErrorCodeUnavailable,
}

// IsSQLState reports whether err is a Postgres error carrying code
func IsSQLState(err error, code string) bool {
	var pgErr *pgconn.PgError
	return stderrs.As(Root(err), &pgErr) && pgErr.Code == code
}

// IsDuplicateKey reports a unique constraint violation
func IsDuplicateKey(err error) bool { return IsSQLState(err, pgErrUniqueViolation) }

// DBErrorCode classifies a Postgres error. ok is false when err is not
// a PgError at all; callers then fall back to generic handling.
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	if code, known := sqlstateCodes[pgErr.Code]; known {
		return code, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with its classified code; nil passes through
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// FromPostgresf is the formatted variant of FromPostgres
func FromPostgresf(err error, format string, a ...any) error {
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// AttachFieldFromPg enriches err with the column behind a constraint
// failure. ColumnName wins; otherwise the last token of the constraint
// name is used (commits_repo_hash_key yields hash). Returns err
// unchanged when nothing can be inferred.
func AttachFieldFromPg(err error) error {
	var pgErr *pgconn.PgError
	if !stderrs.As(Root(err), &pgErr) {
		return err
	}

	if col := strings.TrimSpace(pgErr.ColumnName); col != "" {
		return WithField(err, col)
	}

	c := strings.TrimSpace(pgErr.ConstraintName)
	if c == "" {
		return err
	}
	tok := c
	if i := strings.LastIndex(c, "_"); i >= 0 && i+1 < len(c) {
		tok = c[i+1:]
	}
	if tok == "" || tok == "key" {
		return err
	}
	return WithField(err, tok)
}

// FromPostgresWithField classifies and then attaches the offending
// column when the PgError metadata names one.
func FromPostgresWithField(err error, msg string) error {
	return AttachFieldFromPg(FromPostgres(err, msg))
}

// retryableTexts covers driver messages that arrive without a
// SQLSTATE, mostly commit/abort and timeout paths.
var retryableTexts = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"serialization failure",
	"canceling statement due to statement timeout",
	"canceling statement due to lock timeout",
	"could not obtain lock on row",
	"terminating connection due to administrator command",
}

// IsRetryable reports whether a database error is transient contention
// worth retrying. Local cancellations and deadlines are never
// retryable here; the caller owns those.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}

	root := Root(err)

	var pgErr *pgconn.PgError
	if stderrs.As(root, &pgErr) {
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrLockNotAvailable:
			return true
		}
		return false
	}

	s := strings.ToLower(root.Error())
	for _, pat := range retryableTexts {
		if strings.Contains(s, pat) {
			return true
		}
	}
	return false
}
