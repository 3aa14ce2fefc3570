package query

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes the executor reacts to.
const (
	CodeInFailedTransaction = "25P02"
	CodeSyntaxError         = "42601"
	CodeUndefinedFunction   = "42883"
)

// ErrIterationLimit is returned by the executor under the strict policy when
// conditional rewriting stopped at its iteration bound.
var ErrIterationLimit = errors.New("conditional rewrite stopped at iteration limit")

// sqlStateError is implemented by drivers other than lib/pq that expose the
// SQLSTATE, such as pgconn.PgError.
type sqlStateError interface {
	SQLState() string
}

// SQLState extracts the SQLSTATE code from err, or "" when the driver did
// not supply one.
func SQLState(err error) string {
	if err == nil {
		return ""
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var stateErr sqlStateError
	if errors.As(err, &stateErr) {
		return stateErr.SQLState()
	}
	return ""
}

// IsTransactionAborted reports whether err means the current transaction is
// aborted and every statement will fail until it is rolled back.
func IsTransactionAborted(err error) bool {
	if err == nil {
		return false
	}
	if SQLState(err) == CodeInFailedTransaction {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "transaction is aborted") ||
		strings.Contains(msg, "infailedsqltransaction")
}

// IsSyntaxError reports whether err is a statement syntax error.
func IsSyntaxError(err error) bool {
	if err == nil {
		return false
	}
	if SQLState(err) == CodeSyntaxError {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "syntax error")
}

// IsMissingRoutine reports whether err names a function that does not exist.
func IsMissingRoutine(err error) bool {
	if err == nil {
		return false
	}
	if SQLState(err) == CodeUndefinedFunction {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "function") && strings.Contains(msg, "does not exist")
}
