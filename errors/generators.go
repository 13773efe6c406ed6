package errors

import "fmt"

// NewResourceNotFoundError returns a new ErrNotFound error with kind
// KindResourceNotFound and the given message.
func NewResourceNotFoundError(message string, details Details) error {
	return Error{
		Code:    ErrNotFound,
		Kind:    KindResourceNotFound,
		Message: message,
		Details: details,
	}
}

// NewInternalError returns a new ErrInternal error with kind KindUnexpected.
func NewInternalError(message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindUnexpected,
		Message: message,
		Details: details,
	}
}

// NewInternalErrorFromErr returns a new ErrInternal error with kind
// KindUnexpected and the given original error.
func NewInternalErrorFromErr(err error, message string, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindUnexpected,
		Err:     err,
		Message: message,
		Details: details,
	}
}

// NewContextAbortedError returns an ErrAborted error with kind
// KindContextAborted for the given operation.
func NewContextAbortedError(currentOperation string) error {
	return Error{
		Code:    ErrAborted,
		Kind:    KindContextAborted,
		Message: fmt.Sprintf("context aborted while %s", currentOperation),
	}
}

// NewBadRequestError returns an ErrBadRequest error with the given kind.
func NewBadRequestError(kind Kind, message string, details Details) error {
	return Error{
		Code:    ErrBadRequest,
		Kind:    kind,
		Message: message,
		Details: details,
	}
}

// NewExecQueryError returns an ErrInternal error with kind KindDBQuery for a
// failed query.
func NewExecQueryError(err error, message string, query string) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDBQuery,
		Err:     err,
		Message: message,
		Details: Details{"query": query},
	}
}

// NewScanDBRowError returns an ErrInternal error with kind KindDB for a failed
// row scan.
func NewScanDBRowError(err error, message string, query string) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: message,
		Details: Details{"query": query},
	}
}

// NewQueryToSQLError returns an ErrInternal error for a query that could not
// be built.
func NewQueryToSQLError(err error, details Details) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDBQuery,
		Err:     err,
		Message: "query to sql",
		Details: details,
	}
}

// NewDBTxBeginError returns an ErrInternal error for a transaction that could
// not be started.
func NewDBTxBeginError(err error) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: "begin tx",
	}
}

// NewDBTxCommitError returns an ErrInternal error for a transaction that could
// not be committed.
func NewDBTxCommitError(err error) error {
	return Error{
		Code:    ErrInternal,
		Kind:    KindDB,
		Err:     err,
		Message: "commit tx",
	}
}
