// Package errors defines the error taxonomy for the scraping pipeline.
// Fatal codes abort a run; per-instrument codes are recorded in the skip
// log and never propagate past the instrument boundary.
package errors

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error classification.
type Code string

const (
	// CodeSourceUnavailable: the identifier endpoint was unreachable or
	// returned malformed CSV. Fatal, raised before any fetching.
	CodeSourceUnavailable Code = "SOURCE_UNAVAILABLE"

	// CodeFetchFailed: the per-instrument fetch exhausted its retries.
	// Non-fatal, the instrument is skipped.
	CodeFetchFailed Code = "FETCH_FAILED"

	// CodeUnparseableRecord: mandatory fields could not be located in the
	// fetched payload. Non-fatal, the instrument is skipped.
	CodeUnparseableRecord Code = "UNPARSEABLE_RECORD"

	// CodeWriteFailed: the results table could not be persisted. Fatal,
	// the previous snapshot is left untouched.
	CodeWriteFailed Code = "WRITE_FAILED"
)

// ScrapeError is the structured error carried through the pipeline.
type ScrapeError struct {
	Code    Code
	ISIN    string // empty for run-level errors
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ScrapeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ISIN != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Code, e.ISIN, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error must abort the whole run.
func (e *ScrapeError) Fatal() bool {
	return e.Code == CodeSourceUnavailable || e.Code == CodeWriteFailed
}

// SourceUnavailable builds the fatal identifier-source error.
func SourceUnavailable(message string, err error) *ScrapeError {
	return &ScrapeError{Code: CodeSourceUnavailable, Message: message, Err: err}
}

// FetchFailed builds the per-instrument fetch error.
func FetchFailed(isin, message string, err error) *ScrapeError {
	return &ScrapeError{Code: CodeFetchFailed, ISIN: isin, Message: message, Err: err}
}

// UnparseableRecord builds the per-instrument parse error.
func UnparseableRecord(isin, message string) *ScrapeError {
	return &ScrapeError{Code: CodeUnparseableRecord, ISIN: isin, Message: message}
}

// WriteFailed builds the fatal persistence error.
func WriteFailed(message string, err error) *ScrapeError {
	return &ScrapeError{Code: CodeWriteFailed, Message: message, Err: err}
}

// CodeOf extracts the classification from an error chain. It returns the
// empty Code for errors that did not originate in this package.
func CodeOf(err error) Code {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsFatal reports whether the error chain carries a run-aborting code.
// Unclassified errors are treated as fatal so that unexpected failures
// never pass silently.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Fatal()
	}
	return true
}
