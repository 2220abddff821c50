// Package errs defines the error taxonomy shared by every join-engine
// component. Errors are plain sentinels; callers use errors.Is/errors.As
// against them to decide whether to log-and-skip or propagate.
package errs

import "errors"

var (
	// ErrIO covers file open/read/write failures. Always fatal.
	ErrIO = errors.New("io error")

	// ErrCorruptPage means a slot decoded outside the heap, or the page
	// checksum did not match its contents. Always fatal.
	ErrCorruptPage = errors.New("corrupt page")

	// ErrRecordTooLarge means a single record exceeds payload capacity
	// even on a freshly flushed page. Always fatal.
	ErrRecordTooLarge = errors.New("record too large for page")

	// ErrSchemaMismatch means an unknown tag, an undeclared field, or a
	// field-count mismatch on ingest. Fatal at ingest, per-record
	// loggable inside an executor.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrKeyParse means the textual content of a declared integer key
	// field could not be parsed as base-10. Per-record: log and skip.
	ErrKeyParse = errors.New("key parse error")

	// ErrOutOfRange means a buffer pool index fell outside [0, count).
	// Always fatal.
	ErrOutOfRange = errors.New("out of range")

	// ErrBuildTooLarge means a hash join's build phase exhausted memory.
	// Fatal within the hash join; the caller may retry with BNLJ or
	// sort-merge instead.
	ErrBuildTooLarge = errors.New("hash build too large")
)
