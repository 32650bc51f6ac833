// Package ferrors defines the coded error kinds shared across the
// tree-rewriting engine, using go-serum so every fatal condition carries
// a stable machine-readable code alongside its human message.
package ferrors

import (
	"fmt"

	serum "github.com/serum-errors/go-serum"
)

// Error codes. One per §7 error kind.
const (
	CodeCorruptObject     = "gitcs-filter-error-corrupt-object"
	CodeNotFound          = "gitcs-filter-error-not-found"
	CodeCodecError        = "gitcs-filter-error-codec"
	CodeIoError           = "gitcs-filter-error-io"
	CodeInvariantViolated = "gitcs-filter-error-invariant-violated"
)

// CorruptObject wraps a malformed-object condition: bad header, length
// mismatch, unparsable tree entry, or a commit payload missing an
// expected literal prefix.
func CorruptObject(format string, args ...any) error {
	return serum.Errorf(CodeCorruptObject, format, args...)
}

// NotFound reports a missing object in the origin store.
func NotFound(hash string) error {
	return serum.Errorf(CodeNotFound, "object not found: %s", hash)
}

// CodecError wraps a zlib/inflate failure.
func CodecError(format string, args ...any) error {
	return serum.Errorf(CodeCodecError, format, args...)
}

// IoError wraps a filesystem failure.
func IoError(format string, args ...any) error {
	return serum.Errorf(CodeIoError, format, args...)
}

// InvariantViolated reports a memo-table CAS mismatch, non-linear
// history, or any other condition §7 classifies as a bug rather than
// an environmental failure.
func InvariantViolated(format string, args ...any) error {
	return serum.Errorf(CodeInvariantViolated, format, args...)
}

// Report renders err as the single error line plus structured context
// the operator sees on a fatal abort (§7 "user-visible behavior").
func Report(err error) string {
	return fmt.Sprintf("gitcs-filter: fatal: %s\n%s", err, serum.ToJSONString(err))
}
