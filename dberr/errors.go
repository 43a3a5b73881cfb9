// Package dberr defines the fatal error kinds the storage engine can raise.
//
// Every kind here aborts the operation that raised it; none are retried by
// the engine itself. Wrap with fmt.Errorf("...: %w", dberr.CorruptState) at
// the call site the way the rest of the repo wraps os/io errors.
package dberr

import "errors"

var (
	// InvalidDatabase is raised when path exists as a non-directory file,
	// or the manifest header doesn't look like a manifest at all.
	InvalidDatabase = errors.New("dberr: invalid database")

	// IncompatibleVersion is raised when the on-disk file-version-tag does
	// not match this build's version.
	IncompatibleVersion = errors.New("dberr: incompatible manifest version")

	// OrderMismatch is raised when the on-disk order does not match the
	// compile-time order constant.
	OrderMismatch = errors.New("dberr: order mismatch")

	// CorruptState is raised when a node id is referenced but absent from
	// the manifest and is not the id-1 bootstrap root.
	CorruptState = errors.New("dberr: corrupt state")

	// CodecFailure is raised when the pluggable value codec fails to
	// encode or decode a node image.
	CodecFailure = errors.New("dberr: codec failure")

	// IoFailure wraps underlying file I/O errors the engine cannot recover
	// from.
	IoFailure = errors.New("dberr: io failure")

	// NoMatchingEncoder is raised by the path encoder when a caller
	// supplies a value of a type with no registered encoder.
	NoMatchingEncoder = errors.New("dberr: no matching encoder")

	// NoMatchingDecoder is raised by the path encoder when it reads a key
	// whose leading type byte has no registered decoder.
	NoMatchingDecoder = errors.New("dberr: no matching decoder")
)
