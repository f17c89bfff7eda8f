// Package errs defines the decode error taxonomy shared across the file
// reader. It generalizes the teacher's plain wrap-and-context error into a
// typed Kind so callers can distinguish "this file is genuinely malformed"
// from "this file uses a feature this reader doesn't decode" with
// errors.Is, without string matching on messages.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies why a decode operation failed.
type Kind int

const (
	// KindTruncated means a read ran past the end of the file/stream.
	KindTruncated Kind = iota
	// KindBadMagic means a signature or other expected fixed byte sequence
	// didn't match (e.g. "TREE", "SNOD", "GCOL").
	KindBadMagic
	// KindUnsupportedVersion means a message/structure version this reader
	// doesn't implement was encountered (e.g. filter pipeline v2).
	KindUnsupportedVersion
	// KindUnsupportedLayoutClass means a data layout class other than
	// compact/contiguous/chunked was encountered.
	KindUnsupportedLayoutClass
	// KindUnsupportedFilter means a filter id the pipeline has no decoder for
	// was required by a chunk's filter pipeline.
	KindUnsupportedFilter
	// KindUnsupportedDatatype means a datatype class/size/flag combination
	// this reader doesn't decode was encountered (e.g. nested variable-length
	// arrays, an unrecognized floating-point bit layout).
	KindUnsupportedDatatype
	// KindUnsupportedMessageType means an object header message type this
	// reader has no handler for was encountered.
	KindUnsupportedMessageType
	// KindUnsupportedCharacterSet means a string/link character set other
	// than ASCII or UTF-8 was encountered.
	KindUnsupportedCharacterSet
	// KindUnsupportedCacheType means a symbol table entry cache type other
	// than the ones this reader recognizes was encountered.
	KindUnsupportedCacheType
	// KindUnsupportedBTreeType means a B-tree variant this reader doesn't
	// walk was encountered (a v2 B-tree link index, in particular).
	KindUnsupportedBTreeType
	// KindNonZeroBaseAddress means the superblock's base address isn't zero,
	// a layout this reader assumes away.
	KindNonZeroBaseAddress
	// KindIntegerOverflow means a 64-bit field or a size computation exceeds
	// what this reader can safely represent.
	KindIntegerOverflow
	// KindCorruptedCompressedData means the LZF or DEFLATE decoder detected
	// truncation or an invalid back-reference.
	KindCorruptedCompressedData
	// KindPermutedOrUnequalMaxSize means a dataspace used the permutation
	// flag or a max-size unequal to its current size, neither of which this
	// reader supports.
	KindPermutedOrUnequalMaxSize
	// KindDenseStorageUnsupported means an Attribute Info or Link Info
	// message signals fractal-heap-backed dense storage.
	KindDenseStorageUnsupported
	// KindMalformed is a catch-all for structurally invalid bytes that don't
	// fit a more specific kind above.
	KindMalformed
	// KindIO means the underlying io.ReaderAt returned an error unrelated to
	// the file's contents (short read, closed file, disk error).
	KindIO
)

var kindNames = map[Kind]string{
	KindTruncated:                "truncated",
	KindBadMagic:                 "bad-magic",
	KindUnsupportedVersion:       "unsupported-version",
	KindUnsupportedLayoutClass:   "unsupported-layout-class",
	KindUnsupportedFilter:        "unsupported-filter",
	KindUnsupportedDatatype:      "unsupported-datatype",
	KindUnsupportedMessageType:   "unsupported-message-type",
	KindUnsupportedCharacterSet:  "unsupported-character-set",
	KindUnsupportedCacheType:     "unsupported-cache-type",
	KindUnsupportedBTreeType:     "unsupported-btree-type",
	KindNonZeroBaseAddress:       "non-zero-base-address",
	KindIntegerOverflow:          "integer-overflow",
	KindCorruptedCompressedData: "corrupted-compressed-data",
	KindPermutedOrUnequalMaxSize: "permuted-or-unequal-max-size",
	KindDenseStorageUnsupported:  "dense-storage-unsupported",
	KindMalformed:                "malformed",
	KindIO:                       "io",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsUnsupported reports whether k marks a deliberately-unimplemented feature
// rather than a genuinely broken file.
func (k Kind) IsUnsupported() bool {
	switch k {
	case KindUnsupportedVersion, KindUnsupportedLayoutClass, KindUnsupportedFilter,
		KindUnsupportedDatatype, KindUnsupportedMessageType, KindUnsupportedCharacterSet,
		KindUnsupportedCacheType, KindUnsupportedBTreeType, KindDenseStorageUnsupported,
		KindPermutedOrUnequalMaxSize:
		return true
	default:
		return false
	}
}

// DecodeError wraps a failure encountered while decoding an HDF5 structure,
// tagging it with a Kind and the structure that was being parsed.
type DecodeError struct {
	Kind    Kind
	Context string // what was being parsed, e.g. "object header at 0x1a0"
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Context)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DecodeError of the same Kind, so callers
// can write errors.Is(err, errs.Unsupported(...)) style sentinel checks.
func (e *DecodeError) Is(target error) bool {
	var other *DecodeError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New creates a DecodeError of the given kind with no wrapped cause.
func New(kind Kind, context string) error {
	return &DecodeError{Kind: kind, Context: context}
}

// Wrap creates a DecodeError of the given kind wrapping cause.
func Wrap(kind Kind, context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &DecodeError{Kind: kind, Context: context, Cause: cause}
}

// Malformed is a convenience for Wrap(KindMalformed, ...).
func Malformed(context string, cause error) error {
	return Wrap(KindMalformed, context, cause)
}

// Unsupported is a convenience for New(KindUnsupportedMessageType, ...),
// used when no more specific unsupported-* kind applies.
func Unsupported(context string) error {
	return New(KindUnsupportedMessageType, context)
}

// IO is a convenience for Wrap(KindIO, ...).
func IO(context string, cause error) error {
	return Wrap(KindIO, context, cause)
}
