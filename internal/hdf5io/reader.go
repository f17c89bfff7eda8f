// Package hdf5io provides the positional, typed-little-endian cursor that
// the rest of the decoder reads through. It generalizes the teacher's
// direct io.ReaderAt + encoding/binary call sites into a single Reader
// interface with two implementations: Buffered, for an in-memory byte
// slab, and Windowed, for an io.ReaderAt of known length accessed through
// a small sliding window. Both additionally satisfy io.ReaderAt so the
// rest of the tree can keep taking that narrower interface unchanged.
package hdf5io

import (
	"fmt"
	"io"
	"math"

	"github.com/gohdf5/hdf5/internal/errs"
)

// Undefined is the sentinel HDF5 uses for an "address/length not set"
// field: all bits one, the width of whatever Offset/Length just read.
const Undefined = ^uint64(0)

// MaxBufferedSize is the boundary used by library callers (Open) to pick
// Buffered over Windowed: inputs at or under this size are read fully into
// memory, larger ones are accessed through a sliding window instead.
const MaxBufferedSize = 256 * 1024 * 1024 // 256 MiB

// Reader is a single-cursor, positional view over HDF5 bytes. It is not
// safe for concurrent use: callers that need to read at a different offset
// without disturbing the current position must Position, Seek, read, then
// Seek back.
type Reader interface {
	io.ReaderAt

	// Init records the offset and length field widths (in bytes) that
	// Offset and Length use to decode the superblock's variable-width
	// address/size fields. Called once, by the superblock parser, right
	// after it reads those two width bytes.
	Init(offsetSize, lengthSize uint8)

	Byte() (byte, error)
	Int8() (int8, error)
	Uint16() (uint16, error)
	Int16() (int16, error)
	Uint32() (uint32, error)
	Int32() (int32, error)
	Uint64() (uint64, error)
	Int64() (int64, error)
	Float16() (float64, error)
	Float32() (float32, error)
	Float64() (float64, error)

	// Offset reads an OffsetSize-wide little-endian address, mapping an
	// all-ones pattern to Undefined.
	Offset() (uint64, error)
	// Length reads a LengthSize-wide little-endian size, mapping an
	// all-ones pattern to Undefined.
	Length() (uint64, error)

	// Read returns the next n bytes, advancing the cursor.
	Read(n int) ([]byte, error)
	// Peek returns the next n bytes without advancing the cursor.
	Peek(n int) ([]byte, error)
	// Stream returns an independent Reader over the next n bytes,
	// advancing this cursor past them. The returned Reader has its own
	// position starting at 0.
	Stream(n int) (Reader, error)

	Skip(n int) error
	Seek(pos int64) error
	// Align advances the cursor to the next multiple of m (relative to the
	// start of the underlying source).
	Align(m int) error

	// String reads a string. When size > 0, exactly size bytes are
	// consumed and trailing NUL bytes are stripped. When size <= 0, bytes
	// are consumed up to and including the first NUL (scanning forward
	// from the cursor), and the returned string excludes the NUL.
	String(size int, encoding string) (string, error)

	// Match reports whether the next len(signature) bytes equal signature,
	// without advancing the cursor on mismatch. On match, the cursor
	// advances past the signature.
	Match(signature string) (bool, error)
	// Expect is Match but returns errs.KindBadMagic instead of false.
	Expect(signature string) error

	// SizeUntil returns the number of bytes between the current position
	// and the next occurrence of terminator, without consuming any bytes.
	SizeUntil(terminator byte) (int, error)

	// Position returns the current absolute cursor offset.
	Position() int64
}

// decodeFloat16 converts an IEEE 754 half-precision bit pattern to
// float64. Sign is bit 15, exponent bits 14-10, mantissa bits 9-0.
func decodeFloat16(bits uint16) float64 {
	sign := bits >> 15
	exponent := (bits >> 10) & 0x1F
	mantissa := bits & 0x03FF

	var magnitude float64
	switch {
	case exponent == 0:
		// Zero or subnormal.
		magnitude = math.Ldexp(float64(mantissa), -24) // mantissa / 2^10 * 2^-14
	case exponent == 0x1F:
		if mantissa != 0 {
			return math.NaN()
		}
		magnitude = math.Inf(1)
	default:
		magnitude = math.Ldexp(1+float64(mantissa)/1024, int(exponent)-15)
	}

	if sign != 0 {
		return -magnitude
	}
	return magnitude
}

func alignUp(pos int64, m int) int64 {
	if m <= 1 {
		return pos
	}
	rem := pos % int64(m)
	if rem == 0 {
		return pos
	}
	return pos + int64(m) - rem
}

// decodeOffsetLength interprets buf (size little-endian bytes, size <= 8)
// as an unsigned integer, mapping the all-ones pattern to Undefined.
func decodeOffsetLength(size uint8, buf []byte) uint64 {
	var v uint64
	for i := int(size) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	if size >= 8 {
		if v == Undefined {
			return Undefined
		}
		return v
	}
	mask := (uint64(1) << (8 * size)) - 1
	if v == mask {
		return Undefined
	}
	return v
}

func truncated(context string, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errs.Wrap(errs.KindTruncated, context, err)
	}
	return errs.IO(context, err)
}

// badMagic builds the KindBadMagic error Expect returns on mismatch.
func badMagic(signature string, got []byte) error {
	return errs.New(errs.KindBadMagic, fmt.Sprintf("expected %q, got %q", signature, got))
}
