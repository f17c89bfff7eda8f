package hdf5io

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/gohdf5/hdf5/internal/errs"
)

// windowSize is the default span refilled around a cache miss. HDF5
// metadata structures (object header message headers, B-tree keys,
// datatype/dataspace messages) are small and clustered, so a window this
// size usually satisfies several consecutive reads per refill.
const windowSize = 256

// Windowed is a Reader over an io.ReaderAt of known length, accessed
// through a small sliding window instead of holding the whole source in
// memory. Used for sources larger than MaxBufferedSize.
type Windowed struct {
	src    io.ReaderAt
	length int64
	pos    int64

	winStart int64
	win      []byte

	cacheSize int

	offsetSize uint8
	lengthSize uint8
}

// NewWindowed wraps an io.ReaderAt of known length.
func NewWindowed(src io.ReaderAt, length int64) *Windowed {
	return &Windowed{src: src, length: length, cacheSize: windowSize, offsetSize: 8, lengthSize: 8}
}

// SetCacheSize overrides the sliding-window span (bytes refilled per
// miss). Exposed for CLI configuration; zero or negative values are
// ignored.
func (w *Windowed) SetCacheSize(n int) {
	if n > 0 {
		w.cacheSize = n
		w.win = nil
	}
}

func (w *Windowed) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > w.length {
		return 0, fmt.Errorf("offset %d out of range [0,%d]", off, w.length)
	}
	return w.src.ReadAt(p, off)
}

func (w *Windowed) Init(offsetSize, lengthSize uint8) {
	w.offsetSize = offsetSize
	w.lengthSize = lengthSize
}

func (w *Windowed) Position() int64 { return w.pos }

func (w *Windowed) Seek(pos int64) error {
	if pos < 0 || pos > w.length {
		return errs.New(errs.KindTruncated, fmt.Sprintf("seek to %d beyond length %d", pos, w.length))
	}
	w.pos = pos
	return nil
}

func (w *Windowed) Skip(n int) error {
	return w.Seek(w.pos + int64(n))
}

func (w *Windowed) Align(m int) error {
	return w.Seek(alignUp(w.pos, m))
}

// ensure refills the window so that at least n bytes starting at w.pos are
// available in w.win, growing the refill span to fit n if it exceeds the
// configured cache size.
func (w *Windowed) ensure(n int) error {
	if w.pos+int64(n) > w.length {
		return errs.New(errs.KindTruncated, fmt.Sprintf("need %d bytes at %d, have %d total", n, w.pos, w.length))
	}

	if w.win != nil && w.pos >= w.winStart && w.pos+int64(n) <= w.winStart+int64(len(w.win)) {
		return nil // cache hit
	}

	span := w.cacheSize
	if span < n {
		span = n
	}
	if w.pos+int64(span) > w.length {
		span = int(w.length - w.pos)
	}

	buf := make([]byte, span)
	read, err := w.src.ReadAt(buf, w.pos)
	if err != nil && !(err == io.EOF && read == span) {
		return errs.IO(fmt.Sprintf("window refill at %d (%d bytes)", w.pos, span), err)
	}

	w.winStart = w.pos
	w.win = buf
	return nil
}

func (w *Windowed) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	if err := w.ensure(n); err != nil {
		return nil, err
	}
	start := w.pos - w.winStart
	out := w.win[start : start+int64(n)]
	w.pos += int64(n)
	return out, nil
}

func (w *Windowed) Read(n int) ([]byte, error) {
	buf, err := w.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

func (w *Windowed) Peek(n int) ([]byte, error) {
	if w.pos+int64(n) > w.length {
		return nil, errs.New(errs.KindTruncated, fmt.Sprintf("need %d bytes at %d, have %d total", n, w.pos, w.length))
	}
	// Peek may exceed the sliding window's span; read directly for
	// correctness rather than growing the persistent window for a
	// one-off lookahead.
	buf := make([]byte, n)
	if _, err := w.src.ReadAt(buf, w.pos); err != nil {
		return nil, truncated(fmt.Sprintf("peek %d bytes at %d", n, w.pos), err)
	}
	return buf, nil
}

func (w *Windowed) Stream(n int) (Reader, error) {
	buf, err := w.Read(n)
	if err != nil {
		return nil, err
	}
	sub := NewBuffered(buf)
	sub.offsetSize = w.offsetSize
	sub.lengthSize = w.lengthSize
	return sub, nil
}

func (w *Windowed) Byte() (byte, error) {
	buf, err := w.take(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (w *Windowed) Int8() (int8, error) {
	v, err := w.Byte()
	return int8(v), err
}

func (w *Windowed) Uint16() (uint16, error) {
	buf, err := w.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (w *Windowed) Int16() (int16, error) {
	v, err := w.Uint16()
	return int16(v), err
}

func (w *Windowed) Uint32() (uint32, error) {
	buf, err := w.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (w *Windowed) Int32() (int32, error) {
	v, err := w.Uint32()
	return int32(v), err
}

func (w *Windowed) Uint64() (uint64, error) {
	buf, err := w.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (w *Windowed) Int64() (int64, error) {
	v, err := w.Uint64()
	return int64(v), err
}

func (w *Windowed) Float16() (float64, error) {
	bits, err := w.Uint16()
	if err != nil {
		return 0, err
	}
	return decodeFloat16(bits), nil
}

func (w *Windowed) Float32() (float32, error) {
	bits, err := w.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (w *Windowed) Float64() (float64, error) {
	bits, err := w.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func (w *Windowed) Offset() (uint64, error) {
	buf, err := w.take(int(w.offsetSize))
	if err != nil {
		return 0, err
	}
	return decodeOffsetLength(w.offsetSize, buf), nil
}

func (w *Windowed) Length() (uint64, error) {
	buf, err := w.take(int(w.lengthSize))
	if err != nil {
		return 0, err
	}
	return decodeOffsetLength(w.lengthSize, buf), nil
}

func (w *Windowed) String(size int, _ string) (string, error) {
	if size > 0 {
		buf, err := w.take(size)
		if err != nil {
			return "", err
		}
		return string(bytes.TrimRight(buf, "\x00")), nil
	}

	n, err := w.SizeUntil(0)
	if err != nil {
		return "", err
	}
	buf, err := w.take(n + 1)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

func (w *Windowed) Match(signature string) (bool, error) {
	buf, err := w.Peek(len(signature))
	if err != nil {
		return false, err
	}
	if string(buf) != signature {
		return false, nil
	}
	_, _ = w.take(len(signature))
	return true, nil
}

func (w *Windowed) Expect(signature string) error {
	ok, err := w.Match(signature)
	if err != nil {
		return err
	}
	if !ok {
		buf, _ := w.Peek(len(signature))
		return badMagic(signature, buf)
	}
	return nil
}

// SizeUntil scans forward from the cursor for terminator, reading directly
// from the source rather than through the sliding window since the scan
// range is unbounded.
func (w *Windowed) SizeUntil(terminator byte) (int, error) {
	const chunk = 256
	for scanned := int64(0); w.pos+scanned < w.length; scanned += chunk {
		span := int64(chunk)
		if w.pos+scanned+span > w.length {
			span = w.length - w.pos - scanned
		}
		buf := make([]byte, span)
		if _, err := w.src.ReadAt(buf, w.pos+scanned); err != nil {
			return 0, truncated(fmt.Sprintf("scan for terminator from %d", w.pos), err)
		}
		if idx := bytes.IndexByte(buf, terminator); idx >= 0 {
			return int(scanned) + idx, nil
		}
	}
	return 0, errs.New(errs.KindTruncated, fmt.Sprintf("terminator 0x%02X not found from position %d", terminator, w.pos))
}
