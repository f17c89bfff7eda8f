package hdf5io

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/gohdf5/hdf5/internal/errs"
)

// Buffered is a Reader over a fully in-memory byte slab. Used when the
// whole source is known and small enough to hold in memory (see
// MaxBufferedSize); every operation is a direct slice access, so there is
// no I/O error path beyond running off the end of the slab.
type Buffered struct {
	data []byte
	pos  int64

	offsetSize uint8
	lengthSize uint8
}

// NewBuffered wraps an in-memory byte slab. The slab is not copied; the
// caller must not mutate it while the Reader is in use.
func NewBuffered(data []byte) *Buffered {
	return &Buffered{data: data, offsetSize: 8, lengthSize: 8}
}

// ReadAt implements io.ReaderAt, independent of the cursor.
func (b *Buffered) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(b.data)) {
		return 0, fmt.Errorf("offset %d out of range [0,%d]", off, len(b.data))
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *Buffered) Init(offsetSize, lengthSize uint8) {
	b.offsetSize = offsetSize
	b.lengthSize = lengthSize
}

func (b *Buffered) Position() int64 { return b.pos }

func (b *Buffered) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(b.data)) {
		return errs.New(errs.KindTruncated, fmt.Sprintf("seek to %d beyond length %d", pos, len(b.data)))
	}
	b.pos = pos
	return nil
}

func (b *Buffered) Skip(n int) error {
	return b.Seek(b.pos + int64(n))
}

func (b *Buffered) Align(m int) error {
	return b.Seek(alignUp(b.pos, m))
}

func (b *Buffered) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read length %d", n)
	}
	end := b.pos + int64(n)
	if end > int64(len(b.data)) {
		return nil, errs.New(errs.KindTruncated, fmt.Sprintf("need %d bytes at %d, have %d total", n, b.pos, len(b.data)))
	}
	out := b.data[b.pos:end]
	b.pos = end
	return out, nil
}

func (b *Buffered) Read(n int) ([]byte, error) {
	buf, err := b.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

func (b *Buffered) Peek(n int) ([]byte, error) {
	end := b.pos + int64(n)
	if end > int64(len(b.data)) {
		return nil, errs.New(errs.KindTruncated, fmt.Sprintf("need %d bytes at %d, have %d total", n, b.pos, len(b.data)))
	}
	return b.data[b.pos:end], nil
}

func (b *Buffered) Stream(n int) (Reader, error) {
	buf, err := b.take(n)
	if err != nil {
		return nil, err
	}
	sub := NewBuffered(buf)
	sub.offsetSize = b.offsetSize
	sub.lengthSize = b.lengthSize
	return sub, nil
}

func (b *Buffered) Byte() (byte, error) {
	buf, err := b.take(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (b *Buffered) Int8() (int8, error) {
	v, err := b.Byte()
	return int8(v), err
}

func (b *Buffered) Uint16() (uint16, error) {
	buf, err := b.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (b *Buffered) Int16() (int16, error) {
	v, err := b.Uint16()
	return int16(v), err
}

func (b *Buffered) Uint32() (uint32, error) {
	buf, err := b.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (b *Buffered) Int32() (int32, error) {
	v, err := b.Uint32()
	return int32(v), err
}

func (b *Buffered) Uint64() (uint64, error) {
	buf, err := b.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (b *Buffered) Int64() (int64, error) {
	v, err := b.Uint64()
	return int64(v), err
}

func (b *Buffered) Float16() (float64, error) {
	bits, err := b.Uint16()
	if err != nil {
		return 0, err
	}
	return decodeFloat16(bits), nil
}

func (b *Buffered) Float32() (float32, error) {
	bits, err := b.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

func (b *Buffered) Float64() (float64, error) {
	bits, err := b.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func (b *Buffered) Offset() (uint64, error) {
	buf, err := b.take(int(b.offsetSize))
	if err != nil {
		return 0, err
	}
	return decodeOffsetLength(b.offsetSize, buf), nil
}

func (b *Buffered) Length() (uint64, error) {
	buf, err := b.take(int(b.lengthSize))
	if err != nil {
		return 0, err
	}
	return decodeOffsetLength(b.lengthSize, buf), nil
}

func (b *Buffered) String(size int, _ string) (string, error) {
	if size > 0 {
		buf, err := b.take(size)
		if err != nil {
			return "", err
		}
		return string(bytes.TrimRight(buf, "\x00")), nil
	}

	n, err := b.SizeUntil(0)
	if err != nil {
		return "", err
	}
	buf, err := b.take(n + 1) // include the NUL
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

func (b *Buffered) Match(signature string) (bool, error) {
	buf, err := b.Peek(len(signature))
	if err != nil {
		return false, err
	}
	if string(buf) != signature {
		return false, nil
	}
	_, _ = b.take(len(signature))
	return true, nil
}

func (b *Buffered) Expect(signature string) error {
	ok, err := b.Match(signature)
	if err != nil {
		return err
	}
	if !ok {
		buf, _ := b.Peek(len(signature))
		return badMagic(signature, buf)
	}
	return nil
}

func (b *Buffered) SizeUntil(terminator byte) (int, error) {
	idx := bytes.IndexByte(b.data[b.pos:], terminator)
	if idx < 0 {
		return 0, errs.New(errs.KindTruncated, fmt.Sprintf("terminator 0x%02X not found from position %d", terminator, b.pos))
	}
	return idx, nil
}
