package hdf5

import (
	"encoding/binary"

	"github.com/gohdf5/hdf5/internal/core"
)

// Variable is the dataset payload exposed by a Group that turns out to be a
// dataset. It carries the decoded datatype/dataspace metadata plus the
// dataset's raw bytes, already assembled into one flat little-endian buffer
// regardless of whether the underlying storage was compact, contiguous, or
// chunked.
type Variable struct {
	datatype  *core.DatatypeMessage
	dataspace *core.DataspaceMessage
	data      []byte
	value     interface{}
}

// Type reports the element type's short name: "int32", "uint8", "float64",
// "string", "compound", and so on.
func (v *Variable) Type() string {
	return v.datatype.TypeName()
}

// Shape returns the dataset's dimensions. A scalar or null dataspace
// reports an empty shape.
func (v *Variable) Shape() []int {
	if v.dataspace.Type == core.DataspaceScalar || v.dataspace.Type == core.DataspaceNull {
		return []int{}
	}
	shape := make([]int, len(v.dataspace.Dimensions))
	for i, dim := range v.dataspace.Dimensions {
		shape[i] = int(dim)
	}
	return shape
}

// LittleEndian reports whether the dataset's elements are stored
// little-endian. HDF5 byte order is a property of the datatype, not the
// file as a whole.
func (v *Variable) LittleEndian() bool {
	return v.datatype.GetByteOrder() == binary.LittleEndian
}

// Data returns the dataset's raw bytes, flattened in row-major order with
// no interpretation applied.
func (v *Variable) Data() []byte {
	return v.data
}

// Value returns the dataset decoded into a Go-typed value: []float64 for
// both floating point and fixed point classes, []string for string
// classes. Compound and other structured types fall back to the raw byte
// slice.
func (v *Variable) Value() interface{} {
	return v.value
}
