// Package core provides HDF5 file format parsing and manipulation functionality.
package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"

	"github.com/gohdf5/hdf5/internal/errs"
	"github.com/gohdf5/hdf5/internal/utils"
)

// Attribute represents an HDF5 attribute with metadata and data.
type Attribute struct {
	Name      string
	Datatype  *DatatypeMessage
	Dataspace *DataspaceMessage
	Data      []byte
}

// AttributeInfoMessage represents the Attribute Info Message (0x0015).
// This message contains information about dense attribute storage.
// Reference: H5Adense.c in C library.
type AttributeInfoMessage struct {
	Version            uint8
	Flags              uint8
	FractalHeapAddr    uint64 // Address of fractal heap for dense attribute storage
	BTreeNameIndexAddr uint64 // Address of B-tree v2 for indexing attributes by name
	// Optional fields for creation order (if tracked):
	MaxCreationIndex    uint64 // Only present if creation order tracked
	BTreeOrderIndexAddr uint64 // Only present if creation order indexed
}

// ParseAttributeMessage parses an attribute message (type 0x000C).
// Format according to HDF5 spec:
// - Version (1 byte).
// - Flags (1 byte) - reserved, always 0.
// - Name size (2 bytes).
// - Datatype size (2 bytes).
// - Dataspace size (2 bytes).
// - Name encoding (1 byte) - for version 3+.
// - Name (variable, null-terminated).
// - Datatype message data.
// - Dataspace message data.
// - Data (variable).
// In version 1 the name, datatype and dataspace fields are each padded to a
// multiple of 8 bytes; later versions store them unpadded.
func ParseAttributeMessage(data []byte, endianness binary.ByteOrder) (*Attribute, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("attribute message too short: %d bytes", len(data))
	}

	attr := &Attribute{}
	offset := 0

	// Version.
	version := data[offset]
	offset++

	// Flags (reserved).
	offset++

	// Name size (2 bytes).
	nameSize := endianness.Uint16(data[offset : offset+2])
	offset += 2

	// Datatype size (2 bytes).
	datatypeSize := endianness.Uint16(data[offset : offset+2])
	offset += 2

	// Dataspace size (2 bytes).
	dataspaceSize := endianness.Uint16(data[offset : offset+2])
	offset += 2

	// For version 3+, there's a name encoding byte.
	if version >= 3 {
		// Name encoding (1 byte) - 0 = ASCII, 1 = UTF-8.
		offset++
	}

	// fieldLen is the on-disk length of a field, including v1 padding.
	fieldLen := func(n uint16) int {
		if version == 1 {
			return (int(n) + 7) &^ 7
		}
		return int(n)
	}

	// Read name (null-terminated).
	if offset+int(nameSize) > len(data) {
		return nil, fmt.Errorf("name extends beyond message: offset=%d, nameSize=%d, dataLen=%d",
			offset, nameSize, len(data))
	}

	// Name is null-terminated, so subtract 1 for the null byte.
	if nameSize > 0 {
		attr.Name = string(data[offset : offset+int(nameSize)-1])
		offset += fieldLen(nameSize)
	}

	// Parse datatype.
	if offset+int(datatypeSize) > len(data) {
		return nil, fmt.Errorf("datatype extends beyond message")
	}

	datatypeData := data[offset : offset+int(datatypeSize)]
	var err error
	attr.Datatype, err = ParseDatatypeMessage(datatypeData)
	if err != nil {
		return nil, utils.WrapError("datatype parse failed", err)
	}
	offset += fieldLen(datatypeSize)

	// Parse dataspace.
	if offset+int(dataspaceSize) > len(data) {
		return nil, fmt.Errorf("dataspace extends beyond message")
	}

	dataspaceData := data[offset : offset+int(dataspaceSize)]
	attr.Dataspace, err = ParseDataspaceMessage(dataspaceData)
	if err != nil {
		return nil, utils.WrapError("dataspace parse failed", err)
	}
	offset += fieldLen(dataspaceSize)

	// Remaining data is the attribute value.
	if offset < len(data) {
		attr.Data = make([]byte, len(data)-offset)
		copy(attr.Data, data[offset:])
	}

	return attr, nil
}

// ReadValue reads the attribute value as the appropriate Go type. Variable-
// length elements (class 9) cannot be resolved without a reader into the
// global heap; use ReadValueAt for attributes that may use them.
func (a *Attribute) ReadValue() (interface{}, error) {
	return a.ReadValueAt(nil, 0)
}

// ReadValueAt reads the attribute value as the appropriate Go type,
// resolving variable-length (class 9) elements by chasing r's global heap
// with the given offsetSize. Pass a nil reader for datatypes known not to
// use variable-length storage.
func (a *Attribute) ReadValueAt(r io.ReaderAt, offsetSize int) (interface{}, error) {
	if a.Datatype == nil || a.Dataspace == nil {
		return nil, fmt.Errorf("attribute missing datatype or dataspace")
	}

	totalElements := a.Dataspace.TotalElements()
	if totalElements == 0 || len(a.Data) == 0 {
		// Empty attribute - return empty slice instead of nil.
		return []interface{}{}, nil
	}

	// For scalar attributes, return single value.
	isScalar := len(a.Dataspace.Dimensions) == 0 ||
		(len(a.Dataspace.Dimensions) == 1 && a.Dataspace.Dimensions[0] == 1)

	switch a.Datatype.Class {
	case DatatypeFixed:
		switch a.Datatype.Size {
		case 4:
			values := make([]int32, totalElements)
			for i := uint64(0); i < totalElements; i++ {
				offset := i * 4
				if offset+4 > uint64(len(a.Data)) {
					return nil, fmt.Errorf("data too short for element %d", i)
				}
				//nolint:gosec // G115: HDF5 binary format requires uint32 to int32 conversion
				values[i] = int32(binary.LittleEndian.Uint32(a.Data[offset : offset+4]))
			}
			if isScalar {
				return values[0], nil
			}
			return values, nil
		case 8:
			values := make([]int64, totalElements)
			for i := uint64(0); i < totalElements; i++ {
				offset := i * 8
				if offset+8 > uint64(len(a.Data)) {
					return nil, fmt.Errorf("data too short for element %d", i)
				}
				//nolint:gosec // G115: HDF5 binary format requires uint64 to int64 conversion
				values[i] = int64(binary.LittleEndian.Uint64(a.Data[offset : offset+8]))
			}
			if isScalar {
				return values[0], nil
			}
			return values, nil
		}

	case DatatypeFloat:
		switch a.Datatype.Size {
		case 4:
			values := make([]float32, totalElements)
			for i := uint64(0); i < totalElements; i++ {
				offset := i * 4
				if offset+4 > uint64(len(a.Data)) {
					return nil, fmt.Errorf("data too short for element %d", i)
				}
				bits := binary.LittleEndian.Uint32(a.Data[offset : offset+4])
				values[i] = float32frombits(bits)
			}
			if isScalar {
				return values[0], nil
			}
			return values, nil
		case 8:
			values := make([]float64, totalElements)
			for i := uint64(0); i < totalElements; i++ {
				offset := i * 8
				if offset+8 > uint64(len(a.Data)) {
					return nil, fmt.Errorf("data too short for element %d", i)
				}
				bits := binary.LittleEndian.Uint64(a.Data[offset : offset+8])
				values[i] = float64frombits(bits)
			}
			if isScalar {
				return values[0], nil
			}
			return values, nil
		}

	case DatatypeString:
		// Fixed-length strings (variable-length not supported yet)
		if !a.Datatype.IsFixedString() {
			return nil, fmt.Errorf("variable-length strings not yet supported in attributes")
		}

		stringSize := uint64(a.Datatype.Size)
		paddingType := a.Datatype.GetStringPadding()
		values := make([]string, totalElements)

		for i := uint64(0); i < totalElements; i++ {
			offset := i * stringSize
			if offset+stringSize > uint64(len(a.Data)) {
				return nil, fmt.Errorf("data too short for string element %d", i)
			}
			stringBytes := a.Data[offset : offset+stringSize]
			values[i] = decodeFixedString(stringBytes, paddingType)
		}

		if isScalar {
			return values[0], nil
		}
		return values, nil

	case DatatypeVarLen:
		vt, err := ParseVarLenType(a.Datatype)
		if err != nil {
			return nil, err
		}
		if vt.BaseClass != VarLenString {
			return nil, errs.Unsupported("variable-length sequence attributes (only variable-length strings are decoded)")
		}
		if r == nil {
			return nil, errs.Malformed("variable-length string attribute", fmt.Errorf("no reader available to resolve global heap"))
		}
		elementSize := offsetSize + 4 // length (4 bytes) + GlobalHeapReference.
		values := make([]string, totalElements)
		for i := uint64(0); i < totalElements; i++ {
			//nolint:gosec // G115: HDF5 element counts fit in int for slicing
			offset := i * uint64(elementSize)
			if offset+uint64(elementSize) > uint64(len(a.Data)) {
				return nil, fmt.Errorf("data too short for variable-length element %d", i)
			}
			el, err := ParseVarLenElement(a.Data[offset:offset+uint64(elementSize)], offsetSize)
			if err != nil {
				return nil, err
			}
			s, err := DecodeVarLenString(r, el, offsetSize)
			if err != nil {
				return nil, err
			}
			values[i] = s
		}
		if isScalar {
			return values[0], nil
		}
		return values, nil

	case DatatypeEnum:
		enumType, err := ParseEnumType(a.Datatype)
		if err != nil {
			return nil, err
		}
		elementSize := uint64(enumType.Base.Size)
		if enumType.IsBoolean {
			values := make([]bool, totalElements)
			for i := uint64(0); i < totalElements; i++ {
				offset := i * elementSize
				if offset+elementSize > uint64(len(a.Data)) {
					return nil, fmt.Errorf("data too short for enum element %d", i)
				}
				values[i] = a.Data[offset] != 0
			}
			if isScalar {
				return values[0], nil
			}
			return values, nil
		}
		values := make([]string, totalElements)
		for i := uint64(0); i < totalElements; i++ {
			offset := i * elementSize
			if offset+elementSize > uint64(len(a.Data)) {
				return nil, fmt.Errorf("data too short for enum element %d", i)
			}
			name, err := enumMemberName(enumType, a.Data[offset:offset+elementSize])
			if err != nil {
				return nil, err
			}
			values[i] = name
		}
		if isScalar {
			return values[0], nil
		}
		return values, nil

	case DatatypeCompound:
		// Field-level decode is out of scope; the raw member layout is
		// available via ParseCompoundType. Return the raw bytes per element.
		elementSize := uint64(a.Datatype.Size)
		values := make([][]byte, totalElements)
		for i := uint64(0); i < totalElements; i++ {
			offset := i * elementSize
			if offset+elementSize > uint64(len(a.Data)) {
				return nil, fmt.Errorf("data too short for compound element %d", i)
			}
			raw := make([]byte, elementSize)
			copy(raw, a.Data[offset:offset+elementSize])
			values[i] = raw
		}
		if isScalar {
			return values[0], nil
		}
		return values, nil
	}

	return nil, errs.New(errs.KindUnsupportedDatatype,
		fmt.Sprintf("attribute datatype class %d size %d", a.Datatype.Class, a.Datatype.Size))
}

// enumMemberName matches a raw element value against an EnumType's members.
func enumMemberName(enumType *EnumType, value []byte) (string, error) {
	for _, m := range enumType.Members {
		if bytes.Equal(m.Value, value) {
			return m.Name, nil
		}
	}
	return "", errs.Malformed("enum value", fmt.Errorf("value %x matches no enum member", value))
}

// ParseAttributesFromMessages extracts all attributes from object header messages.
// Compact attributes (stored in the object header) are returned; when an
// Attribute Info message points at dense storage (a fractal heap), the call
// fails with a dense-storage error instead of reading those attributes.
func ParseAttributesFromMessages(r io.ReaderAt, messages []*HeaderMessage, sb *Superblock) ([]*Attribute, error) {
	var attributes []*Attribute
	var attrInfo *AttributeInfoMessage

	// First pass: look for AttributeInfo message (dense storage)
	for _, msg := range messages {
		if msg.Type == MsgAttributeInfo {
			var err error
			attrInfo, err = ParseAttributeInfoMessage(msg.Data, sb)
			if err != nil {
				// If we can't parse attribute info, fall back to compact only
				attrInfo = nil
			}
			break
		}
	}

	// Second pass: collect compact attributes
	for _, msg := range messages {
		if msg.Type == MsgAttribute {
			attr, err := ParseAttributeMessage(msg.Data, sb.Endianness)
			if err != nil {
				// Log error but continue with other attributes
				continue
			}
			attributes = append(attributes, attr)
		}
	}

	// If dense storage exists, reject it (readDenseAttributes always errors)
	if attrInfo != nil && attrInfo.FractalHeapAddr != 0 {
		denseAttrs, err := readDenseAttributes(r, attrInfo, sb)
		if err != nil {
			return nil, fmt.Errorf("failed to read dense attributes: %w", err)
		}
		attributes = append(attributes, denseAttrs...)
	}

	return attributes, nil
}

// Helper functions for float conversion (copied from dataset_reader.go to avoid circular import).
func float32frombits(b uint32) float32 {
	//nolint:gosec // G103: unsafe.Pointer required for IEEE 754 float32 bit representation
	return *(*float32)(unsafe.Pointer(&b))
}

func float64frombits(b uint64) float64 {
	//nolint:gosec // G103: unsafe.Pointer required for IEEE 754 float64 bit representation
	return *(*float64)(unsafe.Pointer(&b))
}

// readDenseAttributes rejects dense attribute storage (fractal heap plus a
// v2 B-tree name index). Decoding that subsystem is out of scope; callers
// that encounter it get a clearly labeled error instead of silently
// returning an incomplete attribute list.
func readDenseAttributes(_ io.ReaderAt, attrInfo *AttributeInfoMessage, _ *Superblock) ([]*Attribute, error) {
	cause := fmt.Errorf("%w: fractal heap at 0x%X, B-tree v2 at 0x%X",
		ErrDenseStorageUnsupported, attrInfo.FractalHeapAddr, attrInfo.BTreeNameIndexAddr)
	return nil, wrapDenseStorage("dense attribute storage", cause)
}

// ParseAttributeInfoMessage parses an Attribute Info Message (0x0015).
// Reference: H5Oainfo.c in C library.
// Format:
// - Version (1 byte)
// - Flags (1 byte):
//   - Bit 0: Track creation order
//   - Bit 1: Index creation order
//
// - Max Creation Index (2 bytes) followed by 2 further bytes that are
//   skipped - both only if track creation order flag set
// - Fractal Heap Address (variable, based on superblock offset size)
// - B-tree Name Index Address (variable)
// - B-tree Order Index Address (variable) - only if index creation order flag set.
func ParseAttributeInfoMessage(data []byte, sb *Superblock) (*AttributeInfoMessage, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("attribute info message too short: %d bytes", len(data))
	}

	msg := &AttributeInfoMessage{}
	offset := 0

	// Version
	msg.Version = data[offset]
	offset++

	// Flags
	msg.Flags = data[offset]
	offset++

	trackCreationOrder := (msg.Flags & 0x01) != 0
	indexCreationOrder := (msg.Flags & 0x02) != 0

	// Max Compact and Min Dense (2 bytes each) - only if creation order tracked
	if trackCreationOrder {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("attribute info message too short for max compact/min dense")
		}
		msg.MaxCreationIndex = uint64(sb.Endianness.Uint16(data[offset : offset+2]))
		offset += 2
		// Skip Min Dense (2 bytes) - not stored in struct
		offset += 2
	}

	// Fractal Heap Address (offset size bytes)
	offsetSize := int(sb.OffsetSize)
	if offset+offsetSize > len(data) {
		return nil, fmt.Errorf("attribute info message too short for fractal heap address")
	}
	msg.FractalHeapAddr = readAddress(data[offset:offset+offsetSize], offsetSize)
	offset += offsetSize

	// B-tree Name Index Address (offset size bytes)
	if offset+offsetSize > len(data) {
		return nil, fmt.Errorf("attribute info message too short for btree name index address")
	}
	msg.BTreeNameIndexAddr = readAddress(data[offset:offset+offsetSize], offsetSize)
	offset += offsetSize

	// B-tree Order Index Address (offset size bytes) - only if indexed
	if indexCreationOrder {
		if offset+offsetSize > len(data) {
			return nil, fmt.Errorf("attribute info message too short for btree order index address")
		}
		msg.BTreeOrderIndexAddr = readAddress(data[offset:offset+offsetSize], offsetSize)
	}

	return msg, nil
}

