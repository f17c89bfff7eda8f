package core

import (
	"encoding/binary"
	"testing"
)

// buildLinkMessageBytes hand-assembles the on-disk bytes for a link message
// so decode tests don't depend on a message encoder this reader doesn't
// ship.
func buildLinkMessageBytes(version, flags uint8, linkType LinkType, creationOrder uint64, charSet uint8, name string, linkValue []byte) []byte {
	lm := &LinkMessage{Flags: flags}

	buf := []byte{version, flags}
	if lm.HasLinkTypeField() {
		buf = append(buf, uint8(linkType))
	}
	if lm.HasCreationOrder() {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], creationOrder)
		buf = append(buf, b[:]...)
	}
	if lm.HasCharSetField() {
		buf = append(buf, charSet)
	}

	nameLength := uint64(len(name))
	switch lm.GetLinkNameLengthSize() {
	case 1:
		buf = append(buf, uint8(nameLength))
	case 2:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(nameLength))
		buf = append(buf, b[:]...)
	case 4:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(nameLength))
		buf = append(buf, b[:]...)
	case 8:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], nameLength)
		buf = append(buf, b[:]...)
	}

	buf = append(buf, []byte(name)...)
	buf = append(buf, linkValue...)
	return buf
}

func TestLinkMessageHardLink(t *testing.T) {
	sb := &Superblock{OffsetSize: 8, Endianness: binary.LittleEndian}

	linkValue := make([]byte, 8)
	binary.LittleEndian.PutUint64(linkValue, 0x1234567890ABCDEF)

	data := buildLinkMessageBytes(1, LinkFlagLinkTypeFieldBit, LinkTypeHard, 0, 0, "dataset1", linkValue)

	decoded, err := ParseLinkMessage(data, sb)
	if err != nil {
		t.Fatalf("ParseLinkMessage failed: %v", err)
	}
	if decoded.Type != LinkTypeHard {
		t.Errorf("Type mismatch: got %v, want %v", decoded.Type, LinkTypeHard)
	}
	if decoded.Name != "dataset1" {
		t.Errorf("Name mismatch: got %q, want %q", decoded.Name, "dataset1")
	}

	addr, err := decoded.GetHardLinkAddress(sb)
	if err != nil {
		t.Fatalf("GetHardLinkAddress failed: %v", err)
	}
	if addr != 0x1234567890ABCDEF {
		t.Errorf("Address mismatch: got 0x%X, want 0x1234567890ABCDEF", addr)
	}
}

func TestLinkMessageSoftLink(t *testing.T) {
	sb := &Superblock{OffsetSize: 8, Endianness: binary.LittleEndian}

	targetPath := "/path/to/target"
	linkValue := make([]byte, 2+len(targetPath))
	binary.LittleEndian.PutUint16(linkValue[0:2], uint16(len(targetPath)))
	copy(linkValue[2:], targetPath)

	data := buildLinkMessageBytes(1, LinkFlagLinkTypeFieldBit, LinkTypeSoft, 0, 0, "softlink1", linkValue)

	decoded, err := ParseLinkMessage(data, sb)
	if err != nil {
		t.Fatalf("ParseLinkMessage failed: %v", err)
	}
	if decoded.Type != LinkTypeSoft {
		t.Errorf("Type mismatch: got %v, want %v", decoded.Type, LinkTypeSoft)
	}

	path, err := decoded.GetSoftLinkPath()
	if err != nil {
		t.Fatalf("GetSoftLinkPath failed: %v", err)
	}
	if path != targetPath {
		t.Errorf("Path mismatch: got %q, want %q", path, targetPath)
	}
}

func TestLinkMessageExternalLink(t *testing.T) {
	sb := &Superblock{OffsetSize: 8, Endianness: binary.LittleEndian}

	fileName := "external.h5"
	objectPath := "/dataset"

	linkValue := make([]byte, 2+len(fileName)+2+len(objectPath))
	offset := 0
	binary.LittleEndian.PutUint16(linkValue[offset:offset+2], uint16(len(fileName)))
	offset += 2
	copy(linkValue[offset:], fileName)
	offset += len(fileName)
	binary.LittleEndian.PutUint16(linkValue[offset:offset+2], uint16(len(objectPath)))
	offset += 2
	copy(linkValue[offset:], objectPath)

	data := buildLinkMessageBytes(1, LinkFlagLinkTypeFieldBit, LinkTypeExternal, 0, 0, "externallink1", linkValue)

	decoded, err := ParseLinkMessage(data, sb)
	if err != nil {
		t.Fatalf("ParseLinkMessage failed: %v", err)
	}

	gotFileName, gotObjectPath, err := decoded.GetExternalLinkInfo()
	if err != nil {
		t.Fatalf("GetExternalLinkInfo failed: %v", err)
	}
	if gotFileName != fileName {
		t.Errorf("File name mismatch: got %q, want %q", gotFileName, fileName)
	}
	if gotObjectPath != objectPath {
		t.Errorf("Object path mismatch: got %q, want %q", gotObjectPath, objectPath)
	}
}

func TestLinkMessageWithCreationOrder(t *testing.T) {
	sb := &Superblock{OffsetSize: 8, Endianness: binary.LittleEndian}

	linkValue := make([]byte, 8)
	binary.LittleEndian.PutUint64(linkValue, 0x1000)

	data := buildLinkMessageBytes(1, LinkFlagLinkTypeFieldBit|LinkFlagCreationOrderBit, LinkTypeHard, 42, 0, "dataset42", linkValue)

	decoded, err := ParseLinkMessage(data, sb)
	if err != nil {
		t.Fatalf("ParseLinkMessage failed: %v", err)
	}
	if !decoded.HasCreationOrder() {
		t.Error("Creation order should be present")
	}
	if decoded.CreationOrder != 42 {
		t.Errorf("Creation order mismatch: got %d, want %d", decoded.CreationOrder, 42)
	}
}

func TestLinkMessageWithCharSet(t *testing.T) {
	sb := &Superblock{OffsetSize: 8, Endianness: binary.LittleEndian}

	linkValue := make([]byte, 8)
	binary.LittleEndian.PutUint64(linkValue, 0x2000)

	data := buildLinkMessageBytes(1, LinkFlagLinkTypeFieldBit|LinkFlagCharSetBit, LinkTypeHard, 0, 1, "dataset_utf8", linkValue)

	decoded, err := ParseLinkMessage(data, sb)
	if err != nil {
		t.Fatalf("ParseLinkMessage failed: %v", err)
	}
	if !decoded.HasCharSetField() {
		t.Error("Character set field should be present")
	}
	if decoded.CharSet != 1 {
		t.Errorf("Character set mismatch: got %d, want %d", decoded.CharSet, 1)
	}
}

func TestLinkMessageNameLengthSizes(t *testing.T) {
	sb := &Superblock{OffsetSize: 8, Endianness: binary.LittleEndian}

	linkValue := make([]byte, 8)
	binary.LittleEndian.PutUint64(linkValue, 0x3000)

	testCases := []struct {
		name  string
		flags uint8
	}{
		{"1-byte length", 0x00 | LinkFlagLinkTypeFieldBit},
		{"2-byte length", 0x01 | LinkFlagLinkTypeFieldBit},
		{"4-byte length", 0x02 | LinkFlagLinkTypeFieldBit},
		{"8-byte length", 0x03 | LinkFlagLinkTypeFieldBit},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := buildLinkMessageBytes(1, tc.flags, LinkTypeHard, 0, 0, "mylink", linkValue)

			decoded, err := ParseLinkMessage(data, sb)
			if err != nil {
				t.Fatalf("ParseLinkMessage failed: %v", err)
			}
			if decoded.Name != "mylink" {
				t.Errorf("Name mismatch: got %q, want %q", decoded.Name, "mylink")
			}
		})
	}
}

func TestLinkMessageInvalidVersion(t *testing.T) {
	sb := &Superblock{OffsetSize: 8, Endianness: binary.LittleEndian}

	data := []byte{2, 0} // version 2 is not supported
	_, err := ParseLinkMessage(data, sb)
	if err == nil {
		t.Error("Expected error for invalid version, got nil")
	}
}

func TestLinkMessageTruncated(t *testing.T) {
	sb := &Superblock{OffsetSize: 8, Endianness: binary.LittleEndian}

	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"only version", []byte{1}},
		{"missing link type", []byte{1, LinkFlagLinkTypeFieldBit}},
		{"missing creation order", []byte{1, LinkFlagCreationOrderBit, 0}},
		{"missing name length", []byte{1, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLinkMessage(tc.data, sb)
			if err == nil {
				t.Error("Expected error for truncated message, got nil")
			}
		})
	}
}

func TestLinkMessageGetters(t *testing.T) {
	sb := &Superblock{OffsetSize: 8, Endianness: binary.LittleEndian}

	t.Run("HardLinkAddress", func(t *testing.T) {
		linkValue := make([]byte, 8)
		binary.LittleEndian.PutUint64(linkValue, 0xABCD1234)

		lm := &LinkMessage{Type: LinkTypeHard, LinkValue: linkValue}

		addr, err := lm.GetHardLinkAddress(sb)
		if err != nil {
			t.Fatalf("GetHardLinkAddress failed: %v", err)
		}
		if addr != 0xABCD1234 {
			t.Errorf("Address mismatch: got 0x%X, want 0xABCD1234", addr)
		}

		lm.Type = LinkTypeSoft
		_, err = lm.GetHardLinkAddress(sb)
		if err == nil {
			t.Error("Expected error for GetHardLinkAddress on soft link")
		}
	})

	t.Run("SoftLinkPath", func(t *testing.T) {
		targetPath := "/my/target/path"
		lm := &LinkMessage{Type: LinkTypeSoft, LinkValue: []byte(targetPath)}

		path, err := lm.GetSoftLinkPath()
		if err != nil {
			t.Fatalf("GetSoftLinkPath failed: %v", err)
		}
		if path != targetPath {
			t.Errorf("Path mismatch: got %q, want %q", path, targetPath)
		}

		lm.Type = LinkTypeHard
		_, err = lm.GetSoftLinkPath()
		if err == nil {
			t.Error("Expected error for GetSoftLinkPath on hard link")
		}
	})

	t.Run("ExternalLinkInfo", func(t *testing.T) {
		fileName := "external.h5"
		objectPath := "/dataset"

		linkValue := make([]byte, 2+len(fileName)+2+len(objectPath))
		offset := 0
		binary.LittleEndian.PutUint16(linkValue[offset:], uint16(len(fileName)))
		offset += 2
		copy(linkValue[offset:], fileName)
		offset += len(fileName)
		binary.LittleEndian.PutUint16(linkValue[offset:], uint16(len(objectPath)))
		offset += 2
		copy(linkValue[offset:], objectPath)

		lm := &LinkMessage{Type: LinkTypeExternal, LinkValue: linkValue}

		gotFileName, gotObjectPath, err := lm.GetExternalLinkInfo()
		if err != nil {
			t.Fatalf("GetExternalLinkInfo failed: %v", err)
		}
		if gotFileName != fileName {
			t.Errorf("File name mismatch: got %q, want %q", gotFileName, fileName)
		}
		if gotObjectPath != objectPath {
			t.Errorf("Object path mismatch: got %q, want %q", gotObjectPath, objectPath)
		}

		lm.Type = LinkTypeHard
		_, _, err = lm.GetExternalLinkInfo()
		if err == nil {
			t.Error("Expected error for GetExternalLinkInfo on hard link")
		}
	})
}
