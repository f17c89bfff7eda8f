// Package structures provides parsers for HDF5 internal data structures:
// local heaps, symbol tables, symbol table nodes, and the v1 B-tree that
// indexes a legacy group's children.
package structures

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gohdf5/hdf5/internal/core"
	"github.com/gohdf5/hdf5/internal/utils"
)

// BTreeEntry is a flattened symbol-table entry discovered while walking a
// group's v1 B-tree down to its leaf SymbolTableNodes.
type BTreeEntry struct {
	LinkNameOffset  uint64
	ObjectAddress   uint64
	CacheType       uint32
	Reserved        uint32
	CachedBTreeAddr uint64
	CachedHeapAddr  uint64
}

// IsSoftLink returns true if this entry represents a soft link.
func (e *BTreeEntry) IsSoftLink() bool {
	return e.CacheType == CacheTypeSoftLink
}

// groupBTreeNodeHeader is the fixed-size prefix shared by every "TREE" node.
type groupBTreeNodeHeader struct {
	nodeType     uint8
	nodeLevel    uint8
	entriesUsed  uint16
	leftSibling  uint64
	rightSibling uint64
}

func readGroupBTreeNodeHeader(r io.ReaderAt, address uint64, sb *core.Superblock) (groupBTreeNodeHeader, int, error) {
	headerSize := 4 + 1 + 1 + 2 + int(sb.OffsetSize)*2
	header := utils.GetBuffer(headerSize)
	defer utils.ReleaseBuffer(header)

	//nolint:gosec // G115: HDF5 addresses fit in int64 for io.ReaderAt interface
	if _, err := r.ReadAt(header, int64(address)); err != nil {
		return groupBTreeNodeHeader{}, 0, utils.WrapError("B-tree node header read failed", err)
	}

	if sig := string(header[0:4]); sig != "TREE" {
		return groupBTreeNodeHeader{}, 0, fmt.Errorf("invalid B-tree signature: %q (expected TREE)", sig)
	}

	if nodeType := header[4]; nodeType != 0 {
		return groupBTreeNodeHeader{}, 0, fmt.Errorf("expected group B-tree (type 0), got type %d", nodeType)
	}

	h := groupBTreeNodeHeader{
		nodeType:    header[4],
		nodeLevel:   header[5],
		entriesUsed: sb.Endianness.Uint16(header[6:8]),
	}
	h.leftSibling = readAddress(header[8:], int(sb.OffsetSize), sb.Endianness)
	h.rightSibling = readAddress(header[8+int(sb.OffsetSize):], int(sb.OffsetSize), sb.Endianness)

	return h, headerSize, nil
}

// ReadGroupBTreeEntries walks a "TREE" format B-tree (type 0 - group symbol
// table) rooted at address, descending through internal levels until it
// reaches level-0 leaves, and flattens every SymbolTableNode entry it finds.
//
// Internal nodes' children are themselves B-tree nodes; leaf nodes' children
// are Symbol Table Node (SNOD) addresses.
func ReadGroupBTreeEntries(r io.ReaderAt, address uint64, sb *core.Superblock) ([]BTreeEntry, error) {
	header, headerSize, err := readGroupBTreeNodeHeader(r, address, sb)
	if err != nil {
		return nil, err
	}

	if header.entriesUsed == 0 {
		return nil, nil
	}

	childAddrs, err := readGroupBTreeChildren(r, address, headerSize, header, sb)
	if err != nil {
		return nil, err
	}

	if header.nodeLevel == 0 {
		return readAllSymbolTableNodes(r, childAddrs, sb)
	}

	var all []BTreeEntry
	for _, childAddr := range childAddrs {
		childEntries, err := ReadGroupBTreeEntries(r, childAddr, sb)
		if err != nil {
			return nil, fmt.Errorf("failed to descend into group B-tree child at 0x%x: %w", childAddr, err)
		}
		all = append(all, childEntries...)
	}
	return all, nil
}

// readGroupBTreeChildren reads the interleaved key/child table following a
// group B-tree node header and returns the child addresses (SNODs for a leaf
// node, nested B-tree nodes otherwise).
func readGroupBTreeChildren(r io.ReaderAt, address uint64, headerSize int, header groupBTreeNodeHeader, sb *core.Superblock) ([]uint64, error) {
	entriesUsed := header.entriesUsed
	dataSize := int(entriesUsed)*2*int(sb.OffsetSize) + int(sb.OffsetSize) // N (key,child) pairs + trailing key
	data := utils.GetBuffer(dataSize)
	defer utils.ReleaseBuffer(data)

	//nolint:gosec // G115: HDF5 addresses fit in int64 for io.ReaderAt interface
	dataOffset := int64(address) + int64(headerSize)
	if _, err := r.ReadAt(data, dataOffset); err != nil {
		return nil, utils.WrapError("B-tree data read failed", err)
	}

	children := make([]uint64, 0, entriesUsed)
	pos := 0
	for i := uint16(0); i < entriesUsed; i++ {
		pos += int(sb.OffsetSize) // skip key (heap offset / max-key, not needed for full-tree enumeration)
		childAddr := readAddress(data[pos:], int(sb.OffsetSize), sb.Endianness)
		pos += int(sb.OffsetSize)

		if childAddr != 0 && childAddr != hdf5Undefined(sb.OffsetSize) {
			children = append(children, childAddr)
		}
	}
	return children, nil
}

func hdf5Undefined(offsetSize uint8) uint64 {
	if offsetSize >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (offsetSize * 8)) - 1
}

func readAllSymbolTableNodes(r io.ReaderAt, snodAddresses []uint64, sb *core.Superblock) ([]BTreeEntry, error) {
	var allEntries []BTreeEntry
	for _, snodAddr := range snodAddresses {
		snodNode, err := ParseSymbolTableNode(r, snodAddr, sb)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SNOD at 0x%x: %w", snodAddr, err)
		}

		for _, entry := range snodNode.Entries {
			allEntries = append(allEntries, BTreeEntry{
				LinkNameOffset:  entry.LinkNameOffset,
				ObjectAddress:   entry.ObjectAddress,
				CacheType:       entry.CacheType,
				Reserved:        0,
				CachedBTreeAddr: entry.CachedBTreeAddr,
				CachedHeapAddr:  entry.CachedHeapAddr,
			})
		}
	}
	return allEntries, nil
}

// readAddress reads a variable-sized address from a byte slice using the
// specified endianness.
func readAddress(data []byte, size int, endianness binary.ByteOrder) uint64 {
	if size > len(data) {
		size = len(data)
	}

	switch size {
	case 1:
		return uint64(data[0])
	case 2:
		return uint64(endianness.Uint16(data[:2]))
	case 4:
		return uint64(endianness.Uint32(data[:4]))
	case 8:
		return endianness.Uint64(data[:8])
	default:
		var buf [8]byte
		copy(buf[:], data[:size])
		return endianness.Uint64(buf[:])
	}
}
