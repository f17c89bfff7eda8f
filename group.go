package hdf5

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gohdf5/hdf5/internal/core"
	"github.com/gohdf5/hdf5/internal/hlog"
	"github.com/gohdf5/hdf5/internal/structures"
	"github.com/gohdf5/hdf5/internal/utils"
)

// HDF5 signature constants.
const (
	SignatureSNOD = "SNOD" // Symbol table node signature.
)

// Group represents an HDF5 group node: a named location in the file tree
// that holds child groups, attributes, and, when it is itself a dataset,
// a Variable.
type Group struct {
	file    *File
	name    string
	path    string
	address uint64 // Address of object header (0 for a traditional/SNOD-only group).

	isDataset bool

	children    []*Group
	symbolTable *structures.SymbolTable
	localHeap   *structures.LocalHeap

	variable       *Variable
	variableLoaded bool

	attrs       map[string]any
	attrsLoaded bool
}

// Name returns the group's own name (the last path segment).
func (g *Group) Name() string {
	return g.name
}

// Path returns the group's full path from the root, "/"-separated.
func (g *Group) Path() string {
	return g.path
}

// Address returns the object header address, for internal/debugging use.
func (g *Group) Address() uint64 {
	return g.address
}

// Children returns every child node of this group, group or dataset alike.
func (g *Group) Children() []*Group {
	return g.children
}

// Groups returns this group's child groups, keyed by name. Children that
// are themselves datasets are excluded; use Value on a child returned from
// Group or Children to reach those.
func (g *Group) Groups() map[string]*Group {
	out := make(map[string]*Group, len(g.children))
	for _, child := range g.children {
		if !child.isDataset {
			out[child.name] = child
		}
	}
	return out
}

// Group resolves a "/"-separated path of child names relative to this
// group and returns the node found there, group or dataset alike. An
// empty path, or "/", resolves to the group itself.
func (g *Group) Group(path string) (*Group, bool) {
	path = strings.Trim(path, "/")
	if path == "" {
		return g, true
	}

	current := g
	for _, segment := range strings.Split(path, "/") {
		var next *Group
		for _, child := range current.children {
			if child.name == segment {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Attributes returns this group's attributes decoded into Go values, keyed
// by name. Decode failures are logged and the offending attribute is
// omitted rather than failing the whole call.
func (g *Group) Attributes() map[string]any {
	if g.attrsLoaded {
		return g.attrs
	}
	g.attrs = g.decodeAttributes()
	g.attrsLoaded = true
	return g.attrs
}

func (g *Group) decodeAttributes() map[string]any {
	out := make(map[string]any)

	// Traditional format groups (SNOD) have no object header and so no
	// attributes.
	if g.address == 0 {
		return out
	}

	header, err := g.file.readObjectHeader(g.address)
	if err != nil {
		hlog.Warn().Err(err).Str("path", g.path).Msg("attribute header read failed")
		return out
	}

	for _, attr := range header.Attributes {
		val, err := attr.ReadValueAt(g.file.reader, int(g.file.sb.OffsetSize))
		if err != nil {
			hlog.Warn().Err(err).Str("path", g.path).Str("attribute", attr.Name).Msg("attribute decode failed")
			continue
		}
		out[attr.Name] = val
	}
	return out
}

// ListAttributes returns the names of all attributes attached to this
// node.
func (g *Group) ListAttributes() []string {
	attrs := g.Attributes()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	return names
}

// ReadAttribute reads a single attribute by name.
func (g *Group) ReadAttribute(name string) (interface{}, error) {
	val, ok := g.Attributes()[name]
	if !ok {
		return nil, fmt.Errorf("attribute %q not found", name)
	}
	return val, nil
}

// Value returns this node's dataset payload. ok is false when the group is
// not a dataset.
func (g *Group) Value() (*Variable, bool) {
	if !g.isDataset {
		return nil, false
	}
	if g.variableLoaded {
		return g.variable, g.variable != nil
	}
	g.variableLoaded = true

	header, err := g.file.readObjectHeader(g.address)
	if err != nil {
		hlog.Warn().Err(err).Str("path", g.path).Msg("dataset header read failed")
		return nil, false
	}

	rawData, datatype, dataspace, _, err := core.ReadDatasetRaw(g.file.reader, header, g.file.sb)
	if err != nil {
		hlog.Warn().Err(err).Str("path", g.path).Msg("dataset payload read failed")
		return nil, false
	}

	value, err := core.DecodeValue(rawData, datatype, dataspace.TotalElements(), g.file.reader, g.file.sb)
	if err != nil {
		hlog.Warn().Err(err).Str("path", g.path).Msg("dataset value decode failed")
		value = rawData
	}

	g.variable = &Variable{
		datatype:  datatype,
		dataspace: dataspace,
		data:      rawData,
		value:     value,
	}
	return g.variable, true
}

// Read reads the dataset values and returns them as a float64 array.
// Supports float64, float32, int32, int64 element types. Kept as a
// low-level convenience alongside Value/Data.
func (g *Group) Read() ([]float64, error) {
	header, err := g.file.readObjectHeader(g.address)
	if err != nil {
		return nil, err
	}
	return core.ReadDatasetFloat64(g.file.reader, header, g.file.sb)
}

// ReadStrings reads string dataset values and returns them as a string
// array. Supports fixed-length and variable-length strings.
func (g *Group) ReadStrings() ([]string, error) {
	header, err := g.file.readObjectHeader(g.address)
	if err != nil {
		return nil, err
	}
	return core.ReadDatasetStrings(g.file.reader, header, g.file.sb)
}

// ReadCompound reads compound dataset values and returns them as an array
// of maps, field name to decoded value.
func (g *Group) ReadCompound() ([]core.CompoundValue, error) {
	header, err := g.file.readObjectHeader(g.address)
	if err != nil {
		return nil, err
	}
	return core.ReadDatasetCompound(g.file.reader, header, g.file.sb)
}

// Info returns metadata about the dataset without reading actual values.
func (g *Group) Info() (string, error) {
	header, err := g.file.readObjectHeader(g.address)
	if err != nil {
		return "", err
	}

	info, err := core.ReadDatasetInfo(header, g.file.sb)
	if err != nil {
		return "", err
	}
	return info.String(), nil
}

func childPath(parentPath, name string) string {
	if parentPath == "/" {
		return "/" + name
	}
	return parentPath + "/" + name
}

func loadGroup(file *File, address uint64, parentPath string) (*Group, error) {
	if address == 0 {
		return nil, errors.New("invalid group address: 0")
	}

	// Check signature to determine group format.
	sig := readSignature(file.reader, address)

	// SNOD always means traditional format.
	if sig == SignatureSNOD {
		return loadTraditionalGroup(file, address, parentPath)
	}

	// For OHDR or v1 headers (no signature), try loading as modern group.
	// ReadObjectHeader will handle both v1 and v2 formats.
	return loadModernGroup(file, address, parentPath)
}

func loadModernGroup(file *File, address uint64, parentPath string) (*Group, error) {
	sb := file.sb

	header, err := file.readObjectHeader(address)
	if err != nil {
		return nil, utils.WrapError("object header read failed", err)
	}

	group := &Group{
		file:    file,
		name:    header.Name,
		address: address, // Store address for later Attributes()/Value() access.
	}
	group.path = childPath(parentPath, group.name)

	switch header.Type {
	case core.ObjectTypeDataset:
		group.isDataset = true
		return group, nil
	case core.ObjectTypeGroup:
		// Fall through to child loading below.
	default:
		return nil, fmt.Errorf("unsupported object type: %d", header.Type)
	}

	// First, try to parse Link messages (modern format).
	hasLinkMessages := false
	for _, msg := range header.Messages {
		if msg.Type == core.MsgLinkMessage {
			hasLinkMessages = true

			linkMsg, err := structures.ParseLinkMessage(msg.Data, sb)
			if err != nil {
				return nil, utils.WrapError("link message parse failed", err)
			}

			if linkMsg.IsHardLink() {
				child, err := loadObject(file, linkMsg.ObjectAddress, linkMsg.Name, group.path)
				if err != nil {
					// Some links might point to objects we don't support yet;
					// continue with the others.
					continue
				}
				group.children = append(group.children, child)
			} else if linkMsg.IsSoftLink() {
				// Soft link support deferred to v0.11.0-beta.
				continue
			}
		}
	}

	// Fallback to symbol table if no link messages found (older format).
	if !hasLinkMessages {
		for _, msg := range header.Messages {
			if msg.Type == core.MsgSymbolTable {
				// Symbol table message data format:
				// Bytes 0-7: B-tree address.
				// Bytes 8-15: Local heap address.
				if len(msg.Data) >= 16 {
					btreeAddr := sb.Endianness.Uint64(msg.Data[0:8])
					heapAddr := sb.Endianness.Uint64(msg.Data[8:16])

					group.symbolTable = &structures.SymbolTable{
						Version:      1,
						BTreeAddress: btreeAddr,
						HeapAddress:  heapAddr,
					}
				}
			}
		}

		if group.symbolTable != nil {
			if err := group.loadChildren(); err != nil {
				return nil, utils.WrapError("load children failed", err)
			}
		}
	}

	return group, nil
}

func loadTraditionalGroup(file *File, address uint64, parentPath string) (*Group, error) {
	// Parse the Symbol Table Node (SNOD).
	node, err := structures.ParseSymbolTableNode(file.reader, address, file.sb)
	if err != nil {
		return nil, utils.WrapError("symbol table node parse failed", err)
	}

	// The local heap address lives in the root group's Symbol Table
	// message; traditional-format groups have no object header of their
	// own to carry it.
	var heap *structures.LocalHeap

	rootHeader, err := file.readObjectHeader(file.sb.RootGroup)
	if err == nil {
		for _, msg := range rootHeader.Messages {
			if msg.Type == core.MsgSymbolTable && len(msg.Data) >= 16 {
				heapAddr := file.sb.Endianness.Uint64(msg.Data[8:16])
				heap, err = structures.LoadLocalHeap(file.reader, heapAddr, file.sb)
				if err != nil {
					return nil, utils.WrapError("local heap load failed", err)
				}
				break
			}
		}
	}

	if heap == nil {
		return nil, errors.New("could not find local heap for traditional group")
	}

	group := &Group{
		file:      file,
		name:      "/",
		path:      parentPath,
		localHeap: heap,
	}
	if group.path == "" {
		group.path = "/"
	}

	for _, entry := range node.Entries {
		linkName, err := heap.GetString(entry.LinkNameOffset)
		if err != nil {
			return nil, utils.WrapError("link name read failed", err)
		}

		child, err := loadObject(file, entry.ObjectAddress, linkName, group.path)
		if err != nil {
			return nil, utils.WrapError("child load failed", err)
		}

		group.children = append(group.children, child)
	}

	return group, nil
}

func (g *Group) loadChildren() error {
	if g.symbolTable == nil {
		return errors.New("symbol table is nil")
	}

	heap, err := structures.LoadLocalHeap(g.file.reader, g.symbolTable.HeapAddress, g.file.sb)
	if err != nil {
		return utils.WrapError("local heap load failed", err)
	}

	// Detect B-tree format by reading signature. This reader only decodes
	// the legacy v1 "TREE" symbol-table B-tree; a group indexed by a v2
	// B-tree (dense link storage) is rejected with a clear error.
	btreeSig := readSignature(g.file.reader, g.symbolTable.BTreeAddress)

	if btreeSig != "TREE" {
		cause := fmt.Errorf("%w: group B-tree signature %q at address 0x%X",
			core.ErrBTreeV2LinkIndex, btreeSig, g.symbolTable.BTreeAddress)
		return core.WrapBTreeV2("group link storage", cause)
	}

	entries, err := structures.ReadGroupBTreeEntries(g.file.reader, g.symbolTable.BTreeAddress, g.file.sb)
	if err != nil {
		return utils.WrapError("B-tree read failed", err)
	}

	for _, entry := range entries {
		// Check if this is an unnamed SNOD (offset 0 AND object is SNOD) - means we should inline its children.
		// Note: offset 0 alone is NOT sufficient - it's a valid offset for the first string in the heap!
		// We must verify the object at the address is actually a SNOD, not a regular object with name at offset 0.
		sig := readSignature(g.file.reader, entry.ObjectAddress)
		if entry.LinkNameOffset == 0 && sig == SignatureSNOD {
			// This is an unnamed SNOD container - load its children directly.
			node, err := structures.ParseSymbolTableNode(g.file.reader, entry.ObjectAddress, g.file.sb)
			if err != nil {
				return utils.WrapError("SNOD parse failed", err)
			}

			for _, snodEntry := range node.Entries {
				childName, err := heap.GetString(snodEntry.LinkNameOffset)
				if err != nil {
					return utils.WrapError("SNOD child name read failed", err)
				}

				child, err := loadObject(g.file, snodEntry.ObjectAddress, childName, g.path)
				if err != nil {
					return utils.WrapError("SNOD child load failed", err)
				}

				g.children = append(g.children, child)
			}
			continue
		}

		linkName, err := heap.GetString(entry.LinkNameOffset)
		if err != nil {
			return utils.WrapError("link name read failed", err)
		}

		child, err := loadObject(g.file, entry.ObjectAddress, linkName, g.path)
		if err != nil {
			return utils.WrapError("child load failed", err)
		}

		g.children = append(g.children, child)
	}

	return nil
}

func loadObject(file *File, address uint64, name string, parentPath string) (*Group, error) {
	// Check signature first - SNOD means traditional group format.
	sig := readSignature(file.reader, address)
	if sig == SignatureSNOD {
		// SNOD is a symbol table node - it might be:
		// 1. A true group with multiple children.
		// 2. A redirect node with single entry (v0 files).

		node, err := structures.ParseSymbolTableNode(file.reader, address, file.sb)
		if err != nil {
			return nil, err
		}

		// If SNOD has single entry, it's likely a redirect - load the target directly.
		if len(node.Entries) == 1 {
			rootHeader, err := file.readObjectHeader(file.sb.RootGroup)
			if err != nil {
				return nil, err
			}

			var heap *structures.LocalHeap
			for _, msg := range rootHeader.Messages {
				if msg.Type == core.MsgSymbolTable && len(msg.Data) >= 16 {
					heapAddr := file.sb.Endianness.Uint64(msg.Data[8:16])
					heap, err = structures.LoadLocalHeap(file.reader, heapAddr, file.sb)
					if err != nil {
						return nil, err
					}
					break
				}
			}

			if heap != nil {
				entry := node.Entries[0]
				linkName, err := heap.GetString(entry.LinkNameOffset)
				if err == nil && linkName == name {
					// This is a redirect node - load the target object directly.
					return loadObject(file, entry.ObjectAddress, name, parentPath)
				}
			}
		}

		// Otherwise, treat as a real group.
		group, err := loadTraditionalGroup(file, address, parentPath)
		if err != nil {
			return nil, err
		}
		if name != "" {
			group.name = name
			group.path = childPath(parentPath, name)
		}
		return group, nil
	}

	// Try reading object header (works for both v1 and v2).
	header, err := file.readObjectHeader(address)
	if err != nil {
		return nil, err
	}

	switch header.Type {
	case core.ObjectTypeGroup:
		group, err := loadGroup(file, address, parentPath)
		if err != nil {
			return nil, err
		}
		if name != "" {
			group.name = name
			group.path = childPath(parentPath, name)
		}
		return group, nil
	case core.ObjectTypeDataset:
		return &Group{
			file:      file,
			name:      name,
			path:      childPath(parentPath, name),
			address:   address,
			isDataset: true,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported object type: %d", header.Type)
	}
}
