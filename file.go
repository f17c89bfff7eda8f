// Package hdf5 provides a pure Go implementation for reading HDF5 files.
// It supports HDF5 superblock versions 0, 2, 3, and 4, with capabilities for
// reading datasets, groups, attributes, and various data layouts.
package hdf5

import (
	"fmt"
	"io"
	"os"

	"github.com/gohdf5/hdf5/internal/core"
	"github.com/gohdf5/hdf5/internal/hdf5io"
	"github.com/gohdf5/hdf5/internal/hlog"
	"github.com/gohdf5/hdf5/internal/utils"
)

// File represents an open HDF5 file with its metadata and root group.
type File struct {
	reader hdf5io.Reader
	closer io.Closer // non-nil only when Open itself opened the underlying os.File.
	sb     *core.Superblock
	root   *Group
	cache  *core.ObjectCache
}

// readObjectHeader decodes the object header at address, returning a cached
// instance if this address has already been decoded during this file's
// lifetime.
func (f *File) readObjectHeader(address uint64) (*core.ObjectHeader, error) {
	return core.ReadObjectHeaderCached(f.cache, f.reader, address, f.sb)
}

// Open opens an HDF5 source for reading and returns a File handle. source
// may be a path (string), an in-memory slab ([]byte), or an already-open
// *os.File. Sources at or under hdf5io.MaxBufferedSize are read fully into
// memory (Buffered); larger ones are accessed through a sliding window
// (Windowed) instead.
//
// If source does not carry the HDF5 signature, Open returns (nil, nil):
// this is not an error, just a "not this format" result, so callers
// probing an unknown file can tell the two apart.
func Open(source any) (*File, error) {
	reader, closer, err := newReader(source)
	if err != nil {
		return nil, utils.WrapError("file open failed", err)
	}

	if !isHDF5File(reader) {
		if closer != nil {
			_ = closer.Close()
		}
		hlog.Warn().Msg("missing HDF5 signature")
		return nil, nil
	}

	sb, err := core.ReadSuperblock(reader)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, utils.WrapError("superblock read failed", err)
	}
	hlog.Debug().Uint8("superblockVersion", sb.Version).
		Uint64("rootGroup", sb.RootGroup).Msg("superblock parsed")

	file := &File{
		reader: reader,
		closer: closer,
		sb:     sb,
		cache:  core.NewObjectCache(),
	}

	file.root, err = loadGroup(file, sb.RootGroup, "")
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		hlog.Error().Err(err).Msg("root group load failed")
		return nil, utils.WrapError("root group load failed", err)
	}

	// Ensure root group always reports as "/" (may be empty from object header).
	file.root.name = "/"
	file.root.path = "/"

	hlog.Debug().Msg("HDF5 file opened")
	return file, nil
}

// newReader picks a Buffered or Windowed implementation for source,
// returning a closer only when it opened the underlying *os.File itself.
func newReader(source any) (hdf5io.Reader, io.Closer, error) {
	switch src := source.(type) {
	case []byte:
		return hdf5io.NewBuffered(src), nil, nil

	case string:
		//nolint:gosec // G304: User-provided path is intentional for HDF5 file library
		f, err := os.Open(src)
		if err != nil {
			return nil, nil, err
		}
		return windowedOrBuffered(f, f)

	case *os.File:
		return windowedOrBuffered(src, nil)

	default:
		return nil, nil, fmt.Errorf("unsupported source type %T", source)
	}
}

// windowedOrBuffered stats f's size and picks Buffered for small files,
// Windowed otherwise. closer is returned unchanged so callers can track
// whether they own f's lifetime.
func windowedOrBuffered(f *os.File, closer io.Closer) (hdf5io.Reader, io.Closer, error) {
	fi, err := f.Stat()
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}

	size := fi.Size()
	if size <= hdf5io.MaxBufferedSize {
		data := make([]byte, size)
		if _, err := f.ReadAt(data, 0); err != nil && err != io.EOF {
			if closer != nil {
				_ = closer.Close()
			}
			return nil, nil, err
		}
		if closer != nil {
			_ = closer.Close()
		}
		return hdf5io.NewBuffered(data), nil, nil
	}

	return hdf5io.NewWindowed(f, size), closer, nil
}

// isHDF5File verifies the HDF5 signature.
func isHDF5File(r io.ReaderAt) bool {
	buf := utils.GetBuffer(8)
	defer utils.ReleaseBuffer(buf)

	if _, err := r.ReadAt(buf, 0); err != nil {
		return false
	}
	return string(buf) == core.Signature
}

// Close closes the HDF5 file and releases associated resources.
// It is safe to call Close multiple times.
func (f *File) Close() error {
	if f.closer == nil {
		return nil // Nothing this File owns, or already closed.
	}
	err := f.closer.Close()
	f.closer = nil
	if err != nil {
		hlog.Error().Err(err).Msg("file close failed")
	}
	return err
}

// Root returns the root group of the HDF5 file.
func (f *File) Root() *Group {
	return f.root
}

// Walk traverses the entire file structure, calling fn for each node.
// Nodes are visited in depth-first order starting from the root group.
func (f *File) Walk(fn func(path string, g *Group)) {
	walkGroup(f.root, fn)
}

func walkGroup(g *Group, fn func(string, *Group)) {
	fn(g.Path(), g)
	for _, child := range g.Children() {
		if !child.isDataset {
			walkGroup(child, fn)
		} else {
			fn(child.Path(), child)
		}
	}
}

// SuperblockVersion returns the HDF5 superblock format version (0, 2, 3, or 4).
func (f *File) SuperblockVersion() uint8 {
	return f.sb.Version
}

// Superblock returns the file's superblock metadata structure.
func (f *File) Superblock() *core.Superblock {
	return f.sb
}

// Reader returns the underlying positional reader for low-level access.
func (f *File) Reader() hdf5io.Reader {
	return f.reader
}

// readSignature reads 4 bytes at address and returns string.
func readSignature(r io.ReaderAt, address uint64) string {
	buf := make([]byte, 4)
	//nolint:gosec // G115: HDF5 addresses fit in int64 for io.ReaderAt interface
	if _, err := r.ReadAt(buf, int64(address)); err != nil {
		return ""
	}
	return string(buf)
}
