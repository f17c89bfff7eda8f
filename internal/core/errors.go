package core

import (
	"errors"

	"github.com/gohdf5/hdf5/internal/errs"
)

// ErrDenseStorageUnsupported is returned when a group or attribute set uses
// dense storage (a fractal heap indexed by a v2 B-tree) instead of the
// compact, object-header-resident form this reader decodes.
var ErrDenseStorageUnsupported = errors.New("dense storage (fractal heap / v2 B-tree) not supported")

// ErrBTreeV2LinkIndex is returned when a group's link storage is indexed by
// a v2 B-tree rather than the legacy v1 symbol-table B-tree.
var ErrBTreeV2LinkIndex = errors.New("v2 B-tree link index not supported")

// wrapDenseStorage tags err as a KindDenseStorageUnsupported DecodeError for
// a given parsing context, preserving errors.Is(err, ErrDenseStorageUnsupported)
// via Unwrap chaining.
func wrapDenseStorage(context string, err error) error {
	return errs.Wrap(errs.KindDenseStorageUnsupported, context, err)
}

// WrapBTreeV2 tags err as a KindUnsupportedBTreeType DecodeError. Exported
// so callers outside this package (group traversal) can label a rejected
// v2 B-tree link index the same way attribute storage rejection is labeled.
func WrapBTreeV2(context string, err error) error {
	return errs.Wrap(errs.KindUnsupportedBTreeType, context, err)
}
