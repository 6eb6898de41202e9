// Package block provides a byte-addressed block device abstraction for
// fixed-size storage, concrete heap and mmap backed devices, and the
// sliced/chained composition wrappers.
package block

import (
	"errors"
	"fmt"
)

// Device is the contract every storage device and composition wrapper
// implements. Offsets and lengths are in bytes. Reads must be aligned to
// ReadSize, writes to WriteSize. Size, ReadSize and WriteSize are constant
// for the lifetime of the device and callable before Init.
//
// Init and Deinit bracket the device lifetime. Calling ReadAt or WriteAt
// on a device that is not initialized returns ErrNotInitialized.
type Device interface {
	Init() error
	Deinit() error

	// ReadAt reads len(p) bytes at offset off.
	// off and len(p) must be multiples of ReadSize.
	ReadAt(p []byte, off int64) (int, error)

	// WriteAt writes len(p) bytes at offset off.
	// off and len(p) must be multiples of WriteSize.
	WriteAt(p []byte, off int64) (int, error)

	Size() int64
	ReadSize() int64
	WriteSize() int64
}

// ErrNotInitialized is returned for I/O on a device outside its
// Init/Deinit window.
var ErrNotInitialized = errors.New("block: device not initialized")

// OutOfRangeError reports a request extending past the device size.
type OutOfRangeError struct {
	Off    int64
	Length int64
	Size   int64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("block: request [%d, %d) out of range, device size %d", e.Off, e.Off+e.Length, e.Size)
}

// AlignmentError reports an offset or length that is not a multiple of
// the device's read or write unit.
type AlignmentError struct {
	Off    int64
	Length int64
	Unit   int64
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("block: request off %d length %d not aligned to %d", e.Off, e.Length, e.Unit)
}

// checkRange validates alignment and bounds for a request. Shared by every
// device implementation so the contract errors are uniform.
func checkRange(off, length, unit, size int64) error {
	if off < 0 || off%unit != 0 || length%unit != 0 {
		return &AlignmentError{Off: off, Length: length, Unit: unit}
	}

	if off+length > size {
		return &OutOfRangeError{Off: off, Length: length, Size: size}
	}

	return nil
}
