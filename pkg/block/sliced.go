package block

import (
	"fmt"
)

// SlicedDevice exposes the byte range [start, end) of a base device as an
// independent device. It does not own the base: Deinit of the slice
// deinitializes the base, and callers composing several slices over one
// base are responsible for serializing Init/Deinit between them. Reads and
// writes through overlapping slices are safe as long as the leaf device
// tolerates them.
type SlicedDevice struct {
	base  Device
	start int64
	end   int64
}

// NewSlicedDevice slices base to [start, end). A negative start or end is
// resolved relative to the end of the base, so start = -k selects the last
// k bytes. end = 0 means the end of the base.
func NewSlicedDevice(base Device, start, end int64) (*SlicedDevice, error) {
	size := base.Size()

	if start < 0 {
		start += size
	}

	if end <= 0 {
		end += size
	}

	if start < 0 || start >= end || end > size {
		return nil, fmt.Errorf("block: invalid slice bounds [%d, %d) for device of size %d", start, end, size)
	}

	return &SlicedDevice{
		base:  base,
		start: start,
		end:   end,
	}, nil
}

func (d *SlicedDevice) Init() error {
	if err := d.base.Init(); err != nil {
		return fmt.Errorf("block: slice base init: %w", err)
	}

	return nil
}

func (d *SlicedDevice) Deinit() error {
	if err := d.base.Deinit(); err != nil {
		return fmt.Errorf("block: slice base deinit: %w", err)
	}

	return nil
}

func (d *SlicedDevice) ReadAt(p []byte, off int64) (int, error) {
	if err := checkRange(off, int64(len(p)), d.base.ReadSize(), d.Size()); err != nil {
		return 0, err
	}

	return d.base.ReadAt(p, off+d.start)
}

func (d *SlicedDevice) WriteAt(p []byte, off int64) (int, error) {
	if err := checkRange(off, int64(len(p)), d.base.WriteSize(), d.Size()); err != nil {
		return 0, err
	}

	return d.base.WriteAt(p, off+d.start)
}

func (d *SlicedDevice) Size() int64 {
	return d.end - d.start
}

func (d *SlicedDevice) ReadSize() int64 {
	return d.base.ReadSize()
}

func (d *SlicedDevice) WriteSize() int64 {
	return d.base.WriteSize()
}
