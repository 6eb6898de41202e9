package block

import (
	"errors"
	"fmt"
	"sort"
)

// ChainedDevice exposes the concatenation of several devices as one
// device. Member i covers the byte range [starts[i], starts[i]+size_i) of
// the chain's address space. The chain does not own its members.
//
// A request that straddles member boundaries is split into one
// sub-operation per member, issued in increasing address order. Such a
// request is not atomic: on failure, sub-operations before the failing
// member stay committed and later ones are not attempted.
type ChainedDevice struct {
	devices []Device
	starts  []int64
	size    int64
}

// NewChainedDevice chains the given devices in order. All members must
// share the same read and write units.
func NewChainedDevice(devices ...Device) (*ChainedDevice, error) {
	if len(devices) == 0 {
		return nil, errors.New("block: chain needs at least one device")
	}

	readSize := devices[0].ReadSize()
	writeSize := devices[0].WriteSize()

	starts := make([]int64, len(devices))

	var size int64
	for i, dev := range devices {
		if dev.ReadSize() != readSize || dev.WriteSize() != writeSize {
			return nil, fmt.Errorf("block: chain member %d has read/write sizes %d/%d, want %d/%d",
				i, dev.ReadSize(), dev.WriteSize(), readSize, writeSize)
		}

		starts[i] = size
		size += dev.Size()
	}

	return &ChainedDevice{
		devices: devices,
		starts:  starts,
		size:    size,
	}, nil
}

// Init initializes every member in order. If any member fails, the
// already-initialized members are deinitialized again so the chain never
// ends up partially live.
func (d *ChainedDevice) Init() error {
	for i, dev := range d.devices {
		if err := dev.Init(); err != nil {
			for j := i - 1; j >= 0; j-- {
				// Best effort unwind; the init error is what matters.
				_ = d.devices[j].Deinit()
			}

			return fmt.Errorf("block: chain member %d init: %w", i, err)
		}
	}

	return nil
}

// Deinit deinitializes every member, continuing past failures, and
// reports all of them.
func (d *ChainedDevice) Deinit() error {
	var errs []error

	for i, dev := range d.devices {
		if err := dev.Deinit(); err != nil {
			errs = append(errs, fmt.Errorf("block: chain member %d deinit: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

func (d *ChainedDevice) ReadAt(p []byte, off int64) (int, error) {
	if err := checkRange(off, int64(len(p)), d.ReadSize(), d.size); err != nil {
		return 0, err
	}

	return d.forEachSpan(p, off, func(dev Device, sub []byte, local int64) (int, error) {
		return dev.ReadAt(sub, local)
	})
}

func (d *ChainedDevice) WriteAt(p []byte, off int64) (int, error) {
	if err := checkRange(off, int64(len(p)), d.WriteSize(), d.size); err != nil {
		return 0, err
	}

	return d.forEachSpan(p, off, func(dev Device, sub []byte, local int64) (int, error) {
		return dev.WriteAt(sub, local)
	})
}

// forEachSpan splits the request at member boundaries and applies op to
// each member-local span in increasing address order.
func (d *ChainedDevice) forEachSpan(p []byte, off int64, op func(dev Device, sub []byte, local int64) (int, error)) (int, error) {
	done := 0

	i := d.memberAt(off)

	for done < len(p) {
		dev := d.devices[i]
		local := off + int64(done) - d.starts[i]

		length := dev.Size() - local
		if rem := int64(len(p) - done); rem < length {
			length = rem
		}

		n, err := op(dev, p[done:done+int(length)], local)
		done += n

		if err != nil {
			return done, fmt.Errorf("block: chain member %d at offset %d: %w", i, local, err)
		}

		i++
	}

	return done, nil
}

// memberAt returns the index of the member whose range contains off.
func (d *ChainedDevice) memberAt(off int64) int {
	return sort.Search(len(d.starts), func(i int) bool {
		return d.starts[i] > off
	}) - 1
}

func (d *ChainedDevice) Size() int64 {
	return d.size
}

func (d *ChainedDevice) ReadSize() int64 {
	return d.devices[0].ReadSize()
}

func (d *ChainedDevice) WriteSize() int64 {
	return d.devices[0].WriteSize()
}
