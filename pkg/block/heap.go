package block

import (
	"fmt"
	"sync"
)

// HeapDevice is a RAM-backed device. It is used as the leaf device for
// testing compositions and as a RAM disk.
//
// Deinit only marks the device closed; the memory is retained, so a later
// Init restores access to the same content.
type HeapDevice struct {
	memory    []byte
	readSize  int64
	writeSize int64
	tracker   *Tracker

	inited bool
	mu     sync.RWMutex
}

// NewHeapDevice creates a device of size bytes with blockSize as both the
// read and the write unit.
func NewHeapDevice(size, blockSize int64) (*HeapDevice, error) {
	return NewHeapDeviceWithSizes(size, blockSize, blockSize)
}

// NewHeapDeviceWithSizes creates a device with separate read and write
// units. size must be a multiple of both.
func NewHeapDeviceWithSizes(size, readSize, writeSize int64) (*HeapDevice, error) {
	if size <= 0 || readSize <= 0 || writeSize <= 0 {
		return nil, fmt.Errorf("block: invalid heap device geometry: size %d, read size %d, write size %d", size, readSize, writeSize)
	}

	if size%readSize != 0 || size%writeSize != 0 {
		return nil, fmt.Errorf("block: heap device size %d is not a multiple of read size %d and write size %d", size, readSize, writeSize)
	}

	return &HeapDevice{
		memory:    make([]byte, size),
		readSize:  readSize,
		writeSize: writeSize,
		tracker:   NewTracker(uint(size / writeSize)),
	}, nil
}

func (d *HeapDevice) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.inited = true

	return nil
}

func (d *HeapDevice) Deinit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.inited = false

	return nil
}

func (d *HeapDevice) ReadAt(p []byte, off int64) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.inited {
		return 0, ErrNotInitialized
	}

	if err := checkRange(off, int64(len(p)), d.readSize, int64(len(d.memory))); err != nil {
		return 0, err
	}

	return copy(p, d.memory[off:off+int64(len(p))]), nil
}

func (d *HeapDevice) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.inited {
		return 0, ErrNotInitialized
	}

	if err := checkRange(off, int64(len(p)), d.writeSize, int64(len(d.memory))); err != nil {
		return 0, err
	}

	n := copy(d.memory[off:off+int64(len(p))], p)

	for i := off; i < off+int64(n); i += d.writeSize {
		d.tracker.Mark(i / d.writeSize)
	}

	return n, nil
}

func (d *HeapDevice) Size() int64 {
	return int64(len(d.memory))
}

func (d *HeapDevice) ReadSize() int64 {
	return d.readSize
}

func (d *HeapDevice) WriteSize() int64 {
	return d.writeSize
}

// Tracked returns the written-block tracker for the device.
func (d *HeapDevice) Tracked() *Tracker {
	return d.tracker
}
