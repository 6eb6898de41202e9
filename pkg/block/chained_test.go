package block

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainedDeviceSingleMemberRanges(t *testing.T) {
	first, err := NewHeapDevice(8*blockSize, blockSize)
	require.NoError(t, err)
	second, err := NewHeapDevice(8*blockSize, blockSize)
	require.NoError(t, err)

	chain, err := NewChainedDevice(first, second)
	require.NoError(t, err)

	require.NoError(t, chain.Init())
	defer chain.Deinit()

	assert.Equal(t, int64(blockSize), chain.WriteSize())
	assert.Equal(t, int64(16*blockSize), chain.Size())

	data := pattern(t, 1, blockSize)

	// Inside the first member.
	_, err = chain.WriteAt(data, 0)
	require.NoError(t, err)

	out := make([]byte, blockSize)
	_, err = chain.ReadAt(out, 0)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	// First byte of the second member: lands at its local offset 0 and
	// nowhere in the first member.
	_, err = chain.WriteAt(data, 8*blockSize)
	require.NoError(t, err)

	_, err = chain.ReadAt(out, 8*blockSize)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	_, err = second.ReadAt(out, 0)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	assert.Equal(t, uint(1), first.Tracked().Count())
	assert.True(t, first.Tracked().IsMarked(0))
	assert.Equal(t, uint(1), second.Tracked().Count())
}

func TestChainedDeviceBoundaryStraddle(t *testing.T) {
	first, err := NewHeapDevice(8*blockSize, blockSize)
	require.NoError(t, err)
	second, err := NewHeapDevice(8*blockSize, blockSize)
	require.NoError(t, err)

	chain, err := NewChainedDevice(first, second)
	require.NoError(t, err)

	require.NoError(t, chain.Init())
	defer chain.Deinit()

	data := pattern(t, 3, 4*blockSize)

	// Two blocks in the first member, two in the second.
	n, err := chain.WriteAt(data, 6*blockSize)
	require.NoError(t, err)
	assert.Equal(t, 4*blockSize, n)

	// Round-trips through the chain.
	out := make([]byte, 4*blockSize)
	_, err = chain.ReadAt(out, 6*blockSize)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	// And is visible on the members at their rebased sub-ranges.
	half := make([]byte, 2*blockSize)
	_, err = first.ReadAt(half, 6*blockSize)
	require.NoError(t, err)
	assert.Equal(t, data[:2*blockSize], half)

	_, err = second.ReadAt(half, 0)
	require.NoError(t, err)
	assert.Equal(t, data[2*blockSize:], half)
}

func TestChainedDeviceIncompatibleWriteSizes(t *testing.T) {
	first, err := NewHeapDevice(8*blockSize, blockSize)
	require.NoError(t, err)
	second, err := NewHeapDevice(8*blockSize, 2*blockSize)
	require.NoError(t, err)

	_, err = NewChainedDevice(first, second)
	assert.Error(t, err)

	_, err = NewChainedDevice()
	assert.Error(t, err)
}

// faultyDevice fails Init and records Deinit calls; it stands in for a
// leaf whose power-up fails.
type faultyDevice struct {
	*HeapDevice

	initErr error
	deinits int
}

func newFaultyDevice(t *testing.T, initErr error) *faultyDevice {
	t.Helper()

	dev, err := NewHeapDevice(8*blockSize, blockSize)
	require.NoError(t, err)

	return &faultyDevice{HeapDevice: dev, initErr: initErr}
}

func (d *faultyDevice) Init() error {
	if d.initErr != nil {
		return d.initErr
	}

	return d.HeapDevice.Init()
}

func (d *faultyDevice) Deinit() error {
	d.deinits++

	return d.HeapDevice.Deinit()
}

func TestChainedDeviceInitUnwindsOnFailure(t *testing.T) {
	okDev := newFaultyDevice(t, nil)
	badDev := newFaultyDevice(t, errors.New("power-up failed"))

	chain, err := NewChainedDevice(okDev, badDev)
	require.NoError(t, err)

	err = chain.Init()
	require.Error(t, err)

	// The already-initialized first member was deinitialized again.
	assert.Equal(t, 1, okDev.deinits)
	assert.Equal(t, 0, badDev.deinits)

	_, err = okDev.ReadAt(make([]byte, blockSize), 0)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestChainedDeviceDeinitSweepsAllMembers(t *testing.T) {
	first := newFaultyDevice(t, nil)
	second := newFaultyDevice(t, nil)

	chain, err := NewChainedDevice(first, second)
	require.NoError(t, err)

	require.NoError(t, chain.Init())
	require.NoError(t, chain.Deinit())

	assert.Equal(t, 1, first.deinits)
	assert.Equal(t, 1, second.deinits)
}

func TestChainedDeviceThreeMembers(t *testing.T) {
	devs := make([]Device, 3)
	for i := range devs {
		dev, err := NewHeapDevice(4*blockSize, blockSize)
		require.NoError(t, err)

		devs[i] = dev
	}

	chain, err := NewChainedDevice(devs...)
	require.NoError(t, err)

	require.NoError(t, chain.Init())
	defer chain.Deinit()

	assert.Equal(t, int64(12*blockSize), chain.Size())

	// A write spanning all three members.
	data := pattern(t, 4, 6*blockSize)
	_, err = chain.WriteAt(data, 3*blockSize)
	require.NoError(t, err)

	out := make([]byte, 6*blockSize)
	_, err = chain.ReadAt(out, 3*blockSize)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}
