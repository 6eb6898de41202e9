package fat

import (
	"errors"
	"sync"

	"github.com/embfs/blockfs/pkg/block"

	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"
)

// MaxVolumes is the number of volumes that can be mounted at once.
const MaxVolumes = 4

// ErrNoFreeVolume is returned by Mount when every volume slot is taken.
var ErrNoFreeVolume = errors.New("fat: no free volume slots")

// VolumeTable maps volume slots to attached block devices and implements
// the Driver surface the engine calls back into.
//
// The table mutex is the process-wide filesystem lock: it serializes all
// table access and every call into the engine, across all mounted
// volumes. The Driver methods deliberately do not take the mutex — the
// engine invokes them from within an engine call, while the front-end
// operation that entered the engine is still holding it.
type VolumeTable struct {
	engine Engine
	logger *zap.Logger

	slots [MaxVolumes]block.Device
	used  *bitset.BitSet

	mu sync.Mutex
}

func NewVolumeTable(engine Engine, logger *zap.Logger) *VolumeTable {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &VolumeTable{
		engine: engine,
		logger: logger,
		used:   bitset.New(MaxVolumes),
	}
}

// attach stores dev in a free slot and returns the slot index. The caller
// must hold the table mutex.
func (t *VolumeTable) attach(dev block.Device) (int, error) {
	slot, ok := t.used.NextClear(0)
	if !ok || slot >= MaxVolumes {
		return -1, ErrNoFreeVolume
	}

	t.used.Set(slot)
	t.slots[slot] = dev

	return int(slot), nil
}

// detach clears a slot. The caller must hold the table mutex.
func (t *VolumeTable) detach(slot int) {
	t.used.Clear(uint(slot))
	t.slots[slot] = nil
}

// volumeLabel derives the driver-visible label from a slot index.
func volumeLabel(slot int) string {
	return string(rune('0' + slot))
}

func (t *VolumeTable) deviceAt(drive byte) block.Device {
	if int(drive) >= MaxVolumes {
		return nil
	}

	return t.slots[drive]
}

func (t *VolumeTable) Status(drive byte) DiskStatus {
	t.logger.Debug("disk status", zap.Uint8("drive", drive))

	if t.deviceAt(drive) == nil {
		return StatusNoDisk
	}

	return StatusOK
}

func (t *VolumeTable) Initialize(drive byte) DiskStatus {
	t.logger.Debug("disk initialize", zap.Uint8("drive", drive))

	dev := t.deviceAt(drive)
	if dev == nil {
		return StatusNoDisk
	}

	if err := dev.Init(); err != nil {
		t.logger.Warn("device init failed", zap.Uint8("drive", drive), zap.Error(err))

		return StatusNoInit
	}

	return StatusOK
}

// ReadSectors converts a (sector, count) request into a byte-addressed
// read. The sector size is the device write unit.
func (t *VolumeTable) ReadSectors(drive byte, p []byte, sector, count uint32) DiskResult {
	t.logger.Debug("disk read", zap.Uint8("drive", drive), zap.Uint32("sector", sector), zap.Uint32("count", count))

	dev := t.deviceAt(drive)
	if dev == nil {
		return DiskNotReady
	}

	ssize := dev.WriteSize()

	_, err := dev.ReadAt(p[:int64(count)*ssize], int64(sector)*ssize)
	if err != nil {
		t.logger.Warn("device read failed", zap.Uint8("drive", drive), zap.Error(err))

		return DiskParamError
	}

	return DiskOK
}

// WriteSectors converts a (sector, count) request into a byte-addressed
// write. The sector size is the device write unit.
func (t *VolumeTable) WriteSectors(drive byte, p []byte, sector, count uint32) DiskResult {
	t.logger.Debug("disk write", zap.Uint8("drive", drive), zap.Uint32("sector", sector), zap.Uint32("count", count))

	dev := t.deviceAt(drive)
	if dev == nil {
		return DiskNotReady
	}

	ssize := dev.WriteSize()

	_, err := dev.WriteAt(p[:int64(count)*ssize], int64(sector)*ssize)
	if err != nil {
		t.logger.Warn("device write failed", zap.Uint8("drive", drive), zap.Error(err))

		return DiskParamError
	}

	return DiskOK
}

func (t *VolumeTable) Ioctl(drive byte, cmd IoctlCmd) (uint32, DiskResult) {
	t.logger.Debug("disk ioctl", zap.Uint8("drive", drive), zap.Int("cmd", int(cmd)))

	dev := t.deviceAt(drive)

	switch cmd {
	case IoctlSync:
		if dev == nil {
			return 0, DiskNotReady
		}

		// Writes are synchronous at this layer.
		return 0, DiskOK
	case IoctlSectorCount:
		if dev == nil {
			return 0, DiskNotReady
		}

		return uint32(dev.Size() / dev.WriteSize()), DiskOK
	case IoctlSectorSize:
		if dev == nil {
			return 0, DiskNotReady
		}

		return uint32(dev.WriteSize()), DiskOK
	case IoctlBlockSize:
		// Erase block size in sectors; 1 when not known.
		return 1, DiskOK
	}

	return 0, DiskParamError
}
