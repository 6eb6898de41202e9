package fat

import (
	"errors"
	"fmt"
	"os"

	"github.com/embfs/blockfs/pkg/block"

	"go.uber.org/zap"
)

// ErrNotMounted is returned by operations on an unmounted filesystem.
var ErrNotMounted = errors.New("fat: filesystem not mounted")

// ErrMounted is returned by Mount when the instance already has a volume.
var ErrMounted = errors.New("fat: filesystem already mounted")

// FileSystem is the front-end over one mounted volume. An instance owns
// at most one volume slot between Mount and Unmount. Every operation
// takes the shared table mutex for its duration, so filesystem calls are
// mutually exclusive across all volumes.
type FileSystem struct {
	name    string
	volumes *VolumeTable
	logger  *zap.Logger

	id    int
	label string
}

func New(name string, volumes *VolumeTable, logger *zap.Logger) *FileSystem {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileSystem{
		name:    name,
		volumes: volumes,
		logger:  logger,
		id:      -1,
	}
}

// Mount attaches dev to a free volume slot and asks the engine to mount
// it. force mounts over a volume the engine considers dirty. On engine
// failure the slot is released again before returning.
func (fs *FileSystem) Mount(dev block.Device, force bool) error {
	fs.volumes.mu.Lock()
	defer fs.volumes.mu.Unlock()

	if fs.id != -1 {
		return ErrMounted
	}

	slot, err := fs.volumes.attach(dev)
	if err != nil {
		return err
	}

	fs.id = slot
	fs.label = volumeLabel(slot)

	fs.logger.Debug("mounting", zap.String("name", fs.name), zap.String("label", fs.label))

	res := fs.volumes.engine.Mount(fs.label, force)
	if res != ResOK {
		fs.volumes.detach(slot)
		fs.id = -1
		fs.label = ""

		return engineErr("mount", res)
	}

	return nil
}

// Unmount asks the engine to unmount the volume, then clears the slot and
// resets the instance unconditionally, engine failure included.
func (fs *FileSystem) Unmount() error {
	fs.volumes.mu.Lock()
	defer fs.volumes.mu.Unlock()

	if fs.id == -1 {
		return ErrNotMounted
	}

	res := fs.volumes.engine.Unmount(fs.label)

	fs.volumes.detach(fs.id)
	fs.id = -1
	fs.label = ""

	return engineErr("unmount", res)
}

// Sync succeeds while mounted; writes are synchronous at this layer.
func (fs *FileSystem) Sync() error {
	fs.volumes.mu.Lock()
	defer fs.volumes.mu.Unlock()

	if fs.id == -1 {
		return ErrNotMounted
	}

	return nil
}

// Format formats dev with the given allocation unit (bytes per cluster,
// 0 for the engine default) by mounting a throwaway instance, invoking
// the engine's mkfs and unmounting again.
func Format(volumes *VolumeTable, dev block.Device, allocationUnit int) error {
	fs := New("", volumes, nil)

	if err := fs.Mount(dev, false); err != nil {
		return fmt.Errorf("fat: format mount: %w", err)
	}

	fs.volumes.mu.Lock()
	res := fs.volumes.engine.Mkfs(fs.label, allocationUnit)
	fs.volumes.mu.Unlock()

	if err := fs.Unmount(); err != nil {
		return fmt.Errorf("fat: format unmount: %w", err)
	}

	return engineErr("format", res)
}

// openMode translates POSIX open flags into the engine's mode bits.
func openMode(flag int) OpenMode {
	var mode OpenMode

	switch {
	case flag&os.O_RDWR != 0:
		mode = ModeRead | ModeWrite
	case flag&os.O_WRONLY != 0:
		mode = ModeWrite
	default:
		mode = ModeRead
	}

	if flag&os.O_CREATE != 0 {
		if flag&os.O_TRUNC != 0 {
			mode |= ModeCreateAlways
		} else {
			mode |= ModeOpenAlways
		}
	}

	return mode
}

// path builds the label-qualified path the engine expects.
func (fs *FileSystem) path(name string) string {
	return fs.label + ":/" + name
}

// OpenFile opens name with POSIX-style flags. The returned File shares
// the table mutex; each of its operations takes it for the duration of
// the engine call.
func (fs *FileSystem) OpenFile(name string, flag int) (*File, error) {
	fs.volumes.mu.Lock()
	defer fs.volumes.mu.Unlock()

	if fs.id == -1 {
		return nil, ErrNotMounted
	}

	fs.logger.Debug("open", zap.String("name", name), zap.String("label", fs.label))

	ef, res := fs.volumes.engine.Open(fs.path(name), openMode(flag))
	if res != ResOK {
		return nil, engineErr("open", res)
	}

	if flag&os.O_APPEND != 0 {
		if res := ef.Lseek(ef.Size()); res != ResOK {
			ef.Close()

			return nil, engineErr("open", res)
		}
	}

	return &File{ef: ef, mu: &fs.volumes.mu}, nil
}

// OpenDir opens the directory name for reading entries.
func (fs *FileSystem) OpenDir(name string) (*Dir, error) {
	fs.volumes.mu.Lock()
	defer fs.volumes.mu.Unlock()

	if fs.id == -1 {
		return nil, ErrNotMounted
	}

	ed, res := fs.volumes.engine.OpenDir(fs.path(name))
	if res != ResOK {
		return nil, engineErr("opendir", res)
	}

	return &Dir{ed: ed, mu: &fs.volumes.mu}, nil
}

// Mkdir creates the directory name. mode is accepted for interface
// parity; the engine does not store POSIX permissions.
func (fs *FileSystem) Mkdir(name string, mode os.FileMode) error {
	fs.volumes.mu.Lock()
	defer fs.volumes.mu.Unlock()

	if fs.id == -1 {
		return ErrNotMounted
	}

	return engineErr("mkdir", fs.volumes.engine.Mkdir(fs.path(name)))
}

// Remove deletes a file or an empty directory.
func (fs *FileSystem) Remove(name string) error {
	fs.volumes.mu.Lock()
	defer fs.volumes.mu.Unlock()

	if fs.id == -1 {
		return ErrNotMounted
	}

	return engineErr("remove", fs.volumes.engine.Unlink(fs.path(name)))
}

// Rename moves oldName to newName within the volume.
func (fs *FileSystem) Rename(oldName, newName string) error {
	fs.volumes.mu.Lock()
	defer fs.volumes.mu.Unlock()

	if fs.id == -1 {
		return ErrNotMounted
	}

	return engineErr("rename", fs.volumes.engine.Rename(fs.path(oldName), fs.path(newName)))
}

// Stat reports metadata for name.
func (fs *FileSystem) Stat(name string) (FileInfo, error) {
	fs.volumes.mu.Lock()
	defer fs.volumes.mu.Unlock()

	if fs.id == -1 {
		return FileInfo{}, ErrNotMounted
	}

	info, res := fs.volumes.engine.Stat(fs.path(name))
	if res != ResOK {
		return FileInfo{}, engineErr("stat", res)
	}

	return info, nil
}
