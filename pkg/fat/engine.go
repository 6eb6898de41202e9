// Package fat bridges block devices to an external sector-oriented FAT
// filesystem engine. The engine itself (directory entries, cluster
// allocation, path parsing) is an external collaborator consumed through
// the Engine interface; the engine reaches storage back through the
// Driver interface, which VolumeTable implements.
package fat

// Result is an engine result code.
type Result int

const (
	ResOK Result = iota
	ResDiskErr
	ResIntErr
	ResNotReady
	ResNoFile
	ResNoPath
	ResInvalidName
	ResDenied
	ResExist
	ResInvalidObject
	ResWriteProtected
	ResInvalidDrive
	ResNotEnabled
	ResNoFilesystem
	ResMkfsAborted
	ResTimeout
	ResLocked
	ResNotEnoughCore
	ResTooManyOpenFiles
	ResInvalidParameter
)

// OpenMode is the engine's open-mode bitmask.
type OpenMode byte

const (
	ModeRead OpenMode = 1 << iota
	ModeWrite
	ModeCreateNew
	ModeCreateAlways
	ModeOpenAlways
)

// AttrDir marks a directory in FileInfo attributes; AttrReadOnly a
// read-only entry.
const (
	AttrReadOnly byte = 1 << 0
	AttrDir      byte = 1 << 4
)

// FileInfo describes a directory entry as reported by the engine.
// Modified carries the packed FAT timestamp, see UnpackTime.
type FileInfo struct {
	Name     string
	Size     int64
	Attr     byte
	Modified uint32
}

// Engine is the surface of the external FAT engine. Paths are
// label-qualified ("0:/name"); Mount/Unmount/Mkfs take the bare volume
// label. The engine is not reentrant and not thread safe; callers hold
// one lock around every call.
type Engine interface {
	Mount(label string, force bool) Result
	Unmount(label string) Result
	Mkfs(label string, allocationUnit int) Result

	Open(path string, mode OpenMode) (EngineFile, Result)
	OpenDir(path string) (EngineDir, Result)
	Unlink(path string) Result
	Rename(oldPath, newPath string) Result
	Mkdir(path string) Result
	Stat(path string) (FileInfo, Result)
}

// EngineFile is an open file inside the engine. The file keeps its own
// position; Lseek positions it absolutely.
type EngineFile interface {
	Read(p []byte) (int, Result)
	Write(p []byte) (int, Result)
	Lseek(off int64) Result
	Tell() int64
	Size() int64
	Truncate() Result
	Sync() Result
	Close() Result
}

// EngineDir is an open directory inside the engine. Read returns
// ResNoFile after the last entry.
type EngineDir interface {
	Read() (FileInfo, Result)
	Rewind() Result
	Close() Result
}

// DiskStatus is the driver status bitmask reported to the engine.
type DiskStatus byte

const (
	StatusOK      DiskStatus = 0
	StatusNoInit  DiskStatus = 1 << 0
	StatusNoDisk  DiskStatus = 1 << 1
	StatusProtect DiskStatus = 1 << 2
)

// DiskResult is the result of a driver sector operation.
type DiskResult int

const (
	DiskOK DiskResult = iota
	DiskError
	DiskWriteProtected
	DiskNotReady
	DiskParamError
)

// IoctlCmd selects a driver query.
type IoctlCmd int

const (
	IoctlSync IoctlCmd = iota
	IoctlSectorCount
	IoctlSectorSize
	IoctlBlockSize
)

// Driver is the callback surface the engine uses to reach storage. The
// drive byte is the volume slot the device was attached to.
type Driver interface {
	Status(drive byte) DiskStatus
	Initialize(drive byte) DiskStatus
	ReadSectors(drive byte, p []byte, sector, count uint32) DiskResult
	WriteSectors(drive byte, p []byte, sector, count uint32) DiskResult
	Ioctl(drive byte, cmd IoctlCmd) (uint32, DiskResult)
}
