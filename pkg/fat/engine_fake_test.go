package fat

import (
	"strings"
)

// fakeEngine is an in-memory stand-in for the external FAT engine. It
// keeps a flat path → content map per volume label and drives storage
// through the Driver surface the way the real engine does, so the sector
// translation path is exercised by the front-end tests.
type fakeEngine struct {
	drv Driver

	mountRes   Result
	unmountRes Result
	mkfsRes    Result

	mounted map[string]bool

	mountCalls   []string
	unmountCalls []string
	mkfsUnits    []int

	files map[string][]byte
	dirs  map[string]bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		mounted: make(map[string]bool),
		files:   make(map[string][]byte),
		dirs:    make(map[string]bool),
	}
}

func (e *fakeEngine) Mount(label string, force bool) Result {
	e.mountCalls = append(e.mountCalls, label)

	if e.mountRes != ResOK {
		return e.mountRes
	}

	if e.drv != nil {
		drive := label[0] - '0'

		if e.drv.Initialize(drive) != StatusOK {
			return ResNotReady
		}

		if _, res := e.drv.Ioctl(drive, IoctlSectorCount); res != DiskOK {
			return ResDiskErr
		}
	}

	e.mounted[label] = true

	return ResOK
}

func (e *fakeEngine) Unmount(label string) Result {
	e.unmountCalls = append(e.unmountCalls, label)
	delete(e.mounted, label)

	return e.unmountRes
}

func (e *fakeEngine) Mkfs(label string, allocationUnit int) Result {
	e.mkfsUnits = append(e.mkfsUnits, allocationUnit)

	if e.mkfsRes != ResOK {
		return e.mkfsRes
	}

	if e.drv != nil {
		// Zero the first sector, the way a real mkfs rewrites the boot
		// sector, to exercise the driver write path.
		drive := label[0] - '0'

		size, res := e.drv.Ioctl(drive, IoctlSectorSize)
		if res != DiskOK {
			return ResDiskErr
		}

		if e.drv.WriteSectors(drive, make([]byte, size), 0, 1) != DiskOK {
			return ResDiskErr
		}
	}

	return ResOK
}

func (e *fakeEngine) label(path string) string {
	return path[:strings.Index(path, ":")]
}

func (e *fakeEngine) Open(path string, mode OpenMode) (EngineFile, Result) {
	if !e.mounted[e.label(path)] {
		return nil, ResNotEnabled
	}

	content, ok := e.files[path]

	switch {
	case !ok && mode&(ModeCreateAlways|ModeOpenAlways|ModeCreateNew) == 0:
		return nil, ResNoFile
	case ok && mode&ModeCreateNew != 0:
		return nil, ResExist
	case mode&ModeCreateAlways != 0:
		content = nil
	}

	e.files[path] = content

	return &fakeFile{engine: e, path: path, mode: mode}, ResOK
}

func (e *fakeEngine) OpenDir(path string) (EngineDir, Result) {
	if !e.mounted[e.label(path)] {
		return nil, ResNotEnabled
	}

	prefix := strings.TrimSuffix(path, "/") + "/"
	if strings.HasSuffix(path, ":/") {
		prefix = path
	}

	var entries []FileInfo
	for p, content := range e.files {
		if strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			entries = append(entries, FileInfo{Name: p[len(prefix):], Size: int64(len(content))})
		}
	}

	if path != prefix && !e.dirs[path] {
		return nil, ResNoPath
	}

	return &fakeDir{entries: entries}, ResOK
}

func (e *fakeEngine) Unlink(path string) Result {
	if _, ok := e.files[path]; !ok {
		if !e.dirs[path] {
			return ResNoFile
		}

		delete(e.dirs, path)

		return ResOK
	}

	delete(e.files, path)

	return ResOK
}

func (e *fakeEngine) Rename(oldPath, newPath string) Result {
	content, ok := e.files[oldPath]
	if !ok {
		return ResNoFile
	}

	if _, exists := e.files[newPath]; exists {
		return ResExist
	}

	delete(e.files, oldPath)
	e.files[newPath] = content

	return ResOK
}

func (e *fakeEngine) Mkdir(path string) Result {
	if e.dirs[path] {
		return ResExist
	}

	e.dirs[path] = true

	return ResOK
}

func (e *fakeEngine) Stat(path string) (FileInfo, Result) {
	if content, ok := e.files[path]; ok {
		name := path[strings.LastIndex(path, "/")+1:]

		return FileInfo{Name: name, Size: int64(len(content))}, ResOK
	}

	if e.dirs[path] {
		name := path[strings.LastIndex(path, "/")+1:]

		return FileInfo{Name: name, Attr: AttrDir}, ResOK
	}

	return FileInfo{}, ResNoFile
}

type fakeFile struct {
	engine *fakeEngine
	path   string
	mode   OpenMode
	pos    int64
	closed bool
}

func (f *fakeFile) Read(p []byte) (int, Result) {
	if f.closed || f.mode&ModeRead == 0 {
		return 0, ResDenied
	}

	content := f.engine.files[f.path]
	if f.pos >= int64(len(content)) {
		return 0, ResOK
	}

	n := copy(p, content[f.pos:])
	f.pos += int64(n)

	return n, ResOK
}

func (f *fakeFile) Write(p []byte) (int, Result) {
	if f.closed || f.mode&ModeWrite == 0 {
		return 0, ResDenied
	}

	content := f.engine.files[f.path]

	if need := f.pos + int64(len(p)); need > int64(len(content)) {
		grown := make([]byte, need)
		copy(grown, content)
		content = grown
	}

	n := copy(content[f.pos:], p)
	f.pos += int64(n)
	f.engine.files[f.path] = content

	return n, ResOK
}

func (f *fakeFile) Lseek(off int64) Result {
	if f.closed {
		return ResInvalidObject
	}

	f.pos = off

	return ResOK
}

func (f *fakeFile) Tell() int64 {
	return f.pos
}

func (f *fakeFile) Size() int64 {
	return int64(len(f.engine.files[f.path]))
}

func (f *fakeFile) Truncate() Result {
	if f.closed || f.mode&ModeWrite == 0 {
		return ResDenied
	}

	f.engine.files[f.path] = f.engine.files[f.path][:f.pos]

	return ResOK
}

func (f *fakeFile) Sync() Result {
	return ResOK
}

func (f *fakeFile) Close() Result {
	if f.closed {
		return ResInvalidObject
	}

	f.closed = true

	return ResOK
}

type fakeDir struct {
	entries []FileInfo
	pos     int
}

func (d *fakeDir) Read() (FileInfo, Result) {
	if d.pos >= len(d.entries) {
		return FileInfo{}, ResNoFile
	}

	info := d.entries[d.pos]
	d.pos++

	return info, ResOK
}

func (d *fakeDir) Rewind() Result {
	d.pos = 0

	return ResOK
}

func (d *fakeDir) Close() Result {
	return ResOK
}
