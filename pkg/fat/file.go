package fat

import (
	"errors"
	"io"
	"sync"
)

// File is an open file handle. It is a thin wrapper over the engine's
// handle; every operation takes the shared table mutex around the engine
// call.
type File struct {
	ef EngineFile
	mu *sync.Mutex
}

func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, res := f.ef.Read(p)
	if res != ResOK {
		return n, engineErr("read", res)
	}

	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}

	return n, nil
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, res := f.ef.Write(p)
	if res != ResOK {
		return n, engineErr("write", res)
	}

	return n, nil
}

// Seek follows the io.Seeker convention; the engine only supports
// absolute positioning, so relative whence values are resolved here.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.ef.Tell() + offset
	case io.SeekEnd:
		abs = f.ef.Size() + offset
	default:
		return 0, errors.New("fat: invalid seek whence")
	}

	if abs < 0 {
		return 0, errors.New("fat: negative seek position")
	}

	if res := f.ef.Lseek(abs); res != ResOK {
		return 0, engineErr("seek", res)
	}

	return abs, nil
}

func (f *File) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.ef.Size()
}

// Truncate cuts the file at the current position.
func (f *File) Truncate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return engineErr("truncate", f.ef.Truncate())
}

func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return engineErr("sync", f.ef.Sync())
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return engineErr("close", f.ef.Close())
}
