package fat

import (
	"io"
	"sync"
)

// Dir is an open directory handle sharing the table mutex, like File.
type Dir struct {
	ed EngineDir
	mu *sync.Mutex
}

// Read returns the next directory entry, io.EOF after the last one.
func (d *Dir) Read() (FileInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	info, res := d.ed.Read()
	if res == ResNoFile || (res == ResOK && info.Name == "") {
		return FileInfo{}, io.EOF
	}

	if res != ResOK {
		return FileInfo{}, engineErr("readdir", res)
	}

	return info, nil
}

// Rewind resets the iteration to the first entry.
func (d *Dir) Rewind() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return engineErr("rewinddir", d.ed.Rewind())
}

func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return engineErr("closedir", d.ed.Close())
}
