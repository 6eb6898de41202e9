package fat

import (
	"fmt"
	"syscall"
)

// errnoFor maps every engine result to a POSIX errno.
var errnoFor = map[Result]syscall.Errno{
	ResDiskErr:          syscall.EIO,
	ResIntErr:           syscall.EIO,
	ResNotReady:         syscall.ENODEV,
	ResNoFile:           syscall.ENOENT,
	ResNoPath:           syscall.ENOENT,
	ResInvalidName:      syscall.EINVAL,
	ResDenied:           syscall.EACCES,
	ResExist:            syscall.EEXIST,
	ResInvalidObject:    syscall.EIO,
	ResWriteProtected:   syscall.EACCES,
	ResInvalidDrive:     syscall.ENODEV,
	ResNotEnabled:       syscall.ENODEV,
	ResNoFilesystem:     syscall.ENODEV,
	ResMkfsAborted:      syscall.EIO,
	ResTimeout:          syscall.ETIMEDOUT,
	ResLocked:           syscall.EBUSY,
	ResNotEnoughCore:    syscall.ENOMEM,
	ResTooManyOpenFiles: syscall.EMFILE,
	ResInvalidParameter: syscall.EINVAL,
}

// Error carries an engine failure together with its POSIX mapping. It
// unwraps to the mapped syscall.Errno, so callers can test with
// errors.Is(err, syscall.ENOENT) and similar.
type Error struct {
	Op     string
	Result Result
}

func (e *Error) Error() string {
	return fmt.Sprintf("fat: %s: engine result %d (%s)", e.Op, e.Result, e.Errno().Error())
}

func (e *Error) Unwrap() error {
	return e.Errno()
}

func (e *Error) Errno() syscall.Errno {
	if errno, ok := errnoFor[e.Result]; ok {
		return errno
	}

	return syscall.EIO
}

// engineErr converts a result into an error, nil for ResOK.
func engineErr(op string, res Result) error {
	if res == ResOK {
		return nil
	}

	return &Error{Op: op, Result: res}
}
