package fusekit

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"tractor.dev/counterfs"
)

func sysErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}

	// provider sentinels first, some of them wrap the generic fs errors
	switch {
	case errors.Is(err, counterfs.ErrCopyFault):
		return unix.EFAULT
	case errors.Is(err, counterfs.ErrOutOfResources):
		return unix.ENOMEM
	case errors.Is(err, counterfs.ErrNotDir):
		return unix.ENOTDIR
	case errors.Is(err, counterfs.ErrIsDir):
		return unix.EISDIR
	case errors.Is(err, counterfs.ErrNotMounted):
		return unix.ENODEV
	}

	switch {
	case errors.Is(err, fs.ErrExist):
		return unix.EEXIST
	case errors.Is(err, fs.ErrNotExist):
		return unix.ENOENT
	case errors.Is(err, fs.ErrInvalid):
		return unix.EINVAL
	case errors.Is(err, fs.ErrPermission):
		return unix.EPERM
	case errors.Is(err, fs.ErrClosed):
		return unix.EBADF
	}

	switch t := err.(type) {
	case syscall.Errno:
		return t
	case *os.SyscallError:
		if errno, ok := t.Err.(syscall.Errno); ok {
			return errno
		}
	case *fs.PathError:
		return sysErrno(t.Err)
	}
	slog.Debug("unmapped error", "component", "fusekit", "type", fmt.Sprintf("%T", err), "err", err)
	return unix.EIO
}
