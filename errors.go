package counterfs

import (
	"errors"
	"fmt"
	"io/fs"

	"tractor.dev/counterfs/fs/fskit"
)

var (
	// ErrOffset is returned by writes that do not start at offset 0. Files
	// only support whole-buffer replacement.
	ErrOffset = fmt.Errorf("write not at start of file: %w", fs.ErrInvalid)

	// ErrSize is returned by writes that do not fit the fixed write buffer.
	ErrSize = fmt.Errorf("write exceeds %d bytes: %w", BufferCapacity-1, fs.ErrInvalid)

	// ErrCopyFault is returned when the caller's buffer could not be copied.
	ErrCopyFault = errors.New("bad address")

	ErrNameCollision  = fskit.ErrNameCollision
	ErrOutOfResources = fskit.ErrOutOfResources
	ErrNotDir         = fskit.ErrNotDir
	ErrIsDir          = errors.New("is a directory")
	ErrClosed         = fs.ErrClosed

	ErrMounted    = errors.New("already mounted")
	ErrNotMounted = errors.New("not mounted")
)
