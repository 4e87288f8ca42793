package counterfs

import (
	"bytes"
	"io"
	"io/fs"
	"sync"

	"tractor.dev/counterfs/fs/fskit"
)

// Handle is an open file. It remembers the bytes served by the last read
// from offset 0 so the rest of that read sequence sees the same value.
type Handle struct {
	fsys *FS
	node *fskit.Node
	file *File

	mu       sync.Mutex
	rendered []byte
	offset   int64
	closed   bool
}

var (
	_ fs.File     = (*Handle)(nil)
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
	_ io.Seeker   = (*Handle)(nil)
)

func (h *Handle) Node() *fskit.Node { return h.node }

func (h *Handle) Stat() (fs.FileInfo, error) { return h.node, nil }

func (h *Handle) Close() (err error) {
	defer func() {
		h.fsys.log.Debug("close", "path", h.node.Path(), "err", err)
	}()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.closed = true
	h.rendered = nil
	return nil
}

func (h *Handle) Read(b []byte) (n int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, err = h.readAt(b, h.offset)
	h.offset += int64(n)
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

func (h *Handle) ReadAt(b []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.readAt(b, off)
}

func (h *Handle) readAt(b []byte, off int64) (n int, err error) {
	defer func() {
		h.fsys.log.Debug("read", "path", h.node.Path(), "offset", off, "n", n, "err", err)
	}()
	if h.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, &fs.PathError{Op: "read", Path: h.node.Path(), Err: fs.ErrInvalid}
	}

	if off == 0 || h.rendered == nil {
		h.rendered = h.file.render(off == 0)
	}
	if off >= int64(len(h.rendered)) {
		return 0, io.EOF
	}

	n = copy(b, h.rendered[off:])
	fskit.Touch(h.node, h.fsys.now(), false)
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// Write replaces the file's content. The position is left at 0 because
// every write is a whole-buffer replacement.
func (h *Handle) Write(b []byte) (int, error) {
	h.mu.Lock()
	off := h.offset
	h.mu.Unlock()
	return h.WriteFrom(bytes.NewReader(b), len(b), off)
}

func (h *Handle) WriteAt(b []byte, off int64) (int, error) {
	return h.WriteFrom(bytes.NewReader(b), len(b), off)
}

// WriteFrom copies count bytes from src, the host's view of the caller's
// buffer, and runs them through the mode switch. A short src fails with
// ErrCopyFault and leaves the file unchanged.
func (h *Handle) WriteFrom(src io.Reader, count int, off int64) (n int, err error) {
	defer func() {
		h.fsys.log.Debug("write", "path", h.node.Path(), "offset", off, "count", count, "n", n, "mode", h.file.Mode(), "err", err)
	}()
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrClosed
	}
	n, err = h.file.write(src, count, off)
	if err != nil {
		return 0, &fs.PathError{Op: "write", Path: h.node.Path(), Err: err}
	}
	if n > 0 {
		fskit.Touch(h.node, h.fsys.now(), true)
	}
	return n, nil
}

func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, ErrClosed
	}
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += h.offset
	case io.SeekEnd:
		offset += int64(len(h.rendered))
	default:
		return 0, &fs.PathError{Op: "seek", Path: h.node.Path(), Err: fs.ErrInvalid}
	}
	if offset < 0 {
		return 0, &fs.PathError{Op: "seek", Path: h.node.Path(), Err: fs.ErrInvalid}
	}
	h.offset = offset
	return offset, nil
}
