package fskit

import (
	"io"
	"io/fs"
	"sync"
)

// dirFile is a directory fs.File implementing fs.ReadDirFile over a snapshot
// of a node's children taken at open.
type dirFile struct {
	node    *Node
	entries []fs.DirEntry
	offset  int
	closed  bool
	mu      sync.Mutex
}

// DirFile opens dir for listing. Entries keep creation order, matching what
// the node registry reports to hosts.
func DirFile(dir *Node) (fs.ReadDirFile, error) {
	if dir.kind != KindDir {
		return nil, &fs.PathError{Op: "open", Path: dir.Path(), Err: ErrNotDir}
	}
	children := dir.Children()
	entries := make([]fs.DirEntry, len(children))
	for i, c := range children {
		entries[i] = c
	}
	return &dirFile{node: dir, entries: entries}, nil
}

func (d *dirFile) Stat() (fs.FileInfo, error) { return d.node, nil }

func (d *dirFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fs.ErrClosed
	}
	d.closed = true
	return nil
}

func (d *dirFile) Read(b []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.node.Path(), Err: fs.ErrInvalid}
}

func (d *dirFile) ReadDir(count int) ([]fs.DirEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fs.ErrClosed
	}
	n := len(d.entries) - d.offset
	if n == 0 && count > 0 {
		return nil, io.EOF
	}
	if count > 0 && n > count {
		n = count
	}
	list := make([]fs.DirEntry, n)
	copy(list, d.entries[d.offset:d.offset+n])
	d.offset += n
	return list, nil
}
