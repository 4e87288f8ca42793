package counterfs

import (
	"io/fs"
	"slices"

	"tractor.dev/counterfs/fs/fskit"
)

var (
	_ fs.FS        = (*FS)(nil)
	_ fs.StatFS    = (*FS)(nil)
	_ fs.ReadDirFS = (*FS)(nil)
)

// Walk resolves a slash separated path from the root.
func (fsys *FS) Walk(name string) (*fskit.Node, error) {
	t, err := fsys.mounted("walk")
	if err != nil {
		return nil, err
	}
	return t.Walk(name)
}

// Open opens name for io/fs consumers. Files come back as *Handle, so each
// Open starts a new read sequence.
func (fsys *FS) Open(name string) (fs.File, error) {
	n, err := fsys.Walk(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: unwrap(err)}
	}
	if n.IsDir() {
		return fskit.DirFile(n)
	}
	return fsys.OpenNode(n)
}

func (fsys *FS) Stat(name string) (fs.FileInfo, error) {
	n, err := fsys.Walk(name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: unwrap(err)}
	}
	return n, nil
}

// ReadDir lists name sorted by filename as fs.ReadDirFS requires. Hosts that
// need creation order use Node.Children.
func (fsys *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	n, err := fsys.Walk(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: unwrap(err)}
	}
	if !n.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotDir}
	}
	var entries []fs.DirEntry
	for _, c := range n.Children() {
		entries = append(entries, c)
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		switch {
		case a.Name() < b.Name():
			return -1
		case a.Name() > b.Name():
			return 1
		}
		return 0
	})
	return entries, nil
}

func unwrap(err error) error {
	if pe, ok := err.(*fs.PathError); ok {
		return pe.Err
	}
	return err
}
