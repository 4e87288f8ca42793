// Package counterfs is an in-memory filesystem of counter files.
//
// Reading a file returns an integer that advances on every fresh read.
// Writing a decimal number resets it; writing anything else switches the
// file to text mode, where it returns the mount's shared text buffer.
// Mount builds the fixed tree:
//
//	/
//	├── contador1
//	└── carpeta1/
//	    └── contador2
//
// Hosts (see fs/fusekit and fs/p9kit) drive an FS through Lookup,
// CreateFile, CreateDirectory, OpenNode, Statfs and DropNode.
package counterfs

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tractor.dev/counterfs/fs/fskit"
)

// Magic is the filesystem type reported by Statfs.
const Magic = 0x070162

// FS is one counterfs instance. The zero value is not usable; use New.
type FS struct {
	log   *slog.Logger
	now   func() time.Time
	uid   int
	gid   int
	limit int

	text SharedText
	tree atomic.Pointer[fskit.Tree]
	mu   sync.Mutex
}

type Option func(*FS)

func WithLogger(log *slog.Logger) Option {
	return func(fsys *FS) {
		if log != nil {
			fsys.log = log
		}
	}
}

// WithOwner sets the uid and gid reported for every node. The default is
// root (0:0).
func WithOwner(uid, gid int) Option {
	return func(fsys *FS) {
		fsys.uid = uid
		fsys.gid = gid
	}
}

func WithClock(now func() time.Time) Option {
	return func(fsys *FS) {
		if now != nil {
			fsys.now = now
		}
	}
}

// WithNodeLimit caps how many nodes a mount may allocate, root included.
// Allocations beyond it fail with ErrOutOfResources.
func WithNodeLimit(n int) Option {
	return func(fsys *FS) {
		fsys.limit = n
	}
}

func New(opts ...Option) *FS {
	fsys := &FS{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(fsys)
	}
	fsys.log = fsys.log.With("component", "counterfs")
	return fsys
}

// Mount creates the root and bootstraps the fixed tree. It runs once per
// FS; a failure leaves the FS unmounted and the partial tree discarded.
func (fsys *FS) Mount() error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if fsys.tree.Load() != nil {
		return ErrMounted
	}

	t := fskit.NewTree(
		fskit.WithOwner(fsys.uid, fsys.gid),
		fskit.WithClock(fsys.now),
		fskit.WithLimit(fsys.limit),
		fskit.WithLogger(fsys.log),
	)
	if err := fsys.bootstrap(t); err != nil {
		fsys.log.Error("mount", "err", err)
		return fmt.Errorf("mount: %w: %w", ErrOutOfResources, err)
	}
	fsys.tree.Store(t)
	fsys.log.Info("mounted", "nodes", t.Len())
	return nil
}

func (fsys *FS) bootstrap(t *fskit.Tree) error {
	root := t.Root()
	if _, err := t.CreateNode(fskit.KindFile, root, "contador1", newFile(&fsys.text, 0)); err != nil {
		return err
	}
	dir, err := t.CreateNode(fskit.KindDir, root, "carpeta1", nil)
	if err != nil {
		return err
	}
	if _, err := t.CreateNode(fskit.KindFile, dir, "contador2", newFile(&fsys.text, 0)); err != nil {
		return err
	}
	return nil
}

// Unmount releases the whole tree. Handles opened before keep working on
// the nodes they hold.
func (fsys *FS) Unmount() error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if fsys.tree.Swap(nil) == nil {
		return ErrNotMounted
	}
	fsys.log.Info("unmounted")
	return nil
}

func (fsys *FS) mounted(op string) (*fskit.Tree, error) {
	t := fsys.tree.Load()
	if t == nil {
		return nil, &fs.PathError{Op: op, Path: ".", Err: ErrNotMounted}
	}
	return t, nil
}

// Root returns the root directory, or nil before Mount.
func (fsys *FS) Root() *fskit.Node {
	if t := fsys.tree.Load(); t != nil {
		return t.Root()
	}
	return nil
}

// Lookup resolves name in dir through the node registry.
func (fsys *FS) Lookup(dir *fskit.Node, name string) (*fskit.Node, error) {
	t, err := fsys.mounted("lookup")
	if err != nil {
		return nil, err
	}
	n, err := t.Lookup(dir, name)
	fsys.log.Debug("lookup", "dir", pathOf(dir), "name", name, "err", err)
	return n, err
}

// CreateFile creates a counter file starting at 0 under dir.
func (fsys *FS) CreateFile(dir *fskit.Node, name string) (*fskit.Node, error) {
	t, err := fsys.mounted("create")
	if err != nil {
		return nil, err
	}
	n, err := t.CreateNode(fskit.KindFile, dir, name, newFile(&fsys.text, 0))
	fsys.log.Debug("create", "dir", pathOf(dir), "name", name, "err", err)
	return n, err
}

// CreateDirectory creates an empty directory under dir and bumps dir's link
// count.
func (fsys *FS) CreateDirectory(dir *fskit.Node, name string) (*fskit.Node, error) {
	t, err := fsys.mounted("mkdir")
	if err != nil {
		return nil, err
	}
	n, err := t.CreateNode(fskit.KindDir, dir, name, nil)
	fsys.log.Debug("mkdir", "dir", pathOf(dir), "name", name, "err", err)
	return n, err
}

// OpenNode opens a file node for reading and writing.
func (fsys *FS) OpenNode(n *fskit.Node) (*Handle, error) {
	if n.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: n.Path(), Err: ErrIsDir}
	}
	f, ok := n.Payload().(*File)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: n.Path(), Err: fs.ErrInvalid}
	}
	fsys.log.Debug("open", "path", n.Path(), "mode", f.Mode())
	return &Handle{fsys: fsys, node: n, file: f}, nil
}

// DropNode is called when the host evicts its reference to n. The node
// stays in the tree; only the inode index forgets it.
func (fsys *FS) DropNode(n *fskit.Node) {
	if t := fsys.tree.Load(); t != nil {
		t.Forget(n)
	}
}

// Statfs describes the mount the way the superblock does.
type Statfs struct {
	Type    uint32
	Bsize   uint32
	Namelen uint32
	Files   uint64
}

func (fsys *FS) Statfs() (Statfs, error) {
	t, err := fsys.mounted("statfs")
	if err != nil {
		return Statfs{}, err
	}
	return Statfs{
		Type:    Magic,
		Bsize:   fskit.BlockSize,
		Namelen: fskit.NameMax,
		Files:   uint64(t.Len()),
	}, nil
}

// Text returns the mount's shared text buffer.
func (fsys *FS) Text() *SharedText { return &fsys.text }

func pathOf(n *fskit.Node) string {
	if n == nil {
		return ""
	}
	return n.Path()
}
