package fskit

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	BlockSize = 4096
	NameMax   = 255
	RootIno   = 1
)

var (
	ErrNameCollision  = fmt.Errorf("name collision: %w", fs.ErrExist)
	ErrOutOfResources = errors.New("out of resources")
	ErrNotDir         = errors.New("not a directory")
)

// Tree is the node registry: it allocates nodes, hands out inode numbers and
// owns every parent/child link. Links are serialised per parent, the inode
// index by the tree's own lock. When both are held the parent's lock is
// taken first.
type Tree struct {
	root  *Node
	now   func() time.Time
	uid   int
	gid   int
	limit int
	log   *slog.Logger

	mu      sync.Mutex
	nodes   map[uint64]*Node
	next    uint64
	created int
}

type Option func(*Tree)

// WithOwner sets the uid and gid given to every node.
func WithOwner(uid, gid int) Option {
	return func(t *Tree) {
		t.uid = uid
		t.gid = gid
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tree) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLimit caps the number of nodes the tree will allocate, root included.
// Zero means no limit.
func WithLimit(n int) Option {
	return func(t *Tree) {
		t.limit = n
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(t *Tree) {
		if log != nil {
			t.log = log
		}
	}
}

// NewTree returns a tree holding only its root directory.
func NewTree(opts ...Option) *Tree {
	t := &Tree{
		now:   time.Now,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		nodes: make(map[uint64]*Node),
		next:  RootIno,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.root = t.alloc(KindDir, nil, "", nil)
	return t
}

func (t *Tree) Root() *Node { return t.root }

// alloc is the node factory. It assigns metadata and an inode number but
// links nothing.
func (t *Tree) alloc(kind Kind, parent *Node, name string, payload any) *Node {
	now := t.now()
	n := &Node{
		name:    name,
		kind:    kind,
		uid:     t.uid,
		gid:     t.gid,
		parent:  parent,
		atime:   now,
		mtime:   now,
		ctime:   now,
		payload: payload,
	}
	switch kind {
	case KindDir:
		n.perm = DirPerm
		n.nlink = 2
		n.index = make(map[string]*Node)
	default:
		n.perm = FilePerm
		n.nlink = 1
	}

	t.mu.Lock()
	n.ino = t.next
	t.next++
	t.created++
	t.nodes[n.ino] = n
	t.mu.Unlock()
	return n
}

func (t *Tree) reserve() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.limit > 0 && t.created >= t.limit {
		return ErrOutOfResources
	}
	return nil
}

// CreateNode allocates a node of kind named name and links it under parent.
// Creating a directory increments the parent's link count. payload is
// attached before the node becomes visible.
func (t *Tree) CreateNode(kind Kind, parent *Node, name string, payload any) (*Node, error) {
	if !validName(name) {
		return nil, &fs.PathError{Op: "create", Path: name, Err: fs.ErrInvalid}
	}
	if parent == nil || parent.kind != KindDir {
		return nil, &fs.PathError{Op: "create", Path: name, Err: ErrNotDir}
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	if _, exists := parent.index[name]; exists {
		return nil, &fs.PathError{Op: "create", Path: joinPath(parent, name), Err: ErrNameCollision}
	}
	if err := t.reserve(); err != nil {
		return nil, &fs.PathError{Op: "create", Path: joinPath(parent, name), Err: err}
	}

	n := t.alloc(kind, parent, name, payload)
	parent.children = append(parent.children, n)
	parent.index[name] = n
	now := t.now()
	parent.mtime = now
	parent.ctime = now
	if kind == KindDir {
		parent.nlink++
	}

	t.log.Debug("create", "path", n.Path(), "kind", kind, "ino", n.ino)
	return n, nil
}

// Lookup resolves name inside dir.
func (t *Tree) Lookup(dir *Node, name string) (*Node, error) {
	if dir == nil || dir.kind != KindDir {
		return nil, &fs.PathError{Op: "lookup", Path: name, Err: ErrNotDir}
	}
	dir.mu.Lock()
	n, ok := dir.index[name]
	dir.mu.Unlock()
	if !ok {
		return nil, &fs.PathError{Op: "lookup", Path: joinPath(dir, name), Err: fs.ErrNotExist}
	}
	t.track(n)
	return n, nil
}

// Walk resolves a slash separated path relative to the root.
func (t *Tree) Walk(name string) (*Node, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "walk", Path: name, Err: fs.ErrInvalid}
	}
	n := t.root
	if name == "." {
		return n, nil
	}
	for _, elem := range strings.Split(name, "/") {
		next, err := t.Lookup(n, elem)
		if err != nil {
			return nil, &fs.PathError{Op: "walk", Path: name, Err: unwrapPathError(err)}
		}
		n = next
	}
	return n, nil
}

// Get returns the node holding ino if the host has not forgotten it.
func (t *Tree) Get(ino uint64) (*Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[ino]
	return n, ok
}

// Forget drops n from the inode index. The node stays linked under its
// parent and is re-indexed by the next Lookup that reaches it. The root is
// never forgotten.
func (t *Tree) Forget(n *Node) {
	if n == nil || n == t.root {
		return
	}
	t.mu.Lock()
	delete(t.nodes, n.ino)
	t.mu.Unlock()
	t.log.Debug("forget", "path", n.Path(), "ino", n.ino)
}

func (t *Tree) track(n *Node) {
	t.mu.Lock()
	if _, ok := t.nodes[n.ino]; !ok {
		t.nodes[n.ino] = n
	}
	t.mu.Unlock()
}

// Len is the number of nodes ever allocated, root included. Nodes are never
// deleted so this is also the size of the tree.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.created
}

// Indexed is the number of nodes currently in the inode index.
func (t *Tree) Indexed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		len(name) <= NameMax && !strings.ContainsAny(name, "/\x00")
}

func joinPath(dir *Node, name string) string {
	if p := dir.Path(); p != "." {
		return p + "/" + name
	}
	return name
}

func unwrapPathError(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
