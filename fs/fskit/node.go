package fskit

import (
	"io/fs"
	"strings"
	"sync"
	"time"

	"tractor.dev/counterfs/fs/pstat"
)

// Kind is the immutable type of a Node.
type Kind uint8

const (
	KindDir Kind = iota + 1
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

const (
	DirPerm  fs.FileMode = 0755
	FilePerm fs.FileMode = 0644
)

// Node is one entry of a Tree. It implements fs.FileInfo and fs.DirEntry so
// it can be handed straight to hosts and directory listings.
//
// Everything above mu is fixed at allocation. A node's parent is a
// non-owning back-reference used for link counts and paths; the parent owns
// the child through its children list.
type Node struct {
	ino    uint64
	name   string
	kind   Kind
	perm   fs.FileMode
	uid    int
	gid    int
	parent *Node

	mu       sync.Mutex
	nlink    uint32
	atime    time.Time
	mtime    time.Time
	ctime    time.Time
	children []*Node
	index    map[string]*Node
	payload  any
}

// fs.FileInfo and fs.DirEntry interfaces implemented
var _ = (fs.FileInfo)((*Node)(nil))
var _ = (fs.DirEntry)((*Node)(nil))

func (n *Node) Ino() uint64    { return n.ino }
func (n *Node) Kind() Kind     { return n.kind }
func (n *Node) Parent() *Node  { return n.parent }
func (n *Node) Name() string   { return n.name }
func (n *Node) IsDir() bool    { return n.kind == KindDir }
func (n *Node) Uid() int       { return n.uid }
func (n *Node) Gid() int       { return n.gid }
func (n *Node) String() string { return fs.FormatFileInfo(n) }

func (n *Node) Info() (fs.FileInfo, error) { return n, nil }

func (n *Node) Mode() fs.FileMode {
	if n.kind == KindDir {
		return fs.ModeDir | n.perm
	}
	return n.perm
}

func (n *Node) Type() fs.FileMode { return n.Mode().Type() }

// Size is not tracked for files. Directories report 2 plus their entries
// the way fskit always sized synthesized directories.
func (n *Node) Size() int64 {
	if n.kind != KindDir {
		return 0
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return int64(2 + len(n.children))
}

func (n *Node) ModTime() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mtime
}

func (n *Node) Atime() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.atime
}

func (n *Node) Ctime() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ctime
}

func (n *Node) Nlink() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nlink
}

// Path is the slash separated path from the root, "." for the root itself.
func (n *Node) Path() string {
	if n.parent == nil {
		return "."
	}
	var elems []string
	for c := n; c.parent != nil; c = c.parent {
		elems = append(elems, c.name)
	}
	for i, j := 0, len(elems)-1; i < j; i, j = i+1, j-1 {
		elems[i], elems[j] = elems[j], elems[i]
	}
	return strings.Join(elems, "/")
}

func (n *Node) Sys() any {
	n.mu.Lock()
	defer n.mu.Unlock()
	size := int64(0)
	if n.kind == KindDir {
		size = int64(2 + len(n.children))
	}
	return &pstat.Stat{
		Ino:     n.ino,
		Nlink:   uint64(n.nlink),
		Mode:    pstat.FileModeToUnixMode(n.Mode()),
		Uid:     uint32(n.uid),
		Gid:     uint32(n.gid),
		Size:    size,
		Blksize: BlockSize,
		Atim:    pstat.TimeToTimespec(n.atime),
		Mtim:    pstat.TimeToTimespec(n.mtime),
		Ctim:    pstat.TimeToTimespec(n.ctime),
	}
}

// Payload returns whatever the provider attached to the node at creation.
func (n *Node) Payload() any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.payload
}

// Children returns a copy of the directory's entries in creation order.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Node(nil), n.children...)
}

// Touch updates the access time, and the modify/change times when modified
// is set.
func Touch(n *Node, now time.Time, modified bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.atime = now
	if modified {
		n.mtime = now
		n.ctime = now
	}
}

func SetTimes(n *Node, atime, mtime time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.atime = atime
	n.mtime = mtime
}
