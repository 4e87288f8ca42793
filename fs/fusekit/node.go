package fusekit

import (
	"context"
	"log/slog"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"tractor.dev/counterfs"
	"tractor.dev/counterfs/fs/fskit"
	"tractor.dev/counterfs/fs/pstat"
)

// StateXattr carries the CBOR encoded counterfs.NodeState of a node.
const StateXattr = "user.counterfs.state"

// node binds one go-fuse inode to one counterfs node. Inodes are created
// lazily by Lookup/Create/Mkdir and released by the kernel, at which point
// the provider's inode index forgets the node too.
type node struct {
	fs.Inode
	fsys *counterfs.FS
	node *fskit.Node
	log  *slog.Logger
}

func (n *node) child(ctx context.Context, c *fskit.Node, out *fuse.EntryOut) *fs.Inode {
	applyAttr(&out.Attr, c)
	return n.NewInode(ctx, &node{fsys: n.fsys, node: c, log: n.log}, stableAttr(c))
}

func stableAttr(c *fskit.Node) fs.StableAttr {
	mode := uint32(fuse.S_IFREG)
	if c.IsDir() {
		mode = fuse.S_IFDIR
	}
	return fs.StableAttr{Mode: mode, Ino: c.Ino()}
}

var _ = (fs.NodeGetattrer)((*node)(nil))

func (n *node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	applyAttr(&out.Attr, n.node)
	return 0
}

var _ = (fs.NodeSetattrer)((*node)(nil))

// Setattr only honours time changes. Size changes are accepted and ignored
// so O_TRUNC opens, as done by shell redirection, keep working.
func (n *node) Setattr(ctx context.Context, fh fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if in.Valid&(fuse.FATTR_MODE|fuse.FATTR_UID|fuse.FATTR_GID) != 0 {
		return unix.EPERM
	}
	if in.Valid&(fuse.FATTR_ATIME|fuse.FATTR_MTIME) != 0 {
		now := time.Now()
		atime, mtime := n.node.Atime(), n.node.ModTime()
		if in.Valid&fuse.FATTR_ATIME != 0 {
			atime = time.Unix(int64(in.Atime), int64(in.Atimensec))
			if in.Valid&fuse.FATTR_ATIME_NOW != 0 {
				atime = now
			}
		}
		if in.Valid&fuse.FATTR_MTIME != 0 {
			mtime = time.Unix(int64(in.Mtime), int64(in.Mtimensec))
			if in.Valid&fuse.FATTR_MTIME_NOW != 0 {
				mtime = now
			}
		}
		fskit.SetTimes(n.node, atime, mtime)
	}
	applyAttr(&out.Attr, n.node)
	return 0
}

var _ = (fs.NodeLookuper)((*node)(nil))

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	c, err := n.fsys.Lookup(n.node, name)
	if err != nil {
		return nil, sysErrno(err)
	}
	return n.child(ctx, c, out), 0
}

var _ = (fs.NodeReaddirer)((*node)(nil))

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	if !n.node.IsDir() {
		return nil, unix.ENOTDIR
	}
	var entries []fuse.DirEntry
	for _, c := range n.node.Children() {
		entries = append(entries, fuse.DirEntry{
			Name: c.Name(),
			Mode: pstat.FileModeToUnixMode(c.Type()),
			Ino:  c.Ino(),
		})
	}
	return fs.NewListDirStream(entries), 0
}

var _ = (fs.NodeOpener)((*node)(nil))

func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	h, err := n.fsys.OpenNode(n.node)
	if err != nil {
		return nil, 0, sysErrno(err)
	}
	// direct io so every read(2) reaches the counter
	return &handle{h: h}, fuse.FOPEN_DIRECT_IO, 0
}

var _ = (fs.NodeCreater)((*node)(nil))

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	c, err := n.fsys.CreateFile(n.node, name)
	if err != nil {
		return nil, nil, 0, sysErrno(err)
	}
	h, err := n.fsys.OpenNode(c)
	if err != nil {
		return nil, nil, 0, sysErrno(err)
	}
	return n.child(ctx, c, out), &handle{h: h}, fuse.FOPEN_DIRECT_IO, 0
}

var _ = (fs.NodeMkdirer)((*node)(nil))

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	c, err := n.fsys.CreateDirectory(n.node, name)
	if err != nil {
		return nil, sysErrno(err)
	}
	return n.child(ctx, c, out), 0
}

var _ = (fs.NodeStatfser)((*node)(nil))

func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	st, err := n.fsys.Statfs()
	if err != nil {
		return sysErrno(err)
	}
	out.Bsize = st.Bsize
	out.Frsize = st.Bsize
	out.NameLen = st.Namelen
	out.Files = st.Files
	return 0
}

var _ = (fs.NodeGetxattrer)((*node)(nil))

func (n *node) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	if attr != StateXattr {
		return 0, unix.ENODATA
	}
	data, err := counterfs.MarshalState(n.fsys.State(n.node))
	if err != nil {
		n.log.Error("getxattr", "path", n.node.Path(), "err", err)
		return 0, unix.EIO
	}
	if len(dest) < len(data) {
		return uint32(len(data)), unix.ERANGE
	}
	return uint32(copy(dest, data)), 0
}

var _ = (fs.NodeListxattrer)((*node)(nil))

func (n *node) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	size := uint32(len(StateXattr) + 1)
	if uint32(len(dest)) < size {
		return size, unix.ERANGE
	}
	copy(dest, StateXattr)
	dest[len(StateXattr)] = 0
	return size, 0
}

var _ = (fs.NodeOnForgetter)((*node)(nil))

func (n *node) OnForget() {
	n.log.Debug("forget", "path", n.node.Path(), "ino", n.node.Ino())
	n.fsys.DropNode(n.node)
}

func applyAttr(out *fuse.Attr, c *fskit.Node) {
	st := pstat.FileInfoToStat(c)
	out.Ino = st.Ino
	out.Mode = st.Mode
	out.Nlink = uint32(st.Nlink)
	out.Size = uint64(st.Size)
	out.Blksize = uint32(st.Blksize)
	out.Owner = fuse.Owner{Uid: st.Uid, Gid: st.Gid}
	atime, mtime, ctime := st.Atim.Time(), st.Mtim.Time(), st.Ctim.Time()
	out.SetTimes(&atime, &mtime, &ctime)
}
