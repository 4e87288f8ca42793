package p9kit

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/hugelgupf/p9/fsimpl/templatefs"
	"github.com/hugelgupf/p9/linux"
	"github.com/hugelgupf/p9/p9"

	"tractor.dev/counterfs"
	"tractor.dev/counterfs/fs/fskit"
	"tractor.dev/counterfs/fs/pstat"
)

type attacher struct {
	fsys *counterfs.FS
	log  *slog.Logger
}

var (
	_ p9.Attacher = &attacher{}
)

// Attacher serves fsys to 9P clients. fsys must be mounted.
func Attacher(fsys *counterfs.FS, log *slog.Logger) p9.Attacher {
	if log == nil {
		log = slog.Default()
	}
	return &attacher{fsys: fsys, log: log.With("component", "p9kit")}
}

// Attach implements p9.Attacher.Attach.
func (a *attacher) Attach() (p9.File, error) {
	root := a.fsys.Root()
	if root == nil {
		return nil, linux.ENODEV
	}
	return &p9file{fsys: a.fsys, node: root, log: a.log}, nil
}

// p9file is a fid. Walks produce unopened fids bound to a node; Open and
// Create attach a counterfs handle that lives until the fid is clunked.
type p9file struct {
	templatefs.NotImplementedFile

	fsys *counterfs.FS
	node *fskit.Node
	h    *counterfs.Handle
	log  *slog.Logger
}

var (
	// p9file is a p9.File
	_ p9.File = &p9file{}
)

func qidOf(n *fskit.Node) p9.QID {
	// version stays 0 so clients never cache counter content
	return p9.QID{
		Type: p9.ModeFromOS(n.Mode()).QIDType(),
		Path: n.Ino(),
	}
}

func (l *p9file) child(n *fskit.Node) *p9file {
	return &p9file{fsys: l.fsys, node: n, log: l.log}
}

// Walk implements p9.File.Walk.
func (l *p9file) Walk(names []string) ([]p9.QID, p9.File, error) {
	// A walk with no names is a copy of self.
	if len(names) == 0 {
		return nil, l.child(l.node), nil
	}

	var qids []p9.QID
	n := l.node
	for _, name := range names {
		next, err := l.fsys.Lookup(n, name)
		if err != nil {
			return nil, nil, linuxErr(err)
		}
		qids = append(qids, qidOf(next))
		n = next
	}
	return qids, l.child(n), nil
}

// GetAttr implements p9.File.GetAttr.
func (l *p9file) GetAttr(req p9.AttrMask) (p9.QID, p9.AttrMask, p9.Attr, error) {
	st := pstat.FileInfoToStat(l.node)
	attr := p9.Attr{
		Mode:             p9.ModeFromOS(l.node.Mode()),
		UID:              p9.UID(st.Uid),
		GID:              p9.GID(st.Gid),
		NLink:            p9.NLink(st.Nlink),
		Size:             uint64(st.Size),
		BlockSize:        uint64(st.Blksize),
		ATimeSeconds:     uint64(st.Atim.Sec),
		ATimeNanoSeconds: uint64(st.Atim.Nsec),
		MTimeSeconds:     uint64(st.Mtim.Sec),
		MTimeNanoSeconds: uint64(st.Mtim.Nsec),
		CTimeSeconds:     uint64(st.Ctim.Sec),
		CTimeNanoSeconds: uint64(st.Ctim.Nsec),
	}
	valid := p9.AttrMask{
		Mode: true, UID: true, GID: true, NLink: true, Size: true,
		ATime: true, MTime: true, CTime: true, INo: true,
	}
	return qidOf(l.node), valid, attr, nil
}

// SetAttr implements p9.File.SetAttr. Linux sends size and times on
// truncate(2); size is accepted and ignored.
func (l *p9file) SetAttr(valid p9.SetAttrMask, attr p9.SetAttr) error {
	supported := p9.SetAttrMask{
		Size: true, ATime: true, MTime: true, CTime: true,
		ATimeNotSystemTime: true, MTimeNotSystemTime: true,
	}
	if !valid.IsSubsetOf(supported) {
		l.log.Debug("setattr", "path", l.node.Path(), "unsupported", valid)
		return linux.EPERM
	}
	if valid.ATime || valid.MTime {
		now := time.Now()
		atime, mtime := l.node.Atime(), l.node.ModTime()
		if valid.ATime {
			atime = now
			if valid.ATimeNotSystemTime {
				atime = time.Unix(int64(attr.ATimeSeconds), int64(attr.ATimeNanoSeconds))
			}
		}
		if valid.MTime {
			mtime = now
			if valid.MTimeNotSystemTime {
				mtime = time.Unix(int64(attr.MTimeSeconds), int64(attr.MTimeNanoSeconds))
			}
		}
		fskit.SetTimes(l.node, atime, mtime)
	}
	return nil
}

// Open implements p9.File.Open.
func (l *p9file) Open(mode p9.OpenFlags) (p9.QID, uint32, error) {
	if l.h != nil {
		return p9.QID{}, 0, linux.EBADF
	}
	if !l.node.IsDir() {
		h, err := l.fsys.OpenNode(l.node)
		if err != nil {
			return p9.QID{}, 0, linuxErr(err)
		}
		l.h = h
	}
	return qidOf(l.node), 0, nil
}

// ReadAt implements p9.File.ReadAt.
func (l *p9file) ReadAt(p []byte, offset int64) (int, error) {
	if l.h == nil {
		return 0, linux.EISDIR
	}
	n, err := l.h.ReadAt(p, offset)
	if err == io.EOF {
		err = nil
	}
	return n, linuxErr(err)
}

// WriteAt implements p9.File.WriteAt.
func (l *p9file) WriteAt(p []byte, offset int64) (int, error) {
	if l.h == nil {
		return 0, linux.EISDIR
	}
	n, err := l.h.WriteAt(p, offset)
	return n, linuxErr(err)
}

// Create implements p9.File.Create.
func (l *p9file) Create(name string, mode p9.OpenFlags, permissions p9.FileMode, _ p9.UID, _ p9.GID) (p9.File, p9.QID, uint32, error) {
	n, err := l.fsys.CreateFile(l.node, name)
	if err != nil {
		return nil, p9.QID{}, 0, linuxErr(err)
	}
	h, err := l.fsys.OpenNode(n)
	if err != nil {
		return nil, p9.QID{}, 0, linuxErr(err)
	}
	f := l.child(n)
	f.h = h
	return f, qidOf(n), 0, nil
}

// Mkdir implements p9.File.Mkdir.
func (l *p9file) Mkdir(name string, permissions p9.FileMode, _ p9.UID, _ p9.GID) (p9.QID, error) {
	n, err := l.fsys.CreateDirectory(l.node, name)
	if err != nil {
		return p9.QID{}, linuxErr(err)
	}
	return qidOf(n), nil
}

// Readdir implements p9.File.Readdir. Offsets are positions in creation
// order, so a listing resumes correctly across calls.
func (l *p9file) Readdir(offset uint64, count uint32) (p9.Dirents, error) {
	if !l.node.IsDir() {
		return nil, linux.ENOTDIR
	}
	children := l.node.Children()
	var ents p9.Dirents
	for i := offset; i < uint64(len(children)) && len(ents) < int(count); i++ {
		c := children[i]
		qid := qidOf(c)
		ents = append(ents, p9.Dirent{
			QID:    qid,
			Type:   qid.Type,
			Name:   c.Name(),
			Offset: i + 1,
		})
	}
	return ents, nil
}

// StatFS implements p9.File.StatFS.
func (l *p9file) StatFS() (p9.FSStat, error) {
	st, err := l.fsys.Statfs()
	if err != nil {
		return p9.FSStat{}, linuxErr(err)
	}
	return p9.FSStat{
		Type:       st.Type,
		BlockSize:  st.Bsize,
		Files:      st.Files,
		NameLength: st.Namelen,
	}, nil
}

// FSync implements p9.File.FSync.
func (l *p9file) FSync() error { return nil }

// Renamed implements p9.File.Renamed. Nodes never move.
func (l *p9file) Renamed(parent p9.File, newName string) {}

// Close implements p9.File.Close. Servers only call it on clunk.
func (l *p9file) Close() error {
	if l.h != nil {
		return linuxErr(l.h.Close())
	}
	return nil
}

// linuxErr maps provider errors to the errnos carried by Rlerror.
func linuxErr(err error) error {
	if err == nil {
		return nil
	}
	var errno linux.Errno
	if errors.As(err, &errno) {
		return errno
	}
	switch {
	case errors.Is(err, counterfs.ErrCopyFault):
		return linux.EFAULT
	case errors.Is(err, counterfs.ErrOutOfResources):
		return linux.ENOMEM
	case errors.Is(err, counterfs.ErrNotDir):
		return linux.ENOTDIR
	case errors.Is(err, counterfs.ErrIsDir):
		return linux.EISDIR
	case errors.Is(err, counterfs.ErrNotMounted):
		return linux.ENODEV
	case errors.Is(err, fs.ErrExist):
		return linux.EEXIST
	case errors.Is(err, fs.ErrNotExist):
		return linux.ENOENT
	case errors.Is(err, fs.ErrInvalid):
		return linux.EINVAL
	case errors.Is(err, fs.ErrClosed):
		return linux.EBADF
	}
	return linux.EIO
}
