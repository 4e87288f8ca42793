package fusekit

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"tractor.dev/counterfs"
)

type Options struct {
	// Debug turns on go-fuse's protocol trace.
	Debug bool
	// Timeout is the kernel's entry and attribute cache lifetime. Zero
	// disables caching so link counts and times are always fresh.
	Timeout time.Duration
	Log     *slog.Logger
}

type mount struct {
	path string
	fsys *counterfs.FS
	*fuse.Server
}

func (m *mount) Close() error {
	err := m.Server.Unmount()
	if uerr := m.fsys.Unmount(); err == nil {
		err = uerr
	}
	return err
}

// Mount mounts fsys at path, mounting the provider first if needed. Closing
// the result unmounts both.
func Mount(fsys *counterfs.FS, path string, opts Options) (io.Closer, error) {
	// clear a stale mount left by a previous run
	exec.Command("umount", path).Run()

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", path, err)
	}
	if fsys.Root() == nil {
		if err := fsys.Mount(); err != nil {
			return nil, err
		}
	}

	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "fusekit")

	timeout := opts.Timeout
	fopts := &fs.Options{
		EntryTimeout: &timeout,
		AttrTimeout:  &timeout,
		MountOptions: fuse.MountOptions{
			FsName: "counterfs",
			Name:   "counterfs",
			Debug:  opts.Debug,
		},
	}

	root := &node{fsys: fsys, node: fsys.Root(), log: log}
	server, err := fs.Mount(path, root, fopts)
	if err != nil {
		return nil, err
	}
	log.Info("mounted", "path", path)
	return &mount{Server: server, path: path, fsys: fsys}, nil
}
