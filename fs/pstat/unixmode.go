package pstat

import "io/fs"

const (
	S_IFMT  = 0o170000
	S_IFDIR = 0o040000
	S_IFREG = 0o100000
	S_IFLNK = 0o120000
)

// FileModeToUnixMode converts Go fs.FileMode to Unix file mode. counterfs
// only ever produces directories and regular files; anything else is
// reported as a regular file.
func FileModeToUnixMode(mode fs.FileMode) uint32 {
	perm := uint32(mode.Perm())
	switch mode.Type() {
	case fs.ModeDir:
		return perm | S_IFDIR
	case fs.ModeSymlink:
		return perm | S_IFLNK
	default:
		return perm | S_IFREG
	}
}

// UnixModeToFileMode converts Unix file mode to Go fs.FileMode
func UnixModeToFileMode(unixMode uint32) fs.FileMode {
	perm := fs.FileMode(unixMode & 0o777)
	switch unixMode & S_IFMT {
	case S_IFDIR:
		return fs.ModeDir | perm
	case S_IFLNK:
		return fs.ModeSymlink | perm
	default:
		return perm
	}
}
