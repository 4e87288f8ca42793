package pstat

import (
	"io/fs"
	"time"
)

// NOTE: layout follows amd64 Linux
type Timespec struct {
	Sec  int64
	Nsec int64
}

// Stat is the portable stat record returned by Sys() on counterfs nodes.
type Stat struct {
	Dev     uint64
	Ino     uint64
	Nlink   uint64
	Mode    uint32
	Uid     uint32
	Gid     uint32
	Rdev    uint64
	Size    int64
	Blksize int64
	Blocks  int64
	Atim    Timespec
	Mtim    Timespec
	Ctim    Timespec
}

// NsecToTimespec converts a number of nanoseconds into a Timespec.
func NsecToTimespec(nsec int64) Timespec {
	sec := nsec / 1e9
	nsec = nsec % 1e9
	if nsec < 0 {
		nsec += 1e9
		sec--
	}
	return Timespec{Sec: sec, Nsec: nsec}
}

func TimeToTimespec(t time.Time) Timespec {
	return Timespec{Sec: t.Unix(), Nsec: int64(t.Nanosecond())}
}

func (ts Timespec) Time() time.Time {
	return time.Unix(ts.Sec, ts.Nsec)
}

// FileInfoToStat returns the *Stat carried by fi, or one synthesized from
// the portable FileInfo fields when fi carries none.
func FileInfoToStat(fi fs.FileInfo) *Stat {
	if s, ok := fi.Sys().(*Stat); ok && s != nil {
		cp := *s
		return &cp
	}
	mtim := TimeToTimespec(fi.ModTime())
	s := &Stat{
		Nlink: 1,
		Mode:  FileModeToUnixMode(fi.Mode()),
		Size:  fi.Size(),
		Atim:  mtim,
		Mtim:  mtim,
		Ctim:  mtim,
	}
	if fi.IsDir() {
		s.Nlink = 2
	}
	return s
}
