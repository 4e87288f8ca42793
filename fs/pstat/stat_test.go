package pstat

import (
	"io/fs"
	"testing"
	"time"
)

func TestUnixModeRoundTrip(t *testing.T) {
	for _, mode := range []fs.FileMode{
		fs.ModeDir | 0755,
		0644,
		fs.ModeSymlink | 0777,
	} {
		got := UnixModeToFileMode(FileModeToUnixMode(mode))
		if got != mode {
			t.Errorf("round trip %v: got %v", mode, got)
		}
	}
	if m := FileModeToUnixMode(fs.ModeDir | 0755); m != 0o40755 {
		t.Errorf("dir mode: got %o", m)
	}
	if m := FileModeToUnixMode(0644); m != 0o100644 {
		t.Errorf("file mode: got %o", m)
	}
}

func TestNsecToTimespec(t *testing.T) {
	ts := NsecToTimespec(-1)
	if ts.Sec != -1 || ts.Nsec != 999999999 {
		t.Errorf("got %+v", ts)
	}
	ts = NsecToTimespec(3_500_000_000)
	if ts.Sec != 3 || ts.Nsec != 500_000_000 {
		t.Errorf("got %+v", ts)
	}
}

type plainInfo struct{ dir bool }

func (i plainInfo) Name() string { return "x" }
func (i plainInfo) Size() int64  { return 7 }
func (i plainInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0755
	}
	return 0644
}
func (i plainInfo) ModTime() time.Time { return time.Unix(100, 0) }
func (i plainInfo) IsDir() bool        { return i.dir }
func (i plainInfo) Sys() any           { return nil }

func TestFileInfoToStatSynthesized(t *testing.T) {
	st := FileInfoToStat(plainInfo{dir: true})
	if st.Nlink != 2 || st.Mode != 0o40755 || st.Mtim.Sec != 100 {
		t.Errorf("dir stat: %+v", st)
	}
	st = FileInfoToStat(plainInfo{})
	if st.Nlink != 1 || st.Size != 7 {
		t.Errorf("file stat: %+v", st)
	}
}
