package fskit

import (
	"errors"
	"io"
	"io/fs"
	"testing"
	"time"

	"tractor.dev/counterfs/fs/pstat"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return t0 }
}

func TestNodeDefaults(t *testing.T) {
	tree := NewTree(WithClock(fixedClock()), WithOwner(1000, 100))

	root := tree.Root()
	if root.Ino() != RootIno {
		t.Errorf("expected root ino %d, got %d", RootIno, root.Ino())
	}
	if root.Parent() != nil {
		t.Error("root should have no parent")
	}
	if root.Path() != "." {
		t.Errorf("expected root path '.', got %q", root.Path())
	}

	f, err := tree.CreateNode(KindFile, root, "file", nil)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if f.Mode() != 0644 {
		t.Errorf("expected file mode 0644, got %v", f.Mode())
	}
	if f.Nlink() != 1 {
		t.Errorf("expected file nlink 1, got %d", f.Nlink())
	}
	if f.Size() != 0 {
		t.Errorf("file size should not be tracked, got %d", f.Size())
	}
	if f.Uid() != 1000 || f.Gid() != 100 {
		t.Errorf("expected owner 1000:100, got %d:%d", f.Uid(), f.Gid())
	}
	if !f.ModTime().Equal(fixedClock()()) || !f.Atime().Equal(f.ModTime()) || !f.Ctime().Equal(f.ModTime()) {
		t.Error("timestamps should all be set to creation time")
	}

	d, err := tree.CreateNode(KindDir, root, "dir", nil)
	if err != nil {
		t.Fatalf("create dir: %v", err)
	}
	if d.Mode() != fs.ModeDir|0755 {
		t.Errorf("expected dir mode drwxr-xr-x, got %v", d.Mode())
	}
	if !d.IsDir() || d.Type() != fs.ModeDir {
		t.Error("dir should report as directory")
	}
	if d.Nlink() != 2 {
		t.Errorf("expected dir nlink 2, got %d", d.Nlink())
	}
	if root.Nlink() != 3 {
		t.Errorf("expected root nlink 3 after one subdirectory, got %d", root.Nlink())
	}
}

func TestNodeSys(t *testing.T) {
	tree := NewTree(WithClock(fixedClock()))
	d, _ := tree.CreateNode(KindDir, tree.Root(), "dir", nil)
	f, _ := tree.CreateNode(KindFile, d, "file", nil)

	st, ok := f.Sys().(*pstat.Stat)
	if !ok {
		t.Fatalf("expected *pstat.Stat, got %T", f.Sys())
	}
	if st.Ino != f.Ino() || st.Mode != 0o100644 || st.Nlink != 1 {
		t.Errorf("unexpected stat: %+v", st)
	}
	if st.Mtim.Sec != fixedClock()().Unix() {
		t.Errorf("unexpected mtime: %+v", st.Mtim)
	}
	if got := pstat.FileInfoToStat(d); got.Mode != 0o40755 || got.Size != 3 {
		t.Errorf("unexpected dir stat: %+v", got)
	}
	if f.Path() != "dir/file" {
		t.Errorf("expected path dir/file, got %q", f.Path())
	}
}

func TestCreateNodeErrors(t *testing.T) {
	tree := NewTree()
	root := tree.Root()
	f, err := tree.CreateNode(KindFile, root, "a", nil)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("collision", func(t *testing.T) {
		before := root.Nlink()
		_, err := tree.CreateNode(KindDir, root, "a", nil)
		if !errors.Is(err, ErrNameCollision) || !errors.Is(err, fs.ErrExist) {
			t.Fatalf("expected name collision, got %v", err)
		}
		if root.Nlink() != before {
			t.Error("failed create must not touch parent link count")
		}
		if len(root.Children()) != 1 {
			t.Error("failed create must not add a child")
		}
	})

	t.Run("parent is file", func(t *testing.T) {
		_, err := tree.CreateNode(KindFile, f, "b", nil)
		if !errors.Is(err, ErrNotDir) {
			t.Fatalf("expected ErrNotDir, got %v", err)
		}
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", ".", "..", "x/y"} {
			_, err := tree.CreateNode(KindFile, root, name, nil)
			if !errors.Is(err, fs.ErrInvalid) {
				t.Errorf("%q: expected ErrInvalid, got %v", name, err)
			}
		}
	})

	t.Run("limit", func(t *testing.T) {
		small := NewTree(WithLimit(2))
		if _, err := small.CreateNode(KindFile, small.Root(), "one", nil); err != nil {
			t.Fatal(err)
		}
		_, err := small.CreateNode(KindFile, small.Root(), "two", nil)
		if !errors.Is(err, ErrOutOfResources) {
			t.Fatalf("expected ErrOutOfResources, got %v", err)
		}
		if small.Len() != 2 {
			t.Errorf("expected 2 nodes, got %d", small.Len())
		}
	})
}

func TestLookupAndWalk(t *testing.T) {
	tree := NewTree()
	d, _ := tree.CreateNode(KindDir, tree.Root(), "carpeta1", nil)
	f, _ := tree.CreateNode(KindFile, d, "contador2", "payload")

	got, err := tree.Lookup(d, "contador2")
	if err != nil || got != f {
		t.Fatalf("lookup: %v %v", got, err)
	}
	if got.Payload() != "payload" {
		t.Errorf("expected payload to be attached, got %v", got.Payload())
	}
	if _, err := tree.Lookup(d, "missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	if _, err := tree.Lookup(f, "x"); !errors.Is(err, ErrNotDir) {
		t.Errorf("expected ErrNotDir, got %v", err)
	}

	got, err = tree.Walk("carpeta1/contador2")
	if err != nil || got != f {
		t.Fatalf("walk: %v %v", got, err)
	}
	if got, _ := tree.Walk("."); got != tree.Root() {
		t.Error("walk . should return root")
	}
	if _, err := tree.Walk("carpeta1/nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	if _, err := tree.Walk("/abs"); !errors.Is(err, fs.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestForget(t *testing.T) {
	tree := NewTree()
	f, _ := tree.CreateNode(KindFile, tree.Root(), "f", nil)

	tree.Forget(f)
	if _, ok := tree.Get(f.Ino()); ok {
		t.Fatal("forgotten node should leave the index")
	}
	if tree.Indexed() != 1 || tree.Len() != 2 {
		t.Errorf("expected 1 indexed of 2, got %d of %d", tree.Indexed(), tree.Len())
	}

	tree.Forget(tree.Root())
	if _, ok := tree.Get(RootIno); !ok {
		t.Error("root must never be forgotten")
	}

	if _, err := tree.Lookup(tree.Root(), "f"); err != nil {
		t.Fatal(err)
	}
	if got, ok := tree.Get(f.Ino()); !ok || got != f {
		t.Error("lookup should re-index a forgotten node")
	}
}

func TestDirFile(t *testing.T) {
	tree := NewTree()
	root := tree.Root()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := tree.CreateNode(KindFile, root, name, nil); err != nil {
			t.Fatal(err)
		}
	}

	df, err := DirFile(root)
	if err != nil {
		t.Fatal(err)
	}
	first, err := df.ReadDir(2)
	if err != nil || len(first) != 2 {
		t.Fatalf("ReadDir(2): %v %v", first, err)
	}
	if first[0].Name() != "zeta" || first[1].Name() != "alpha" {
		t.Errorf("entries should keep creation order, got %s %s", first[0].Name(), first[1].Name())
	}
	rest, err := df.ReadDir(-1)
	if err != nil || len(rest) != 1 || rest[0].Name() != "mid" {
		t.Fatalf("ReadDir(-1): %v %v", rest, err)
	}
	if _, err := df.ReadDir(1); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
	if _, err := df.Read(make([]byte, 1)); !errors.Is(err, fs.ErrInvalid) {
		t.Errorf("expected ErrInvalid reading a directory, got %v", err)
	}
	if err := df.Close(); err != nil {
		t.Fatal(err)
	}
	if err := df.Close(); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	f := root.Children()[0]
	if _, err := DirFile(f); !errors.Is(err, ErrNotDir) {
		t.Errorf("expected ErrNotDir, got %v", err)
	}
}
