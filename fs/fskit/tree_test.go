package fskit

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestConcurrentCreateSameName(t *testing.T) {
	tree := NewTree()
	root := tree.Root()

	const workers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tree.CreateNode(KindDir, root, "same", nil)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, ErrNameCollision) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one create to win, got %d", succeeded)
	}
	if root.Nlink() != 3 {
		t.Errorf("expected root nlink 3, got %d", root.Nlink())
	}
}

func TestConcurrentCreateDistinctNames(t *testing.T) {
	tree := NewTree()
	root := tree.Root()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := tree.CreateNode(KindDir, root, fmt.Sprintf("d%d", i), nil); err != nil {
				t.Errorf("create d%d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := len(root.Children()); got != workers {
		t.Errorf("expected %d children, got %d", workers, got)
	}
	if root.Nlink() != 2+workers {
		t.Errorf("expected root nlink %d, got %d", 2+workers, root.Nlink())
	}
	seen := make(map[uint64]bool)
	for _, c := range root.Children() {
		if seen[c.Ino()] {
			t.Fatalf("duplicate inode %d", c.Ino())
		}
		seen[c.Ino()] = true
	}
}
