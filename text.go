package counterfs

import "sync"

// SharedText is the single text buffer of a mounted filesystem. Every file
// of the mount that is in text mode reads this one buffer, so a text write
// to any file changes what all text-mode files return. Content is replaced
// as a whole under the lock and readers get a copy, so nobody observes a
// partial write.
type SharedText struct {
	mu  sync.RWMutex
	buf [BufferCapacity]byte
	n   int
}

// Store replaces the content with p, truncated to the buffer's usable
// capacity.
func (t *SharedText) Store(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n = copy(t.buf[:BufferCapacity-1], p)
}

func (t *SharedText) Load() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]byte(nil), t.buf[:t.n]...)
}
