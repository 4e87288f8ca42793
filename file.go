package counterfs

import (
	"io"
	"math"
	"strconv"
	"sync/atomic"
)

// BufferCapacity is the size of the fixed write buffer. One byte is kept
// for a terminator, so a write may carry at most BufferCapacity-1 bytes.
const BufferCapacity = 50

// Mode selects how a file answers reads.
type Mode uint32

const (
	ModeCounter Mode = iota
	ModeText
)

func (m Mode) String() string {
	if m == ModeText {
		return "text"
	}
	return "counter"
}

// Counter is a lock-free integer advanced by reads and reset by writes.
type Counter struct {
	v atomic.Int64
}

// Next returns the current value and increments it in one atomic step.
func (c *Counter) Next() int64 { return c.v.Add(1) - 1 }
func (c *Counter) Load() int64 { return c.v.Load() }
func (c *Counter) Set(v int64) { c.v.Store(v) }

// File is the payload of a file node. It owns a private counter and refers
// to the mount's shared text buffer; mode says which of the two reads see.
type File struct {
	counter Counter
	text    *SharedText
	mode    atomic.Uint32
}

func newFile(text *SharedText, initial int64) *File {
	f := &File{text: text}
	f.counter.Set(initial)
	return f
}

func (f *File) Mode() Mode { return Mode(f.mode.Load()) }

// Value is the counter without advancing it.
func (f *File) Value() int64 { return f.counter.Load() }

// render produces the bytes a read sequence serves. A fresh sequence
// (from offset 0) advances the counter; a continuation shows the value the
// previous fresh read returned.
func (f *File) render(fresh bool) []byte {
	if f.Mode() == ModeText {
		return f.text.Load()
	}
	var v int64
	if fresh {
		v = f.counter.Next()
	} else {
		v = f.counter.Load() - 1
	}
	return append(strconv.AppendInt(nil, v, 10), '\n')
}

// write is the mode switch. It copies count bytes from src into a fixed
// buffer, classifies them and applies the matching transition. Nothing
// changes unless the whole payload was accepted.
func (f *File) write(src io.Reader, count int, off int64) (int, error) {
	if off != 0 {
		return 0, ErrOffset
	}
	if count > BufferCapacity-1 {
		return 0, ErrSize
	}
	if count <= 0 {
		return 0, nil
	}

	var tmp [BufferCapacity]byte
	if _, err := io.ReadFull(src, tmp[:count]); err != nil {
		return 0, ErrCopyFault
	}
	payload := tmp[:count]

	if numeric(payload) {
		f.counter.Set(parseCounter(payload))
		f.mode.Store(uint32(ModeCounter))
	} else {
		f.text.Store(payload)
		f.mode.Store(uint32(ModeText))
	}
	return count, nil
}

// numeric reports whether every byte but the last is an ASCII digit. The
// last byte is usually the newline echo(1) appends.
func numeric(p []byte) bool {
	for _, b := range p[:len(p)-1] {
		if b < '0' || b > '9' {
			return false
		}
	}
	return true
}

// parseCounter reads the leading decimal digits of p. No digits parse as 0
// and values past the int64 range clamp to MaxInt64.
func parseCounter(p []byte) int64 {
	var v int64
	for _, b := range p {
		if b < '0' || b > '9' {
			break
		}
		d := int64(b - '0')
		if v > (math.MaxInt64-d)/10 {
			return math.MaxInt64
		}
		v = v*10 + d
	}
	return v
}
