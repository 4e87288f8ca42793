package counterfs

import (
	"time"

	"github.com/fxamacker/cbor/v2"

	"tractor.dev/counterfs/fs/fskit"
)

// NodeState is a point-in-time description of a node, exposed by hosts as
// an extended attribute.
type NodeState struct {
	Ino     uint64    `cbor:"1,keyasint"`
	Path    string    `cbor:"2,keyasint"`
	Kind    string    `cbor:"3,keyasint"`
	Perm    uint32    `cbor:"4,keyasint"`
	Nlink   uint32    `cbor:"5,keyasint"`
	Atime   time.Time `cbor:"6,keyasint"`
	Mtime   time.Time `cbor:"7,keyasint"`
	Ctime   time.Time `cbor:"8,keyasint"`
	Mode    string    `cbor:"9,keyasint,omitempty"`
	Counter int64     `cbor:"10,keyasint,omitempty"`
	Text    []byte    `cbor:"11,keyasint,omitempty"`
}

// State snapshots n. The counter is read without advancing it.
func (fsys *FS) State(n *fskit.Node) NodeState {
	st := NodeState{
		Ino:   n.Ino(),
		Path:  n.Path(),
		Kind:  n.Kind().String(),
		Perm:  uint32(n.Mode().Perm()),
		Nlink: n.Nlink(),
		Atime: n.Atime().UTC(),
		Mtime: n.ModTime().UTC(),
		Ctime: n.Ctime().UTC(),
	}
	if f, ok := n.Payload().(*File); ok {
		st.Mode = f.Mode().String()
		st.Counter = f.Value()
		if f.Mode() == ModeText {
			st.Text = f.text.Load()
		}
	}
	return st
}

var stateEncMode, _ = cbor.EncOptions{
	Time: cbor.TimeRFC3339Nano,
}.EncMode()

func MarshalState(st NodeState) ([]byte, error) {
	return stateEncMode.Marshal(st)
}

func UnmarshalState(b []byte, st *NodeState) error {
	return cbor.Unmarshal(b, st)
}
