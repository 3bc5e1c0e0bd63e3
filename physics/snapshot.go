package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/vmihailenco/msgpack/v5"
)

// BodyState is the serialisable state of one body.
type BodyState struct {
	Handle          BodyHandle `msgpack:"h"`
	Shape           ShapeKind  `msgpack:"k"`
	Position        mgl64.Vec3 `msgpack:"p"`
	Orientation     [4]float64 `msgpack:"q"` // w, x, y, z
	LinearVelocity  mgl64.Vec3 `msgpack:"v"`
	AngularVelocity mgl64.Vec3 `msgpack:"w"`
	Sleeping        bool       `msgpack:"s"`
	Frozen          bool       `msgpack:"f"`
}

// Snapshot captures the simulation state at a point in time. Bodies are ordered by
// handle so that equal worlds encode to equal bytes.
type Snapshot struct {
	Time      float64     `msgpack:"t"`
	Steps     uint64      `msgpack:"n"`
	TimeScale float64     `msgpack:"ts"`
	Bodies    []BodyState `msgpack:"b"`
}

func (w *World) Snapshot() Snapshot {
	bodies := w.Bodies()
	s := Snapshot{
		Time:      w.Time(),
		Steps:     w.steps,
		TimeScale: w.timeScale,
		Bodies:    make([]BodyState, 0, len(bodies)),
	}
	for _, b := range bodies {
		q := b.Orientation
		s.Bodies = append(s.Bodies, BodyState{
			Handle:          b.handle,
			Shape:           b.shape.Kind,
			Position:        b.Position,
			Orientation:     [4]float64{q.W, q.V[0], q.V[1], q.V[2]},
			LinearVelocity:  b.LinearVelocity,
			AngularVelocity: b.AngularVelocity,
			Sleeping:        b.IsSleeping(),
			Frozen:          b.frozen,
		})
	}
	return s
}

// Body returns the state recorded for h.
func (s Snapshot) Body(h BodyHandle) (BodyState, bool) {
	for _, b := range s.Bodies {
		if b.Handle == h {
			return b, true
		}
	}
	return BodyState{}, false
}

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("physics: encode snapshot: %w", err)
	}
	return data, nil
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("physics: decode snapshot: %w", err)
	}
	return s, nil
}
