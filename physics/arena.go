package physics

import "strconv"

// BodyHandle is a stable reference to a body. It packs a slot id with the slot's
// generation, so a handle to a removed body never resolves to a later occupant.
type BodyHandle uint64

const handleIDBits = 32

// NoBody is the zero handle; the terrain reports it as its body.
const NoBody BodyHandle = 0

func makeHandle(id, gen uint32) BodyHandle {
	return BodyHandle(uint64(gen)<<handleIDBits | uint64(id))
}

func (h BodyHandle) id() uint32 {
	return uint32(h)
}

func (h BodyHandle) generation() uint32 {
	return uint32(uint64(h) >> handleIDBits)
}

func (h BodyHandle) String() string {
	return strconv.FormatUint(uint64(h.id()), 10) + "v" + strconv.FormatUint(uint64(h.generation()), 10)
}

func (h BodyHandle) Valid() bool {
	return h.id() > 0
}

// bodyArena stores bodies densely in insertion order and tracks slot generations
// and free ids.
type bodyArena struct {
	nextID uint32
	gen    []uint32
	free   []uint32

	dense  []*Body
	sparse []int // id-1 -> dense index, -1 when empty
}

// reserve allocates a handle without storing a body yet.
func (a *bodyArena) reserve() BodyHandle {
	var id uint32
	if len(a.free) > 0 {
		id = a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
	} else {
		a.nextID++
		id = a.nextID
		a.gen = append(a.gen, 0)
		a.sparse = append(a.sparse, -1)
	}
	return makeHandle(id, a.gen[id-1])
}

// insert stores b under its reserved handle. Stale handles are ignored.
func (a *bodyArena) insert(b *Body) bool {
	id := b.handle.id()
	if !a.current(b.handle) || a.sparse[id-1] >= 0 {
		return false
	}
	a.dense = append(a.dense, b)
	a.sparse[id-1] = len(a.dense) - 1
	return true
}

// remove deletes the body for h and retires the slot. It reports false for handles
// that are stale or were never stored.
func (a *bodyArena) remove(h BodyHandle) (*Body, bool) {
	if !a.current(h) {
		return nil, false
	}
	id := h.id()
	idx := a.sparse[id-1]
	a.gen[id-1]++
	a.free = append(a.free, id)
	if idx < 0 {
		return nil, false
	}

	b := a.dense[idx]
	last := len(a.dense) - 1
	a.dense[idx] = a.dense[last]
	a.sparse[a.dense[idx].handle.id()-1] = idx
	a.dense[last] = nil
	a.dense = a.dense[:last]
	a.sparse[id-1] = -1
	return b, true
}

// current reports whether h names the live generation of its slot.
func (a *bodyArena) current(h BodyHandle) bool {
	id := h.id()
	if id == 0 || int(id) > len(a.gen) {
		return false
	}
	return a.gen[id-1] == h.generation()
}

func (a *bodyArena) get(h BodyHandle) (*Body, bool) {
	if !a.current(h) {
		return nil, false
	}
	idx := a.sparse[h.id()-1]
	if idx < 0 {
		return nil, false
	}
	return a.dense[idx], true
}

func (a *bodyArena) bodies() []*Body {
	return a.dense
}

func (a *bodyArena) len() int {
	return len(a.dense)
}
