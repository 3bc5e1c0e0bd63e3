package physics

import "github.com/go-gl/mathgl/mgl64"

// ContactReport is the per-frame collision-speed report for one body: the largest
// contact speed it saw across the frame's sub-steps. Speed is the magnitude of the
// relative velocity at the contact point; normal direction and mass are ignored.
type ContactReport struct {
	Body     BodyHandle
	Other    BodyHandle // NoBody when the contact was with the terrain
	Terrain  bool
	Speed    float64
	Position mgl64.Vec3
}

// TerrainImpact is emitted when a body starts touching the terrain with an approach
// speed at or above Config.TerrainImpactMinSpeed.
type TerrainImpact struct {
	Body     BodyHandle
	Speed    float64
	Position mgl64.Vec3
}

// ObjectDestroyed is emitted once per DestroyBody call for a live body.
type ObjectDestroyed struct {
	Body       BodyHandle
	PointValue int
	Position   mgl64.Vec3
}

type listeners struct {
	contact   []func(ContactReport)
	impact    []func(TerrainImpact)
	destroyed []func(ObjectDestroyed)
}

type event interface {
	dispatch(l *listeners)
}

func (e ContactReport) dispatch(l *listeners) {
	for _, fn := range l.contact {
		fn(e)
	}
}

func (e TerrainImpact) dispatch(l *listeners) {
	for _, fn := range l.impact {
		fn(e)
	}
}

func (e ObjectDestroyed) dispatch(l *listeners) {
	for _, fn := range l.destroyed {
		fn(e)
	}
}

// eventQueue is a FIFO of pending events.
type eventQueue struct {
	items []event
}

func (q *eventQueue) push(e event) {
	q.items = append(q.items, e)
}

// pop removes the oldest event. Handlers may push while the queue drains.
func (q *eventQueue) pop() (event, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	e := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return e, true
}

func (q *eventQueue) len() int {
	return len(q.items)
}
