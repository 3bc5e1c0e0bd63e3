package physics

import (
	"log"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/hillroll/common"
)

type opKind int

const (
	opSpawn opKind = iota
	opRemove
	opClear
)

// pendingOp is a creation or removal requested while the world was locked. Ops are
// applied in request order at the safe point after event dispatch.
type pendingOp struct {
	kind   opKind
	body   *Body
	handle BodyHandle
}

// World owns the bodies, the terrain collider and the fixed-step integrator. It is
// not safe for concurrent use; everything runs on the caller's frame.
type World struct {
	cfg       Config
	log       *log.Logger
	materials *MaterialTable

	arena   bodyArena
	terrain *TerrainShape

	timeScale   float64
	accumulator float64
	steps       uint64

	// locked is set while sub-steps run and while events dispatch.
	locked  bool
	pending []pendingOp
	doomed  map[BodyHandle]bool

	broad        sweepAndPrune
	candidates   []*Body
	contacts     []contact
	touching     map[BodyHandle]bool
	touchingNext map[BodyHandle]bool
	reports      map[BodyHandle]ContactReport

	listeners listeners
	events    eventQueue
}

// NewWorld validates cfg and seals materials; the table is read-only from then on.
func NewWorld(cfg Config, materials *MaterialTable) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if materials == nil {
		materials = NewMaterialTable()
	}
	materials.Seal()

	logger := cfg.Logger
	if logger == nil {
		logger = common.NewLogger("physics")
	}
	return &World{
		cfg:          cfg,
		log:          logger,
		materials:    materials,
		timeScale:    1,
		doomed:       make(map[BodyHandle]bool),
		touching:     make(map[BodyHandle]bool),
		touchingNext: make(map[BodyHandle]bool),
		reports:      make(map[BodyHandle]ContactReport),
	}, nil
}

func (w *World) Config() Config            { return w.cfg }
func (w *World) Logger() *log.Logger       { return w.log }
func (w *World) Materials() *MaterialTable { return w.materials }
func (w *World) Terrain() *TerrainShape    { return w.terrain }
func (w *World) TimeScale() float64        { return w.timeScale }
func (w *World) StepCount() uint64         { return w.steps }
func (w *World) BodyCount() int            { return w.arena.len() }

func (w *World) Body(h BodyHandle) (*Body, bool) {
	return w.arena.get(h)
}

// Contains reports whether h is a live body. Bodies spawned during dispatch become
// live at the safe point.
func (w *World) Contains(h BodyHandle) bool {
	_, ok := w.arena.get(h)
	return ok
}

// Time is the simulated time in seconds: completed sub-steps times the fixed step.
func (w *World) Time() float64 {
	return float64(w.steps) * w.cfg.FixedTimeStep
}

func (w *World) debugf(format string, args ...any) {
	if w.cfg.Debug {
		w.log.Printf(format, args...)
	}
}

// SetTimeScale sets the global time dilation. Negative and non-finite values clamp to 0.
func (w *World) SetTimeScale(f float64) {
	if f < 0 || !common.Finite(f) {
		w.debugf("World: time scale %v clamped to 0", f)
		f = 0
	}
	w.timeScale = f
}

// SpawnTerrain validates the lattice and makes it the world's only terrain collider,
// replacing any previous one. Every terrain uses the table's shared ground material.
func (w *World) SpawnTerrain(heights [][]float64, elementSize, originX, originZ, baseY float64) error {
	t, err := newTerrainShape(heights, elementSize, originX, originZ, baseY, w.materials.Ground())
	if err != nil {
		return err
	}
	w.terrain = t
	clear(w.touching)
	nx, nz := t.Size()
	w.log.Printf("World: terrain %dx%d registered, element size %.3f, origin (%.2f, %.2f), top %.2f",
		nx, nz, elementSize, originX, originZ, t.maxY)
	return nil
}

// SurfaceHeightAt interpolates the registered lattice at (x, z).
func (w *World) SurfaceHeightAt(x, z float64) (float64, bool) {
	y, _, ok := w.terrain.Sample(x, z)
	return y, ok
}

// SpawnBody adds a body. While the world is locked the handle is issued at once and
// the body joins the simulation at the next safe point.
func (w *World) SpawnBody(def BodyDef) (BodyHandle, error) {
	if err := def.validate(w.materials); err != nil {
		return NoBody, err
	}
	h := w.arena.reserve()
	b := newBody(h, def)
	if w.locked {
		w.pending = append(w.pending, pendingOp{kind: opSpawn, body: b, handle: h})
		return h, nil
	}
	w.arena.insert(b)
	return h, nil
}

// RemoveBody removes h. Removing an unknown or already removed handle does nothing.
func (w *World) RemoveBody(h BodyHandle) {
	if w.locked {
		w.pending = append(w.pending, pendingOp{kind: opRemove, handle: h})
		return
	}
	w.removeNow(h)
}

// DestroyBody removes h and emits ObjectDestroyed with pointValue. It reports false
// for bodies that are gone or already being destroyed.
func (w *World) DestroyBody(h BodyHandle, pointValue int) bool {
	b, ok := w.arena.get(h)
	if !ok || w.doomed[h] {
		w.debugf("World: DestroyBody ignored for %v", h)
		return false
	}
	w.doomed[h] = true
	w.events.push(ObjectDestroyed{Body: h, PointValue: pointValue, Position: b.Position})
	w.pending = append(w.pending, pendingOp{kind: opRemove, handle: h})
	if !w.locked {
		w.locked = true
		w.drain()
		w.locked = false
	}
	return true
}

// ClearBodies removes every body.
func (w *World) ClearBodies() {
	if w.locked {
		w.pending = append(w.pending, pendingOp{kind: opClear})
		return
	}
	w.clearNow()
}

func (w *World) removeNow(h BodyHandle) {
	delete(w.doomed, h)
	delete(w.touching, h)
	if _, ok := w.arena.remove(h); !ok {
		w.debugf("World: RemoveBody ignored for unknown handle %v", h)
	}
}

func (w *World) clearNow() {
	for w.arena.len() > 0 {
		dense := w.arena.bodies()
		w.arena.remove(dense[len(dense)-1].handle)
	}
	clear(w.doomed)
	clear(w.touching)
}

func (w *World) apply(op pendingOp) {
	switch op.kind {
	case opSpawn:
		if !w.arena.insert(op.body) {
			w.debugf("World: spawn of %v dropped, handle was removed first", op.handle)
		}
	case opRemove:
		w.removeNow(op.handle)
	case opClear:
		w.clearNow()
	}
}

// Bodies returns the live bodies ordered by handle.
func (w *World) Bodies() []*Body {
	out := append([]*Body(nil), w.arena.bodies()...)
	sort.Slice(out, func(i, j int) bool { return out[i].handle < out[j].handle })
	return out
}

func (w *World) OnContact(fn func(ContactReport)) {
	w.listeners.contact = append(w.listeners.contact, fn)
}

func (w *World) OnTerrainImpact(fn func(TerrainImpact)) {
	w.listeners.impact = append(w.listeners.impact, fn)
}

func (w *World) OnDestroyed(fn func(ObjectDestroyed)) {
	w.listeners.destroyed = append(w.listeners.destroyed, fn)
}

// Step advances the simulation by dt seconds of wall time scaled by the time scale.
// Whole fixed sub-steps run, at most MaxSubSteps per call; time beyond the cap is
// dropped. Events collected during the sub-steps are dispatched afterwards, and
// spawns or removals made by handlers are applied once dispatch completes.
func (w *World) Step(dt float64) {
	if w.locked {
		w.log.Printf("World: re-entrant Step(%v) ignored", dt)
		return
	}
	if dt <= 0 || !common.Finite(dt) {
		return
	}
	w.locked = true
	defer func() { w.locked = false }()

	fixed := w.cfg.FixedTimeStep
	w.accumulator += dt * w.timeScale
	due := math.Floor(w.accumulator/fixed + 1e-9)
	n := int(cp.Clamp(due, 0, float64(w.cfg.MaxSubSteps)))
	if due > float64(w.cfg.MaxSubSteps) {
		w.debugf("World: %d sub-steps due, capped at %d", int(due), w.cfg.MaxSubSteps)
		w.accumulator = math.Mod(w.accumulator, fixed)
	} else {
		w.accumulator = math.Max(0, w.accumulator-float64(n)*fixed)
	}

	for i := 0; i < n; i++ {
		w.subStep(fixed)
	}
	w.flushReports()
	w.drain()
}

// drain dispatches queued events, then applies the ops handlers requested, until
// both queues are empty.
func (w *World) drain() {
	for {
		for e, ok := w.events.pop(); ok; e, ok = w.events.pop() {
			e.dispatch(&w.listeners)
		}
		if len(w.pending) == 0 {
			return
		}
		ops := w.pending
		w.pending = nil
		for _, op := range ops {
			w.apply(op)
		}
	}
}

func (w *World) subStep(dt float64) {
	bodies := w.arena.bodies()

	for _, b := range bodies {
		if b.simulated() {
			w.integrateVelocity(b, dt)
		}
	}

	w.contacts = w.contacts[:0]
	for _, p := range w.broad.update(bodies) {
		start := len(w.contacts)
		w.contacts = collide(p.a, p.b, w.contacts)
		if len(w.contacts) == start {
			continue
		}
		w.wakeOnTouch(p.a, p.b)
		w.prepareContacts(start)
	}

	w.candidates = terrainCandidates(w.terrain, bodies, w.candidates)
	for _, b := range w.candidates {
		start := len(w.contacts)
		w.contacts = collideTerrain(w.terrain, b, w.contacts)
		if len(w.contacts) == start {
			continue
		}
		w.prepareContacts(start)
		w.touchingNext[b.handle] = true
		if !w.touching[b.handle] {
			w.checkImpact(b, w.contacts[start:])
		}
	}
	for h := range w.touching {
		if b, ok := w.arena.get(h); ok && !b.simulated() {
			w.touchingNext[h] = true
		}
	}
	w.touching, w.touchingNext = w.touchingNext, w.touching
	clear(w.touchingNext)

	for it := 0; it < w.cfg.SolverIterations; it++ {
		for i := range w.contacts {
			w.contacts[i].solve()
		}
	}

	for _, b := range bodies {
		if b.simulated() {
			integratePosition(b, dt)
		}
	}
	for i := range w.contacts {
		w.contacts[i].correct(w.cfg.ContactSlop, w.cfg.Baumgarte)
	}

	for _, b := range bodies {
		w.updateSleep(b, dt)
	}
	w.steps++
}

func (w *World) integrateVelocity(b *Body, dt float64) {
	accel := w.cfg.Gravity.Add(b.force.Mul(b.invMass))
	b.LinearVelocity = b.LinearVelocity.Add(accel.Mul(dt))
	b.AngularVelocity = b.AngularVelocity.Add(b.applyInvInertia(b.torque).Mul(dt))
	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}

	if b.linearDamping > 0 {
		b.LinearVelocity = b.LinearVelocity.Mul(math.Pow(1-b.linearDamping, dt))
	}
	if b.angularDamping > 0 {
		b.AngularVelocity = b.AngularVelocity.Mul(math.Pow(1-b.angularDamping, dt))
	}
	w.sanitize(b)
}

// sanitize zeroes non-finite velocities and clamps magnitudes to the configured limits.
func (w *World) sanitize(b *Body) {
	if !finiteVec(b.LinearVelocity) {
		w.log.Printf("World: body %v linear velocity %v reset", b.handle, b.LinearVelocity)
		b.LinearVelocity = mgl64.Vec3{}
	}
	if !finiteVec(b.AngularVelocity) {
		w.log.Printf("World: body %v angular velocity %v reset", b.handle, b.AngularVelocity)
		b.AngularVelocity = mgl64.Vec3{}
	}
	if s := b.LinearVelocity.Len(); s > w.cfg.MaxSpeed {
		w.debugf("World: body %v speed %.1f clamped", b.handle, s)
		b.LinearVelocity = b.LinearVelocity.Mul(w.cfg.MaxSpeed / s)
	}
	if s := b.AngularVelocity.Len(); s > w.cfg.MaxAngularSpeed {
		w.debugf("World: body %v angular speed %.1f clamped", b.handle, s)
		b.AngularVelocity = b.AngularVelocity.Mul(w.cfg.MaxAngularSpeed / s)
	}
}

func integratePosition(b *Body, dt float64) {
	b.Position = b.Position.Add(b.LinearVelocity.Mul(dt))
	spin := mgl64.Quat{W: 0, V: b.AngularVelocity}.Mul(b.Orientation)
	b.Orientation = b.Orientation.Add(spin.Scale(0.5 * dt)).Normalize()
}

// wakeOnTouch wakes a sleeping body touched by an awake one that is still moving.
func (w *World) wakeOnTouch(a, b *Body) {
	sleeper, mover := a, b
	if !a.IsSleeping() {
		sleeper, mover = b, a
	}
	if !sleeper.IsSleeping() || mover.IsSleeping() {
		return
	}
	limit := w.cfg.SleepSpeedLimit
	if mover.LinearVelocity.Len() > limit || mover.AngularVelocity.Len() > limit {
		sleeper.Wake()
	}
}

func (w *World) prepareContacts(start int) {
	for i := start; i < len(w.contacts); i++ {
		c := &w.contacts[i]
		other := w.materials.Ground()
		if c.b != nil {
			other = c.b.material
		}
		cm := w.materials.Lookup(c.a.material, other)
		c.friction = float64(cm.Friction)
		c.restitution = float64(cm.Restitution)
		c.prepare(w.cfg.RestitutionThreshold)
		w.record(c)
	}
}

// record keeps the fastest contact of the frame for each body.
func (w *World) record(c *contact) {
	note := func(body *Body, other BodyHandle) {
		if prev, ok := w.reports[body.handle]; ok && prev.Speed >= c.speed {
			return
		}
		w.reports[body.handle] = ContactReport{
			Body:     body.handle,
			Other:    other,
			Terrain:  c.terrain(),
			Speed:    c.speed,
			Position: c.point,
		}
	}
	if c.b == nil {
		note(c.a, NoBody)
		return
	}
	note(c.a, c.b.handle)
	note(c.b, c.a.handle)
}

func (w *World) checkImpact(b *Body, contacts []contact) {
	best := -1
	for i := range contacts {
		if best < 0 || contacts[i].approach > contacts[best].approach {
			best = i
		}
	}
	if best < 0 || contacts[best].approach < w.cfg.TerrainImpactMinSpeed {
		return
	}
	w.events.push(TerrainImpact{Body: b.handle, Speed: contacts[best].approach, Position: contacts[best].point})
}

func (w *World) flushReports() {
	if len(w.reports) == 0 {
		return
	}
	handles := make([]BodyHandle, 0, len(w.reports))
	for h := range w.reports {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	for _, h := range handles {
		w.events.push(w.reports[h])
	}
	clear(w.reports)
}

func (w *World) updateSleep(b *Body, dt float64) {
	if !b.allowSleep || !b.simulated() {
		return
	}
	limit := w.cfg.SleepSpeedLimit
	if b.LinearVelocity.Len() >= limit || b.AngularVelocity.Len() >= limit {
		b.idleTime = 0
		return
	}
	b.idleTime += dt
	if b.idleTime >= w.cfg.SleepTimeLimit {
		b.sleepState = Sleeping
		b.LinearVelocity = mgl64.Vec3{}
		b.AngularVelocity = mgl64.Vec3{}
	}
}
