package destructible

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/hillroll/common"
	"github.com/milk9111/hillroll/physics"
)

var ErrInvalidArchetype = errors.New("destructible: invalid archetype")

// Archetype describes one kind of obstacle.
type Archetype struct {
	Name        string
	HalfExtents mgl64.Vec3
	Mass        float64
	Health      float64
	PointValue  int
	Material    physics.Material

	// BreakThreshold overrides the model's speed threshold when positive.
	BreakThreshold float64
}

// Validate checks the fields Spawn needs before any body is created.
func (a Archetype) Validate() error {
	switch {
	case a.Health <= 0 || math.IsNaN(a.Health):
		return fmt.Errorf("%w: %s health %v", ErrInvalidArchetype, a.Name, a.Health)
	case a.Mass <= 0 || !common.Finite(a.Mass):
		return fmt.Errorf("%w: %s mass %v", ErrInvalidArchetype, a.Name, a.Mass)
	}
	for _, h := range a.HalfExtents {
		if h <= 0 || !common.Finite(h) {
			return fmt.Errorf("%w: %s half extents %v", ErrInvalidArchetype, a.Name, a.HalfExtents)
		}
	}
	return nil
}

// Body is a tracked obstacle.
type Body struct {
	handle     physics.BodyHandle
	name       string
	Health     *Health
	PointValue int
	Threshold  float64
	destroyed  bool
}

func (b *Body) Handle() physics.BodyHandle { return b.handle }
func (b *Body) Name() string               { return b.name }
func (b *Body) Destroyed() bool            { return b.destroyed }

// Model turns per-frame contact reports into damage. Damage uses the contact's relative
// speed only: neither the contact normal nor the masses are considered.
type Model struct {
	Threshold   float64
	Coefficient float64

	world  *physics.World
	bodies map[physics.BodyHandle]*Body
	order  []*Body
}

// NewModel subscribes to w's contact reports.
func NewModel(w *physics.World, threshold, coefficient float64) *Model {
	m := &Model{
		Threshold:   threshold,
		Coefficient: coefficient,
		world:       w,
		bodies:      make(map[physics.BodyHandle]*Body),
	}
	w.OnContact(m.handleContact)
	return m
}

// Damage returns the damage a hit at speed deals against threshold, or 0 when the hit
// is not strictly faster than the threshold.
func (m *Model) Damage(speed, threshold float64) float64 {
	if speed <= threshold {
		return 0
	}
	return speed * m.Coefficient
}

// Spawn creates an obstacle body at position and starts tracking it.
func (m *Model) Spawn(arch Archetype, position mgl64.Vec3) (*Body, error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}
	material := arch.Material
	if material == physics.NoMaterial {
		material = m.world.Materials().Default()
	}
	h, err := m.world.SpawnBody(physics.BodyDef{
		Shape:      physics.Box(arch.HalfExtents),
		Mass:       arch.Mass,
		Material:   material,
		AllowSleep: true,
		Position:   position,
	})
	if err != nil {
		return nil, fmt.Errorf("destructible: spawn %s: %w", arch.Name, err)
	}
	threshold := m.Threshold
	if arch.BreakThreshold > 0 {
		threshold = arch.BreakThreshold
	}
	b := &Body{
		handle:     h,
		name:       arch.Name,
		Health:     NewHealth(arch.Health),
		PointValue: arch.PointValue,
		Threshold:  threshold,
	}
	b.Health.OnDeath = func(_ *Health, hit Hit) { m.destroy(b, hit) }
	m.bodies[h] = b
	m.order = append(m.order, b)
	return b, nil
}

func (m *Model) handleContact(r physics.ContactReport) {
	b, ok := m.bodies[r.Body]
	if !ok || b.destroyed {
		return
	}
	m.Hit(b, r.Other, r.Speed)
}

// Hit applies one contact at speed to b. It reports whether damage was dealt.
func (m *Model) Hit(b *Body, other physics.BodyHandle, speed float64) bool {
	if b == nil || b.destroyed {
		return false
	}
	dmg := m.Damage(speed, b.Threshold)
	if dmg == 0 {
		return false
	}
	return b.Health.ApplyDamage(dmg, Hit{Body: b.handle, Other: other, Speed: speed, Damage: dmg})
}

func (m *Model) destroy(b *Body, hit Hit) {
	b.destroyed = true
	m.untrack(b)
	if m.world.DestroyBody(b.handle, b.PointValue) {
		m.world.Logger().Printf("Destructible: %s %v destroyed at %.1f m/s (+%d)", b.name, b.handle, hit.Speed, b.PointValue)
	}
}

func (m *Model) untrack(b *Body) {
	delete(m.bodies, b.handle)
	for i, o := range m.order {
		if o == b {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Body returns the tracked obstacle for h.
func (m *Model) Body(h physics.BodyHandle) (*Body, bool) {
	b, ok := m.bodies[h]
	return b, ok
}

// Bodies returns the live obstacles in spawn order.
func (m *Model) Bodies() []*Body {
	return append([]*Body(nil), m.order...)
}

func (m *Model) Alive() int {
	return len(m.order)
}

// Reset forgets every tracked obstacle without touching the world.
func (m *Model) Reset() {
	clear(m.bodies)
	m.order = nil
}
