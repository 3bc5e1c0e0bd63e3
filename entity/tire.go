package entity

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/hillroll/common"
	"github.com/milk9111/hillroll/physics"
)

var (
	ErrAlreadyLaunched = errors.New("entity: tire already launched")
	ErrBodyGone        = errors.New("entity: tire body no longer exists")
)

// Rest detection defaults.
const (
	DefaultRestSpeed = 0.15
	DefaultRestTime  = 1.0
)

type State int

const (
	Idle State = iota
	Rolling
	AtRest
	Destroyed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rolling:
		return "rolling"
	case AtRest:
		return "at_rest"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Transform is the render-side pose the tire writes into. The core never owns it.
type Transform interface {
	SetPose(position mgl64.Vec3, orientation mgl64.Quat)
}

// Archetype describes one kind of tire.
type Archetype struct {
	Name           string
	Radius         float64
	Mass           float64
	LinearDamping  float64
	AngularDamping float64
	Material       physics.Material

	// LaunchSpeed is used along +X when a level gives no launch velocity.
	LaunchSpeed float64
}

// Validate checks the archetype against the body limits NewTire will spawn with.
func (a Archetype) Validate() error {
	switch {
	case a.Radius <= 0 || !common.Finite(a.Radius):
		return fmt.Errorf("%w: tire %q radius %v", physics.ErrInvalidBody, a.Name, a.Radius)
	case a.Mass <= 0 || !common.Finite(a.Mass):
		return fmt.Errorf("%w: tire %q mass %v", physics.ErrInvalidBody, a.Name, a.Mass)
	case a.LinearDamping < 0 || a.LinearDamping >= 1 || a.AngularDamping < 0 || a.AngularDamping >= 1:
		return fmt.Errorf("%w: tire %q damping", physics.ErrInvalidBody, a.Name)
	}
	return nil
}

// Tire is a sphere body driven by a launch and then left to the simulation.
type Tire struct {
	world  *physics.World
	arch   Archetype
	handle physics.BodyHandle
	visual Transform

	state      State
	launchedAt float64
	restTimer  float64

	RestSpeed float64
	RestTime  float64
}

// NewTire spawns the tire's body frozen at position; it holds there until Launch.
// Tires never sleep so that a slow roll is never stopped mid-slope.
func NewTire(w *physics.World, arch Archetype, position mgl64.Vec3, visual Transform) (*Tire, error) {
	if w == nil {
		return nil, errors.New("entity: nil world")
	}
	if err := arch.Validate(); err != nil {
		return nil, err
	}
	material := arch.Material
	if material == physics.NoMaterial {
		material = w.Materials().Default()
	}
	h, err := w.SpawnBody(physics.BodyDef{
		Shape:          physics.Sphere(arch.Radius),
		Mass:           arch.Mass,
		LinearDamping:  arch.LinearDamping,
		AngularDamping: arch.AngularDamping,
		Material:       material,
		AllowSleep:     false,
		Frozen:         true,
		Position:       position,
	})
	if err != nil {
		return nil, fmt.Errorf("entity: spawn tire %q: %w", arch.Name, err)
	}
	t := &Tire{
		world:     w,
		arch:      arch,
		handle:    h,
		visual:    visual,
		RestSpeed: DefaultRestSpeed,
		RestTime:  DefaultRestTime,
	}
	t.SyncVisualFromBody()
	return t, nil
}

func (t *Tire) Handle() physics.BodyHandle { return t.handle }
func (t *Tire) Archetype() Archetype       { return t.arch }
func (t *Tire) State() State               { return t.state }
func (t *Tire) IsAtRest() bool             { return t.state == AtRest }
func (t *Tire) IsLaunched() bool           { return t.state != Idle }

// LaunchedAt returns the world time of the launch, or 0 before one.
func (t *Tire) LaunchedAt() float64 { return t.launchedAt }

// Launch releases the held body, sets its velocity directly and spins it to roll
// without slipping about the Z axis.
func (t *Tire) Launch(v mgl64.Vec3) error {
	if t.state != Idle {
		return ErrAlreadyLaunched
	}
	b, ok := t.world.Body(t.handle)
	if !ok {
		t.state = Destroyed
		return ErrBodyGone
	}
	b.Release()
	b.SetLinearVelocity(v)
	b.SetAngularVelocity(mgl64.Vec3{0, 0, -v.X() / t.arch.Radius})
	t.state = Rolling
	t.launchedAt = t.world.Time()
	t.restTimer = 0
	return nil
}

// Update advances the tire's state from its body. dt is wall time; rest detection
// runs on simulated time.
func (t *Tire) Update(dt float64) {
	if t.state == Destroyed {
		return
	}
	b, ok := t.world.Body(t.handle)
	if !ok {
		t.state = Destroyed
		return
	}
	if b.Position.Y() < t.world.Config().FloorY {
		t.world.Logger().Printf("Tire: %s fell below the floor at %.1f", t.arch.Name, b.Position.Y())
		t.Remove()
		return
	}
	if t.state != Rolling {
		return
	}
	if b.IsSleeping() {
		t.state = AtRest
		return
	}
	if b.Speed() >= t.RestSpeed {
		t.restTimer = 0
		return
	}
	t.restTimer += dt * t.world.TimeScale()
	if t.restTimer >= t.RestTime {
		t.state = AtRest
	}
}

// SyncVisualFromBody copies the body's pose into the visual transform.
func (t *Tire) SyncVisualFromBody() {
	if t.visual == nil {
		return
	}
	b, ok := t.world.Body(t.handle)
	if !ok {
		return
	}
	t.visual.SetPose(b.Position, b.Orientation)
}

// Remove takes the tire's body out of the world. Calling it again does nothing.
func (t *Tire) Remove() {
	if t.state == Destroyed {
		return
	}
	t.world.RemoveBody(t.handle)
	t.state = Destroyed
}
