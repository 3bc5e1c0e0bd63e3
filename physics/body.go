package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/hillroll/common"
)

var ErrInvalidBody = errors.New("physics: invalid body definition")

type ShapeKind int

const (
	ShapeSphere ShapeKind = iota + 1
	ShapeBox
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSphere:
		return "sphere"
	case ShapeBox:
		return "box"
	default:
		return "unknown"
	}
}

// Shape is a body's collision geometry in body space.
type Shape struct {
	Kind        ShapeKind
	Radius      float64
	HalfExtents mgl64.Vec3
}

func Sphere(radius float64) Shape {
	return Shape{Kind: ShapeSphere, Radius: radius}
}

func Box(halfExtents mgl64.Vec3) Shape {
	return Shape{Kind: ShapeBox, HalfExtents: halfExtents}
}

func (s Shape) validate() error {
	switch s.Kind {
	case ShapeSphere:
		if s.Radius <= 0 || !common.Finite(s.Radius) {
			return fmt.Errorf("%w: sphere radius %v", ErrInvalidBody, s.Radius)
		}
	case ShapeBox:
		for _, h := range s.HalfExtents {
			if h <= 0 || !common.Finite(h) {
				return fmt.Errorf("%w: box half extents %v", ErrInvalidBody, s.HalfExtents)
			}
		}
	default:
		return fmt.Errorf("%w: shape kind %d", ErrInvalidBody, s.Kind)
	}
	return nil
}

// inertia returns the body-space principal moments for a solid shape of mass m.
func (s Shape) inertia(m float64) mgl64.Vec3 {
	switch s.Kind {
	case ShapeSphere:
		i := 0.4 * m * s.Radius * s.Radius
		return mgl64.Vec3{i, i, i}
	case ShapeBox:
		hx, hy, hz := s.HalfExtents[0], s.HalfExtents[1], s.HalfExtents[2]
		return mgl64.Vec3{
			m / 3 * (hy*hy + hz*hz),
			m / 3 * (hx*hx + hz*hz),
			m / 3 * (hx*hx + hy*hy),
		}
	}
	return mgl64.Vec3{}
}

type SleepState int

const (
	Awake SleepState = iota
	Sleeping
)

func (s SleepState) String() string {
	if s == Sleeping {
		return "sleeping"
	}
	return "awake"
}

// BodyDef describes a body to spawn. A zero Orientation is treated as identity.
// A Frozen body holds its pose until Release; until then contacts treat it as static.
type BodyDef struct {
	Shape           Shape
	Mass            float64
	LinearDamping   float64
	AngularDamping  float64
	Material        Material
	AllowSleep      bool
	Frozen          bool
	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

func (d BodyDef) validate(materials *MaterialTable) error {
	if err := d.Shape.validate(); err != nil {
		return err
	}
	if d.Mass <= 0 || !common.Finite(d.Mass) {
		return fmt.Errorf("%w: mass %v", ErrInvalidBody, d.Mass)
	}
	if d.LinearDamping < 0 || d.LinearDamping >= 1 || d.AngularDamping < 0 || d.AngularDamping >= 1 {
		return fmt.Errorf("%w: damping must be in [0, 1)", ErrInvalidBody)
	}
	if !materials.Has(d.Material) {
		return fmt.Errorf("%w: %v", ErrUnknownMaterial, d.Material)
	}
	for _, v := range []mgl64.Vec3{d.Position, d.LinearVelocity, d.AngularVelocity} {
		if !finiteVec(v) {
			return fmt.Errorf("%w: non-finite initial state", ErrInvalidBody)
		}
	}
	return nil
}

// Body is a dynamic rigid body. The owning entity may write its pose and velocity
// fields between steps; the world writes them during Step.
type Body struct {
	handle   BodyHandle
	shape    Shape
	material Material

	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3

	mass           float64
	invMass        float64
	invInertia     mgl64.Vec3
	linearDamping  float64
	angularDamping float64

	allowSleep bool
	frozen     bool
	sleepState SleepState
	idleTime   float64

	force  mgl64.Vec3
	torque mgl64.Vec3
}

func newBody(h BodyHandle, def BodyDef) *Body {
	q := def.Orientation
	if q.Len() < 1e-9 {
		q = mgl64.QuatIdent()
	}
	in := def.Shape.inertia(def.Mass)
	return &Body{
		handle:          h,
		shape:           def.Shape,
		material:        def.Material,
		Position:        def.Position,
		Orientation:     q.Normalize(),
		LinearVelocity:  def.LinearVelocity,
		AngularVelocity: def.AngularVelocity,
		mass:            def.Mass,
		invMass:         1 / def.Mass,
		invInertia:      mgl64.Vec3{1 / in[0], 1 / in[1], 1 / in[2]},
		linearDamping:   def.LinearDamping,
		angularDamping:  def.AngularDamping,
		allowSleep:      def.AllowSleep,
		frozen:          def.Frozen,
	}
}

func (b *Body) Handle() BodyHandle     { return b.handle }
func (b *Body) Shape() Shape           { return b.shape }
func (b *Body) Material() Material     { return b.material }
func (b *Body) Mass() float64          { return b.mass }
func (b *Body) AllowSleep() bool       { return b.allowSleep }
func (b *Body) SleepState() SleepState { return b.sleepState }
func (b *Body) IsSleeping() bool       { return b.sleepState == Sleeping }
func (b *Body) IsFrozen() bool         { return b.frozen }

// simulated reports whether the integrator and solver move b.
func (b *Body) simulated() bool { return !b.frozen && b.sleepState != Sleeping }

// Speed is the magnitude of the linear velocity.
func (b *Body) Speed() float64 { return b.LinearVelocity.Len() }

// Wake returns a sleeping body to the simulation.
func (b *Body) Wake() {
	b.sleepState = Awake
	b.idleTime = 0
}

// Release hands a frozen body to the simulation.
func (b *Body) Release() {
	b.frozen = false
	b.Wake()
}

func (b *Body) SetLinearVelocity(v mgl64.Vec3) {
	b.LinearVelocity = v
	b.Wake()
}

func (b *Body) SetAngularVelocity(w mgl64.Vec3) {
	b.AngularVelocity = w
	b.Wake()
}

// ApplyForce accumulates a force at the center of mass until the next sub-step.
func (b *Body) ApplyForce(f mgl64.Vec3) {
	b.force = b.force.Add(f)
	b.Wake()
}

// ApplyTorque accumulates a torque until the next sub-step.
func (b *Body) ApplyTorque(t mgl64.Vec3) {
	b.torque = b.torque.Add(t)
	b.Wake()
}

// ApplyImpulse changes momentum immediately, at a world-space point.
func (b *Body) ApplyImpulse(impulse, point mgl64.Vec3) {
	b.LinearVelocity = b.LinearVelocity.Add(impulse.Mul(b.invMass))
	r := point.Sub(b.Position)
	b.AngularVelocity = b.AngularVelocity.Add(b.applyInvInertia(r.Cross(impulse)))
	b.Wake()
}

// applyInvInertia multiplies v by the world-space inverse inertia tensor.
func (b *Body) applyInvInertia(v mgl64.Vec3) mgl64.Vec3 {
	local := b.Orientation.Conjugate().Rotate(v)
	local = mgl64.Vec3{local[0] * b.invInertia[0], local[1] * b.invInertia[1], local[2] * b.invInertia[2]}
	return b.Orientation.Rotate(local)
}

// velocityAt is the world velocity of the material point at p.
func (b *Body) velocityAt(p mgl64.Vec3) mgl64.Vec3 {
	return b.LinearVelocity.Add(b.AngularVelocity.Cross(p.Sub(b.Position)))
}

// AABB returns the world-space bounds.
func (b *Body) AABB() (lo, hi mgl64.Vec3) {
	var half mgl64.Vec3
	switch b.shape.Kind {
	case ShapeSphere:
		r := b.shape.Radius
		half = mgl64.Vec3{r, r, r}
	case ShapeBox:
		for _, axis := range b.axes() {
			half = half.Add(mgl64.Vec3{math.Abs(axis[0]), math.Abs(axis[1]), math.Abs(axis[2])})
		}
	}
	return b.Position.Sub(half), b.Position.Add(half)
}

// axes returns the box's world-space half-extent vectors.
func (b *Body) axes() [3]mgl64.Vec3 {
	h := b.shape.HalfExtents
	return [3]mgl64.Vec3{
		b.Orientation.Rotate(mgl64.Vec3{h[0], 0, 0}),
		b.Orientation.Rotate(mgl64.Vec3{0, h[1], 0}),
		b.Orientation.Rotate(mgl64.Vec3{0, 0, h[2]}),
	}
}

// corners returns the eight world-space box corners.
func (b *Body) corners() [8]mgl64.Vec3 {
	ax := b.axes()
	var out [8]mgl64.Vec3
	for i := range out {
		p := b.Position
		for k := 0; k < 3; k++ {
			if i&(1<<k) != 0 {
				p = p.Add(ax[k])
			} else {
				p = p.Sub(ax[k])
			}
		}
		out[i] = p
	}
	return out
}

func finiteVec(v mgl64.Vec3) bool {
	return common.Finite(v[0]) && common.Finite(v[1]) && common.Finite(v[2])
}
