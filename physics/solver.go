package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
)

// dynamic reports whether b takes part in the solve. Sleeping and frozen bodies act
// as static geometry.
func dynamic(b *Body) bool {
	return b != nil && b.simulated()
}

func invMassOf(b *Body) float64 {
	if !dynamic(b) {
		return 0
	}
	return b.invMass
}

func pointVelocity(b *Body, p mgl64.Vec3) mgl64.Vec3 {
	if b == nil {
		return mgl64.Vec3{}
	}
	return b.velocityAt(p)
}

func applyContactImpulse(b *Body, r, impulse mgl64.Vec3) {
	if !dynamic(b) {
		return
	}
	b.LinearVelocity = b.LinearVelocity.Add(impulse.Mul(b.invMass))
	b.AngularVelocity = b.AngularVelocity.Add(b.applyInvInertia(r.Cross(impulse)))
}

// effectiveMass is 1 / (J M⁻¹ Jᵀ) along dir.
func effectiveMass(c *contact, dir mgl64.Vec3) float64 {
	k := invMassOf(c.a) + invMassOf(c.b)
	if dynamic(c.a) {
		rn := c.ra.Cross(dir)
		k += c.a.applyInvInertia(rn).Cross(c.ra).Dot(dir)
	}
	if dynamic(c.b) {
		rn := c.rb.Cross(dir)
		k += c.b.applyInvInertia(rn).Cross(c.rb).Dot(dir)
	}
	if k <= 0 {
		return 0
	}
	return 1 / k
}

func (c *contact) relativeVelocity() mgl64.Vec3 {
	return pointVelocity(c.a, c.point).Sub(pointVelocity(c.b, c.point))
}

// prepare computes the lever arms, effective masses, tangent basis and the bounce
// target from the velocities before any impulse is applied.
func (c *contact) prepare(restitutionThreshold float64) {
	c.ra = c.point.Sub(c.a.Position)
	if c.b != nil {
		c.rb = c.point.Sub(c.b.Position)
	}

	vrel := c.relativeVelocity()
	vn := vrel.Dot(c.normal)
	c.speed = vrel.Len()
	c.approach = math.Max(0, -vn)

	c.normalMass = effectiveMass(c, c.normal)
	c.target = 0
	if c.approach > restitutionThreshold {
		c.target = c.restitution * c.approach
	}

	t1 := vrel.Sub(c.normal.Mul(vn))
	if t1.Len() > 1e-9 {
		t1 = t1.Normalize()
	} else {
		t1 = anyPerpendicular(c.normal)
	}
	c.tangents = [2]mgl64.Vec3{t1, c.normal.Cross(t1)}
	for k := range c.tangents {
		c.tangentMass[k] = effectiveMass(c, c.tangents[k])
	}
	c.jn = 0
	c.jt = [2]float64{}
}

func (c *contact) apply(impulse mgl64.Vec3) {
	applyContactImpulse(c.a, c.ra, impulse)
	applyContactImpulse(c.b, c.rb, impulse.Mul(-1))
}

// solve runs one sequential-impulse pass: the clamped normal impulse first, then
// Coulomb friction bounded by the accumulated normal impulse.
func (c *contact) solve() {
	vn := c.relativeVelocity().Dot(c.normal)
	lambda := c.normalMass * (c.target - vn)
	next := math.Max(c.jn+lambda, 0)
	lambda = next - c.jn
	c.jn = next
	c.apply(c.normal.Mul(lambda))

	limit := c.friction * c.jn
	for k, t := range c.tangents {
		vt := c.relativeVelocity().Dot(t)
		lambda := -vt * c.tangentMass[k]
		next := cp.Clamp(c.jt[k]+lambda, -limit, limit)
		lambda = next - c.jt[k]
		c.jt[k] = next
		c.apply(t.Mul(lambda))
	}
}

// correct pushes the bodies apart by the fraction of depth beyond the slop, split by
// inverse mass.
func (c *contact) correct(slop, percent float64) {
	wa, wb := invMassOf(c.a), invMassOf(c.b)
	total := wa + wb
	if total <= 0 {
		return
	}
	amount := math.Max(c.depth-slop, 0) * percent * c.share / total
	if amount == 0 {
		return
	}
	if wa > 0 {
		c.a.Position = c.a.Position.Add(c.normal.Mul(amount * wa))
	}
	if wb > 0 {
		c.b.Position = c.b.Position.Sub(c.normal.Mul(amount * wb))
	}
}

func anyPerpendicular(n mgl64.Vec3) mgl64.Vec3 {
	if math.Abs(n[0]) < 0.9 {
		return n.Cross(mgl64.Vec3{1, 0, 0}).Normalize()
	}
	return n.Cross(mgl64.Vec3{0, 1, 0}).Normalize()
}
