package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// contact is one contact point. b is nil for terrain contacts. normal points from b
// (or the terrain) towards a.
type contact struct {
	a, b   *Body
	normal mgl64.Vec3
	point  mgl64.Vec3
	depth  float64

	// share spreads positional correction over the points of one manifold.
	share float64

	friction    float64
	restitution float64

	ra, rb      mgl64.Vec3
	tangents    [2]mgl64.Vec3
	normalMass  float64
	tangentMass [2]float64
	target      float64
	jn          float64
	jt          [2]float64

	approach float64 // pre-solve closing speed along the normal
	speed    float64 // pre-solve |relative velocity|
}

func (c *contact) terrain() bool { return c.b == nil }

var upAxis = mgl64.Vec3{0, 1, 0}

// collide appends the contacts between a and b.
func collide(a, b *Body, out []contact) []contact {
	switch {
	case a.shape.Kind == ShapeSphere && b.shape.Kind == ShapeSphere:
		return sphereSphere(a, b, out)
	case a.shape.Kind == ShapeSphere && b.shape.Kind == ShapeBox:
		return sphereBox(a, b, false, out)
	case a.shape.Kind == ShapeBox && b.shape.Kind == ShapeSphere:
		return sphereBox(b, a, true, out)
	case a.shape.Kind == ShapeBox && b.shape.Kind == ShapeBox:
		return boxBox(a, b, out)
	}
	return out
}

func sphereSphere(a, b *Body, out []contact) []contact {
	d := a.Position.Sub(b.Position)
	r := a.shape.Radius + b.shape.Radius
	dist := d.Len()
	if dist >= r {
		return out
	}
	n := upAxis
	if dist > 1e-9 {
		n = d.Mul(1 / dist)
	}
	return append(out, contact{
		a:      a,
		b:      b,
		normal: n,
		point:  a.Position.Sub(n.Mul(a.shape.Radius)),
		depth:  r - dist,
		share:  1,
	})
}

// sphereBox tests sphere s against box bx in the box's frame. The generated normal
// points from the box to the sphere; flip swaps the roles so that the pair keeps
// handle order.
func sphereBox(s, bx *Body, flip bool, out []contact) []contact {
	h := bx.shape.HalfExtents
	inv := bx.Orientation.Conjugate()
	local := inv.Rotate(s.Position.Sub(bx.Position))

	closest := mgl64.Vec3{
		math.Max(-h[0], math.Min(h[0], local[0])),
		math.Max(-h[1], math.Min(h[1], local[1])),
		math.Max(-h[2], math.Min(h[2], local[2])),
	}

	var nLocal mgl64.Vec3
	var depth float64
	d := local.Sub(closest)
	dist := d.Len()
	if dist > 1e-9 {
		if dist >= s.shape.Radius {
			return out
		}
		nLocal = d.Mul(1 / dist)
		depth = s.shape.Radius - dist
	} else {
		// Center inside the box: push out through the nearest face.
		axis, best := 0, math.Inf(1)
		for k := 0; k < 3; k++ {
			if gap := h[k] - math.Abs(local[k]); gap < best {
				axis, best = k, gap
			}
		}
		sign := 1.0
		if local[axis] < 0 {
			sign = -1
		}
		nLocal[axis] = sign
		closest[axis] = sign * h[axis]
		depth = s.shape.Radius + best
	}

	c := contact{
		a:      s,
		b:      bx,
		normal: bx.Orientation.Rotate(nLocal),
		point:  bx.Position.Add(bx.Orientation.Rotate(closest)),
		depth:  depth,
		share:  1,
	}
	if flip {
		c.a, c.b = bx, s
		c.normal = c.normal.Mul(-1)
	}
	return append(out, c)
}

// boxBox runs a separating axis test over the 15 candidate axes and places one
// contact at the average of the corners that lie inside the other box.
func boxBox(a, b *Body, out []contact) []contact {
	axA := a.axes()
	axB := b.axes()
	delta := a.Position.Sub(b.Position)

	candidates := make([]mgl64.Vec3, 0, 15)
	for _, v := range axA {
		candidates = append(candidates, v.Normalize())
	}
	for _, v := range axB {
		candidates = append(candidates, v.Normalize())
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			candidates = append(candidates, candidates[i].Cross(candidates[3+j]))
		}
	}

	bestDepth := math.Inf(1)
	var bestAxis mgl64.Vec3
	for i, axis := range candidates {
		l := axis.Len()
		if l < 1e-6 {
			continue
		}
		axis = axis.Mul(1 / l)
		ra := projectRadius(axA, axis)
		rb := projectRadius(axB, axis)
		dist := delta.Dot(axis)
		overlap := ra + rb - math.Abs(dist)
		if overlap < 0 {
			return out
		}
		// Edge axes have to win clearly, face axes give steadier contacts.
		if i >= 6 && overlap > bestDepth*0.95 {
			continue
		}
		if overlap < bestDepth {
			bestDepth = overlap
			bestAxis = axis
			if dist < 0 {
				bestAxis = axis.Mul(-1)
			}
		}
	}
	if math.IsInf(bestDepth, 1) {
		return out
	}

	var sum mgl64.Vec3
	count := 0
	for _, p := range a.corners() {
		if b.containsPoint(p, 1e-6) {
			sum = sum.Add(p)
			count++
		}
	}
	for _, p := range b.corners() {
		if a.containsPoint(p, 1e-6) {
			sum = sum.Add(p)
			count++
		}
	}
	var point mgl64.Vec3
	if count > 0 {
		point = sum.Mul(1 / float64(count))
	} else {
		// Edge against edge: take the midpoint of the overlap along the axis.
		point = a.Position.Sub(bestAxis.Mul(projectRadius(axA, bestAxis) - bestDepth*0.5))
	}
	return append(out, contact{
		a:      a,
		b:      b,
		normal: bestAxis,
		point:  point,
		depth:  bestDepth,
		share:  1,
	})
}

func projectRadius(axes [3]mgl64.Vec3, axis mgl64.Vec3) float64 {
	return math.Abs(axes[0].Dot(axis)) + math.Abs(axes[1].Dot(axis)) + math.Abs(axes[2].Dot(axis))
}

// containsPoint reports whether the world point p is inside the box, grown by eps.
func (b *Body) containsPoint(p mgl64.Vec3, eps float64) bool {
	local := b.Orientation.Conjugate().Rotate(p.Sub(b.Position))
	h := b.shape.HalfExtents
	return math.Abs(local[0]) <= h[0]+eps && math.Abs(local[1]) <= h[1]+eps && math.Abs(local[2]) <= h[2]+eps
}

// collideTerrain appends the contacts between b and the heightfield.
func collideTerrain(t *TerrainShape, b *Body, out []contact) []contact {
	switch b.shape.Kind {
	case ShapeSphere:
		return sphereTerrain(t, b, out)
	case ShapeBox:
		return boxTerrain(t, b, out)
	}
	return out
}

// sphereTerrain uses the tangent plane of the triangle under the sphere's center.
func sphereTerrain(t *TerrainShape, b *Body, out []contact) []contact {
	c := b.Position
	y, n, ok := t.Sample(c[0], c[2])
	if !ok {
		return out
	}
	dist := c.Sub(mgl64.Vec3{c[0], y, c[2]}).Dot(n)
	r := b.shape.Radius
	if dist >= r {
		return out
	}
	return append(out, contact{
		a:      b,
		normal: n,
		point:  c.Sub(n.Mul(dist)),
		depth:  r - dist,
		share:  1,
	})
}

// boxTerrain emits one contact per corner below the surface.
func boxTerrain(t *TerrainShape, b *Body, out []contact) []contact {
	start := len(out)
	for _, p := range b.corners() {
		y, n, ok := t.Sample(p[0], p[2])
		if !ok || p[1] >= y {
			continue
		}
		out = append(out, contact{
			a:      b,
			normal: n,
			point:  p,
			depth:  (y - p[1]) * n[1],
		})
	}
	if added := len(out) - start; added > 0 {
		share := 1 / float64(added)
		for i := start; i < len(out); i++ {
			out[i].share = share
		}
	}
	return out
}
