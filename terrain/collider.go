package terrain

// Collider is the physics-facing description of a level's terrain. It is immutable
// once built.
type Collider struct {
	shape   Shape
	seed    int64
	extent  Extent
	lattice *Lattice
}

// NewCollider samples shape into a lattice at elementSize spacing.
func NewCollider(shape Shape, seed int64, extent Extent, elementSize, baseY float64) (*Collider, error) {
	lattice, err := BuildLattice(shape, seed, extent, elementSize, baseY)
	if err != nil {
		return nil, err
	}
	return &Collider{
		shape:   shape,
		seed:    seed,
		extent:  extent,
		lattice: lattice,
	}, nil
}

// SurfaceHeightAt evaluates the height function directly, so spawn placement gets the
// exact analytic surface regardless of lattice resolution.
func (c *Collider) SurfaceHeightAt(x, z float64) float64 {
	if c == nil {
		return 0
	}
	return c.lattice.BaseY + c.shape.Height(x, z, c.seed)
}

func (c *Collider) Lattice() *Lattice {
	if c == nil {
		return nil
	}
	return c.lattice
}

func (c *Collider) Seed() int64    { return c.seed }
func (c *Collider) Extent() Extent { return c.extent }
func (c *Collider) Shape() Shape   { return c.shape }

// Contains reports whether (x, z) lies within the sampled extent.
func (c *Collider) Contains(x, z float64) bool {
	if c == nil {
		return false
	}
	return x >= c.extent.MinX && x <= c.extent.MaxX && z >= c.extent.MinZ && z <= c.extent.MaxZ
}
