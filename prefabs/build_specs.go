package prefabs

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/hillroll/destructible"
	"github.com/milk9111/hillroll/entity"
	"github.com/milk9111/hillroll/physics"
)

var ErrDuplicateArchetype = errors.New("prefabs: duplicate archetype name")

// Catalog holds the archetypes built from the tire and obstacle specs, each bound to
// the material issued for it.
type Catalog struct {
	Default   string
	Generic   entity.Archetype
	Tires     map[string]entity.Archetype
	TireOrder []string

	Obstacles     map[string]destructible.Archetype
	ObstacleOrder []string

	Damage DamageSpec
}

// Tire returns the named archetype. Unknown names resolve to the generic tire with
// ok false.
func (c Catalog) Tire(name string) (entity.Archetype, bool) {
	if name == "" {
		name = c.Default
	}
	if a, ok := c.Tires[name]; ok {
		return a, true
	}
	return c.Generic, false
}

func (c Catalog) Obstacle(name string) (destructible.Archetype, bool) {
	a, ok := c.Obstacles[name]
	return a, ok
}

// BuildMaterials issues one material per tire and obstacle archetype and registers
// the contact pairs: each tire against the ground, the generic tire against the
// ground, each obstacle against the ground and each tire. The returned table is not
// yet sealed.
func BuildMaterials(tires TireSetSpec, obstacles DestructibleSetSpec) (*physics.MaterialTable, Catalog, error) {
	table := physics.NewMaterialTable()
	cat := Catalog{
		Default:   tires.Default,
		Tires:     make(map[string]entity.Archetype, len(tires.Tires)),
		Obstacles: make(map[string]destructible.Archetype, len(obstacles.Obstacles)),
		Damage:    obstacles.Damage,
	}
	ground := table.Ground()

	tireSpecs := make([]TireSpec, 0, len(tires.Tires))
	for _, spec := range tires.Tires {
		if err := validateTire(spec); err != nil {
			return nil, Catalog{}, err
		}
		if _, dup := cat.Tires[spec.Name]; dup {
			return nil, Catalog{}, fmt.Errorf("%w: tire %q", ErrDuplicateArchetype, spec.Name)
		}
		arch, err := buildTire(table, spec)
		if err != nil {
			return nil, Catalog{}, err
		}
		cat.Tires[spec.Name] = arch
		cat.TireOrder = append(cat.TireOrder, spec.Name)
		tireSpecs = append(tireSpecs, spec)
	}

	generic := tires.Generic
	if generic.Name == "" {
		generic.Name = "generic"
	}
	if err := validateTire(generic); err != nil {
		return nil, Catalog{}, err
	}
	arch, err := buildTire(table, generic)
	if err != nil {
		return nil, Catalog{}, err
	}
	cat.Generic = arch
	tireSpecs = append(tireSpecs, generic)

	if cat.Default != "" {
		if _, ok := cat.Tires[cat.Default]; !ok {
			return nil, Catalog{}, fmt.Errorf("%w: default tire %q is not defined", ErrInvalidSpec, cat.Default)
		}
	}

	for _, spec := range obstacles.Obstacles {
		if _, dup := cat.Obstacles[spec.Name]; dup {
			return nil, Catalog{}, fmt.Errorf("%w: obstacle %q", ErrDuplicateArchetype, spec.Name)
		}
		half, err := halfExtents(spec)
		if err != nil {
			return nil, Catalog{}, err
		}
		m := table.NewMaterial(spec.Name, spec.Friction, spec.Restitution)
		if err := table.Register(m, ground, spec.Friction, spec.Restitution); err != nil {
			return nil, Catalog{}, fmt.Errorf("prefabs: register %s/ground: %w", spec.Name, err)
		}
		for _, t := range tireSpecs {
			tm := cat.Generic.Material
			if a, ok := cat.Tires[t.Name]; ok {
				tm = a.Material
			}
			f, r := mixContact(t.Friction, spec.Friction, t.Restitution, spec.Restitution)
			if err := table.Register(m, tm, f, r); err != nil {
				return nil, Catalog{}, fmt.Errorf("prefabs: register %s/%s: %w", spec.Name, t.Name, err)
			}
		}
		cat.Obstacles[spec.Name] = destructible.Archetype{
			Name:           spec.Name,
			HalfExtents:    half,
			Mass:           spec.Mass,
			Health:         spec.Health,
			PointValue:     spec.PointValue,
			BreakThreshold: spec.BreakThreshold,
			Material:       m,
		}
		cat.ObstacleOrder = append(cat.ObstacleOrder, spec.Name)
	}
	return table, cat, nil
}

func buildTire(table *physics.MaterialTable, spec TireSpec) (entity.Archetype, error) {
	m := table.NewMaterial(spec.Name, spec.Friction, spec.Restitution)
	if err := table.Register(m, table.Ground(), spec.Friction, spec.Restitution); err != nil {
		return entity.Archetype{}, fmt.Errorf("prefabs: register %s/ground: %w", spec.Name, err)
	}
	return entity.Archetype{
		Name:           spec.Name,
		Radius:         spec.Radius,
		Mass:           spec.Mass,
		LinearDamping:  spec.LinearDamping,
		AngularDamping: spec.AngularDamping,
		Material:       m,
		LaunchSpeed:    spec.LaunchSpeed,
	}, nil
}

func validateTire(spec TireSpec) error {
	switch {
	case spec.Name == "":
		return fmt.Errorf("%w: tire without a name", ErrInvalidSpec)
	case spec.Radius <= 0 || spec.Mass <= 0:
		return fmt.Errorf("%w: tire %q needs positive radius and mass", ErrInvalidSpec, spec.Name)
	case spec.Friction < 0 || spec.Restitution < 0 || spec.Restitution > 1:
		return fmt.Errorf("%w: tire %q surface coefficients", ErrInvalidSpec, spec.Name)
	}
	return nil
}

func halfExtents(spec DestructibleSpec) (mgl64.Vec3, error) {
	if len(spec.HalfExtents) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%w: obstacle %q needs 3 half extents", ErrInvalidSpec, spec.Name)
	}
	return mgl64.Vec3{spec.HalfExtents[0], spec.HalfExtents[1], spec.HalfExtents[2]}, nil
}

// mixContact combines two surfaces: geometric mean friction, the lower restitution.
func mixContact(f1, f2, r1, r2 float32) (float32, float32) {
	return float32(math.Sqrt(float64(f1) * float64(f2))), min(r1, r2)
}
