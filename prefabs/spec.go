package prefabs

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/hillroll/physics"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSpec = errors.New("prefabs: invalid spec")

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// WorldSpec mirrors physics.Config. Zero fields keep the physics defaults.
type WorldSpec struct {
	Gravity               []float64 `yaml:"gravity"`
	FixedTimeStep         float64   `yaml:"fixed_time_step"`
	MaxSubSteps           int       `yaml:"max_sub_steps"`
	SolverIterations      int       `yaml:"solver_iterations"`
	MaxSpeed              float64   `yaml:"max_speed"`
	MaxAngularSpeed       float64   `yaml:"max_angular_speed"`
	SleepSpeedLimit       float64   `yaml:"sleep_speed_limit"`
	SleepTimeLimit        float64   `yaml:"sleep_time_limit"`
	FloorY                *float64  `yaml:"floor_y"`
	TerrainImpactMinSpeed float64   `yaml:"terrain_impact_min_speed"`
	ContactSlop           float64   `yaml:"contact_slop"`
	Baumgarte             float64   `yaml:"baumgarte"`
	RestitutionThreshold  float64   `yaml:"restitution_threshold"`
	Debug                 bool      `yaml:"debug"`
}

// Config overlays the set fields on physics.DefaultConfig.
func (s WorldSpec) Config() (physics.Config, error) {
	cfg := physics.DefaultConfig()
	if len(s.Gravity) != 0 {
		if len(s.Gravity) != 3 {
			return cfg, fmt.Errorf("%w: gravity needs 3 components, got %d", ErrInvalidSpec, len(s.Gravity))
		}
		cfg.Gravity = mgl64.Vec3{s.Gravity[0], s.Gravity[1], s.Gravity[2]}
	}
	setFloat(&cfg.FixedTimeStep, s.FixedTimeStep)
	setInt(&cfg.MaxSubSteps, s.MaxSubSteps)
	setInt(&cfg.SolverIterations, s.SolverIterations)
	setFloat(&cfg.MaxSpeed, s.MaxSpeed)
	setFloat(&cfg.MaxAngularSpeed, s.MaxAngularSpeed)
	setFloat(&cfg.SleepSpeedLimit, s.SleepSpeedLimit)
	setFloat(&cfg.SleepTimeLimit, s.SleepTimeLimit)
	if s.FloorY != nil {
		cfg.FloorY = *s.FloorY
	}
	setFloat(&cfg.TerrainImpactMinSpeed, s.TerrainImpactMinSpeed)
	setFloat(&cfg.ContactSlop, s.ContactSlop)
	setFloat(&cfg.Baumgarte, s.Baumgarte)
	setFloat(&cfg.RestitutionThreshold, s.RestitutionThreshold)
	cfg.Debug = s.Debug
	return cfg, cfg.Validate()
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func LoadWorldConfig() (physics.Config, error) {
	spec, err := LoadSpec[WorldSpec]("world.yaml")
	if err != nil {
		return physics.Config{}, err
	}
	cfg, err := spec.Config()
	if err != nil {
		return physics.Config{}, fmt.Errorf("prefabs: world.yaml: %w", err)
	}
	return cfg, nil
}

type TireSpec struct {
	Name           string  `yaml:"name"`
	Radius         float64 `yaml:"radius"`
	Mass           float64 `yaml:"mass"`
	LinearDamping  float64 `yaml:"linear_damping"`
	AngularDamping float64 `yaml:"angular_damping"`
	Friction       float32 `yaml:"friction"`
	Restitution    float32 `yaml:"restitution"`
	LaunchSpeed    float64 `yaml:"launch_speed"`
}

type TireSetSpec struct {
	Default string     `yaml:"default"`
	Generic TireSpec   `yaml:"generic"`
	Tires   []TireSpec `yaml:"tires"`
}

func LoadTireSpecs() (TireSetSpec, error) {
	return LoadSpec[TireSetSpec]("tires.yaml")
}

type DamageSpec struct {
	VelocityThreshold float64 `yaml:"velocity_threshold"`
	Coefficient       float64 `yaml:"coefficient"`
}

type DestructibleSpec struct {
	Name           string    `yaml:"name"`
	HalfExtents    []float64 `yaml:"half_extents"`
	Mass           float64   `yaml:"mass"`
	Health         float64   `yaml:"health"`
	PointValue     int       `yaml:"point_value"`
	BreakThreshold float64   `yaml:"break_threshold"`
	Friction       float32   `yaml:"friction"`
	Restitution    float32   `yaml:"restitution"`
}

type DestructibleSetSpec struct {
	Damage    DamageSpec         `yaml:"damage"`
	Obstacles []DestructibleSpec `yaml:"obstacles"`
}

func LoadDestructibleSpecs() (DestructibleSetSpec, error) {
	return LoadSpec[DestructibleSetSpec]("destructibles.yaml")
}
