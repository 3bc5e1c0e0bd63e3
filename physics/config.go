package physics

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/hillroll/common"
)

var ErrInvalidConfig = errors.New("physics: invalid world config")

// Config holds the world's stepping and solver parameters. The fixed step and the
// iteration count are never affected by the time scale.
type Config struct {
	Gravity          mgl64.Vec3
	FixedTimeStep    float64
	MaxSubSteps      int
	SolverIterations int

	MaxSpeed        float64
	MaxAngularSpeed float64

	SleepSpeedLimit float64
	SleepTimeLimit  float64

	// FloorY is the height below which entities consider themselves lost.
	FloorY float64

	TerrainImpactMinSpeed float64

	// ContactSlop is the penetration left uncorrected; Baumgarte is the fraction of
	// the remaining depth pushed out per sub-step.
	ContactSlop float64
	Baumgarte   float64

	// RestitutionThreshold is the approach speed below which contacts do not bounce.
	RestitutionThreshold float64

	Debug  bool
	Logger *log.Logger
}

func DefaultConfig() Config {
	return Config{
		Gravity:               mgl64.Vec3{0, -9.81, 0},
		FixedTimeStep:         1.0 / 60.0,
		MaxSubSteps:           4,
		SolverIterations:      10,
		MaxSpeed:              120,
		MaxAngularSpeed:       200,
		SleepSpeedLimit:       0.1,
		SleepTimeLimit:        1,
		FloorY:                -50,
		TerrainImpactMinSpeed: 1.5,
		ContactSlop:           0.005,
		Baumgarte:             0.4,
		RestitutionThreshold:  1,
	}
}

func (c Config) Validate() error {
	switch {
	case !finiteVec(c.Gravity):
		return fmt.Errorf("%w: gravity %v", ErrInvalidConfig, c.Gravity)
	case c.FixedTimeStep <= 0 || !common.Finite(c.FixedTimeStep):
		return fmt.Errorf("%w: fixed time step %v", ErrInvalidConfig, c.FixedTimeStep)
	case c.MaxSubSteps < 1:
		return fmt.Errorf("%w: max sub-steps %d", ErrInvalidConfig, c.MaxSubSteps)
	case c.SolverIterations < 1:
		return fmt.Errorf("%w: solver iterations %d", ErrInvalidConfig, c.SolverIterations)
	case c.MaxSpeed <= 0 || c.MaxAngularSpeed <= 0 || !allFinite(c.MaxSpeed, c.MaxAngularSpeed):
		return fmt.Errorf("%w: speed limits must be positive and finite", ErrInvalidConfig)
	case c.SleepSpeedLimit < 0 || c.SleepTimeLimit <= 0 || !allFinite(c.SleepSpeedLimit, c.SleepTimeLimit):
		return fmt.Errorf("%w: sleep limits", ErrInvalidConfig)
	case !common.Finite(c.FloorY):
		return fmt.Errorf("%w: floor %v", ErrInvalidConfig, c.FloorY)
	case c.TerrainImpactMinSpeed < 0 || !common.Finite(c.TerrainImpactMinSpeed):
		return fmt.Errorf("%w: terrain impact speed %v", ErrInvalidConfig, c.TerrainImpactMinSpeed)
	case c.ContactSlop < 0 || c.Baumgarte < 0 || c.Baumgarte > 1 || !allFinite(c.ContactSlop, c.Baumgarte):
		return fmt.Errorf("%w: contact correction", ErrInvalidConfig)
	case c.RestitutionThreshold < 0 || !common.Finite(c.RestitutionThreshold):
		return fmt.Errorf("%w: restitution threshold %v", ErrInvalidConfig, c.RestitutionThreshold)
	}
	return nil
}

func allFinite(vs ...float64) bool {
	for _, v := range vs {
		if !common.Finite(v) {
			return false
		}
	}
	return true
}
