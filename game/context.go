package game

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/hillroll/common"
	"github.com/milk9111/hillroll/destructible"
	"github.com/milk9111/hillroll/entity"
	"github.com/milk9111/hillroll/levels"
	"github.com/milk9111/hillroll/physics"
	"github.com/milk9111/hillroll/prefabs"
	"github.com/milk9111/hillroll/terrain"
)

var (
	ErrNoLevel          = errors.New("game: no level loaded")
	ErrUnknownArchetype = errors.New("game: unknown obstacle archetype")
)

// DefaultSlowMotion is the time scale used while slow motion is on.
const DefaultSlowMotion = 0.25

// spawnClearance lifts spawned bodies off the analytic surface so they settle onto
// the lattice instead of starting inside it.
const spawnClearance = 0.02

type obstacleSpawn struct {
	arch     destructible.Archetype
	position mgl64.Vec3
}

type Options struct {
	// Bundle overrides the prefab files; nil loads them.
	Bundle *prefabs.Bundle

	// Logger receives physics and game logs; nil uses prefixed stderr loggers.
	Logger *log.Logger

	Debug      bool
	SlowMotion float64

	// Visual receives the tire's pose every update.
	Visual entity.Transform
}

// Context owns one simulation: the world, its materials and archetypes, the loaded
// level and the entities spawned from it. Nothing in it is global.
type Context struct {
	opts    Options
	log     *log.Logger
	bundle  prefabs.Bundle
	catalog prefabs.Catalog

	world  *physics.World
	damage *destructible.Model

	level    *levels.Level
	collider *terrain.Collider
	mesh     *terrain.Mesh
	tire     *entity.Tire
	launch   mgl64.Vec3

	slowMotion bool
	score      int
	destroyed  int
	impacts    int
	frames     int
}

func NewContext(opts Options) (*Context, error) {
	var bundle prefabs.Bundle
	if opts.Bundle != nil {
		bundle = *opts.Bundle
	} else {
		b, err := prefabs.LoadBundle()
		if err != nil {
			return nil, err
		}
		bundle = b
	}
	if opts.SlowMotion <= 0 {
		opts.SlowMotion = DefaultSlowMotion
	}

	logger := opts.Logger
	if logger == nil {
		logger = common.NewLogger("game")
	}
	cfg := bundle.Config
	if opts.Logger != nil {
		cfg.Logger = opts.Logger
	}
	cfg.Debug = cfg.Debug || opts.Debug

	table, catalog, err := bundle.Materials()
	if err != nil {
		return nil, err
	}
	world, err := physics.NewWorld(cfg, table)
	if err != nil {
		return nil, err
	}

	c := &Context{
		opts:    opts,
		log:     logger,
		bundle:  bundle,
		catalog: catalog,
		world:   world,
		damage:  destructible.NewModel(world, catalog.Damage.VelocityThreshold, catalog.Damage.Coefficient),
	}
	world.OnDestroyed(c.onDestroyed)
	world.OnTerrainImpact(c.onTerrainImpact)
	return c, nil
}

func (c *Context) onDestroyed(e physics.ObjectDestroyed) {
	c.score += e.PointValue
	c.destroyed++
}

func (c *Context) onTerrainImpact(e physics.TerrainImpact) {
	c.impacts++
	if c.opts.Debug {
		c.log.Printf("Game: body %v hit the ground at %.2f m/s", e.Body, e.Speed)
	}
}

// LoadLevel clears the world and builds lvl: terrain collider and render mesh,
// obstacles on the surface, then the tire at its spawn point.
func (c *Context) LoadLevel(lvl *levels.Level) error {
	if lvl == nil {
		return ErrNoLevel
	}
	if err := lvl.Validate(); err != nil {
		return err
	}
	shape := lvl.TerrainShape()
	collider, err := terrain.NewCollider(shape, lvl.Seed, lvl.Extent, lvl.ElementSize, lvl.BaseY)
	if err != nil {
		return fmt.Errorf("game: level %s: %w", lvl.Name, err)
	}
	nx, nz := lvl.MeshCounts()
	mesh, err := terrain.BuildMesh(shape, lvl.Seed, lvl.Extent, nx, nz, lvl.BaseY)
	if err != nil {
		return fmt.Errorf("game: level %s: %w", lvl.Name, err)
	}
	placements, err := lvl.Placements()
	if err != nil {
		return err
	}

	// Everything is resolved before the world changes, so a bad level leaves the
	// loaded one intact.
	spawns := make([]obstacleSpawn, 0, len(placements))
	for _, p := range placements {
		arch, ok := c.catalog.Obstacle(p.Archetype)
		if !ok {
			return fmt.Errorf("%w: %q in level %s", ErrUnknownArchetype, p.Archetype, lvl.Name)
		}
		if err := arch.Validate(); err != nil {
			return fmt.Errorf("game: level %s: %w", lvl.Name, err)
		}
		y := collider.SurfaceHeightAt(p.X, p.Z) + arch.HalfExtents.Y() + spawnClearance
		spawns = append(spawns, obstacleSpawn{arch: arch, position: mgl64.Vec3{p.X, y, p.Z}})
	}
	arch, ok := c.catalog.Tire(lvl.Tire.Archetype)
	if !ok {
		c.log.Printf("Game: tire %q not defined, using %s", lvl.Tire.Archetype, arch.Name)
	}
	if err := arch.Validate(); err != nil {
		return fmt.Errorf("game: level %s: %w", lvl.Name, err)
	}
	pos := mgl64.Vec3{lvl.Tire.X, collider.SurfaceHeightAt(lvl.Tire.X, lvl.Tire.Z) + arch.Radius + spawnClearance, lvl.Tire.Z}

	lat := collider.Lattice()
	if err := c.world.SpawnTerrain(lat.Heights, lat.ElementSize, lat.OriginX, lat.OriginZ, lat.BaseY); err != nil {
		return fmt.Errorf("game: level %s: %w", lvl.Name, err)
	}
	c.world.ClearBodies()
	c.damage.Reset()
	for _, sp := range spawns {
		if _, err := c.damage.Spawn(sp.arch, sp.position); err != nil {
			return err
		}
	}
	tire, err := entity.NewTire(c.world, arch, pos, c.opts.Visual)
	if err != nil {
		return err
	}

	c.launch = mgl64.Vec3(lvl.Tire.Launch)
	if c.launch == (mgl64.Vec3{}) {
		c.launch = mgl64.Vec3{arch.LaunchSpeed, 0, 0}
	}
	c.level = lvl
	c.collider = collider
	c.mesh = mesh
	c.tire = tire
	c.score = 0
	c.destroyed = 0
	c.impacts = 0
	c.frames = 0
	c.SetSlowMotion(false)
	c.log.Printf("Game: level %s loaded, %d obstacles, tire %s", lvl.Name, c.damage.Alive(), arch.Name)
	return nil
}

// Update advances the simulation by one frame of dt wall seconds.
func (c *Context) Update(dt float64) {
	c.frames++
	c.world.Step(dt)
	if c.tire != nil {
		c.tire.Update(dt)
		c.tire.SyncVisualFromBody()
	}
}

// LaunchTire launches the tire with the level's launch velocity.
func (c *Context) LaunchTire() error {
	if c.tire == nil {
		return ErrNoLevel
	}
	return c.tire.Launch(c.launch)
}

func (c *Context) SetSlowMotion(on bool) {
	c.slowMotion = on
	if on {
		c.world.SetTimeScale(c.opts.SlowMotion)
		return
	}
	c.world.SetTimeScale(1)
}

// Done reports whether the run is over: the tire has stopped or is gone.
func (c *Context) Done() bool {
	if c.tire == nil {
		return false
	}
	s := c.tire.State()
	return s == entity.AtRest || s == entity.Destroyed
}

func (c *Context) World() *physics.World       { return c.world }
func (c *Context) Damage() *destructible.Model { return c.damage }
func (c *Context) Catalog() prefabs.Catalog    { return c.catalog }
func (c *Context) Level() *levels.Level        { return c.level }
func (c *Context) Collider() *terrain.Collider { return c.collider }
func (c *Context) Mesh() *terrain.Mesh         { return c.mesh }
func (c *Context) Tire() *entity.Tire          { return c.tire }
func (c *Context) SlowMotion() bool            { return c.slowMotion }
func (c *Context) Score() int                  { return c.score }
func (c *Context) DestroyedCount() int         { return c.destroyed }
func (c *Context) TerrainImpacts() int         { return c.impacts }
func (c *Context) Frames() int                 { return c.frames }
