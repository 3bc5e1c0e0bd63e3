package prefabs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/hillroll/physics"
)

func TestCleanPaths(t *testing.T) {
	cases := []struct {
		in, prefab, script string
	}{
		{"world.yaml", "world.yaml", "scripts/world.yaml.tengo"},
		{"prefabs/tires.yaml", "tires.yaml", "scripts/tires.yaml.tengo"},
		{"crate_row", "crate_row", "scripts/crate_row.tengo"},
		{"prefabs/scripts/crate_row.tengo", "scripts/crate_row.tengo", "scripts/crate_row.tengo"},
		{"scripts/fence_line.tengo", "scripts/fence_line.tengo", "scripts/fence_line.tengo"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			if got := cleanPrefabPath(c.in); got != c.prefab {
				t.Fatalf("cleanPrefabPath(%q): expected %q, got %q", c.in, c.prefab, got)
			}
			if got := cleanScriptPath(c.in); got != c.script {
				t.Fatalf("cleanScriptPath(%q): expected %q, got %q", c.in, c.script, got)
			}
		})
	}
}

func TestLoadWorldConfig(t *testing.T) {
	cfg, err := LoadWorldConfig()
	if err != nil {
		t.Fatalf("LoadWorldConfig: %v", err)
	}
	want := physics.DefaultConfig()
	if cfg.MaxSubSteps != want.MaxSubSteps || cfg.SolverIterations != want.SolverIterations {
		t.Fatalf("unexpected stepping config %+v", cfg)
	}
	if !cfg.Gravity.ApproxEqual(mgl64.Vec3{0, -9.81, 0}) || cfg.FloorY != -50 {
		t.Fatalf("unexpected gravity %v or floor %v", cfg.Gravity, cfg.FloorY)
	}
	if cfg.FixedTimeStep != 1.0/60.0 {
		t.Fatalf("expected fixed step 1/60, got %v", cfg.FixedTimeStep)
	}
}

func TestWorldSpecOverrides(t *testing.T) {
	floor := -10.0
	cases := []struct {
		name    string
		spec    WorldSpec
		wantErr bool
		check   func(t *testing.T, c physics.Config)
	}{
		{"empty_keeps_defaults", WorldSpec{}, false, func(t *testing.T, c physics.Config) {
			if c.MaxSubSteps != 4 || c.FloorY != -50 {
				t.Fatalf("defaults lost: %+v", c)
			}
		}},
		{"floor_override", WorldSpec{FloorY: &floor, MaxSubSteps: 8}, false, func(t *testing.T, c physics.Config) {
			if c.FloorY != -10 || c.MaxSubSteps != 8 {
				t.Fatalf("overrides not applied: %+v", c)
			}
		}},
		{"short_gravity", WorldSpec{Gravity: []float64{0, -9.81}}, true, nil},
		{"bad_baumgarte", WorldSpec{Baumgarte: 3}, true, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg, err := c.spec.Config()
			if (err != nil) != c.wantErr {
				t.Fatalf("expected error=%v, got %v", c.wantErr, err)
			}
			if c.check != nil {
				c.check(t, cfg)
			}
		})
	}
}

func TestBuildMaterialsFromEmbeddedSpecs(t *testing.T) {
	bundle, err := LoadBundle()
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if len(bundle.Tires.Tires) != 5 {
		t.Fatalf("expected 5 tire archetypes, got %d", len(bundle.Tires.Tires))
	}
	table, cat, err := bundle.Materials()
	if err != nil {
		t.Fatalf("BuildMaterials: %v", err)
	}
	if table.Len() < 7 {
		t.Fatalf("expected at least 7 registered pairs, got %d", table.Len())
	}

	for _, name := range cat.TireOrder {
		arch, ok := cat.Tire(name)
		if !ok {
			t.Fatalf("tire %q missing", name)
		}
		ab, found := table.LookupExact(arch.Material, table.Ground())
		if !found {
			t.Fatalf("tire %q has no ground pair", name)
		}
		if ba := table.Lookup(table.Ground(), arch.Material); ab != ba {
			t.Fatalf("tire %q ground pair not symmetric", name)
		}
	}
	if _, found := table.LookupExact(cat.Generic.Material, table.Ground()); !found {
		t.Fatalf("generic tire has no ground pair")
	}

	generic, ok := cat.Tire("hovercraft")
	if ok || generic.Name != "generic" {
		t.Fatalf("unknown tire should fall back to generic, got %q ok=%v", generic.Name, ok)
	}
	def, ok := cat.Tire("")
	if !ok || def.Name != bundle.Tires.Default {
		t.Fatalf("empty name should resolve to default %q, got %q", bundle.Tires.Default, def.Name)
	}

	crate, ok := cat.Obstacle("crate")
	if !ok || crate.Health != 30 || crate.PointValue != 100 {
		t.Fatalf("unexpected crate archetype %+v", crate)
	}
	car, _ := cat.Tire("car")
	if _, found := table.LookupExact(crate.Material, car.Material); !found {
		t.Fatalf("crate/car pair not registered")
	}
	if cat.Damage.Coefficient != 2 || cat.Damage.VelocityThreshold != 5 {
		t.Fatalf("unexpected damage model %+v", cat.Damage)
	}
}

func TestBuildMaterialsRejectsBadSpecs(t *testing.T) {
	good := TireSpec{Name: "car", Radius: 0.3, Mass: 9, Friction: 0.8, Restitution: 0.4}
	generic := TireSpec{Name: "generic", Radius: 0.35, Mass: 10, Friction: 0.6, Restitution: 0.3}
	cases := []struct {
		name      string
		tires     TireSetSpec
		obstacles DestructibleSetSpec
		want      error
	}{
		{"duplicate_tire", TireSetSpec{Generic: generic, Tires: []TireSpec{good, good}}, DestructibleSetSpec{}, ErrDuplicateArchetype},
		{"zero_radius", TireSetSpec{Generic: generic, Tires: []TireSpec{{Name: "flat", Mass: 1}}}, DestructibleSetSpec{}, ErrInvalidSpec},
		{"missing_default", TireSetSpec{Default: "truck", Generic: generic, Tires: []TireSpec{good}}, DestructibleSetSpec{}, ErrInvalidSpec},
		{"bad_extents", TireSetSpec{Generic: generic}, DestructibleSetSpec{Obstacles: []DestructibleSpec{{Name: "crate", HalfExtents: []float64{1, 1}}}}, ErrInvalidSpec},
		{"duplicate_obstacle", TireSetSpec{Generic: generic}, DestructibleSetSpec{Obstacles: []DestructibleSpec{
			{Name: "crate", HalfExtents: []float64{1, 1, 1}},
			{Name: "crate", HalfExtents: []float64{1, 1, 1}},
		}}, ErrDuplicateArchetype},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, _, err := BuildMaterials(c.tires, c.obstacles); !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestLoadSpecMissingFile(t *testing.T) {
	if _, err := LoadSpec[WorldSpec]("nope.yaml"); err == nil {
		t.Fatalf("expected an error for a missing prefab")
	}
}

func TestLoadScript(t *testing.T) {
	for _, name := range []string{"crate_row", "fence_line.tengo"} {
		data, err := LoadScript(name)
		if err != nil {
			t.Fatalf("LoadScript(%q): %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("LoadScript(%q) returned an empty script", name)
		}
	}
}

func TestWatcherReportsEdits(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	path := filepath.Join(dir, "tires.yaml")
	if err := os.WriteFile(path, []byte("tires: []\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case ch := <-w.Events:
		if filepath.Base(ch.Path) != "tires.yaml" || ch.Kind != SpecChange {
			t.Fatalf("unexpected change %+v", ch)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no change reported")
	}
}
