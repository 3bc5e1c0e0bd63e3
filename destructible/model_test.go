package destructible

import (
	"bytes"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/hillroll/physics"
)

const frame = 1.0 / 60.0

func newTestWorld(t *testing.T) *physics.World {
	t.Helper()
	cfg := physics.DefaultConfig()
	cfg.Gravity = mgl64.Vec3{}
	cfg.Logger = log.New(io.Discard, "", 0)
	w, err := physics.NewWorld(cfg, nil)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return w
}

var crate = Archetype{
	Name:        "crate",
	HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5},
	Mass:        5,
	Health:      30,
	PointValue:  100,
}

func TestHealthApplyDamage(t *testing.T) {
	cases := []struct {
		name     string
		max      float64
		hits     []float64
		wantCur  float64
		wantDead bool
		deaths   int
	}{
		{"survives", 30, []float64{10}, 20, false, 0},
		{"dies_once", 30, []float64{40, 10}, 0, true, 1},
		{"exact_kill", 30, []float64{15, 15}, 0, true, 1},
		{"ignores_non_positive", 30, []float64{0, -5}, 30, false, 0},
		{"clamps_max", 0, []float64{0.5}, 0.5, false, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := NewHealth(c.max)
			deaths := 0
			h.OnDeath = func(*Health, Hit) { deaths++ }
			for _, amt := range c.hits {
				h.ApplyDamage(amt, Hit{})
			}
			if h.Current != c.wantCur || h.Dead != c.wantDead {
				t.Fatalf("expected current=%v dead=%v, got %v %v", c.wantCur, c.wantDead, h.Current, h.Dead)
			}
			if deaths != c.deaths {
				t.Fatalf("expected %d deaths, got %d", c.deaths, deaths)
			}
		})
	}
}

func TestDamageIsSpeedTimesCoefficient(t *testing.T) {
	m := &Model{Threshold: 5, Coefficient: 2}
	cases := []struct {
		speed float64
		want  float64
	}{
		{4, 0},
		{5, 0},
		{5.5, 11},
		{20, 40},
	}
	for _, c := range cases {
		if got := m.Damage(c.speed, m.Threshold); got != c.want {
			t.Fatalf("Damage(%v): expected %v, got %v", c.speed, c.want, got)
		}
	}
}

func TestHitDestroysOnce(t *testing.T) {
	w := newTestWorld(t)
	m := NewModel(w, 5, 2)
	b, err := m.Spawn(crate, mgl64.Vec3{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	var events []physics.ObjectDestroyed
	w.OnDestroyed(func(e physics.ObjectDestroyed) { events = append(events, e) })

	if !m.Hit(b, physics.NoBody, 20) {
		t.Fatalf("expected damage at 20 m/s")
	}
	if m.Hit(b, physics.NoBody, 20) {
		t.Fatalf("destroyed body took damage again")
	}
	if !b.Destroyed() || m.Alive() != 0 {
		t.Fatalf("expected body destroyed and untracked")
	}
	if _, ok := m.Body(b.Handle()); ok {
		t.Fatalf("destroyed body still tracked")
	}
	if len(events) != 1 || events[0].PointValue != 100 {
		t.Fatalf("expected one destroyed event worth 100, got %+v", events)
	}
	if w.Contains(b.Handle()) {
		t.Fatalf("destroyed body still in the world")
	}
}

func TestTireSmashesCrateInOneFrame(t *testing.T) {
	w := newTestWorld(t)
	m := NewModel(w, 5, 2)
	b, err := m.Spawn(crate, mgl64.Vec3{2, 0, 0})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if _, err := w.SpawnBody(physics.BodyDef{
		Shape:          physics.Sphere(0.5),
		Mass:           20,
		Material:       w.Materials().Default(),
		LinearVelocity: mgl64.Vec3{20, 0, 0},
	}); err != nil {
		t.Fatalf("SpawnBody: %v", err)
	}

	var events []physics.ObjectDestroyed
	w.OnDestroyed(func(e physics.ObjectDestroyed) { events = append(events, e) })

	frames := 0
	for ; frames < 30 && len(events) == 0; frames++ {
		w.Step(frame)
		if len(events) == 0 && b.Health.Current != b.Health.Max {
			t.Fatalf("crate damaged without being destroyed: %v", b.Health.Current)
		}
	}
	for i := 0; i < 10; i++ {
		w.Step(frame)
	}

	if len(events) != 1 {
		t.Fatalf("expected exactly one destroyed event, got %d", len(events))
	}
	if events[0].Body != b.Handle() || events[0].PointValue != crate.PointValue {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if w.Contains(b.Handle()) || m.Alive() != 0 {
		t.Fatalf("crate still present after destruction")
	}
}

func TestSlowContactLeavesObstacleIntact(t *testing.T) {
	w := newTestWorld(t)
	m := NewModel(w, 5, 2)
	b, err := m.Spawn(crate, mgl64.Vec3{2, 0, 0})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if _, err := w.SpawnBody(physics.BodyDef{
		Shape:          physics.Sphere(0.5),
		Mass:           20,
		Material:       w.Materials().Default(),
		LinearVelocity: mgl64.Vec3{3, 0, 0},
	}); err != nil {
		t.Fatalf("SpawnBody: %v", err)
	}
	for i := 0; i < 60; i++ {
		w.Step(frame)
	}
	if b.Health.Current != b.Health.Max || b.Destroyed() || !w.Contains(b.Handle()) {
		t.Fatalf("slow contact damaged the crate: %v", b.Health.Current)
	}
}

func TestBreakThresholdOverridesModel(t *testing.T) {
	w := newTestWorld(t)
	m := NewModel(w, 5, 2)
	arch := crate
	arch.BreakThreshold = 25
	b, err := m.Spawn(arch, mgl64.Vec3{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if b.Threshold != 25 {
		t.Fatalf("expected threshold 25, got %v", b.Threshold)
	}
	if m.Hit(b, physics.NoBody, 20) {
		t.Fatalf("hit below the archetype threshold dealt damage")
	}
}

func TestSpawnRejectsBadArchetype(t *testing.T) {
	w := newTestWorld(t)
	m := NewModel(w, 5, 2)
	cases := []struct {
		name   string
		mutate func(a *Archetype)
		want   error
	}{
		{"no_health", func(a *Archetype) { a.Health = 0 }, ErrInvalidArchetype},
		{"no_mass", func(a *Archetype) { a.Mass = 0 }, ErrInvalidArchetype},
		{"flat", func(a *Archetype) { a.HalfExtents = mgl64.Vec3{1, 0, 1} }, ErrInvalidArchetype},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			arch := crate
			c.mutate(&arch)
			if _, err := m.Spawn(arch, mgl64.Vec3{}); !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}
	if m.Alive() != 0 {
		t.Fatalf("failed spawns were tracked")
	}
}

func TestDestroyLogsThroughWorldLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := physics.DefaultConfig()
	cfg.Logger = log.New(&buf, "", 0)
	w, err := physics.NewWorld(cfg, nil)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	m := NewModel(w, 5, 2)
	b, err := m.Spawn(crate, mgl64.Vec3{})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if !m.Hit(b, physics.NoBody, 20) {
		t.Fatalf("expected the hit to deal damage")
	}
	if !b.Destroyed() || !strings.Contains(buf.String(), "crate") {
		t.Fatalf("expected a destroy log on the world logger, got %q", buf.String())
	}
}
