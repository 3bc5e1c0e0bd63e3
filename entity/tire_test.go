package entity

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

type poseRecorder struct {
	calls int
	pos   mgl64.Vec3
	rot   mgl64.Quat
}

func (p *poseRecorder) SetPose(position mgl64.Vec3, orientation mgl64.Quat) {
	p.calls++
	p.pos = position
	p.rot = orientation
}

func newTestWorld(t *testing.T, withTerrain bool) *physics.World {
	t.Helper()
	cfg := physics.DefaultConfig()
	cfg.Logger = log.New(io.Discard, "", 0)
	w, err := physics.NewWorld(cfg, nil)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	if withTerrain {
		heights := make([][]float64, 81)
		for i := range heights {
			heights[i] = make([]float64, 21)
		}
		if err := w.SpawnTerrain(heights, 1, -10, -10, 0); err != nil {
			t.Fatalf("SpawnTerrain: %v", err)
		}
	}
	return w
}

func TestLaunchSetsRollingSpin(t *testing.T) {
	w := newTestWorld(t, false)
	arch := Archetype{Name: "truck", Radius: 0.4, Mass: 20}
	tire, err := NewTire(w, arch, mgl64.Vec3{0, 5, 0}, nil)
	if err != nil {
		t.Fatalf("NewTire: %v", err)
	}
	if tire.IsLaunched() || tire.State() != Idle {
		t.Fatalf("new tire should be idle, got %v", tire.State())
	}

	if err := tire.Launch(mgl64.Vec3{10, 0, 0}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	b, ok := w.Body(tire.Handle())
	if !ok {
		t.Fatalf("tire body missing")
	}
	if b.AngularVelocity.Z() != -25 {
		t.Fatalf("expected angular velocity z -25, got %v", b.AngularVelocity.Z())
	}
	if b.AngularVelocity.X() != 0 || b.AngularVelocity.Y() != 0 {
		t.Fatalf("unexpected spin axis %v", b.AngularVelocity)
	}
	if !b.LinearVelocity.ApproxEqual(mgl64.Vec3{10, 0, 0}) {
		t.Fatalf("expected launch velocity, got %v", b.LinearVelocity)
	}
	if b.AllowSleep() {
		t.Fatalf("tires must not be allowed to sleep")
	}
	if tire.State() != Rolling {
		t.Fatalf("expected rolling, got %v", tire.State())
	}

	if err := tire.Launch(mgl64.Vec3{5, 0, 0}); !errors.Is(err, ErrAlreadyLaunched) {
		t.Fatalf("expected ErrAlreadyLaunched, got %v", err)
	}
}

func TestLaunchRecordsWorldTime(t *testing.T) {
	w := newTestWorld(t, true)
	tire, err := NewTire(w, Archetype{Name: "car", Radius: 0.35, Mass: 10}, mgl64.Vec3{0, 0.35, 0}, nil)
	if err != nil {
		t.Fatalf("NewTire: %v", err)
	}
	for i := 0; i < 30; i++ {
		w.Step(frame)
	}
	want := w.Time()
	if err := tire.Launch(mgl64.Vec3{2, 0, 0}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if tire.LaunchedAt() != want || want == 0 {
		t.Fatalf("expected launch time %v, got %v", want, tire.LaunchedAt())
	}
}

func TestTireStateMachine(t *testing.T) {
	cases := []struct {
		name    string
		terrain bool
		arch    Archetype
		launch  mgl64.Vec3
		frames  int
		prepare func(w *physics.World, tire *Tire)
		want    State
		inWorld bool
	}{
		{
			name:    "comes_to_rest",
			terrain: true,
			arch:    Archetype{Name: "bike", Radius: 0.3, Mass: 4, LinearDamping: 0.5, AngularDamping: 0.5},
			launch:  mgl64.Vec3{1, 0, 0},
			frames:  600,
			want:    AtRest,
			inWorld: true,
		},
		{
			name:    "falls_below_floor",
			terrain: false,
			arch:    Archetype{Name: "bike", Radius: 0.3, Mass: 4},
			launch:  mgl64.Vec3{1, 0, 0},
			frames:  300,
			want:    Destroyed,
			inWorld: false,
		},
		{
			name:    "body_removed_elsewhere",
			terrain: true,
			arch:    Archetype{Name: "bike", Radius: 0.3, Mass: 4},
			launch:  mgl64.Vec3{1, 0, 0},
			frames:  1,
			prepare: func(w *physics.World, tire *Tire) { w.RemoveBody(tire.Handle()) },
			want:    Destroyed,
			inWorld: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := newTestWorld(t, c.terrain)
			tire, err := NewTire(w, c.arch, mgl64.Vec3{-5, c.arch.Radius, 0}, nil)
			if err != nil {
				t.Fatalf("NewTire: %v", err)
			}
			if err := tire.Launch(c.launch); err != nil {
				t.Fatalf("Launch: %v", err)
			}
			if c.prepare != nil {
				c.prepare(w, tire)
			}
			for i := 0; i < c.frames; i++ {
				w.Step(frame)
				tire.Update(frame)
			}
			if tire.State() != c.want {
				t.Fatalf("expected %v, got %v", c.want, tire.State())
			}
			if w.Contains(tire.Handle()) != c.inWorld {
				t.Fatalf("expected body in world=%v", c.inWorld)
			}
			if c.want == AtRest && !tire.IsAtRest() {
				t.Fatalf("IsAtRest disagrees with State")
			}
		})
	}
}

func TestSyncVisualFromBody(t *testing.T) {
	w := newTestWorld(t, false)
	rec := &poseRecorder{}
	tire, err := NewTire(w, Archetype{Name: "car", Radius: 0.35, Mass: 10}, mgl64.Vec3{1, 2, 3}, rec)
	if err != nil {
		t.Fatalf("NewTire: %v", err)
	}
	if rec.calls != 1 || !rec.pos.ApproxEqual(mgl64.Vec3{1, 2, 3}) {
		t.Fatalf("expected initial pose sync, got %d calls at %v", rec.calls, rec.pos)
	}
	w.Step(frame)
	tire.SyncVisualFromBody()
	b, _ := w.Body(tire.Handle())
	if rec.pos != b.Position || rec.rot != b.Orientation {
		t.Fatalf("visual pose %v does not match body %v", rec.pos, b.Position)
	}

	tire.Remove()
	tire.Remove()
	calls := rec.calls
	tire.SyncVisualFromBody()
	if rec.calls != calls {
		t.Fatalf("removed tire still wrote its pose")
	}
	if tire.State() != Destroyed || w.Contains(tire.Handle()) {
		t.Fatalf("Remove did not destroy the tire")
	}
}

func TestIdleTireHoldsOnSlope(t *testing.T) {
	w := newTestWorld(t, false)
	heights := make([][]float64, 81)
	for xi := range heights {
		heights[xi] = make([]float64, 21)
		for zi := range heights[xi] {
			heights[xi][zi] = 20 - 0.4*float64(xi)
		}
	}
	if err := w.SpawnTerrain(heights, 1, -10, -10, 0); err != nil {
		t.Fatalf("SpawnTerrain: %v", err)
	}
	surface, _ := w.SurfaceHeightAt(0, 0)
	spawn := mgl64.Vec3{0, surface + 0.35, 0}
	tire, err := NewTire(w, Archetype{Name: "car", Radius: 0.35, Mass: 10}, spawn, nil)
	if err != nil {
		t.Fatalf("NewTire: %v", err)
	}
	b, _ := w.Body(tire.Handle())
	if !b.IsFrozen() {
		t.Fatalf("a new tire should be held")
	}

	for i := 0; i < 300; i++ {
		w.Step(frame)
		tire.Update(frame)
	}
	if b.Position != spawn || b.Speed() != 0 || tire.State() != Idle {
		t.Fatalf("idle tire drifted to %v at %v m/s, state %v", b.Position, b.Speed(), tire.State())
	}

	if err := tire.Launch(mgl64.Vec3{3, 0, 0}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if b.IsFrozen() {
		t.Fatalf("Launch should release the body")
	}
	for i := 0; i < 60; i++ {
		w.Step(frame)
		tire.Update(frame)
	}
	if b.Position.X() <= spawn.X()+1 || b.Position.Y() >= spawn.Y() {
		t.Fatalf("launched tire should roll down the slope, at %v", b.Position)
	}
}

func TestNewTireRejectsBadArchetype(t *testing.T) {
	w := newTestWorld(t, false)
	cases := []Archetype{
		{Name: "flat", Radius: 0, Mass: 10},
		{Name: "weightless", Radius: 0.3, Mass: 0},
		{Name: "sticky", Radius: 0.3, Mass: 10, LinearDamping: 1},
	}
	for _, arch := range cases {
		t.Run(arch.Name, func(t *testing.T) {
			if _, err := NewTire(w, arch, mgl64.Vec3{}, nil); !errors.Is(err, physics.ErrInvalidBody) {
				t.Fatalf("expected ErrInvalidBody, got %v", err)
			}
		})
	}
	if w.BodyCount() != 0 {
		t.Fatalf("rejected tires left %d bodies", w.BodyCount())
	}
}

func TestTireLogsThroughWorldLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := physics.DefaultConfig()
	cfg.Logger = log.New(&buf, "", 0)
	w, err := physics.NewWorld(cfg, nil)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	tire, err := NewTire(w, Archetype{Name: "bike", Radius: 0.3, Mass: 4}, mgl64.Vec3{0, cfg.FloorY + 1, 0}, nil)
	if err != nil {
		t.Fatalf("NewTire: %v", err)
	}
	if err := tire.Launch(mgl64.Vec3{0, -5, 0}); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	for i := 0; i < 60 && tire.State() != Destroyed; i++ {
		w.Step(frame)
		tire.Update(frame)
	}
	if tire.State() != Destroyed {
		t.Fatalf("expected the tire to fall out, got %v", tire.State())
	}
	if !strings.Contains(buf.String(), "fell below the floor") {
		t.Fatalf("world logger did not receive the tire log: %q", buf.String())
	}
}
