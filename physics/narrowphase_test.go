package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func testBody(id uint32, shape Shape, pos mgl64.Vec3) *Body {
	return newBody(makeHandle(id, 0), BodyDef{Shape: shape, Mass: 1, Position: pos})
}

func TestCollideShapes(t *testing.T) {
	unitBox := Box(mgl64.Vec3{1, 1, 1})
	cases := []struct {
		name      string
		a, b      *Body
		wantHit   bool
		wantDepth float64
		wantN     mgl64.Vec3
	}{
		{
			name:    "spheres_apart",
			a:       testBody(1, Sphere(0.5), mgl64.Vec3{0, 0, 0}),
			b:       testBody(2, Sphere(0.5), mgl64.Vec3{2, 0, 0}),
			wantHit: false,
		},
		{
			name:      "spheres_overlap",
			a:         testBody(1, Sphere(0.5), mgl64.Vec3{0.8, 0, 0}),
			b:         testBody(2, Sphere(0.5), mgl64.Vec3{0, 0, 0}),
			wantHit:   true,
			wantDepth: 0.2,
			wantN:     mgl64.Vec3{1, 0, 0},
		},
		{
			name:      "sphere_on_box",
			a:         testBody(1, Sphere(0.5), mgl64.Vec3{0, 1.4, 0}),
			b:         testBody(2, unitBox, mgl64.Vec3{0, 0, 0}),
			wantHit:   true,
			wantDepth: 0.1,
			wantN:     mgl64.Vec3{0, 1, 0},
		},
		{
			name:      "box_under_sphere",
			a:         testBody(1, unitBox, mgl64.Vec3{0, 0, 0}),
			b:         testBody(2, Sphere(0.5), mgl64.Vec3{0, 1.4, 0}),
			wantHit:   true,
			wantDepth: 0.1,
			wantN:     mgl64.Vec3{0, -1, 0},
		},
		{
			name:      "sphere_center_inside_box",
			a:         testBody(1, Sphere(0.5), mgl64.Vec3{0, 0.9, 0}),
			b:         testBody(2, unitBox, mgl64.Vec3{0, 0, 0}),
			wantHit:   true,
			wantDepth: 0.6,
			wantN:     mgl64.Vec3{0, 1, 0},
		},
		{
			name:      "stacked_boxes",
			a:         testBody(1, unitBox, mgl64.Vec3{0, 1.9, 0}),
			b:         testBody(2, unitBox, mgl64.Vec3{0, 0, 0}),
			wantHit:   true,
			wantDepth: 0.1,
			wantN:     mgl64.Vec3{0, 1, 0},
		},
		{
			name:    "boxes_apart",
			a:       testBody(1, unitBox, mgl64.Vec3{2.5, 0, 0}),
			b:       testBody(2, unitBox, mgl64.Vec3{0, 0, 0}),
			wantHit: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := collide(c.a, c.b, nil)
			if !c.wantHit {
				if len(got) != 0 {
					t.Fatalf("expected no contact, got %d", len(got))
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected 1 contact, got %d", len(got))
			}
			ct := got[0]
			if ct.a != c.a || ct.b != c.b {
				t.Fatalf("contact bodies swapped")
			}
			if math.Abs(ct.depth-c.wantDepth) > 1e-9 {
				t.Fatalf("expected depth %v, got %v", c.wantDepth, ct.depth)
			}
			if !ct.normal.ApproxEqualThreshold(c.wantN, 1e-9) {
				t.Fatalf("expected normal %v, got %v", c.wantN, ct.normal)
			}
		})
	}
}

func TestTerrainContacts(t *testing.T) {
	ts, err := newTerrainShape(flatHeights(5), 1, -2, -2, 0, Material(1))
	if err != nil {
		t.Fatalf("newTerrainShape: %v", err)
	}

	sphere := testBody(1, Sphere(0.5), mgl64.Vec3{0, 0.4, 0})
	got := collideTerrain(ts, sphere, nil)
	if len(got) != 1 || !got[0].terrain() {
		t.Fatalf("expected one terrain contact, got %d", len(got))
	}
	if math.Abs(got[0].depth-0.1) > 1e-9 {
		t.Fatalf("expected depth 0.1, got %v", got[0].depth)
	}

	box := testBody(2, Box(mgl64.Vec3{0.5, 0.5, 0.5}), mgl64.Vec3{0, 0.45, 0})
	got = collideTerrain(ts, box, nil)
	if len(got) != 4 {
		t.Fatalf("expected 4 corner contacts, got %d", len(got))
	}
	for _, c := range got {
		if math.Abs(c.share-0.25) > 1e-12 {
			t.Fatalf("expected share 0.25, got %v", c.share)
		}
	}

	outside := testBody(3, Sphere(0.5), mgl64.Vec3{10, 0, 0})
	if got := collideTerrain(ts, outside, nil); len(got) != 0 {
		t.Fatalf("expected no contact off the lattice, got %d", len(got))
	}
}

func TestTerrainSampleFollowsTriangles(t *testing.T) {
	heights := [][]float64{
		{0, 0},
		{2, 2},
	}
	ts, err := newTerrainShape(heights, 2, 0, 0, 1, Material(1))
	if err != nil {
		t.Fatalf("newTerrainShape: %v", err)
	}
	y, n, ok := ts.Sample(1, 1)
	if !ok {
		t.Fatalf("expected sample inside the lattice")
	}
	if math.Abs(y-2) > 1e-9 {
		t.Fatalf("expected height 2, got %v", y)
	}
	want := mgl64.Vec3{-1, 1, 0}.Normalize()
	if !n.ApproxEqualThreshold(want, 1e-9) {
		t.Fatalf("expected normal %v, got %v", want, n)
	}
	if _, _, ok := ts.Sample(-0.1, 1); ok {
		t.Fatalf("expected no sample outside the lattice")
	}
}
