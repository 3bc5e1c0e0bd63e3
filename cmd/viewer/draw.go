package main

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/hillroll/physics"
	"golang.org/x/image/colornames"
)

const (
	lineWidth      = 2
	contactDotSize = 6
)

// sideDrawer projects world XY onto the screen: X to the right, Y up, centered on
// the camera.
type sideDrawer struct {
	screen *ebiten.Image
	camX   float64
	camY   float64
	zoom   float64
	width  float64
	height float64
}

func (d *sideDrawer) toScreen(v cp.Vector) (float32, float32) {
	return float32((v.X-d.camX)*d.zoom + d.width/2), float32(d.height/2 - (v.Y-d.camY)*d.zoom)
}

func (d *sideDrawer) drawLine(a, b cp.Vector, clr color.Color) {
	x1, y1 := d.toScreen(a)
	x2, y2 := d.toScreen(b)
	vector.StrokeLine(d.screen, x1, y1, x2, y2, lineWidth, clr, true)
}

func (d *sideDrawer) drawPolygon(verts []cp.Vector, clr color.Color) {
	for i := range verts {
		d.drawLine(verts[i], verts[(i+1)%len(verts)], clr)
	}
}

func (d *sideDrawer) drawPolyline(verts []cp.Vector, clr color.Color) {
	for i := 1; i < len(verts); i++ {
		d.drawLine(verts[i-1], verts[i], clr)
	}
}

func (d *sideDrawer) drawCircle(center cp.Vector, radius float64, clr color.Color) {
	if radius <= 0 {
		return
	}
	x, y := d.toScreen(center)
	vector.StrokeCircle(d.screen, x, y, float32(radius*d.zoom), lineWidth, clr, true)
}

func (d *sideDrawer) drawDot(pos cp.Vector, clr color.Color) {
	half := contactDotSize / 2 / d.zoom
	d.drawLine(cp.Vector{X: pos.X - half, Y: pos.Y}, cp.Vector{X: pos.X + half, Y: pos.Y}, clr)
	d.drawLine(cp.Vector{X: pos.X, Y: pos.Y - half}, cp.Vector{X: pos.X, Y: pos.Y + half}, clr)
}

// drawBody draws a body's side silhouette. Spheres get a spoke so spin is visible.
func (d *sideDrawer) drawBody(b *physics.Body, clr color.Color) {
	shape := b.Shape()
	center := project(b.Position)
	switch shape.Kind {
	case physics.ShapeSphere:
		d.drawCircle(center, shape.Radius, clr)
		spoke := b.Orientation.Rotate(mgl64.Vec3{shape.Radius, 0, 0})
		d.drawLine(center, center.Add(project(spoke)), clr)
	case physics.ShapeBox:
		ax := project(b.Orientation.Rotate(mgl64.Vec3{shape.HalfExtents.X(), 0, 0}))
		ay := project(b.Orientation.Rotate(mgl64.Vec3{0, shape.HalfExtents.Y(), 0}))
		d.drawPolygon([]cp.Vector{
			center.Add(ax).Add(ay),
			center.Sub(ax).Add(ay),
			center.Sub(ax).Sub(ay),
			center.Add(ax).Sub(ay),
		}, clr)
	}
}

func project(v mgl64.Vec3) cp.Vector {
	return cp.Vector{X: v.X(), Y: v.Y()}
}

func bodyColor(b *physics.Body, tire physics.BodyHandle) color.Color {
	switch {
	case b.Handle() == tire:
		return colornames.Black
	case b.IsSleeping():
		return colornames.Slategray
	default:
		return colornames.Saddlebrown
	}
}

// fadeColor dims clr by the age of an effect, fully transparent at life seconds.
func fadeColor(clr color.RGBA, age, life float64) color.RGBA {
	a := 1 - math.Min(math.Max(age/life, 0), 1)
	return color.RGBA{
		R: uint8(float64(clr.R) * a),
		G: uint8(float64(clr.G) * a),
		B: uint8(float64(clr.B) * a),
		A: uint8(float64(clr.A) * a),
	}
}
