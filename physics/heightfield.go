package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/hillroll/common"
)

var ErrInvalidTerrain = errors.New("physics: invalid terrain lattice")

// TerrainShape is the static heightfield collider. Each lattice cell is split into two
// triangles along the (xi+1, zi)-(xi, zi+1) diagonal, the same split the render mesh
// uses.
type TerrainShape struct {
	heights     [][]float64
	elementSize float64
	originX     float64
	originZ     float64
	baseY       float64
	maxY        float64
	material    Material
	footprint   cp.BB // X -> L/R, Z -> B/T
}

func newTerrainShape(heights [][]float64, elementSize, originX, originZ, baseY float64, material Material) (*TerrainShape, error) {
	if len(heights) < 2 || len(heights[0]) < 2 {
		return nil, fmt.Errorf("%w: need at least 2x2 samples", ErrInvalidTerrain)
	}
	if elementSize <= 0 || !common.Finite(elementSize) {
		return nil, fmt.Errorf("%w: element size %v", ErrInvalidTerrain, elementSize)
	}
	if !common.Finite(originX) || !common.Finite(originZ) || !common.Finite(baseY) {
		return nil, fmt.Errorf("%w: non-finite origin", ErrInvalidTerrain)
	}
	cols := len(heights[0])
	copied := make([][]float64, len(heights))
	maxH := math.Inf(-1)
	for xi, row := range heights {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d samples, want %d", ErrInvalidTerrain, xi, len(row), cols)
		}
		for zi, h := range row {
			if !common.Finite(h) {
				return nil, fmt.Errorf("%w: sample (%d,%d) is %v", ErrInvalidTerrain, xi, zi, h)
			}
			maxH = math.Max(maxH, h)
		}
		copied[xi] = append([]float64(nil), row...)
	}

	maxX := originX + float64(len(heights)-1)*elementSize
	maxZ := originZ + float64(cols-1)*elementSize
	return &TerrainShape{
		heights:     copied,
		elementSize: elementSize,
		originX:     originX,
		originZ:     originZ,
		baseY:       baseY,
		maxY:        baseY + maxH,
		material:    material,
		footprint:   cp.BB{L: originX, B: originZ, R: maxX, T: maxZ},
	}, nil
}

func (t *TerrainShape) Material() Material     { return t.material }
func (t *TerrainShape) ElementSize() float64   { return t.elementSize }
func (t *TerrainShape) Origin() (x, z float64) { return t.originX, t.originZ }
func (t *TerrainShape) BaseY() float64         { return t.baseY }
func (t *TerrainShape) MaxY() float64          { return t.maxY }

// Size returns the sample count along X and Z.
func (t *TerrainShape) Size() (int, int) {
	return len(t.heights), len(t.heights[0])
}

// Covers reports whether (x, z) is over the lattice.
func (t *TerrainShape) Covers(x, z float64) bool {
	return x >= t.footprint.L && x <= t.footprint.R && z >= t.footprint.B && z <= t.footprint.T
}

// Sample returns the world surface height and normal under (x, z), interpolated on
// the lattice triangles. ok is false outside the lattice.
func (t *TerrainShape) Sample(x, z float64) (y float64, normal mgl64.Vec3, ok bool) {
	if t == nil || !t.Covers(x, z) {
		return 0, mgl64.Vec3{}, false
	}
	nx, nz := t.Size()
	gx := (x - t.originX) / t.elementSize
	gz := (z - t.originZ) / t.elementSize
	xi := int(math.Floor(gx))
	zi := int(math.Floor(gz))
	if xi >= nx-1 {
		xi = nx - 2
	}
	if zi >= nz-1 {
		zi = nz - 2
	}
	if xi < 0 {
		xi = 0
	}
	if zi < 0 {
		zi = 0
	}
	fx := gx - float64(xi)
	fz := gz - float64(zi)

	ha := t.heights[xi][zi]
	hb := t.heights[xi+1][zi]
	hc := t.heights[xi][zi+1]
	hd := t.heights[xi+1][zi+1]

	var h, dhdx, dhdz float64
	if fx+fz <= 1 {
		dhdx = hb - ha
		dhdz = hc - ha
		h = ha + dhdx*fx + dhdz*fz
	} else {
		dhdx = hd - hc
		dhdz = hd - hb
		h = hd - dhdx*(1-fx) - dhdz*(1-fz)
	}
	n := mgl64.Vec3{-dhdx / t.elementSize, 1, -dhdz / t.elementSize}.Normalize()
	return t.baseY + h, n, true
}
