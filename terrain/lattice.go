package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/milk9111/hillroll/common"
)

var (
	ErrEmptyLattice  = errors.New("terrain: lattice is empty")
	ErrRaggedLattice = errors.New("terrain: lattice rows have mismatched dimensions")
	ErrElementSize   = errors.New("terrain: element size must be positive and finite")
	ErrExtent        = errors.New("terrain: extent is empty or not finite")
)

// Extent is the world-space rectangle covered by a terrain, on the XZ plane.
type Extent struct {
	MinX float64 `json:"min_x" yaml:"min_x"`
	MaxX float64 `json:"max_x" yaml:"max_x"`
	MinZ float64 `json:"min_z" yaml:"min_z"`
	MaxZ float64 `json:"max_z" yaml:"max_z"`
}

func (e Extent) Validate() error {
	for _, v := range []float64{e.MinX, e.MaxX, e.MinZ, e.MaxZ} {
		if !common.Finite(v) {
			return ErrExtent
		}
	}
	if e.MaxX <= e.MinX || e.MaxZ <= e.MinZ {
		return ErrExtent
	}
	return nil
}

func (e Extent) Width() float64 { return e.MaxX - e.MinX }
func (e Extent) Depth() float64 { return e.MaxZ - e.MinZ }

// Lattice is a regular grid of height samples. Heights[xi][zi] is the elevation above
// BaseY of the vertex at (OriginX + xi*ElementSize, OriginZ + zi*ElementSize).
type Lattice struct {
	Heights     [][]float64
	ElementSize float64
	OriginX     float64
	OriginZ     float64
	BaseY       float64
}

// Validate rejects lattices the physics world cannot use.
func (l *Lattice) Validate() error {
	if l == nil || len(l.Heights) == 0 || len(l.Heights[0]) == 0 {
		return ErrEmptyLattice
	}
	if l.ElementSize <= 0 || !common.Finite(l.ElementSize) {
		return ErrElementSize
	}
	cols := len(l.Heights[0])
	if len(l.Heights) < 2 || cols < 2 {
		return fmt.Errorf("%w: need at least 2x2 samples, got %dx%d", ErrRaggedLattice, len(l.Heights), cols)
	}
	for xi, row := range l.Heights {
		if len(row) != cols {
			return fmt.Errorf("%w: row %d has %d samples, want %d", ErrRaggedLattice, xi, len(row), cols)
		}
	}
	return nil
}

// Size returns the sample count along X and Z.
func (l *Lattice) Size() (int, int) {
	if l == nil || len(l.Heights) == 0 {
		return 0, 0
	}
	return len(l.Heights), len(l.Heights[0])
}

// Vertex returns the world position of lattice sample (xi, zi).
func (l *Lattice) Vertex(xi, zi int) (x, y, z float64) {
	return l.OriginX + float64(xi)*l.ElementSize,
		l.BaseY + l.Heights[xi][zi],
		l.OriginZ + float64(zi)*l.ElementSize
}

// BuildLattice samples shape over extent at elementSize spacing. The origin is the
// extent's min corner; the far edge is rounded up so the lattice covers the extent.
func BuildLattice(shape Shape, seed int64, extent Extent, elementSize, baseY float64) (*Lattice, error) {
	if err := extent.Validate(); err != nil {
		return nil, err
	}
	if elementSize <= 0 || !common.Finite(elementSize) {
		return nil, ErrElementSize
	}

	nx := int(math.Ceil(extent.Width()/elementSize)) + 1
	nz := int(math.Ceil(extent.Depth()/elementSize)) + 1
	heights := make([][]float64, nx)
	for xi := range heights {
		row := make([]float64, nz)
		x := extent.MinX + float64(xi)*elementSize
		for zi := range row {
			z := extent.MinZ + float64(zi)*elementSize
			row[zi] = shape.Height(x, z, seed)
		}
		heights[xi] = row
	}

	l := &Lattice{
		Heights:     heights,
		ElementSize: elementSize,
		OriginX:     extent.MinX,
		OriginZ:     extent.MinZ,
		BaseY:       baseY,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}
