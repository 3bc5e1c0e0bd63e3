package terrain

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrResolution = errors.New("terrain: mesh resolution must be at least 2x2")

// Mesh is the render-side tessellation of a terrain. Vertices are laid out row-major
// by X then Z, matching Lattice indexing.
type Mesh struct {
	Vertices []mgl64.Vec3
	Normals  []mgl64.Vec3
	Indices  []uint32
	CountX   int
	CountZ   int
}

// BuildMesh tessellates shape over extent with countX*countZ vertices. Heights come
// from Shape.Height, the same function the physics lattice samples.
func BuildMesh(shape Shape, seed int64, extent Extent, countX, countZ int, baseY float64) (*Mesh, error) {
	if err := extent.Validate(); err != nil {
		return nil, err
	}
	if countX < 2 || countZ < 2 {
		return nil, ErrResolution
	}

	stepX := extent.Width() / float64(countX-1)
	stepZ := extent.Depth() / float64(countZ-1)
	return tessellate(shape, seed, extent.MinX, extent.MinZ, stepX, stepZ, countX, countZ, baseY), nil
}

// tessellate samples vertices at origin + i*step, the same expression BuildLattice
// uses, so coincident vertices agree bit for bit.
func tessellate(shape Shape, seed int64, originX, originZ, stepX, stepZ float64, countX, countZ int, baseY float64) *Mesh {
	m := &Mesh{
		Vertices: make([]mgl64.Vec3, 0, countX*countZ),
		Normals:  make([]mgl64.Vec3, countX*countZ),
		Indices:  make([]uint32, 0, (countX-1)*(countZ-1)*6),
		CountX:   countX,
		CountZ:   countZ,
	}
	for xi := 0; xi < countX; xi++ {
		x := originX + float64(xi)*stepX
		for zi := 0; zi < countZ; zi++ {
			z := originZ + float64(zi)*stepZ
			m.Vertices = append(m.Vertices, mgl64.Vec3{x, baseY + shape.Height(x, z, seed), z})
		}
	}

	for xi := 0; xi < countX-1; xi++ {
		for zi := 0; zi < countZ-1; zi++ {
			a := uint32(xi*countZ + zi)
			b := uint32((xi+1)*countZ + zi)
			c := uint32(xi*countZ + zi + 1)
			d := uint32((xi+1)*countZ + zi + 1)
			m.Indices = append(m.Indices, a, c, b, b, c, d)
		}
	}

	// area-weighted vertex normals
	for i := 0; i+2 < len(m.Indices); i += 3 {
		ia, ib, ic := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		n := m.Vertices[ib].Sub(m.Vertices[ia]).Cross(m.Vertices[ic].Sub(m.Vertices[ia]))
		m.Normals[ia] = m.Normals[ia].Add(n)
		m.Normals[ib] = m.Normals[ib].Add(n)
		m.Normals[ic] = m.Normals[ic].Add(n)
	}
	for i, n := range m.Normals {
		if n.Len() > 1e-12 {
			m.Normals[i] = n.Normalize()
		} else {
			m.Normals[i] = mgl64.Vec3{0, 1, 0}
		}
	}
	return m
}

// BuildMeshForLattice tessellates at the lattice's own spacing, so every mesh vertex
// coincides with a lattice vertex.
func BuildMeshForLattice(shape Shape, seed int64, l *Lattice) (*Mesh, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	nx, nz := l.Size()
	return tessellate(shape, seed, l.OriginX, l.OriginZ, l.ElementSize, l.ElementSize, nx, nz, l.BaseY), nil
}

// Vertex returns the vertex at grid position (xi, zi).
func (m *Mesh) Vertex(xi, zi int) mgl64.Vec3 {
	return m.Vertices[xi*m.CountZ+zi]
}

// Row returns the profile line closest to world depth z, ordered by X.
func (m *Mesh) Row(z float64) []mgl64.Vec3 {
	if m == nil || len(m.Vertices) == 0 {
		return nil
	}
	minZ := m.Vertices[0].Z()
	maxZ := m.Vertices[m.CountZ-1].Z()
	zi := 0
	if maxZ > minZ {
		zi = int(math.Round((z - minZ) / (maxZ - minZ) * float64(m.CountZ-1)))
	}
	if zi < 0 {
		zi = 0
	}
	if zi >= m.CountZ {
		zi = m.CountZ - 1
	}
	out := make([]mgl64.Vec3, m.CountX)
	for xi := range out {
		out[xi] = m.Vertex(xi, zi)
	}
	return out
}
