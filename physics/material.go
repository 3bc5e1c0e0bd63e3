package physics

import (
	"errors"
	"fmt"
)

var (
	ErrTableSealed     = errors.New("physics: material table is sealed")
	ErrUnknownMaterial = errors.New("physics: material was not issued by this table")
)

// Material is a handle issued by a MaterialTable. Two materials are the same only if
// they are the same handle; names are labels for logs and tooling.
type Material uint32

// NoMaterial is the zero handle; it is never issued.
const NoMaterial Material = 0

// ContactMaterial holds the coefficients used when two materials touch.
type ContactMaterial struct {
	Friction    float32
	Restitution float32
}

// DefaultContact is used for every pair without a registered entry.
var DefaultContact = ContactMaterial{Friction: 0.3, Restitution: 0.3}

// MaterialProps describes one material.
type MaterialProps struct {
	Name        string
	Friction    float32
	Restitution float32
}

type materialPair struct {
	lo, hi Material
}

func makePair(a, b Material) materialPair {
	if a > b {
		a, b = b, a
	}
	return materialPair{lo: a, hi: b}
}

// MaterialTable issues materials and maps unordered material pairs to contact
// coefficients. It becomes read-only once sealed, which NewWorld does.
type MaterialTable struct {
	props    []MaterialProps // index = handle-1
	pairs    map[materialPair]ContactMaterial
	ground   Material
	fallback Material
	sealed   bool
}

// NewMaterialTable returns a table holding the shared ground material and the default
// material, with the default/default pair registered.
func NewMaterialTable() *MaterialTable {
	t := &MaterialTable{pairs: make(map[materialPair]ContactMaterial)}
	t.ground = t.NewMaterial("ground", 0.6, 0.3)
	t.fallback = t.NewMaterial("default", DefaultContact.Friction, DefaultContact.Restitution)
	t.pairs[makePair(t.fallback, t.fallback)] = DefaultContact
	return t
}

// NewMaterial issues a fresh handle. Calling it twice with the same name yields two
// distinct materials.
func (t *MaterialTable) NewMaterial(name string, friction, restitution float32) Material {
	if t == nil {
		return NoMaterial
	}
	t.props = append(t.props, MaterialProps{Name: name, Friction: friction, Restitution: restitution})
	return Material(len(t.props))
}

// Ground is the single material shared by every static terrain collider.
func (t *MaterialTable) Ground() Material {
	if t == nil {
		return NoMaterial
	}
	return t.ground
}

// Default is the material for bodies that have no tuned material of their own.
func (t *MaterialTable) Default() Material {
	if t == nil {
		return NoMaterial
	}
	return t.fallback
}

// Has reports whether m was issued by this table.
func (t *MaterialTable) Has(m Material) bool {
	return t != nil && m != NoMaterial && int(m) <= len(t.props)
}

// Register sets the coefficients for the unordered pair (a, b).
func (t *MaterialTable) Register(a, b Material, friction, restitution float32) error {
	if t == nil {
		return ErrUnknownMaterial
	}
	if t.sealed {
		return ErrTableSealed
	}
	if !t.Has(a) || !t.Has(b) {
		return fmt.Errorf("%w: (%d, %d)", ErrUnknownMaterial, a, b)
	}
	t.pairs[makePair(a, b)] = ContactMaterial{Friction: friction, Restitution: restitution}
	return nil
}

// Lookup returns the coefficients for (a, b), matching (b, a) equally. Pairs without an
// entry resolve to DefaultContact.
func (t *MaterialTable) Lookup(a, b Material) ContactMaterial {
	cm, _ := t.LookupExact(a, b)
	return cm
}

// LookupExact is Lookup that also reports whether the pair was registered.
func (t *MaterialTable) LookupExact(a, b Material) (ContactMaterial, bool) {
	if t == nil {
		return DefaultContact, false
	}
	if cm, ok := t.pairs[makePair(a, b)]; ok {
		return cm, true
	}
	return DefaultContact, false
}

// Props returns the properties m was created with.
func (t *MaterialTable) Props(m Material) (MaterialProps, bool) {
	if !t.Has(m) {
		return MaterialProps{}, false
	}
	return t.props[m-1], true
}

// Name returns m's label, or "" for unknown handles.
func (t *MaterialTable) Name(m Material) string {
	p, _ := t.Props(m)
	return p.Name
}

// Len returns the number of registered pairs.
func (t *MaterialTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.pairs)
}

// Seal makes the table read-only.
func (t *MaterialTable) Seal() {
	if t != nil {
		t.sealed = true
	}
}

func (t *MaterialTable) Sealed() bool {
	return t != nil && t.sealed
}
