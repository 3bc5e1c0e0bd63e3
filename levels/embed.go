package levels

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/milk9111/hillroll/terrain"
)

//go:embed *.json
var LevelsFS embed.FS

var ErrInvalidLevel = errors.New("levels: invalid level")

// Level describes one hill: the terrain to generate, where the tire starts and
// what stands in its way.
type Level struct {
	Name           string         `json:"name"`
	Seed           int64          `json:"seed"`
	Extent         terrain.Extent `json:"extent"`
	ElementSize    float64        `json:"element_size"`
	MeshResolution int            `json:"mesh_resolution"`
	BaseY          float64        `json:"base_y"`
	Shape          *terrain.Shape `json:"shape,omitempty"`

	Tire      TireSpawn   `json:"tire"`
	Obstacles []Placement `json:"obstacles,omitempty"`

	Script       string         `json:"script,omitempty"`
	ScriptParams map[string]any `json:"script_params,omitempty"`
}

type TireSpawn struct {
	Archetype string     `json:"archetype"`
	X         float64    `json:"x"`
	Z         float64    `json:"z"`
	Launch    [3]float64 `json:"launch"`
}

// Placement puts one obstacle archetype on the surface at (X, Z).
type Placement struct {
	Archetype string  `json:"archetype"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
}

// TerrainShape returns the level's shape, or the default one.
func (l *Level) TerrainShape() terrain.Shape {
	if l.Shape != nil {
		return *l.Shape
	}
	return terrain.DefaultShape()
}

// MeshCounts returns the render mesh vertex counts along X and Z. The resolution is
// the count along X; Z keeps the same spacing.
func (l *Level) MeshCounts() (int, int) {
	nx := l.MeshResolution
	if nx < 2 {
		nx = 2
	}
	step := l.Extent.Width() / float64(nx-1)
	nz := 2
	if step > 0 {
		nz = max(2, int(l.Extent.Depth()/step)+1)
	}
	return nx, nz
}

func (l *Level) Validate() error {
	if err := l.Extent.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidLevel, l.Name, err)
	}
	if l.ElementSize <= 0 {
		return fmt.Errorf("%w: %s: element size %v", ErrInvalidLevel, l.Name, l.ElementSize)
	}
	if l.Tire.X < l.Extent.MinX || l.Tire.X > l.Extent.MaxX || l.Tire.Z < l.Extent.MinZ || l.Tire.Z > l.Extent.MaxZ {
		return fmt.Errorf("%w: %s: tire spawn outside the terrain", ErrInvalidLevel, l.Name)
	}
	return nil
}

func LoadLevelFromFS(name string) (*Level, error) {
	data, err := fs.ReadFile(LevelsFS, name)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	return decodeLevel(name, data)
}

// LoadFile reads a level from disk, for editing levels without rebuilding.
func LoadFile(filePath string) (*Level, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	return decodeLevel(filepath.Base(filePath), data)
}

func decodeLevel(name string, data []byte) (*Level, error) {
	var lvl Level
	if err := json.Unmarshal(data, &lvl); err != nil {
		return nil, fmt.Errorf("unmarshal level: %w", err)
	}
	if lvl.Name == "" {
		lvl.Name = strings.TrimSuffix(path.Base(name), ".json")
	}
	if err := lvl.Validate(); err != nil {
		return nil, err
	}
	return &lvl, nil
}

// Load reads an embedded level by name, with or without the .json suffix.
func Load(name string) (*Level, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return LoadLevelFromFS(name)
}

// Names lists the embedded levels in sorted order.
func Names() []string {
	entries, err := fs.ReadDir(LevelsFS, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if n, ok := strings.CutSuffix(e.Name(), ".json"); ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}
