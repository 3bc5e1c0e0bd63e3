package prefabs

import "github.com/milk9111/hillroll/physics"

// Bundle is everything the game needs from the prefab files.
type Bundle struct {
	Config        physics.Config
	Tires         TireSetSpec
	Destructibles DestructibleSetSpec
}

func LoadBundle() (Bundle, error) {
	cfg, err := LoadWorldConfig()
	if err != nil {
		return Bundle{}, err
	}
	tires, err := LoadTireSpecs()
	if err != nil {
		return Bundle{}, err
	}
	obstacles, err := LoadDestructibleSpecs()
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{Config: cfg, Tires: tires, Destructibles: obstacles}, nil
}

// Materials builds the material table and archetype catalog for the bundle.
func (b Bundle) Materials() (*physics.MaterialTable, Catalog, error) {
	return BuildMaterials(b.Tires, b.Destructibles)
}
