package levels

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/hillroll/prefabs"
)

// Placements returns the static obstacles followed by those produced by the layout
// script, if the level names one. The script sees the level's seed, extent and
// script_params, can call surface(x, z), and must leave its result in the global
// `placements` as an array of {archetype, x, z} maps.
func (l *Level) Placements() ([]Placement, error) {
	out := append([]Placement(nil), l.Obstacles...)
	if strings.TrimSpace(l.Script) == "" {
		return out, nil
	}
	scripted, err := l.runLayoutScript()
	if err != nil {
		return nil, fmt.Errorf("levels: %s: layout script %s: %w", l.Name, l.Script, err)
	}
	return append(out, scripted...), nil
}

func (l *Level) runLayoutScript() ([]Placement, error) {
	src, err := prefabs.LoadScript(l.Script)
	if err != nil {
		return nil, err
	}

	shape := l.TerrainShape()
	params := make(map[string]any, len(l.ScriptParams))
	for k, v := range l.ScriptParams {
		params[k] = v
	}

	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	globals := map[string]any{
		"seed":   l.Seed,
		"min_x":  l.Extent.MinX,
		"max_x":  l.Extent.MaxX,
		"min_z":  l.Extent.MinZ,
		"max_z":  l.Extent.MaxZ,
		"params": params,
	}
	for name, v := range globals {
		if err := script.Add(name, v); err != nil {
			return nil, err
		}
	}
	surface := &tengo.UserFunction{Name: "surface", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		x, ok := tengo.ToFloat64(args[0])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "x", Expected: "float", Found: args[0].TypeName()}
		}
		z, ok := tengo.ToFloat64(args[1])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "z", Expected: "float", Found: args[1].TypeName()}
		}
		return &tengo.Float{Value: l.BaseY + shape.Height(x, z, l.Seed)}, nil
	}}
	if err := script.Add("surface", surface); err != nil {
		return nil, err
	}

	compiled, err := script.Run()
	if err != nil {
		return nil, err
	}
	if !compiled.IsDefined("placements") {
		return nil, fmt.Errorf("script does not define placements")
	}
	raw := compiled.Get("placements").Array()
	out := make([]Placement, 0, len(raw))
	for i, item := range raw {
		p, err := placementFromScript(item)
		if err != nil {
			return nil, fmt.Errorf("placement %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func placementFromScript(item any) (Placement, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return Placement{}, fmt.Errorf("expected a map, got %T", item)
	}
	name, _ := m["archetype"].(string)
	if strings.TrimSpace(name) == "" {
		return Placement{}, fmt.Errorf("missing archetype")
	}
	x, ok := scriptNumber(m["x"])
	if !ok {
		return Placement{}, fmt.Errorf("x is %T", m["x"])
	}
	z, ok := scriptNumber(m["z"])
	if !ok {
		return Placement{}, fmt.Errorf("z is %T", m["z"])
	}
	return Placement{Archetype: name, X: x, Z: z}, nil
}

func scriptNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case nil:
		return 0, true
	}
	return 0, false
}
