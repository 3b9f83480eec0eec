package document

import (
	"sort"

	"github.com/fractree/fractree/internal/engine"
)

// presets are hand-tuned control point layouts served as starting points.
var presets = map[string]TreeDocument{
	"classic": NewDefaultDocument(),
	"fern": {
		Name:        "Fern",
		BranchWidth: 3,
		Mode:        engine.ModeSmooth,
		ShowPoints:  true,
		Points: ControlPoints{
			Base:    engine.Vec{X: 400, Y: 620},
			Trunk:   engine.Vec{X: 410, Y: 470},
			Branch1: engine.Vec{X: 360, Y: 440},
			Branch2: engine.Vec{X: 440, Y: 345},
		},
	},
	"broccoli": {
		Name:        "Broccoli",
		BranchWidth: 12,
		Mode:        engine.ModeInterlaced,
		ShowPoints:  true,
		Points: ControlPoints{
			Base:    engine.Vec{X: 400, Y: 640},
			Trunk:   engine.Vec{X: 400, Y: 480},
			Branch1: engine.Vec{X: 300, Y: 420},
			Branch2: engine.Vec{X: 500, Y: 420},
		},
	},
	"dragon": {
		Name:        "Dragon",
		BranchWidth: 2,
		Mode:        engine.ModeStraight,
		ShowPoints:  false,
		Points: ControlPoints{
			Base:    engine.Vec{X: 300, Y: 450},
			Trunk:   engine.Vec{X: 500, Y: 450},
			Branch1: engine.Vec{X: 400, Y: 350},
			Branch2: engine.Vec{X: 600, Y: 550},
		},
	},
}

// Preset returns a copy of the named preset.
func Preset(name string) (TreeDocument, bool) {
	d, ok := presets[name]
	return d, ok
}

// PresetNames lists the available presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
