//go:build js && wasm

package main

import (
	"encoding/json"
	"math"
	"syscall/js"

	"github.com/fractree/fractree/internal/document"
	"github.com/fractree/fractree/internal/engine"
)

var (
	eng  *engine.Engine
	name = "Untitled"
)

func main() {
	eng = engine.NewEngine()

	// Create the engine API object
	fractreeEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	fractreeEngine.Set("loadQuery", js.FuncOf(loadQuery))
	fractreeEngine.Set("loadDocument", js.FuncOf(loadDocument))
	fractreeEngine.Set("loadPreset", js.FuncOf(loadPreset))
	fractreeEngine.Set("pointerDown", js.FuncOf(pointerDown))
	fractreeEngine.Set("pointerMove", js.FuncOf(pointerMove))
	fractreeEngine.Set("pointerUp", js.FuncOf(pointerUp))
	fractreeEngine.Set("setStyle", js.FuncOf(setStyle))
	fractreeEngine.Set("setMaxDepth", js.FuncOf(setMaxDepth))

	// Touch input follows the same drag rules as the mouse.
	fractreeEngine.Set("touchStart", js.FuncOf(pointerDown))
	fractreeEngine.Set("touchMove", js.FuncOf(pointerMove))
	fractreeEngine.Set("touchEnd", js.FuncOf(pointerUp))

	// --- Queries (frontend ← backend) ---
	fractreeEngine.Set("render", js.FuncOf(render))
	fractreeEngine.Set("hitTest", js.FuncOf(hitTest))
	fractreeEngine.Set("getQuery", js.FuncOf(getQuery))
	fractreeEngine.Set("getDocument", js.FuncOf(getDocument))
	fractreeEngine.Set("getTransforms", js.FuncOf(getTransforms))
	fractreeEngine.Set("getBounds", js.FuncOf(getBounds))
	fractreeEngine.Set("getSelected", js.FuncOf(getSelected))
	fractreeEngine.Set("listPresets", js.FuncOf(listPresets))

	// Register on global scope
	js.Global().Set("fractreeEngine", fractreeEngine)

	// Signal that WASM is ready
	js.Global().Set("fractreeWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func apply(doc document.TreeDocument) {
	doc.Normalize()
	name = doc.Name
	eng.SetPoints(doc.EnginePoints())
	eng.SetStyle(doc.Style())
}

func current() document.TreeDocument {
	return document.FromScene(name, eng.Points(), eng.Style())
}

// point reads two numeric arguments. ok is false when either is missing.
func point(args []js.Value) (x, y float64, ok bool) {
	if len(args) < 2 || args[0].Type() != js.TypeNumber || args[1].Type() != js.TypeNumber {
		return 0, 0, false
	}
	return args[0].Float(), args[1].Float(), true
}

// --- Command Handlers ---

// loadQuery applies a share query such as "x1=410&y1=390&mode=straight" on
// top of the default tree. A leading "?" is allowed.
func loadQuery(this js.Value, args []js.Value) interface{} {
	raw := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		raw = args[0].String()
	}
	if len(raw) > 0 && raw[0] == '?' {
		raw = raw[1:]
	}

	doc, err := document.ParseQuery(raw)
	if err != nil {
		return errorResult(err.Error())
	}
	apply(doc)
	return okResult()
}

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing document JSON")
	}

	doc := document.NewDefaultDocument()
	if err := json.Unmarshal([]byte(args[0].String()), &doc); err != nil {
		return errorResult(err.Error())
	}
	apply(doc)
	return okResult()
}

func loadPreset(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing preset name")
	}
	doc, ok := document.Preset(args[0].String())
	if !ok {
		return errorResult("unknown preset")
	}
	apply(doc)
	return okResult()
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	x, y, ok := point(args)
	if !ok {
		return ""
	}
	role := eng.PointerDown(x, y)
	if role == engine.RoleNone {
		return ""
	}
	return role.String()
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	x, y, ok := point(args)
	if !ok {
		return false
	}
	return eng.PointerMove(x, y)
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	x, y, ok := point(args)
	if !ok {
		// a cancelled touch still ends the drag
		x, y = math.NaN(), math.NaN()
	}
	return eng.PointerUp(x, y)
}

type styleUpdate struct {
	Mode       *engine.Mode `json:"mode"`
	Width      *float64     `json:"width"`
	ShowPoints *bool        `json:"showPoints"`
}

// setStyle merges a partial style given as JSON, e.g. {"mode":"straight"}.
func setStyle(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing style JSON")
	}

	var upd styleUpdate
	if err := json.Unmarshal([]byte(args[0].String()), &upd); err != nil {
		return errorResult(err.Error())
	}

	st := eng.Style()
	if upd.Mode != nil {
		st.Mode = *upd.Mode
	}
	if upd.Width != nil {
		if !(*upd.Width > 0) {
			return errorResult("width must be positive")
		}
		st.BranchWidth = *upd.Width
	}
	if upd.ShowPoints != nil {
		st.ShowPoints = *upd.ShowPoints
	}
	eng.SetStyle(st)
	return okResult()
}

func setMaxDepth(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeNumber {
		return nil
	}
	eng.SetMaxDepth(args[0].Int())
	return nil
}

// --- Query Handlers ---

// render returns the draw commands as JSON, or null when a pass is already
// running.
func render(this js.Value, args []js.Value) interface{} {
	result, ok := eng.RenderJSON()
	if !ok {
		return js.Null()
	}
	return result
}

func hitTest(this js.Value, args []js.Value) interface{} {
	x, y, ok := point(args)
	if !ok {
		return ""
	}
	return eng.HitTest(x, y)
}

func getQuery(this js.Value, args []js.Value) interface{} {
	return current().Encode()
}

func getDocument(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(current())
	if err != nil {
		return "{}"
	}
	return string(data)
}

func getTransforms(this js.Value, args []js.Value) interface{} {
	return eng.GetTransforms()
}

func getBounds(this js.Value, args []js.Value) interface{} {
	data, _ := json.Marshal(eng.Bounds())
	return string(data)
}

func getSelected(this js.Value, args []js.Value) interface{} {
	role := eng.Selected()
	if role == engine.RoleNone {
		return ""
	}
	return role.String()
}

func listPresets(this js.Value, args []js.Value) interface{} {
	names := document.PresetNames()
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return js.ValueOf(out)
}
