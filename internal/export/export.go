// Package export renders trees to JSON draw commands, SVG and PNG.
package export

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"

	"github.com/fractree/fractree/internal/document"
	"github.com/fractree/fractree/internal/engine"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatSVG, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	default:
		return "application/json"
	}
}

// Options controls the output viewport.
type Options struct {
	Width      int
	Height     int
	Margin     float64
	Background color.RGBA
	Stroke     color.RGBA
	Handle     color.RGBA
}

// DefaultOptions returns an 800x800 viewport with black strokes on white.
func DefaultOptions() Options {
	return Options{
		Width:      800,
		Height:     800,
		Margin:     16,
		Background: color.RGBA{0xff, 0xff, 0xff, 0xff},
		Stroke:     color.RGBA{0, 0, 0, 0xff},
		Handle:     color.RGBA{0, 0, 0, 0xff},
	}
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", o.Width, o.Height)
	}
	return nil
}

// Scene is everything needed to draw one tree.
type Scene struct {
	Name     string
	Points   engine.Points
	Style    engine.Style
	MaxDepth int

	// Observer, when set, is told about the render pass.
	Observer engine.Observer
}

// SceneFromDocument builds a Scene from a saved or shared document.
func SceneFromDocument(doc document.TreeDocument, maxDepth int) Scene {
	return Scene{
		Name:     doc.Name,
		Points:   doc.EnginePoints(),
		Style:    doc.Style(),
		MaxDepth: engine.ClampDepth(maxDepth),
	}
}

// Layout generates the tree and the matrix fitting it into the viewport.
func (sc Scene) Layout(opts Options) ([]engine.Node, engine.Matrix2D) {
	e := engine.NewEngine(
		engine.WithPoints(sc.Points),
		engine.WithStyle(sc.Style),
		engine.WithMaxDepth(sc.MaxDepth),
		engine.WithObserver(sc.Observer),
	)
	nodes, _ := e.Render(nil)
	bounds := engine.SceneBounds(sc.Points, sc.Style, nodes)
	return nodes, engine.FitRect(bounds, float64(opts.Width), float64(opts.Height), opts.Margin)
}

// Drawing is the JSON export: draw commands in tree coordinates plus the
// matrix that maps them onto the viewport.
type Drawing struct {
	Width     int                  `json:"width"`
	Height    int                  `json:"height"`
	Transform []float64            `json:"transform"`
	Segments  int                  `json:"segments"`
	Commands  []engine.DrawCommand `json:"commands"`
}

// BuildDrawing renders sc into a Drawing.
func BuildDrawing(sc Scene, opts Options) Drawing {
	nodes, m := sc.Layout(opts)
	buf := engine.NewCommandBuffer()
	engine.Paint(buf, sc.Points, sc.Style, nodes)

	cmds := buf.Commands()
	if cmds == nil {
		cmds = []engine.DrawCommand{}
	}
	return Drawing{
		Width:     opts.Width,
		Height:    opts.Height,
		Transform: m.ToSlice(),
		Segments:  len(nodes),
		Commands:  cmds,
	}
}

// WriteJSON encodes the Drawing for sc.
func WriteJSON(w io.Writer, sc Scene, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(BuildDrawing(sc, opts))
}

// Write encodes sc in the given format.
func Write(w io.Writer, f Format, sc Scene, opts Options) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, sc, opts)
	case FormatSVG:
		return WriteSVG(w, sc, opts)
	case FormatPNG:
		return WritePNG(w, sc, opts)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// transformed maps every call through m before passing it on. Widths and
// radii are scaled by the matrix's uniform scale.
type transformed struct {
	m     engine.Matrix2D
	scale float64
	s     engine.Surface
}

func newTransformed(m engine.Matrix2D, s engine.Surface) *transformed {
	return &transformed{m: m, scale: m.UniformScale(), s: s}
}

func (t *transformed) BeginStroke(x, y, width float64) {
	x, y = t.m.TransformPoint(x, y)
	t.s.BeginStroke(x, y, width*t.scale)
}

func (t *transformed) LineTo(x, y float64) {
	x, y = t.m.TransformPoint(x, y)
	t.s.LineTo(x, y)
}

func (t *transformed) QuadraticCurveTo(cx, cy, x, y float64) {
	cx, cy = t.m.TransformPoint(cx, cy)
	x, y = t.m.TransformPoint(x, y)
	t.s.QuadraticCurveTo(cx, cy, x, y)
}

func (t *transformed) EndStroke() { t.s.EndStroke() }

func (t *transformed) FillCircle(x, y, r float64) {
	x, y = t.m.TransformPoint(x, y)
	t.s.FillCircle(x, y, r*t.scale)
}
