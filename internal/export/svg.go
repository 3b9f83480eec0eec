package export

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/fractree/fractree/internal/engine"
)

// svgSurface writes each stroke as one <path> element.
type svgSurface struct {
	canvas *svg.SVG
	handle string
	d      strings.Builder
	width  float64
	open   bool
}

func (s *svgSurface) BeginStroke(x, y, width float64) {
	s.EndStroke()
	s.d.Reset()
	s.width = width
	s.open = true
	fmt.Fprintf(&s.d, "M%s %s", num(x), num(y))
}

func (s *svgSurface) LineTo(x, y float64) {
	if !s.open {
		return
	}
	fmt.Fprintf(&s.d, " L%s %s", num(x), num(y))
}

func (s *svgSurface) QuadraticCurveTo(cx, cy, x, y float64) {
	if !s.open {
		return
	}
	fmt.Fprintf(&s.d, " Q%s %s %s %s", num(cx), num(cy), num(x), num(y))
}

func (s *svgSurface) EndStroke() {
	if !s.open {
		return
	}
	s.open = false
	s.canvas.Path(s.d.String(), "stroke-width:"+num(s.width))
}

// FillCircle draws the circle as two arcs so the radius keeps its fraction.
func (s *svgSurface) FillCircle(x, y, r float64) {
	s.EndStroke()
	d := fmt.Sprintf("M%s %s a%s %s 0 1 0 %s 0 a%s %s 0 1 0 %s 0",
		num(x-r), num(y), num(r), num(r), num(2*r), num(r), num(r), num(-2*r))
	s.canvas.Path(d, "stroke:none;fill:"+s.handle)
}

// WriteSVG renders sc as an SVG document. Geometry stays in tree
// coordinates under a single transform group.
func WriteSVG(w io.Writer, sc Scene, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	nodes, m := sc.Layout(opts)

	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(opts.Width, opts.Height)
	if sc.Name != "" {
		canvas.Title(sc.Name)
	}
	canvas.Rect(0, 0, opts.Width, opts.Height, "fill:"+rgb(opts.Background))
	canvas.Gtransform(fmt.Sprintf("matrix(%s %s %s %s %s %s)",
		num(m[0]), num(m[1]), num(m[2]), num(m[3]), num(m[4]), num(m[5])))
	canvas.Gstyle("fill:none;stroke:" + rgb(opts.Stroke) + ";stroke-linecap:round;stroke-linejoin:round")

	s := &svgSurface{canvas: canvas, handle: rgb(opts.Handle)}
	engine.Paint(s, sc.Points, sc.Style, nodes)
	s.EndStroke()

	canvas.Gend()
	canvas.Gend()
	canvas.End()
	return ew.err
}

// errWriter keeps the first write error, since svgo drops them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func rgb(c color.RGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%.3f)", c.R, c.G, c.B, float64(c.A)/0xff)
}
