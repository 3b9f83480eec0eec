package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"github.com/fractree/fractree/internal/engine"
)

// flatness is the maximum distance in pixels between a curve and the line
// segments that replace it.
const flatness = 0.25

const maxRasterCoord = 1 << 24

// rasterSurface fills stroke outlines with a vector.Rasterizer. Strokes are
// widened into quads with round caps and joins. Coverage of one color is
// accumulated and composited in a single pass.
type rasterSurface struct {
	img      *image.RGBA
	ras      *vector.Rasterizer
	stroke   color.RGBA
	handle   color.RGBA
	painting *color.RGBA

	pen   engine.Vec
	width float64
	open  bool
}

func newRasterSurface(img *image.RGBA, stroke, handle color.RGBA) *rasterSurface {
	b := img.Bounds()
	return &rasterSurface{
		img:    img,
		ras:    vector.NewRasterizer(b.Dx(), b.Dy()),
		stroke: stroke,
		handle: handle,
	}
}

func (r *rasterSurface) use(c color.RGBA) {
	if r.painting != nil && *r.painting != c {
		r.flush()
	}
	r.painting = &c
}

// flush composites the pending coverage onto the image.
func (r *rasterSurface) flush() {
	if r.painting == nil {
		return
	}
	b := r.img.Bounds()
	r.ras.Draw(r.img, b, image.NewUniform(*r.painting), image.Point{})
	r.ras.Reset(b.Dx(), b.Dy())
	r.painting = nil
}

func (r *rasterSurface) BeginStroke(x, y, width float64) {
	r.EndStroke()
	if !(width > 0) {
		return
	}
	r.use(r.stroke)
	r.pen = engine.Vec{X: x, Y: y}
	r.width = width
	r.open = true
	r.disc(r.pen, width/2)
}

func (r *rasterSurface) LineTo(x, y float64) {
	if !r.open {
		return
	}
	to := engine.Vec{X: x, Y: y}
	r.quad(r.pen, to)
	r.disc(to, r.width/2)
	r.pen = to
}

func (r *rasterSurface) QuadraticCurveTo(cx, cy, x, y float64) {
	if !r.open {
		return
	}
	p0, c, p2 := r.pen, engine.Vec{X: cx, Y: cy}, engine.Vec{X: x, Y: y}

	// The deviation of a quadratic from its chord is bounded by
	// |p0 - 2c + p2| / 8n² for n equal steps.
	dd := math.Hypot(p0.X-2*c.X+p2.X, p0.Y-2*c.Y+p2.Y)
	n := int(math.Ceil(math.Sqrt(dd / (8 * flatness))))
	n = max(1, min(n, 64))

	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		u := 1 - t
		to := engine.Vec{
			X: u*u*p0.X + 2*u*t*c.X + t*t*p2.X,
			Y: u*u*p0.Y + 2*u*t*c.Y + t*t*p2.Y,
		}
		r.quad(r.pen, to)
		r.disc(to, r.width/2)
		r.pen = to
	}
}

func (r *rasterSurface) EndStroke() {
	r.open = false
}

func (r *rasterSurface) FillCircle(x, y, radius float64) {
	r.EndStroke()
	if !(radius > 0) {
		return
	}
	r.use(r.handle)
	r.disc(engine.Vec{X: x, Y: y}, radius)
}

// quad adds the rectangle covering the segment a-b at the current width.
func (r *rasterSurface) quad(a, b engine.Vec) {
	d := b.Sub(a)
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return
	}
	n := engine.Vec{X: -d.Y / l, Y: d.X / l}.Scale(r.width / 2)
	r.polygon([]engine.Vec{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)})
}

// disc adds a regular polygon approximating a circle.
func (r *rasterSurface) disc(c engine.Vec, radius float64) {
	sides := int(math.Ceil(2 * math.Pi * radius / 2))
	sides = max(8, min(sides, 64))
	pts := make([]engine.Vec, sides)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(sides)
		pts[i] = engine.Vec{X: c.X + radius*math.Cos(a), Y: c.Y + radius*math.Sin(a)}
	}
	r.polygon(pts)
}

// polygon adds a closed outline. Every outline is wound the same way so
// overlapping pieces of one color add up instead of cancelling.
func (r *rasterSurface) polygon(pts []engine.Vec) {
	var area float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		area += p.X*q.Y - q.X*p.Y
	}
	if area < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	// The rasterizer works in float32 and converts rows to int; outlines far
	// outside any canvas are dropped.
	for _, p := range pts {
		if !(math.Abs(p.X) <= maxRasterCoord && math.Abs(p.Y) <= maxRasterCoord) {
			return
		}
	}

	r.ras.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		r.ras.LineTo(float32(p.X), float32(p.Y))
	}
	r.ras.ClosePath()
}

// RenderImage rasterizes sc into a new image.
func RenderImage(sc Scene, opts Options) (*image.RGBA, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	nodes, m := sc.Layout(opts)

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	rs := newRasterSurface(img, opts.Stroke, opts.Handle)
	engine.Paint(newTransformed(m, rs), sc.Points, sc.Style, nodes)
	rs.flush()
	return img, nil
}

// WritePNG renders sc as a PNG image.
func WritePNG(w io.Writer, sc Scene, opts Options) error {
	img, err := RenderImage(sc, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
