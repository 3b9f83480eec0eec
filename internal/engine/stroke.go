package engine

import (
	"fmt"
	"math"
)

// Mode selects how each branch is stroked.
type Mode uint8

const (
	ModeSmooth Mode = iota
	ModeInterlaced
	ModeStraight
)

var modeNames = map[Mode]string{
	ModeSmooth:     "smooth",
	ModeInterlaced: "interlaced",
	ModeStraight:   "straight",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeSmooth, fmt.Errorf("unknown stroke mode: %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if _, ok := modeNames[m]; !ok {
		return nil, fmt.Errorf("unknown stroke mode: %d", m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// DefaultBranchWidth is the trunk stroke width.
const DefaultBranchWidth = 4.0

// Style configures a render pass.
type Style struct {
	Mode        Mode    `json:"mode"`
	BranchWidth float64 `json:"branchWidth"`
	ShowPoints  bool    `json:"showPoints"`
}

// DefaultStyle returns the initial render style.
func DefaultStyle() Style {
	return Style{Mode: ModeSmooth, BranchWidth: DefaultBranchWidth, ShowPoints: true}
}

// Surface is the drawing capability a render pass writes to.
// Every stroke is opened with BeginStroke and closed with EndStroke.
type Surface interface {
	BeginStroke(x, y, width float64)
	LineTo(x, y float64)
	QuadraticCurveTo(cx, cy, x, y float64)
	EndStroke()
	FillCircle(x, y, r float64)
}

type strokeFunc func(s Surface, parent, child Segment)

var strokers = map[Mode]strokeFunc{
	ModeStraight:   strokeStraight,
	ModeSmooth:     strokeSmooth,
	ModeInterlaced: strokeInterlaced,
}

// strokeStraight draws the child as a chain link from the parent's end.
func strokeStraight(s Surface, parent, child Segment) {
	from := parent.End()
	to := child.End()
	s.BeginStroke(from.X, from.Y, child.Width)
	s.LineTo(to.X, to.Y)
	s.EndStroke()
}

// strokeSmooth joins parent and child midpoints, bending through the joint.
func strokeSmooth(s Surface, parent, child Segment) {
	from := parent.Mid()
	to := child.Mid()
	s.BeginStroke(from.X, from.Y, child.Width)
	s.QuadraticCurveTo(child.X, child.Y, to.X, to.Y)
	s.EndStroke()
}

// strokeInterlaced runs from the parent's origin to the child's end point.
func strokeInterlaced(s Surface, parent, child Segment) {
	from := parent.Origin()
	to := child.End()
	s.BeginStroke(from.X, from.Y, child.Width)
	s.QuadraticCurveTo(child.X, child.Y, to.X, to.Y)
	s.EndStroke()
}

// DrawNode emits the stroke for a single generated node.
func DrawNode(s Surface, n Node, mode Mode) {
	stroke, ok := strokers[mode]
	if !ok {
		stroke = strokeSmooth
	}
	stroke(s, n.Parent, n.Segment)
}

// DrawTree strokes every node in order. Later strokes overlap earlier ones.
func DrawTree(s Surface, nodes []Node, mode Mode) {
	for _, n := range nodes {
		DrawNode(s, n, mode)
	}
}

// DrawHandles fills a circle for every control point.
func DrawHandles(s Surface, ps Points) {
	for _, p := range ps {
		if p.Radius <= 0 || math.IsNaN(p.Radius) {
			continue
		}
		s.FillCircle(p.X, p.Y, p.Radius)
	}
}
