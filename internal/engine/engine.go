package engine

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Observer receives render pass notifications, typically for metrics.
type Observer interface {
	RenderCompleted(segments int, elapsed time.Duration)
	RenderDropped()
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth sets the recursion depth below the trunk's two children.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		e.maxDepth = ClampDepth(depth)
	}
}

// WithObserver attaches a render observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithPoints sets the initial control points.
func WithPoints(ps Points) Option {
	return func(e *Engine) {
		e.points = sanitizePoints(ps)
	}
}

// WithStyle sets the initial render style.
func WithStyle(st Style) Option {
	return func(e *Engine) {
		e.style = st
	}
}

// Engine owns the control points and style of one tree.
// Commands mutate the scene under a single lock; render passes read a snapshot
// and never overlap: a pass requested while another is running is dropped.
type Engine struct {
	mu       sync.Mutex
	points   Points
	style    Style
	maxDepth int
	selected Role

	rendering atomic.Bool
	observer  Observer
}

// NewEngine creates a new engine with the default scene.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		points:   DefaultPoints(),
		style:    DefaultStyle(),
		maxDepth: DefaultMaxDepth,
		selected: RoleNone,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render runs one complete render pass for the given scene onto s and returns
// the generated nodes. Handles are drawn first when visible, then the trunk,
// then every branch in generation order.
func Render(ps Points, style Style, maxDepth int, s Surface) []Node {
	transforms, err := DeriveTransforms(ps)
	if errors.Is(err, ErrDegenerateTrunk) {
		slog.Debug("degenerate control points, branches collapsed", "base", ps[RoleBase].Pos(), "trunk", ps[RoleTrunk].Pos())
	}

	nodes := Grow(ps.Trunk(style.BranchWidth), transforms[:], maxDepth)

	if s != nil {
		Paint(s, ps, style, nodes)
	}
	return nodes
}

// Paint draws already generated nodes, with the handles underneath when
// visible.
func Paint(s Surface, ps Points, style Style, nodes []Node) {
	if style.ShowPoints {
		DrawHandles(s, ps)
	}
	DrawTree(s, nodes, style.Mode)
}

// --- Commands ---

// SetPoints replaces all four control points.
func (e *Engine) SetPoints(ps Points) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.points = sanitizePoints(ps)
}

// SetStyle replaces the render style.
func (e *Engine) SetStyle(st Style) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.style = st
}

// SetMaxDepth sets the number of branch generations.
func (e *Engine) SetMaxDepth(depth int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxDepth = ClampDepth(depth)
}

// MovePoint repositions a control point. Non-finite coordinates are ignored.
func (e *Engine) MovePoint(role Role, x, y float64) bool {
	if !(Vec{x, y}).IsFinite() || role < 0 || int(role) >= NumPoints {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.points.Move(role, x, y)
	return true
}

// PointerDown selects the control point under (x, y), if any.
func (e *Engine) PointerDown(x, y float64) Role {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = e.points.HitTest(x, y)
	return e.selected
}

// PointerMove drags the selected point to (x, y). It reports whether the scene changed.
func (e *Engine) PointerMove(x, y float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected == RoleNone || !(Vec{x, y}).IsFinite() {
		return false
	}
	e.points.Move(e.selected, x, y)
	return true
}

// PointerUp drops the selected point at (x, y) and clears the selection.
func (e *Engine) PointerUp(x, y float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected == RoleNone {
		return false
	}
	moved := false
	if (Vec{x, y}).IsFinite() {
		e.points.Move(e.selected, x, y)
		moved = true
	}
	e.selected = RoleNone
	return moved
}

// --- Queries ---

// Points returns a copy of the control points.
func (e *Engine) Points() Points {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.points
}

// Style returns the current render style.
func (e *Engine) Style() Style {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.style
}

// MaxDepth returns the number of branch generations.
func (e *Engine) MaxDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxDepth
}

// Selected returns the role being dragged, or RoleNone.
func (e *Engine) Selected() Role {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Transforms derives the current branch transforms.
func (e *Engine) Transforms() ([2]Transform, error) {
	return DeriveTransforms(e.Points())
}

// Render performs a render pass onto s. It returns false without drawing when
// another pass is still in progress.
func (e *Engine) Render(s Surface) ([]Node, bool) {
	if !e.rendering.CompareAndSwap(false, true) {
		slog.Debug("render dropped, pass already in progress")
		if e.observer != nil {
			e.observer.RenderDropped()
		}
		return nil, false
	}
	defer e.rendering.Store(false)

	e.mu.Lock()
	ps, style, depth := e.points, e.style, e.maxDepth
	e.mu.Unlock()

	start := time.Now()
	nodes := Render(ps, style, depth, s)
	if e.observer != nil {
		e.observer.RenderCompleted(len(nodes), time.Since(start))
	}
	return nodes, true
}

// RenderJSON renders into a fresh command buffer and returns it as JSON.
// A dropped pass returns ok == false.
func (e *Engine) RenderJSON() (string, bool) {
	buf := NewCommandBuffer()
	if _, ok := e.Render(buf); !ok {
		return "", false
	}
	result, _ := DrawCommandsToJSON(buf.Commands())
	return result, true
}

// HitTest returns the name of the control point at (x, y), or empty string.
func (e *Engine) HitTest(x, y float64) string {
	role := e.Points().HitTest(x, y)
	if role == RoleNone {
		return ""
	}
	return role.String()
}

// Bounds returns the bounding box of the generated tree and its handles.
func (e *Engine) Bounds() Rect {
	e.mu.Lock()
	ps, style, depth := e.points, e.style, e.maxDepth
	e.mu.Unlock()
	return SceneBounds(ps, style, Render(ps, style, depth, nil))
}

// SceneBounds returns the bounds of nodes, including the handles when visible.
func SceneBounds(ps Points, style Style, nodes []Node) Rect {
	bounds := Bounds(nodes)
	if style.ShowPoints {
		b := newBoundsBuilder()
		for _, p := range ps {
			b.add(p.X, p.Y, p.Radius)
		}
		bounds = bounds.Union(b.rect())
	}
	return bounds
}

// GetTransforms returns the current transforms as JSON.
func (e *Engine) GetTransforms() string {
	ts, err := e.Transforms()
	data, _ := json.Marshal(map[string]interface{}{
		"transforms": ts,
		"degenerate": errors.Is(err, ErrDegenerateTrunk),
	})
	return string(data)
}

// sanitizePoints enforces positive radii and drops non-finite coordinates back
// to the defaults.
func sanitizePoints(ps Points) Points {
	defaults := DefaultPoints()
	for i := range ps {
		if !ps[i].Pos().IsFinite() {
			ps[i].X, ps[i].Y = defaults[i].X, defaults[i].Y
		}
		if !(ps[i].Radius > 0) || math.IsInf(ps[i].Radius, 0) {
			ps[i].Radius = DefaultRadius
		}
	}
	return ps
}
