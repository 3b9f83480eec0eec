package engine

// DefaultMaxDepth is the recursion depth of a render: the trunk's two
// children are always grown, then DefaultMaxDepth further generations.
const DefaultMaxDepth = 10

// MaxDepthLimit caps configurable depth; 2^17-1 segments is already far past
// what a canvas can show.
const MaxDepthLimit = 15

// Segment is one edge of the tree: an origin (X, Y) and a displacement
// (EX, EY). Its endpoint is (X+EX, Y+EY).
type Segment struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	EX    float64 `json:"ex"`
	EY    float64 `json:"ey"`
	Width float64 `json:"width"`
}

// Origin returns the start point of the segment.
func (s Segment) Origin() Vec {
	return Vec{s.X, s.Y}
}

// End returns the end point of the segment.
func (s Segment) End() Vec {
	return Vec{s.X + s.EX, s.Y + s.EY}
}

// Mid returns the point halfway along the segment.
func (s Segment) Mid() Vec {
	return Vec{s.X + 0.5*s.EX, s.Y + 0.5*s.EY}
}

// Node is a generated segment together with the parent it grew from.
// The root's parent is the zero-length segment sitting at the root origin.
type Node struct {
	Segment Segment `json:"segment"`
	Parent  Segment `json:"parent"`
	Depth   int     `json:"depth"`
}

// IsFinite reports whether the segment's origin, extent and width are finite.
func (s Segment) IsFinite() bool {
	return finite(s.X) && finite(s.Y) && finite(s.EX) && finite(s.EY) && finite(s.Width)
}

// ClampDepth bounds a render depth to [0, MaxDepthLimit].
func ClampDepth(depth int) int {
	return max(0, min(depth, MaxDepthLimit))
}

// CountSegments returns the number of nodes Generate produces for the given
// branching factor and number of generations.
func CountSegments(branching, generations int) int {
	total, level := 0, 1
	for k := 0; k <= generations; k++ {
		total += level
		level *= branching
	}
	return total
}

// GrowSize returns the number of nodes Grow produces for a render depth.
func GrowSize(branching, depth int) int {
	return CountSegments(branching, ClampDepth(depth)+1)
}

// Generate grows the tree from root. Each node of generation g < generations
// has one child per transform. Nodes are returned in pre-order: a node precedes
// its children and the subtree of transforms[0] precedes that of transforms[1].
//
// A child whose geometry overflows collapses to a zero-length segment at its
// parent's end, and an overflowing root to one at its origin, so no
// non-finite value reaches the output.
func Generate(root Segment, transforms []Transform, generations int) []Node {
	generations = max(0, min(generations, MaxDepthLimit+1))
	if !root.IsFinite() {
		root = collapsed(root.Origin())
	}

	nodes := make([]Node, 0, CountSegments(len(transforms), generations))
	nodes = append(nodes, Node{
		Segment: root,
		Parent:  Segment{X: root.X, Y: root.Y, Width: root.Width},
	})
	return grow(nodes, root, transforms, 1, generations)
}

// Grow is the render entry point. The trunk's children are always grown and
// depth counts the generations below them, so depth 0 yields the trunk and
// its two immediate children.
func Grow(root Segment, transforms []Transform, depth int) []Node {
	return Generate(root, transforms, ClampDepth(depth)+1)
}

func grow(nodes []Node, parent Segment, transforms []Transform, depth, generations int) []Node {
	if depth > generations {
		return nodes
	}
	for _, t := range transforms {
		child := t.Apply(parent)
		if !child.IsFinite() {
			child = collapsed(parent.End())
		}
		nodes = append(nodes, Node{Segment: child, Parent: parent, Depth: depth})
		nodes = grow(nodes, child, transforms, depth+1, generations)
	}
	return nodes
}

// collapsed is the zero-length segment standing in for one that overflowed.
func collapsed(at Vec) Segment {
	if !at.IsFinite() {
		return Segment{}
	}
	return Segment{X: at.X, Y: at.Y}
}

// Bounds returns the bounding box of every segment end point, padded by half
// of each segment's width.
func Bounds(nodes []Node) Rect {
	b := newBoundsBuilder()
	for _, n := range nodes {
		pad := n.Segment.Width / 2
		b.add(n.Segment.X, n.Segment.Y, pad)
		end := n.Segment.End()
		b.add(end.X, end.Y, pad)
	}
	return b.rect()
}
