package engine

import "fmt"

// Role identifies one of the four control points.
type Role int

const (
	RoleBase Role = iota
	RoleTrunk
	RoleBranch1
	RoleBranch2

	// RoleNone is returned when no control point is hit or selected.
	RoleNone Role = -1
)

// NumPoints is the number of control points in a scene.
const NumPoints = 4

// DefaultRadius is the handle radius of a control point.
const DefaultRadius = 4.0

var roleNames = [NumPoints]string{"base", "trunk", "branch1", "branch2"}

func (r Role) String() string {
	if r < 0 || int(r) >= NumPoints {
		return "none"
	}
	return roleNames[r]
}

// ParseRole converts a role name back to its Role.
func ParseRole(s string) (Role, error) {
	for i, name := range roleNames {
		if name == s {
			return Role(i), nil
		}
	}
	return RoleNone, fmt.Errorf("unknown control point role: %q", s)
}

// ControlPoint is a draggable anchor.
type ControlPoint struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"r"`
}

// Pos returns the point position as a vector.
func (p ControlPoint) Pos() Vec {
	return Vec{p.X, p.Y}
}

// Contains reports whether (x, y) lies within the handle.
func (p ControlPoint) Contains(x, y float64) bool {
	dx := x - p.X
	dy := y - p.Y
	return dx*dx+dy*dy <= p.Radius*p.Radius
}

// Points holds the four control points indexed by Role.
type Points [NumPoints]ControlPoint

// DefaultPoints returns the initial control point layout.
func DefaultPoints() Points {
	return Points{
		RoleBase:    {X: 400, Y: 600, Radius: DefaultRadius},
		RoleTrunk:   {X: 400, Y: 400, Radius: DefaultRadius},
		RoleBranch1: {X: 325, Y: 325, Radius: DefaultRadius},
		RoleBranch2: {X: 525, Y: 325, Radius: DefaultRadius},
	}
}

// Trunk returns the root segment running from the base to the trunk point.
func (ps Points) Trunk(width float64) Segment {
	base := ps[RoleBase]
	trunk := ps[RoleTrunk]
	return Segment{
		X:     base.X,
		Y:     base.Y,
		EX:    trunk.X - base.X,
		EY:    trunk.Y - base.Y,
		Width: width,
	}
}

// HitTest returns the role of the control point containing (x, y), or RoleNone.
// When handles overlap the last point in role order wins.
func (ps Points) HitTest(x, y float64) Role {
	hit := RoleNone
	for i, p := range ps {
		if p.Contains(x, y) {
			hit = Role(i)
		}
	}
	return hit
}

// Move repositions the point with the given role. Moving the trunk translates
// both branch points by the same delta so the branch geometry relative to the
// trunk is preserved. Moving the base moves only the base.
func (ps *Points) Move(role Role, x, y float64) {
	if role < 0 || int(role) >= NumPoints {
		return
	}

	if role == RoleTrunk {
		ps.Translate(x-ps[RoleTrunk].X, y-ps[RoleTrunk].Y, RoleBranch1, RoleBranch2)
	}

	ps[role].X = x
	ps[role].Y = y
}

// Translate shifts the points with the given roles by (dx, dy), or every
// point when no role is given.
func (ps *Points) Translate(dx, dy float64, roles ...Role) {
	if len(roles) == 0 {
		roles = []Role{RoleBase, RoleTrunk, RoleBranch1, RoleBranch2}
	}
	for _, r := range roles {
		ps[r].X += dx
		ps[r].Y += dy
	}
}
