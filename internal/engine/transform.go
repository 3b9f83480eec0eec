package engine

import (
	"errors"
	"math"
)

// ErrDegenerateTrunk is returned by DeriveTransforms when the trunk is too
// short to serve as a reference length, or when a branch scale overflows.
var ErrDegenerateTrunk = errors.New("degenerate trunk: branch scale is not finite")

// minTrunkLength is the shortest trunk treated as a usable reference length.
const minTrunkLength = 1e-9

// Transform is a precomputed rotation and uniform scale.
// Cos and Sin already carry the scale factor.
type Transform struct {
	Cos   float64 `json:"cos"`
	Sin   float64 `json:"sin"`
	Scale float64 `json:"scale"`
}

// NewTransform builds a Transform rotating by rads and scaling by scale.
func NewTransform(rads, scale float64) Transform {
	return Transform{
		Cos:   math.Cos(rads) * scale,
		Sin:   math.Sin(rads) * scale,
		Scale: scale,
	}
}

// Apply grows a child segment from the end of parent.
func (t Transform) Apply(parent Segment) Segment {
	return Segment{
		X:     parent.X + parent.EX,
		Y:     parent.Y + parent.EY,
		EX:    parent.EX*t.Cos - parent.EY*t.Sin,
		EY:    parent.EY*t.Cos + parent.EX*t.Sin,
		Width: parent.Width * t.Scale,
	}
}

// Angle returns the rotation encoded by the transform, in (-π, π].
func (t Transform) Angle() float64 {
	return math.Atan2(t.Sin, t.Cos)
}

// IsFinite reports whether every term of the transform is finite.
func (t Transform) IsFinite() bool {
	return finite(t.Cos) && finite(t.Sin) && finite(t.Scale)
}

// DeriveTransforms computes the two branch transforms from the control points,
// branch1 first and branch2 second.
//
// The reference vector runs from the trunk toward the base with its y component
// flipped, so a trunk pointing straight up on screen corresponds to angle 0.
// A trunk shorter than minTrunkLength yields two zero transforms and
// ErrDegenerateTrunk. A branch whose scale is not finite gets a zero transform
// and the same error; the other branch is kept.
func DeriveTransforms(ps Points) ([2]Transform, error) {
	base := ps[RoleBase].Pos()
	trunk := ps[RoleTrunk].Pos()

	trunkLen := Distance(trunk, base)
	if !finite(trunkLen) || trunkLen < minTrunkLength {
		return [2]Transform{}, ErrDegenerateTrunk
	}

	ref := Vec{X: base.X - trunk.X, Y: trunk.Y - base.Y}

	var out [2]Transform
	var err error
	for i, role := range [2]Role{RoleBranch1, RoleBranch2} {
		branch := ps[role].Pos()
		angle := VectorAngle(branch.Sub(trunk), ref)
		scale := Distance(branch, trunk) / trunkLen
		out[i] = NewTransform(angle, scale)
		if !out[i].IsFinite() {
			out[i] = Transform{}
			err = ErrDegenerateTrunk
		}
	}
	return out, err
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
