package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTransformsDefaultScene(t *testing.T) {
	ps := DefaultPoints()

	ts, err := DeriveTransforms(ps)
	require.NoError(t, err)

	// branch1 sits up and to the left of the trunk: a quarter-pi turn with a
	// 75√2/200 scale.
	assert.InDelta(t, math.Pi/4, math.Abs(ts[0].Angle()), 1e-12)
	assert.InDelta(t, 75*math.Sqrt2/200, ts[0].Scale, 1e-12)

	// In screen coordinates (y down) the raw angle is negative; seen with y up,
	// as a viewer reads the canvas, the turn is counter-clockwise.
	assert.Less(t, ts[0].Angle(), 0.0)
	trunk := ps.Trunk(DefaultBranchWidth)
	child := ts[0].Apply(trunk)
	assert.Greater(t, crossUp(trunk, child), 0.0)
	assert.Less(t, crossUp(trunk, ts[1].Apply(trunk)), 0.0)

	// branch2 leans right: clockwise on screen, positive raw angle.
	assert.Greater(t, ts[1].Angle(), 0.0)
	assert.InDelta(t, math.Hypot(125, 75)/200, ts[1].Scale, 1e-12)
}

// crossUp is the z component of parent × child with both extents seen in a
// y-up frame. Positive means child turns counter-clockwise from parent.
func crossUp(parent, child Segment) float64 {
	return parent.EX*(-child.EY) - (-parent.EY)*child.EX
}

func TestDeriveTransformsReproducesBranchPoints(t *testing.T) {
	ps := DefaultPoints()
	ts, err := DeriveTransforms(ps)
	require.NoError(t, err)

	trunk := ps.Trunk(DefaultBranchWidth)
	for i, role := range []Role{RoleBranch1, RoleBranch2} {
		child := ts[i].Apply(trunk)
		end := child.End()
		assert.InDelta(t, ps[role].X, end.X, 1e-9, role.String())
		assert.InDelta(t, ps[role].Y, end.Y, 1e-9, role.String())
		assert.InDelta(t, DefaultBranchWidth*ts[i].Scale, child.Width, 1e-12)
	}
}

func TestDeriveTransformsDeterministic(t *testing.T) {
	ps := Points{
		{X: 13.25, Y: 912.5, Radius: 4},
		{X: 17.125, Y: 400.75, Radius: 4},
		{X: -31.5, Y: 211, Radius: 4},
		{X: 88.875, Y: 305.3, Radius: 4},
	}
	first, err := DeriveTransforms(ps)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := DeriveTransforms(ps)
		require.NoError(t, err)
		for k := range first {
			assert.Equal(t, math.Float64bits(first[k].Cos), math.Float64bits(again[k].Cos))
			assert.Equal(t, math.Float64bits(first[k].Sin), math.Float64bits(again[k].Sin))
			assert.Equal(t, math.Float64bits(first[k].Scale), math.Float64bits(again[k].Scale))
		}
	}
}

func TestDeriveTransformsDegenerateTrunk(t *testing.T) {
	ps := DefaultPoints()
	ps[RoleTrunk].X = ps[RoleBase].X
	ps[RoleTrunk].Y = ps[RoleBase].Y

	ts, err := DeriveTransforms(ps)
	require.ErrorIs(t, err, ErrDegenerateTrunk)
	assert.Equal(t, [2]Transform{}, ts)

	nodes := Generate(ps.Trunk(4), ts[:], 3)
	require.Len(t, nodes, CountSegments(2, 3))
	for _, n := range nodes {
		assert.True(t, n.Segment.Origin().IsFinite())
		assert.True(t, n.Segment.End().IsFinite())
		assert.False(t, math.IsNaN(n.Segment.Width))
	}
}

func TestTransformApply(t *testing.T) {
	parent := Segment{X: 10, Y: 20, EX: 0, EY: -10, Width: 2}
	child := NewTransform(math.Pi/2, 0.5).Apply(parent)

	assert.InDelta(t, 10, child.X, 1e-12)
	assert.InDelta(t, 10, child.Y, 1e-12)
	assert.InDelta(t, 5, child.EX, 1e-12)
	assert.InDelta(t, 0, child.EY, 1e-12)
	assert.InDelta(t, 1, child.Width, 1e-12)
}

func TestDeriveTransformsSubnormalTrunk(t *testing.T) {
	ps := Points{
		{X: 0, Y: 0, Radius: 4},
		{X: 0, Y: 5e-324, Radius: 4},
		{X: 1, Y: 1, Radius: 4},
		{X: -1, Y: 1, Radius: 4},
	}

	ts, err := DeriveTransforms(ps)
	require.ErrorIs(t, err, ErrDegenerateTrunk)
	assert.Equal(t, [2]Transform{}, ts)

	for _, n := range Grow(ps.Trunk(4), ts[:], 3) {
		assert.True(t, n.Segment.IsFinite(), "%+v", n.Segment)
	}
}

func TestDeriveTransformsOverflowingBranch(t *testing.T) {
	ps := Points{
		{X: -1.5e308, Y: 1, Radius: 4},
		{X: -1.5e308, Y: 0, Radius: 4},
		{X: 1.5e308, Y: 0, Radius: 4},
		{X: -1.5e308, Y: -2, Radius: 4},
	}

	ts, err := DeriveTransforms(ps)
	require.ErrorIs(t, err, ErrDegenerateTrunk)
	assert.Equal(t, Transform{}, ts[0])
	assert.InDelta(t, 2, ts[1].Scale, 1e-12)

	for _, n := range Grow(ps.Trunk(4), ts[:], 4) {
		assert.True(t, n.Segment.IsFinite(), "%+v", n.Segment)
	}
}

func TestGrowCollapsesOverflowingGenerations(t *testing.T) {
	// A finite scale of 1e200 overflows by the second generation.
	ps := Points{
		{X: 400, Y: 600, Radius: 4},
		{X: 400, Y: 599, Radius: 4},
		{X: 400, Y: 599 - 1e200, Radius: 4},
		{X: 400, Y: 599 - 1e200, Radius: 4},
	}
	ts, err := DeriveTransforms(ps)
	require.NoError(t, err)

	nodes := Grow(ps.Trunk(4), ts[:], 4)
	require.Len(t, nodes, GrowSize(2, 4))
	for _, n := range nodes {
		assert.True(t, n.Segment.IsFinite(), "%+v", n.Segment)
		assert.True(t, n.Parent.IsFinite(), "%+v", n.Parent)
	}
}
