package collab

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fractree/fractree/internal/document"
	"github.com/fractree/fractree/internal/engine"
)

func ptr[T any](v T) *T { return &v }

func newState() *DocumentState {
	doc := document.NewDefaultDocument()
	doc.ID = "tree_test"
	doc.Version = 1
	return NewDocumentState(doc)
}

func TestApplyPointMove(t *testing.T) {
	ds := newState()

	seq, err := ds.ApplyOperation(Operation{Type: OpPointMove, Role: "trunk", X: ptr(390.0), Y: ptr(410.0)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	doc, got := ds.Document()
	assert.Equal(t, int64(1), got)
	assert.Equal(t, engine.Vec{X: 400, Y: 600}, doc.Points.Base)
	assert.Equal(t, engine.Vec{X: 390, Y: 410}, doc.Points.Trunk)
	// branches follow the trunk
	assert.Equal(t, engine.Vec{X: 315, Y: 335}, doc.Points.Branch1)
	assert.Equal(t, engine.Vec{X: 515, Y: 335}, doc.Points.Branch2)

	_, err = ds.ApplyOperation(Operation{Type: OpPointMove, Role: "base", X: ptr(0.0), Y: ptr(0.0)})
	require.NoError(t, err)
	doc, _ = ds.Document()
	assert.Equal(t, engine.Vec{}, doc.Points.Base)
	assert.Equal(t, engine.Vec{X: 390, Y: 410}, doc.Points.Trunk)
}

func TestApplyPointMove_Invalid(t *testing.T) {
	ds := newState()

	tests := []struct {
		name string
		op   Operation
	}{
		{"unknown role", Operation{Type: OpPointMove, Role: "leaf", X: ptr(1.0), Y: ptr(1.0)}},
		{"missing y", Operation{Type: OpPointMove, Role: "base", X: ptr(1.0)}},
		{"infinite", Operation{Type: OpPointMove, Role: "base", X: ptr(math.Inf(1)), Y: ptr(1.0)}},
		{"nan", Operation{Type: OpPointMove, Role: "base", X: ptr(math.NaN()), Y: ptr(1.0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ds.ApplyOperation(tt.op)
			assert.ErrorIs(t, err, ErrInvalidOperation)
		})
	}

	doc, seq := ds.Document()
	assert.Equal(t, int64(0), seq)
	assert.Equal(t, document.NewDefaultDocument().Points, doc.Points)
	assert.False(t, ds.Dirty())
}

func TestApplyStyleUpdate(t *testing.T) {
	ds := newState()

	_, err := ds.ApplyOperation(Operation{Type: OpStyleUpdate, Mode: "interlaced", ShowPoints: ptr(false)})
	require.NoError(t, err)
	doc, _ := ds.Document()
	assert.Equal(t, engine.ModeInterlaced, doc.Mode)
	assert.False(t, doc.ShowPoints)
	assert.Equal(t, engine.DefaultBranchWidth, doc.BranchWidth)

	_, err = ds.ApplyOperation(Operation{Type: OpStyleUpdate, Width: ptr(9.5)})
	require.NoError(t, err)
	doc, _ = ds.Document()
	assert.Equal(t, 9.5, doc.BranchWidth)
	assert.Equal(t, engine.ModeInterlaced, doc.Mode)

	for _, op := range []Operation{
		{Type: OpStyleUpdate},
		{Type: OpStyleUpdate, Mode: "wobbly"},
		{Type: OpStyleUpdate, Width: ptr(0.0)},
		{Type: OpStyleUpdate, Width: ptr(math.Inf(1))},
	} {
		_, err := ds.ApplyOperation(op)
		assert.ErrorIs(t, err, ErrInvalidOperation)
	}
}

func TestApplyRename(t *testing.T) {
	ds := newState()

	_, err := ds.ApplyOperation(Operation{Type: OpTreeRename, Name: "  Willow  "})
	require.NoError(t, err)
	doc, _ := ds.Document()
	assert.Equal(t, "Willow", doc.Name)

	_, err = ds.ApplyOperation(Operation{Type: OpTreeRename, Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = ds.ApplyOperation(Operation{Type: OpTreeRename, Name: strings.Repeat("é", document.MaxNameLength)})
	require.NoError(t, err)

	_, err = ds.ApplyOperation(Operation{Type: OpTreeRename, Name: strings.Repeat("a", document.MaxNameLength+1)})
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.ErrorIs(t, err, document.ErrNameTooLong)
}

func TestApplyUnknown(t *testing.T) {
	_, err := newState().ApplyOperation(Operation{Type: "object.delete"})
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestDirtyTracking(t *testing.T) {
	ds := newState()
	assert.False(t, ds.Dirty())

	seq, err := ds.ApplyOperation(Operation{Type: OpTreeRename, Name: "A"})
	require.NoError(t, err)
	assert.True(t, ds.Dirty())

	// an op lands while the save is in flight
	_, err = ds.ApplyOperation(Operation{Type: OpTreeRename, Name: "B"})
	require.NoError(t, err)

	ds.MarkSaved(seq, document.TreeDocument{Version: 2, CreatedAt: "c", UpdatedAt: "u"})
	assert.True(t, ds.Dirty())
	doc, _ := ds.Document()
	assert.Equal(t, 2, doc.Version)
	assert.Equal(t, "B", doc.Name)

	ds.MarkSaved(seq+1, document.TreeDocument{Version: 3})
	assert.False(t, ds.Dirty())
}

func TestReplace(t *testing.T) {
	ds := newState()
	_, err := ds.ApplyOperation(Operation{Type: OpTreeRename, Name: "A"})
	require.NoError(t, err)

	next := document.NewDefaultDocument()
	next.ID = "tree_test"
	next.Name = "Replaced"
	next.Points.Trunk = engine.Vec{X: 400, Y: 300}

	seq := ds.Replace(next)
	assert.Equal(t, int64(2), seq)
	assert.False(t, ds.Dirty())

	// later moves start from the replacement
	_, err = ds.ApplyOperation(Operation{Type: OpPointMove, Role: "trunk", X: ptr(400.0), Y: ptr(310.0)})
	require.NoError(t, err)
	doc, _ := ds.Document()
	assert.Equal(t, "Replaced", doc.Name)
	assert.Equal(t, engine.Vec{X: 325, Y: 335}, doc.Points.Branch1)
}
