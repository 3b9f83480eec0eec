package document

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/fractree/fractree/internal/engine"
)

// MaxNameLength is the longest tree name, in characters, accepted by the API and
// by collaborative renames.
const MaxNameLength = 120

var ErrNameTooLong = errors.New("name too long")

// CheckName reports ErrNameTooLong when name exceeds MaxNameLength characters.
func CheckName(name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrNameTooLong, MaxNameLength)
	}
	return nil
}

// TreeDocument is the shareable state of one tree: its control points and
// render style.
type TreeDocument struct {
	ID          string        `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string        `json:"name" yaml:"name"`
	BranchWidth float64       `json:"branchWidth" yaml:"branchWidth"`
	Mode        engine.Mode   `json:"mode" yaml:"mode"`
	ShowPoints  bool          `json:"showPoints" yaml:"showPoints"`
	Points      ControlPoints `json:"points" yaml:"points"`
	Version     int           `json:"version,omitempty" yaml:"version,omitempty"`
	CreatedAt   string        `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt   string        `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// ControlPoints names the four control point positions.
type ControlPoints struct {
	Base    engine.Vec `json:"base" yaml:"base"`
	Trunk   engine.Vec `json:"trunk" yaml:"trunk"`
	Branch1 engine.Vec `json:"branch1" yaml:"branch1"`
	Branch2 engine.Vec `json:"branch2" yaml:"branch2"`
}

// NewDefaultDocument returns a document with the default tree.
func NewDefaultDocument() TreeDocument {
	return FromScene("Untitled", engine.DefaultPoints(), engine.DefaultStyle())
}

// FromScene builds a document from engine state.
func FromScene(name string, ps engine.Points, style engine.Style) TreeDocument {
	return TreeDocument{
		Name:        name,
		BranchWidth: style.BranchWidth,
		Mode:        style.Mode,
		ShowPoints:  style.ShowPoints,
		Points: ControlPoints{
			Base:    ps[engine.RoleBase].Pos(),
			Trunk:   ps[engine.RoleTrunk].Pos(),
			Branch1: ps[engine.RoleBranch1].Pos(),
			Branch2: ps[engine.RoleBranch2].Pos(),
		},
	}
}

// EnginePoints returns the control points with the default handle radius.
func (d TreeDocument) EnginePoints() engine.Points {
	var ps engine.Points
	for i, v := range d.Points.slice() {
		ps[i] = engine.ControlPoint{X: v.X, Y: v.Y, Radius: engine.DefaultRadius}
	}
	return ps
}

// Style returns the render style of the document.
func (d TreeDocument) Style() engine.Style {
	return engine.Style{Mode: d.Mode, BranchWidth: d.BranchWidth, ShowPoints: d.ShowPoints}
}

// Engine builds an engine loaded with the document's scene.
func (d TreeDocument) Engine(opts ...engine.Option) *engine.Engine {
	opts = append([]engine.Option{engine.WithPoints(d.EnginePoints()), engine.WithStyle(d.Style())}, opts...)
	return engine.NewEngine(opts...)
}

// Touch bumps the version and update timestamp.
func (d *TreeDocument) Touch(now time.Time) {
	ts := now.UTC().Format(time.RFC3339)
	if d.CreatedAt == "" {
		d.CreatedAt = ts
	}
	d.UpdatedAt = ts
	d.Version++
}

// Normalize replaces invalid fields with defaults so the document always
// renders.
func (d *TreeDocument) Normalize() {
	def := NewDefaultDocument()
	if !(d.BranchWidth > 0) || !finite(d.BranchWidth) {
		d.BranchWidth = def.BranchWidth
	}
	if _, err := d.Mode.MarshalText(); err != nil {
		d.Mode = def.Mode
	}
	ours, theirs := d.Points.ptrs(), def.Points.slice()
	for i, p := range ours {
		if !p.IsFinite() {
			*p = theirs[i]
		}
	}
}

func (cp ControlPoints) slice() [engine.NumPoints]engine.Vec {
	return [engine.NumPoints]engine.Vec{cp.Base, cp.Trunk, cp.Branch1, cp.Branch2}
}

func (cp *ControlPoints) ptrs() [engine.NumPoints]*engine.Vec {
	return [engine.NumPoints]*engine.Vec{&cp.Base, &cp.Trunk, &cp.Branch1, &cp.Branch2}
}
