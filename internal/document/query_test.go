package document

import (
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fractree/fractree/internal/engine"
)

func TestFromQueryOverrides(t *testing.T) {
	q := url.Values{}
	q.Set("name", "oak")
	q.Set("w", "6.5")
	q.Set("mode", "interlaced")
	q.Set("points", "hidden")
	q.Set("x0", "10")
	q.Set("y0", "20")
	q.Set("x3", "-4.25")

	d := FromQuery(q, NewDefaultDocument())

	assert.Equal(t, "oak", d.Name)
	assert.Equal(t, 6.5, d.BranchWidth)
	assert.Equal(t, engine.ModeInterlaced, d.Mode)
	assert.False(t, d.ShowPoints)
	assert.Equal(t, engine.Vec{X: 10, Y: 20}, d.Points.Base)
	assert.Equal(t, engine.Vec{X: -4.25, Y: 325}, d.Points.Branch2)
	assert.Equal(t, engine.Vec{X: 400, Y: 400}, d.Points.Trunk)
}

func TestFromQueryIgnoresInvalidValues(t *testing.T) {
	def := NewDefaultDocument()

	tests := []struct {
		name string
		raw  string
	}{
		{"non-numeric width", "w=wide"},
		{"negative width", "w=-3"},
		{"zero width", "w=0"},
		{"non-numeric coordinate", "x1=left"},
		{"infinite coordinate", "y2=Inf"},
		{"nan coordinate", "x0=NaN"},
		{"unknown mode", "mode=dotted"},
		{"unknown points flag", "points=maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseQuery(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, def, d)
		})
	}
}

func TestQueryKeys(t *testing.T) {
	q := NewDefaultDocument().Query()
	for _, key := range []string{"name", "w", "mode", "points", "x0", "y0", "x1", "y1", "x2", "y2", "x3", "y3"} {
		assert.True(t, q.Has(key), key)
	}
	assert.Equal(t, "smooth", q.Get("mode"))
	assert.Equal(t, "visible", q.Get("points"))
	assert.Equal(t, "400", q.Get("x0"))
	assert.Equal(t, "600", q.Get("y0"))
}

func TestQueryRoundTripRendersIdentically(t *testing.T) {
	d := NewDefaultDocument()
	d.Name = "odd & spaced"
	d.BranchWidth = 3.3
	d.Mode = engine.ModeStraight
	d.Points.Trunk = engine.Vec{X: 401.123456789, Y: 398.000001}
	d.Points.Branch1 = engine.Vec{X: 1.0 / 3, Y: 310.5}

	parsed, err := ParseQuery(d.Encode())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	before := engine.Render(d.EnginePoints(), d.Style(), 6, nil)
	after := engine.Render(parsed.EnginePoints(), parsed.Style(), 6, nil)
	require.Len(t, after, len(before))
	for i := range before {
		assert.InDelta(t, before[i].Segment.X, after[i].Segment.X, 1e-9)
		assert.InDelta(t, before[i].Segment.Y, after[i].Segment.Y, 1e-9)
		assert.InDelta(t, before[i].Segment.EX, after[i].Segment.EX, 1e-9)
		assert.InDelta(t, before[i].Segment.EY, after[i].Segment.EY, 1e-9)
		assert.InDelta(t, before[i].Segment.Width, after[i].Segment.Width, 1e-9)
	}
}

func TestFromSceneRoundTrip(t *testing.T) {
	ps := engine.DefaultPoints()
	ps.Move(engine.RoleTrunk, 390, 410)
	style := engine.Style{Mode: engine.ModeInterlaced, BranchWidth: 5}

	d := FromScene("t", ps, style)
	assert.Equal(t, ps, d.EnginePoints())
	assert.Equal(t, style, d.Style())
}

func TestNormalize(t *testing.T) {
	d := NewDefaultDocument()
	d.BranchWidth = -1
	d.Mode = engine.Mode(42)
	d.Points.Branch1.X = math.Inf(1)
	d.Normalize()

	def := NewDefaultDocument()
	assert.Equal(t, def.BranchWidth, d.BranchWidth)
	assert.Equal(t, def.Mode, d.Mode)
	assert.Equal(t, def.Points.Branch1, d.Points.Branch1)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "tree.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
name: willow
branchWidth: 7
mode: straight
showPoints: false
points:
  trunk: {x: 410, y: 380}
`), 0o644))

	d, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "willow", d.Name)
	assert.Equal(t, 7.0, d.BranchWidth)
	assert.Equal(t, engine.ModeStraight, d.Mode)
	assert.False(t, d.ShowPoints)
	assert.Equal(t, engine.Vec{X: 410, Y: 380}, d.Points.Trunk)
	assert.Equal(t, engine.Vec{X: 400, Y: 600}, d.Points.Base)

	jsonPath := filepath.Join(dir, "tree.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name":"elm","mode":"interlaced"}`), 0o644))
	d, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "elm", d.Name)
	assert.Equal(t, engine.ModeInterlaced, d.Mode)

	_, err = LoadFile(filepath.Join(dir, "tree.toml"))
	assert.Error(t, err)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("mode: dotted\n"), 0o644))
	_, err = LoadFile(badPath)
	assert.Error(t, err)
}

func TestYAMLRoundTrip(t *testing.T) {
	d, ok := Preset("fern")
	require.True(t, ok)

	data, err := d.YAML()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "fern.yml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, d, loaded)
}

func TestPresets(t *testing.T) {
	names := PresetNames()
	assert.Equal(t, []string{"broccoli", "classic", "dragon", "fern"}, names)
	for _, name := range names {
		d, ok := Preset(name)
		require.True(t, ok)
		_, err := engine.DeriveTransforms(d.EnginePoints())
		assert.NoError(t, err, name)
	}
	_, ok := Preset("bonsai")
	assert.False(t, ok)
}

func TestCheckName(t *testing.T) {
	assert.NoError(t, CheckName(strings.Repeat("ß", MaxNameLength)))
	assert.ErrorIs(t, CheckName(strings.Repeat("a", MaxNameLength+1)), ErrNameTooLong)
}
