package main

import (
	"bytes"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fractree/fractree/internal/document"
	"github.com/fractree/fractree/internal/export"
)

// execute runs the root command with fresh flag values and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, cmd := range []*cobra.Command{renderCmd, queryCmd} {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestQuery_Preset(t *testing.T) {
	out, err := execute(t, "query", "--preset", "fern")
	require.NoError(t, err)

	q, err := url.ParseQuery(strings.TrimSpace(out))
	require.NoError(t, err)
	fern, _ := document.Preset("fern")
	assert.Equal(t, fern.Query(), q)
}

func TestQuery_YAMLRoundTrip(t *testing.T) {
	out, err := execute(t, "query", "-q", "https://example.com/?x1=410&y1=380&mode=straight", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "mode: straight")

	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))

	out, err = execute(t, "query", "--file", path)
	require.NoError(t, err)
	q, err := url.ParseQuery(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "410", q.Get("x1"))
	assert.Equal(t, "380", q.Get("y1"))
	assert.Equal(t, "straight", q.Get("mode"))
}

func TestQuery_Errors(t *testing.T) {
	_, err := execute(t, "query", "--preset", "oak")
	assert.ErrorContains(t, err, "unknown preset")

	_, err = execute(t, "query", "--preset", "fern", "--file", "tree.yaml")
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = execute(t, "query", "--file", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRender_Stdout(t *testing.T) {
	out, err := execute(t, "render", "--preset", "classic", "-q", "points=hidden", "--depth", "0")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Equal(t, 3, strings.Count(out, "<path"))

	out, err = execute(t, "render", "--format", "json", "--depth", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"segments":7`)
}

func TestRender_FileFormatFromExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.png")
	_, err := execute(t, "render", "-q", "mode=smooth", "--out", path, "--width", "120", "--height", "90", "--depth", "4")
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 90, img.Bounds().Dy())
}

func TestRender_Errors(t *testing.T) {
	_, err := execute(t, "render", "--depth", "99")
	assert.ErrorContains(t, err, "depth")

	_, err = execute(t, "render", "--format", "gif")
	assert.Error(t, err)

	_, err = execute(t, "render", "--width", "0")
	assert.Error(t, err)
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		flag, out string
		want      export.Format
	}{
		{"", "-", export.FormatSVG},
		{"", "tree", export.FormatSVG},
		{"", "tree.PNG", export.FormatPNG},
		{"", "tree.json", export.FormatJSON},
		{"png", "tree.svg", export.FormatPNG},
	}
	for _, tt := range tests {
		got, err := outputFormat(tt.flag, tt.out)
		require.NoError(t, err, tt.out)
		assert.Equal(t, tt.want, got, tt.out)
	}
}
