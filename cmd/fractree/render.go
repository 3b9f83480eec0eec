package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fractree/fractree/internal/engine"
	"github.com/fractree/fractree/internal/export"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a tree to JSON, SVG or PNG",
	Long: `Render a tree to a file or stdout. The format defaults to the --out
extension, or svg when writing to stdout.`,
	Example: `  fractree render --preset fern --out fern.png
  fractree render -q "x1=410&y1=380&mode=straight" --depth 8 > tree.svg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd)
	},
}

func init() {
	addSourceFlags(renderCmd)
	renderCmd.Flags().String("format", "", "Output format: json, svg or png")
	renderCmd.Flags().StringP("out", "o", "-", "Output file, - for stdout")
	renderCmd.Flags().IntP("depth", "d", engine.DefaultMaxDepth, fmt.Sprintf("Generations grown below the trunk's two branches (0-%d)", engine.MaxDepthLimit))
	renderCmd.Flags().Int("width", 800, "Image width in pixels")
	renderCmd.Flags().Int("height", 800, "Image height in pixels")
	rootCmd.AddCommand(renderCmd)
}

// outputFormat picks the format from the flag, then the file extension.
func outputFormat(flag, out string) (export.Format, error) {
	if flag != "" {
		return export.ParseFormat(flag)
	}
	if out == "" || out == "-" {
		return export.FormatSVG, nil
	}
	ext := strings.TrimPrefix(filepath.Ext(out), ".")
	if ext == "" {
		return export.FormatSVG, nil
	}
	return export.ParseFormat(strings.ToLower(ext))
}

func runRender(cmd *cobra.Command) error {
	doc, err := loadSource(cmd)
	if err != nil {
		return err
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	depth, _ := cmd.Flags().GetInt("depth")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")

	format, err := outputFormat(formatFlag, out)
	if err != nil {
		return err
	}
	if depth < 0 || depth > engine.MaxDepthLimit {
		return fmt.Errorf("depth must be between 0 and %d", engine.MaxDepthLimit)
	}

	opts := export.DefaultOptions()
	opts.Width, opts.Height = width, height

	var w io.Writer = cmd.OutOrStdout()
	if out != "-" && out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	slog.Debug("rendering", "name", doc.Name, "format", format, "depth", depth, "segments", engine.GrowSize(2, depth))
	if err := export.Write(w, format, export.SceneFromDocument(doc, depth), opts); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	return nil
}
