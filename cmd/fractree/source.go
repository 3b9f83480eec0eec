package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fractree/fractree/internal/document"
)

// addSourceFlags registers the flags that pick which tree to load.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "Tree file (.yaml, .yml or .json)")
	cmd.Flags().StringP("preset", "p", "", "Built-in tree: "+strings.Join(document.PresetNames(), ", "))
	cmd.Flags().StringP("query", "q", "", "Share query applied on top of the file or preset")
}

// loadSource builds the tree selected by the source flags. The file or
// preset is the base, then the query overrides individual fields.
func loadSource(cmd *cobra.Command) (document.TreeDocument, error) {
	file, _ := cmd.Flags().GetString("file")
	preset, _ := cmd.Flags().GetString("preset")
	query, _ := cmd.Flags().GetString("query")

	if file != "" && preset != "" {
		return document.TreeDocument{}, fmt.Errorf("--file and --preset are mutually exclusive")
	}

	doc := document.NewDefaultDocument()
	switch {
	case file != "":
		loaded, err := document.LoadFile(file)
		if err != nil {
			return document.TreeDocument{}, err
		}
		doc = loaded
	case preset != "":
		p, ok := document.Preset(preset)
		if !ok {
			return document.TreeDocument{}, fmt.Errorf("unknown preset %q", preset)
		}
		doc = p
	}

	if query != "" {
		q, err := parseQuery(query)
		if err != nil {
			return document.TreeDocument{}, err
		}
		doc = document.FromQuery(q, doc)
	}
	return doc, nil
}
