package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the share query of a tree",
	Long: `Print the share query for a tree so it can be opened in the editor.
With --yaml the tree is printed as a YAML file instead, which turns a
share query back into an editable file.`,
	Example: `  fractree query --file tree.yaml
  fractree query -q "x1=410&y1=380" --yaml > tree.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadSource(cmd)
		if err != nil {
			return err
		}

		if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
			data, err := doc.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), doc.Encode())
		return err
	},
}

func init() {
	addSourceFlags(queryCmd)
	queryCmd.Flags().Bool("yaml", false, "Print the tree as YAML")
	rootCmd.AddCommand(queryCmd)
}

// parseQuery accepts a bare query, one with a leading "?", or a full URL.
func parseQuery(raw string) (url.Values, error) {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("parse query: %w", err)
	}
	return q, nil
}
