package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a tree document from a YAML (.yaml, .yml) or JSON file.
// Fields missing from the file keep their default values.
func LoadFile(path string) (TreeDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TreeDocument{}, fmt.Errorf("read tree file: %w", err)
	}

	doc := NewDefaultDocument()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".json":
		err = json.Unmarshal(data, &doc)
	default:
		return TreeDocument{}, fmt.Errorf("unsupported tree file extension: %q", filepath.Ext(path))
	}
	if err != nil {
		return TreeDocument{}, fmt.Errorf("decode tree file %s: %w", path, err)
	}

	doc.Normalize()
	return doc, nil
}

// YAML returns the document encoded as YAML.
func (d TreeDocument) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}
