// Package typeid generates the prefixed, sortable IDs used for trees,
// operations and anonymous collaborators.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixTree = "tree"
	PrefixOp   = "op"
	PrefixAnon = "anon"
)

var ErrInvalid = errors.New("invalid id")

func New(prefix string) string {
	return typeid.MustGenerate(prefix).String()
}

func NewTreeID() string { return New(PrefixTree) }
func NewOpID() string   { return New(PrefixOp) }
func NewAnonID() string { return New(PrefixAnon) }

// Validate reports whether id parses and carries expectedPrefix.
func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalid, id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("%w: expected prefix %q but got %q", ErrInvalid, expectedPrefix, parsed.Prefix())
	}
	return nil
}

// IsTreeID is a cheap check used before hitting storage.
func IsTreeID(id string) bool {
	return Validate(id, PrefixTree) == nil
}
