package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTreeID(t *testing.T) {
	id := NewTreeID()
	assert.True(t, strings.HasPrefix(id, "tree_"), id)
	require.NoError(t, Validate(id, PrefixTree))
	assert.NotEqual(t, id, NewTreeID())
	assert.True(t, IsTreeID(id))
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(NewOpID(), PrefixTree), ErrInvalid)
	assert.ErrorIs(t, Validate("not-an-id", PrefixTree), ErrInvalid)
	assert.NoError(t, Validate(NewOpID(), PrefixOp))
	assert.NoError(t, Validate(NewAnonID(), PrefixAnon))

	assert.False(t, IsTreeID("tree_missing"))
	assert.False(t, IsTreeID(""))
}
