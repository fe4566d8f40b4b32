package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternAllocatesSequentialIDs(t *testing.T) {
	table := New()
	assert.Equal(t, ID(0), table.Intern("hello"))
	assert.Equal(t, ID(1), table.Intern("world"))
	assert.Equal(t, ID(2), table.Intern("hello world"))
	assert.Equal(t, 3, table.Len())
}

func TestInternReturnsSameIDForEqualStrings(t *testing.T) {
	table := New()
	first := table.Intern("friend")
	table.Intern("other")
	assert.Equal(t, first, table.Intern("friend"))
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, int64(len("friend")+len("other")), table.Size())
}

func TestResolveReversesIntern(t *testing.T) {
	table := New()
	words := []string{"a", "bb", "a b", ""}
	for _, w := range words {
		assert.Equal(t, w, table.Resolve(table.Intern(w)))
	}
}

func TestLookupDoesNotIntern(t *testing.T) {
	table := New()
	_, ok := table.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())

	id := table.Intern("present")
	got, ok := table.Lookup("present")
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestResolveUnknownIDPanics(t *testing.T) {
	assert.Panics(t, func() { New().Resolve(7) })
}
