package revision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStampsRecord(t *testing.T) {
	rev := New("Scope of Work", "Design", "price", "$100", "$200")
	assert.NotEmpty(t, rev.ID)
	assert.False(t, rev.Date.IsZero())
	assert.Equal(t, "Scope of Work", rev.SectionTitle)
	assert.Equal(t, "Design", rev.ItemName)
	assert.Equal(t, "price", rev.Field)
	assert.Equal(t, "$100", rev.OldValue)
	assert.Equal(t, "$200", rev.NewValue)
}

func TestLogIsNewestFirst(t *testing.T) {
	log := NewLog()
	first := log.Record("A", "x", "hours", "1", "2")
	second := log.Record("A", "x", "hours", "2", "3")

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEntriesReturnsCopy(t *testing.T) {
	log := NewLog()
	log.Record("A", "x", "item", "old", "new")

	entries := log.Entries()
	entries[0].Field = "mutated"

	assert.Equal(t, "item", log.Entries()[0].Field)
}

func TestNewLogRestoresEntries(t *testing.T) {
	seed := []Revision{New("A", "x", "price", "$1", "$2")}
	log := NewLog(seed...)
	log.Record("B", "y", "price", "$3", "$4")

	assert.Equal(t, 2, log.Len())
	assert.Equal(t, seed[0].ID, log.Entries()[1].ID)
}
