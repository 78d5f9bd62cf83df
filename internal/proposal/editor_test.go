package proposal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditItemRecordsChangedFields(t *testing.T) {
	editor := NewEditor(exampleSections(), nil)

	changes, err := editor.EditItem(0, 0, Item{Name: "Build", Description: "Native build", Hours: 70, Price: 7000})
	require.NoError(t, err)
	require.Len(t, changes, 3)

	fields := []string{changes[0].Field, changes[1].Field, changes[2].Field}
	assert.Equal(t, []string{FieldDescription, FieldHours, FieldPrice}, fields)
	assert.Equal(t, "$6,000", changes[2].OldValue)
	assert.Equal(t, "$7,000", changes[2].NewValue)
	assert.Equal(t, "Scope of Work", changes[2].SectionTitle)
	assert.Equal(t, "Build", changes[2].ItemName)

	assert.Equal(t, 11000.0, editor.Sections[0].Subtotal)
	assert.Equal(t, 3, editor.Log.Len())
	assert.Equal(t, FieldPrice, editor.Log.Entries()[0].Field)
}

func TestEditItemWithoutChangesRecordsNothing(t *testing.T) {
	editor := NewEditor(exampleSections(), nil)
	same := editor.Sections[0].Items[1]

	changes, err := editor.EditItem(0, 1, same)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, 0, editor.Log.Len())
}

func TestEditItemRecordsCentsInPriceChanges(t *testing.T) {
	editor := NewEditor([]Section{{Title: "Budget", Items: []Item{{Name: "Hosting", Hours: 1, Price: 100}}}}, nil)

	changes, err := editor.EditItem(0, 0, Item{Name: "Hosting", Hours: 1, Price: 99.99})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "$100", changes[0].OldValue)
	assert.Equal(t, "$99.99", changes[0].NewValue)

	changes, err = editor.EditItem(0, 0, Item{Name: "Hosting", Hours: 1, Price: 99.991})
	require.NoError(t, err)
	assert.Empty(t, changes, "sub-cent changes are not recorded")
	assert.Equal(t, 99.991, editor.Sections[0].Items[0].Price)
}

func TestEditItemOutOfRange(t *testing.T) {
	editor := NewEditor(exampleSections(), nil)

	_, err := editor.EditItem(3, 0, Item{})
	assert.ErrorIs(t, err, ErrSectionNotFound)
	_, err = editor.EditItem(0, 9, Item{})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestAddAndDeleteItem(t *testing.T) {
	editor := NewEditor(exampleSections(), nil)

	require.NoError(t, editor.AddItem(0, Item{Name: "QA", Hours: 5, Price: 500}))
	assert.Equal(t, 10500.0, editor.Sections[0].Subtotal)

	rev, err := editor.DeleteItem(0, 0)
	require.NoError(t, err)
	assert.Equal(t, FieldDeleted, rev.Field)
	assert.Equal(t, "Build", rev.OldValue)
	assert.Equal(t, 4500.0, editor.Sections[0].Subtotal)
	require.Len(t, editor.Sections[0].Items, 2)
	assert.Equal(t, "Launch", editor.Sections[0].Items[0].Name)
	assert.Equal(t, 1, editor.Log.Len())
}

func TestSectionLifecycle(t *testing.T) {
	editor := NewEditor(exampleSections(), nil)

	index := editor.AddSection("Support")
	assert.Equal(t, 1, index)

	rename, err := editor.RenameSection(index, "Maintenance")
	require.NoError(t, err)
	assert.Equal(t, FieldTitle, rename.Field)
	assert.Equal(t, "Support", rename.OldValue)
	assert.Equal(t, "Maintenance", rename.NewValue)

	deleted, err := editor.DeleteSection(0)
	require.NoError(t, err)
	assert.Equal(t, "Scope of Work", deleted.OldValue)
	require.Len(t, editor.Sections, 1)
	assert.Equal(t, "Maintenance", editor.Sections[0].Title)

	entries := editor.Log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, deleted.ID, entries[0].ID)

	_, err = editor.RenameSection(5, "x")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}
