package proposal

import (
	"errors"
	"math"

	"proposals/api/internal/money"
	"proposals/api/internal/revision"
)

var (
	ErrSectionNotFound = errors.New("section not found")
	ErrItemNotFound    = errors.New("item not found")
)

// Revision field names.
const (
	FieldItem        = "item"
	FieldDescription = "description"
	FieldHours       = "hours"
	FieldPrice       = "price"
	FieldTitle       = "title"
	FieldDeleted     = "deleted"
)

// Editor applies user edits to a working set of sections and records each
// change in Log. It is not safe for concurrent use; callers hold one editor per
// editing session.
type Editor struct {
	Sections []Section
	Log      *revision.Log
}

func NewEditor(sections []Section, log *revision.Log) *Editor {
	if log == nil {
		log = revision.NewLog()
	}
	return &Editor{Sections: sections, Log: log}
}

// EditItem replaces an item and records one revision per changed field.
func (e *Editor) EditItem(sectionIndex, itemIndex int, next Item) ([]revision.Revision, error) {
	section, err := e.section(sectionIndex)
	if err != nil {
		return nil, err
	}
	if itemIndex < 0 || itemIndex >= len(section.Items) {
		return nil, ErrItemNotFound
	}
	prev := section.Items[itemIndex]

	var changes []revision.Revision
	record := func(field, oldValue, newValue string) {
		changes = append(changes, e.Log.Record(section.Title, prev.Name, field, oldValue, newValue))
	}
	if prev.Name != next.Name {
		record(FieldItem, prev.Name, next.Name)
	}
	if prev.Description != next.Description {
		record(FieldDescription, prev.Description, next.Description)
	}
	if !sameNumber(prev.Hours, next.Hours) {
		record(FieldHours, money.FormatHours(prev.Hours), money.FormatHours(next.Hours))
	}
	if !sameNumber(prev.Price, next.Price) {
		oldPrice, newPrice := money.FormatCents(prev.Price), money.FormatCents(next.Price)
		if oldPrice != newPrice {
			record(FieldPrice, oldPrice, newPrice)
		}
	}

	section.Items[itemIndex] = next
	RecalculateSubtotals(e.Sections)
	return changes, nil
}

// AddItem appends an item to a section.
func (e *Editor) AddItem(sectionIndex int, item Item) error {
	section, err := e.section(sectionIndex)
	if err != nil {
		return err
	}
	section.Items = append(section.Items, item)
	RecalculateSubtotals(e.Sections)
	return nil
}

// DeleteItem removes an item and records the deletion.
func (e *Editor) DeleteItem(sectionIndex, itemIndex int) (revision.Revision, error) {
	section, err := e.section(sectionIndex)
	if err != nil {
		return revision.Revision{}, err
	}
	if itemIndex < 0 || itemIndex >= len(section.Items) {
		return revision.Revision{}, ErrItemNotFound
	}
	removed := section.Items[itemIndex]
	section.Items = append(section.Items[:itemIndex:itemIndex], section.Items[itemIndex+1:]...)
	RecalculateSubtotals(e.Sections)
	return e.Log.Record(section.Title, removed.Name, FieldDeleted, removed.Name, ""), nil
}

// AddSection appends an empty section.
func (e *Editor) AddSection(title string) int {
	e.Sections = append(e.Sections, Section{Title: title, Items: []Item{}})
	return len(e.Sections) - 1
}

// RenameSection changes a section title and records the rename.
func (e *Editor) RenameSection(sectionIndex int, title string) (revision.Revision, error) {
	section, err := e.section(sectionIndex)
	if err != nil {
		return revision.Revision{}, err
	}
	prev := section.Title
	section.Title = title
	return e.Log.Record(prev, "", FieldTitle, prev, title), nil
}

// DeleteSection removes a section with all of its items and records the deletion.
func (e *Editor) DeleteSection(sectionIndex int) (revision.Revision, error) {
	section, err := e.section(sectionIndex)
	if err != nil {
		return revision.Revision{}, err
	}
	title := section.Title
	e.Sections = append(e.Sections[:sectionIndex:sectionIndex], e.Sections[sectionIndex+1:]...)
	return e.Log.Record(title, "", FieldDeleted, title, ""), nil
}

func (e *Editor) section(index int) (*Section, error) {
	if index < 0 || index >= len(e.Sections) {
		return nil, ErrSectionNotFound
	}
	return &e.Sections[index], nil
}

func sameNumber(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}
