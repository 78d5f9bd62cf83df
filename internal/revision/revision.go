// Package revision records field-level changes made to a proposal while it is
// being edited. The log lives only as long as the editing session.
package revision

import (
	"time"

	"github.com/google/uuid"
)

// Revision is one field-level change.
type Revision struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	SectionTitle string    `json:"sectionTitle"`
	ItemName     string    `json:"itemName"`
	Field        string    `json:"field"`
	OldValue     string    `json:"oldValue"`
	NewValue     string    `json:"newValue"`
}

// New stamps a change with the current time and a time-ordered id.
func New(sectionTitle, itemName, field, oldValue, newValue string) Revision {
	now := time.Now().UTC()
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Revision{
		ID:           id.String(),
		Date:         now,
		SectionTitle: sectionTitle,
		ItemName:     itemName,
		Field:        field,
		OldValue:     oldValue,
		NewValue:     newValue,
	}
}

// Log is an append-only list of revisions ordered newest first.
type Log struct {
	entries []Revision
}

// NewLog restores a log from entries that are already newest first.
func NewLog(entries ...Revision) *Log {
	log := &Log{entries: make([]Revision, len(entries))}
	copy(log.entries, entries)
	return log
}

// Record creates a revision and puts it at the head of the log.
func (l *Log) Record(sectionTitle, itemName, field, oldValue, newValue string) Revision {
	rev := New(sectionTitle, itemName, field, oldValue, newValue)
	l.entries = append([]Revision{rev}, l.entries...)
	return rev
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []Revision {
	out := make([]Revision, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports how many revisions have been recorded.
func (l *Log) Len() int {
	return len(l.entries)
}
