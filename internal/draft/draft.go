// Package draft keeps proposals that are being edited, together with their
// revision history, for the lifetime of an editing session.
package draft

import (
	"context"
	"errors"
	"time"

	"proposals/api/internal/proposal"
	"proposals/api/internal/revision"
)

var ErrNotFound = errors.New("draft not found or expired")

type Draft struct {
	ID          string              `json:"id"`
	OwnerID     string              `json:"ownerId"`
	Title       string              `json:"title"`
	ClientName  string              `json:"clientName"`
	HourlyRate  float64             `json:"hourlyRate"`
	Budget      float64             `json:"budget"`
	HoursLocked bool                `json:"hoursLocked"`
	Sections    []proposal.Section  `json:"sections"`
	Revisions   []revision.Revision `json:"revisions"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Editor opens an editor over a copy of the draft's sections and revisions.
// Call Apply to write the result back.
func (d Draft) Editor() *proposal.Editor {
	return proposal.NewEditor(proposal.Clone(d.Sections), revision.NewLog(d.Revisions...))
}

// Apply copies an editor's state into the draft.
func (d *Draft) Apply(editor *proposal.Editor) {
	d.Sections = editor.Sections
	d.Revisions = editor.Log.Entries()
	d.UpdatedAt = time.Now().UTC()
}

func (d Draft) clone() Draft {
	out := d
	out.Sections = proposal.Clone(d.Sections)
	out.Revisions = append([]revision.Revision(nil), d.Revisions...)
	return out
}

// Store holds drafts keyed by id. Implementations must return copies so that
// callers can mutate a draft without affecting the stored value until Put.
type Store interface {
	Get(ctx context.Context, id string) (Draft, error)
	Put(ctx context.Context, d Draft) error
	Delete(ctx context.Context, id string) error
}
