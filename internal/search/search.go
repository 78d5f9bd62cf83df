package search

import (
	"context"
	"time"

	"proposals/api/internal/proposal"
	"proposals/api/internal/store"
)

// Result is a single search hit returned to the caller.
type Result struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	ClientName string  `json:"clientName"`
	Snippet    string  `json:"snippet"`
	Total      float64 `json:"total"`
}

// Query describes a search request. OwnerID is required; results never cross
// accounts.
type Query struct {
	Text    string
	OwnerID string
	Limit   int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Source  string   `json:"source"`
}

// ProposalRecord is the data we index for a stored proposal.
type ProposalRecord struct {
	ID            string   `json:"id"`
	OwnerID       string   `json:"ownerId"`
	Title         string   `json:"title"`
	ClientName    string   `json:"clientName"`
	SectionTitles []string `json:"sectionTitles"`
	ItemNames     []string `json:"itemNames"`
	Total         float64  `json:"total"`
	UpdatedAt     int64    `json:"updatedAt"`
}

// NewProposalRecord flattens a stored proposal and its sections into an
// index record.
func NewProposalRecord(p store.Proposal, sections []proposal.Section) ProposalRecord {
	record := ProposalRecord{
		ID:            p.ID,
		OwnerID:       p.OwnerID,
		Title:         p.Title,
		ClientName:    p.ClientName,
		SectionTitles: make([]string, 0, len(sections)),
		ItemNames:     []string{},
		Total:         p.Total,
		UpdatedAt:     p.UpdatedAt.Unix(),
	}
	if p.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().Unix()
	}
	for _, section := range sections {
		record.SectionTitles = append(record.SectionTitles, section.Title)
		for _, item := range section.Items {
			record.ItemNames = append(record.ItemNames, item.Name)
		}
	}
	return record
}

// Source is the relational fallback the facade queries when the index is
// unavailable.
type Source interface {
	SearchProposals(ctx context.Context, ownerID, query string, limit int) ([]store.ProposalSummary, error)
}
