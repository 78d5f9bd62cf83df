package store

import "time"

type User struct {
	ID                 string
	Email              string
	DisplayName        string
	PasswordHash       string
	Plan               string
	SubscriptionStatus string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Proposal is the stored header row. Sections and items live in their own
// tables and are loaded with LoadProposalSections.
type Proposal struct {
	ID          string
	OwnerID     string
	Title       string
	ClientName  string
	Status      string
	HourlyRate  float64
	Budget      float64
	Total       float64
	HoursLocked bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Section struct {
	ID         string
	ProposalID string
	Title      string
	Subtotal   float64
	Position   int
}

type Item struct {
	ID          string
	SectionID   string
	Name        string
	Description string
	Hours       float64
	Price       float64
	Position    int
}

type ProposalSummary struct {
	Proposal
	SectionCount int
	ItemCount    int
}
