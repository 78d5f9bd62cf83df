// Package generation turns a project brief into proposal sections. A remote
// generator streams whole-state snapshots; the Assembler normalizes each one,
// prices it and republishes it to the caller as it arrives.
package generation

import (
	"context"
	"errors"

	"proposals/api/internal/proposal"
)

var (
	ErrNotConfigured    = errors.New("generation endpoint not configured")
	ErrGenerationFailed = errors.New("generation request failed")
)

// Input is the brief sent to a generator.
type Input struct {
	Prompt         string   `json:"prompt"`
	HourlyRate     float64  `json:"hourlyRate"`
	ProjectBudget  float64  `json:"projectBudget"`
	FreelancerRate float64  `json:"freelancerRate"`
	KnowledgeBase  string   `json:"knowledgeBase,omitempty"`
	UserServices   []string `json:"userServices,omitempty"`
}

// Rate is the hourly rate used to price items.
func (in Input) Rate() float64 {
	if in.HourlyRate > 0 {
		return in.HourlyRate
	}
	if in.FreelancerRate > 0 {
		return in.FreelancerRate
	}
	return 0
}

// Snapshot is the complete set of sections generated so far. Generators send
// whole state on every increment, never deltas.
type Snapshot struct {
	Sections []proposal.Section `json:"sections"`
}

// Generator produces a stream of snapshots. A non-nil error means the request
// failed before any output; the channel is closed when the stream ends.
type Generator interface {
	Generate(ctx context.Context, in Input) (<-chan Snapshot, error)
}

// Update is published to the caller after each snapshot is assembled.
type Update struct {
	Sections []proposal.Section `json:"sections"`
	Progress int                `json:"progress"`
}

type UpdateFunc func(Update)
