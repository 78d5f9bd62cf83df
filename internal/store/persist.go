package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"proposals/api/internal/money"
	"proposals/api/internal/proposal"
)

// Inserter is the write side SaveProposal needs. PostgresStore satisfies it.
type Inserter interface {
	InsertProposal(ctx context.Context, p Proposal) (string, error)
	InsertSection(ctx context.Context, section Section) (string, error)
	InsertItem(ctx context.Context, item Item) (string, error)
}

type SaveResult struct {
	Success        bool   `json:"success"`
	ID             string `json:"id"`
	FailedSections int    `json:"failedSections,omitempty"`
	FailedItems    int    `json:"failedItems,omitempty"`
}

// SaveProposal flattens sections into the proposal, section and item tables.
// Rows are written one at a time with no surrounding transaction: a failed
// section or item is logged and skipped, and whatever was already written
// stays. Only a failed proposal insert is returned as an error.
func SaveProposal(ctx context.Context, ins Inserter, logger *zap.Logger, header Proposal, sections []proposal.Section) (SaveResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	header.Total = proposal.Total(sections)

	proposalID, err := ins.InsertProposal(ctx, header)
	if err != nil {
		return SaveResult{}, fmt.Errorf("save proposal: %w", err)
	}

	result := SaveResult{Success: true, ID: proposalID}
	log := logger.With(zap.String("proposal_id", proposalID))

	for si, section := range sections {
		sectionID, err := ins.InsertSection(ctx, Section{
			ProposalID: proposalID,
			Title:      section.Title,
			Subtotal:   money.OrZero(section.Subtotal),
			Position:   si,
		})
		if err != nil {
			result.FailedSections++
			log.Warn("section insert failed",
				zap.Int("position", si),
				zap.String("title", section.Title),
				zap.Error(err),
			)
			continue
		}

		for ii, item := range section.Items {
			_, err := ins.InsertItem(ctx, Item{
				SectionID:   sectionID,
				Name:        item.Name,
				Description: item.Description,
				Hours:       money.OrZero(item.Hours),
				Price:       money.OrZero(item.Price),
				Position:    ii,
			})
			if err != nil {
				result.FailedItems++
				log.Warn("item insert failed",
					zap.String("section_id", sectionID),
					zap.Int("position", ii),
					zap.String("item", item.Name),
					zap.Error(err),
				)
			}
		}
	}

	if result.FailedSections > 0 || result.FailedItems > 0 {
		log.Warn("proposal saved with missing rows",
			zap.Int("failed_sections", result.FailedSections),
			zap.Int("failed_items", result.FailedItems),
		)
	}
	return result, nil
}
