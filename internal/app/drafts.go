package app

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"proposals/api/internal/draft"
	"proposals/api/internal/money"
	"proposals/api/internal/plan"
	"proposals/api/internal/proposal"
	"proposals/api/internal/revision"
	"proposals/api/internal/search"
	"proposals/api/internal/store"
	"proposals/api/internal/util"
)

type CreateDraftInput struct {
	Title       string             `json:"title"`
	ClientName  string             `json:"clientName"`
	HourlyRate  float64            `json:"hourlyRate"`
	Budget      float64            `json:"budget"`
	HoursLocked bool               `json:"hoursLocked"`
	Sections    []proposal.Section `json:"sections"`
	// FromProposalID reopens a stored proposal for editing. Sections and
	// settings are then taken from the stored copy.
	FromProposalID string `json:"fromProposalId"`
}

type UpdateDraftInput struct {
	Title       *string  `json:"title"`
	ClientName  *string  `json:"clientName"`
	HourlyRate  *float64 `json:"hourlyRate"`
	Budget      *float64 `json:"budget"`
	HoursLocked *bool    `json:"hoursLocked"`
}

var errDraftNotFound = domainError(http.StatusNotFound, "DRAFT_NOT_FOUND", "Draft not found or expired", nil)

func (s *Service) CreateDraft(ctx context.Context, session Session, input CreateDraftInput) (draft.Draft, error) {
	if err := s.require(session, plan.ActionEdit); err != nil {
		return draft.Draft{}, err
	}

	d := draft.Draft{
		ID:          util.NewID("draft"),
		OwnerID:     session.UserID,
		Title:       strings.TrimSpace(input.Title),
		ClientName:  strings.TrimSpace(input.ClientName),
		HourlyRate:  input.HourlyRate,
		Budget:      input.Budget,
		HoursLocked: input.HoursLocked,
		Sections:    proposal.Clone(input.Sections),
		Revisions:   []revision.Revision{},
		UpdatedAt:   time.Now().UTC(),
	}

	if input.FromProposalID != "" {
		stored, err := s.GetProposal(ctx, session, input.FromProposalID)
		if err != nil {
			return draft.Draft{}, err
		}
		d.Title = stored.Proposal.Title
		d.ClientName = stored.Proposal.ClientName
		d.HourlyRate = stored.Proposal.HourlyRate
		d.Budget = stored.Proposal.Budget
		d.HoursLocked = stored.Proposal.HoursLocked
		d.Sections = stored.Sections
	}

	if d.Title == "" {
		d.Title = "Untitled proposal"
	}
	if d.Sections == nil {
		d.Sections = []proposal.Section{}
	}
	proposal.RecalculateSubtotals(d.Sections)

	if err := s.drafts.Put(ctx, d); err != nil {
		return draft.Draft{}, err
	}
	return d, nil
}

func (s *Service) GetDraft(ctx context.Context, session Session, draftID string) (draft.Draft, error) {
	d, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		if errors.Is(err, draft.ErrNotFound) {
			return draft.Draft{}, errDraftNotFound
		}
		return draft.Draft{}, err
	}
	if d.OwnerID != session.UserID {
		return draft.Draft{}, errDraftNotFound
	}
	return d, nil
}

func (s *Service) DeleteDraft(ctx context.Context, session Session, draftID string) error {
	if _, err := s.GetDraft(ctx, session, draftID); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, draftID)
}

// editDraft loads a draft, applies fn through an editor and stores the result.
func (s *Service) editDraft(ctx context.Context, session Session, draftID string, fn func(*proposal.Editor) error) (draft.Draft, error) {
	if err := s.require(session, plan.ActionEdit); err != nil {
		return draft.Draft{}, err
	}
	d, err := s.GetDraft(ctx, session, draftID)
	if err != nil {
		return draft.Draft{}, err
	}

	editor := d.Editor()
	if err := fn(editor); err != nil {
		return draft.Draft{}, mapEditError(err)
	}
	d.Apply(editor)

	if err := s.drafts.Put(ctx, d); err != nil {
		return draft.Draft{}, err
	}
	return d, nil
}

func mapEditError(err error) error {
	switch {
	case errors.Is(err, proposal.ErrSectionNotFound):
		return domainError(http.StatusNotFound, "SECTION_NOT_FOUND", "Section not found", nil)
	case errors.Is(err, proposal.ErrItemNotFound):
		return domainError(http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found", nil)
	default:
		return err
	}
}

// UpdateDraft changes draft settings. Only non-nil fields are applied.
func (s *Service) UpdateDraft(ctx context.Context, session Session, draftID string, input UpdateDraftInput) (draft.Draft, error) {
	if err := s.require(session, plan.ActionEdit); err != nil {
		return draft.Draft{}, err
	}
	d, err := s.GetDraft(ctx, session, draftID)
	if err != nil {
		return draft.Draft{}, err
	}

	if input.Title != nil {
		if title := strings.TrimSpace(*input.Title); title != "" {
			d.Title = title
		}
	}
	if input.ClientName != nil {
		d.ClientName = strings.TrimSpace(*input.ClientName)
	}
	if input.HourlyRate != nil {
		d.HourlyRate = *input.HourlyRate
	}
	if input.Budget != nil {
		d.Budget = *input.Budget
	}
	if input.HoursLocked != nil {
		d.HoursLocked = *input.HoursLocked
	}
	d.UpdatedAt = time.Now().UTC()

	if err := s.drafts.Put(ctx, d); err != nil {
		return draft.Draft{}, err
	}
	return d, nil
}

func (s *Service) AddSection(ctx context.Context, session Session, draftID, title string) (draft.Draft, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return draft.Draft{}, validationError("title is required")
	}
	return s.editDraft(ctx, session, draftID, func(e *proposal.Editor) error {
		e.AddSection(title)
		return nil
	})
}

func (s *Service) RenameSection(ctx context.Context, session Session, draftID string, sectionIndex int, title string) (draft.Draft, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return draft.Draft{}, validationError("title is required")
	}
	return s.editDraft(ctx, session, draftID, func(e *proposal.Editor) error {
		_, err := e.RenameSection(sectionIndex, title)
		return err
	})
}

func (s *Service) DeleteSection(ctx context.Context, session Session, draftID string, sectionIndex int) (draft.Draft, error) {
	return s.editDraft(ctx, session, draftID, func(e *proposal.Editor) error {
		_, err := e.DeleteSection(sectionIndex)
		return err
	})
}

func (s *Service) AddItem(ctx context.Context, session Session, draftID string, sectionIndex int, item proposal.Item) (draft.Draft, error) {
	return s.editDraft(ctx, session, draftID, func(e *proposal.Editor) error {
		return e.AddItem(sectionIndex, item)
	})
}

func (s *Service) EditItem(ctx context.Context, session Session, draftID string, sectionIndex, itemIndex int, item proposal.Item) (draft.Draft, error) {
	return s.editDraft(ctx, session, draftID, func(e *proposal.Editor) error {
		_, err := e.EditItem(sectionIndex, itemIndex, item)
		return err
	})
}

func (s *Service) DeleteItem(ctx context.Context, session Session, draftID string, sectionIndex, itemIndex int) (draft.Draft, error) {
	return s.editDraft(ctx, session, draftID, func(e *proposal.Editor) error {
		_, err := e.DeleteItem(sectionIndex, itemIndex)
		return err
	})
}

// Reconcile rescales every item so the draft total approaches targetBudget.
// A nil target uses the draft's stored budget. The adjustment is not recorded
// as revisions.
func (s *Service) Reconcile(ctx context.Context, session Session, draftID string, targetBudget *float64) (draft.Draft, error) {
	if err := s.require(session, plan.ActionEdit); err != nil {
		return draft.Draft{}, err
	}
	d, err := s.GetDraft(ctx, session, draftID)
	if err != nil {
		return draft.Draft{}, err
	}

	target := d.Budget
	if targetBudget != nil {
		target = *targetBudget
	}
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return draft.Draft{}, validationError("targetBudget must be a finite number")
	}

	before := proposal.Total(d.Sections)
	proposal.AdjustSectionsToMatchBudget(d.Sections, target, d.HourlyRate, d.HoursLocked)
	d.Budget = target
	d.UpdatedAt = time.Now().UTC()

	if err := s.drafts.Put(ctx, d); err != nil {
		return draft.Draft{}, err
	}
	s.logger.Debug("draft reconciled",
		zap.String("draft_id", d.ID),
		zap.String("before", money.Format(before)),
		zap.String("after", money.Format(proposal.Total(d.Sections))),
		zap.String("target", money.Format(target)),
	)
	return d, nil
}

func (s *Service) Revisions(ctx context.Context, session Session, draftID string) ([]revision.Revision, error) {
	d, err := s.GetDraft(ctx, session, draftID)
	if err != nil {
		return nil, err
	}
	if d.Revisions == nil {
		return []revision.Revision{}, nil
	}
	return d.Revisions, nil
}

// SaveDraft persists a draft as a new stored proposal. The draft stays open
// and its revisions are not persisted.
func (s *Service) SaveDraft(ctx context.Context, session Session, draftID string) (store.SaveResult, error) {
	if err := s.require(session, plan.ActionSave); err != nil {
		return store.SaveResult{}, err
	}
	d, err := s.GetDraft(ctx, session, draftID)
	if err != nil {
		return store.SaveResult{}, err
	}

	if limit := plan.MaxProposals(session.Plan); limit > 0 {
		existing, err := s.store.ListProposals(ctx, session.UserID)
		if err != nil {
			return store.SaveResult{}, err
		}
		if len(existing) >= limit {
			return store.SaveResult{}, domainError(http.StatusPaymentRequired, "PLAN_LIMIT", "Stored proposal limit reached for your plan", map[string]any{
				"plan":  session.Plan,
				"limit": limit,
			})
		}
	}

	header := store.Proposal{
		OwnerID:     session.UserID,
		Title:       d.Title,
		ClientName:  d.ClientName,
		HourlyRate:  d.HourlyRate,
		Budget:      d.Budget,
		HoursLocked: d.HoursLocked,
	}
	result, err := store.SaveProposal(ctx, s.store, s.logger, header, d.Sections)
	if err != nil {
		return store.SaveResult{}, err
	}

	if s.search != nil {
		header.ID = result.ID
		header.Total = proposal.Total(d.Sections)
		s.search.IndexProposal(search.NewProposalRecord(header, d.Sections))
	}
	return result, nil
}
