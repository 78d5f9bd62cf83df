package export

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"proposals/api/internal/proposal"
	"proposals/api/internal/store"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetProposal(ctx context.Context, proposalID, ownerID string) (store.Proposal, error)
	LoadProposalSections(ctx context.Context, proposalID string) ([]proposal.Section, error)
}

// Service provides proposal export functionality
type Service struct {
	store    DataStore
	uploader Uploader
	logger   *zap.Logger
	pdf      func(ctx context.Context, html string) ([]byte, error)
	now      func() time.Time
}

// NewService creates a new export service. uploader may be nil, in which case
// exports are only returned inline.
func NewService(store DataStore, uploader Uploader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		uploader: uploader,
		logger:   logger.Named("export"),
		pdf:      renderPDF,
		now:      time.Now,
	}
}

// Export renders a stored proposal in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	if req.Format == "" {
		req.Format = FormatPDF
	}
	if req.Format != FormatPDF && req.Format != FormatHTML {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	header, err := s.store.GetProposal(ctx, req.ProposalID, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	sections, err := s.store.LoadProposalSections(ctx, req.ProposalID)
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	proposal.RecalculateSubtotals(sections)

	html, err := RenderProposalHTML(TemplateData{
		Title:      header.Title,
		ClientName: header.ClientName,
		HourlyRate: header.HourlyRate,
		Sections:   sections,
		Total:      proposal.Total(sections),
		Date:       s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	result := &Result{Filename: sanitizeFilename(header.Title)}
	switch req.Format {
	case FormatHTML:
		result.Data = []byte(html)
		result.Filename += ".html"
		result.MimeType = "text/html; charset=utf-8"
	case FormatPDF:
		data, err := s.pdf(ctx, html)
		if err != nil {
			return nil, err
		}
		result.Data = data
		result.Filename += ".pdf"
		result.MimeType = "application/pdf"
	}

	if s.uploader != nil {
		key := fmt.Sprintf("%s/%s/%d-%s", req.OwnerID, req.ProposalID, s.now().Unix(), result.Filename)
		url, err := s.uploader.Upload(ctx, key, result.Data, result.MimeType)
		if err != nil {
			// The inline export is still usable.
			s.logger.Warn("upload export failed", zap.String("proposal_id", req.ProposalID), zap.Error(err))
		} else {
			result.ObjectKey = key
			result.URL = url
		}
	}
	return result, nil
}
