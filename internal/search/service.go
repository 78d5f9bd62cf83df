package search

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Index is the search-engine side of the facade. *Meili implements it.
type Index interface {
	Healthy() bool
	Search(q Query) ([]Result, int, error)
	IndexProposal(record ProposalRecord) error
	IndexProposals(records []ProposalRecord) error
	DeleteProposal(id string) error
}

// Service is the facade that tries Meilisearch first and falls back to the
// database.
type Service struct {
	index    Index
	fallback Source
	logger   *zap.Logger
}

// NewService creates a search service. index may be nil if Meilisearch is not
// configured.
func NewService(index Index, fallback Source, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, fallback: fallback, logger: logger.Named("search")}
}

func (s *Service) indexReady() bool {
	return s.index != nil && s.index.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to the database.
func (s *Service) Search(ctx context.Context, q Query) Response {
	q.Text = strings.TrimSpace(q.Text)
	if q.Limit <= 0 {
		q.Limit = 20
	}
	empty := Response{Results: []Result{}, Query: q.Text}
	if q.Text == "" || q.OwnerID == "" {
		return empty
	}

	if s.indexReady() {
		results, total, err := s.index.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: "index"}
		}
		s.logger.Warn("meilisearch error, falling back to database", zap.Error(err))
	}

	if s.fallback == nil {
		return empty
	}
	summaries, err := s.fallback.SearchProposals(ctx, q.OwnerID, q.Text, q.Limit)
	if err != nil {
		s.logger.Error("database search failed", zap.Error(err))
		return empty
	}
	results := make([]Result, 0, len(summaries))
	for _, summary := range summaries {
		results = append(results, Result{
			ID:         summary.ID,
			Title:      summary.Title,
			ClientName: summary.ClientName,
			Total:      summary.Total,
		})
	}
	return Response{Results: results, Total: len(results), Query: q.Text, Source: "database"}
}

// IndexProposal indexes a proposal (fire-and-forget to Meilisearch).
func (s *Service) IndexProposal(record ProposalRecord) {
	if !s.indexReady() {
		return
	}
	go func() {
		if err := s.index.IndexProposal(record); err != nil {
			s.logger.Warn("index proposal", zap.String("proposal_id", record.ID), zap.Error(err))
		}
	}()
}

// DeleteProposal removes a proposal from the index (fire-and-forget).
func (s *Service) DeleteProposal(id string) {
	if !s.indexReady() {
		return
	}
	go func() {
		if err := s.index.DeleteProposal(id); err != nil {
			s.logger.Warn("delete proposal from index", zap.String("proposal_id", id), zap.Error(err))
		}
	}()
}

// Reindex pushes records to Meilisearch synchronously. Used by the reindex
// command after a schema change.
func (s *Service) Reindex(records []ProposalRecord) error {
	if !s.indexReady() {
		return errUnhealthy
	}
	return s.index.IndexProposals(records)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
