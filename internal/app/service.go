package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"proposals/api/internal/auth"
	"proposals/api/internal/authpw"
	"proposals/api/internal/config"
	"proposals/api/internal/draft"
	"proposals/api/internal/export"
	"proposals/api/internal/generation"
	"proposals/api/internal/plan"
	"proposals/api/internal/proposal"
	"proposals/api/internal/search"
	"proposals/api/internal/store"
)

type Session struct {
	Token     string
	UserID    string
	UserName  string
	Email     string
	Plan      plan.Plan
	ExpiresAt time.Time
}

type dataStore interface {
	store.Inserter
	authpw.UserStore
	GetUserByID(context.Context, string) (store.User, error)
	ListProposals(context.Context, string) ([]store.ProposalSummary, error)
	GetProposal(context.Context, string, string) (store.Proposal, error)
	LoadProposalSections(context.Context, string) ([]proposal.Section, error)
	DeleteProposal(context.Context, string, string) error
	SearchProposals(context.Context, string, string, int) ([]store.ProposalSummary, error)
	Ping(ctx context.Context) error
}

type proposalGenerator interface {
	Generate(context.Context, generation.Input, generation.UpdateFunc) ([]proposal.Section, error)
}

type searcher interface {
	Search(context.Context, search.Query) search.Response
	IndexProposal(search.ProposalRecord)
	DeleteProposal(string)
}

type exporter interface {
	Export(context.Context, export.Request) (*export.Result, error)
}

// Dependencies are the collaborators a Service is built from. Search and
// Export may be nil; the matching endpoints then report 503.
type Dependencies struct {
	Store     dataStore
	Drafts    draft.Store
	Generator proposalGenerator
	Search    searcher
	Export    exporter
	Logger    *zap.Logger
}

type Service struct {
	cfg       config.Config
	store     dataStore
	drafts    draft.Store
	generator proposalGenerator
	search    searcher
	export    exporter
	passwords *authpw.Service
	logger    *zap.Logger
}

func New(cfg config.Config, deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	drafts := deps.Drafts
	if drafts == nil {
		drafts = draft.NewMemoryStore(cfg.DraftTTL)
	}
	return &Service{
		cfg:       cfg,
		store:     deps.Store,
		drafts:    drafts,
		generator: deps.Generator,
		search:    deps.Search,
		export:    deps.Export,
		passwords: authpw.NewService(deps.Store),
		logger:    logger,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	user, err := s.passwords.SignUp(ctx, authpw.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return s.issueSession(user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(user)
}

func (s *Service) issueSession(user store.User) (Session, error) {
	claims := auth.NewClaims(user.ID, user.DisplayName, user.Email, s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), claims)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		Plan:      plan.Effective(user.Plan, user.SubscriptionStatus),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SessionFromToken validates a bearer token and reloads the user so that plan
// changes apply without a new sign-in.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		Plan:      plan.Effective(user.Plan, user.SubscriptionStatus),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Can(session Session, action plan.Action) bool {
	return plan.Can(session.Plan, action)
}

func (s *Service) require(session Session, action plan.Action) error {
	if s.Can(session, action) {
		return nil
	}
	return domainError(http.StatusPaymentRequired, "PLAN_REQUIRED", "Your plan does not include this feature", map[string]any{
		"plan":   session.Plan,
		"action": action,
	})
}

// Generate runs the assembler for a brief. onUpdate may be nil.
func (s *Service) Generate(ctx context.Context, session Session, in generation.Input, onUpdate generation.UpdateFunc) ([]proposal.Section, error) {
	if err := s.require(session, plan.ActionGenerate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, validationError("prompt is required")
	}
	if s.generator == nil {
		return nil, unavailableError("GENERATION_UNAVAILABLE", "Generation is not configured")
	}

	started := time.Now()
	sections, err := s.generator.Generate(ctx, in, onUpdate)
	if err != nil {
		if errors.Is(err, generation.ErrNotConfigured) || errors.Is(err, generation.ErrGenerationFailed) {
			return nil, domainError(http.StatusBadGateway, "GENERATION_FAILED", "Proposal generation failed", nil)
		}
		return nil, err
	}
	s.logger.Info("proposal generated",
		zap.String("user_id", session.UserID),
		zap.Int("sections", len(sections)),
		zap.Int("items", proposal.ItemCount(sections)),
		zap.Duration("duration", time.Since(started)),
	)
	return sections, nil
}

type StoredProposal struct {
	Proposal store.Proposal
	Sections []proposal.Section
}

func (s *Service) ListProposals(ctx context.Context, session Session) ([]store.ProposalSummary, error) {
	return s.store.ListProposals(ctx, session.UserID)
}

func (s *Service) GetProposal(ctx context.Context, session Session, proposalID string) (StoredProposal, error) {
	header, err := s.store.GetProposal(ctx, proposalID, session.UserID)
	if err != nil {
		return StoredProposal{}, err
	}
	sections, err := s.store.LoadProposalSections(ctx, proposalID)
	if err != nil {
		return StoredProposal{}, err
	}
	return StoredProposal{Proposal: header, Sections: sections}, nil
}

func (s *Service) DeleteProposal(ctx context.Context, session Session, proposalID string) error {
	if err := s.store.DeleteProposal(ctx, proposalID, session.UserID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteProposal(proposalID)
	}
	return nil
}

func (s *Service) ExportProposal(ctx context.Context, session Session, proposalID string, format export.Format) (*export.Result, error) {
	if err := s.require(session, plan.ActionExport); err != nil {
		return nil, err
	}
	if s.export == nil {
		return nil, unavailableError("EXPORT_UNAVAILABLE", "Export is not configured")
	}
	result, err := s.export.Export(ctx, export.Request{ProposalID: proposalID, OwnerID: session.UserID, Format: format})
	switch {
	case errors.Is(err, export.ErrUnsupportedFormat):
		return nil, validationError("format must be pdf or html")
	case errors.Is(err, export.ErrPDFDependencyMissing):
		return nil, unavailableError("EXPORT_UNAVAILABLE", "PDF rendering is not available on this server")
	case err != nil:
		return nil, err
	}
	return result, nil
}

func (s *Service) Search(ctx context.Context, session Session, text string, limit int) (search.Response, error) {
	if err := s.require(session, plan.ActionSearch); err != nil {
		return search.Response{}, err
	}
	if s.search == nil {
		return search.Response{}, unavailableError("SEARCH_UNAVAILABLE", "Search is not configured")
	}
	return s.search.Search(ctx, search.Query{Text: text, OwnerID: session.UserID, Limit: limit}), nil
}
