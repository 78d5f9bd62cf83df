package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"proposals/api/internal/proposal"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = `id, email, display_name, password_hash, plan, subscription_status, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.Plan,
		&user.SubscriptionStatus,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, displayName, passwordHash string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, display_name, password_hash)
		VALUES (LOWER($1), $2, $3)
		RETURNING `+userColumns, email, displayName, passwordHash)
	user, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = LOWER($1)`, email)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (s *PostgresStore) UpdateUserPlan(ctx context.Context, email, plan, subscriptionStatus string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET plan = $2, subscription_status = $3, updated_at = NOW()
		WHERE email = LOWER($1)
		RETURNING `+userColumns, email, plan, subscriptionStatus)
	return scanUser(row)
}

func (s *PostgresStore) InsertProposal(ctx context.Context, p Proposal) (string, error) {
	status := p.Status
	if status == "" {
		status = "draft"
	}
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO proposals (owner_id, title, client_name, hourly_rate, budget, total, hours_locked, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, p.OwnerID, p.Title, p.ClientName, p.HourlyRate, p.Budget, p.Total, p.HoursLocked, status).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert proposal: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) InsertSection(ctx context.Context, section Section) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO proposal_sections (proposal_id, title, subtotal, position)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, section.ProposalID, section.Title, section.Subtotal, section.Position).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert section: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) InsertItem(ctx context.Context, item Item) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO proposal_items (section_id, name, description, hours, price, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, item.SectionID, item.Name, item.Description, item.Hours, item.Price, item.Position).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert item: %w", err)
	}
	return id, nil
}

const proposalSummaryQuery = `
	SELECT p.id, p.owner_id, p.title, p.client_name, p.status, p.hourly_rate, p.budget, p.total,
	       p.hours_locked, p.created_at, p.updated_at,
	       (SELECT COUNT(*) FROM proposal_sections ps WHERE ps.proposal_id = p.id),
	       (SELECT COUNT(*) FROM proposal_items pi
	          JOIN proposal_sections ps ON ps.id = pi.section_id
	         WHERE ps.proposal_id = p.id)
	FROM proposals p
`

func scanSummaries(rows *sql.Rows) ([]ProposalSummary, error) {
	defer rows.Close()
	summaries := []ProposalSummary{}
	for rows.Next() {
		var summary ProposalSummary
		if err := rows.Scan(
			&summary.ID,
			&summary.OwnerID,
			&summary.Title,
			&summary.ClientName,
			&summary.Status,
			&summary.HourlyRate,
			&summary.Budget,
			&summary.Total,
			&summary.HoursLocked,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.SectionCount,
			&summary.ItemCount,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *PostgresStore) ListProposals(ctx context.Context, ownerID string) ([]ProposalSummary, error) {
	rows, err := s.db.QueryContext(ctx, proposalSummaryQuery+`
		WHERE p.owner_id = $1
		ORDER BY p.updated_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return scanSummaries(rows)
}

// ListAllProposals returns every stored proposal regardless of owner, oldest
// first. Only the reindex command uses it.
func (s *PostgresStore) ListAllProposals(ctx context.Context) ([]ProposalSummary, error) {
	rows, err := s.db.QueryContext(ctx, proposalSummaryQuery+`
		ORDER BY p.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list all proposals: %w", err)
	}
	return scanSummaries(rows)
}

// SearchProposals is the database fallback used when the search index is
// unavailable. It matches titles, client names, and item names.
func (s *PostgresStore) SearchProposals(ctx context.Context, ownerID, query string, limit int) ([]ProposalSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := s.db.QueryContext(ctx, proposalSummaryQuery+`
		WHERE p.owner_id = $1
		  AND (
			p.title ILIKE $2
			OR p.client_name ILIKE $2
			OR EXISTS (
				SELECT 1 FROM proposal_items pi
				JOIN proposal_sections ps ON ps.id = pi.section_id
				WHERE ps.proposal_id = p.id AND pi.name ILIKE $2
			)
		  )
		ORDER BY p.updated_at DESC
		LIMIT $3
	`, ownerID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search proposals: %w", err)
	}
	return scanSummaries(rows)
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func (s *PostgresStore) GetProposal(ctx context.Context, proposalID, ownerID string) (Proposal, error) {
	var p Proposal
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, client_name, status, hourly_rate, budget, total, hours_locked, created_at, updated_at
		FROM proposals
		WHERE id = $1 AND owner_id = $2
	`, proposalID, ownerID).Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.ClientName,
		&p.Status,
		&p.HourlyRate,
		&p.Budget,
		&p.Total,
		&p.HoursLocked,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// LoadProposalSections rebuilds the editable section tree of a stored
// proposal, ordered by position.
func (s *PostgresStore) LoadProposalSections(ctx context.Context, proposalID string) ([]proposal.Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ps.id, ps.title, ps.subtotal, pi.name, pi.description, pi.hours, pi.price
		FROM proposal_sections ps
		LEFT JOIN proposal_items pi ON pi.section_id = ps.id
		WHERE ps.proposal_id = $1
		ORDER BY ps.position, ps.id, pi.position, pi.id
	`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("load sections: %w", err)
	}
	defer rows.Close()

	sections := []proposal.Section{}
	lastID := ""
	for rows.Next() {
		var (
			sectionID   string
			title       string
			subtotal    float64
			name        sql.NullString
			description sql.NullString
			hours       sql.NullFloat64
			price       sql.NullFloat64
		)
		if err := rows.Scan(&sectionID, &title, &subtotal, &name, &description, &hours, &price); err != nil {
			return nil, err
		}
		if sectionID != lastID {
			sections = append(sections, proposal.Section{Title: title, Subtotal: subtotal, Items: []proposal.Item{}})
			lastID = sectionID
		}
		if !name.Valid {
			continue
		}
		current := &sections[len(sections)-1]
		current.Items = append(current.Items, proposal.Item{
			Name:        name.String,
			Description: description.String,
			Hours:       hours.Float64,
			Price:       price.Float64,
		})
	}
	return sections, rows.Err()
}

func (s *PostgresStore) DeleteProposal(ctx context.Context, proposalID, ownerID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM proposals WHERE id = $1 AND owner_id = $2`, proposalID, ownerID)
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
