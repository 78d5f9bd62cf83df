package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"proposals/api/internal/proposal"
	"proposals/api/internal/revision"
)

const defaultTTL = 12 * time.Hour

// RedisStore keeps drafts as JSON values with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: "draft:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (Draft, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("get draft: %w", err)
	}

	var stored storedDraft
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return stored.draft(), nil
}

// Put writes the draft and resets its TTL.
func (s *RedisStore) Put(ctx context.Context, d Draft) error {
	raw, err := json.Marshal(newStoredDraft(d))
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.client.Set(ctx, s.key(d.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// storedDraft is the Redis encoding of a draft. Item amounts are kept as raw
// numbers rather than display strings so that cents and unparsed (NaN) values
// survive a round trip; a nil amount means the value was not a number.
type storedDraft struct {
	ID          string              `json:"id"`
	OwnerID     string              `json:"ownerId"`
	Title       string              `json:"title"`
	ClientName  string              `json:"clientName"`
	HourlyRate  float64             `json:"hourlyRate"`
	Budget      float64             `json:"budget"`
	HoursLocked bool                `json:"hoursLocked"`
	Sections    []storedSection     `json:"sections"`
	Revisions   []revision.Revision `json:"revisions"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type storedSection struct {
	Title    string       `json:"title"`
	Items    []storedItem `json:"items"`
	Subtotal *float64     `json:"subtotal"`
}

type storedItem struct {
	Name        string   `json:"item"`
	Description string   `json:"description"`
	Hours       *float64 `json:"hours"`
	Price       *float64 `json:"price"`
}

func newStoredDraft(d Draft) storedDraft {
	out := storedDraft{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Title:       d.Title,
		ClientName:  d.ClientName,
		HourlyRate:  finiteOrZero(d.HourlyRate),
		Budget:      finiteOrZero(d.Budget),
		HoursLocked: d.HoursLocked,
		Sections:    make([]storedSection, 0, len(d.Sections)),
		Revisions:   d.Revisions,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, section := range d.Sections {
		items := make([]storedItem, 0, len(section.Items))
		for _, item := range section.Items {
			items = append(items, storedItem{
				Name:        item.Name,
				Description: item.Description,
				Hours:       storedNumber(item.Hours),
				Price:       storedNumber(item.Price),
			})
		}
		out.Sections = append(out.Sections, storedSection{
			Title:    section.Title,
			Items:    items,
			Subtotal: storedNumber(section.Subtotal),
		})
	}
	return out
}

func (s storedDraft) draft() Draft {
	d := Draft{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Title:       s.Title,
		ClientName:  s.ClientName,
		HourlyRate:  s.HourlyRate,
		Budget:      s.Budget,
		HoursLocked: s.HoursLocked,
		Sections:    make([]proposal.Section, 0, len(s.Sections)),
		Revisions:   s.Revisions,
		UpdatedAt:   s.UpdatedAt,
	}
	for _, section := range s.Sections {
		items := make([]proposal.Item, 0, len(section.Items))
		for _, item := range section.Items {
			items = append(items, proposal.Item{
				Name:        item.Name,
				Description: item.Description,
				Hours:       loadedNumber(item.Hours),
				Price:       loadedNumber(item.Price),
			})
		}
		d.Sections = append(d.Sections, proposal.Section{
			Title:    section.Title,
			Items:    items,
			Subtotal: loadedNumber(section.Subtotal),
		})
	}
	return d
}

// JSON has no NaN or Inf, so non-finite amounts are stored as null.
func storedNumber(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func loadedNumber(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
