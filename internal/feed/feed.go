package feed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/metrics"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const (
	DefaultListLimit = 200
	DefaultHeroLimit = 4

	HeroPlacement = "hero"
)

// Field is a document attribute the feed can be filtered on.
type Field int

const (
	FieldCategory Field = iota
	FieldPlacement
)

func (f Field) String() string {
	switch f {
	case FieldCategory:
		return "category"
	case FieldPlacement:
		return "placement"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseField maps a request parameter to a Field. An empty name selects
// FieldCategory.
func ParseField(name string) (Field, error) {
	switch name {
	case "", "category":
		return FieldCategory, nil
	case "placement":
		return FieldPlacement, nil
	default:
		return 0, fmt.Errorf("unknown feed field %q", name)
	}
}

// Entry is one product document in the feed collection.
type Entry struct {
	ID          string    `firestore:"-" json:"id"`
	Name        string    `firestore:"name" json:"name"`
	Description string    `firestore:"description" json:"description"`
	PriceCents  int64     `firestore:"price_cents" json:"price_cents"`
	ImageURL    string    `firestore:"image_url" json:"image_url"`
	Category    string    `firestore:"category" json:"category"`
	Placement   string    `firestore:"placement" json:"placement"`
	Featured    bool      `firestore:"featured" json:"featured"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
}

// Condition is an equality filter on one document attribute.
type Condition struct {
	Path  string
	Value interface{}
}

// Query selects documents matching every condition, newest first.
type Query struct {
	Conditions []Condition
	Limit      int
}

// Source runs feed queries against a document store.
type Source interface {
	Query(ctx context.Context, q Query) ([]Entry, error)
}

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// List returns entries whose field equals value, or all entries when value
// is empty. limit <= 0 selects DefaultListLimit.
func (s *Service) List(ctx context.Context, field Field, value string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q := Query{Limit: limit}
	if value != "" {
		q.Conditions = append(q.Conditions, Condition{Path: field.String(), Value: value})
	}
	return s.run(ctx, q)
}

// ListHero returns featured entries placed in the hero slot.
func (s *Service) ListHero(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultHeroLimit
	}
	return s.run(ctx, Query{
		Conditions: []Condition{
			{Path: FieldPlacement.String(), Value: HeroPlacement},
			{Path: "featured", Value: true},
		},
		Limit: limit,
	})
}

func (s *Service) run(ctx context.Context, q Query) ([]Entry, error) {
	entries, err := s.source.Query(ctx, q)
	if err != nil {
		metrics.FeedQueries.WithLabelValues("error").Inc()
		loadErr := classify(err)
		logger.Error().Err(err).Str("hint", loadErr.Hint).Msg("Error loading feed")
		return nil, loadErr
	}
	if len(entries) == 0 {
		metrics.FeedQueries.WithLabelValues("empty").Inc()
		return []Entry{}, nil
	}
	metrics.FeedQueries.WithLabelValues("ok").Inc()
	return entries, nil
}
