package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/estimategenie/quote-engine/internal/model"
)

// ErrNotFound is returned when a quote id does not exist.
var ErrNotFound = eris.New("store: quote not found")

// QuoteFilter specifies criteria for listing quotes.
type QuoteFilter struct {
	Status      model.QuoteStatus `json:"status,omitempty"`
	ProjectType string            `json:"project_type,omitempty"`
	Limit       int               `json:"limit,omitempty"`
	Offset      int               `json:"offset,omitempty"`
}

// Store defines the persistence interface for the quote pipeline. Every
// state transition persists the full quote snapshot, so a reader always
// sees a complete document for whatever stage the quote has reached.
type Store interface {
	CreateQuote(ctx context.Context, q *model.Quote) error
	SaveQuote(ctx context.Context, q *model.Quote) error
	GetQuote(ctx context.Context, id string) (*model.Quote, error)
	ListQuotes(ctx context.Context, filter QuoteFilter) ([]model.Quote, error)
	DeleteQuote(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
