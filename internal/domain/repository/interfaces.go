package repository

import (
	"context"
	"time"

	"OilScope/internal/domain/models"
)

// PriceStore provides access to the Brent price history.
type PriceStore interface {
	Load(ctx context.Context) ([]models.PricePoint, error)
	Query(ctx context.Context, from, to time.Time) ([]models.PricePoint, error)
}

// EventStore provides access to the curated market event list.
type EventStore interface {
	Load(ctx context.Context) ([]models.Event, error)
}

// PriceSink persists price rows to a long-term store.
type PriceSink interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreBatch(ctx context.Context, points []models.PricePoint) error
	Health(ctx context.Context) error // ping
	Close() error
}

// Publisher emits completed analysis results to downstream consumers.
type Publisher interface {
	PublishResults(ctx context.Context, doc *models.ResultsDocument) error
	Close() error
}

// Metrics records operational counters for the analysis service.
type Metrics interface {
	RecordAnalysisRun(variant string, seconds float64)
	RecordDivergences(variant string, n int)
	RecordConvergence(variant string, converged bool)
	RecordChangepointIndex(variant string, index int)
	RecordError(kind string)
	RecordCacheHit(hit bool)
}
