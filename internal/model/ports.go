package model

import (
	"context"
	"time"
)

// ── Source Port Interfaces ──
// These decouple the dashboard from the concrete data source (TCBS over HTTP,
// the local SQLite archive). Each adapter satisfies one or more of them.

// PriceSource fetches daily bars for a symbol within [start, end].
type PriceSource interface {
	// FetchDaily returns the bars in ascending date order. It may return a nil
	// series or an empty one when the source has no data for the range.
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) (*PriceSeries, error)

	// Name identifies the source in logs and metrics.
	Name() string
}

// BarWriter persists daily bars, e.g. into the offline archive.
type BarWriter interface {
	// WriteBars upserts the series' bars and returns how many rows were written.
	WriteBars(ctx context.Context, series *PriceSeries) (int, error)

	// LastDay returns the latest stored day for symbol, zero when none.
	LastDay(ctx context.Context, symbol string) (time.Time, error)

	// Close releases underlying resources.
	Close() error
}
