package main

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"stockdash/config"
	"stockdash/internal/metrics"
	"stockdash/internal/model"
	"stockdash/internal/source"
	"stockdash/internal/store/sqlite"
)

// priceSource is the configured source plus what the caller must release
// and probe.
type priceSource struct {
	model.PriceSource
	db      *sql.DB        // non-nil for the sqlite archive
	archive *sqlite.Reader // likewise
	close   func() error
}

// openSource builds the price source selected by cfg.Source.Kind. m and
// health may be nil.
func openSource(cfg *config.Config, log *zap.Logger, m *metrics.Metrics, health *metrics.HealthStatus) (*priceSource, error) {
	switch cfg.Source.Kind {
	case config.SourceSQLite:
		r, err := sqlite.NewReader(cfg.SQLitePath, log)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite archive")
		}
		return &priceSource{PriceSource: r, db: r.DB(), archive: r, close: r.Close}, nil

	case config.SourceTCBS:
		tcbs := source.NewTCBS(source.TCBSConfig{
			BaseURL: cfg.Source.BaseURL,
			Timeout: cfg.Source.Timeout,
			Proxy:   cfg.Source.Proxy,
		}, log)
		cb := source.NewCircuitBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.ResetTimeout)
		cb.OnStateChange = func(from, to source.State) {
			log.Warn("source circuit breaker",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if m != nil {
				m.ObserveBreaker(int(to))
			}
			if health != nil {
				health.SetBreakerState(to.String())
			}
		}
		return &priceSource{
			PriceSource: source.Guard(tcbs, cb, log),
			close:       func() error { return nil },
		}, nil
	}
	return nil, errors.Errorf("unknown source kind %q", cfg.Source.Kind)
}

// symbolLister lists the symbols a store holds.
type symbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

// missingFromArchive returns the catalogue symbols the archive has no bars
// for, in catalogue order.
func missingFromArchive(ctx context.Context, archive symbolLister, catalogue []model.Symbol) ([]string, error) {
	stored, err := archive.Symbols(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list archived symbols")
	}
	have := make(map[string]bool, len(stored))
	for _, s := range stored {
		have[s] = true
	}
	var missing []string
	for _, s := range catalogue {
		if !have[s.Value] {
			missing = append(missing, s.Value)
		}
	}
	return missing, nil
}
