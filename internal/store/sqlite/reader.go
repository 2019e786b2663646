package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"stockdash/internal/logger"
	"stockdash/internal/model"
)

// Reader serves archived bars as a model.PriceSource.
type Reader struct {
	db  *sql.DB
	log *zap.Logger
}

// NewReader opens a SQLite connection for reading. The schema is created if
// missing so an empty archive reads as "no data" rather than an error.
func NewReader(dbPath string, log *zap.Logger) (*Reader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dbPath+dsnOptions)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite open reader")
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite schema")
	}

	log.Info("opened archive reader", zap.String("path", dbPath))
	return &Reader{db: db, log: log.Named("sqlite-reader")}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// Name implements model.PriceSource.
func (r *Reader) Name() string { return "sqlite" }

// FetchDaily implements model.PriceSource. Results are ordered by day ascending.
func (r *Reader) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT day, open, high, low, close, volume
		FROM daily_bars
		WHERE symbol = ? AND day >= ? AND day <= ?
		ORDER BY day ASC
	`, symbol, model.DateKey(model.TradingDay(start)), model.DateKey(model.TradingDay(end)))
	if err != nil {
		return nil, errors.Wrap(err, "sqlite query daily_bars")
	}
	defer rows.Close()

	bars := []model.PriceBar{}
	for rows.Next() {
		var b model.PriceBar
		var day string
		if err := rows.Scan(&day, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, errors.Wrap(err, "sqlite scan daily_bars")
		}
		if b.Date, err = parseDay(day); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite rows daily_bars")
	}

	r.log.Debug("read archived bars",
		append(logger.Fields(ctx), zap.String("symbol", symbol), zap.Int("rows", len(bars)))...)
	return &model.PriceSeries{Symbol: symbol, Bars: bars}, nil
}

// Symbols lists the archived tickers.
func (r *Reader) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM daily_bars ORDER BY symbol`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite query symbols")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Wrap(err, "sqlite scan symbols")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
