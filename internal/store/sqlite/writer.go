// Package sqlite keeps an offline archive of daily bars in a WAL-mode SQLite
// database. The Writer fills it from an upstream source; the Reader serves it
// back as a model.PriceSource.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"stockdash/internal/model"
)

const dsnOptions = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/bars.db"
}

// Writer is a single-connection SQLite writer that upserts bars in one
// transaction per series.
type Writer struct {
	db  *sql.DB
	log *zap.Logger
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// NewWriter opens the database in WAL mode and creates the schema.
func NewWriter(cfg WriterConfig, log *zap.Logger) (*Writer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create archive dir")
		}
	}
	db, err := sql.Open("sqlite3", cfg.DBPath+dsnOptions)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite open")
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite schema")
	}

	log.Info("opened archive", zap.String("path", cfg.DBPath))
	return &Writer{db: db, log: log.Named("sqlite")}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_bars (
			symbol     TEXT    NOT NULL,
			day        TEXT    NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, day)
		);
	`)
	return err
}

// WriteBars implements model.BarWriter. Existing rows for the same day are
// replaced.
func (w *Writer) WriteBars(ctx context.Context, series *model.PriceSeries) (int, error) {
	if series.IsEmpty() {
		return 0, nil
	}
	start := time.Now()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "sqlite begin")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO daily_bars (symbol, day, open, high, low, close, volume, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, errors.Wrap(err, "sqlite prepare")
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, b := range series.Bars {
		if _, err := stmt.ExecContext(ctx, series.Symbol, model.DateKey(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume, now); err != nil {
			tx.Rollback()
			return 0, errors.Wrapf(err, "sqlite insert %s %s", series.Symbol, model.DateKey(b.Date))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "sqlite commit")
	}
	w.log.Info("archived bars",
		zap.String("symbol", series.Symbol),
		zap.Int("rows", len(series.Bars)),
		zap.Duration("took", time.Since(start)))
	return len(series.Bars), nil
}

// LastDay returns the most recent archived day for symbol, or the zero time
// when nothing is stored.
func (w *Writer) LastDay(ctx context.Context, symbol string) (time.Time, error) {
	var day sql.NullString
	err := w.db.QueryRowContext(ctx,
		`SELECT MAX(day) FROM daily_bars WHERE symbol = ?`, symbol,
	).Scan(&day)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "sqlite last day")
	}
	if !day.Valid {
		return time.Time{}, nil
	}
	return parseDay(day.String)
}

// Close closes the writer.
func (w *Writer) Close() error {
	return w.db.Close()
}

func parseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, model.ICT)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "bad archived day %q", s)
	}
	return t, nil
}
