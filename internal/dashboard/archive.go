package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"stockdash/internal/model"
)

// ArchiveRequest selects what Archive copies.
type ArchiveRequest struct {
	Symbols    []string
	Start, End time.Time

	// Full re-fetches the whole window instead of resuming after the last
	// archived day.
	Full bool
}

// ArchiveResult reports one symbol of an archive run.
type ArchiveResult struct {
	Symbol string    `json:"symbol"`
	From   time.Time `json:"from"` // first day requested from the source
	Rows   int       `json:"rows"`
	Err    error     `json:"-"`
}

// UpToDate reports whether the archive already covered the window.
func (r ArchiveResult) UpToDate() bool { return r.Err == nil && r.From.IsZero() }

// Archive copies each requested symbol from src into w. Unless req.Full is
// set, a symbol resumes the day after its last archived bar and is skipped
// when that lies past req.End. It keeps going after a per-symbol failure and
// returns an error only if every symbol failed or ctx ended.
func Archive(ctx context.Context, src model.PriceSource, w model.BarWriter, req ArchiveRequest, log *zap.Logger) ([]ArchiveResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]ArchiveResult, 0, len(req.Symbols))
	failed := 0

	for _, sym := range req.Symbols {
		if err := ctx.Err(); err != nil {
			return results, errors.Wrap(err, "archive")
		}
		sym = normalizeSymbol(sym)
		res, err := archiveSymbol(ctx, src, w, sym, req)
		if err != nil {
			failed++
			res.Err = err
			log.Error("archive symbol failed", zap.String("symbol", sym), zap.Error(err))
		} else if res.UpToDate() {
			log.Info("archive up to date", zap.String("symbol", sym))
		} else {
			log.Info("archived symbol",
				zap.String("symbol", sym),
				zap.String("from", model.DateKey(res.From)),
				zap.Int("rows", res.Rows))
		}
		results = append(results, res)
	}

	if len(req.Symbols) > 0 && failed == len(req.Symbols) {
		return results, errors.Errorf("archive: all %d symbols failed", failed)
	}
	return results, nil
}

func archiveSymbol(ctx context.Context, src model.PriceSource, w model.BarWriter, sym string, req ArchiveRequest) (ArchiveResult, error) {
	res := ArchiveResult{Symbol: sym}
	from := req.Start
	if !req.Full {
		last, err := w.LastDay(ctx, sym)
		if err != nil {
			return res, err
		}
		if !last.IsZero() {
			next := model.TradingDay(last).AddDate(0, 0, 1)
			if next.After(req.End) {
				return res, nil
			}
			if next.After(from) {
				from = next
			}
		}
	}
	res.From = from

	series, err := src.FetchDaily(ctx, sym, from, req.End)
	if err != nil || series.IsEmpty() {
		return res, err
	}
	res.Rows, err = w.WriteBars(ctx, series)
	return res, err
}
