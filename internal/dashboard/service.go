// Package dashboard orchestrates one dashboard render: resolve the date
// window, fetch bars, compute indicators and build the three charts.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"stockdash/internal/chart"
	"stockdash/internal/indicator"
	"stockdash/internal/logger"
	"stockdash/internal/markethours"
	"stockdash/internal/metrics"
	"stockdash/internal/model"
)

// DefaultLookbackDays is how much history a render asks for.
const DefaultLookbackDays = 365

// User-facing messages.
const (
	msgNoData       = "Không thể tải dữ liệu cho %s. Vui lòng thử mã khác."
	msgFetchFailed  = "Lỗi khi tải dữ liệu: %v"
	msgUnknownStock = "Mã %s không có trong danh sách."
)

// ErrUnknownSymbol is returned by Indicators for a symbol outside the catalogue.
var ErrUnknownSymbol = errors.New("symbol not in catalogue")

// Response is everything the page needs to redraw after a selection.
type Response struct {
	Symbol      string             `json:"symbol"`
	Label       string             `json:"label"`
	Candlestick chart.Figure       `json:"candlestick"`
	RSI         chart.Figure       `json:"rsi"`
	Volume      chart.Figure       `json:"volume"`
	Error       string             `json:"error"`
	Market      markethours.Status `json:"market"`
	Bars        int                `json:"bars"`
	From        string             `json:"from"`
	To          string             `json:"to"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// IndicatorsResponse is the raw computed data for one symbol.
type IndicatorsResponse struct {
	Symbol     string                `json:"symbol"`
	Params     indicator.Params      `json:"params"`
	Bars       []model.PriceBar      `json:"bars"`
	Indicators model.IndicatorSeries `json:"indicators"`
}

// Config is the static part of the service configuration.
type Config struct {
	Symbols      []model.Symbol
	LookbackDays int
	Settings     Settings
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics records render, fetch and compute metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service renders dashboards. It is safe for concurrent use; each call works
// on its own data and only Settings is shared.
type Service struct {
	src      model.PriceSource
	symbols  []model.Symbol
	lookback int
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	settings Settings
	engine   *indicator.Engine // built from settings.Params
}

// NewService validates cfg and returns a Service reading from src.
func NewService(src model.PriceSource, cfg Config, opts ...Option) (*Service, error) {
	if src == nil {
		return nil, errors.New("dashboard: nil price source")
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = model.DefaultSymbols()
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	cfg.Settings.DefaultSymbol = normalizeSymbol(cfg.Settings.DefaultSymbol)
	if err := cfg.Settings.Validate(cfg.Symbols); err != nil {
		return nil, errors.Wrap(err, "dashboard settings")
	}

	engine, err := indicator.NewEngine(cfg.Settings.Params)
	if err != nil {
		return nil, errors.Wrap(err, "dashboard settings")
	}

	s := &Service{
		src:      src,
		symbols:  cfg.Symbols,
		lookback: cfg.LookbackDays,
		now:      time.Now,
		log:      zap.NewNop(),
		settings: cfg.Settings,
		engine:   engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("dashboard")
	return s, nil
}

// Symbols returns the selectable catalogue.
func (s *Service) Symbols() []model.Symbol {
	out := make([]model.Symbol, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Source names the underlying price source.
func (s *Service) Source() string { return s.src.Name() }

// Settings returns the current runtime settings.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings validates and installs new runtime settings.
func (s *Service) UpdateSettings(next Settings) error {
	next.DefaultSymbol = normalizeSymbol(next.DefaultSymbol)
	if err := next.Validate(s.symbols); err != nil {
		return err
	}
	engine, err := indicator.NewEngine(next.Params)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = next
	s.engine = engine
	s.mu.Unlock()
	return nil
}

// snapshot returns settings and the matching engine as one consistent pair.
func (s *Service) snapshot() (Settings, *indicator.Engine) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, s.engine
}

// Window returns the [start, end] date range a render at now covers.
func (s *Service) Window(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -s.lookback), now
}

// Render builds the dashboard for symbol (the default symbol when blank).
// Fetch failures, unknown symbols and empty data are reported through
// Response.Error with empty figures; the returned error is non-nil only when
// ctx ended before the render finished.
func (s *Service) Render(ctx context.Context, symbol string) (*Response, error) {
	began := time.Now()
	settings, engine := s.snapshot()
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		symbol = settings.DefaultSymbol
	}
	log := logger.For(ctx, s.log).With(zap.String("symbol", symbol))

	now := s.now()
	start, end := s.Window(now)
	resp := &Response{
		Symbol:      symbol,
		Market:      markethours.StatusAt(now),
		From:        model.DateKey(start),
		To:          model.DateKey(end),
		GeneratedAt: now,
	}

	outcome := metrics.OutcomeOK
	defer func() {
		if s.metrics != nil {
			s.metrics.RendersTotal.WithLabelValues(outcome).Inc()
			s.metrics.RenderDur.Observe(time.Since(began).Seconds())
		}
	}()

	known, ok := model.FindSymbol(s.symbols, symbol)
	if !ok {
		outcome = metrics.OutcomeUnknownSymbol
		log.Warn("symbol not in catalogue")
		s.fillEmpty(resp, fmt.Sprintf(msgUnknownStock, symbol))
		return resp, nil
	}
	resp.Label = known.Label

	series, err := s.fetch(ctx, symbol, start, end)
	if err != nil {
		outcome = metrics.OutcomeError
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrapf(ctxErr, "render %s", symbol)
		}
		log.Error("fetch failed", zap.String("source", s.src.Name()), zap.Error(err))
		s.fillEmpty(resp, fmt.Sprintf(msgFetchFailed, err))
		return resp, nil
	}
	if series.IsEmpty() {
		outcome = metrics.OutcomeEmpty
		log.Warn("no data returned", zap.String("source", s.src.Name()))
		s.fillEmpty(resp, fmt.Sprintf(msgNoData, symbol))
		return resp, nil
	}

	ind := s.compute(engine, series)
	charts := chart.Build(series, ind, chart.Options{SMAWindow: settings.Params.BollingerWindow})
	resp.Candlestick = charts.Candlestick
	resp.RSI = charts.RSI
	resp.Volume = charts.Volume
	resp.Bars = series.Len()

	if s.metrics != nil {
		s.metrics.BarsServed.Observe(float64(series.Len()))
	}
	log.Info("rendered",
		zap.Int("bars", series.Len()),
		zap.Duration("took", time.Since(began)))
	return resp, nil
}

// Indicators returns the raw series and indicators for symbol. Unlike
// Render it reports problems as errors.
func (s *Service) Indicators(ctx context.Context, symbol string) (*IndicatorsResponse, error) {
	settings, engine := s.snapshot()
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		symbol = settings.DefaultSymbol
	}
	if _, ok := model.FindSymbol(s.symbols, symbol); !ok {
		return nil, errors.Wrap(ErrUnknownSymbol, symbol)
	}

	start, end := s.Window(s.now())
	series, err := s.fetch(ctx, symbol, start, end)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", symbol)
	}

	bars := []model.PriceBar{}
	if series != nil && series.Bars != nil {
		bars = series.Bars
	}
	return &IndicatorsResponse{
		Symbol:     symbol,
		Params:     engine.Params(),
		Bars:       bars,
		Indicators: s.compute(engine, series),
	}, nil
}

func (s *Service) fetch(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	t0 := time.Now()
	series, err := s.src.FetchDaily(ctx, symbol, start, end)
	if s.metrics != nil {
		s.metrics.FetchDur.WithLabelValues(s.src.Name()).Observe(time.Since(t0).Seconds())
	}
	return series, err
}

func (s *Service) compute(engine *indicator.Engine, series *model.PriceSeries) model.IndicatorSeries {
	t0 := time.Now()
	ind := engine.Process(series)
	if s.metrics != nil {
		s.metrics.ComputeDur.Observe(time.Since(t0).Seconds())
	}
	return ind
}

func (s *Service) fillEmpty(resp *Response, msg string) {
	empty := chart.Empty(resp.Symbol)
	resp.Candlestick = empty.Candlestick
	resp.RSI = empty.RSI
	resp.Volume = empty.Volume
	resp.Error = msg
}
