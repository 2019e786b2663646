package source

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"stockdash/internal/logger"
	"stockdash/internal/model"
)

const (
	tcbsBarsPath     = "/stock-insight/v2/stock/bars-long-term"
	defaultUserAgent = "stockdash/1.0"
)

// TCBSConfig configures the TCBS public market data client.
type TCBSConfig struct {
	BaseURL string        // e.g. "https://apipubaws.tcbs.com.vn"
	Timeout time.Duration // per request
	Proxy   string        // optional HTTP proxy URL
}

// TCBS fetches daily bars from the TCBS stock-insight API.
type TCBS struct {
	client *resty.Client
	log    *zap.Logger
}

// tcbsBar is one entry of the "data" array. tradingDate looks like
// "2024-01-02T00:00:00.000Z".
type tcbsBar struct {
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	TradingDate string  `json:"tradingDate"`
}

type tcbsBarsResponse struct {
	Ticker string    `json:"ticker"`
	Data   []tcbsBar `json:"data"`
}

// NewTCBS creates a TCBS client.
func NewTCBS(cfg TCBSConfig, log *zap.Logger) *TCBS {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", defaultUserAgent)
	client.JSONUnmarshal = sonic.Unmarshal
	client.JSONMarshal = sonic.Marshal
	if cfg.Proxy != "" {
		client.SetProxy(cfg.Proxy)
	}

	return &TCBS{client: client, log: log.Named("tcbs")}
}

// Name implements model.PriceSource.
func (t *TCBS) Name() string { return "tcbs" }

// FetchDaily implements model.PriceSource. An upstream answer with no bars
// yields an empty series and no error.
func (t *TCBS) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.Wrap(ErrUnknownSymbol, "tcbs")
	}

	from := model.TradingDay(start)
	to := model.TradingDay(end)
	if to.Before(from) {
		return &model.PriceSeries{Symbol: symbol, Bars: []model.PriceBar{}}, nil
	}
	countBack := int(to.Sub(from).Hours()/24) + 1

	var body tcbsBarsResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ticker":     symbol,
			"type":       "stock",
			"resolution": "D",
			"to":         strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10),
			"countBack":  strconv.Itoa(countBack),
		}).
		SetResult(&body).
		Get(tcbsBarsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "tcbs request %s", symbol)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, errors.Wrapf(ErrUnknownSymbol, "tcbs %s", symbol)
	}
	if resp.IsError() {
		return nil, errors.Errorf("tcbs %s: unexpected status %d", symbol, resp.StatusCode())
	}

	series, skipped := toSeries(symbol, body.Data, from, to)
	t.log.Debug("fetched daily bars",
		append(logger.Fields(ctx),
			zap.String("symbol", symbol),
			zap.Int("received", len(body.Data)),
			zap.Int("kept", series.Len()),
			zap.Int("skipped", skipped),
			zap.Duration("took", resp.Time()),
		)...)
	return series, nil
}

// toSeries converts raw bars, keeps those within [from, to], sorts them by
// date and drops duplicate days (last one wins).
func toSeries(symbol string, raw []tcbsBar, from, to time.Time) (*model.PriceSeries, int) {
	byDay := make(map[time.Time]model.PriceBar, len(raw))
	skipped := 0
	for _, r := range raw {
		day, err := parseTradingDate(r.TradingDate)
		if err != nil {
			skipped++
			continue
		}
		if day.Before(from) || day.After(to) {
			continue
		}
		byDay[day] = model.PriceBar{
			Date:   day,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: int64(r.Volume),
		}
	}

	bars := make([]model.PriceBar, 0, len(byDay))
	for _, b := range byDay {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return &model.PriceSeries{Symbol: symbol, Bars: bars}, skipped
}

// parseTradingDate reads the calendar day from a TCBS timestamp. The time of
// day is ignored; the date part is already the exchange-local trading day.
func parseTradingDate(s string) (time.Time, error) {
	if len(s) < len("2006-01-02") {
		return time.Time{}, errors.Errorf("bad trading date %q", s)
	}
	d, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "bad trading date %q", s)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, model.ICT), nil
}
