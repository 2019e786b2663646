// Package config loads dashboard configuration from an optional YAML file,
// a .env file and DASH_-prefixed environment variables, in that order of
// increasing precedence.
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"stockdash/internal/indicator"
	"stockdash/internal/model"
)

// EnvPrefix is prepended to every environment override, e.g. DASH_HTTP_ADDR.
const EnvPrefix = "DASH"

// Source kinds.
const (
	SourceTCBS   = "tcbs"
	SourceSQLite = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	HTTPAddr string `mapstructure:"http_addr" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	Symbols       []model.Symbol `mapstructure:"symbols" validate:"required,min=1,dive"`
	DefaultSymbol string         `mapstructure:"default_symbol" validate:"required"`
	LookbackDays  int            `mapstructure:"lookback_days" validate:"gte=1"`

	Indicators indicator.Params `mapstructure:"indicators"`

	Source     SourceConfig  `mapstructure:"source"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	Redis      RedisConfig   `mapstructure:"redis"`
	Breaker    BreakerConfig `mapstructure:"breaker"`
}

// SourceConfig selects and tunes the price data source.
type SourceConfig struct {
	Kind    string        `mapstructure:"kind" validate:"oneof=tcbs sqlite"`
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Proxy   string        `mapstructure:"proxy" validate:"omitempty,url"`
}

// RedisConfig is optional; an empty Addr keeps dashboard config in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

// BreakerConfig tunes the circuit breaker around the upstream source.
type BreakerConfig struct {
	MaxFailures  int           `mapstructure:"max_failures" validate:"gte=1"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout" validate:"gt=0"`
}

var validate = validator.New()

// Load reads configuration. path may be empty, in which case DASH_CONFIG_FILE is
// consulted and, failing that, only defaults and the environment apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config_file")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		symbolListHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	cfg.DefaultSymbol = strings.ToUpper(strings.TrimSpace(cfg.DefaultSymbol))
	cfg.Source.Kind = strings.ToLower(cfg.Source.Kind)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if err := c.Indicators.Validate(); err != nil {
		return err
	}
	if _, ok := model.FindSymbol(c.Symbols, c.DefaultSymbol); !ok {
		return errors.Errorf("invalid config: default_symbol %q is not in symbols", c.DefaultSymbol)
	}
	if c.Source.Kind == SourceTCBS && c.Source.BaseURL == "" {
		return errors.New("invalid config: source.base_url is required when source.kind is tcbs")
	}
	if c.Source.Kind == SourceSQLite && c.SQLitePath == "" {
		return errors.New("invalid config: sqlite_path is required when source.kind is sqlite")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config_file", "")
	v.SetDefault("http_addr", ":8050")
	v.SetDefault("log_level", "info")

	symbols := make([]map[string]string, 0, 3)
	for _, s := range model.DefaultSymbols() {
		symbols = append(symbols, map[string]string{"value": s.Value, "label": s.Label})
	}
	v.SetDefault("symbols", symbols)
	v.SetDefault("default_symbol", "VNM")
	v.SetDefault("lookback_days", 365)

	p := indicator.DefaultParams()
	v.SetDefault("indicators.bollinger_window", p.BollingerWindow)
	v.SetDefault("indicators.bollinger_k", p.BollingerK)
	v.SetDefault("indicators.rsi_window", p.RSIWindow)
	v.SetDefault("indicators.rsi_smoothing", string(p.RSISmoothing))

	v.SetDefault("source.kind", SourceTCBS)
	v.SetDefault("source.base_url", "https://apipubaws.tcbs.com.vn")
	v.SetDefault("source.timeout", 15*time.Second)
	v.SetDefault("source.proxy", "")

	v.SetDefault("sqlite_path", "data/bars.db")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")

	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.reset_timeout", 30*time.Second)
}

// symbolListHook lets DASH_SYMBOLS=VNM,FPT stand in for the full catalogue.
func symbolListHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]model.Symbol{}) {
			return data, nil
		}
		return parseSymbolList(reflect.ValueOf(data).String()), nil
	}
}

// parseSymbolList turns "VNM,FPT" into symbols labelled by their ticker.
func parseSymbolList(raw string) []model.Symbol {
	var out []model.Symbol
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		label := p
		if known, ok := model.FindSymbol(model.DefaultSymbols(), p); ok {
			label = known.Label
		}
		out = append(out, model.Symbol{Value: p, Label: label})
	}
	return out
}
