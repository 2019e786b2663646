// Package redis persists dashboard settings in Redis and fans settings
// changes out to every gateway instance over Pub/Sub.
package redis

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	goredis "github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"stockdash/internal/dashboard"
)

const (
	settingsKey     = "dashboard:settings"
	settingsChannel = "dashboard:settings:updates"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// SettingsStore reads and writes dashboard.Settings.
type SettingsStore struct {
	client *goredis.Client
	origin string
	log    *zap.Logger
}

// update is the Pub/Sub payload. Origin lets an instance skip its own echo.
type update struct {
	Origin   string             `json:"origin"`
	Settings dashboard.Settings `json:"settings"`
}

// Client returns the underlying Redis client for health checks.
func (s *SettingsStore) Client() *goredis.Client { return s.client }

// New connects to Redis and pings the server. origin identifies this process
// in published updates.
func New(cfg Config, origin string, log *zap.Logger) (*SettingsStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}

	log.Info("connected to redis", zap.String("addr", cfg.Addr))
	return &SettingsStore{client: client, origin: origin, log: log.Named("redis")}, nil
}

// LoadSettings returns the persisted settings. ok is false when nothing has
// been saved yet.
func (s *SettingsStore) LoadSettings(ctx context.Context) (dashboard.Settings, bool, error) {
	var out dashboard.Settings
	data, err := s.client.Get(ctx, settingsKey).Bytes()
	if err == goredis.Nil {
		return out, false, nil
	}
	if err != nil {
		return out, false, errors.Wrap(err, "redis get settings")
	}
	if err := sonic.Unmarshal(data, &out); err != nil {
		return out, false, errors.Wrap(err, "decode settings")
	}
	return out, true, nil
}

// SaveSettings persists settings and announces them to other instances.
func (s *SettingsStore) SaveSettings(ctx context.Context, settings dashboard.Settings) error {
	data, err := sonic.Marshal(settings)
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	msg, err := sonic.Marshal(update{Origin: s.origin, Settings: settings})
	if err != nil {
		return errors.Wrap(err, "encode settings update")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, settingsKey, data, 0)
	pipe.Publish(ctx, settingsChannel, msg)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "redis save settings")
	}
	return nil
}

// WatchSettings calls apply for every update published by another instance.
// Blocks until ctx is cancelled.
func (s *SettingsStore) WatchSettings(ctx context.Context, apply func(dashboard.Settings)) {
	sub := s.client.Subscribe(ctx, settingsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var u update
			if err := sonic.UnmarshalString(msg.Payload, &u); err != nil {
				s.log.Warn("bad settings update", zap.Error(err))
				continue
			}
			if u.Origin == s.origin {
				continue
			}
			apply(u.Settings)
		}
	}
}

// Close closes the client.
func (s *SettingsStore) Close() error {
	return s.client.Close()
}
