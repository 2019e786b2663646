package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stockdash/internal/dashboard"
)

// SettingsPersister stores dashboard settings across restarts.
type SettingsPersister interface {
	LoadSettings(ctx context.Context) (dashboard.Settings, bool, error)
	SaveSettings(ctx context.Context, s dashboard.Settings) error
}

// ConfigStore manages the active dashboard settings and broadcasts changes.
type ConfigStore struct {
	hub   *Hub
	store SettingsPersister // nil keeps settings in memory only
}

// NewConfigStore creates a ConfigStore backed by the given Hub.
func NewConfigStore(hub *Hub, store SettingsPersister) *ConfigStore {
	return &ConfigStore{hub: hub, store: store}
}

// Load restores persisted settings, if any. Called once during startup.
// Returns true if settings were restored.
func (cs *ConfigStore) Load(ctx context.Context) bool {
	if cs.store == nil {
		return false
	}
	s, ok, err := cs.store.LoadSettings(ctx)
	if err != nil {
		cs.hub.log.Warn("failed to load persisted settings", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := cs.hub.Svc.UpdateSettings(s); err != nil {
		cs.hub.log.Warn("ignoring invalid persisted settings", zap.Error(err))
		return false
	}
	cs.hub.log.Info("restored settings", zap.String("default_symbol", s.DefaultSymbol))
	return true
}

// Get returns the current settings.
func (cs *ConfigStore) Get() dashboard.Settings {
	return cs.hub.Svc.Settings()
}

// Set validates and applies s, persists it and broadcasts it to all clients.
// A persistence failure is logged, not returned: the in-memory settings are
// authoritative for this process.
func (cs *ConfigStore) Set(ctx context.Context, s dashboard.Settings) error {
	if err := cs.hub.Svc.UpdateSettings(s); err != nil {
		return err
	}
	applied := cs.hub.Svc.Settings()

	if cs.store != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := cs.store.SaveSettings(pctx, applied); err != nil {
			cs.hub.log.Warn("failed to persist settings", zap.Error(err))
		}
	}

	cs.broadcast(applied)
	return nil
}

// Apply installs settings announced by another instance without persisting
// them again.
func (cs *ConfigStore) Apply(s dashboard.Settings) {
	if err := cs.hub.Svc.UpdateSettings(s); err != nil {
		cs.hub.log.Warn("ignoring invalid remote settings", zap.Error(err))
		return
	}
	cs.broadcast(cs.hub.Svc.Settings())
}

func (cs *ConfigStore) broadcast(s dashboard.Settings) {
	cs.hub.Broadcast(ConfigUpdate{
		Type:     MsgConfigUpdate,
		Settings: s,
		TS:       time.Now().UTC().Format(time.RFC3339Nano),
	})
}
