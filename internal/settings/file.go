package settings

import (
	"context"
	"fmt"
	"sync/atomic"

	"helipad/pkg/logger"
	"helipad/pkg/model"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileProvider reads settings from a YAML or JSON file and reloads it when
// the file changes. An invalid edit keeps the last good snapshot.
type FileProvider struct {
	v        *viper.Viper
	current  atomic.Pointer[model.Settings]
	log      *logger.Logger
	fallback *model.Settings
}

func NewFileProvider(path string, fallback *model.Settings, log *logger.Logger) (*FileProvider, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v, fallback)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	p := &FileProvider{v: v, log: log.Component("settings_file"), fallback: fallback}
	if err := p.reload(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := p.reload(); err != nil {
			p.log.Error("Ignoring invalid settings change", "file", e.Name, "error", err)
			return
		}
		p.log.Info("Settings reloaded", "file", e.Name)
	})
	v.WatchConfig()

	return p, nil
}

func setDefaults(v *viper.Viper, s *model.Settings) {
	if s == nil {
		return
	}
	v.SetDefault("resource_id", s.ResourceID)
	v.SetDefault("timezone", s.Timezone)
	v.SetDefault("open_time", s.OpenTime)
	v.SetDefault("close_time", s.CloseTime)
	v.SetDefault("blackout_dates", s.BlackoutDates)
	v.SetDefault("min_notice_minutes", s.MinNoticeMinutes)
	v.SetDefault("max_duration_minutes", s.MaxDurationMinutes)
	v.SetDefault("buffer_minutes", s.BufferMinutes)
	v.SetDefault("slot_minutes", s.SlotMinutes)
}

func (p *FileProvider) reload() error {
	var s model.Settings
	if err := p.v.Unmarshal(&s); err != nil {
		return fmt.Errorf("failed to decode settings: %w", err)
	}
	if p.fallback != nil && s.ResourceID == "" {
		s.ResourceID = p.fallback.ResourceID
	}
	if err := Validate(&s); err != nil {
		return err
	}
	p.current.Store(&s)
	return nil
}

func (p *FileProvider) Load(ctx context.Context) (*model.Settings, error) {
	return clone(p.current.Load()), nil
}
