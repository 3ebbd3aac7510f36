package settings

import (
	"context"

	"helipad/pkg/config"
	"helipad/pkg/model"
)

// StaticProvider serves a fixed snapshot, typically built from env config.
type StaticProvider struct {
	settings *model.Settings
}

func NewStaticProvider(s *model.Settings) (*StaticProvider, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}
	return &StaticProvider{settings: clone(s)}, nil
}

// FromConfig maps the HELIPAD_* environment settings to a snapshot.
func FromConfig(cfg *config.Config) *model.Settings {
	return &model.Settings{
		ResourceID:         cfg.ResourceID,
		Timezone:           cfg.Timezone,
		OpenTime:           cfg.OpenTime,
		CloseTime:          cfg.CloseTime,
		BlackoutDates:      cfg.BlackoutDates,
		MinNoticeMinutes:   cfg.MinNoticeMinutes,
		MaxDurationMinutes: cfg.MaxDurationMinutes,
		BufferMinutes:      cfg.BufferMinutes,
		SlotMinutes:        cfg.SlotMinutes,
	}
}

func (p *StaticProvider) Load(ctx context.Context) (*model.Settings, error) {
	return clone(p.settings), nil
}
