package calendar

import (
	"context"
	"fmt"

	"exchange_calendar/core/domain"
	"exchange_calendar/core/port/out"

	"github.com/rs/zerolog"
)

// SetupConfig is the validated part of the platform configuration that
// setup consumes. Connection settings are owned by the MailboxConnector.
type SetupConfig struct {
	Calendars []domain.SearchSpec
	Options   []Option
	Logger    zerolog.Logger
}

// SetupPlatform connects to the mailbox once and registers one entity per
// configured search, all sharing the resolved calendar folder. Connection
// and pattern errors are returned unretried. Only the entities the sink
// accepted are returned; those whose first update failed are left out.
func SetupPlatform(ctx context.Context, cfg SetupConfig, connector out.MailboxConnector, sink EntitySink) ([]*Entity, error) {
	log := cfg.Logger.With().Str("component", "platform_setup").Logger()

	folder, err := connector.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to mailbox: %w", err)
	}
	log.Info().Str("folder", folder.Name()).Int("calendars", len(cfg.Calendars)).Msg("calendar folder resolved")

	assigned := make(map[string]bool, len(cfg.Calendars))
	taken := func(id string) bool {
		return assigned[id] || sink.HasEntityID(id)
	}

	opts := append([]Option{WithLogger(cfg.Logger)}, cfg.Options...)
	entities := make([]*Entity, 0, len(cfg.Calendars))
	for _, spec := range cfg.Calendars {
		data, err := NewCalendarData(folder, true, spec.Search, opts...)
		if err != nil {
			return nil, fmt.Errorf("calendar %q: %w", spec.Name, err)
		}

		entityID := GenerateEntityID(spec.Name, taken)
		assigned[entityID] = true
		entities = append(entities, NewEntity(entityID, spec.Name, data))
	}

	if err := sink.AddEntities(ctx, entities, true); err != nil {
		// 개별 엔티티 실패는 sink가 로그로 남기고 제외한다
		log.Warn().Err(err).Msg("some calendar entities were not added")
	}

	added := entities[:0]
	for _, e := range entities {
		if sink.HasEntityID(e.EntityID()) {
			added = append(added, e)
		}
	}
	return added, nil
}
