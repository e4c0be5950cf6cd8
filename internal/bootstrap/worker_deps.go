package bootstrap

import (
	"context"
	"fmt"
	"time"

	"exchange_calendar/adapter/out/exchange"
	"exchange_calendar/adapter/out/provider"
	"exchange_calendar/config"
	"exchange_calendar/core/port/out"
	"exchange_calendar/core/service/calendar"
	"exchange_calendar/internal/stream"
	"exchange_calendar/pkg/logger"
	"exchange_calendar/pkg/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const setupTimeout = 2 * time.Minute

// breakerSource is implemented by both mailbox backends.
type breakerSource interface {
	out.MailboxConnector
	Breaker() *gobreaker.CircuitBreaker
}

// Dependencies is shared by the API and the worker so both act on the
// same registered entities.
type Dependencies struct {
	Config   *config.Config
	Platform *config.Platform

	Redis     *redis.Client
	Producer  *stream.Producer
	Connector breakerSource

	Registry *calendar.Registry
	Metrics  *metrics.Registry
}

// NewDependencies loads the platform file, connects to the mailbox and
// registers the calendar entities. A connection failure aborts startup.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	platform, err := config.LoadPlatform(cfg.PlatformPath, cfg)
	if err != nil {
		return nil, nil, err
	}

	deps := &Dependencies{
		Config:   cfg,
		Platform: platform,
		Metrics:  metrics.NewRegistry(500),
	}
	cleanup := func() {
		if deps.Redis != nil {
			if err := deps.Redis.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close Redis")
			}
		}
	}

	// Redis (optional)
	var publisher out.StatePublisher
	if cfg.RedisURL != "" {
		client, err := stream.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = client.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.WithError(err).Warn("Redis not available, state changes will not be published")
			_ = client.Close()
		} else {
			deps.Redis = client
			deps.Producer = stream.NewProducer(stream.NewRedisStream(client, cfg.StreamMaxLen), cfg.StateStream)
			publisher = deps.Producer
			logger.Info("Publishing state changes to stream %s", cfg.StateStream)
		}
	}

	deps.Connector = newConnector(platform)

	setupCfg, err := newSetupConfig(platform)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	deps.Registry = calendar.NewRegistry(publisher, logger.Component("entity_registry"))

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	entities, err := calendar.SetupPlatform(ctx, setupCfg, deps.Connector, deps.Registry)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("Registered %d of %d calendar entities", len(entities), len(platform.Calendars))

	return deps, cleanup, nil
}

func newConnector(p *config.Platform) breakerSource {
	switch p.Backend {
	case config.BackendGraph:
		return provider.NewOutlookCalendarAdapter(provider.OutlookCalendarConfig{
			TenantID:     p.TenantID,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			Mailbox:      p.Mailbox,
			Location:     p.Location(),
			PageSize:     p.PageSize,
		}, logger.Default().Zerolog())
	default:
		return exchange.NewConnector(exchange.Config{
			Server:        p.Server,
			Username:      p.Username,
			Password:      p.Password,
			VerifySSL:     p.VerifyTLS(),
			AuthType:      p.AuthType,
			Mailbox:       p.Mailbox,
			TenantID:      p.TenantID,
			ClientID:      p.ClientID,
			ClientSecret:  p.ClientSecret,
			ServerVersion: p.ServerVersion,
			Location:      p.Location(),
			PageSize:      p.PageSize,
		}, logger.Default().Zerolog())
	}
}

func newSetupConfig(p *config.Platform) (calendar.SetupConfig, error) {
	policy, err := calendar.IsOverPolicyByName(p.IsOverPolicy)
	if err != nil {
		return calendar.SetupConfig{}, fmt.Errorf("is_over_policy: %w", err)
	}

	return calendar.SetupConfig{
		Calendars: p.Calendars,
		Logger:    logger.Default().Zerolog(),
		Options: []calendar.Option{
			calendar.WithLocation(p.Location()),
			calendar.WithMinTimeBetweenUpdates(p.MinTimeBetweenUpdates.Duration),
			calendar.WithLookahead(p.Lookahead.Duration),
			calendar.WithOffsetMarker(*p.OffsetMarker),
			calendar.WithIsOverPolicy(policy),
		},
	}, nil
}
