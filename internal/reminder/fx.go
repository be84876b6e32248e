package reminder

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/workhive/workhive/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("reminder",
	fx.Provide(NewConfigFromApp),
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
	fx.Provide(New),
)

// TickerModule starts the periodic run loop. Kept separate so the API binary
// can expose the on-demand trigger without also ticking.
var TickerModule = fx.Module("reminder.ticker",
	fx.Invoke(start),
)

func NewConfigFromApp(cfg config.Config) Config {
	interval, err := time.ParseDuration(cfg.ReminderInterval)
	if err != nil {
		interval = 0
	}
	return Config{RunInterval: interval}.withDefaults()
}

// NewRedisClient returns nil when no address is configured; the scheduler
// then relies on the in-process guard alone.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

func start(lc fx.Lifecycle, svc *Service, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				runForever(ctx, svc, log.Named("reminder"))
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func runForever(ctx context.Context, svc *Service, log *zap.Logger) {
	ticker := time.NewTicker(svc.cfg.RunInterval)
	defer ticker.Stop()

	for {
		stats, err := svc.Run(ctx)
		switch {
		case errors.Is(err, ErrAlreadyRunning):
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			log.Warn("reminder tick failed", zap.Error(err))
		default:
			log.Info("reminder tick",
				zap.Int("sent_24h", stats.Sent24h),
				zap.Int("sent_72h", stats.Sent72h),
				zap.Int("sent_7d", stats.Sent7d),
				zap.Int("skipped", stats.Skipped),
				zap.Int("errors", stats.Errors))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
