// Package reminder nudges unverified local accounts over email at 24 h,
// 72 h and 7 d after signup, at most once per stage.
package reminder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/workhive/workhive/internal/clock"
	"github.com/workhive/workhive/internal/config"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/notification/dispatch"
	obsmetrics "github.com/workhive/workhive/internal/observability/metrics"
	"github.com/workhive/workhive/internal/providers/email"
	"go.uber.org/zap"
)

const lockKey = "workhive:verification-reminders:lock"

// ErrAlreadyRunning means another tick holds the run; the caller gets the
// running tick's outcome semantics, not a failure.
var ErrAlreadyRunning = errors.New("reminder_run_in_progress")

// Stats is one tick's outcome.
type Stats struct {
	Sent24h int `json:"sent_24h"`
	Sent72h int `json:"sent_72h"`
	Sent7d  int `json:"sent_7d"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

var stages = []struct {
	Name  string
	After time.Duration
}{
	{identitydomain.Stage7d, 7 * 24 * time.Hour},
	{identitydomain.Stage72h, 72 * time.Hour},
	{identitydomain.Stage24h, 24 * time.Hour},
}

type Service struct {
	cfg        Config
	users      identitydomain.Service
	mailer     email.Provider
	dispatcher *dispatch.Dispatcher
	locker     *Locker
	clock      clock.Clock
	metrics    *obsmetrics.SchedulerMetrics
	baseURL    string
	log        *zap.Logger

	// running coalesces overlapping ticks in this process.
	running sync.Mutex
}

func New(
	cfg Config,
	appCfg config.Config,
	users identitydomain.Service,
	mailer email.Provider,
	dispatcher *dispatch.Dispatcher,
	locker *Locker,
	clk clock.Clock,
	metrics *obsmetrics.SchedulerMetrics,
	log *zap.Logger,
) *Service {
	return &Service{
		cfg:        cfg.withDefaults(),
		users:      users,
		mailer:     mailer,
		dispatcher: dispatcher,
		locker:     locker,
		clock:      clk,
		metrics:    metrics,
		baseURL:    strings.TrimRight(appCfg.PublicBaseURL, "/"),
		log:        log.Named("reminder"),
	}
}

// Run executes one tick. A second caller while a tick is in flight gets
// ErrAlreadyRunning instead of a duplicate pass.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	if !s.running.TryLock() {
		s.metrics.TickCoalesced()
		return Stats{}, ErrAlreadyRunning
	}
	defer s.running.Unlock()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, lockKey, s.cfg.LockTTL)
		if err != nil {
			return Stats{}, err
		}
		if !ok {
			s.metrics.TickCoalesced()
			return Stats{}, ErrAlreadyRunning
		}
		defer func() {
			if err := s.locker.Release(ctx, lockKey, token); err != nil {
				s.log.Warn("lock release failed", zap.Error(err))
			}
		}()
	}

	s.metrics.TickStarted()
	start := s.clock.Now()
	stats, err := s.tick(ctx)
	s.metrics.ObserveTick(time.Since(start))

	if n, digestErr := s.dispatcher.RunDigests(ctx); digestErr != nil {
		s.log.Warn("digest sweep failed", zap.Error(digestErr))
	} else if n > 0 {
		s.log.Info("digests sent", zap.Int("count", n))
	}

	return stats, err
}

func (s *Service) tick(ctx context.Context) (Stats, error) {
	var stats Stats

	users, err := s.users.ListUnverifiedLocal(ctx)
	if err != nil {
		return stats, err
	}

	now := s.clock.Now()
	for _, user := range users {
		// Drain at most the user in flight on shutdown.
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stage, ok := s.stageFor(user, now, &stats)
		if !ok {
			continue
		}

		if err := s.sendStage(ctx, user, stage); err != nil {
			stats.Errors++
			s.metrics.ReminderError()
			s.log.Warn("reminder send failed",
				zap.String("user_id", user.ID.String()),
				zap.String("stage", stage),
				zap.Error(err))
			continue
		}

		s.metrics.ReminderSent(stage)
		switch stage {
		case identitydomain.Stage24h:
			stats.Sent24h++
		case identitydomain.Stage72h:
			stats.Sent72h++
		case identitydomain.Stage7d:
			stats.Sent7d++
		}
	}
	return stats, nil
}

// stageFor picks the highest exceeded stage. Once a stage is exceeded the
// ones below it never fire, sent or not.
func (s *Service) stageFor(user identitydomain.User, now time.Time, stats *Stats) (string, bool) {
	age := now.Sub(user.CreatedAt)
	for _, stage := range stages {
		if age < stage.After {
			continue
		}
		if user.ReminderSentAt(stage.Name) != nil {
			stats.Skipped++
			return "", false
		}
		return stage.Name, true
	}
	stats.Skipped++
	return "", false
}

func (s *Service) sendStage(ctx context.Context, user identitydomain.User, stage string) error {
	token, err := s.users.EnsureVerificationToken(ctx, user.ID)
	if err != nil {
		return err
	}

	displayName := user.DisplayName
	if displayName == "" {
		displayName = user.Username
	}
	err = s.mailer.SendTemplate(ctx, []string{user.Email}, "verification_reminder", map[string]any{
		"subject":      "Please verify your WorkHive email",
		"display_name": displayName,
		"verify_url":   s.baseURL + "/verify-email?token=" + token.Token,
		"expires_at":   token.ExpiresAt.Format("Jan 2, 2006 15:04 MST"),
	})
	if err != nil {
		// The stage timestamp stays unset so the next tick retries.
		return err
	}

	return s.users.MarkReminderSent(ctx, user.ID, stage)
}
