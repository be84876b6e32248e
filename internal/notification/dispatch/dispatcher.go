// Package dispatch fans recorded activities out to email, honoring per-user
// preferences with at-most-once delivery.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/workhive/workhive/internal/activity/domain"
	"github.com/workhive/workhive/internal/clock"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/notification/domain"
	"github.com/workhive/workhive/internal/providers/email"
	"github.com/workhive/workhive/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Dispatcher struct {
	db     *gorm.DB
	prefs  domain.Service
	users  identitydomain.Service
	mailer email.Provider
	genID  *snowflake.Node
	clock  clock.Clock
	log    *zap.Logger
}

func NewDispatcher(
	conn *gorm.DB,
	prefs domain.Service,
	users identitydomain.Service,
	mailer email.Provider,
	genID *snowflake.Node,
	clk clock.Clock,
	log *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		db:     conn,
		prefs:  prefs,
		users:  users,
		mailer: mailer,
		genID:  genID,
		clock:  clk,
		log:    log.Named("notification.dispatch"),
	}
}

// Dispatch consults each recipient's preferences and either emails now,
// buckets for a digest, or skips. Feed rows are already materialized by the
// activity service; failures here never fail the recording write.
func (d *Dispatcher) Dispatch(ctx context.Context, activity activitydomain.Activity, recipientIDs []snowflake.ID) {
	if !domain.EmailWorthy(activity.Kind) {
		return
	}

	for _, recipientID := range recipientIDs {
		if err := d.dispatchOne(ctx, activity, recipientID); err != nil {
			d.log.Warn("dispatch failed",
				zap.String("activity_id", activity.ID),
				zap.String("recipient_id", recipientID.String()),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, activity activitydomain.Activity, recipientID snowflake.ID) error {
	prefs, err := d.prefs.Get(ctx, recipientID)
	if err != nil {
		return err
	}
	if !prefs.EmailEnabled || prefs.EmailDigest == domain.DigestNone || !prefs.Wants(activity.Kind) {
		return nil
	}

	user, err := d.users.GetByID(ctx, recipientID)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return nil
	}

	switch prefs.EmailDigest {
	case domain.DigestInstant:
		return d.sendInstant(ctx, activity, *user)
	case domain.DigestDaily:
		return d.bucket(ctx, activity, recipientID, 24*time.Hour)
	case domain.DigestWeekly:
		return d.bucket(ctx, activity, recipientID, 7*24*time.Hour)
	}
	return nil
}

// sendInstant claims the (activity, recipient) dispatch row first; the
// unique index makes a second claim a no-op. A failed send releases the
// claim so the digest sweep can retry.
func (d *Dispatcher) sendInstant(ctx context.Context, activity activitydomain.Activity, user identitydomain.User) error {
	now := d.clock.Now()
	row := domain.EmailDispatch{
		ID:          d.genID.Generate(),
		ActivityID:  activity.ID,
		RecipientID: user.ID,
		Kind:        activity.Kind,
		Status:      domain.DispatchSent,
		SentAt:      &now,
		CreatedAt:   now,
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}

	err := d.mailer.SendTemplate(ctx, []string{user.Email}, "activity", map[string]any{
		"subject":  headline(activity),
		"headline": headline(activity),
		"summary":  summary(activity),
	})
	if err != nil {
		_ = d.db.WithContext(ctx).Delete(&row).Error
		return err
	}
	return nil
}

func (d *Dispatcher) bucket(ctx context.Context, activity activitydomain.Activity, recipientID snowflake.ID, window time.Duration) error {
	now := d.clock.Now()
	due := now.Truncate(window).Add(window)
	row := domain.EmailDispatch{
		ID:          d.genID.Generate(),
		ActivityID:  activity.ID,
		RecipientID: recipientID,
		Kind:        activity.Kind,
		Status:      domain.DispatchQueued,
		SendAfter:   &due,
		CreatedAt:   now,
	}
	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil && !db.IsDuplicateKeyErr(err) {
		return err
	}
	return nil
}

// RunDigests sends every queued dispatch whose window has passed, one digest
// email per recipient. Returns the number of digests sent.
func (d *Dispatcher) RunDigests(ctx context.Context) (int, error) {
	now := d.clock.Now()

	var due []domain.EmailDispatch
	err := d.db.WithContext(ctx).
		Where("status = ? AND send_after <= ?", domain.DispatchQueued, now).
		Order("recipient_id ASC, send_after ASC").
		Find(&due).Error
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	byRecipient := make(map[snowflake.ID][]domain.EmailDispatch)
	for _, row := range due {
		byRecipient[row.RecipientID] = append(byRecipient[row.RecipientID], row)
	}

	sent := 0
	for recipientID, rows := range byRecipient {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		user, err := d.users.GetByID(ctx, recipientID)
		if err != nil || user.Email == "" {
			continue
		}

		items := make([]string, 0, len(rows))
		for _, row := range rows {
			items = append(items, humanKind(row.Kind))
		}
		err = d.mailer.SendTemplate(ctx, []string{user.Email}, "digest", map[string]any{
			"subject": "Your WorkHive digest",
			"items":   items,
		})
		if err != nil {
			d.log.Warn("digest send failed",
				zap.String("recipient_id", recipientID.String()),
				zap.Error(err))
			continue
		}

		ids := make([]snowflake.ID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		err = d.db.WithContext(ctx).Model(&domain.EmailDispatch{}).
			Where("id IN ?", ids).
			Updates(map[string]any{"status": domain.DispatchSent, "sent_at": now}).Error
		if err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func headline(activity activitydomain.Activity) string {
	name := ""
	if raw, ok := activity.Target["resource_name"]; ok {
		name, _ = raw.(string)
	}
	h := humanKind(activity.Kind)
	if name != "" {
		return fmt.Sprintf("%s on %s", h, name)
	}
	return h
}

func summary(activity activitydomain.Activity) string {
	if raw, ok := activity.Target["message"]; ok {
		if msg, _ := raw.(string); msg != "" {
			return msg
		}
	}
	return humanKind(activity.Kind)
}

func humanKind(kind string) string {
	return strings.ReplaceAll(kind, "_", " ")
}
