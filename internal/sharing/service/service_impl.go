package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/workhive/workhive/internal/clock"
	"github.com/workhive/workhive/internal/config"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/providers/email"
	"github.com/workhive/workhive/internal/resource"
	"github.com/workhive/workhive/internal/sharing/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const invitationTTL = 7 * 24 * time.Hour

type service struct {
	db       *gorm.DB
	repo     domain.Repository
	resolver resource.Resolver
	plans    *config.PlanConfigHolder
	mailer   email.Provider
	baseURL  string
	genID    *snowflake.Node
	clock    clock.Clock
	log      *zap.Logger
}

func NewService(
	conn *gorm.DB,
	repo domain.Repository,
	resolver resource.Resolver,
	plans *config.PlanConfigHolder,
	mailer email.Provider,
	cfg config.Config,
	genID *snowflake.Node,
	clk clock.Clock,
	log *zap.Logger,
) domain.Service {
	return &service{
		db:       conn,
		repo:     repo,
		resolver: resolver,
		plans:    plans,
		mailer:   mailer,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		genID:    genID,
		clock:    clk,
		log:      log.Named("sharing"),
	}
}

func (s *service) SetGrant(ctx context.Context, ref resource.Ref, userID snowflake.ID, role string) (*domain.Grant, error) {
	if !domain.GrantableRole(role) {
		return nil, domain.ErrInvalidRole
	}
	if _, err := s.resolver.Resolve(ctx, ref); err != nil {
		return nil, err
	}
	return s.repo.UpsertGrant(ctx, domain.Grant{
		ID:           s.genID.Generate(),
		ResourceType: ref.Type,
		ResourceID:   ref.ID,
		UserID:       userID,
		Role:         role,
		CreatedAt:    s.clock.Now(),
	})
}

// RevokeGrant is a no-op when no grant exists.
func (s *service) RevokeGrant(ctx context.Context, ref resource.Ref, userID snowflake.ID) error {
	return s.repo.DeleteGrant(ctx, ref.Type, ref.ID, userID)
}

func (s *service) GrantsFor(ctx context.Context, ref resource.Ref) ([]domain.Grant, error) {
	return s.repo.GrantsFor(ctx, ref.Type, ref.ID)
}

func (s *service) GrantFor(ctx context.Context, ref resource.Ref, userID snowflake.ID) (*domain.Grant, error) {
	return s.repo.GrantFor(ctx, ref.Type, ref.ID, userID)
}

func (s *service) SharedWithUser(ctx context.Context, userID snowflake.ID) ([]domain.Grant, error) {
	return s.repo.GrantsByUser(ctx, userID)
}

func (s *service) CreateInvitation(ctx context.Context, inviter identitydomain.User, ref resource.Ref, addr, role string) (*domain.Invitation, error) {
	if !domain.GrantableRole(role) {
		return nil, domain.ErrInvalidRole
	}
	addr = strings.TrimSpace(addr)
	if addr == "" || !strings.Contains(addr, "@") {
		return nil, domain.ErrInvalidEmail
	}
	if inviter.Email != "" && strings.EqualFold(addr, inviter.Email) {
		return nil, domain.ErrSelfInvite
	}

	info, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	// Re-inviting the same address updates the pending row instead of
	// stacking a second one.
	if existing, err := s.repo.PendingInvitation(ctx, ref.Type, ref.ID, addr); err != nil {
		return nil, err
	} else if existing != nil {
		existing.Role = role
		existing.ExpiresAt = now.Add(invitationTTL)
		if err := s.repo.UpdateInvitation(ctx, *existing); err != nil {
			return nil, err
		}
		return existing, s.sendInvitation(ctx, inviter, *existing, info)
	}

	if err := s.checkQuota(ctx, inviter, ref); err != nil {
		return nil, err
	}

	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	inv := domain.Invitation{
		ID:           s.genID.Generate(),
		ResourceType: ref.Type,
		ResourceID:   ref.ID,
		InviterID:    inviter.ID,
		Email:        strings.ToLower(addr),
		Role:         role,
		Status:       domain.StatusPending,
		Token:        token,
		CreatedAt:    now,
		ExpiresAt:    now.Add(invitationTTL),
	}
	if err := s.repo.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	return &inv, s.sendInvitation(ctx, inviter, inv, info)
}

func (s *service) AcceptInvitation(ctx context.Context, user identitydomain.User, invitationID snowflake.ID) (*domain.Grant, error) {
	inv, err := s.repo.InvitationByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	switch inv.Status {
	case domain.StatusPending:
	case domain.StatusExpired:
		return nil, domain.ErrInvitationExpired
	default:
		return nil, domain.ErrAlreadyConsumed
	}

	now := s.clock.Now()
	if !inv.ExpiresAt.After(now) {
		// Lazy transition; losing the race to another expirer is fine.
		if _, err := s.repo.SetInvitationStatus(ctx, inv.ID, domain.StatusPending, domain.StatusExpired); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvitationExpired
	}

	// Only the verified primary address the invite was sent to may accept.
	if !user.EmailVerified || !strings.EqualFold(user.Email, inv.Email) {
		return nil, domain.ErrWrongUser
	}

	var grant *domain.Grant
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		moved, err := repo.SetInvitationStatus(ctx, inv.ID, domain.StatusPending, domain.StatusAccepted)
		if err != nil {
			return err
		}
		if !moved {
			return domain.ErrAlreadyConsumed
		}

		inv.Status = domain.StatusAccepted
		inv.AcceptedAt = &now
		if err := repo.UpdateInvitation(ctx, *inv); err != nil {
			return err
		}

		grant, err = repo.UpsertGrant(ctx, domain.Grant{
			ID:           s.genID.Generate(),
			ResourceType: inv.ResourceType,
			ResourceID:   inv.ResourceID,
			UserID:       user.ID,
			Role:         inv.Role,
			CreatedAt:    now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (s *service) RevokeInvitation(ctx context.Context, invitationID snowflake.ID) error {
	inv, err := s.repo.InvitationByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv.Status != domain.StatusPending {
		return domain.ErrAlreadyConsumed
	}
	moved, err := s.repo.SetInvitationStatus(ctx, inv.ID, domain.StatusPending, domain.StatusRevoked)
	if err != nil {
		return err
	}
	if !moved {
		return domain.ErrAlreadyConsumed
	}
	return nil
}

func (s *service) GetInvitation(ctx context.Context, invitationID snowflake.ID) (*domain.Invitation, error) {
	return s.repo.InvitationByID(ctx, invitationID)
}

func (s *service) ListPendingForEmail(ctx context.Context, addr string) ([]domain.Invitation, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, domain.ErrInvalidEmail
	}
	return s.repo.PendingByEmail(ctx, addr)
}

func (s *service) CreateShareLink(ctx context.Context, ref resource.Ref, role string) (*domain.ShareLink, error) {
	if !domain.LinkRole(role) {
		return nil, domain.ErrInvalidRole
	}
	if _, err := s.resolver.Resolve(ctx, ref); err != nil {
		return nil, err
	}

	// Idempotent: the resource's link and token are stable across repeat
	// creates.
	if existing, err := s.repo.ShareLinkFor(ctx, ref.Type, ref.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	link := domain.ShareLink{
		ID:           s.genID.Generate(),
		ResourceType: ref.Type,
		ResourceID:   ref.ID,
		Token:        token,
		Role:         role,
		Active:       true,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.CreateShareLink(ctx, link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *service) ToggleShareLink(ctx context.Context, ref resource.Ref, active bool) (*domain.ShareLink, error) {
	link, err := s.repo.ShareLinkFor(ctx, ref.Type, ref.ID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrLinkNotFound
	}
	if err := s.repo.SetShareLinkActive(ctx, link.ID, active); err != nil {
		return nil, err
	}
	link.Active = active
	return link, nil
}

func (s *service) ResolveShareToken(ctx context.Context, token string) (*domain.ShareLink, *resource.Info, error) {
	link, err := s.repo.ShareLinkByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, nil, err
	}
	// Inactive looks exactly like unknown to the caller.
	if !link.Active {
		return nil, nil, domain.ErrLinkNotFound
	}
	info, err := s.resolver.Resolve(ctx, resource.Ref{Type: link.ResourceType, ID: link.ResourceID})
	if err != nil {
		return nil, nil, domain.ErrLinkNotFound
	}
	return link, info, nil
}

func (s *service) checkQuota(ctx context.Context, inviter identitydomain.User, ref resource.Ref) error {
	limits := s.plans.LimitsFor(inviter.Plan)

	pending, err := s.repo.CountPending(ctx, ref.Type, ref.ID)
	if err != nil {
		return err
	}
	if limits.MaxPendingInvites >= 0 && pending >= int64(limits.MaxPendingInvites) {
		return domain.ErrPlanLimited
	}

	if limits.MaxCollaboratorsPerResource >= 0 {
		grants, err := s.repo.GrantsFor(ctx, ref.Type, ref.ID)
		if err != nil {
			return err
		}
		if int64(len(grants))+pending >= int64(limits.MaxCollaboratorsPerResource) {
			return domain.ErrPlanLimited
		}
	}
	return nil
}

func (s *service) sendInvitation(ctx context.Context, inviter identitydomain.User, inv domain.Invitation, info *resource.Info) error {
	inviterName := inviter.DisplayName
	if inviterName == "" {
		inviterName = inviter.Username
	}
	err := s.mailer.SendTemplate(ctx, []string{inv.Email}, "invitation", map[string]any{
		"subject":       inviterName + " invited you to " + info.Name,
		"inviter_name":  inviterName,
		"resource_name": info.Name,
		"role":          inv.Role,
		"accept_url":    s.baseURL + "/invitations/" + inv.ID.String() + "/accept?token=" + inv.Token,
		"expires_at":    inv.ExpiresAt.Format("Jan 2, 2006"),
	})
	if err != nil {
		s.log.Warn("invitation email failed",
			zap.String("invitation_id", inv.ID.String()),
			zap.Error(err))
		return domain.ErrEmailDelivery
	}
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
