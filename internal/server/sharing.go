package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/workhive/workhive/internal/access"
	activitydomain "github.com/workhive/workhive/internal/activity/domain"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/resource"
	"go.uber.org/zap"
)

// recordActivity logs feed entries after a mutation committed. Failures are
// logged, never surfaced; the mutation already happened.
func (s *Server) recordActivity(c *gin.Context, actor identitydomain.User, ref *resource.Ref, kind string, target map[string]any) {
	if _, err := s.activitySvc.Record(c.Request.Context(), actor, ref, kind, target); err != nil {
		s.log.Warn("activity record failed",
			zap.String("kind", kind),
			zap.Error(err))
	}
}

func (s *Server) ListCollaborators(c *gin.Context) {
	user, _ := currentUser(c)
	ref, err := refFromParams(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionRead); err != nil {
		AbortWithError(c, err)
		return
	}

	grants, err := s.sharingSvc.GrantsFor(c.Request.Context(), ref)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grants": grants})
}

type setGrantRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

func (s *Server) SetGrant(c *gin.Context) {
	user, _ := currentUser(c)
	ref, err := refFromParams(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	granteeID, err := parseID(req.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionManageSharing); err != nil {
		AbortWithError(c, err)
		return
	}

	grant, err := s.sharingSvc.SetGrant(c.Request.Context(), ref, granteeID, req.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, user, &ref, activitydomain.KindPermissionGranted, map[string]any{
		"user_id": granteeID.String(),
		"role":    req.Role,
	})
	c.JSON(http.StatusOK, gin.H{"grant": grant})
}

func (s *Server) RevokeGrant(c *gin.Context) {
	user, _ := currentUser(c)
	ref, err := refFromParams(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	granteeID, err := parseID(c.Param("user_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionManageSharing); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.sharingSvc.RevokeGrant(c.Request.Context(), ref, granteeID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, user, &ref, activitydomain.KindPermissionRevoked, map[string]any{
		"user_id": granteeID.String(),
	})
	c.Status(http.StatusNoContent)
}

type createInviteRequest struct {
	ResourceType string `json:"resource_type" binding:"required"`
	ResourceID   string `json:"resource_id" binding:"required"`
	Email        string `json:"email" binding:"required"`
	Role         string `json:"role" binding:"required"`
}

func (s *Server) CreateInvite(c *gin.Context) {
	user, _ := currentUser(c)

	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if !resource.ValidType(req.ResourceType) {
		AbortWithError(c, resource.ErrUnknownType)
		return
	}
	id, err := parseID(req.ResourceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ref := resource.Ref{Type: req.ResourceType, ID: id}

	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionManageSharing); err != nil {
		AbortWithError(c, err)
		return
	}

	invitation, err := s.sharingSvc.CreateInvitation(c.Request.Context(), user, ref, req.Email, req.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, user, &ref, activitydomain.KindInvitationSent, map[string]any{
		"email": invitation.Email,
		"role":  invitation.Role,
	})
	c.JSON(http.StatusCreated, gin.H{"invitation": invitation})
}

func (s *Server) RevokeInvite(c *gin.Context) {
	user, _ := currentUser(c)
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invitation, err := s.sharingSvc.GetInvitation(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ref := resource.Ref{Type: invitation.ResourceType, ID: invitation.ResourceID}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionManageSharing); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.sharingSvc.RevokeInvitation(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListPendingInvites(c *gin.Context) {
	user, _ := currentUser(c)

	invitations, err := s.sharingSvc.ListPendingForEmail(c.Request.Context(), user.Email)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

func (s *Server) AcceptInvitation(c *gin.Context) {
	user, _ := currentUser(c)
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	grant, err := s.sharingSvc.AcceptInvitation(c.Request.Context(), user, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ref := resource.Ref{Type: grant.ResourceType, ID: grant.ResourceID}
	s.recordActivity(c, user, &ref, activitydomain.KindInvitationAccepted, map[string]any{
		"role": grant.Role,
	})
	c.JSON(http.StatusOK, gin.H{"grant": grant})
}

func (s *Server) ListSharedWithMe(c *gin.Context) {
	user, _ := currentUser(c)

	grants, err := s.sharingSvc.SharedWithUser(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grants": grants})
}

type createShareLinkRequest struct {
	Role string `json:"role" binding:"required"`
}

func (s *Server) CreateShareLink(c *gin.Context) {
	user, _ := currentUser(c)
	ref, err := refFromParams(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionManageSharing); err != nil {
		AbortWithError(c, err)
		return
	}

	link, err := s.sharingSvc.CreateShareLink(c.Request.Context(), ref, req.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

type toggleShareLinkRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (s *Server) ToggleShareLink(c *gin.Context) {
	user, _ := currentUser(c)
	ref, err := refFromParams(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req toggleShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionManageSharing); err != nil {
		AbortWithError(c, err)
		return
	}

	link, err := s.sharingSvc.ToggleShareLink(c.Request.Context(), ref, *req.Active)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

// ResolveSharedLink is the anonymous entry point. Inactive and unknown tokens
// answer identically.
func (s *Server) ResolveSharedLink(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))

	link, info, err := s.sharingSvc.ResolveShareToken(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.accessSvc.MayActViaLink(*link, access.ActionRead); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"resource": gin.H{
			"type": info.Ref.Type,
			"id":   info.Ref.ID.String(),
			"name": info.Name,
		},
		"role": link.Role,
	})
}
