package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	sharingdomain "github.com/workhive/workhive/internal/sharing/domain"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	session, user, err := s.authsvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       user,
	})
}

func (s *Server) Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// VerifyEmail consumes the token from a verification email. Public; the user
// clicks it from their inbox without a session.
func (s *Server) VerifyEmail(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	user, err := s.identitySvc.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true, "user": user})
}

func (s *Server) ResendVerification(c *gin.Context) {
	user, _ := currentUser(c)

	token, err := s.identitySvc.ResendVerification(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	displayName := user.DisplayName
	if displayName == "" {
		displayName = user.Username
	}
	err = s.mailer.SendTemplate(c.Request.Context(), []string{user.Email}, "verification_reminder", map[string]any{
		"subject":      "Please verify your WorkHive email",
		"display_name": displayName,
		"verify_url":   strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/verify-email?token=" + token.Token,
		"expires_at":   token.ExpiresAt.Format("Jan 2, 2006 15:04 MST"),
	})
	if err != nil {
		AbortWithError(c, sharingdomain.ErrEmailDelivery)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expires_at": token.ExpiresAt})
}
