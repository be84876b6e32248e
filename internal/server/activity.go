package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	activitydomain "github.com/workhive/workhive/internal/activity/domain"
	notificationdomain "github.com/workhive/workhive/internal/notification/domain"
)

func (s *Server) ActivityFeed(c *gin.Context) {
	user, _ := currentUser(c)

	q := activitydomain.FeedQuery{
		Limit:      intQuery(c, "limit", 0),
		Offset:     intQuery(c, "offset", 0),
		IncludeOwn: boolQuery(c, "include_own"),
	}

	items, err := s.activitySvc.Feed(c.Request.Context(), user.ID, q)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) ActivityUnreadCount(c *gin.Context) {
	user, _ := currentUser(c)

	count, err := s.activitySvc.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

type markReadRequest struct {
	IDs []string `json:"ids"`
	All bool     `json:"all"`
}

func (s *Server) ActivityMarkRead(c *gin.Context) {
	user, _ := currentUser(c)

	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var err error
	if req.All {
		err = s.activitySvc.MarkAllRead(c.Request.Context(), user.ID)
	} else {
		err = s.activitySvc.MarkRead(c.Request.Context(), user.ID, req.IDs)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetNotificationPreferences(c *gin.Context) {
	user, _ := currentUser(c)

	prefs, err := s.notificationSvc.Get(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func (s *Server) UpdateNotificationPreferences(c *gin.Context) {
	user, _ := currentUser(c)

	var req notificationdomain.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	prefs, err := s.notificationSvc.Update(c.Request.Context(), user.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}

func boolQuery(c *gin.Context, key string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && value
}
