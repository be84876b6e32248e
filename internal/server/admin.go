package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunVerificationReminders triggers one scheduler tick on demand. A tick
// already in flight answers 409 instead of running twice.
func (s *Server) RunVerificationReminders(c *gin.Context) {
	stats, err := s.reminderSvc.Run(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}
