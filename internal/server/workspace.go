package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListWorkspaces(c *gin.Context) {
	user, _ := currentUser(c)

	workspaces, err := s.workspaceSvc.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
}
