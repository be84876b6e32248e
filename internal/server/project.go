package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/workhive/workhive/internal/access"
	activitydomain "github.com/workhive/workhive/internal/activity/domain"
	"github.com/workhive/workhive/internal/resource"
)

type projectRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) CreateProject(c *gin.Context) {
	user, _ := currentUser(c)

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	workspace, err := s.workspaceSvc.EnsurePersonal(c.Request.Context(), user)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	project, err := s.projectSvc.Create(c.Request.Context(), workspace.ID, user.Username, req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ref := resource.Ref{Type: resource.TypeProject, ID: project.ID}
	s.recordActivity(c, user, &ref, activitydomain.KindResourceCreated, map[string]any{
		"resource_name": project.Name,
	})
	c.JSON(http.StatusCreated, gin.H{"project": project})
}

func (s *Server) ListProjects(c *gin.Context) {
	user, _ := currentUser(c)

	projects, err := s.projectSvc.ListByOwner(c.Request.Context(), user.Username)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (s *Server) RenameProject(c *gin.Context) {
	user, _ := currentUser(c)
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ref := resource.Ref{Type: resource.TypeProject, ID: id}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionWrite); err != nil {
		AbortWithError(c, err)
		return
	}

	project, err := s.projectSvc.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, user, &ref, activitydomain.KindResourceRenamed, map[string]any{
		"resource_name": project.Name,
	})
	c.JSON(http.StatusOK, gin.H{"project": project})
}

func (s *Server) DeleteProject(c *gin.Context) {
	user, _ := currentUser(c)
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ref := resource.Ref{Type: resource.TypeProject, ID: id}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionDelete); err != nil {
		AbortWithError(c, err)
		return
	}

	project, err := s.projectSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.projectSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	// Recorded without a ref; the resource row is gone.
	s.recordActivity(c, user, nil, activitydomain.KindResourceDeleted, map[string]any{
		"resource_name": project.Name,
	})
	c.Status(http.StatusNoContent)
}
