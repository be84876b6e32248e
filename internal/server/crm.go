package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/workhive/workhive/internal/access"
	contactdomain "github.com/workhive/workhive/internal/contact/domain"
	"github.com/workhive/workhive/internal/resource"
)

type boardRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) CreateBoard(c *gin.Context) {
	user, _ := currentUser(c)

	var req boardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	workspace, err := s.workspaceSvc.EnsurePersonal(c.Request.Context(), user)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	board, err := s.boardSvc.Create(c.Request.Context(), workspace.ID, user.Username, req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"board": board})
}

func (s *Server) ListBoards(c *gin.Context) {
	user, _ := currentUser(c)

	boards, err := s.boardSvc.ListByOwner(c.Request.Context(), user.Username)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"boards": boards})
}

type contactRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (s *Server) CreateContact(c *gin.Context) {
	user, _ := currentUser(c)

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	workspace, err := s.workspaceSvc.EnsurePersonal(c.Request.Context(), user)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	contact, err := s.contactSvc.Create(c.Request.Context(), workspace.ID, user.Username, contactdomain.CreateContactRequest{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contact": contact})
}

func (s *Server) ListContacts(c *gin.Context) {
	user, _ := currentUser(c)

	contacts, err := s.contactSvc.ListByOwner(c.Request.Context(), user.Username)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

type crmReminderRequest struct {
	ContactID string  `json:"contact_id"`
	Title     string  `json:"title" binding:"required"`
	DueAt     *string `json:"due_at"`
}

func (s *Server) CreateCRMReminder(c *gin.Context) {
	user, _ := currentUser(c)

	var req crmReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	domainReq := contactdomain.CreateReminderRequest{
		Title: req.Title,
		DueAt: req.DueAt,
	}
	if req.ContactID != "" {
		id, err := parseID(req.ContactID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		domainReq.ContactID = &id
	}

	workspace, err := s.workspaceSvc.EnsurePersonal(c.Request.Context(), user)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reminder, err := s.contactSvc.CreateReminder(c.Request.Context(), workspace.ID, user.Username, domainReq)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reminder": reminder})
}

func (s *Server) ListCRMReminders(c *gin.Context) {
	user, _ := currentUser(c)

	reminders, err := s.contactSvc.ListReminders(c.Request.Context(), user.Username)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

func (s *Server) MarkCRMReminderDone(c *gin.Context) {
	user, _ := currentUser(c)
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ref := resource.Ref{Type: resource.TypeReminder, ID: id}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionWrite); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.contactSvc.MarkReminderDone(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
