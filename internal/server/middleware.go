package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/workhive/workhive/internal/access"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/resource"
)

const contextUserKey = "current_user"

// AuthRequired resolves the bearer token to its user and lazily ensures the
// personal workspace exists, so every authenticated request can assume one.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if _, err := s.workspaceSvc.EnsurePersonal(c.Request.Context(), *user); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserKey, *user)
		c.Next()
	}
}

func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if user.Role != identitydomain.RoleAdmin {
			AbortWithError(c, access.ErrForbidden)
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) (identitydomain.User, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return identitydomain.User{}, false
	}
	user, ok := value.(identitydomain.User)
	return user, ok
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// refFromParams reads the (:resource_type, :id) pair shared by the sharing
// routes.
func refFromParams(c *gin.Context) (resource.Ref, error) {
	resourceType := c.Param("resource_type")
	if !resource.ValidType(resourceType) {
		return resource.Ref{}, resource.ErrUnknownType
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		return resource.Ref{}, err
	}
	return resource.Ref{Type: resourceType, ID: id}, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidRequest
	}
	return id, nil
}
