package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/workhive/workhive/internal/access"
	activitydomain "github.com/workhive/workhive/internal/activity/domain"
	authdomain "github.com/workhive/workhive/internal/auth/domain"
	boarddomain "github.com/workhive/workhive/internal/board/domain"
	contactdomain "github.com/workhive/workhive/internal/contact/domain"
	financedomain "github.com/workhive/workhive/internal/finance/domain"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	notificationdomain "github.com/workhive/workhive/internal/notification/domain"
	projectdomain "github.com/workhive/workhive/internal/project/domain"
	"github.com/workhive/workhive/internal/reminder"
	"github.com/workhive/workhive/internal/resource"
	sharingdomain "github.com/workhive/workhive/internal/sharing/domain"
	workspacedomain "github.com/workhive/workhive/internal/workspace/domain"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

type errorPayload struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	ExistingID string `json:"existing_id,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware renders the last handler error after the chain
// finished. Handlers attach errors via AbortWithError and never write error
// bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, err.Error()
}

// mapError is the single place domain sentinels become HTTP statuses. The
// three 4xx families the clients branch on (forbidden, plan_limited,
// name_conflict) never conflate.
func mapError(err error) (int, errorPayload) {
	var conflict *projectdomain.NameConflictError
	if errors.As(err, &conflict) {
		return http.StatusConflict, errorPayload{
			Type:       "name_conflict",
			Message:    conflict.Error(),
			ExistingID: conflict.ExistingID.String(),
			Suggestion: fmt.Sprintf("%s (2)", conflict.ExistingName),
		}
	}

	switch {
	case errors.Is(err, sharingdomain.ErrPlanLimited):
		return http.StatusForbidden, errorPayload{
			Type:    "plan_limited",
			Message: "plan limit reached",
		}

	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}

	case errors.Is(err, access.ErrForbidden),
		errors.Is(err, authdomain.ErrAccountDisabled),
		errors.Is(err, sharingdomain.ErrWrongUser),
		errors.Is(err, workspacedomain.ErrOwnerImmutable):
		// Never reveals whether the resource exists.
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}

	case isInvalidInput(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_input",
			Message: err.Error(),
		}

	case errors.Is(err, financedomain.ErrExceedsBalance):
		return http.StatusBadRequest, errorPayload{
			Type:    "exceeds_balance",
			Message: "payment exceeds remaining balance",
		}

	case errors.Is(err, sharingdomain.ErrInvitationExpired),
		errors.Is(err, identitydomain.ErrTokenExpired):
		return http.StatusGone, errorPayload{
			Type:    "expired",
			Message: "expired",
		}

	case errors.Is(err, sharingdomain.ErrAlreadyConsumed),
		errors.Is(err, identitydomain.ErrAlreadyVerified),
		errors.Is(err, reminder.ErrAlreadyRunning):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}

	case errors.Is(err, identitydomain.ErrResendThrottled):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "throttled",
			Message: "resend throttled",
		}

	case isNotFound(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}

	case errors.Is(err, sharingdomain.ErrEmailDelivery):
		return http.StatusBadGateway, errorPayload{
			Type:    "transport",
			Message: "email delivery failed",
		}

	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isInvalidInput(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, sharingdomain.ErrInvalidRole),
		errors.Is(err, sharingdomain.ErrInvalidEmail),
		errors.Is(err, sharingdomain.ErrSelfInvite),
		errors.Is(err, projectdomain.ErrInvalidName),
		errors.Is(err, boarddomain.ErrInvalidName),
		errors.Is(err, contactdomain.ErrInvalidName),
		errors.Is(err, contactdomain.ErrInvalidTitle),
		errors.Is(err, contactdomain.ErrInvalidDueAt),
		errors.Is(err, financedomain.ErrInvalidName),
		errors.Is(err, financedomain.ErrInvalidAmount),
		errors.Is(err, workspacedomain.ErrInvalidRole),
		errors.Is(err, activitydomain.ErrUnknownKind),
		errors.Is(err, notificationdomain.ErrInvalidDigest),
		errors.Is(err, notificationdomain.ErrInvalidPreference),
		errors.Is(err, identitydomain.ErrInvalidUsername),
		errors.Is(err, identitydomain.ErrInvalidEmail),
		errors.Is(err, identitydomain.ErrInvalidPassword),
		errors.Is(err, resource.ErrUnknownType):
		return true
	default:
		return false
	}
}

func isNotFound(err error) bool {
	switch {
	case errors.Is(err, resource.ErrNotFound),
		errors.Is(err, identitydomain.ErrNotFound),
		errors.Is(err, identitydomain.ErrTokenNotFound),
		errors.Is(err, workspacedomain.ErrNotFound),
		errors.Is(err, workspacedomain.ErrNotMember),
		errors.Is(err, projectdomain.ErrNotFound),
		errors.Is(err, boarddomain.ErrNotFound),
		errors.Is(err, contactdomain.ErrNotFound),
		errors.Is(err, financedomain.ErrCompanyNotFound),
		errors.Is(err, financedomain.ErrIncomeNotFound),
		errors.Is(err, financedomain.ErrPaymentNotFound),
		errors.Is(err, sharingdomain.ErrInvitationNotFound),
		errors.Is(err, sharingdomain.ErrLinkNotFound),
		errors.Is(err, activitydomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
