// Package server is the HTTP surface. Handlers translate requests into
// domain service calls; permission checks run here, before any mutation.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/workhive/workhive/internal/access"
	"github.com/workhive/workhive/internal/activity"
	activitydomain "github.com/workhive/workhive/internal/activity/domain"
	"github.com/workhive/workhive/internal/auth"
	authdomain "github.com/workhive/workhive/internal/auth/domain"
	"github.com/workhive/workhive/internal/board"
	boarddomain "github.com/workhive/workhive/internal/board/domain"
	"github.com/workhive/workhive/internal/config"
	"github.com/workhive/workhive/internal/contact"
	contactdomain "github.com/workhive/workhive/internal/contact/domain"
	"github.com/workhive/workhive/internal/finance"
	financedomain "github.com/workhive/workhive/internal/finance/domain"
	"github.com/workhive/workhive/internal/identity"
	identitydomain "github.com/workhive/workhive/internal/identity/domain"
	"github.com/workhive/workhive/internal/notification"
	notificationdomain "github.com/workhive/workhive/internal/notification/domain"
	"github.com/workhive/workhive/internal/observability"
	obslogger "github.com/workhive/workhive/internal/observability/logger"
	obsmetrics "github.com/workhive/workhive/internal/observability/metrics"
	obstracing "github.com/workhive/workhive/internal/observability/tracing"
	"github.com/workhive/workhive/internal/project"
	projectdomain "github.com/workhive/workhive/internal/project/domain"
	"github.com/workhive/workhive/internal/providers/email"
	"github.com/workhive/workhive/internal/reminder"
	"github.com/workhive/workhive/internal/resource"
	"github.com/workhive/workhive/internal/sharing"
	sharingdomain "github.com/workhive/workhive/internal/sharing/domain"
	"github.com/workhive/workhive/internal/workspace"
	workspacedomain "github.com/workhive/workhive/internal/workspace/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),

	identity.Module,
	auth.Module,
	workspace.Module,
	project.Module,
	board.Module,
	contact.Module,
	finance.Module,
	resource.Module,
	sharing.Module,
	access.Module,
	activity.Module,
	notification.Module,
	email.Module,
	reminder.Module,

	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	authsvc         authdomain.Service
	identitySvc     identitydomain.Service
	workspaceSvc    workspacedomain.Service
	projectSvc      projectdomain.Service
	boardSvc        boarddomain.Service
	contactSvc      contactdomain.Service
	financeSvc      financedomain.Service
	sharingSvc      sharingdomain.Service
	accessSvc       access.Service
	activitySvc     activitydomain.Service
	notificationSvc notificationdomain.Service
	reminderSvc     *reminder.Service
	mailer          email.Provider
	log             *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Authsvc         authdomain.Service
	IdentitySvc     identitydomain.Service
	WorkspaceSvc    workspacedomain.Service
	ProjectSvc      projectdomain.Service
	BoardSvc        boarddomain.Service
	ContactSvc      contactdomain.Service
	FinanceSvc      financedomain.Service
	SharingSvc      sharingdomain.Service
	AccessSvc       access.Service
	ActivitySvc     activitydomain.Service
	NotificationSvc notificationdomain.Service
	ReminderSvc     *reminder.Service
	Mailer          email.Provider
	Log             *zap.Logger
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		authsvc:         p.Authsvc,
		identitySvc:     p.IdentitySvc,
		workspaceSvc:    p.WorkspaceSvc,
		projectSvc:      p.ProjectSvc,
		boardSvc:        p.BoardSvc,
		contactSvc:      p.ContactSvc,
		financeSvc:      p.FinanceSvc,
		sharingSvc:      p.SharingSvc,
		accessSvc:       p.AccessSvc,
		activitySvc:     p.ActivitySvc,
		notificationSvc: p.NotificationSvc,
		reminderSvc:     p.ReminderSvc,
		mailer:          p.Mailer,
		log:             p.Log.Named("server"),
	}

	s.registerAuthRoutes()
	s.registerPublicRoutes()
	s.registerAPIRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")

	authGroup.POST("/login", s.Login)
	authGroup.POST("/logout", s.Logout)
	authGroup.GET("/me", s.AuthRequired(), s.Me)
	authGroup.POST("/resend-verification", s.AuthRequired(), s.ResendVerification)
}

func (s *Server) registerPublicRoutes() {
	s.engine.GET("/shared/:token", s.ResolveSharedLink)
	s.engine.GET("/verify-email", s.VerifyEmail)
}

func (s *Server) registerAPIRoutes() {
	r := s.engine.Group("/", s.AuthRequired())

	r.GET("/workspaces", s.ListWorkspaces)

	// -------- Sharing --------
	r.GET("/:resource_type/:id/collaborators", s.ListCollaborators)
	r.POST("/:resource_type/:id/grants", s.SetGrant)
	r.DELETE("/:resource_type/:id/grants/:user_id", s.RevokeGrant)
	r.POST("/:resource_type/:id/share-link", s.CreateShareLink)
	r.PUT("/:resource_type/:id/share-link", s.ToggleShareLink)
	r.POST("/invites", s.CreateInvite)
	r.DELETE("/invites/:id", s.RevokeInvite)
	r.GET("/invites/pending", s.ListPendingInvites)
	r.POST("/invitations/:id/accept", s.AcceptInvitation)
	r.GET("/shared-with-me", s.ListSharedWithMe)

	// -------- Activity --------
	r.GET("/activity/feed", s.ActivityFeed)
	r.GET("/activity/unread-count", s.ActivityUnreadCount)
	r.POST("/activity/mark-read", s.ActivityMarkRead)
	r.GET("/user/notification-preferences", s.GetNotificationPreferences)
	r.PUT("/user/notification-preferences", s.UpdateNotificationPreferences)

	// -------- Projects --------
	r.POST("/projects", s.CreateProject)
	r.GET("/projects", s.ListProjects)
	r.PATCH("/projects/:id", s.RenameProject)
	r.DELETE("/projects/:id", s.DeleteProject)

	// -------- Boards / CRM --------
	r.POST("/boards", s.CreateBoard)
	r.GET("/boards", s.ListBoards)
	r.POST("/contacts", s.CreateContact)
	r.GET("/contacts", s.ListContacts)
	r.POST("/contacts/reminders", s.CreateCRMReminder)
	r.GET("/contacts/reminders", s.ListCRMReminders)
	r.POST("/contacts/reminders/:id/done", s.MarkCRMReminderDone)

	// -------- Finance --------
	r.POST("/finanzas/companies", s.CreateCompany)
	r.GET("/finanzas/companies", s.ListCompanies)
	r.GET("/finanzas/companies/:id/summary", s.CompanySummary)
	r.GET("/finanzas/companies/:id/receivables", s.ListReceivables)
	r.POST("/finanzas/incomes", s.CreateIncome)
	r.POST("/finanzas/expenses", s.CreateExpense)
	r.POST("/finanzas/partial-payments", s.AddPayment)
	r.GET("/finanzas/partial-payments/:income_id", s.ListPayments)
	r.DELETE("/finanzas/partial-payments/:payment_id", s.DeletePayment)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired(), s.AdminRequired())

	admin.POST("/run-verification-reminders", s.RunVerificationReminders)
}
