package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/workhive/workhive/internal/access"
	activitydomain "github.com/workhive/workhive/internal/activity/domain"
	financedomain "github.com/workhive/workhive/internal/finance/domain"
	"github.com/workhive/workhive/internal/resource"
)

type companyRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) CreateCompany(c *gin.Context) {
	user, _ := currentUser(c)

	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	workspace, err := s.workspaceSvc.EnsurePersonal(c.Request.Context(), user)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	company, err := s.financeSvc.CreateCompany(c.Request.Context(), workspace.ID, user.Username, req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"company": company})
}

func (s *Server) ListCompanies(c *gin.Context) {
	user, _ := currentUser(c)

	companies, err := s.financeSvc.ListCompanies(c.Request.Context(), user.Username)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

func (s *Server) CompanySummary(c *gin.Context) {
	user, _ := currentUser(c)
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ref := resource.Ref{Type: resource.TypeCompany, ID: id}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionRead); err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.financeSvc.Summary(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) ListReceivables(c *gin.Context) {
	user, _ := currentUser(c)
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ref := resource.Ref{Type: resource.TypeCompany, ID: id}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionRead); err != nil {
		AbortWithError(c, err)
		return
	}

	report, err := s.financeSvc.ListReceivables(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

type createIncomeRequest struct {
	CompanyID   string `json:"company_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Source      string `json:"source"`
	ClientName  string `json:"client_name"`
	Note        string `json:"note"`
	Date        string `json:"date"`
}

func (s *Server) CreateIncome(c *gin.Context) {
	user, _ := currentUser(c)

	var req createIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	companyID, err := parseID(req.CompanyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ref := resource.Ref{Type: resource.TypeCompany, ID: companyID}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionWrite); err != nil {
		AbortWithError(c, err)
		return
	}

	income, err := s.financeSvc.CreateIncome(c.Request.Context(), financedomain.CreateIncomeRequest{
		CompanyID:   companyID,
		AmountCents: req.AmountCents,
		Source:      req.Source,
		ClientName:  req.ClientName,
		Note:        req.Note,
		Date:        date,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"income": income})
}

type createExpenseRequest struct {
	CompanyID   string `json:"company_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Paid        bool   `json:"paid"`
	Note        string `json:"note"`
	Date        string `json:"date"`
}

func (s *Server) CreateExpense(c *gin.Context) {
	user, _ := currentUser(c)

	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	companyID, err := parseID(req.CompanyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ref := resource.Ref{Type: resource.TypeCompany, ID: companyID}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, ref, access.ActionWrite); err != nil {
		AbortWithError(c, err)
		return
	}

	expense, err := s.financeSvc.CreateExpense(c.Request.Context(), financedomain.CreateExpenseRequest{
		CompanyID:   companyID,
		AmountCents: req.AmountCents,
		Paid:        req.Paid,
		Note:        req.Note,
		Date:        date,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

type addPaymentRequest struct {
	IncomeID    string `json:"income_id" binding:"required"`
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Date        string `json:"date"`
	Method      string `json:"method"`
	Note        string `json:"note"`
}

func (s *Server) AddPayment(c *gin.Context) {
	user, _ := currentUser(c)

	var req addPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	incomeID, err := parseID(req.IncomeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ref, err := s.companyRefForIncome(c, incomeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, *ref, access.ActionWrite); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.financeSvc.AddPayment(c.Request.Context(), financedomain.AddPaymentRequest{
		IncomeID:    incomeID,
		AmountCents: req.AmountCents,
		Date:        date,
		Method:      req.Method,
		Note:        req.Note,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordActivity(c, user, ref, activitydomain.KindPaymentAdded, map[string]any{
		"amount_cents": req.AmountCents,
		"income_id":    incomeID.String(),
	})
	c.JSON(http.StatusCreated, result)
}

func (s *Server) ListPayments(c *gin.Context) {
	user, _ := currentUser(c)
	incomeID, err := parseID(c.Param("income_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ref, err := s.companyRefForIncome(c, incomeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, *ref, access.ActionRead); err != nil {
		AbortWithError(c, err)
		return
	}

	list, err := s.financeSvc.ListPayments(c.Request.Context(), incomeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) DeletePayment(c *gin.Context) {
	user, _ := currentUser(c)
	paymentID, err := parseID(c.Param("payment_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payment, err := s.financeSvc.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ref, err := s.companyRefForIncome(c, payment.IncomeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.accessSvc.MayAct(c.Request.Context(), user, *ref, access.ActionWrite); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.financeSvc.DeletePayment(c.Request.Context(), paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// companyRefForIncome resolves the company behind an income; finance rows are
// permission checked against their company.
func (s *Server) companyRefForIncome(c *gin.Context, incomeID snowflake.ID) (*resource.Ref, error) {
	income, err := s.financeSvc.GetIncome(c.Request.Context(), incomeID)
	if err != nil {
		return nil, err
	}
	return &resource.Ref{Type: resource.TypeCompany, ID: income.CompanyID}, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidRequest
}
