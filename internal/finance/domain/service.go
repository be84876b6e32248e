package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateCompany(ctx context.Context, workspaceID snowflake.ID, ownerUsername, name string) (*Company, error)
	GetCompany(ctx context.Context, id snowflake.ID) (*Company, error)
	ListCompanies(ctx context.Context, ownerUsername string) ([]Company, error)

	CreateIncome(ctx context.Context, req CreateIncomeRequest) (*Income, error)
	GetIncome(ctx context.Context, id snowflake.ID) (*Income, error)
	CreateExpense(ctx context.Context, req CreateExpenseRequest) (*Expense, error)

	// AddPayment inserts a payment and recomputes the parent income from the
	// payment sum inside one transaction. Rejects amounts that would push the
	// paid sum past the receivable.
	AddPayment(ctx context.Context, req AddPaymentRequest) (*PaymentResult, error)
	GetPayment(ctx context.Context, id snowflake.ID) (*PartialPayment, error)
	ListPayments(ctx context.Context, incomeID snowflake.ID) (*PaymentList, error)
	DeletePayment(ctx context.Context, paymentID snowflake.ID) (*PaymentResult, error)

	ListReceivables(ctx context.Context, companyID snowflake.ID) (*ReceivablesReport, error)
	Summary(ctx context.Context, companyID snowflake.ID) (*CompanySummary, error)
}

type CreateIncomeRequest struct {
	CompanyID   snowflake.ID
	AmountCents int64
	Source      string
	ClientName  string
	Note        string
	Date        time.Time
}

type CreateExpenseRequest struct {
	CompanyID   snowflake.ID
	AmountCents int64
	Paid        bool
	Note        string
	Date        time.Time
}

type AddPaymentRequest struct {
	IncomeID    snowflake.ID
	AmountCents int64
	Date        time.Time
	Method      string
	Note        string
}

// PaymentResult carries the mutated payment together with the recomputed
// parent income.
type PaymentResult struct {
	Payment *PartialPayment `json:"payment,omitempty"`
	Income  Income          `json:"income"`
}

type PaymentList struct {
	Payments   []PartialPayment `json:"payments"`
	TotalCents int64            `json:"total_cents"`
	Income     Income           `json:"income"`
}

type ReceivableRow struct {
	Income              Income `json:"income"`
	PendingBalanceCents int64  `json:"pending_balance_cents"`
}

type ReceivablesReport struct {
	Rows              []ReceivableRow `json:"rows"`
	TotalPendingCents int64           `json:"total_pending_cents"`
	TotalPaidCents    int64           `json:"total_paid_cents"`
}

type CompanySummary struct {
	CompanyID            snowflake.ID `json:"company_id"`
	CollectedIncomeCents int64        `json:"collected_income_cents"`
	PaidExpenseCents     int64        `json:"paid_expense_cents"`
	NetCents             int64        `json:"net_cents"`
	Health               string       `json:"health"`
}

var (
	ErrCompanyNotFound = errors.New("company_not_found")
	ErrIncomeNotFound  = errors.New("income_not_found")
	ErrPaymentNotFound = errors.New("payment_not_found")
	ErrInvalidName     = errors.New("invalid_company_name")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrExceedsBalance  = errors.New("exceeds_balance")
)
