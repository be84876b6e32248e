package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/workhive/workhive/internal/clock"
	"github.com/workhive/workhive/internal/finance/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type service struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(conn *gorm.DB, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &service{db: conn, genID: genID, clock: clk}
}

func (s *service) CreateCompany(ctx context.Context, workspaceID snowflake.ID, ownerUsername, name string) (*domain.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	company := domain.Company{
		ID:            s.genID.Generate(),
		WorkspaceID:   workspaceID,
		OwnerUsername: ownerUsername,
		Name:          name,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (s *service) GetCompany(ctx context.Context, id snowflake.ID) (*domain.Company, error) {
	var company domain.Company
	err := s.db.WithContext(ctx).First(&company, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (s *service) ListCompanies(ctx context.Context, ownerUsername string) ([]domain.Company, error) {
	var companies []domain.Company
	err := s.db.WithContext(ctx).
		Where("owner_username = ?", ownerUsername).
		Order("created_at ASC").
		Find(&companies).Error
	if err != nil {
		return nil, err
	}
	return companies, nil
}

func (s *service) CreateIncome(ctx context.Context, req domain.CreateIncomeRequest) (*domain.Income, error) {
	if req.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if _, err := s.GetCompany(ctx, req.CompanyID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	income := domain.Income{
		ID:          s.genID.Generate(),
		CompanyID:   req.CompanyID,
		AmountCents: req.AmountCents,
		Status:      domain.StatusPending,
		Source:      strings.TrimSpace(req.Source),
		ClientName:  strings.TrimSpace(req.ClientName),
		Note:        strings.TrimSpace(req.Note),
		Date:        req.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&income).Error; err != nil {
		return nil, err
	}
	return &income, nil
}

func (s *service) GetIncome(ctx context.Context, id snowflake.ID) (*domain.Income, error) {
	var income domain.Income
	err := s.db.WithContext(ctx).First(&income, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrIncomeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &income, nil
}

func (s *service) CreateExpense(ctx context.Context, req domain.CreateExpenseRequest) (*domain.Expense, error) {
	if req.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if _, err := s.GetCompany(ctx, req.CompanyID); err != nil {
		return nil, err
	}
	expense := domain.Expense{
		ID:          s.genID.Generate(),
		CompanyID:   req.CompanyID,
		AmountCents: req.AmountCents,
		Paid:        req.Paid,
		Note:        strings.TrimSpace(req.Note),
		Date:        req.Date,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *service) AddPayment(ctx context.Context, req domain.AddPaymentRequest) (*domain.PaymentResult, error) {
	if req.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var result domain.PaymentResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		income, err := lockIncome(tx, req.IncomeID)
		if err != nil {
			return err
		}
		if income.PaidAmountCents+req.AmountCents > income.AmountCents {
			return domain.ErrExceedsBalance
		}

		payment := domain.PartialPayment{
			ID:          s.genID.Generate(),
			IncomeID:    income.ID,
			AmountCents: req.AmountCents,
			Date:        req.Date,
			Method:      strings.TrimSpace(req.Method),
			Note:        strings.TrimSpace(req.Note),
			CreatedAt:   s.clock.Now(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		updated, err := s.recompute(tx, income)
		if err != nil {
			return err
		}
		result = domain.PaymentResult{Payment: &payment, Income: *updated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) GetPayment(ctx context.Context, id snowflake.ID) (*domain.PartialPayment, error) {
	var payment domain.PartialPayment
	err := s.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *service) ListPayments(ctx context.Context, incomeID snowflake.ID) (*domain.PaymentList, error) {
	income, err := s.GetIncome(ctx, incomeID)
	if err != nil {
		return nil, err
	}

	var payments []domain.PartialPayment
	err = s.db.WithContext(ctx).
		Where("income_id = ?", incomeID).
		Order("date ASC, created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}

	var total int64
	for _, p := range payments {
		total += p.AmountCents
	}
	return &domain.PaymentList{Payments: payments, TotalCents: total, Income: *income}, nil
}

func (s *service) DeletePayment(ctx context.Context, paymentID snowflake.ID) (*domain.PaymentResult, error) {
	var result domain.PaymentResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment domain.PartialPayment
		err := tx.First(&payment, "id = ?", paymentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrPaymentNotFound
		}
		if err != nil {
			return err
		}

		income, err := lockIncome(tx, payment.IncomeID)
		if err != nil {
			return err
		}

		if err := tx.Delete(&payment).Error; err != nil {
			return err
		}

		updated, err := s.recompute(tx, income)
		if err != nil {
			return err
		}
		result = domain.PaymentResult{Income: *updated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) ListReceivables(ctx context.Context, companyID snowflake.ID) (*domain.ReceivablesReport, error) {
	if _, err := s.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}

	var incomes []domain.Income
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND status IN ?", companyID,
			[]string{domain.StatusPending, domain.StatusPartial}).
		Order("date ASC, created_at ASC").
		Find(&incomes).Error
	if err != nil {
		return nil, err
	}

	report := &domain.ReceivablesReport{Rows: make([]domain.ReceivableRow, 0, len(incomes))}
	for _, income := range incomes {
		pending := income.AmountCents - income.PaidAmountCents
		report.Rows = append(report.Rows, domain.ReceivableRow{
			Income:              income,
			PendingBalanceCents: pending,
		})
		report.TotalPendingCents += pending
		report.TotalPaidCents += income.PaidAmountCents
	}
	return report, nil
}

func (s *service) Summary(ctx context.Context, companyID snowflake.ID) (*domain.CompanySummary, error) {
	if _, err := s.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}

	// Health is judged on money that actually moved: collected income
	// against paid expenses. Open receivables and unpaid bills stay out.
	var collected, paidExpenses int64
	err := s.db.WithContext(ctx).Model(&domain.Income{}).
		Where("company_id = ?", companyID).
		Select("COALESCE(SUM(paid_amount_cents), 0)").
		Scan(&collected).Error
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&domain.Expense{}).
		Where("company_id = ? AND paid = ?", companyID, true).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&paidExpenses).Error
	if err != nil {
		return nil, err
	}

	net := collected - paidExpenses
	health := domain.HealthWarning
	switch {
	case collected == 0 && paidExpenses == 0:
		// A quiet company has nothing to worry about yet.
		health = domain.HealthGood
	case net > 0:
		health = domain.HealthGood
	case net < 0:
		health = domain.HealthCritical
	}

	return &domain.CompanySummary{
		CompanyID:            companyID,
		CollectedIncomeCents: collected,
		PaidExpenseCents:     paidExpenses,
		NetCents:             net,
		Health:               health,
	}, nil
}

// lockIncome reads the income row FOR UPDATE so concurrent payment writes on
// the same receivable serialize. sqlite has no row locks; its single writer
// gives the same guarantee.
func lockIncome(tx *gorm.DB, id snowflake.ID) (*domain.Income, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var income domain.Income
	err := q.First(&income, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrIncomeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &income, nil
}

// recompute derives paid_amount and status from the payment sum. Never
// adjusts by delta; the sum is the source of truth.
func (s *service) recompute(tx *gorm.DB, income *domain.Income) (*domain.Income, error) {
	var paid int64
	err := tx.Model(&domain.PartialPayment{}).
		Where("income_id = ?", income.ID).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&paid).Error
	if err != nil {
		return nil, err
	}

	income.PaidAmountCents = paid
	income.Status = domain.StatusFor(paid, income.AmountCents)
	income.UpdatedAt = s.clock.Now()

	err = tx.Model(&domain.Income{}).
		Where("id = ?", income.ID).
		Updates(map[string]any{
			"paid_amount_cents": income.PaidAmountCents,
			"status":            income.Status,
			"updated_at":        income.UpdatedAt,
		}).Error
	if err != nil {
		return nil, err
	}
	return income, nil
}
