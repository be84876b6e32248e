package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/workhive/workhive/internal/clock"
	"github.com/workhive/workhive/internal/finance/domain"
	"github.com/workhive/workhive/internal/finance/service"
	"github.com/workhive/workhive/internal/migration"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     domain.Service
	clk     *clock.FakeClock
	node    *snowflake.Node
	company *domain.Company
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(15)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	svc := service.NewService(db, node, clk)
	company, err := svc.CreateCompany(context.Background(), node.Generate(), "ana", "Acme Studio")
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	return &fixture{db: db, svc: svc, clk: clk, node: node, company: company}
}

func (f *fixture) income(t *testing.T, amountCents int64) *domain.Income {
	t.Helper()
	income, err := f.svc.CreateIncome(context.Background(), domain.CreateIncomeRequest{
		CompanyID:   f.company.ID,
		AmountCents: amountCents,
		ClientName:  "Globex",
		Date:        f.clk.Now(),
	})
	if err != nil {
		t.Fatalf("create income: %v", err)
	}
	return income
}

func (f *fixture) pay(t *testing.T, incomeID snowflake.ID, amountCents int64) *domain.PaymentResult {
	t.Helper()
	res, err := f.svc.AddPayment(context.Background(), domain.AddPaymentRequest{
		IncomeID:    incomeID,
		AmountCents: amountCents,
		Date:        f.clk.Now(),
		Method:      "transfer",
	})
	if err != nil {
		t.Fatalf("add payment: %v", err)
	}
	return res
}

func TestPaymentsWalkTheStatusLadder(t *testing.T) {
	f := newFixture(t)
	income := f.income(t, 10_000)

	if income.Status != domain.StatusPending {
		t.Fatalf("expected a fresh income to be pending, got %s", income.Status)
	}

	res := f.pay(t, income.ID, 4_000)
	if res.Income.Status != domain.StatusPartial || res.Income.PaidAmountCents != 4_000 {
		t.Fatalf("after first payment: %+v", res.Income)
	}

	res = f.pay(t, income.ID, 6_000)
	if res.Income.Status != domain.StatusCollected || res.Income.PaidAmountCents != 10_000 {
		t.Fatalf("after final payment: %+v", res.Income)
	}
}

func TestAddPaymentRejectsOverpayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	income := f.income(t, 5_000)
	f.pay(t, income.ID, 3_000)

	_, err := f.svc.AddPayment(ctx, domain.AddPaymentRequest{
		IncomeID:    income.ID,
		AmountCents: 2_001,
		Date:        f.clk.Now(),
	})
	if !errors.Is(err, domain.ErrExceedsBalance) {
		t.Fatalf("expected ErrExceedsBalance, got %v", err)
	}

	// Nothing was written; an exact remainder still fits.
	res := f.pay(t, income.ID, 2_000)
	if res.Income.Status != domain.StatusCollected {
		t.Fatalf("expected collected, got %+v", res.Income)
	}
}

func TestAddPaymentRejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	income := f.income(t, 5_000)

	for _, amount := range []int64{0, -100} {
		_, err := f.svc.AddPayment(ctx, domain.AddPaymentRequest{
			IncomeID:    income.ID,
			AmountCents: amount,
			Date:        f.clk.Now(),
		})
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestDeletePaymentRecomputesTheParent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	income := f.income(t, 8_000)
	first := f.pay(t, income.ID, 5_000)
	f.pay(t, income.ID, 3_000)

	res, err := f.svc.DeletePayment(ctx, first.Payment.ID)
	if err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	if res.Income.PaidAmountCents != 3_000 || res.Income.Status != domain.StatusPartial {
		t.Fatalf("after delete: %+v", res.Income)
	}

	if _, err := f.svc.DeletePayment(ctx, first.Payment.ID); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound on second delete, got %v", err)
	}

	list, err := f.svc.ListPayments(ctx, income.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(list.Payments) != 1 || list.TotalCents != 3_000 {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestReceivablesReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := f.income(t, 10_000)
	f.pay(t, a.ID, 4_000)
	b := f.income(t, 2_000)
	f.pay(t, b.ID, 2_000)

	report, err := f.svc.ListReceivables(ctx, f.company.ID)
	if err != nil {
		t.Fatalf("receivables: %v", err)
	}

	// Collected incomes drop out of the report entirely.
	if len(report.Rows) != 1 || report.Rows[0].Income.ID != a.ID {
		t.Fatalf("unexpected rows %+v", report.Rows)
	}
	if report.Rows[0].PendingBalanceCents != 6_000 {
		t.Fatalf("unexpected pending balance %d", report.Rows[0].PendingBalanceCents)
	}
	if report.TotalPaidCents != 4_000 || report.TotalPendingCents != 6_000 {
		t.Fatalf("unexpected totals %+v", report)
	}
}

func TestSummaryHealth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Nothing recorded yet reads as good.
	summary, err := f.svc.Summary(ctx, f.company.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Health != domain.HealthGood || summary.NetCents != 0 {
		t.Fatalf("empty company: %+v", summary)
	}

	income := f.income(t, 10_000)
	f.pay(t, income.ID, 10_000)
	if _, err := f.svc.CreateExpense(ctx, domain.CreateExpenseRequest{
		CompanyID:   f.company.ID,
		AmountCents: 4_000,
		Paid:        true,
		Date:        f.clk.Now(),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	summary, err = f.svc.Summary(ctx, f.company.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Health != domain.HealthGood || summary.NetCents != 6_000 {
		t.Fatalf("positive net: %+v", summary)
	}

	// Pile on expenses until the net goes negative.
	if _, err := f.svc.CreateExpense(ctx, domain.CreateExpenseRequest{
		CompanyID:   f.company.ID,
		AmountCents: 12_000,
		Paid:        true,
		Date:        f.clk.Now(),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	summary, err = f.svc.Summary(ctx, f.company.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Health != domain.HealthCritical || summary.NetCents != -6_000 {
		t.Fatalf("negative net: %+v", summary)
	}
}

func TestSummaryCountsOnlyCollectedAndPaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// An unpaid expense alone still reads as a quiet period.
	if _, err := f.svc.CreateExpense(ctx, domain.CreateExpenseRequest{
		CompanyID:   f.company.ID,
		AmountCents: 5_000,
		Paid:        false,
		Date:        f.clk.Now(),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	summary, err := f.svc.Summary(ctx, f.company.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Health != domain.HealthGood || summary.PaidExpenseCents != 0 || summary.NetCents != 0 {
		t.Fatalf("unpaid expense leaked into the summary: %+v", summary)
	}

	// An open receivable is not income yet either.
	income := f.income(t, 10_000)
	summary, err = f.svc.Summary(ctx, f.company.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Health != domain.HealthGood || summary.CollectedIncomeCents != 0 {
		t.Fatalf("open receivable leaked into the summary: %+v", summary)
	}

	// Only the collected part counts.
	f.pay(t, income.ID, 4_000)
	summary, err = f.svc.Summary(ctx, f.company.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.CollectedIncomeCents != 4_000 || summary.NetCents != 4_000 || summary.Health != domain.HealthGood {
		t.Fatalf("partial collection: %+v", summary)
	}

	// Paid expenses matching collected money lands exactly on warning.
	if _, err := f.svc.CreateExpense(ctx, domain.CreateExpenseRequest{
		CompanyID:   f.company.ID,
		AmountCents: 4_000,
		Paid:        true,
		Date:        f.clk.Now(),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	summary, err = f.svc.Summary(ctx, f.company.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Health != domain.HealthWarning || summary.NetCents != 0 {
		t.Fatalf("zero net: %+v", summary)
	}

	if _, err := f.svc.CreateExpense(ctx, domain.CreateExpenseRequest{
		CompanyID:   f.company.ID,
		AmountCents: 2_000,
		Paid:        true,
		Date:        f.clk.Now(),
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}
	summary, err = f.svc.Summary(ctx, f.company.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Health != domain.HealthCritical || summary.NetCents != -2_000 {
		t.Fatalf("negative net: %+v", summary)
	}
}

func TestSummaryUnknownCompany(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.Summary(ctx, f.node.Generate()); !errors.Is(err, domain.ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}
