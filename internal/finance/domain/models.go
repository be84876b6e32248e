// Package domain contains the receivables ledger models. All money fields
// are int64 minor units (cents).
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Income statuses, derived from the payment sum and never set directly.
const (
	StatusPending   = "pending"
	StatusPartial   = "partial"
	StatusCollected = "collected"
)

// Company health statuses.
const (
	HealthGood     = "good"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

type Company struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	WorkspaceID   snowflake.ID `gorm:"not null;index" json:"workspace_id"`
	OwnerUsername string       `gorm:"type:text;not null" json:"owner_username"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }

// Income is a receivable. PaidAmountCents is always the sum over its
// partial payments, recomputed inside the same transaction as any mutation.
type Income struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID       snowflake.ID `gorm:"not null;index" json:"company_id"`
	AmountCents     int64        `gorm:"not null" json:"amount_cents"`
	PaidAmountCents int64        `gorm:"not null;default:0" json:"paid_amount_cents"`
	Status          string       `gorm:"type:text;not null;default:'pending'" json:"status"`
	Source          string       `gorm:"type:text;not null;default:''" json:"source"`
	ClientName      string       `gorm:"type:text;not null;default:''" json:"client_name"`
	Note            string       `gorm:"type:text;not null;default:''" json:"note"`
	Date            time.Time    `gorm:"type:date;not null" json:"date"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Income) TableName() string { return "incomes" }

type PartialPayment struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	IncomeID    snowflake.ID `gorm:"not null;index" json:"income_id"`
	AmountCents int64        `gorm:"not null" json:"amount_cents"`
	Date        time.Time    `gorm:"type:date;not null" json:"date"`
	Method      string       `gorm:"type:text;not null;default:''" json:"method"`
	Note        string       `gorm:"type:text;not null;default:''" json:"note"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PartialPayment) TableName() string { return "partial_payments" }

type Expense struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID   snowflake.ID `gorm:"not null;index" json:"company_id"`
	AmountCents int64        `gorm:"not null" json:"amount_cents"`
	Paid        bool         `gorm:"not null;default:false" json:"paid"`
	Note        string       `gorm:"type:text;not null;default:''" json:"note"`
	Date        time.Time    `gorm:"type:date;not null" json:"date"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Expense) TableName() string { return "expenses" }

// StatusFor derives an income status from its paid sum.
func StatusFor(paidCents, amountCents int64) string {
	switch {
	case paidCents <= 0:
		return StatusPending
	case paidCents < amountCents:
		return StatusPartial
	default:
		return StatusCollected
	}
}
