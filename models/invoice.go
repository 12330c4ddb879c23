package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

type Invoice struct {
	ID            int              `gorm:"primary_key" json:"id"`
	InvoiceNumber string           `gorm:"size:50;not null;unique" json:"invoice_number"`
	OrderId       int              `gorm:"not null;index" json:"order_id"`
	Order         *Order           `gorm:"foreignKey:OrderId" json:"order,omitempty"`
	Amount        decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency      string           `gorm:"size:3;default:EUR" json:"currency"`
	Status        InvoiceStatus    `gorm:"size:20;not null;default:pending;index" json:"status"`
	DocumentKey   string           `gorm:"size:500" json:"document_key"`
	IssuedDate    time.Time        `gorm:"not null" json:"issued_date"`
	DueDate       time.Time        `gorm:"not null;index" json:"due_date"`
	PaidAt        *time.Time       `json:"paid_at"`
	Payments      []InvoicePayment `gorm:"foreignKey:InvoiceId" json:"payments,omitempty"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoicePayment struct {
	ID        int             `gorm:"primary_key" json:"id"`
	InvoiceId int             `gorm:"not null;index" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaidDate  time.Time       `gorm:"not null" json:"paid_date"`
	Reference string          `gorm:"size:100" json:"reference"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewInvoice struct {
	InvoiceNumber string          `json:"invoice_number" binding:"required,max=50"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency" binding:"omitempty,len=3"`
	DocumentKey   string          `json:"document_key"`
	IssuedDate    *time.Time      `json:"issued_date"`
	DueDate       *time.Time      `json:"due_date"`
}

func (input *NewInvoice) Validate() error {
	number := strings.TrimSpace(input.InvoiceNumber)
	if number == "" {
		return utils.NewValidationError("invoice number is required")
	}
	if len(number) > 50 {
		return utils.NewValidationError("invoice number exceeds 50 characters")
	}
	if !input.Amount.IsPositive() {
		return utils.NewValidationError("invoice amount must be positive")
	}
	if input.IssuedDate != nil && input.DueDate != nil && input.DueDate.Before(*input.IssuedDate) {
		return utils.NewValidationError("due date cannot precede issued date")
	}
	return nil
}

// CreateInvoiceTx records an invoice inside the caller's transaction. Retried
// workflow executions hit the invoice_number unique index, which the caller
// treats as already-done rather than a failure.
func CreateInvoiceTx(tx *gorm.DB, orderId int, input *NewInvoice) (*Invoice, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	issued := time.Now().UTC()
	if input.IssuedDate != nil {
		issued = *input.IssuedDate
	}
	due := issued.AddDate(0, 0, 30)
	if input.DueDate != nil {
		due = *input.DueDate
	}
	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = "EUR"
	}

	invoice := Invoice{
		InvoiceNumber: strings.TrimSpace(input.InvoiceNumber),
		OrderId:       orderId,
		Amount:        input.Amount,
		Currency:      currency,
		Status:        InvoiceStatusPending,
		DocumentKey:   input.DocumentKey,
		IssuedDate:    issued,
		DueDate:       due,
	}
	if err := tx.Create(&invoice).Error; err != nil {
		if IsDuplicateKeyErr(err) {
			var existing Invoice
			if lookupErr := tx.Where("invoice_number = ?", invoice.InvoiceNumber).
				First(&existing).Error; lookupErr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return &invoice, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	db := config.GetDB()
	var invoice Invoice
	if err := db.WithContext(ctx).
		Preload("Order").Preload("Payments").
		First(&invoice, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &invoice, nil
}

func ListInvoices(ctx context.Context, orderId int, status InvoiceStatus, p Pagination) (*PagedResult[*Invoice], error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&Invoice{})
	if orderId != 0 {
		q = q.Where("order_id = ?", orderId)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var invoices []*Invoice
	if err := q.Preload("Order").
		Order("issued_date DESC, id DESC").
		Offset(p.Offset()).Limit(p.PageSize).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return &PagedResult[*Invoice]{Items: invoices, Page: p.Page, PageSize: p.PageSize, Total: total}, nil
}

type NewInvoicePayment struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	PaidDate  *time.Time      `json:"paid_date"`
	Reference string          `json:"reference" binding:"max=100"`
}

// AddInvoicePayment records a partial or full payment. When the paid total
// reaches the invoice amount the invoice flips to paid.
func AddInvoicePayment(ctx context.Context, invoiceId int, input *NewInvoicePayment) (*Invoice, error) {
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("payment amount must be positive")
	}

	db := config.GetDB()
	var invoice *Invoice
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.Clauses(forUpdate()).First(&inv, invoiceId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if inv.Status == InvoiceStatusCancelled {
			return utils.NewStateError("invoice %d is cancelled", invoiceId)
		}
		if inv.Status == InvoiceStatusPaid {
			return utils.NewStateError("invoice %d is already paid", invoiceId)
		}

		paidDate := time.Now().UTC()
		if input.PaidDate != nil {
			paidDate = *input.PaidDate
		}
		payment := InvoicePayment{
			InvoiceId: invoiceId,
			Amount:    input.Amount,
			PaidDate:  paidDate,
			Reference: input.Reference,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		var paid decimal.NullDecimal
		if err := tx.Model(&InvoicePayment{}).
			Where("invoice_id = ?", invoiceId).
			Select("SUM(amount)").Scan(&paid).Error; err != nil {
			return err
		}
		if paid.Valid && paid.Decimal.GreaterThanOrEqual(inv.Amount) {
			now := time.Now().UTC()
			if err := tx.Model(&inv).Updates(map[string]interface{}{
				"Status": InvoiceStatusPaid,
				"PaidAt": &now,
			}).Error; err != nil {
				return err
			}
		}
		invoice = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetInvoice(ctx, invoice.ID)
}

// MarkOverdueInvoices flips pending invoices past their due date to overdue
// and returns them so the caller can notify.
func MarkOverdueInvoices(ctx context.Context) ([]*Invoice, error) {
	db := config.GetDB()
	now := time.Now().UTC()

	var due []*Invoice
	if err := db.WithContext(ctx).
		Where("status = ? AND due_date < ?", InvoiceStatusPending, now).
		Find(&due).Error; err != nil {
		return nil, err
	}

	var flipped []*Invoice
	for _, inv := range due {
		result := db.WithContext(ctx).Model(&Invoice{}).
			Where("id = ? AND status = ?", inv.ID, InvoiceStatusPending).
			Update("Status", InvoiceStatusOverdue)
		if result.Error != nil {
			return flipped, result.Error
		}
		if result.RowsAffected == 1 {
			inv.Status = InvoiceStatusOverdue
			flipped = append(flipped, inv)
		}
	}
	return flipped, nil
}
