package models

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

// EInvoiceBasket groups received invoices for batch submission to the
// e-invoicing gateway. Invoices join a draft basket only; once submitted the
// basket is frozen.
type EInvoiceBasket struct {
	ID          int          `gorm:"primary_key" json:"id"`
	Name        string       `gorm:"size:100;not null" json:"name" binding:"required"`
	Status      BasketStatus `gorm:"size:20;not null;default:draft" json:"status"`
	Invoices    []Invoice    `gorm:"many2many:basket_invoices;" json:"invoices,omitempty"`
	SubmittedAt *time.Time   `json:"submitted_at"`
	CreatedById *int         `gorm:"index" json:"created_by_id"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func CreateBasket(ctx context.Context, name string, createdById int) (*EInvoiceBasket, error) {
	db := config.GetDB()
	basket := EInvoiceBasket{
		Name:        name,
		Status:      BasketStatusDraft,
		CreatedById: &createdById,
	}
	if err := db.WithContext(ctx).Create(&basket).Error; err != nil {
		return nil, err
	}
	return &basket, nil
}

func GetBasket(ctx context.Context, id int) (*EInvoiceBasket, error) {
	db := config.GetDB()
	var basket EInvoiceBasket
	if err := db.WithContext(ctx).Preload("Invoices").First(&basket, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &basket, nil
}

func ListBaskets(ctx context.Context, p Pagination) (*PagedResult[*EInvoiceBasket], error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&EInvoiceBasket{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var baskets []*EInvoiceBasket
	if err := q.Order("created_at DESC").
		Offset(p.Offset()).Limit(p.PageSize).
		Find(&baskets).Error; err != nil {
		return nil, err
	}
	return &PagedResult[*EInvoiceBasket]{Items: baskets, Page: p.Page, PageSize: p.PageSize, Total: total}, nil
}

func AddInvoiceToBasket(ctx context.Context, basketId, invoiceId int) (*EInvoiceBasket, error) {
	basket, err := GetBasket(ctx, basketId)
	if err != nil {
		return nil, err
	}
	if basket.Status != BasketStatusDraft {
		return nil, utils.NewStateError("basket %d is %s; invoices can only join drafts", basketId, basket.Status)
	}
	invoice, err := GetInvoice(ctx, invoiceId)
	if err != nil {
		return nil, err
	}
	if invoice.Status == InvoiceStatusCancelled {
		return nil, utils.NewValidationError("cancelled invoice %d cannot join a basket", invoiceId)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(basket).Association("Invoices").Append(invoice); err != nil {
		return nil, err
	}
	return GetBasket(ctx, basketId)
}

func RemoveInvoiceFromBasket(ctx context.Context, basketId, invoiceId int) (*EInvoiceBasket, error) {
	basket, err := GetBasket(ctx, basketId)
	if err != nil {
		return nil, err
	}
	if basket.Status != BasketStatusDraft {
		return nil, utils.NewStateError("basket %d is %s and cannot be edited", basketId, basket.Status)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(basket).
		Association("Invoices").Delete(&Invoice{ID: invoiceId}); err != nil {
		return nil, err
	}
	return GetBasket(ctx, basketId)
}

// SubmitBasket freezes the basket. The flip is a conditional UPDATE so two
// concurrent submits cannot both succeed.
func SubmitBasket(ctx context.Context, basketId int) (*EInvoiceBasket, error) {
	basket, err := GetBasket(ctx, basketId)
	if err != nil {
		return nil, err
	}
	if len(basket.Invoices) == 0 {
		return nil, utils.NewValidationError("basket %d has no invoices", basketId)
	}

	db := config.GetDB()
	now := time.Now().UTC()
	result := db.WithContext(ctx).Model(&EInvoiceBasket{}).
		Where("id = ? AND status = ?", basketId, BasketStatusDraft).
		Updates(map[string]interface{}{
			"Status":      BasketStatusSubmitted,
			"SubmittedAt": &now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.NewStateError("basket %d is no longer a draft", basketId)
	}
	return GetBasket(ctx, basketId)
}

// ResolveBasket records the gateway's accept/reject outcome for a submitted
// basket.
func ResolveBasket(ctx context.Context, basketId int, accepted bool) (*EInvoiceBasket, error) {
	target := BasketStatusAccepted
	if !accepted {
		target = BasketStatusRejected
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&EInvoiceBasket{}).
			Where("id = ? AND status = ?", basketId, BasketStatusSubmitted).
			Update("Status", target)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return utils.NewStateError("basket %d is not awaiting a gateway outcome", basketId)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetBasket(ctx, basketId)
}
