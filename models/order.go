package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

type Order struct {
	ID            int             `gorm:"primary_key" json:"id"`
	OrderNumber   string          `gorm:"size:50;not null;unique" json:"order_number"`
	FactoryId     int             `gorm:"not null;index" json:"factory_id"`
	Factory       *Factory        `gorm:"foreignKey:FactoryId" json:"factory,omitempty"`
	Status        OrderStatus     `gorm:"size:20;not null;default:uploaded;index" json:"status"`
	Description   string          `gorm:"type:text" json:"description"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_amount"`
	Currency      string          `gorm:"size:3;default:EUR" json:"currency"`
	DocumentKey   string          `gorm:"size:500" json:"document_key"`
	OrderDate     time.Time       `gorm:"not null;index" json:"order_date"`
	SentAt        *time.Time      `json:"sent_at"`
	CompletedAt   *time.Time      `json:"completed_at"`
	CancelledAt   *time.Time      `json:"cancelled_at"`
	CancelReason  string          `gorm:"type:text" json:"cancel_reason"`
	CreatedById   *int            `gorm:"index" json:"created_by_id"`
	CreatedBy     *User           `gorm:"foreignKey:CreatedById" json:"created_by,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOrder struct {
	OrderNumber string          `json:"order_number" binding:"required,max=50"`
	FactoryId   int             `json:"factory_id" binding:"required"`
	Description string          `json:"description"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	DocumentKey string          `json:"document_key"`
	OrderDate   *time.Time      `json:"order_date"`
}

/*
caches:
	OrderYears
*/

const orderYearsCacheKey = "OrderYears"

func invalidateOrderYears() {
	_ = config.RemoveRedisKey(orderYearsCacheKey)
}

func CreateOrder(ctx context.Context, input *NewOrder, createdById int) (*Order, error) {
	orderNumber := strings.TrimSpace(input.OrderNumber)
	if err := utils.ValidateUnique[Order](ctx, "order_number", orderNumber, 0); err != nil {
		return nil, err
	}
	factory, err := GetFactory(ctx, input.FactoryId)
	if err != nil {
		return nil, utils.NewValidationError("factory not found")
	}
	if factory.IsActive == nil || !*factory.IsActive {
		return nil, utils.NewValidationError("factory %s is inactive", factory.Name)
	}
	if input.TotalAmount.IsNegative() {
		return nil, utils.NewValidationError("total amount cannot be negative")
	}

	orderDate := time.Now().UTC()
	if input.OrderDate != nil {
		orderDate = *input.OrderDate
	}
	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = "EUR"
	}

	db := config.GetDB()
	order := Order{
		OrderNumber: orderNumber,
		FactoryId:   input.FactoryId,
		Status:      OrderStatusUploaded,
		Description: input.Description,
		TotalAmount: input.TotalAmount,
		Currency:    currency,
		DocumentKey: input.DocumentKey,
		OrderDate:   orderDate,
		CreatedById: &createdById,
	}
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}
	invalidateOrderYears()
	return &order, nil
}

type UpdateOrderInput struct {
	Description string           `json:"description"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	Currency    string           `json:"currency" binding:"omitempty,len=3"`
	DocumentKey string           `json:"document_key"`
}

// UpdateOrder edits mutable fields. Orders past uploaded are frozen except for
// the description.
func UpdateOrder(ctx context.Context, id int, input *UpdateOrderInput) (*Order, error) {
	order, err := GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"Description": input.Description}
	if order.Status == OrderStatusUploaded {
		if input.TotalAmount != nil {
			if input.TotalAmount.IsNegative() {
				return nil, utils.NewValidationError("total amount cannot be negative")
			}
			updates["TotalAmount"] = *input.TotalAmount
		}
		if input.Currency != "" {
			updates["Currency"] = strings.ToUpper(input.Currency)
		}
		if input.DocumentKey != "" {
			updates["DocumentKey"] = input.DocumentKey
		}
	} else if input.TotalAmount != nil || input.Currency != "" || input.DocumentKey != "" {
		return nil, utils.NewStateError("order %d is %s; only the description can change", order.ID, order.Status)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(order).Updates(updates).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	db := config.GetDB()
	var order Order
	if err := db.WithContext(ctx).
		Preload("Factory").Preload("Factory.Country").Preload("CreatedBy").
		First(&order, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if order.CreatedBy != nil {
		order.CreatedBy.PrepareGive()
	}
	return &order, nil
}

type OrderFilter struct {
	Status    OrderStatus
	FactoryId int
	Year      int
	Month     int
	Search    string
}

func (f *OrderFilter) validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return utils.NewValidationError("invalid status %q", f.Status)
	}
	if f.Year != 0 {
		maxYear := time.Now().UTC().Year() + 1
		if f.Year < 2000 || f.Year > maxYear {
			return utils.NewValidationError("year must be between 2000 and %d", maxYear)
		}
	}
	if f.Month != 0 {
		if f.Month < 1 || f.Month > 12 {
			return utils.NewValidationError("month must be between 1 and 12")
		}
		if f.Year == 0 {
			return utils.NewValidationError("month filter requires a year")
		}
	}
	if f.Search != "" && len(f.Search) < 2 {
		return utils.NewValidationError("search term must be at least 2 characters")
	}
	return nil
}

func (f *OrderFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("orders.status = ?", f.Status)
	}
	if f.FactoryId != 0 {
		q = q.Where("orders.factory_id = ?", f.FactoryId)
	}
	if f.Year != 0 {
		q = q.Where("YEAR(orders.order_date) = ?", f.Year)
	}
	if f.Month != 0 {
		q = q.Where("MONTH(orders.order_date) = ?", f.Month)
	}
	if f.Search != "" {
		term := "%" + f.Search + "%"
		q = q.Joins("JOIN factories ON factories.id = orders.factory_id").
			Where("orders.order_number LIKE ? OR factories.name LIKE ?", term, term)
	}
	return q
}

func ListOrders(ctx context.Context, filter OrderFilter, p Pagination) (*PagedResult[*Order], error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	q := filter.apply(db.WithContext(ctx).Model(&Order{}))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []*Order
	if err := q.Preload("Factory").
		Order("orders.order_date DESC, orders.id DESC").
		Offset(p.Offset()).Limit(p.PageSize).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return &PagedResult[*Order]{Items: orders, Page: p.Page, PageSize: p.PageSize, Total: total}, nil
}

// AutocompleteOrders matches order numbers for the picker widgets.
func AutocompleteOrders(ctx context.Context, query string) ([]*Order, error) {
	db := config.GetDB()
	var orders []*Order
	if err := db.WithContext(ctx).
		Where("order_number LIKE ?", "%"+query+"%").
		Order("order_date DESC").
		Limit(config.SearchLimit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// OrderYears returns the distinct years with at least one order, newest first.
// The list is cached and invalidated whenever an order is created.
func OrderYears(ctx context.Context) ([]int, error) {
	var years []int
	exists, err := config.GetRedisObject(orderYearsCacheKey, &years)
	if err == nil && exists {
		return years, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Order{}).
		Distinct("YEAR(order_date)").
		Order("YEAR(order_date) DESC").
		Pluck("YEAR(order_date)", &years).Error; err != nil {
		return nil, err
	}
	_ = config.SetRedisObject(orderYearsCacheKey, years, 24*time.Hour)
	return years, nil
}

// ListStalledOrders returns orders sitting in status since before cutoff,
// oldest first, for the reminder sweep.
func ListStalledOrders(ctx context.Context, status OrderStatus, cutoff time.Time) ([]*Order, error) {
	db := config.GetDB()
	var orders []*Order
	if err := db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, cutoff).
		Order("updated_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Conditional status mutators. Each one is a compare-and-set UPDATE scoped to
// the expected prior status so two concurrent workflow executions cannot both
// move the same order. RowsAffected == 0 means the order was not in the
// expected state anymore.

func MarkOrderSent(tx *gorm.DB, orderId int) error {
	now := time.Now().UTC()
	result := tx.Model(&Order{}).
		Where("id = ? AND status = ?", orderId, OrderStatusUploaded).
		Updates(map[string]interface{}{"Status": OrderStatusSent, "SentAt": &now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.NewStateError("order %d is not in uploaded status", orderId)
	}
	return nil
}

func MarkInvoiceReceived(tx *gorm.DB, orderId int) error {
	result := tx.Model(&Order{}).
		Where("id = ? AND status = ?", orderId, OrderStatusSent).
		Update("Status", OrderStatusInvoiceReceived)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.NewStateError("order %d is not in sent status", orderId)
	}
	return nil
}

func MarkOrderCompleted(tx *gorm.DB, orderId int) error {
	now := time.Now().UTC()
	result := tx.Model(&Order{}).
		Where("id = ? AND status = ?", orderId, OrderStatusInvoiceReceived).
		Updates(map[string]interface{}{"Status": OrderStatusCompleted, "CompletedAt": &now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.NewStateError("order %d is not in invoice_received status", orderId)
	}
	return nil
}

func MarkOrderCancelled(tx *gorm.DB, orderId int, reason string) error {
	now := time.Now().UTC()
	result := tx.Model(&Order{}).
		Where("id = ? AND status NOT IN ?", orderId,
			[]OrderStatus{OrderStatusCompleted, OrderStatusCancelled}).
		Updates(map[string]interface{}{
			"Status":       OrderStatusCancelled,
			"CancelledAt":  &now,
			"CancelReason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.NewStateError("order %d is already in a terminal status", orderId)
	}
	return nil
}

// ParseOrderFilter builds an OrderFilter from raw query values.
func ParseOrderFilter(status, factoryId, year, month, search string) (OrderFilter, error) {
	filter := OrderFilter{
		Status: OrderStatus(status),
		Search: strings.TrimSpace(search),
	}
	var err error
	if factoryId != "" {
		if filter.FactoryId, err = strconv.Atoi(factoryId); err != nil {
			return filter, utils.NewValidationError("factoryId must be an integer")
		}
	}
	if year != "" {
		if filter.Year, err = strconv.Atoi(year); err != nil {
			return filter, utils.NewValidationError("year must be an integer")
		}
	}
	if month != "" {
		if filter.Month, err = strconv.Atoi(month); err != nil {
			return filter, utils.NewValidationError("month must be an integer")
		}
	}
	if err := filter.validate(); err != nil {
		return filter, err
	}
	return filter, nil
}

func (order *Order) DisplayName() string {
	return fmt.Sprintf("%s (#%d)", order.OrderNumber, order.ID)
}
