package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

type Shipment struct {
	ID             int            `gorm:"primary_key" json:"id"`
	OrderId        int            `gorm:"not null;index" json:"order_id"`
	Order          *Order         `gorm:"foreignKey:OrderId" json:"order,omitempty"`
	TrackingNumber string         `gorm:"size:100" json:"tracking_number"`
	Carrier        string         `gorm:"size:100" json:"carrier"`
	Status         ShipmentStatus `gorm:"size:20;not null;default:preparing" json:"status"`
	ShippedAt      *time.Time     `json:"shipped_at"`
	DeliveredAt    *time.Time     `json:"delivered_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewShipment struct {
	TrackingNumber string `json:"tracking_number" binding:"max=100"`
	Carrier        string `json:"carrier" binding:"max=100"`
}

func CreateShipment(ctx context.Context, orderId int, input *NewShipment) (*Shipment, error) {
	order, err := GetOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if order.Status != OrderStatusSent && order.Status != OrderStatusInvoiceReceived {
		return nil, utils.NewStateError("order %d must be sent before shipping", orderId)
	}

	db := config.GetDB()
	shipment := Shipment{
		OrderId:        orderId,
		TrackingNumber: strings.TrimSpace(input.TrackingNumber),
		Carrier:        strings.TrimSpace(input.Carrier),
		Status:         ShipmentStatusPreparing,
	}
	if err := db.WithContext(ctx).Create(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// UpdateShipmentStatus enforces the forward-only preparing -> in_transit ->
// delivered progression.
func UpdateShipmentStatus(ctx context.Context, id int, status ShipmentStatus) (*Shipment, error) {
	if !status.Valid() {
		return nil, utils.NewValidationError("invalid shipment status %q", status)
	}

	db := config.GetDB()
	var shipment Shipment
	if err := db.WithContext(ctx).First(&shipment, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	rank := map[ShipmentStatus]int{
		ShipmentStatusPreparing: 0,
		ShipmentStatusInTransit: 1,
		ShipmentStatusDelivered: 2,
	}
	if rank[status] <= rank[shipment.Status] {
		return nil, utils.NewStateError("shipment %d cannot move from %s to %s",
			id, shipment.Status, status)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"Status": status}
	switch status {
	case ShipmentStatusInTransit:
		updates["ShippedAt"] = &now
	case ShipmentStatusDelivered:
		updates["DeliveredAt"] = &now
	}
	if err := db.WithContext(ctx).Model(&shipment).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func ListShipments(ctx context.Context, orderId int) ([]*Shipment, error) {
	db := config.GetDB()
	var shipments []*Shipment
	if err := db.WithContext(ctx).
		Where("order_id = ?", orderId).
		Order("created_at DESC").
		Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}
