package models

type OrderStatus string

const (
	OrderStatusUploaded        OrderStatus = "uploaded"
	OrderStatusSent            OrderStatus = "sent"
	OrderStatusInvoiceReceived OrderStatus = "invoice_received"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusUploaded, OrderStatusSent, OrderStatusInvoiceReceived,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further workflow actions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type ConfirmationAction string

const (
	ActionSendOrder     ConfirmationAction = "send_order"
	ActionUploadInvoice ConfirmationAction = "upload_invoice"
	ActionCompleteOrder ConfirmationAction = "complete_order"
	ActionRejectOrder   ConfirmationAction = "reject_order"
	ActionOther         ConfirmationAction = "other"
)

func (a ConfirmationAction) Valid() bool {
	switch a {
	case ActionSendOrder, ActionUploadInvoice, ActionCompleteOrder,
		ActionRejectOrder, ActionOther:
		return true
	}
	return false
}

type ConfirmationStatus string

const (
	ConfirmationStatusPending  ConfirmationStatus = "pending"
	ConfirmationStatusApproved ConfirmationStatus = "approved"
	ConfirmationStatusRejected ConfirmationStatus = "rejected"
	ConfirmationStatusExpired  ConfirmationStatus = "expired"
)

func (s ConfirmationStatus) Valid() bool {
	switch s {
	case ConfirmationStatusPending, ConfirmationStatusApproved,
		ConfirmationStatusRejected, ConfirmationStatusExpired:
		return true
	}
	return false
}

// Terminal reports whether the status is absorbing. Only pending may move.
func (s ConfirmationStatus) Terminal() bool {
	return s != ConfirmationStatusPending
}

type NotificationType string

const (
	NotificationOrderUploaded       NotificationType = "order_uploaded"
	NotificationOrderSent           NotificationType = "order_sent"
	NotificationInvoiceReceived     NotificationType = "invoice_received"
	NotificationOrderCompleted      NotificationType = "order_completed"
	NotificationUploadedReminder    NotificationType = "uploaded_reminder"
	NotificationSentReminder        NotificationType = "sent_reminder"
	NotificationConfirmationPending NotificationType = "confirmation_pending"
	NotificationConfirmationReject  NotificationType = "confirmation_rejected"
	NotificationConfirmationExpired NotificationType = "confirmation_expired"
	NotificationPaymentOverdue      NotificationType = "payment_overdue"
)

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

type ShipmentStatus string

const (
	ShipmentStatusPreparing ShipmentStatus = "preparing"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
)

func (s ShipmentStatus) Valid() bool {
	switch s {
	case ShipmentStatusPreparing, ShipmentStatusInTransit, ShipmentStatusDelivered:
		return true
	}
	return false
}

type BasketStatus string

const (
	BasketStatusDraft     BasketStatus = "draft"
	BasketStatusSubmitted BasketStatus = "submitted"
	BasketStatusAccepted  BasketStatus = "accepted"
	BasketStatusRejected  BasketStatus = "rejected"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleManager  UserRole = "M"
	UserRoleEmployee UserRole = "E"
)

type AuditAction string

const (
	AuditActionCreated       AuditAction = "created"
	AuditActionUpdated       AuditAction = "updated"
	AuditActionStatusChanged AuditAction = "status_changed"
	AuditActionFileUploaded  AuditAction = "file_uploaded"
	AuditActionSent          AuditAction = "sent"
	AuditActionCompleted     AuditAction = "completed"
	AuditActionCancelled     AuditAction = "cancelled"
)
