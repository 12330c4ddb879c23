package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

// Executor performs the side effect of an approved confirmation inside the
// execution transaction. Executors must be idempotent: the idempotency key
// guards the common retry path, but a crash between the effect committing and
// the key flipping to SUCCEEDED means an executor can observe its own prior
// work (an order already moved, an invoice already inserted) and must treat
// that as success.
type Executor func(tx *gorm.DB, confirmation *models.Confirmation) error

type ExecutorRegistry struct {
	mu        sync.RWMutex
	executors map[models.ConfirmationAction]Executor
}

func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{executors: make(map[models.ConfirmationAction]Executor)}
}

func (r *ExecutorRegistry) Register(action models.ConfirmationAction, executor Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[action] = executor
}

// Lookup returns the executor for action. A missing executor is a programming
// error surfaced at approval time, not a silent no-op.
func (r *ExecutorRegistry) Lookup(action models.ConfirmationAction) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	executor, ok := r.executors[action]
	if !ok {
		return nil, fmt.Errorf("no executor registered for action %q", action)
	}
	return executor, nil
}

// DefaultRegistry wires the built-in executors for every order action.
func DefaultRegistry() *ExecutorRegistry {
	r := NewExecutorRegistry()
	r.Register(models.ActionSendOrder, executeSendOrder)
	r.Register(models.ActionUploadInvoice, executeUploadInvoice)
	r.Register(models.ActionCompleteOrder, executeCompleteOrder)
	r.Register(models.ActionRejectOrder, executeRejectOrder)
	r.Register(models.ActionOther, executeOther)
	return r
}

func executeSendOrder(tx *gorm.DB, confirmation *models.Confirmation) error {
	if err := models.MarkOrderSent(tx, confirmation.OrderId); err != nil {
		if alreadyApplied(tx, confirmation.OrderId, models.OrderStatusSent, err) {
			return nil
		}
		return err
	}
	if err := models.RecordAuditTx(tx, confirmation.OrderId, confirmation.DecidedById,
		models.AuditActionSent, "order sent to factory"); err != nil {
		return err
	}
	sendFactoryOrderMail(tx, confirmation)
	return notifyOrderWatchers(tx, confirmation, models.NotificationOrderSent, "Order sent")
}

// factoryOrderMailEvent builds the outbound mail for a sent order. The
// spreadsheet travels as an attachment reference the mail service resolves
// from the bucket.
func factoryOrderMailEvent(order *models.Order, confirmation *models.Confirmation) config.MailEvent {
	return config.MailEvent{
		Kind:          "factory_order",
		To:            order.Factory.Email,
		Subject:       fmt.Sprintf("Purchase order %s", order.OrderNumber),
		Body:          fmt.Sprintf("Please find attached purchase order %s.", order.OrderNumber),
		OrderId:       order.ID,
		AttachmentKey: order.DocumentKey,
		CorrelationId: confirmation.CorrelationId,
	}
}

// sendFactoryOrderMail mails the order spreadsheet reference to the factory.
// Mail is best effort: a publish failure is logged and the send stands, so the
// factory can be re-mailed without replaying the confirmation.
func sendFactoryOrderMail(tx *gorm.DB, confirmation *models.Confirmation) {
	logger := config.GetLogger()
	var order models.Order
	if err := tx.Preload("Factory").First(&order, confirmation.OrderId).Error; err != nil {
		config.LogError(logger, "workflow", "sendFactoryOrderMail", "load order", confirmation.OrderId, err)
		return
	}
	if order.Factory == nil || order.Factory.Email == "" {
		return
	}
	if !config.MailEventsEnabled() {
		logger.WithFields(logrus.Fields{
			"module":   "workflow",
			"order_id": order.ID,
			"to":       order.Factory.Email,
		}).Info("mail events disabled; factory order mail skipped")
		return
	}
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	messageId, err := config.PublishMailEvent(ctx, factoryOrderMailEvent(&order, confirmation))
	if err != nil {
		config.LogError(logger, "workflow", "sendFactoryOrderMail", "publish mail event", order.ID, err)
		return
	}
	logger.WithFields(logrus.Fields{
		"module":     "workflow",
		"order_id":   order.ID,
		"message_id": messageId,
	}).Info("factory order mail published")
}

func executeUploadInvoice(tx *gorm.DB, confirmation *models.Confirmation) error {
	var input models.NewInvoice
	if err := json.Unmarshal([]byte(confirmation.Payload), &input); err != nil {
		return utils.NewValidationError("invoice payload is not valid JSON: %v", err)
	}
	if _, err := models.CreateInvoiceTx(tx, confirmation.OrderId, &input); err != nil {
		return err
	}
	// Second and later invoices find the order already in invoice_received;
	// the invoice row and its audit entry still belong on the record.
	if err := models.MarkInvoiceReceived(tx, confirmation.OrderId); err != nil {
		if !alreadyApplied(tx, confirmation.OrderId, models.OrderStatusInvoiceReceived, err) {
			return err
		}
	}
	if err := models.RecordAuditTx(tx, confirmation.OrderId, confirmation.DecidedById,
		models.AuditActionFileUploaded, "invoice "+input.InvoiceNumber+" recorded"); err != nil {
		return err
	}
	return notifyOrderWatchers(tx, confirmation, models.NotificationInvoiceReceived, "Invoice received")
}

func executeCompleteOrder(tx *gorm.DB, confirmation *models.Confirmation) error {
	if err := models.MarkOrderCompleted(tx, confirmation.OrderId); err != nil {
		if alreadyApplied(tx, confirmation.OrderId, models.OrderStatusCompleted, err) {
			return nil
		}
		return err
	}
	if err := models.RecordAuditTx(tx, confirmation.OrderId, confirmation.DecidedById,
		models.AuditActionCompleted, "order completed"); err != nil {
		return err
	}
	return notifyOrderWatchers(tx, confirmation, models.NotificationOrderCompleted, "Order completed")
}

func executeRejectOrder(tx *gorm.DB, confirmation *models.Confirmation) error {
	reason := confirmation.Reason
	if reason == "" {
		reason = extractPayloadReason(confirmation.Payload)
	}
	if err := models.MarkOrderCancelled(tx, confirmation.OrderId, reason); err != nil {
		if alreadyApplied(tx, confirmation.OrderId, models.OrderStatusCancelled, err) {
			return nil
		}
		return err
	}
	return models.RecordAuditTx(tx, confirmation.OrderId, confirmation.DecidedById,
		models.AuditActionCancelled, reason)
}

// executeOther has no order-state effect; the confirmation itself is the
// record of the decision.
func executeOther(tx *gorm.DB, confirmation *models.Confirmation) error {
	return models.RecordAuditTx(tx, confirmation.OrderId, confirmation.DecidedById,
		models.AuditActionUpdated, "approved: "+confirmation.Payload)
}

// alreadyApplied resolves the crash-retry window: a StateError from a status
// mutator is success when the order already sits in the target status.
func alreadyApplied(tx *gorm.DB, orderId int, target models.OrderStatus, cause error) bool {
	var stateErr *utils.StateError
	if !errors.As(cause, &stateErr) {
		return false
	}
	var current models.OrderStatus
	if err := tx.Model(&models.Order{}).
		Where("id = ?", orderId).
		Pluck("status", &current).Error; err != nil {
		return false
	}
	return current == target
}

func notifyOrderWatchers(tx *gorm.DB, confirmation *models.Confirmation, notifType models.NotificationType, title string) error {
	orderId := confirmation.OrderId
	body := fmt.Sprintf("Order #%d: %s", orderId, title)
	return models.QueueNotificationTx(tx, confirmation.RequestedById, &orderId, notifType, title, body)
}

func extractPayloadReason(payload string) string {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(payload), &body); err != nil {
		return ""
	}
	return body.Reason
}
