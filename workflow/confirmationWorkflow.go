package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

var ErrNotAuthorized = errors.New("not authorized to decide confirmations")

// ConfirmationEngine drives the request/decide/execute lifecycle. Approval and
// execution run in separate transactions: a recorded approval survives an
// execution failure and is retried through the approve endpoint.
type ConfirmationEngine struct {
	Logger   *logrus.Logger
	Registry *ExecutorRegistry
	Tracer   trace.Tracer
}

func NewConfirmationEngine(logger *logrus.Logger) *ConfirmationEngine {
	return &ConfirmationEngine{
		Logger:   logger,
		Registry: DefaultRegistry(),
		Tracer:   otel.Tracer("orderhub-backend"),
	}
}

type CreateConfirmationInput struct {
	OrderId int                       `json:"order_id" binding:"required"`
	Action  models.ConfirmationAction `json:"action" binding:"required"`
	Payload string                    `json:"payload"`
}

func (input *CreateConfirmationInput) validatePayload() error {
	switch input.Action {
	case models.ActionUploadInvoice:
		var invoice models.NewInvoice
		if err := json.Unmarshal([]byte(input.Payload), &invoice); err != nil {
			return utils.NewValidationError("upload_invoice requires an invoice payload: %v", err)
		}
		return invoice.Validate()
	case models.ActionRejectOrder:
		reason := extractPayloadReason(input.Payload)
		if reason == "" {
			return utils.NewValidationError("reject_order requires a reason in the payload")
		}
		if len(reason) > models.MaxReasonLength {
			return utils.NewValidationError("reason exceeds %d characters", models.MaxReasonLength)
		}
	}
	return nil
}

// Create opens a pending confirmation for an order action. The pending-slot
// uniqueness comes back from the insert as a ConflictError naming the existing
// pending confirmation.
func (e *ConfirmationEngine) Create(ctx context.Context, input *CreateConfirmationInput, requestedById int) (*models.Confirmation, error) {
	ctx, span := e.Tracer.Start(ctx, "confirmationEngine.Create")
	defer span.End()

	requester, err := models.GetUser(ctx, requestedById)
	if err != nil {
		return nil, err
	}
	order, err := models.GetOrder(ctx, input.OrderId)
	if err != nil {
		return nil, err
	}
	if err := CheckActionAllowed(input.Action, order.Status); err != nil {
		return nil, err
	}
	if err := input.validatePayload(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	confirmation := &models.Confirmation{
		OrderId:       input.OrderId,
		Action:        input.Action,
		Payload:       input.Payload,
		RequestedById: requestedById,
		ExpiresAt:     now.Add(ExpiryFor(input.Action)),
		CorrelationId: correlationId(ctx),
	}
	if err := models.CreateConfirmationRecord(ctx, confirmation); err != nil {
		return nil, err
	}

	if err := models.RecordAudit(ctx, order.ID, &requestedById, models.AuditActionCreated,
		fmt.Sprintf("confirmation #%d requested: %s", confirmation.ID, input.Action)); err != nil {
		config.LogError(e.Logger, "workflow", "Create", "record audit", confirmation.ID, err)
	}
	e.notifyApprovers(ctx, confirmation, order, requester.Name)
	return confirmation, nil
}

func (e *ConfirmationEngine) notifyApprovers(ctx context.Context, confirmation *models.Confirmation, order *models.Order, requesterName string) {
	approvers, err := models.ListApprovers(ctx)
	if err != nil {
		config.LogError(e.Logger, "workflow", "notifyApprovers", "list approvers", confirmation.ID, err)
		return
	}
	title := fmt.Sprintf("Approval needed: %s", confirmation.Action)
	body := fmt.Sprintf("%s requested %s on order %s; expires %s",
		requesterName, confirmation.Action, order.DisplayName(),
		confirmation.ExpiresAt.Format(time.RFC3339))
	for _, approver := range approvers {
		orderId := order.ID
		if _, err := models.QueueNotification(ctx, approver.ID, &orderId,
			models.NotificationConfirmationPending, title, body); err != nil {
			config.LogError(e.Logger, "workflow", "notifyApprovers", "queue notification", approver.ID, err)
		}
	}
}

// Approve resolves a pending confirmation and runs its executor. Re-approving
// an approved-but-unexecuted confirmation retries only the execution.
func (e *ConfirmationEngine) Approve(ctx context.Context, confirmationId int, decidedBy *models.User) (*models.Confirmation, error) {
	ctx, span := e.Tracer.Start(ctx, "confirmationEngine.Approve")
	defer span.End()

	if !CanDecide(decidedBy.Role) {
		return nil, ErrNotAuthorized
	}

	db := config.GetDB()
	var confirmation *models.Confirmation
	var expired bool

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := models.GetConfirmationForUpdate(tx, confirmationId)
		if err != nil {
			return err
		}
		confirmation = locked

		if locked.Status != models.ConfirmationStatusPending {
			// Approved but never executed: skip the transition and retry
			// only the execution below.
			if locked.Status == models.ConfirmationStatusApproved && !locked.Executed() {
				return nil
			}
			return utils.NewStateError("confirmation %d is already %s", confirmationId, locked.Status)
		}
		if expired, err = e.expireIfDue(tx, locked); err != nil {
			return err
		}
		if expired {
			// Return nil so the expired flip and its notification commit.
			return nil
		}

		moved, err := models.TransitionConfirmation(tx, confirmationId,
			models.ConfirmationStatusApproved, &decidedBy.ID, "")
		if err != nil {
			return err
		}
		if !moved {
			return utils.NewStateError("confirmation %d was resolved concurrently", confirmationId)
		}
		locked.Status = models.ConfirmationStatusApproved
		locked.DecidedById = &decidedBy.ID
		return models.RecordAuditTx(tx, locked.OrderId, &decidedBy.ID,
			models.AuditActionStatusChanged,
			fmt.Sprintf("confirmation #%d approved", confirmationId))
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, &utils.ExpiredError{ConfirmationId: confirmationId}
	}

	if err := e.execute(ctx, confirmation); err != nil {
		return confirmation, err
	}
	return models.GetConfirmation(ctx, confirmationId)
}

// execute runs the side effect in its own transaction under the idempotency
// key, stamping ExecutedAt with the effect.
func (e *ConfirmationEngine) execute(ctx context.Context, confirmation *models.Confirmation) error {
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := runExecutorOnce(tx, e.Registry, confirmation); err != nil {
			return err
		}
		return models.MarkConfirmationExecuted(tx, confirmation.ID)
	})
	if err != nil {
		if errors.Is(err, ErrExecutionInProgress) {
			return err
		}
		recordExecutionFailure(db, confirmation.ID, err)
		config.LogError(e.Logger, "workflow", "execute", "executor failed", confirmation.ID, err)
		return &utils.ExecutionError{Err: err}
	}
	return nil
}

// Reject resolves a pending confirmation without running anything. The reason
// is mandatory and kept on the confirmation row.
func (e *ConfirmationEngine) Reject(ctx context.Context, confirmationId int, decidedBy *models.User, reason string) (*models.Confirmation, error) {
	ctx, span := e.Tracer.Start(ctx, "confirmationEngine.Reject")
	defer span.End()

	if !CanDecide(decidedBy.Role) {
		return nil, ErrNotAuthorized
	}
	if reason == "" {
		return nil, utils.NewValidationError("a rejection reason is required")
	}
	if len(reason) > models.MaxReasonLength {
		return nil, utils.NewValidationError("reason exceeds %d characters", models.MaxReasonLength)
	}

	db := config.GetDB()
	var expired bool
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := models.GetConfirmationForUpdate(tx, confirmationId)
		if err != nil {
			return err
		}

		if locked.Status != models.ConfirmationStatusPending {
			return utils.NewStateError("confirmation %d is already %s", confirmationId, locked.Status)
		}
		if expired, err = e.expireIfDue(tx, locked); err != nil {
			return err
		}
		if expired {
			return nil
		}

		moved, err := models.TransitionConfirmation(tx, confirmationId,
			models.ConfirmationStatusRejected, &decidedBy.ID, reason)
		if err != nil {
			return err
		}
		if !moved {
			return utils.NewStateError("confirmation %d was resolved concurrently", confirmationId)
		}

		orderId := locked.OrderId
		if err := models.QueueNotificationTx(tx, locked.RequestedById, &orderId,
			models.NotificationConfirmationReject,
			fmt.Sprintf("Request rejected: %s", locked.Action),
			reason); err != nil {
			return err
		}
		return models.RecordAuditTx(tx, locked.OrderId, &decidedBy.ID,
			models.AuditActionStatusChanged,
			fmt.Sprintf("confirmation #%d rejected: %s", confirmationId, reason))
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, &utils.ExpiredError{ConfirmationId: confirmationId}
	}
	return models.GetConfirmation(ctx, confirmationId)
}

// expireIfDue flips an overdue pending confirmation and queues the expiry
// notification inside the caller's transaction. The expiry is reported as a
// bool, not an error: returning an error from the transaction closure would
// roll the flip back, and the caller must surface ExpiredError only after the
// commit. Deciders racing the sweep see the same outcome either way.
func (e *ConfirmationEngine) expireIfDue(tx *gorm.DB, confirmation *models.Confirmation) (bool, error) {
	if !confirmation.IsExpired(time.Now().UTC()) {
		return false, nil
	}
	moved, err := models.TransitionConfirmation(tx, confirmation.ID,
		models.ConfirmationStatusExpired, nil, "")
	if err != nil {
		return false, err
	}
	if moved {
		orderId := confirmation.OrderId
		if err := models.QueueNotificationTx(tx, confirmation.RequestedById, &orderId,
			models.NotificationConfirmationExpired,
			fmt.Sprintf("Request expired: %s", confirmation.Action),
			fmt.Sprintf("Confirmation #%d expired at %s", confirmation.ID,
				confirmation.ExpiresAt.Format(time.RFC3339))); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Describe returns the confirmation with its read-time effective status. A
// pending row past its deadline reads as expired; the persistent flip is left
// to the sweep or the next decide attempt.
func (e *ConfirmationEngine) Describe(ctx context.Context, confirmationId int) (*models.Confirmation, error) {
	confirmation, err := models.GetConfirmation(ctx, confirmationId)
	if err != nil {
		return nil, err
	}
	confirmation.Status = confirmation.EffectiveStatus(time.Now().UTC())
	return confirmation, nil
}

func correlationId(ctx context.Context) string {
	id, _ := utils.GetCorrelationIdFromContext(ctx)
	return id
}
