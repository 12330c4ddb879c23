package workflow

import (
	"time"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

// Expiry windows per action. Sending an order to a factory waits on external
// coordination and gets the longest window; invoice uploads are usually acted
// on within two days; everything else defaults to one day.
const (
	SendOrderExpiry     = 72 * time.Hour
	UploadInvoiceExpiry = 48 * time.Hour
	DefaultExpiry       = 24 * time.Hour
)

func ExpiryFor(action models.ConfirmationAction) time.Duration {
	switch action {
	case models.ActionSendOrder:
		return SendOrderExpiry
	case models.ActionUploadInvoice:
		return UploadInvoiceExpiry
	default:
		return DefaultExpiry
	}
}

// allowedOrderStatus maps each action to the order statuses it operates on.
// Orders may carry more than one invoice, so upload_invoice stays available
// after the first invoice arrives. reject_order and other run from any
// non-terminal status.
var allowedOrderStatus = map[models.ConfirmationAction][]models.OrderStatus{
	models.ActionSendOrder:     {models.OrderStatusUploaded},
	models.ActionUploadInvoice: {models.OrderStatusSent, models.OrderStatusInvoiceReceived},
	models.ActionCompleteOrder: {models.OrderStatusInvoiceReceived},
}

// CheckActionAllowed validates that action can be requested against an order
// in the given status. Incompatible order state is a ValidationError on the
// request; StateError is reserved for confirmations that are no longer
// pending.
func CheckActionAllowed(action models.ConfirmationAction, status models.OrderStatus) error {
	if !action.Valid() {
		return utils.NewValidationError("unknown action %q", action)
	}
	if status.Terminal() {
		return utils.NewValidationError("order is %s; no further actions are possible", status)
	}
	allowed, ok := allowedOrderStatus[action]
	if !ok {
		return nil
	}
	for _, s := range allowed {
		if status == s {
			return nil
		}
	}
	return utils.NewValidationError("action %s is not allowed while the order is %s",
		action, status)
}

// CanDecide reports whether a user role may approve or reject confirmations.
// Employees request; managers and admins decide.
func CanDecide(role models.UserRole) bool {
	return role == models.UserRoleAdmin || role == models.UserRoleManager
}
