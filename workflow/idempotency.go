package workflow

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
)

var ErrExecutionInProgress = errors.New("execution in progress")

// staleClaimAfter bounds how long a STARTED key blocks retries. A claimant
// that crashed mid-execution stops holding the slot after this window.
const staleClaimAfter = 5 * time.Minute

func executionKeyFor(confirmationId int) string {
	return fmt.Sprintf("confirmation:%d", confirmationId)
}

// runExecutorOnce runs the confirmation's executor under its idempotency key.
// Returns skipped=true when a prior execution already SUCCEEDED. A concurrent
// claimant holding a fresh STARTED key yields ErrExecutionInProgress so the
// caller can report a retryable condition instead of double-running.
func runExecutorOnce(tx *gorm.DB, registry *ExecutorRegistry, confirmation *models.Confirmation) (skipped bool, err error) {
	executor, err := registry.Lookup(confirmation.Action)
	if err != nil {
		return false, err
	}

	key, claimed, err := models.ClaimExecutionKey(tx, executionKeyFor(confirmation.ID), confirmation.ID)
	if err != nil {
		return false, err
	}
	if !claimed {
		switch key.State {
		case models.ExecutionSucceeded:
			return true, nil
		case models.ExecutionStarted:
			if time.Since(key.UpdatedAt) < staleClaimAfter {
				return false, ErrExecutionInProgress
			}
			if err := key.ResetForRetry(tx); err != nil {
				return false, err
			}
		case models.ExecutionFailed:
			if err := key.ResetForRetry(tx); err != nil {
				return false, err
			}
		}
	}

	if err := executor(tx, confirmation); err != nil {
		return false, err
	}
	if err := key.MarkSucceeded(tx); err != nil {
		return false, err
	}
	return false, nil
}

// recordExecutionFailure persists the FAILED marker in its own transaction.
// The execution transaction rolls back on failure, taking its STARTED claim
// with it, so the failure is recorded separately for observability and so the
// retry path can distinguish "never ran" from "ran and failed".
func recordExecutionFailure(db *gorm.DB, confirmationId int, cause error) {
	_ = db.Transaction(func(tx *gorm.DB) error {
		key, _, err := models.ClaimExecutionKey(tx, executionKeyFor(confirmationId), confirmationId)
		if err != nil {
			return err
		}
		return key.MarkFailed(tx, cause)
	})
}
