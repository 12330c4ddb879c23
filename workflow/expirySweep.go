package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
)

// ExpirySweeper flips overdue pending confirmations to expired in the
// background. Readers already treat overdue rows as expired, so the sweep is a
// catch-up that frees pending slots and emits the expiry notifications.
type ExpirySweeper struct {
	Logger    *logrus.Logger
	Interval  time.Duration
	BatchSize int
}

func NewExpirySweeper(logger *logrus.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		Logger:    logger,
		Interval:  time.Minute,
		BatchSize: 100,
	}
}

func (s *ExpirySweeper) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.sweepOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Interval):
		}
	}
}

// sweepOnce runs one pass under a redis lock so only one instance sweeps at a
// time. No lock client (redis still connecting) means skip the pass.
func (s *ExpirySweeper) sweepOnce(ctx context.Context) {
	locker := config.GetRedisLock()
	if locker != nil {
		lock, err := locker.Obtain(ctx, "lock:confirmation-expiry-sweep", 30*time.Second, nil)
		if err != nil {
			if !errors.Is(err, redislock.ErrNotObtained) {
				config.LogError(s.Logger, "workflow", "sweepOnce", "obtain lock", nil, err)
			}
			return
		}
		defer lock.Release(ctx)
	}

	expired, err := SweepExpiredConfirmations(ctx, s.BatchSize)
	if err != nil {
		config.LogError(s.Logger, "workflow", "sweepOnce", "sweep", nil, err)
		return
	}
	if expired > 0 && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"module":  "workflow",
			"expired": expired,
		}).Info("confirmation expiry sweep")
	}
}

// SweepExpiredConfirmations expires due pending confirmations one row per
// transaction. Each flip is the same compare-and-set the decide path uses, so
// a decision racing the sweep loses cleanly, and one bad row cannot poison the
// rest of the batch.
func SweepExpiredConfirmations(ctx context.Context, batchSize int) (int, error) {
	now := time.Now().UTC()
	ids, err := models.ListDuePendingConfirmations(ctx, now, batchSize)
	if err != nil {
		return 0, err
	}

	db := config.GetDB()
	expired := 0
	var firstErr error
	for _, id := range ids {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			confirmation, err := models.GetConfirmationForUpdate(tx, id)
			if err != nil {
				return err
			}
			if !confirmation.IsExpired(now) {
				return nil
			}
			moved, err := models.TransitionConfirmation(tx, id,
				models.ConfirmationStatusExpired, nil, "")
			if err != nil {
				return err
			}
			if !moved {
				return nil
			}
			expired++
			orderId := confirmation.OrderId
			return models.QueueNotificationTx(tx, confirmation.RequestedById, &orderId,
				models.NotificationConfirmationExpired,
				fmt.Sprintf("Request expired: %s", confirmation.Action),
				fmt.Sprintf("Confirmation #%d expired at %s", id,
					confirmation.ExpiresAt.Format(time.RFC3339)))
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return expired, firstErr
}
