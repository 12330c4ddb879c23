package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

type statusCount struct {
	Status models.OrderStatus `json:"status"`
	Count  int64              `json:"count"`
}

type monthlyVolume struct {
	Month  int             `json:"month"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type dashboardStats struct {
	Year                 int             `json:"year"`
	StatusCounts         []statusCount   `json:"status_counts"`
	MonthlyVolumes       []monthlyVolume `json:"monthly_volumes"`
	PendingConfirmations int64           `json:"pending_confirmations"`
	OverdueInvoices      int64           `json:"overdue_invoices"`
}

// DashboardHandler aggregates order counts per status, monthly volumes for
// the requested year, open confirmations and overdue invoices.
func DashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year := time.Now().UTC().Year()
		if raw := c.Query("year"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 2000 || parsed > time.Now().UTC().Year()+1 {
				respondError(c, utils.NewValidationError("invalid year"))
				return
			}
			year = parsed
		}

		ctx := c.Request.Context()
		db := config.GetDB()
		stats := dashboardStats{Year: year}

		rows := []struct {
			Status models.OrderStatus
			Count  int64
		}{}
		if err := db.WithContext(ctx).Model(&models.Order{}).
			Select("status, COUNT(*) AS count").
			Where("YEAR(order_date) = ?", year).
			Group("status").
			Scan(&rows).Error; err != nil {
			respondError(c, err)
			return
		}
		for _, row := range rows {
			stats.StatusCounts = append(stats.StatusCounts, statusCount{Status: row.Status, Count: row.Count})
		}

		monthly := []struct {
			Month  int
			Count  int64
			Amount decimal.NullDecimal
		}{}
		if err := db.WithContext(ctx).Model(&models.Order{}).
			Select("MONTH(order_date) AS month, COUNT(*) AS count, SUM(total_amount) AS amount").
			Where("YEAR(order_date) = ?", year).
			Group("MONTH(order_date)").
			Order("month ASC").
			Scan(&monthly).Error; err != nil {
			respondError(c, err)
			return
		}
		for _, row := range monthly {
			volume := monthlyVolume{Month: row.Month, Count: row.Count}
			if row.Amount.Valid {
				volume.Amount = row.Amount.Decimal
			}
			stats.MonthlyVolumes = append(stats.MonthlyVolumes, volume)
		}

		if err := db.WithContext(ctx).Model(&models.Confirmation{}).
			Where("status = ? AND expires_at > ?", models.ConfirmationStatusPending, time.Now().UTC()).
			Count(&stats.PendingConfirmations).Error; err != nil {
			respondError(c, err)
			return
		}
		if err := db.WithContext(ctx).Model(&models.Invoice{}).
			Where("status = ?", models.InvoiceStatusOverdue).
			Count(&stats.OverdueInvoices).Error; err != nil {
			respondError(c, err)
			return
		}

		respondData(c, stats)
	}
}
