package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

func GetInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		invoice, err := models.GetInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, invoice)
	}
}

func ListInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := pagination(c)
		if !ok {
			return
		}
		orderId := 0
		if raw := c.Query("orderId"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				respondError(c, utils.NewValidationError("orderId must be an integer"))
				return
			}
			orderId = parsed
		}
		result, err := models.ListInvoices(c.Request.Context(), orderId,
			models.InvoiceStatus(c.Query("status")), p)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, result)
	}
}

func AddInvoicePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewInvoicePayment
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		invoice, err := models.AddInvoicePayment(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, invoice)
	}
}
