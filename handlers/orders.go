package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

func CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		var input models.NewOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		order, err := models.CreateOrder(c.Request.Context(), &input, userId)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := models.RecordAudit(c.Request.Context(), order.ID, &userId,
			models.AuditActionCreated, "order "+order.OrderNumber+" uploaded"); err != nil {
			config.LogError(config.GetLogger(), "handlers", "CreateOrderHandler", "record audit", order.ID, err)
		}
		respondData(c, order)
	}
}

func GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		order, err := models.GetOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, order)
	}
}

func ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := pagination(c)
		if !ok {
			return
		}
		filter, err := models.ParseOrderFilter(
			c.Query("status"), c.Query("factoryId"),
			c.Query("year"), c.Query("month"), c.Query("search"))
		if err != nil {
			respondError(c, err)
			return
		}
		result, err := models.ListOrders(c.Request.Context(), filter, p)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, result)
	}
}

func UpdateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.UpdateOrderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		order, err := models.UpdateOrder(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		if err := models.RecordAudit(c.Request.Context(), order.ID, &userId,
			models.AuditActionUpdated, "order details edited"); err != nil {
			config.LogError(config.GetLogger(), "handlers", "UpdateOrderHandler", "record audit", order.ID, err)
		}
		respondData(c, order)
	}
}

// AutocompleteOrdersHandler answers the picker widgets; query must be at
// least two characters.
func AutocompleteOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := strings.TrimSpace(c.Query("q"))
		if len(query) < 2 || len(query) > 100 {
			respondError(c, utils.NewValidationError("query must be between 2 and 100 characters"))
			return
		}
		orders, err := models.AutocompleteOrders(c.Request.Context(), query)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, orders)
	}
}

func OrderYearsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		years, err := models.OrderYears(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, years)
	}
}

func ListOrderAuditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		p, ok := pagination(c)
		if !ok {
			return
		}
		if _, err := models.GetOrder(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		logs, err := models.ListAuditLogs(c.Request.Context(), id, p)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, logs)
	}
}
