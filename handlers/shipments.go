package handlers

import (
	"github.com/gin-gonic/gin"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
)

func CreateShipmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewShipment
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		shipment, err := models.CreateShipment(c.Request.Context(), orderId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, shipment)
	}
}

func ListShipmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, ok := pathId(c, "id")
		if !ok {
			return
		}
		shipments, err := models.ListShipments(c.Request.Context(), orderId)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, shipments)
	}
}

type shipmentStatusRequest struct {
	Status models.ShipmentStatus `json:"status" binding:"required"`
}

func UpdateShipmentStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req shipmentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		shipment, err := models.UpdateShipmentStatus(c.Request.Context(), id, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, shipment)
	}
}
