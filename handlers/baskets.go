package handlers

import (
	"github.com/gin-gonic/gin"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

type newBasketRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

func CreateBasketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		var req newBasketRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		basket, err := models.CreateBasket(c.Request.Context(), req.Name, userId)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, basket)
	}
}

func GetBasketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		basket, err := models.GetBasket(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, basket)
	}
}

func ListBasketsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := pagination(c)
		if !ok {
			return
		}
		result, err := models.ListBaskets(c.Request.Context(), p)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, result)
	}
}

type basketInvoiceRequest struct {
	InvoiceId int `json:"invoice_id" binding:"required"`
}

func AddBasketInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req basketInvoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		basket, err := models.AddInvoiceToBasket(c.Request.Context(), id, req.InvoiceId)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, basket)
	}
}

func RemoveBasketInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		invoiceId, ok := pathId(c, "invoiceId")
		if !ok {
			return
		}
		basket, err := models.RemoveInvoiceFromBasket(c.Request.Context(), id, invoiceId)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, basket)
	}
}

func SubmitBasketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		basket, err := models.SubmitBasket(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, basket)
	}
}

type resolveBasketRequest struct {
	Accepted *bool `json:"accepted" binding:"required"`
}

func ResolveBasketHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req resolveBasketRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		basket, err := models.ResolveBasket(c.Request.Context(), id, *req.Accepted)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, basket)
	}
}
