package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

func CreateFactoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFactory
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		factory, err := models.CreateFactory(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, factory)
	}
}

func UpdateFactoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewFactory
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		factory, err := models.UpdateFactory(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, factory)
	}
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func ToggleFactoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		factory, err := models.ToggleActiveFactory(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, factory)
	}
}

func GetFactoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		factory, err := models.GetFactory(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, factory)
	}
}

func ListFactoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := pagination(c)
		if !ok {
			return
		}
		activeOnly := strings.EqualFold(c.Query("active"), "true")
		result, err := models.ListFactories(c.Request.Context(), p, activeOnly)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, result)
	}
}

func AutocompleteFactoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := strings.TrimSpace(c.Query("q"))
		if len(query) < 2 || len(query) > 100 {
			respondError(c, utils.NewValidationError("query must be between 2 and 100 characters"))
			return
		}
		factories, err := models.AutocompleteFactories(c.Request.Context(), query)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, factories)
	}
}
