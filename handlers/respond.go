package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
	"bitbucket.org/xxlgroup/orderhub_backend/workflow"
)

// respondError maps the error taxonomy onto HTTP statuses:
// validation 400, not found 404, conflicting pending slot 409, wrong state
// 409, expired 410, execution failure after approval 502.
func respondError(c *gin.Context, err error) {
	var validationErr *utils.ValidationError
	var conflictErr *utils.ConflictError
	var stateErr *utils.StateError
	var expiredErr *utils.ExpiredError
	var executionErr *utils.ExecutionError
	var bindingErrs validator.ValidationErrors

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Msg})
	case errors.As(err, &bindingErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": utils.ProcessValidationErrors(bindingErrs)})
	case errors.Is(err, utils.ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":                   conflictErr.Error(),
			"pending_confirmation_id": conflictErr.PendingConfirmationId,
		})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"error": stateErr.Msg})
	case errors.Is(err, workflow.ErrExecutionInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "execution already in progress; retry shortly"})
	case errors.As(err, &expiredErr):
		c.JSON(http.StatusGone, gin.H{
			"error":           expiredErr.Error(),
			"confirmation_id": expiredErr.ConfirmationId,
		})
	case errors.As(err, &executionErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": executionErr.Error()})
	case errors.Is(err, workflow.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		config.LogError(config.GetLogger(), "handlers", "respondError", c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func respondData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func pagination(c *gin.Context) (models.Pagination, bool) {
	p, err := models.ParsePagination(c.Query("page"), c.Query("pageSize"))
	if err != nil {
		respondError(c, err)
		return p, false
	}
	return p, true
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}
