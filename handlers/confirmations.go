package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"bitbucket.org/xxlgroup/orderhub_backend/middlewares"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
	"bitbucket.org/xxlgroup/orderhub_backend/workflow"
)

func CreateConfirmationHandler(engine *workflow.ConfirmationEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		var input workflow.CreateConfirmationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		confirmation, err := engine.Create(c.Request.Context(), &input, userId)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, confirmation)
	}
}

func GetConfirmationHandler(engine *workflow.ConfirmationEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		confirmation, err := engine.Describe(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, confirmation)
	}
}

func ListConfirmationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := pagination(c)
		if !ok {
			return
		}
		filter := models.ConfirmationFilter{
			Status: models.ConfirmationStatus(c.Query("status")),
			Action: models.ConfirmationAction(c.Query("action")),
		}
		if raw := c.Query("orderId"); raw != "" {
			orderId, err := strconv.Atoi(raw)
			if err != nil {
				respondError(c, utils.NewValidationError("orderId must be an integer"))
				return
			}
			filter.OrderId = orderId
		}
		result, err := models.ListConfirmations(c.Request.Context(), filter, p)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, result)
	}
}

// ApproveConfirmationHandler resolves a pending confirmation and executes it.
// An approved-but-unexecuted confirmation may be approved again to retry the
// execution only.
func ApproveConfirmationHandler(engine *workflow.ConfirmationEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		user, err := middlewares.SessionUser(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		confirmation, err := engine.Approve(c.Request.Context(), id, user)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, confirmation)
	}
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func RejectConfirmationHandler(engine *workflow.ConfirmationEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		user, err := middlewares.SessionUser(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		var req rejectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		confirmation, err := engine.Reject(c.Request.Context(), id, user, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, confirmation)
	}
}
