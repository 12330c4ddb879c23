package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

func ListNotificationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		p, ok := pagination(c)
		if !ok {
			return
		}
		unreadOnly := strings.EqualFold(c.Query("unread"), "true")
		result, err := models.ListNotifications(c.Request.Context(), userId, unreadOnly, p)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, result)
	}
}

func UnreadCountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		count, err := models.CountUnreadNotifications(c.Request.Context(), userId)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, gin.H{"unread": count})
	}
}

func MarkNotificationReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		if err := models.MarkNotificationRead(c.Request.Context(), userId, id); err != nil {
			respondError(c, err)
			return
		}
		respondData(c, gin.H{"read": true})
	}
}

func MarkAllNotificationsReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		updated, err := models.MarkAllNotificationsRead(c.Request.Context(), userId)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, gin.H{"updated": updated})
	}
}

func GetNotificationSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		settings, err := models.GetNotificationSettings(c.Request.Context(), userId)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, settings)
	}
}

func UpdateNotificationSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		var input models.UpdateNotificationSettingsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		settings, err := models.UpdateNotificationSettings(c.Request.Context(), userId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, settings)
	}
}
