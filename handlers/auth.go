package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/middlewares"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

const (
	loginAttemptLimit  = 5
	loginAttemptWindow = 5 * time.Minute
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginHandler authenticates and issues a JWT. Failed attempts per client IP
// are counted in redis; past the limit the endpoint answers 429 until the
// window expires.
func LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}

		attemptKey := "LoginAttempts:" + c.ClientIP()
		if val, exists, err := config.GetRedisValue(attemptKey); err == nil && exists {
			var attempts int
			fmt.Sscanf(val, "%d", &attempts)
			if attempts >= loginAttemptLimit {
				c.JSON(http.StatusTooManyRequests, gin.H{
					"error": fmt.Sprintf("too many login attempts; try again in %d minutes",
						int(loginAttemptWindow.Minutes())),
				})
				return
			}
		}

		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			recordFailedLogin(attemptKey)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
			return
		}
		_ = config.RemoveRedisKey(attemptKey)
		respondData(c, info)
	}
}

func recordFailedLogin(attemptKey string) {
	val, exists, err := config.GetRedisValue(attemptKey)
	if err != nil {
		return
	}
	attempts := 0
	if exists {
		fmt.Sscanf(val, "%d", &attempts)
	}
	_ = config.SetRedisValue(attemptKey, fmt.Sprintf("%d", attempts+1), loginAttemptWindow)
}

// CreateUserHandler registers a new account. Admin only.
func CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, user)
	}
}

func GetProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middlewares.SessionUser(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		user.PrepareGive()
		respondData(c, user)
	}
}

func UpdateProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		var input models.UpdateProfileInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, err)
			return
		}
		user, err := models.UpdateProfile(c.Request.Context(), userId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, user)
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

func ChangePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middlewares.SessionUser(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, err)
			return
		}
		if err := utils.ComparePassword(user.Password, req.CurrentPassword); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
			return
		}
		hashed, err := utils.HashPassword(req.NewPassword)
		if err != nil {
			respondError(c, err)
			return
		}

		db := config.GetDB()
		if err := db.WithContext(c.Request.Context()).Model(user).
			Update("Password", string(hashed)).Error; err != nil {
			respondError(c, err)
			return
		}
		_ = user.RemoveInstanceRedis()
		respondData(c, gin.H{"changed": true})
	}
}
