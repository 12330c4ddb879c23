package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

type User struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Username     string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name         string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email        *string   `gorm:"size:100;unique" json:"email"`
	Phone        string    `gorm:"size:20" json:"phone"`
	AvatarUrl    string    `json:"avatar_url"`
	ThumbnailUrl string    `json:"thumbnail_url"`
	Password     string    `gorm:"size:255;not null" json:"password"`
	IsActive     *bool     `gorm:"not null" json:"is_active"`
	Role         UserRole  `gorm:"type:enum('A', 'M', 'E');default:E" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required,max=100"`
	Name     string   `json:"name" binding:"required,max=100"`
	Email    string   `json:"email" binding:"omitempty,email"`
	Phone    string   `json:"phone" binding:"max=20"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     UserRole `json:"role"`
}

type LoginInfo struct {
	Token string   `json:"token"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
}

/*
caches:
	User:$username
*/

func (user User) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("User:" + user.Username)
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func (user User) IsAdmin() bool {
	return user.Role == UserRoleAdmin
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	username := strings.TrimSpace(input.Username)
	if err := utils.ValidateUnique[User](ctx, "username", username, 0); err != nil {
		return nil, err
	}
	phone, err := utils.FormatPhoneE164(input.Phone, "")
	if err != nil {
		return nil, utils.NewValidationError("invalid phone number")
	}
	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = UserRoleEmployee
	}

	user := User{
		Username: username,
		Name:     strings.TrimSpace(input.Name),
		Phone:    phone,
		Password: string(hashed),
		IsActive: utils.NewTrue(),
		Role:     role,
	}
	if input.Email != "" {
		email := strings.TrimSpace(input.Email)
		user.Email = &email
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

// GetUserByUsername serves the login path; the row is cached per username and
// invalidated by RemoveInstanceRedis on profile writes.
func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	cacheKey := "User:" + username
	exists, err := config.GetRedisObject(cacheKey, &user)
	if err == nil && exists {
		return &user, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	_ = config.SetRedisObject(cacheKey, &user, time.Hour)
	return &user, nil
}

func Login(ctx context.Context, username, password string) (*LoginInfo, error) {
	user, err := GetUserByUsername(ctx, username)
	if err != nil {
		return nil, errors.New("invalid username or password")
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("account is disabled")
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, errors.New("invalid username or password")
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &LoginInfo{Token: token, Name: user.Name, Role: user.Role}, nil
}

// ListApprovers returns active managers and admins, the audience for
// pending-confirmation notifications.
func ListApprovers(ctx context.Context) ([]*User, error) {
	db := config.GetDB()
	var users []*User
	if err := db.WithContext(ctx).
		Where("is_active = ? AND role IN ?", true, []UserRole{UserRoleAdmin, UserRoleManager}).
		Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		u.PrepareGive()
	}
	return users, nil
}

type UpdateProfileInput struct {
	Name         string `json:"name" binding:"required,max=100"`
	Email        string `json:"email" binding:"omitempty,email"`
	Phone        string `json:"phone" binding:"max=20"`
	AvatarUrl    string `json:"avatar_url"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

func UpdateProfile(ctx context.Context, userId int, input *UpdateProfileInput) (*User, error) {
	user, err := GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	phone, err := utils.FormatPhoneE164(input.Phone, "")
	if err != nil {
		return nil, utils.NewValidationError("invalid phone number")
	}

	updates := map[string]interface{}{
		"Name":  strings.TrimSpace(input.Name),
		"Phone": phone,
	}
	if input.Email != "" {
		updates["Email"] = strings.TrimSpace(input.Email)
	}
	if input.AvatarUrl != "" {
		updates["AvatarUrl"] = input.AvatarUrl
	}
	if input.ThumbnailUrl != "" {
		updates["ThumbnailUrl"] = input.ThumbnailUrl
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	_ = user.RemoveInstanceRedis()
	user.PrepareGive()
	return user, nil
}
