package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

type Factory struct {
	ID            int       `gorm:"primary_key" json:"id"`
	Name          string    `gorm:"size:200;not null" json:"name" binding:"required"`
	CountryId     int       `gorm:"not null;index" json:"country_id" binding:"required"`
	Country       *Country  `gorm:"foreignKey:CountryId" json:"country,omitempty"`
	Email         string    `gorm:"size:100;not null" json:"email" binding:"required"`
	ContactPerson string    `gorm:"size:100" json:"contact_person"`
	Phone         string    `gorm:"size:20" json:"phone"`
	Address       string    `gorm:"type:text" json:"address"`
	IsActive      *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFactory struct {
	Name          string `json:"name" binding:"required,max=200"`
	CountryId     int    `json:"country_id" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	ContactPerson string `json:"contact_person" binding:"max=100"`
	Phone         string `json:"phone" binding:"max=20"`
	Address       string `json:"address"`
}

func (input *NewFactory) validate(ctx context.Context) (phone string, err error) {
	if !utils.IsValidEmail(input.Email) {
		return "", utils.NewValidationError("invalid factory email")
	}
	country, err := GetCountry(ctx, input.CountryId)
	if err != nil {
		return "", utils.NewValidationError("country not found")
	}
	phone, err = utils.FormatPhoneE164(input.Phone, country.Code)
	if err != nil {
		return "", utils.NewValidationError("invalid phone number for %s", country.Code)
	}
	return phone, nil
}

func CreateFactory(ctx context.Context, input *NewFactory) (*Factory, error) {
	phone, err := input.validate(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	factory := Factory{
		Name:          strings.TrimSpace(input.Name),
		CountryId:     input.CountryId,
		Email:         strings.TrimSpace(input.Email),
		ContactPerson: input.ContactPerson,
		Phone:         phone,
		Address:       input.Address,
		IsActive:      utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&factory).Error; err != nil {
		return nil, err
	}
	return &factory, nil
}

func UpdateFactory(ctx context.Context, id int, input *NewFactory) (*Factory, error) {
	factory, err := GetFactory(ctx, id)
	if err != nil {
		return nil, err
	}
	phone, err := input.validate(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(factory).Updates(map[string]interface{}{
		"Name":          strings.TrimSpace(input.Name),
		"CountryId":     input.CountryId,
		"Email":         strings.TrimSpace(input.Email),
		"ContactPerson": input.ContactPerson,
		"Phone":         phone,
		"Address":       input.Address,
	}).Error; err != nil {
		return nil, err
	}
	return factory, nil
}

func ToggleActiveFactory(ctx context.Context, id int, isActive bool) (*Factory, error) {
	factory, err := GetFactory(ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(factory).Update("IsActive", isActive).Error; err != nil {
		return nil, err
	}
	return factory, nil
}

func GetFactory(ctx context.Context, id int) (*Factory, error) {
	db := config.GetDB()
	var factory Factory
	if err := db.WithContext(ctx).Preload("Country").First(&factory, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &factory, nil
}

func ListFactories(ctx context.Context, p Pagination, activeOnly bool) (*PagedResult[*Factory], error) {
	db := config.GetDB()
	q := db.WithContext(ctx).Model(&Factory{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var factories []*Factory
	if err := q.Preload("Country").
		Order("name ASC").
		Offset(p.Offset()).Limit(p.PageSize).
		Find(&factories).Error; err != nil {
		return nil, err
	}
	return &PagedResult[*Factory]{Items: factories, Page: p.Page, PageSize: p.PageSize, Total: total}, nil
}

// AutocompleteFactories matches active factories by name prefix/substring.
// The query length bounds are validated at the handler boundary.
func AutocompleteFactories(ctx context.Context, query string) ([]*Factory, error) {
	db := config.GetDB()
	var factories []*Factory
	if err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("name LIKE ?", "%"+query+"%").
		Order("name ASC").
		Limit(config.SearchLimit).
		Find(&factories).Error; err != nil {
		return nil, err
	}
	return factories, nil
}
