package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

type Country struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Code      string    `gorm:"size:3;not null;unique" json:"code" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewCountry struct {
	Name string `json:"name" binding:"required,max=100"`
	Code string `json:"code" binding:"required,min=2,max=3"`
}

func CreateCountry(ctx context.Context, input *NewCountry) (*Country, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if err := utils.ValidateUnique[Country](ctx, "code", code, 0); err != nil {
		return nil, err
	}

	db := config.GetDB()
	country := Country{
		Name: strings.TrimSpace(input.Name),
		Code: code,
	}
	if err := db.WithContext(ctx).Create(&country).Error; err != nil {
		return nil, err
	}
	return &country, nil
}

func ListCountries(ctx context.Context) ([]*Country, error) {
	db := config.GetDB()
	var countries []*Country
	if err := db.WithContext(ctx).Order("name ASC").Find(&countries).Error; err != nil {
		return nil, err
	}
	return countries, nil
}

func GetCountry(ctx context.Context, id int) (*Country, error) {
	db := config.GetDB()
	var country Country
	if err := db.WithContext(ctx).First(&country, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &country, nil
}
