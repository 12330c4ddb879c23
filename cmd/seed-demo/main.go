// seed-demo loads a small demo dataset: countries, factories, one user per
// role and a handful of orders in assorted statuses. Safe to re-run; existing
// rows are matched by their natural keys and left alone.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/xxlgroup/orderhub_backend/config"
	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

var demoCountries = []models.Country{
	{Name: "Germany", Code: "DE"},
	{Name: "Poland", Code: "PL"},
	{Name: "Türkiye", Code: "TR"},
	{Name: "Vietnam", Code: "VN"},
}

type demoFactory struct {
	Name        string
	CountryCode string
	Email       string
	Contact     string
	Phone       string
}

var demoFactories = []demoFactory{
	{Name: "Nordholz Möbelwerk", CountryCode: "DE", Email: "orders@nordholz.example", Contact: "J. Brandt", Phone: "+4930123456"},
	{Name: "Gdansk Upholstery", CountryCode: "PL", Email: "office@gdansk-uph.example", Contact: "M. Kowalska", Phone: "+48581234567"},
	{Name: "Izmir Textiles", CountryCode: "TR", Email: "sales@izmirtex.example", Contact: "E. Yilmaz", Phone: "+902321234567"},
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized. Set DB_* env vars.")
		os.Exit(1)
	}
	if err := models.MigrateTable(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	countryIds := map[string]int{}
	for _, c := range demoCountries {
		var existing models.Country
		err := db.WithContext(ctx).Where("code = ?", c.Code).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			existing = c
			if err := db.WithContext(ctx).Create(&existing).Error; err != nil {
				fmt.Fprintf(os.Stderr, "create country %s: %v\n", c.Code, err)
				os.Exit(1)
			}
		} else if err != nil {
			fmt.Fprintf(os.Stderr, "lookup country %s: %v\n", c.Code, err)
			os.Exit(1)
		}
		countryIds[c.Code] = existing.ID
	}

	factoryIds := make([]int, 0, len(demoFactories))
	for _, f := range demoFactories {
		var existing models.Factory
		err := db.WithContext(ctx).Where("name = ?", f.Name).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			existing = models.Factory{
				Name:          f.Name,
				CountryId:     countryIds[f.CountryCode],
				Email:         f.Email,
				ContactPerson: f.Contact,
				Phone:         f.Phone,
				IsActive:      utils.NewTrue(),
			}
			if err := db.WithContext(ctx).Create(&existing).Error; err != nil {
				fmt.Fprintf(os.Stderr, "create factory %s: %v\n", f.Name, err)
				os.Exit(1)
			}
		} else if err != nil {
			fmt.Fprintf(os.Stderr, "lookup factory %s: %v\n", f.Name, err)
			os.Exit(1)
		}
		factoryIds = append(factoryIds, existing.ID)
	}

	managerId := seedUser(ctx, db, "demoManager", "Demo Manager", models.UserRoleManager)
	seedUser(ctx, db, "demoEmployee", "Demo Employee", models.UserRoleEmployee)

	statuses := []models.OrderStatus{
		models.OrderStatusUploaded,
		models.OrderStatusUploaded,
		models.OrderStatusSent,
		models.OrderStatusInvoiceReceived,
		models.OrderStatusCompleted,
	}
	now := time.Now().UTC()
	for i, status := range statuses {
		orderNumber := fmt.Sprintf("DEMO-%04d", i+1)
		var existing models.Order
		err := db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "lookup order %s: %v\n", orderNumber, err)
			os.Exit(1)
		}
		order := models.Order{
			OrderNumber: orderNumber,
			FactoryId:   factoryIds[i%len(factoryIds)],
			Status:      status,
			Description: "demo order",
			TotalAmount: decimal.NewFromInt(int64(1000 * (i + 1))),
			Currency:    "EUR",
			OrderDate:   now.AddDate(0, 0, -7*(i+1)),
			CreatedById: &managerId,
		}
		if status != models.OrderStatusUploaded {
			sentAt := order.OrderDate.AddDate(0, 0, 1)
			order.SentAt = &sentAt
		}
		if status == models.OrderStatusCompleted {
			completedAt := order.OrderDate.AddDate(0, 0, 14)
			order.CompletedAt = &completedAt
		}
		if err := db.WithContext(ctx).Create(&order).Error; err != nil {
			fmt.Fprintf(os.Stderr, "create order %s: %v\n", orderNumber, err)
			os.Exit(1)
		}
	}

	fmt.Println("demo data seeded")
}

func seedUser(ctx context.Context, db *gorm.DB, username, name string, role models.UserRole) int {
	var existing models.User
	err := db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return existing.ID
	}
	if err != gorm.ErrRecordNotFound {
		fmt.Fprintf(os.Stderr, "lookup user %s: %v\n", username, err)
		os.Exit(1)
	}

	hashed, err := utils.HashPassword("demo-password")
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}
	user := models.User{
		Username: username,
		Name:     name,
		Password: string(hashed),
		IsActive: utils.NewTrue(),
		Role:     role,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		fmt.Fprintf(os.Stderr, "create user %s: %v\n", username, err)
		os.Exit(1)
	}
	return user.ID
}
