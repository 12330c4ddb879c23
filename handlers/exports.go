package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
)

var orderExportHeaders = []string{
	"Order Number", "Factory", "Country", "Status",
	"Total Amount", "Currency", "Order Date", "Sent At", "Completed At",
}

// BuildOrdersWorkbook renders orders into a spreadsheet, one row per order.
func BuildOrdersWorkbook(orders []*models.Order) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Orders"
	f.SetSheetName("Sheet1", sheet)

	for i, header := range orderExportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for row, order := range orders {
		values := []interface{}{
			order.OrderNumber,
			factoryName(order),
			factoryCountry(order),
			string(order.Status),
			order.TotalAmount.StringFixed(2),
			order.Currency,
			order.OrderDate.Format("2006-01-02"),
			formatOptionalTime(order.SentAt),
			formatOptionalTime(order.CompletedAt),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// ExportOrdersHandler streams the filtered order list as an XLSX download.
// The same filters as the list endpoint apply; pagination does not.
func ExportOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := models.ParseOrderFilter(
			c.Query("status"), c.Query("factoryId"),
			c.Query("year"), c.Query("month"), c.Query("search"))
		if err != nil {
			respondError(c, err)
			return
		}
		// Exports bypass the list page-size cap; bounded to keep one request
		// from building an unbounded workbook.
		result, err := models.ListOrders(c.Request.Context(), filter,
			models.Pagination{Page: 1, PageSize: 10000})
		if err != nil {
			respondError(c, err)
			return
		}

		f, err := BuildOrdersWorkbook(result.Items)
		if err != nil {
			respondError(c, err)
			return
		}

		filename := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Status(http.StatusOK)
		if err := f.Write(c.Writer); err != nil {
			respondError(c, err)
		}
	}
}

func factoryName(order *models.Order) string {
	if order.Factory == nil {
		return ""
	}
	return order.Factory.Name
}

func factoryCountry(order *models.Order) string {
	if order.Factory == nil || order.Factory.Country == nil {
		return ""
	}
	return order.Factory.Country.Code
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
