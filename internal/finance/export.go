package finance

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/pgmicro/inventory-backend/pkg/database"
)

// ExportReports writes the generated reports to an xlsx workbook
func (h *Handler) ExportReports(c *gin.Context) {
	var reports []database.ReportModule
	if err := h.db.Preload("Income").Preload("Expense").
		Order("date_generated DESC").Find(&reports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reports"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Reports"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Report ID", "Date Generated", "Income ID", "Expense ID", "Total Income", "Total Expenses", "Net Profit", "Status"}
	for i, head := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, head)
	}

	var totalIncome, totalExpenses, totalProfit float64
	for row, r := range reports {
		values := []interface{}{
			r.ID,
			r.DateGenerated.Format("2006-01-02"),
			r.IncomeID,
			r.ExpenseID,
			r.TotalIncome,
			r.TotalExpenses,
			r.NetProfit,
			r.Status,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
		totalIncome += r.TotalIncome
		totalExpenses += r.TotalExpenses
		totalProfit += r.NetProfit
	}

	summaryRow := len(reports) + 3
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "Totals")
	f.SetCellValue(sheet, fmt.Sprintf("E%d", summaryRow), totalIncome)
	f.SetCellValue(sheet, fmt.Sprintf("F%d", summaryRow), totalExpenses)
	f.SetCellValue(sheet, fmt.Sprintf("G%d", summaryRow), totalProfit)

	filename := fmt.Sprintf("profit-reports-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write workbook"})
	}
}
