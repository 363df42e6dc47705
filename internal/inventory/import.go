package inventory

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/pgmicro/inventory-backend/pkg/database"
)

type ImportResult struct {
	TotalRows    int      `json:"total_rows"`
	SuccessCount int      `json:"success_count"`
	FailedCount  int      `json:"failed_count"`
	Errors       []string `json:"errors"`
}

type importRow struct {
	ProductName  string
	SerialNumber string
	Quantity     int
	Location     string
	SellingPrice float64
}

// Import handles Excel/CSV file upload for bulk stock receiving.
// Expected columns: product name, serial number, quantity, location,
// selling price.
func (h *Handler) Import(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	var rows []importRow
	fileName := strings.ToLower(header.Filename)

	if strings.HasSuffix(fileName, ".xlsx") || strings.HasSuffix(fileName, ".xls") {
		rows, err = parseExcel(file)
	} else if strings.HasSuffix(fileName, ".csv") {
		rows, err = parseCSV(file)
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file format. Please upload .xlsx or .csv"})
		return
	}

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to parse file: %v", err)})
		return
	}

	result := ImportResult{TotalRows: len(rows)}

	for i, row := range rows {
		rowNum := i + 2 // 1-based, after header

		if row.ProductName == "" || row.SerialNumber == "" {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: product name and serial number are required", rowNum))
			continue
		}
		if row.Quantity <= 0 {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: quantity must be positive", rowNum))
			continue
		}

		var product database.Product
		if err := h.db.Where("name = ?", row.ProductName).First(&product).Error; err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: unknown product %q", rowNum, row.ProductName))
			continue
		}

		item := database.Inventory{
			ProductID:         product.ID,
			QuantityReceived:  row.Quantity,
			QuantityAvailable: row.Quantity,
			StockStatus:       database.StockInStock,
			Location:          row.Location,
			SerialNumber:      row.SerialNumber,
			SellingPrice:      row.SellingPrice,
		}
		if err := h.db.Create(&item).Error; err != nil {
			result.FailedCount++
			if field, ok := database.UniqueViolation(err); ok {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: duplicate %s", rowNum, field))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			}
			continue
		}
		result.SuccessCount++
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func parseExcel(file io.Reader) ([]importRow, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	var rows []importRow
	for i, cols := range cells {
		if i == 0 {
			continue // header
		}
		rows = append(rows, rowFromColumns(cols))
	}
	return rows, nil
}

func parseCSV(file io.Reader) ([]importRow, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var rows []importRow
	first := true
	for {
		cols, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			continue // header
		}
		rows = append(rows, rowFromColumns(cols))
	}
	return rows, nil
}

func rowFromColumns(cols []string) importRow {
	get := func(i int) string {
		if i < len(cols) {
			return strings.TrimSpace(cols[i])
		}
		return ""
	}

	qty, _ := strconv.Atoi(get(2))
	price, _ := strconv.ParseFloat(get(4), 64)

	return importRow{
		ProductName:  get(0),
		SerialNumber: get(1),
		Quantity:     qty,
		Location:     get(3),
		SellingPrice: price,
	}
}
