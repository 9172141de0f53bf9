package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"shelflife-service/internal/middleware"
	"shelflife-service/internal/models"
	"shelflife-service/internal/services"
)

const maxUploadSize = 10 << 20 // 10 MB

// IngestHandler handles shelf-life upload endpoints
type IngestHandler struct {
	ingestService *services.IngestService
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingestService *services.IngestService) *IngestHandler {
	return &IngestHandler{ingestService: ingestService}
}

// Import accepts a CSV or XLSX shelf-life upload
func (h *IngestHandler) Import(c *gin.Context) {
	shop := middleware.GetShop(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 10MB limit"})
		return
	}

	format := models.ImportFormatCSV
	if strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
		format = models.ImportFormatXLSX
	}

	encoding := c.PostForm("encoding")

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload"})
		return
	}
	defer file.Close()

	result, err := h.ingestService.Import(c.Request.Context(), shop, file, format, encoding)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTemplate returns the upload template definition, or a downloadable
// CSV/XLSX file when format=csv or format=xlsx is requested
func (h *IngestHandler) GetTemplate(c *gin.Context) {
	template := h.ingestService.Template()

	switch c.DefaultQuery("format", "json") {
	case "csv":
		h.writeCSVTemplate(c, template)
	case "xlsx":
		h.writeXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, template)
	}
}

func (h *IngestHandler) writeCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-template.csv", template.Entity))

	writer := csv.NewWriter(c.Writer)
	header := make([]string, 0, len(template.Columns))
	for _, col := range template.Columns {
		name := col.Name
		if col.Required {
			name += " *"
		}
		header = append(header, name)
	}
	writer.Write(header)

	for _, sample := range template.SampleData {
		row := make([]string, 0, len(template.Columns))
		for _, col := range template.Columns {
			row = append(row, sample[col.Name])
		}
		writer.Write(row)
	}
	writer.Flush()
}

func (h *IngestHandler) writeXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "ShelfLife"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		name := col.Name
		if col.Required {
			name += " *"
		}
		f.SetCellValue(sheetName, cell, name)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	for r, sample := range template.SampleData {
		for i, col := range template.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			f.SetCellValue(sheetName, cell, sample[col.Name])
		}
	}

	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Shelf-Life Import Instructions")
	f.SetCellValue("Instructions", "A3", "Each row is one batch of one SKU. Re-uploading the same productId + batchId + expirationDate updates the existing row.")
	f.SetCellValue("Instructions", "A5", "Column")
	f.SetCellValue("Instructions", "B5", "Description")
	f.SetCellValue("Instructions", "C5", "Required")
	f.SetCellValue("Instructions", "D5", "Type")
	f.SetCellValue("Instructions", "E5", "Example")

	for i, col := range template.Columns {
		row := i + 6
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-template.xlsx", template.Entity))

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate template"})
	}
}
