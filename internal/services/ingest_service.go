package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"shelflife-service/internal/models"
	"shelflife-service/internal/repository"
)

// IngestService parses shelf-life uploads and upserts them into the store
type IngestService struct {
	itemRepo repository.ShelfLifeRepository
	log      *logrus.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(itemRepo repository.ShelfLifeRepository, log *logrus.Logger) *IngestService {
	return &IngestService{itemRepo: itemRepo, log: log}
}

// expirationDateFormats are accepted in upload order of likelihood
var expirationDateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"20060102",
}

// Import parses the upload and upserts every valid row. Invalid rows are
// collected into the result's error list and skipped; they never abort the
// batch.
func (s *IngestService) Import(ctx context.Context, shop string, file io.Reader, format models.ImportFormat, encoding string) (*models.ImportResult, error) {
	var rows []map[string]string
	var err error

	switch format {
	case models.ImportFormatXLSX:
		rows, err = s.parseXLSX(file)
	default:
		rows, err = s.parseCSV(file, encoding)
	}
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{TotalRows: len(rows)}

	for _, row := range rows {
		rowNum, _ := strconv.Atoi(row["_row"])

		item, rowErr := s.rowToItem(shop, row, rowNum)
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			result.FailedCount++
			continue
		}

		if err := s.itemRepo.Upsert(ctx, item); err != nil {
			result.Errors = append(result.Errors, models.ImportRowError{
				Row:     rowNum,
				Code:    "SAVE_FAILED",
				Message: err.Error(),
			})
			result.FailedCount++
			continue
		}
		result.SavedCount++
	}

	result.Success = result.FailedCount == 0
	s.log.WithFields(logrus.Fields{
		"shop":   shop,
		"total":  result.TotalRows,
		"saved":  result.SavedCount,
		"failed": result.FailedCount,
	}).Info("Shelf-life import completed")

	return result, nil
}

func (s *IngestService) rowToItem(shop string, row map[string]string, rowNum int) (*models.ShelfLifeItem, *models.ImportRowError) {
	productID := cleanSKU(row["productid"])
	if productID == "" {
		return nil, &models.ImportRowError{Row: rowNum, Column: "productId", Code: "REQUIRED", Message: "productId is required"}
	}

	batchID := strings.TrimSpace(row["batchid"])
	if batchID == "" {
		return nil, &models.ImportRowError{Row: rowNum, Column: "batchId", Code: "REQUIRED", Message: "batchId is required"}
	}

	expiration, ok := parseExpirationDate(row["expirationdate"])
	if !ok {
		return nil, &models.ImportRowError{Row: rowNum, Column: "expirationDate", Code: "INVALID_DATE",
			Message: fmt.Sprintf("expirationDate %q is not a valid date", row["expirationdate"])}
	}

	quantity := 0
	if raw := strings.TrimSpace(row["quantity"]); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q < 0 {
			return nil, &models.ImportRowError{Row: rowNum, Column: "quantity", Code: "INVALID_QUANTITY",
				Message: fmt.Sprintf("quantity %q must be a non-negative integer", raw)}
		}
		quantity = q
	}

	item := &models.ShelfLifeItem{
		Shop:           shop,
		ProductID:      productID,
		BatchID:        batchID,
		ExpirationDate: expiration,
		Quantity:       quantity,
		SyncStatus:     models.SyncPending,
	}

	if raw := strings.TrimSpace(row["batchquantity"]); raw != "" {
		if bq, err := strconv.Atoi(raw); err == nil && bq >= 0 {
			item.BatchQuantity = &bq
		}
	}
	if loc := strings.TrimSpace(row["location"]); loc != "" {
		item.Location = &loc
	}

	return item, nil
}

// parseCSV reads delimited rows into maps keyed by normalized header. The
// expected upload encoding is Traditional-Chinese Big5; when decoding
// produces invalid UTF-8 the raw bytes are used as-is.
func (s *IngestService) parseCSV(file io.Reader, encoding string) ([]map[string]string, error) {
	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	decoded := decodeUpload(raw, encoding)

	reader := csv.NewReader(strings.NewReader(decoded))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range headers {
		headers[i] = normalizeHeader(headers[i])
	}

	var rows []map[string]string
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
		}

		row := make(map[string]string)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(lineNum + 1)
		rows = append(rows, row)
		lineNum++
	}

	return rows, nil
}

// parseXLSX parses an Excel file into rows
func (s *IngestService) parseXLSX(file io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	excelRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	headers := excelRows[0]
	for i := range headers {
		headers[i] = normalizeHeader(headers[i])
	}

	var rows []map[string]string
	for rowIdx, excelRow := range excelRows[1:] {
		row := make(map[string]string)
		for i, value := range excelRow {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		row["_row"] = strconv.Itoa(rowIdx + 2)
		rows = append(rows, row)
	}

	return rows, nil
}

// decodeUpload converts upload bytes to UTF-8. Big5 is attempted first
// unless the hint says otherwise; on failure the bytes pass through
// unchanged.
func decodeUpload(raw []byte, encoding string) string {
	if strings.EqualFold(encoding, "utf-8") || utf8.Valid(raw) {
		return string(raw)
	}

	decoder := traditionalchinese.Big5.NewDecoder()
	decoded, _, err := transform.Bytes(decoder, raw)
	if err != nil || !utf8.Valid(decoded) {
		return string(raw)
	}
	return string(decoded)
}

// normalizeHeader lowercases a column header and strips whitespace and any
// required marker
func normalizeHeader(header string) string {
	header = strings.TrimSpace(strings.ToLower(header))
	header = strings.TrimSuffix(header, " *")
	return strings.ReplaceAll(header, " ", "")
}

// cleanSKU strips spreadsheet artifacts from an exported SKU, including a
// leading "=" and an ="..." formula wrap
func cleanSKU(sku string) string {
	sku = strings.TrimSpace(sku)
	if strings.HasPrefix(sku, `="`) && strings.HasSuffix(sku, `"`) && len(sku) > 3 {
		sku = sku[2 : len(sku)-1]
	}
	sku = strings.TrimPrefix(sku, "=")
	return strings.Trim(sku, `"`)
}

func parseExpirationDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range expirationDateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Template describes the expected upload columns
func (s *IngestService) Template() models.ImportTemplate {
	return models.ImportTemplate{
		Entity:  "shelf-life-items",
		Version: "1",
		Columns: []models.ImportTemplateColumn{
			{Name: "productId", Description: "SKU of the product", Required: true, Type: "string", Example: "SKU-1001"},
			{Name: "batchId", Description: "Batch identifier, usually the production date", Required: true, Type: "string", Example: "20260101"},
			{Name: "expirationDate", Description: "Expiration date (YYYY-MM-DD, YYYY/MM/DD or YYYYMMDD)", Required: true, Type: "date", Example: "2026-12-31"},
			{Name: "quantity", Description: "Units on hand for this batch", Required: false, Type: "number", Example: "24"},
			{Name: "batchQuantity", Description: "Units originally produced in this batch", Required: false, Type: "number", Example: "48"},
			{Name: "location", Description: "Storage location", Required: false, Type: "string", Example: "A-03"},
		},
		SampleData: []map[string]string{
			{"productId": "SKU-1001", "batchId": "20260101", "expirationDate": "2026-12-31", "quantity": "24", "batchQuantity": "48", "location": "A-03"},
		},
	}
}
