package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	"shelflife-service/internal/services"
)

func newTestIngestHandler() *IngestHandler {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewIngestHandler(services.NewIngestService(nil, logger))
}

func TestGetTemplateJSON(t *testing.T) {
	handler := newTestIngestHandler()
	router := setupTestRouter()
	router.GET("/shelf-life/import/template", handler.GetTemplate)

	w := doRequest(router, "GET", "/shelf-life/import/template", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var template map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &template))
	assert.Equal(t, "shelf-life-items", template["entity"])
	assert.NotEmpty(t, template["columns"])
}

func TestGetTemplateCSV(t *testing.T) {
	handler := newTestIngestHandler()
	router := setupTestRouter()
	router.GET("/shelf-life/import/template", handler.GetTemplate)

	w := doRequest(router, "GET", "/shelf-life/import/template?format=csv", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "shelf-life-items-template.csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "productId *")
	assert.Contains(t, lines[0], "expirationDate *")
	assert.Contains(t, lines[1], "SKU-1001")
}

func TestGetTemplateXLSX(t *testing.T) {
	handler := newTestIngestHandler()
	router := setupTestRouter()
	router.GET("/shelf-life/import/template", handler.GetTemplate)

	w := doRequest(router, "GET", "/shelf-life/import/template?format=xlsx", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "shelf-life-items-template.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	assert.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("ShelfLife")
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "productId *", rows[0][0])
	assert.Equal(t, "SKU-1001", rows[1][0])

	instructions, err := f.GetRows("Instructions")
	assert.NoError(t, err)
	assert.NotEmpty(t, instructions)
}
