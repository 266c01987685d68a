package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Petrobere4/rag-docs-demo/models"
)

// LogLister is the slice of the store the export service needs.
type LogLister interface {
	ListQueryLogs(ctx context.Context, limit int64) ([]models.QueryLog, error)
}

// ExportService renders the query-log audit trail for download.
type ExportService struct {
	store LogLister
}

func NewExportService(store LogLister) *ExportService {
	return &ExportService{store: store}
}

// exportSheetName is the single worksheet in the generated workbook.
const exportSheetName = "Query Logs"

// ExportLogs fetches up to limit logs, newest first.
func (s *ExportService) ExportLogs(ctx context.Context, limit int64) ([]models.QueryLog, error) {
	return s.store.ListQueryLogs(ctx, limit)
}

// BuildWorkbook renders logs into an XLSX workbook with one row per query.
func (s *ExportService) BuildWorkbook(logs []models.QueryLog) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Question", "Answer", "Sources", "Latency (ms)", "Created At"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheetName, cell, header); err != nil {
			return nil, err
		}
	}

	for row, log := range logs {
		values := []interface{}{
			log.ID.Hex(),
			log.Question,
			log.Answer,
			formatSources(log.TopSources),
			log.LatencyMS,
			log.CreatedAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheetName, cell, value); err != nil {
				return nil, err
			}
		}
	}

	return f.WriteToBuffer()
}

// formatSources flattens cited sources into "title (similarity)" pairs.
func formatSources(sources []models.SourceRef) string {
	if len(sources) == 0 {
		return ""
	}
	parts := make([]string, len(sources))
	for i, src := range sources {
		parts[i] = fmt.Sprintf("%s (%.3f)", src.Title, src.Similarity)
	}
	return strings.Join(parts, "; ")
}
