package excel

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/auditops/findings-assistant/internal/core/usecase"
)

// Column order of the expected workbook sheet. The first row is a header and
// is skipped.
var expectedHeader = []string{
	"title", "description", "recommendation", "severity", "status",
	"department", "project_type", "year", "risk_score",
}

// Reader turns an audit-findings workbook into rows for the import use case.
// Cell text is passed through untouched; normalization happens downstream.
type Reader struct {
	sheet string
}

func NewReader(sheet string) *Reader {
	return &Reader{sheet: sheet}
}

func (r *Reader) Read(src io.Reader) ([]usecase.FindingRow, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}
	if err := validateHeader(rows[0]); err != nil {
		return nil, err
	}

	out := make([]usecase.FindingRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		rowNum := i + 2
		if isBlank(cells) {
			continue
		}
		row, err := parseRow(rowNum, cells)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func validateHeader(header []string) error {
	if len(header) < len(expectedHeader) {
		return fmt.Errorf("header has %d columns, want %d (%s)",
			len(header), len(expectedHeader), strings.Join(expectedHeader, ", "))
	}
	for i, want := range expectedHeader {
		got := strings.ToLower(strings.TrimSpace(header[i]))
		if got != want {
			return fmt.Errorf("header column %d is %q, want %q", i+1, header[i], want)
		}
	}
	return nil
}

func parseRow(rowNum int, cells []string) (usecase.FindingRow, error) {
	row := usecase.FindingRow{Row: rowNum}

	row.Title = cell(cells, 0)
	row.Description = cell(cells, 1)
	row.Recommendation = cell(cells, 2)
	row.Severity = cell(cells, 3)
	row.Status = cell(cells, 4)
	row.Department = cell(cells, 5)
	row.ProjectType = cell(cells, 6)

	if raw := cell(cells, 7); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return row, fmt.Errorf("row %d: year %q is not a number", rowNum, raw)
		}
		row.Year = year
	}
	if raw := cell(cells, 8); raw != "" {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return row, fmt.Errorf("row %d: risk_score %q is not a number", rowNum, raw)
		}
		row.RiskScore = score
	}
	return row, nil
}

func cell(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
