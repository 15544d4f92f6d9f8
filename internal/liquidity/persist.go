package liquidity

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const reportSheet = "Liquidity"

var reportHeader = []string{
	"isin", "issuer", "category", "months",
	"median_volume", "min_volume", "max_volume", "rating",
}

// SaveCSV writes the report to a CSV file, creating the directory if
// needed.
func SaveCSV(report []Metrics, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(reportHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, m := range report {
		row := []string{
			m.ISIN,
			m.Issuer,
			string(m.Category),
			strconv.Itoa(m.Months),
			formatVolume(m.MedianVolume),
			formatVolume(m.MinVolume),
			formatVolume(m.MaxVolume),
			strconv.Itoa(m.Rating),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write report row for %s: %w", m.ISIN, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// SaveExcel writes the report as a single-sheet workbook for dashboard
// users who want to filter and chart without touching the raw CSV.
func SaveExcel(report []Metrics, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("name report sheet: %w", err)
	}
	for col, name := range reportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("resolve header cell: %w", err)
		}
		if err := f.SetCellValue(reportSheet, cell, name); err != nil {
			return fmt.Errorf("write header cell %s: %w", cell, err)
		}
	}

	for i, m := range report {
		values := []any{
			m.ISIN, m.Issuer, string(m.Category), m.Months,
			m.MedianVolume, m.MinVolume, m.MaxVolume, m.Rating,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("resolve cell: %w", err)
			}
			if err := f.SetCellValue(reportSheet, cell, v); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetColWidth(reportSheet, "B", "B", 40); err != nil {
		return fmt.Errorf("size issuer column: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
