package export

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/clv/backend/internal/frame"
)

const defaultSheet = "Sheet1"

// writeXLSX writes every table as a sheet of one clv_report.xlsx workbook
func (e *Exporter) writeXLSX(tables []Table) (string, error) {
	path := filepath.Join(e.dir, "clv_report.xlsx")

	wb, err := Workbook(tables)
	if err != nil {
		return "", err
	}
	defer wb.Close()

	if err := wb.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}

// Workbook builds an in-memory workbook with one sheet per table and a bold header row
func Workbook(tables []Table) (*excelize.File, error) {
	wb := excelize.NewFile()

	header, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		wb.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, t := range tables {
		idx, err := wb.NewSheet(t.Name)
		if err != nil {
			wb.Close()
			return nil, fmt.Errorf("new sheet %s: %w", t.Name, err)
		}
		if i == 0 {
			wb.SetActiveSheet(idx)
		}
		if err := writeSheet(wb, t.Name, t.Frame, header); err != nil {
			wb.Close()
			return nil, fmt.Errorf("sheet %s: %w", t.Name, err)
		}
	}

	if len(tables) > 0 {
		if err := wb.DeleteSheet(defaultSheet); err != nil {
			wb.Close()
			return nil, err
		}
	}
	return wb, nil
}

func writeSheet(wb *excelize.File, sheet string, f *frame.Frame, headerStyle int) error {
	names := f.Names()
	head := make([]interface{}, len(names))
	for j, name := range names {
		head[j] = name
	}
	if err := wb.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	if err := wb.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for row := 0; row < f.Len(); row++ {
		values := make([]interface{}, len(names))
		for j, name := range names {
			v, err := f.Value(name, row)
			if err != nil {
				return err
			}
			values[j] = xlsxValue(v)
		}
		cellName, err := excelize.CoordinatesToCellName(1, row+2)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, cellName, &values); err != nil {
			return err
		}
	}
	return nil
}

// xlsxValue leaves NaN and zero dates as empty cells
func xlsxValue(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x.Format("2006-01-02")
	}
	return v
}
