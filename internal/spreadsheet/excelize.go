package spreadsheet

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelizeReader reads Office Open XML workbooks.
type ExcelizeReader struct{}

// NewExcelizeReader returns a Reader backed by excelize.
func NewExcelizeReader() *ExcelizeReader {
	return &ExcelizeReader{}
}

func (ExcelizeReader) Read(ctx context.Context, r io.Reader, opts ReadOptions) (*Workbook, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		if errors.Is(err, excelize.ErrWorkbookFileFormat) || errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("spreadsheet: open workbook: %w", err)
	}
	defer file.Close()

	workbook := &Workbook{}
	for _, name := range file.GetSheetList() {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		sheet, err := readSheet(file, name, opts)
		if err != nil {
			return nil, err
		}
		workbook.Sheets = append(workbook.Sheets, sheet)
	}
	return workbook, nil
}

func readSheet(file *excelize.File, name string, opts ReadOptions) (Sheet, error) {
	sheet := Sheet{Name: name}

	rows, err := file.Rows(name)
	if err != nil {
		return sheet, fmt.Errorf("spreadsheet: read sheet %q: %w", name, err)
	}
	defer rows.Close()

	first, last := opts.firstRow(), opts.lastRow()
	index := 0
	for rows.Next() {
		index++
		if index < first {
			continue
		}
		if last > 0 && index > last {
			break
		}

		values, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return sheet, fmt.Errorf("spreadsheet: read row %d of %q: %w", index, name, err)
		}

		row := Row{Index: index, Cells: make([]Cell, len(values))}
		for col, value := range values {
			row.Cells[col] = Cell{Value: value}
			if value == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(col+1, index)
			if err != nil {
				return sheet, err
			}
			if ok, target, err := file.GetCellHyperLink(name, ref); err == nil && ok {
				row.Cells[col].Hyperlink = target
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	if err := rows.Error(); err != nil {
		return sheet, fmt.Errorf("spreadsheet: iterate %q: %w", name, err)
	}
	return sheet, nil
}
