// Package spreadsheet reads uploaded workbooks into plain rows of text cells.
package spreadsheet

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrUnsupportedFormat is returned when the upload is not a readable workbook.
var ErrUnsupportedFormat = errors.New("spreadsheet: unsupported workbook format")

// Cell is a single cell's display text and, when the cell is a link, its target.
type Cell struct {
	Value     string
	Hyperlink string
}

// Row is one worksheet row. Index is the 1-based row number as shown in the sheet.
type Row struct {
	Index int
	Cells []Cell
}

// Text returns the trimmed value of the 1-based column, preferring a hyperlink target.
func (r Row) Text(col int) string {
	if col < 1 || col > len(r.Cells) {
		return ""
	}
	cell := r.Cells[col-1]
	if cell.Hyperlink != "" {
		return strings.TrimSpace(cell.Hyperlink)
	}
	return strings.TrimSpace(cell.Value)
}

// Empty reports whether every cell in the row is blank.
func (r Row) Empty() bool {
	for _, cell := range r.Cells {
		if strings.TrimSpace(cell.Value) != "" || cell.Hyperlink != "" {
			return false
		}
	}
	return true
}

type Sheet struct {
	Name string
	Rows []Row
}

type Workbook struct {
	Sheets []Sheet
}

// SheetNames lists sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, 0, len(w.Sheets))
	for _, sheet := range w.Sheets {
		names = append(names, sheet.Name)
	}
	return names
}

// ReadOptions bounds which rows are materialised from every sheet.
type ReadOptions struct {
	// FirstRow is the first 1-based row returned. Zero means row 1.
	FirstRow int
	// MaxRows caps the rows returned per sheet starting at FirstRow. Zero means unlimited.
	MaxRows int
}

func (o ReadOptions) firstRow() int {
	if o.FirstRow < 1 {
		return 1
	}
	return o.FirstRow
}

// lastRow returns the last row to read, or 0 when unbounded.
func (o ReadOptions) lastRow() int {
	if o.MaxRows <= 0 {
		return 0
	}
	return o.firstRow() + o.MaxRows - 1
}

// Reader parses a workbook stream.
type Reader interface {
	Read(ctx context.Context, r io.Reader, opts ReadOptions) (*Workbook, error)
}
