package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, build func(f *excelize.File)) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	build(f)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestExcelizeReaderReadsRowsFromFirstRow(t *testing.T) {
	buf := buildWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetSheetName("Sheet1", "Hex Bolt"))
		require.NoError(t, f.SetCellValue("Hex Bolt", "A1", "Catalog header"))
		require.NoError(t, f.SetSheetRow("Hex Bolt", "A8", &[]interface{}{"M8x40", "Zinc plated", "Steel", 100, "", 1500}))
		require.NoError(t, f.SetCellValue("Hex Bolt", "G8", "datasheet"))
		require.NoError(t, f.SetCellHyperLink("Hex Bolt", "G8", "https://example.com/m8.png", "External"))
		require.NoError(t, f.SetSheetRow("Hex Bolt", "A10", &[]interface{}{"  M10x50  ", "", "Brass"}))
	})

	workbook, err := NewExcelizeReader().Read(context.Background(), buf, ReadOptions{FirstRow: 8})
	require.NoError(t, err)
	require.Equal(t, []string{"Hex Bolt"}, workbook.SheetNames())

	rows := workbook.Sheets[0].Rows
	require.NotEmpty(t, rows)
	require.Equal(t, 8, rows[0].Index)
	require.Equal(t, "M8x40", rows[0].Text(1))
	require.Equal(t, "100", rows[0].Text(4))
	require.Equal(t, "", rows[0].Text(5))
	require.Equal(t, "1500", rows[0].Text(6))
	require.Equal(t, "https://example.com/m8.png", rows[0].Text(7))

	var tenth *Row
	for i := range rows {
		if rows[i].Index == 10 {
			tenth = &rows[i]
		}
		if rows[i].Index == 9 {
			require.True(t, rows[i].Empty())
		}
	}
	require.NotNil(t, tenth)
	require.Equal(t, "M10x50", tenth.Text(1))
	require.Equal(t, "", tenth.Text(6))
}

func TestExcelizeReaderCapsRowsPerSheet(t *testing.T) {
	buf := buildWorkbook(t, func(f *excelize.File) {
		for i := 1; i <= 30; i++ {
			require.NoError(t, f.SetCellValue("Sheet1", fmt.Sprintf("A%d", i), fmt.Sprintf("row-%d", i)))
		}
	})

	workbook, err := NewExcelizeReader().Read(context.Background(), buf, ReadOptions{FirstRow: 8, MaxRows: 10})
	require.NoError(t, err)

	rows := workbook.Sheets[0].Rows
	require.Len(t, rows, 10)
	require.Equal(t, 8, rows[0].Index)
	require.Equal(t, "row-17", rows[9].Text(1))
}

func TestExcelizeReaderReadsEverySheet(t *testing.T) {
	buf := buildWorkbook(t, func(f *excelize.File) {
		_, err := f.NewSheet("Wood Screw")
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Wood Screw", "A1", "x"))
	})

	workbook, err := NewExcelizeReader().Read(context.Background(), buf, ReadOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"Sheet1", "Wood Screw"}, workbook.SheetNames())
}

func TestExcelizeReaderRejectsNonWorkbooks(t *testing.T) {
	_, err := NewExcelizeReader().Read(context.Background(), bytes.NewBufferString("name,price\nbolt,1\n"), ReadOptions{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnsupportedFormat), "unexpected error: %v", err)
}

func TestRowHelpers(t *testing.T) {
	row := Row{Index: 3, Cells: []Cell{{Value: " a "}, {Value: ""}, {Value: "label", Hyperlink: "https://x"}}}
	require.Equal(t, "a", row.Text(1))
	require.Equal(t, "https://x", row.Text(3))
	require.Equal(t, "", row.Text(0))
	require.Equal(t, "", row.Text(9))
	require.False(t, row.Empty())
	require.True(t, Row{Cells: []Cell{{Value: "  "}}}.Empty())
}
