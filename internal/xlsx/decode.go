// Package xlsx decodes bank statement spreadsheets into raw rows.
//
// Workbooks are read from the first sheet. The first row must carry the
// required column headers; every following non-blank row becomes a RawRow.
package xlsx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"bankreport/internal/core"
)

// maxExcelSerial is 9999-12-31 in the 1900 date system.
const maxExcelSerial = 2958465

// Supported extensions, lower-case.
var Extensions = []string{".xlsx", ".xls"}

// Allowed reports whether the file name carries a supported extension.
func Allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Decode picks the decoder from the file extension.
func Decode(name string, r io.Reader) ([]core.RawRow, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return DecodeXLSX(r)
	case ".xls":
		return DecodeXLS(r)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// DecodeXLSX reads an Office Open XML workbook.
func DecodeXLSX(r io.Reader) ([]core.RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNotSpreadsheet, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, core.ErrEmptySheet
	}
	// Raw values keep dates as serial numbers and amounts unformatted.
	matrix, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return fromMatrix(matrix)
}

// DecodeXLS reads a legacy BIFF workbook.
func DecodeXLS(r io.Reader) ([]core.RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	wb, err := openXLS(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNotSpreadsheet, err)
	}
	if wb.NumSheets() == 0 {
		return nil, core.ErrEmptySheet
	}
	matrix, err := readFirstSheet(wb)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNotSpreadsheet, err)
	}
	return fromMatrix(matrix)
}

// readFirstSheet parses the first worksheet; the parser panics on truncated
// sheet streams.
func readFirstSheet(wb *xls.WorkBook) (matrix [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			matrix, err = nil, fmt.Errorf("malformed sheet: %v", r)
		}
	}()
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}
	return sheetMatrix(sheet), nil
}

// xlsMaxCols is the BIFF8 column limit.
const xlsMaxCols = 256

// sheetMatrix reads every stored row of sheet; rows the file never stored come
// back nil. Trailing empty rows are dropped.
func sheetMatrix(sheet *xls.WorkSheet) [][]string {
	matrix := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		matrix = append(matrix, rowCells(sheet, i))
	}
	for len(matrix) > 0 && blank(matrix[len(matrix)-1]) {
		matrix = matrix[:len(matrix)-1]
	}
	return matrix
}

// rowCells reads row i. WorkSheet.Row panics on a row index that has no
// cells, and Row.LastCol is zero when the file carries no ROW record, in
// which case columns are probed up to xlsMaxCols.
func rowCells(sheet *xls.WorkSheet, i int) (cells []string) {
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()
	row := sheet.Row(i)
	width := row.LastCol()
	if width <= 0 {
		width = xlsMaxCols
	}
	cells = make([]string, width)
	for j := range cells {
		cells[j] = row.Col(j)
	}
	last := len(cells)
	for last > 0 && cells[last-1] == "" {
		last--
	}
	return cells[:last]
}

// openXLS guards against the parser panicking on files that are not BIFF.
func openXLS(data []byte) (wb *xls.WorkBook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("malformed xls: %v", r)
		}
	}()
	wb, err = xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err == nil && wb == nil {
		err = errors.New("empty workbook")
	}
	return wb, err
}

// fromMatrix maps the header row to column indices and converts data rows.
func fromMatrix(matrix [][]string) ([]core.RawRow, error) {
	if len(matrix) == 0 {
		return nil, core.ErrEmptySheet
	}
	cols, err := headerIndex(matrix[0])
	if err != nil {
		return nil, err
	}

	rows := make([]core.RawRow, 0, len(matrix)-1)
	for i, cells := range matrix[1:] {
		if blank(cells) {
			continue
		}
		rows = append(rows, core.RawRow{
			Line:        i + 2,
			Date:        excelDate(cell(cells, cols["Date"])),
			Description: cell(cells, cols["Description"]),
			Debit:       cell(cells, cols["Debit"]),
			Credit:      cell(cells, cols["Credit"]),
			Balance:     cell(cells, cols["Balance"]),
		})
	}
	return rows, nil
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	var missing []string
	for _, name := range core.RequiredColumns {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &core.InputFormatError{Missing: missing}
	}
	return idx, nil
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// excelDate turns an Excel serial day number into an ISO timestamp. Anything
// else is passed through for the normalizer to interpret.
func excelDate(v string) string {
	s := strings.TrimSpace(v)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f > maxExcelSerial {
		return v
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return v
	}
	return t.Format("2006-01-02T15:04:05")
}
