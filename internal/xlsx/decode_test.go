package xlsx

import (
	"bytes"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"bankreport/internal/core"
)

// workbook builds an in-memory xlsx from rows; the first row is the header.
func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		row := r
		if err := f.SetSheetRow("Sheet1", cellRef, &row); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

var header = []any{"Date", "Description", "Debit", "Credit", "Balance"}

func TestDecodeXLSX(t *testing.T) {
	buf := workbook(t,
		header,
		[]any{"31/01/2024", "Inward Transfer Talabat", "", 100, 1100},
		[]any{},
		[]any{time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), "POS Purchase Store", 50.25, "", 1049.75},
	)
	rows, err := Decode("statement.xlsx", buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank row skipped)", len(rows))
	}
	first := rows[0]
	if first.Line != 2 || first.Date != "31/01/2024" || first.Description != "Inward Transfer Talabat" {
		t.Fatalf("first row = %+v", first)
	}
	if first.Debit != "" || first.Credit != "100" || first.Balance != "1100" {
		t.Fatalf("first amounts = %+v", first)
	}

	second := rows[1]
	if second.Line != 4 {
		t.Fatalf("second line = %d", second.Line)
	}
	d := core.ParseDate(second.Date)
	if !d.Valid || d.MonthKey() != "2024-02" || d.Day() != 5 {
		t.Fatalf("serial date %q parsed to %v", second.Date, d)
	}
	if second.Debit != "50.25" {
		t.Fatalf("debit = %q", second.Debit)
	}
}

func TestDecodeExtraColumnsAndOrder(t *testing.T) {
	buf := workbook(t,
		[]any{"Ref", "Balance", "Credit", "Debit", "Description", "Date"},
		[]any{"R1", 10, 5, "", "Cash deposit", "01/03/2024"},
	)
	rows, err := DecodeXLSX(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := core.RawRow{Line: 2, Date: "01/03/2024", Description: "Cash deposit", Credit: "5", Balance: "10"}
	if !reflect.DeepEqual(rows, []core.RawRow{want}) {
		t.Fatalf("rows = %+v", rows)
	}
}

// testdata/statement.xls is a BIFF8 workbook whose columns are shuffled behind
// an extra Ref column. Row 3 is absent and row 4 has no ROW record. Its cells
// are shared strings, an inline label, NUMBER, RK and BLANK records.
func TestDecodeXLS(t *testing.T) {
	data, err := os.ReadFile("testdata/statement.xls")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	rows, err := Decode("statement.xls", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []core.RawRow{
		{Line: 2, Date: "31/01/2024", Description: "Inward Transfer Talabat", Credit: "100", Balance: "1100"},
		{Line: 4, Date: "2024-02-05T00:00:00", Description: "POS Purchase Store", Debit: "50.25", Balance: "1049.75"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %+v", rows)
	}

	txs, aggs := core.Summarize(rows)
	if !txs[1].Date.Valid || txs[1].Date.Day() != 5 {
		t.Fatalf("serial date parsed to %v", txs[1].Date)
	}
	if len(aggs) != 2 || aggs[0].Month != "2024-01" || aggs[1].Month != "2024-02" {
		t.Fatalf("months = %+v", aggs)
	}
	if !aggs[0].CreditReconciled || !aggs[1].DebitReconciled {
		t.Fatalf("flags = %+v", aggs)
	}
}

func TestDecodeMissingColumns(t *testing.T) {
	buf := workbook(t, []any{"Date", "description", "Debit"}, []any{"01/01/2024", "x", 1})
	_, err := Decode("s.xlsx", buf)
	var fe *core.InputFormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected InputFormatError, got %v", err)
	}
	if !reflect.DeepEqual(fe.Missing, []string{"Description", "Credit", "Balance"}) {
		t.Fatalf("missing = %v", fe.Missing)
	}
	if !errors.Is(err, core.ErrMissingColumns) || !core.IsInputFormat(err) {
		t.Fatal("error should classify as input format")
	}
}

func TestDecodeHeaderMatchesExactly(t *testing.T) {
	buf := workbook(t, []any{" Date", "Description", "Debit", "Credit", "Balance "}, []any{"01/01/2024", "x", 1, 0, 1})
	_, err := DecodeXLSX(buf)
	var fe *core.InputFormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected InputFormatError, got %v", err)
	}
	if !reflect.DeepEqual(fe.Missing, []string{"Date", "Balance"}) {
		t.Fatalf("missing = %v", fe.Missing)
	}
}

func TestDecodeRejectsNonSpreadsheets(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"notes.csv", "Date,Description\n", core.ErrUnsupportedFormat},
		{"noext", "", core.ErrUnsupportedFormat},
		{"bad.xlsx", "definitely not a zip", core.ErrNotSpreadsheet},
		{"bad.xls", "definitely not biff", core.ErrNotSpreadsheet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.name, strings.NewReader(tc.body))
			if !errors.Is(err, tc.want) {
				t.Fatalf("Decode(%s) error = %v, want %v", tc.name, err, tc.want)
			}
		})
	}
}

func TestEmptyWorkbook(t *testing.T) {
	_, err := DecodeXLSX(workbook(t))
	if !errors.Is(err, core.ErrEmptySheet) {
		t.Fatalf("expected ErrEmptySheet, got %v", err)
	}
}

func TestAllowed(t *testing.T) {
	for name, want := range map[string]bool{
		"a.xlsx": true, "A.XLSX": true, "b.xls": true, "c.csv": false, "xlsx": false,
	} {
		if got := Allowed(name); got != want {
			t.Errorf("Allowed(%q) = %v", name, got)
		}
	}
}

func TestExcelDate(t *testing.T) {
	if got := excelDate("45292"); got != "2024-01-01T00:00:00" {
		t.Fatalf("serial = %q", got)
	}
	for _, in := range []string{"31/01/2024", "", "-3", "99999999"} {
		if got := excelDate(in); got != in {
			t.Errorf("excelDate(%q) = %q, want passthrough", in, got)
		}
	}
}
