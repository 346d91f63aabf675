package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"bankreport/internal/core"
)

func sampleRows() []core.RawRow {
	return []core.RawRow{
		{Line: 2, Date: "01/03/2024", Description: "INWARD TALABAT settlement", Credit: "100.50", Balance: "1100.50"},
		{Line: 3, Date: "05/03/2024", Description: "POS purchase", Debit: "40", Balance: "1060.50"},
		{Line: 4, Date: "", Description: "orphan", Debit: "5"},
	}
}

func TestWriteTransactions(t *testing.T) {
	txs, _ := core.Summarize(sampleRows())

	var buf bytes.Buffer
	if err := WriteTransactions(&buf, txs); err != nil {
		t.Fatalf("WriteTransactions: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	header := records[0]
	if got, want := strings.Join(header, ","), strings.Join(TransactionHeader(), ","); got != want {
		t.Errorf("header = %s, want %s", got, want)
	}
	col := map[string]int{}
	for i, h := range header {
		col[h] = i
	}

	first := records[1]
	if first[col["Date"]] != "2024-03-01" {
		t.Errorf("Date = %q", first[col["Date"]])
	}
	if first[col[ColDebit]] != "" {
		t.Errorf("missing debit should be empty, got %q", first[col[ColDebit]])
	}
	if first[col[ColDescriptionLower]] != "inward talabat settlement" {
		t.Errorf("Description_lower = %q", first[col[ColDescriptionLower]])
	}
	if first[col[core.TalabatCredit.String()]] != "100.5" {
		t.Errorf("Talabat Credit = %q", first[col[core.TalabatCredit.String()]])
	}
	if first[col[ColMonth]] != "2024-03" {
		t.Errorf("Month = %q", first[col[ColMonth]])
	}

	orphan := records[3]
	if orphan[col["Date"]] != "" || orphan[col[ColMonth]] != "" {
		t.Errorf("undated row should export empty date and month, got %q %q", orphan[col["Date"]], orphan[col[ColMonth]])
	}
}

func TestMonthlyRoundTrip(t *testing.T) {
	_, aggs := core.Summarize(sampleRows())
	if len(aggs) != 1 {
		t.Fatalf("got %d months, want 1", len(aggs))
	}
	missing := core.MonthlyAggregate{Month: "2024-04", DebitReconciled: true}
	aggs = append(aggs, missing)

	var buf bytes.Buffer
	if err := WriteMonthly(&buf, aggs); err != nil {
		t.Fatalf("WriteMonthly: %v", err)
	}
	if !strings.Contains(buf.String(), "100.50") {
		t.Errorf("amounts should carry two decimals:\n%s", buf.String())
	}

	got, err := ReadMonthly(&buf)
	if err != nil {
		t.Fatalf("ReadMonthly: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	m := got[0]
	if m.Month != "2024-03" {
		t.Errorf("Month = %q", m.Month)
	}
	if !m.TotalCredit.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("TotalCredit = %s", m.TotalCredit)
	}
	if !m.Categories.Get(core.CardPurchases).Equal(decimal.NewFromInt(40)) {
		t.Errorf("Card Purchases = %s", m.Categories.Get(core.CardPurchases))
	}
	if !m.LastBalance.Equal(core.AmountFromString("1060.50")) {
		t.Errorf("LastBalance = %s", m.LastBalance)
	}
	if m.CreditReconciled != aggs[0].CreditReconciled || m.DebitReconciled != aggs[0].DebitReconciled {
		t.Errorf("flags = %v/%v, want %v/%v", m.CreditReconciled, m.DebitReconciled, aggs[0].CreditReconciled, aggs[0].DebitReconciled)
	}

	if !got[1].LastBalance.IsMissing() {
		t.Errorf("empty last balance should read back as missing, got %s", got[1].LastBalance)
	}
	if !got[1].DebitReconciled || got[1].CreditReconciled {
		t.Errorf("flags = %v/%v", got[1].CreditReconciled, got[1].DebitReconciled)
	}
}

func TestReadMonthlyErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing column", "Month,Debit\n2024-01,1\n"},
		{"bad number", strings.Join(MonthlyHeader(), ",") + "\n2024-01,x,0,0,0,0,0,0,0,0,0,0,true,true,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadMonthly(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")

	if err := WriteFileAtomic(path, func(f *os.File) error {
		_, err := f.WriteString("first")
		return err
	}); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	boom := errors.New("boom")
	err := WriteFileAtomic(path, func(f *os.File) error {
		_, _ = f.WriteString("partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first" {
		t.Errorf("content = %q, failed write must leave the previous file", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestMonthlyFileRoundTrip(t *testing.T) {
	_, aggs := core.Summarize(sampleRows())
	path := filepath.Join(t.TempDir(), "pivot.csv")
	if err := WriteMonthlyFile(path, aggs); err != nil {
		t.Fatal(err)
	}
	got, err := ReadMonthlyFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(aggs) {
		t.Errorf("got %d rows, want %d", len(got), len(aggs))
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"march.xlsx", "march.xlsx"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\Statement March.xls`, "Statement_March.xls"},
		{"..", "statement"},
		{".hidden.xlsx", "hidden.xlsx"},
		{"réçu €.xlsx", "ru_.xlsx"},
		{"", "statement"},
	}
	for _, tt := range tests {
		if got := SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileNames(t *testing.T) {
	n := FileNames("../March 2024.xlsx", "1a2b3c4d-5e6f-7a8b-9c0d-112233445566")
	if n.Transactions != "df_March_2024_1a2b3c4d.csv" {
		t.Errorf("Transactions = %q", n.Transactions)
	}
	if n.Monthly != "pivot_March_2024_1a2b3c4d.csv" {
		t.Errorf("Monthly = %q", n.Monthly)
	}
}
