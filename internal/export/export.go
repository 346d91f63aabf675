// Package export writes and reads the delimited tables produced for each
// processed statement: one row per transaction and one row per month.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bankreport/internal/core"
)

// Column names shared by writers and readers.
const (
	ColMonth            = "Month"
	ColDebit            = "Debit"
	ColCredit           = "Credit"
	ColCreditMatch      = "Credit Match Status"
	ColDebitMatch       = "Debit Match Status"
	ColLastBalance      = "Last Balance"
	ColDescriptionLower = "Description_lower"
)

// TransactionHeader is the header of the transaction-level table.
func TransactionHeader() []string {
	h := []string{"Date", "Description", ColDebit, ColCredit, "Balance", ColDescriptionLower}
	for _, c := range core.AllCategories() {
		h = append(h, c.String())
	}
	return append(h, ColMonth)
}

// MonthlyHeader is the header of the monthly table.
func MonthlyHeader() []string {
	h := []string{ColMonth}
	for _, c := range core.AllCategories() {
		h = append(h, c.String())
	}
	return append(h, ColDebit, ColCredit, ColCreditMatch, ColDebitMatch, ColLastBalance)
}

// WriteTransactions writes every row, missing cells as empty fields.
func WriteTransactions(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TransactionHeader()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txs {
		rec := []string{
			tx.Date.String(),
			tx.Description,
			tx.Debit.String(),
			tx.Credit.String(),
			tx.Balance.String(),
			tx.DescriptionLower,
		}
		for _, c := range core.AllCategories() {
			rec = append(rec, tx.Categories.Get(c).String())
		}
		rec = append(rec, tx.MonthKey())
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", tx.Line, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMonthly writes one row per aggregate with two-decimal amounts.
func WriteMonthly(w io.Writer, aggs []core.MonthlyAggregate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MonthlyHeader()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, m := range aggs {
		rec := []string{m.Month}
		for _, c := range core.AllCategories() {
			rec = append(rec, m.Categories.Get(c).StringFixed(2))
		}
		rec = append(rec,
			m.TotalDebit.StringFixed(2),
			m.TotalCredit.StringFixed(2),
			strconv.FormatBool(m.CreditReconciled),
			strconv.FormatBool(m.DebitReconciled),
			m.LastBalance.Fixed(),
		)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write month %s: %w", m.Month, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadMonthly parses a table produced by WriteMonthly. Columns are located by
// header name, so column order is not significant.
func ReadMonthly(r io.Reader) ([]core.MonthlyAggregate, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read monthly table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read monthly table: empty file")
	}
	idx := map[string]int{}
	for i, h := range records[0] {
		idx[h] = i
	}
	for _, h := range MonthlyHeader() {
		if _, ok := idx[h]; !ok {
			return nil, fmt.Errorf("read monthly table: missing column %q", h)
		}
	}

	out := make([]core.MonthlyAggregate, 0, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		field := func(name string) string { return rec[idx[name]] }
		m := core.MonthlyAggregate{Month: field(ColMonth)}
		for _, c := range core.AllCategories() {
			d, err := decimal.NewFromString(field(c.String()))
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, c.String(), err)
			}
			m.Categories.Set(c, d)
		}
		if m.TotalDebit, err = decimal.NewFromString(field(ColDebit)); err != nil {
			return nil, fmt.Errorf("line %d column %q: %w", line, ColDebit, err)
		}
		if m.TotalCredit, err = decimal.NewFromString(field(ColCredit)); err != nil {
			return nil, fmt.Errorf("line %d column %q: %w", line, ColCredit, err)
		}
		if m.CreditReconciled, err = strconv.ParseBool(field(ColCreditMatch)); err != nil {
			return nil, fmt.Errorf("line %d column %q: %w", line, ColCreditMatch, err)
		}
		if m.DebitReconciled, err = strconv.ParseBool(field(ColDebitMatch)); err != nil {
			return nil, fmt.Errorf("line %d column %q: %w", line, ColDebitMatch, err)
		}
		if lb := field(ColLastBalance); lb != "" {
			d, err := decimal.NewFromString(lb)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, ColLastBalance, err)
			}
			m.LastBalance = core.NewAmount(d)
		}
		out = append(out, m)
	}
	return out, nil
}

// ReadMonthlyFile opens and parses a monthly table from disk.
func ReadMonthlyFile(path string) ([]core.MonthlyAggregate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMonthly(f)
}

// WriteTransactionsFile writes the transaction table atomically.
func WriteTransactionsFile(path string, txs []core.Transaction) error {
	return WriteFileAtomic(path, func(f *os.File) error { return WriteTransactions(f, txs) })
}

// WriteMonthlyFile writes the monthly table atomically.
func WriteMonthlyFile(path string, aggs []core.MonthlyAggregate) error {
	return WriteFileAtomic(path, func(f *os.File) error { return WriteMonthly(f, aggs) })
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SafeName reduces an uploaded file name to a plain base name made of ASCII
// letters, digits, '_', '-' and '.'. It never returns a path or a dot file.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "statement"
	}
	return name
}

// Names are the export file names of one run.
type Names struct {
	Transactions string
	Monthly      string
}

// FileNames derives the export names from the upload name and the run ID, e.g.
// "df_march_1a2b3c4d.csv" and "pivot_march_1a2b3c4d.csv".
func FileNames(upload, runID string) Names {
	stem := strings.TrimSuffix(SafeName(upload), filepath.Ext(SafeName(upload)))
	if stem == "" {
		stem = "statement"
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	suffix := stem + "_" + short + ".csv"
	return Names{Transactions: "df_" + suffix, Monthly: "pivot_" + suffix}
}
