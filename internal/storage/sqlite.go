package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite has a single writer; share one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveReport stores the report and its months in one transaction.
func (r *SQLiteRepository) SaveReport(ctx context.Context, rep Report) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (id, source_name, transactions_file, monthly_file, row_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.SourceName, rep.TransactionsFile, rep.MonthlyFile, rep.RowCount, rep.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert report %s: %w", rep.ID, err)
	}

	for _, m := range rep.Months {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO report_months (report_id, month, total_credit, total_debit, credit_reconciled, debit_reconciled, charts)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rep.ID, m.Month, m.TotalCredit.String(), m.TotalDebit.String(),
			boolToInt(m.CreditReconciled), boolToInt(m.DebitReconciled), strings.Join(m.Charts, ","))
		if err != nil {
			return fmt.Errorf("insert month %s of report %s: %w", m.Month, rep.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report %s: %w", rep.ID, err)
	}

	slog.DebugContext(ctx, "Report indexed in SQLite", "report_id", rep.ID, "months", len(rep.Months))
	return nil
}

// GetReport returns the report with its months, or ErrNotFound.
func (r *SQLiteRepository) GetReport(ctx context.Context, id string) (Report, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, source_name, transactions_file, monthly_file, row_count, created_at
		FROM reports WHERE id = ?`, id)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, fmt.Errorf("get report %s: %w", id, err)
	}

	rep.Months, err = r.ListMonths(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return rep, nil
}

// ListReports returns up to limit reports, newest first, without months.
func (r *SQLiteRepository) ListReports(ctx context.Context, limit int) ([]Report, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_name, transactions_file, monthly_file, row_count, created_at
		FROM reports ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// ListMonths returns the months of a report in ascending order.
func (r *SQLiteRepository) ListMonths(ctx context.Context, reportID string) ([]Month, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT month, total_credit, total_debit, credit_reconciled, debit_reconciled, charts
		FROM report_months WHERE report_id = ? ORDER BY month`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list months of %s: %w", reportID, err)
	}
	defer rows.Close()

	var out []Month
	for rows.Next() {
		var (
			m             Month
			credit, debit string
			cRec, dRec    int
			charts        string
		)
		if err := rows.Scan(&m.Month, &credit, &debit, &cRec, &dRec, &charts); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		if m.TotalCredit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("month %s total credit: %w", m.Month, err)
		}
		if m.TotalDebit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("month %s total debit: %w", m.Month, err)
		}
		m.CreditReconciled = cRec != 0
		m.DebitReconciled = dRec != 0
		if charts != "" {
			m.Charts = strings.Split(charts, ",")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RecordAlert stores an alert. Recording the same report, month and side
// again replaces the amounts.
func (r *SQLiteRepository) RecordAlert(ctx context.Context, a Alert) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reconciliation_alerts (report_id, month, side, expected, actual, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (report_id, month, side) DO UPDATE SET
			expected = excluded.expected,
			actual = excluded.actual,
			created_at = excluded.created_at`,
		a.ReportID, a.Month, a.Side, a.Expected.String(), a.Actual.String(), a.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record alert %s %s %s: %w", a.ReportID, a.Month, a.Side, err)
	}
	return nil
}

// ListAlerts returns the alerts of a report ordered by month and side.
func (r *SQLiteRepository) ListAlerts(ctx context.Context, reportID string) ([]Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, report_id, month, side, expected, actual, created_at
		FROM reconciliation_alerts WHERE report_id = ? ORDER BY month, side`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list alerts of %s: %w", reportID, err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var (
			a                Alert
			expected, actual string
			created          int64
		)
		if err := rows.Scan(&a.ID, &a.ReportID, &a.Month, &a.Side, &expected, &actual, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if a.Expected, err = decimal.NewFromString(expected); err != nil {
			return nil, fmt.Errorf("alert %d expected: %w", a.ID, err)
		}
		if a.Actual, err = decimal.NewFromString(actual); err != nil {
			return nil, fmt.Errorf("alert %d actual: %w", a.ID, err)
		}
		a.CreatedAt = time.UnixMilli(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteReportsBefore removes reports created before t together with their
// months and alerts, and returns what was removed.
func (r *SQLiteRepository) DeleteReportsBefore(ctx context.Context, t time.Time) ([]Report, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, source_name, transactions_file, monthly_file, row_count, created_at
		FROM reports WHERE created_at < ? ORDER BY created_at`, t.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("select expired reports: %w", err)
	}
	var expired []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan report: %w", err)
		}
		expired = append(expired, rep)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, rep := range expired {
		for _, q := range []string{
			`DELETE FROM reconciliation_alerts WHERE report_id = ?`,
			`DELETE FROM report_months WHERE report_id = ?`,
			`DELETE FROM reports WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, rep.ID); err != nil {
				return nil, fmt.Errorf("delete report %s: %w", rep.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit deletion: %w", err)
	}
	return expired, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (Report, error) {
	var (
		rep     Report
		created int64
	)
	if err := s.Scan(&rep.ID, &rep.SourceName, &rep.TransactionsFile, &rep.MonthlyFile, &rep.RowCount, &created); err != nil {
		return Report{}, err
	}
	rep.CreatedAt = time.UnixMilli(created)
	return rep, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
