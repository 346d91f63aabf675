package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type index interface {
	SaveReport(ctx context.Context, rep Report) error
	GetReport(ctx context.Context, id string) (Report, error)
	ListReports(ctx context.Context, limit int) ([]Report, error)
	ListMonths(ctx context.Context, reportID string) ([]Month, error)
	RecordAlert(ctx context.Context, a Alert) error
	ListAlerts(ctx context.Context, reportID string) ([]Alert, error)
	DeleteReportsBefore(ctx context.Context, t time.Time) ([]Report, error)
	Close() error
}

var (
	_ index = (*SQLiteRepository)(nil)
	_ index = (*MemoryIndex)(nil)
)

func implementations(t *testing.T) map[string]index {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "reports.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return map[string]index{
		"sqlite": repo,
		"memory": NewMemoryIndex(),
	}
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func report(id string, created time.Time) Report {
	return Report{
		ID:               id,
		SourceName:       "statement.xlsx",
		TransactionsFile: "df_statement_" + id + ".csv",
		MonthlyFile:      "pivot_statement_" + id + ".csv",
		RowCount:         42,
		CreatedAt:        created,
		Months: []Month{
			{Month: "2024-02", TotalCredit: decimal.RequireFromString("10.50"), TotalDebit: decimal.NewFromInt(4),
				CreditReconciled: true, DebitReconciled: false, Charts: []string{"2024-02_bar"}},
			{Month: "2024-01", TotalCredit: decimal.NewFromInt(100), TotalDebit: decimal.RequireFromString("99.99"),
				CreditReconciled: true, DebitReconciled: true, Charts: []string{"2024-01_bar", "2024-01_credit_pie"}},
		},
	}
}

func TestSaveAndGetReport(t *testing.T) {
	for name, idx := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := idx.SaveReport(ctx, report("r1", base)); err != nil {
				t.Fatalf("SaveReport: %v", err)
			}

			got, err := idx.GetReport(ctx, "r1")
			if err != nil {
				t.Fatalf("GetReport: %v", err)
			}
			if got.SourceName != "statement.xlsx" || got.RowCount != 42 || !got.CreatedAt.Equal(base) {
				t.Errorf("unexpected report: %+v", got)
			}
			if len(got.Months) != 2 || got.Months[0].Month != "2024-01" {
				t.Fatalf("months should be ascending, got %+v", got.Months)
			}
			jan := got.Months[0]
			if !jan.TotalDebit.Equal(decimal.RequireFromString("99.99")) || !jan.Reconciled() {
				t.Errorf("unexpected january: %+v", jan)
			}
			if len(jan.Charts) != 2 || jan.Charts[1] != "2024-01_credit_pie" {
				t.Errorf("charts = %v", jan.Charts)
			}
			if got.Months[1].Reconciled() {
				t.Error("february should not be reconciled")
			}

			if _, err := idx.GetReport(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetReport(missing) err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestListReports(t *testing.T) {
	for name, idx := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, id := range []string{"old", "mid", "new"} {
				if err := idx.SaveReport(ctx, report(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
					t.Fatal(err)
				}
			}
			got, err := idx.ListReports(ctx, 2)
			if err != nil {
				t.Fatalf("ListReports: %v", err)
			}
			if len(got) != 2 || got[0].ID != "new" || got[1].ID != "mid" {
				t.Errorf("ListReports = %+v", got)
			}
		})
	}
}

func TestAlerts(t *testing.T) {
	for name, idx := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := idx.SaveReport(ctx, report("r1", base)); err != nil {
				t.Fatal(err)
			}
			alerts := []Alert{
				{ReportID: "r1", Month: "2024-02", Side: "debit", Expected: decimal.NewFromInt(3), Actual: decimal.NewFromInt(4), CreatedAt: base},
				{ReportID: "r1", Month: "2024-01", Side: "credit", Expected: decimal.NewFromInt(1), Actual: decimal.NewFromInt(2), CreatedAt: base},
				// redelivery of the same month and side replaces the amounts
				{ReportID: "r1", Month: "2024-02", Side: "debit", Expected: decimal.RequireFromString("3.5"), Actual: decimal.NewFromInt(4), CreatedAt: base},
			}
			for _, a := range alerts {
				if err := idx.RecordAlert(ctx, a); err != nil {
					t.Fatalf("RecordAlert: %v", err)
				}
			}

			got, err := idx.ListAlerts(ctx, "r1")
			if err != nil {
				t.Fatalf("ListAlerts: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("got %d alerts, want 2: %+v", len(got), got)
			}
			if got[0].Month != "2024-01" || got[1].Month != "2024-02" {
				t.Errorf("alerts not ordered by month: %+v", got)
			}
			if !got[1].Expected.Equal(decimal.RequireFromString("3.5")) {
				t.Errorf("expected amount not replaced: %s", got[1].Expected)
			}
		})
	}
}

func TestDeleteReportsBefore(t *testing.T) {
	for name, idx := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = idx.SaveReport(ctx, report("old", base.Add(-48*time.Hour)))
			_ = idx.SaveReport(ctx, report("new", base))
			_ = idx.RecordAlert(ctx, Alert{ReportID: "old", Month: "2024-01", Side: "credit", Expected: decimal.Zero, Actual: decimal.NewFromInt(1)})

			deleted, err := idx.DeleteReportsBefore(ctx, base.Add(-time.Hour))
			if err != nil {
				t.Fatalf("DeleteReportsBefore: %v", err)
			}
			if len(deleted) != 1 || deleted[0].ID != "old" || deleted[0].MonthlyFile != "pivot_statement_old.csv" {
				t.Fatalf("deleted = %+v", deleted)
			}
			if _, err := idx.GetReport(ctx, "old"); !errors.Is(err, ErrNotFound) {
				t.Errorf("old report still present: %v", err)
			}
			if months, _ := idx.ListMonths(ctx, "old"); len(months) != 0 {
				t.Errorf("months of deleted report remain: %+v", months)
			}
			if alerts, _ := idx.ListAlerts(ctx, "old"); len(alerts) != 0 {
				t.Errorf("alerts of deleted report remain: %+v", alerts)
			}
			if _, err := idx.GetReport(ctx, "new"); err != nil {
				t.Errorf("new report removed: %v", err)
			}
		})
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}
