package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bankreport/internal/cache"
	"bankreport/internal/chart"
	"bankreport/internal/core"
	"bankreport/internal/storage"
)

func processedReport(t *testing.T) (Paths, *storage.MemoryIndex, *Result) {
	t.Helper()
	paths := testPaths(t)
	index := storage.NewMemoryIndex()
	svc := newTestService(paths, index, nil, chart.FileRenderer{})
	res, err := svc.Process(context.Background(), Upload{Filename: "jan.xlsx", Body: sampleStatement(t)})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return paths, index, res
}

func TestReportServiceReport(t *testing.T) {
	paths, index, res := processedReport(t)
	reports := NewReportService(paths, index, nil)
	ctx := context.Background()

	view, err := reports.Report(ctx, res.ReportID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if view.SourceName != "jan.xlsx" || view.RowCount != 3 {
		t.Errorf("view = %+v", view)
	}
	if len(view.Report.Months) != 2 {
		t.Fatalf("months = %d", len(view.Report.Months))
	}
	jan := view.Report.Months[0]
	if !jan.TotalCredit.Equal(res.Report.Months[0].TotalCredit) || !jan.CreditReconciled || !jan.DebitReconciled {
		t.Errorf("january = %+v", jan.MonthlyAggregate)
	}
	if !jan.HasChart("2024-01_credit_pie") {
		t.Errorf("january charts = %v", jan.ChartIDs())
	}

	// A second read is served from cache even if the export disappears.
	if err := os.Remove(filepath.Join(paths.Downloads, res.MonthlyFile)); err != nil {
		t.Fatal(err)
	}
	if _, err := reports.Report(ctx, res.ReportID); err != nil {
		t.Errorf("cached Report: %v", err)
	}
	reports.Forget(res.ReportID)
	if _, err := reports.Report(ctx, res.ReportID); err == nil {
		t.Error("expected error after cache drop and missing export")
	}

	if _, err := reports.Report(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown id err = %v", err)
	}
}

func TestReportServiceMonth(t *testing.T) {
	paths, index, res := processedReport(t)
	reports := NewReportService(paths, index, cache.NewLRUCache[[]core.MonthlyAggregate](4, time.Minute))

	_, m, err := reports.Month(context.Background(), res.ReportID, "2024-02")
	if err != nil {
		t.Fatalf("Month: %v", err)
	}
	if m.DebitReconciled {
		t.Error("february debit should not reconcile")
	}
	if ids := m.ChartIDs(); len(ids) != 1 || ids[0] != "2024-02_bar" {
		t.Errorf("february charts = %v", ids)
	}

	if _, _, err := reports.Month(context.Background(), res.ReportID, "2023-12"); !errors.Is(err, ErrMonthNotFound) {
		t.Errorf("err = %v, want ErrMonthNotFound", err)
	}
}

func TestReportServicePaths(t *testing.T) {
	paths, index, res := processedReport(t)
	reports := NewReportService(paths, index, nil)

	got, err := reports.DownloadPath(res.TransactionsFile)
	if err != nil {
		t.Fatalf("DownloadPath: %v", err)
	}
	if got != filepath.Join(paths.Downloads, res.TransactionsFile) {
		t.Errorf("path = %s", got)
	}

	for _, name := range []string{"", "../secret", "..", ".hidden", "a/b.csv", `a\b.csv`, "with space.csv"} {
		if _, err := reports.DownloadPath(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("DownloadPath(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
	if _, err := reports.DownloadPath("missing.csv"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("missing err = %v", err)
	}

	if _, err := reports.ChartPath(res.ReportID, "2024-01_bar.png"); err != nil {
		t.Errorf("ChartPath: %v", err)
	}
	if _, err := reports.ChartPath(res.ReportID, "2024-02_debit_pie.png"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("absent pie err = %v", err)
	}
	if _, err := reports.ChartPath("../x", "2024-01_bar.png"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("bad id err = %v", err)
	}
	if _, err := reports.ChartPath(res.ReportID, "2024-01_bar.svg"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("bad ext err = %v", err)
	}
}

func TestReportServiceRecent(t *testing.T) {
	paths, index, res := processedReport(t)
	reports := NewReportService(paths, index, nil)
	list, err := reports.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(list) != 1 || list[0].ID != res.ReportID {
		t.Errorf("recent = %+v", list)
	}
}
