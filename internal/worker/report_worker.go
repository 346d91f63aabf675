package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bankreport/internal/amqp"
	"bankreport/internal/core"
	"bankreport/internal/export"
	"bankreport/internal/sheets"
	"bankreport/internal/storage"
)

// AlertRecorder persists reconciliation alerts.
type AlertRecorder interface {
	RecordAlert(ctx context.Context, a storage.Alert) error
}

// ReportWorker reacts to report.generated messages: it records an alert for
// every unreconciled side and appends the monthly summary to a sheet.
type ReportWorker struct {
	downloads string
	alerts    AlertRecorder
	summary   sheets.SummaryWriter
	now       func() time.Time
}

// NewReportWorker creates a worker reading exports from downloads. summary may be nil.
func NewReportWorker(downloads string, alerts AlertRecorder, summary sheets.SummaryWriter) *ReportWorker {
	return &ReportWorker{
		downloads: downloads,
		alerts:    alerts,
		summary:   summary,
		now:       time.Now,
	}
}

// HandleReportGenerated processes one message. A missing export is logged and
// acknowledged since a retry cannot bring it back.
func (w *ReportWorker) HandleReportGenerated(ctx context.Context, msg *amqp.ReportGeneratedMessage) error {
	slog.InfoContext(ctx, "Processing report message",
		"report_id", msg.ReportID,
		"months", len(msg.Months),
		"mismatches", len(msg.Mismatches))

	path := filepath.Join(w.downloads, filepath.Base(msg.MonthlyFile))
	aggs, err := export.ReadMonthlyFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.WarnContext(ctx, "Monthly export no longer exists, dropping message",
			"report_id", msg.ReportID,
			"file", msg.MonthlyFile)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read monthly export: %w", err)
	}

	recorded, err := w.recordAlerts(ctx, msg.ReportID, aggs)
	if err != nil {
		return err
	}

	if w.summary != nil {
		rows := make([]sheets.SummaryRow, 0, len(aggs))
		for _, agg := range aggs {
			rows = append(rows, sheets.SummaryRowFromAggregate(msg.ReportID, msg.SourceName, agg))
		}
		ref, err := w.summary.AppendSummary(ctx, rows)
		if err != nil {
			return fmt.Errorf("append summary: %w", err)
		}
		slog.InfoContext(ctx, "Summary appended", "report_id", msg.ReportID, "range", ref)
	}

	slog.InfoContext(ctx, "Report message processed",
		"report_id", msg.ReportID,
		"alerts", recorded)
	return nil
}

func (w *ReportWorker) recordAlerts(ctx context.Context, reportID string, aggs []core.MonthlyAggregate) (int, error) {
	if w.alerts == nil {
		return 0, nil
	}
	n := 0
	for _, agg := range aggs {
		for _, a := range Alerts(reportID, agg, w.now()) {
			if err := w.alerts.RecordAlert(ctx, a); err != nil {
				return n, fmt.Errorf("record alert %s %s: %w", a.Month, a.Side, err)
			}
			n++
		}
	}
	return n, nil
}

// Alerts returns one alert per side of agg that does not reconcile. Expected
// is the category sum, Actual the reported total.
func Alerts(reportID string, agg core.MonthlyAggregate, at time.Time) []storage.Alert {
	var out []storage.Alert
	if !agg.CreditReconciled {
		out = append(out, storage.Alert{
			ReportID:  reportID,
			Month:     agg.Month,
			Side:      core.CreditSide.String(),
			Expected:  agg.CreditCategorySum(),
			Actual:    core.Round2(agg.TotalCredit),
			CreatedAt: at,
		})
	}
	if !agg.DebitReconciled {
		out = append(out, storage.Alert{
			ReportID:  reportID,
			Month:     agg.Month,
			Side:      core.DebitSide.String(),
			Expected:  agg.DebitCategorySum(),
			Actual:    core.Round2(agg.TotalDebit),
			CreatedAt: at,
		})
	}
	return out
}
