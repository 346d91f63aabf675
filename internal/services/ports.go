package services

import (
	"context"
	"time"

	"bankreport/internal/amqp"
	"bankreport/internal/core"
	"bankreport/internal/storage"
)

// Paths are the folders a statement run writes into.
type Paths struct {
	Uploads   string
	Downloads string
	Charts    string
}

// ReportIndex stores and retrieves processed report metadata.
type ReportIndex interface {
	SaveReport(ctx context.Context, rep storage.Report) error
	GetReport(ctx context.Context, id string) (storage.Report, error)
	ListReports(ctx context.Context, limit int) ([]storage.Report, error)
	ListMonths(ctx context.Context, reportID string) ([]storage.Month, error)
	RecordAlert(ctx context.Context, a storage.Alert) error
	ListAlerts(ctx context.Context, reportID string) ([]storage.Alert, error)
	DeleteReportsBefore(ctx context.Context, t time.Time) ([]storage.Report, error)
}

// Publisher announces processed reports.
type Publisher interface {
	PublishReportGenerated(ctx context.Context, msg *amqp.ReportGeneratedMessage) error
}

// ChartRenderer writes chart images for a run into dir.
type ChartRenderer interface {
	RenderAll(dir string, specs []core.ChartSpec) ([]string, error)
}

var (
	_ ReportIndex = (*storage.SQLiteRepository)(nil)
	_ ReportIndex = (*storage.MemoryIndex)(nil)
	_ Publisher   = (*amqp.Client)(nil)
)
