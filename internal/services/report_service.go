package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"bankreport/internal/cache"
	"bankreport/internal/core"
	"bankreport/internal/export"
	"bankreport/internal/storage"
)

var (
	ErrMonthNotFound = errors.New("month not found")
	ErrFileNotFound  = errors.New("file not found")
	ErrInvalidName   = errors.New("invalid file name")
)

// ReportView is a stored report with its figures re-read from the monthly export.
type ReportView struct {
	ID               string
	SourceName       string
	TransactionsFile string
	MonthlyFile      string
	RowCount         int
	CreatedAt        time.Time
	Report           core.Report
	Alerts           []storage.Alert
}

// ReportService answers read requests about processed reports.
type ReportService struct {
	paths   Paths
	index   ReportIndex
	monthly *cache.LRUCache[[]core.MonthlyAggregate]
}

// NewReportService creates the service; monthly tables are cached per report.
func NewReportService(paths Paths, index ReportIndex, monthly *cache.LRUCache[[]core.MonthlyAggregate]) *ReportService {
	if monthly == nil {
		monthly = cache.NewLRUCache[[]core.MonthlyAggregate](64, 10*time.Minute)
	}
	return &ReportService{paths: paths, index: index, monthly: monthly}
}

// Report returns the report with ID id, or storage.ErrNotFound.
func (s *ReportService) Report(ctx context.Context, id string) (*ReportView, error) {
	rep, err := s.index.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	aggs, err := s.monthly.GetOrLoad(ctx, rep.ID, func(context.Context) ([]core.MonthlyAggregate, error) {
		return export.ReadMonthlyFile(filepath.Join(s.paths.Downloads, rep.MonthlyFile))
	})
	if err != nil {
		return nil, fmt.Errorf("load monthly export of %s: %w", rep.ID, err)
	}
	alerts, err := s.index.ListAlerts(ctx, rep.ID)
	if err != nil {
		return nil, err
	}
	return &ReportView{
		ID:               rep.ID,
		SourceName:       rep.SourceName,
		TransactionsFile: rep.TransactionsFile,
		MonthlyFile:      rep.MonthlyFile,
		RowCount:         rep.RowCount,
		CreatedAt:        rep.CreatedAt,
		Report:           core.Assemble(aggs),
		Alerts:           alerts,
	}, nil
}

// Month returns one month of a report with its charts.
func (s *ReportService) Month(ctx context.Context, id, month string) (*ReportView, core.MonthReport, error) {
	view, err := s.Report(ctx, id)
	if err != nil {
		return nil, core.MonthReport{}, err
	}
	m, ok := view.Report.Month(month)
	if !ok {
		return view, core.MonthReport{}, ErrMonthNotFound
	}
	return view, m, nil
}

// Recent lists the latest n reports, newest first.
func (s *ReportService) Recent(ctx context.Context, n int) ([]storage.Report, error) {
	return s.index.ListReports(ctx, n)
}

// Forget drops the cached monthly table of a report.
func (s *ReportService) Forget(id string) {
	s.monthly.Delete(id)
}

// DownloadPath resolves an export name inside the download folder. Names that
// are not plain file names are rejected.
func (s *ReportService) DownloadPath(name string) (string, error) {
	if !plainName(name) || name != export.SafeName(name) {
		return "", ErrInvalidName
	}
	return existing(filepath.Join(s.paths.Downloads, name))
}

// ChartPath resolves a chart image of a report.
func (s *ReportService) ChartPath(reportID, file string) (string, error) {
	if _, err := uuid.Parse(reportID); err != nil {
		return "", ErrInvalidName
	}
	if !plainName(file) || filepath.Ext(file) != ".png" {
		return "", ErrInvalidName
	}
	return existing(filepath.Join(s.paths.Charts, reportID, file))
}

func plainName(name string) bool {
	return name != "" &&
		name == filepath.Base(name) &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`)
}

func existing(path string) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrFileNotFound
	}
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", ErrFileNotFound
	}
	return path, nil
}
