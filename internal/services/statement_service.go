package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bankreport/internal/amqp"
	"bankreport/internal/core"
	"bankreport/internal/export"
	applog "bankreport/internal/log"
	"bankreport/internal/storage"
	"bankreport/internal/xlsx"
)

// Upload is one statement file handed to Process.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Result describes a completed run.
type Result struct {
	ReportID         string
	SourceName       string
	Report           core.Report
	Transactions     []core.Transaction
	UploadPath       string
	TransactionsFile string // base name inside Paths.Downloads
	MonthlyFile      string // base name inside Paths.Downloads
	ChartDir         string
	ChartFiles       []string
	CreatedAt        time.Time
}

// Mismatches lists "<month> <side>" for every unreconciled side.
func (r *Result) Mismatches() []string {
	return r.Report.Mismatches()
}

// ProcessError is returned for any failed run. Its message is the single
// human-readable error shown to the user.
type ProcessError struct {
	Err error
}

func (e *ProcessError) Error() string {
	return "error processing file: " + e.Err.Error()
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// StatementService runs the statement pipeline for uploads: decode, classify,
// aggregate, reconcile, export, chart, index and announce.
type StatementService struct {
	paths     Paths
	index     ReportIndex
	publisher Publisher
	charts    ChartRenderer
	logger    *applog.Logger
	events    *applog.StructuredLogger

	newID func() string
	now   func() time.Time
}

// NewStatementService wires a service. index and publisher may be nil.
func NewStatementService(paths Paths, index ReportIndex, publisher Publisher, charts ChartRenderer, logger *applog.Logger) *StatementService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &StatementService{
		paths:     paths,
		index:     index,
		publisher: publisher,
		charts:    charts,
		logger:    logger.WithComponent(applog.ComponentPipeline),
		events:    applog.NewStructuredLogger(logger),
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Process runs one upload end to end. Exports and charts are written
// atomically; if any of them fails every file of the run is removed.
// Indexing and publishing happen afterwards and only log on failure.
func (s *StatementService) Process(ctx context.Context, up Upload) (*Result, error) {
	if !xlsx.Allowed(up.Filename) {
		return nil, &ProcessError{Err: fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, filepath.Ext(up.Filename))}
	}

	id := s.newID()
	res := &Result{
		ReportID:   id,
		SourceName: export.SafeName(up.Filename),
		CreatedAt:  s.now(),
	}
	logger := s.logger.With(applog.FieldReportID, id, applog.FieldFilename, res.SourceName)

	if err := s.run(ctx, up, res, logger); err != nil {
		s.cleanup(res, logger)
		logger.WarnContext(ctx, "Statement processing failed", applog.FieldError, err)
		return nil, &ProcessError{Err: err}
	}

	s.indexReport(ctx, res, logger)
	s.publish(ctx, res, logger)
	s.events.LogReportGenerated(ctx, id, res.SourceName, len(res.Transactions), len(res.Report.Months), res.Mismatches())
	return res, nil
}

func (s *StatementService) run(ctx context.Context, up Upload, res *Result, logger *applog.Logger) error {
	short := res.ReportID
	if len(short) > 8 {
		short = short[:8]
	}
	res.UploadPath = filepath.Join(s.paths.Uploads, short+"_"+res.SourceName)
	if err := export.WriteFileAtomic(res.UploadPath, func(f *os.File) error {
		_, err := io.Copy(f, up.Body)
		return err
	}); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(res.UploadPath)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	rows, err := xlsx.Decode(res.SourceName, f)
	f.Close()
	if err != nil {
		return err
	}
	logger.DebugContext(ctx, "Statement decoded", applog.FieldRows, len(rows))

	txs, aggs := core.Summarize(rows)
	res.Transactions = txs
	res.Report = core.Assemble(aggs)

	names := export.FileNames(up.Filename, res.ReportID)
	if err := export.WriteTransactionsFile(filepath.Join(s.paths.Downloads, names.Transactions), txs); err != nil {
		return fmt.Errorf("write transactions export: %w", err)
	}
	res.TransactionsFile = names.Transactions
	if err := export.WriteMonthlyFile(filepath.Join(s.paths.Downloads, names.Monthly), aggs); err != nil {
		return fmt.Errorf("write monthly export: %w", err)
	}
	res.MonthlyFile = names.Monthly

	if s.charts != nil {
		res.ChartDir = filepath.Join(s.paths.Charts, res.ReportID)
		files, err := s.charts.RenderAll(res.ChartDir, res.Report.Charts())
		res.ChartFiles = files
		if err != nil {
			return fmt.Errorf("render charts: %w", err)
		}
	}
	return nil
}

// cleanup removes whatever a failed run managed to write.
func (s *StatementService) cleanup(res *Result, logger *applog.Logger) {
	var paths []string
	if res.UploadPath != "" {
		paths = append(paths, res.UploadPath)
	}
	if res.TransactionsFile != "" {
		paths = append(paths, filepath.Join(s.paths.Downloads, res.TransactionsFile))
	}
	if res.MonthlyFile != "" {
		paths = append(paths, filepath.Join(s.paths.Downloads, res.MonthlyFile))
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to remove file of failed run", "file", p, applog.FieldError, err)
		}
	}
	if res.ChartDir != "" {
		if err := os.RemoveAll(res.ChartDir); err != nil {
			logger.Warn("Failed to remove chart directory of failed run", "dir", res.ChartDir, applog.FieldError, err)
		}
	}
}

func (s *StatementService) indexReport(ctx context.Context, res *Result, logger *applog.Logger) {
	if s.index == nil {
		return
	}
	if err := s.index.SaveReport(ctx, IndexRecord(res)); err != nil {
		logger.ErrorContext(ctx, "Failed to index report", applog.FieldOperation, applog.OpIndex, applog.FieldError, err)
	}
}

func (s *StatementService) publish(ctx context.Context, res *Result, logger *applog.Logger) {
	if s.publisher == nil {
		logger.DebugContext(ctx, "No publisher configured, skipping report message")
		return
	}
	msg := amqp.NewReportGeneratedMessage(res.ReportID, res.SourceName, res.MonthlyFile, res.Report.MonthKeys(), res.Mismatches())
	if err := s.publisher.PublishReportGenerated(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to publish report message", applog.FieldOperation, applog.OpPublish, applog.FieldError, err)
	}
}

// IndexRecord converts a run result into its index entry.
func IndexRecord(res *Result) storage.Report {
	rep := storage.Report{
		ID:               res.ReportID,
		SourceName:       res.SourceName,
		TransactionsFile: res.TransactionsFile,
		MonthlyFile:      res.MonthlyFile,
		RowCount:         len(res.Transactions),
		CreatedAt:        res.CreatedAt,
	}
	for _, m := range res.Report.Months {
		rep.Months = append(rep.Months, storage.Month{
			Month:            m.Month,
			TotalCredit:      m.TotalCredit,
			TotalDebit:       m.TotalDebit,
			CreditReconciled: m.CreditReconciled,
			DebitReconciled:  m.DebitReconciled,
			Charts:           m.ChartIDs(),
		})
	}
	return rep
}
