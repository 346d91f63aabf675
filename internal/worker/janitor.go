package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"bankreport/internal/services"
	"bankreport/internal/storage"
)

// ReportPruner deletes index entries older than a cutoff and returns them.
type ReportPruner interface {
	DeleteReportsBefore(ctx context.Context, t time.Time) ([]storage.Report, error)
}

// SweepResult counts what one sweep removed.
type SweepResult struct {
	Reports int
	Files   int
}

// Janitor removes reports, exports, charts and uploads past their retention.
type Janitor struct {
	paths  services.Paths
	index  ReportPruner
	maxAge time.Duration
}

func NewJanitor(paths services.Paths, index ReportPruner, maxAge time.Duration) *Janitor {
	return &Janitor{paths: paths, index: index, maxAge: maxAge}
}

// Sweep deletes everything created before now minus the retention age. Files
// left behind by runs that never reached the index are removed by mtime.
func (j *Janitor) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	cutoff := now.Add(-j.maxAge)
	var res SweepResult

	if j.index != nil {
		reports, err := j.index.DeleteReportsBefore(ctx, cutoff)
		if err != nil {
			return res, fmt.Errorf("delete expired reports: %w", err)
		}
		res.Reports = len(reports)
		for _, rep := range reports {
			res.Files += removeFiles(
				filepath.Join(j.paths.Downloads, rep.TransactionsFile),
				filepath.Join(j.paths.Downloads, rep.MonthlyFile),
			)
			dir := filepath.Join(j.paths.Charts, rep.ID)
			if err := os.RemoveAll(dir); err != nil {
				slog.WarnContext(ctx, "Failed to remove chart directory", "dir", dir, "error", err)
			}
		}
	}

	for _, dir := range []string{j.paths.Uploads, j.paths.Downloads} {
		n, err := removeOlder(dir, cutoff)
		res.Files += n
		if err != nil {
			return res, err
		}
	}
	n, err := removeOlderDirs(j.paths.Charts, cutoff)
	res.Files += n
	if err != nil {
		return res, err
	}

	slog.InfoContext(ctx, "Retention sweep finished",
		"cutoff", cutoff.Format(time.RFC3339),
		"reports", res.Reports,
		"files", res.Files)
	return res, nil
}

// Start schedules Sweep with a standard cron expression and stops the
// scheduler when ctx ends. It blocks until then.
func (j *Janitor) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := j.Sweep(ctx, time.Now()); err != nil {
			slog.ErrorContext(ctx, "Retention sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule retention sweep %q: %w", schedule, err)
	}
	c.Start()
	slog.InfoContext(ctx, "Retention janitor started", "schedule", schedule, "max_age", j.maxAge.String())

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func removeFiles(paths ...string) int {
	n := 0
	for _, p := range paths {
		if err := os.Remove(p); err == nil {
			n++
		} else if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to remove file", "file", p, "error", err)
		}
	}
	return n
}

func removeOlder(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		n += removeFiles(filepath.Join(dir, e.Name()))
	}
	return n, nil
}

func removeOlderDirs(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("Failed to remove chart directory", "dir", path, "error", err)
			continue
		}
		n++
	}
	return n, nil
}
