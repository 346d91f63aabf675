package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"bankreport/internal/core"
	applog "bankreport/internal/log"
	"bankreport/internal/services"
	"bankreport/internal/storage"
	"bankreport/internal/xlsx"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and the report index.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok", "index": "ok"}
	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if s.ready != nil {
		if err := s.ready.Ping(ctx); err != nil {
			checks["index"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, "")
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, code int, message string) {
	recent, err := s.reports.Recent(r.Context(), s.recent)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list recent reports", applog.FieldError, err)
	}
	s.render(w, r, code, "index.html", indexPage{
		Title:       "Bank statement report",
		Error:       message,
		Recent:      recent,
		MaxUploadMB: s.maxUpload >> 20,
	})
}

// handleUpload accepts one statement and redirects to its report.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentPipeline)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.renderIndex(w, r, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		logger.WarnContext(r.Context(), "Invalid upload form", applog.FieldError, err)
		s.renderIndex(w, r, http.StatusBadRequest, "No file part")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		s.renderIndex(w, r, http.StatusBadRequest, "No selected file")
		return
	}
	defer file.Close()

	if !xlsx.Allowed(header.Filename) {
		s.renderError(w, r, http.StatusBadRequest, "Invalid file format")
		return
	}

	res, err := s.statements.Process(r.Context(), services.Upload{Filename: header.Filename, Body: file})
	if err != nil {
		code := http.StatusInternalServerError
		if core.IsInputFormat(err) {
			code = http.StatusUnprocessableEntity
		}
		s.renderError(w, r, code, processMessage(err))
		return
	}
	logger.InfoContext(r.Context(), "Statement uploaded",
		applog.FieldReportID, res.ReportID,
		applog.FieldFilename, res.SourceName)
	http.Redirect(w, r, "/report/"+res.ReportID, http.StatusSeeOther)
}

// processMessage renders a failed run as "Error processing file: <cause>".
func processMessage(err error) string {
	var pe *services.ProcessError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return "Error processing file: " + err.Error()
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	view, err := s.reports.Report(r.Context(), id)
	if err != nil {
		s.reportError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "report.html", reportPage{
		Title:      "Report " + view.SourceName,
		View:       view,
		Credit:     core.CreditCategories(),
		Debit:      core.DebitCategories(),
		Mismatches: view.Report.Mismatches(),
	})
}

func (s *Server) handleMonthCharts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, month, err := s.reports.Month(r.Context(), vars["id"], vars["month"])
	if err != nil {
		s.reportError(w, r, err)
		return
	}
	page := chartsPage{
		Title:    "Charts " + month.Month,
		ReportID: view.ID,
		Source:   view.SourceName,
		Month:    month,
	}
	for _, c := range month.Charts {
		page.Charts = append(page.Charts, chartRef{Title: c.Title, URL: chartURL(view.ID, c.ID)})
	}
	s.render(w, r, http.StatusOK, "charts.html", page)
}

func (s *Server) reportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.renderError(w, r, http.StatusNotFound, "Report not found")
	case errors.Is(err, services.ErrMonthNotFound):
		s.renderError(w, r, http.StatusNotFound, "Month not found in report")
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load report", applog.FieldError, err)
		s.renderError(w, r, http.StatusInternalServerError, "Failed to load report")
	}
}

// handleDownload serves an export verbatim as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	path, err := s.reports.DownloadPath(name)
	if err != nil {
		s.fileError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	s.serveFile(w, r, path)
}

func (s *Server) handleChartImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	path, err := s.reports.ChartPath(vars["id"], vars["file"])
	if err != nil {
		s.fileError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	s.serveFile(w, r, path)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		s.fileError(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.fileError(w, r, err)
		return
	}
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

func (s *Server) fileError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidName):
		s.renderError(w, r, http.StatusBadRequest, "Invalid file name")
	case errors.Is(err, services.ErrFileNotFound), errors.Is(err, os.ErrNotExist):
		s.renderError(w, r, http.StatusNotFound, "File not found")
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to serve file", applog.FieldError, err)
		s.renderError(w, r, http.StatusInternalServerError, "Failed to read file")
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "Page not found")
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, code int, message string) {
	s.render(w, r, code, "error.html", errorPage{
		Title:   http.StatusText(code),
		Status:  code,
		Message: message,
	})
}

// render executes a template; a failed render falls back to plain text.
func (s *Server) render(w http.ResponseWriter, r *http.Request, code int, name string, data any) {
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(),
			"Template execution failed", "template", name, applog.FieldError, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(buf.String()))
}
