package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Level: slog.LevelInfo, Output: &buf, Component: ComponentApp})
	l.WithComponent(ComponentExport).Info("written", FieldReportID, "r1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if rec[FieldComponent] != ComponentExport {
		t.Errorf("component = %v, want %s", rec[FieldComponent], ComponentExport)
	}
	if rec[FieldReportID] != "r1" {
		t.Errorf("report_id = %v", rec[FieldReportID])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf, Component: "t"})
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf, Component: "t"})

	var gotID string
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req_42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = RequestID(r.Context())
			FromContext(r.Context()).Info("inside")
		})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if gotID != "req_42" {
		t.Errorf("RequestID = %q", gotID)
	}
	if rec.Header().Get("X-Request-ID") != "req_42" {
		t.Errorf("X-Request-ID = %q", rec.Header().Get("X-Request-ID"))
	}
	if !strings.Contains(buf.String(), "request_id=req_42") {
		t.Errorf("request id missing from log: %s", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Errorf("FromContext without logger = %+v", l)
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf, Component: "t"}))

	sl.LogReportGenerated(context.Background(), "r1", "march.xlsx", 12, 2, []string{"2024-03 debit"})
	sl.LogError(context.Background(), "index failed", errors.New("disk full"), ComponentStorage, OpIndex, nil)

	out := buf.String()
	for _, want := range []string{"level=WARN", "report_id=r1", "mismatches=1", "level=ERROR", "component=storage", `error="disk full"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
