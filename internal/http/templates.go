package http

import (
	"html/template"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"bankreport/internal/core"
	"bankreport/internal/services"
	"bankreport/internal/storage"
)

type indexPage struct {
	Title       string
	Error       string
	Recent      []storage.Report
	MaxUploadMB int64
}

type reportPage struct {
	Title      string
	View       *services.ReportView
	Credit     []core.Category
	Debit      []core.Category
	Mismatches []string
}

type chartRef struct {
	Title string
	URL   string
}

type chartsPage struct {
	Title    string
	ReportID string
	Source   string
	Month    core.MonthReport
	Charts   []chartRef
}

type errorPage struct {
	Title   string
	Status  int
	Message string
}

func chartURL(reportID, chartID string) string {
	return "/charts/" + url.PathEscape(reportID) + "/" + url.PathEscape(chartID+".png")
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"amount": func(a core.Amount) string {
			if a.IsMissing() {
				return "-"
			}
			return a.Fixed()
		},
		"cat": func(a core.CategoryAmounts, c core.Category) string {
			return a.Get(c).StringFixed(2)
		},
		"status": func(ok bool) string {
			if ok {
				return "Matched"
			}
			return "Mismatch"
		},
		"when": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
		"monthURL": func(reportID, month string) string {
			return "/report/" + url.PathEscape(reportID) + "/charts/" + url.PathEscape(month)
		},
		"downloadURL": func(name string) string { return "/download/" + url.PathEscape(name) },
	}
}
