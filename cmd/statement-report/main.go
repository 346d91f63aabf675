// Command statement-report runs one statement through the pipeline without
// the web server and prints the monthly summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"bankreport/internal/chart"
	"bankreport/internal/cli"
	applog "bankreport/internal/log"
	"bankreport/internal/services"
	"bankreport/internal/storage"
)

func main() {
	in := flag.String("in", "", "statement workbook (.xlsx or .xls)")
	out := flag.String("out", "report", "output directory for uploads, exports and charts")
	noCharts := flag.Bool("no-charts", false, "skip chart rendering")
	flag.Parse()

	logger := cli.SetupLogger(nil, applog.ComponentApp)
	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: statement-report -in statement.xlsx [-out dir]")
		os.Exit(2)
	}
	if err := run(context.Background(), os.Stdout, *in, *out, !*noCharts, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, in, out string, charts bool, logger *applog.Logger) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	paths := services.Paths{
		Uploads:   filepath.Join(out, "uploads"),
		Downloads: filepath.Join(out, "downloads"),
		Charts:    filepath.Join(out, "charts"),
	}
	var renderer services.ChartRenderer
	if charts {
		renderer = chart.FileRenderer{}
	}
	svc := services.NewStatementService(paths, storage.NewMemoryIndex(), nil, renderer, logger)

	res, err := svc.Process(ctx, services.Upload{Filename: filepath.Base(in), Body: f})
	if err != nil {
		return err
	}
	return printSummary(w, res, paths)
}

func printSummary(w io.Writer, res *services.Result, paths services.Paths) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tCredit\tCredit Match\tDebit\tDebit Match\tLast Balance\t")
	for _, m := range res.Report.Months {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			m.Month,
			m.TotalCredit.StringFixed(2), match(m.CreditReconciled),
			m.TotalDebit.StringFixed(2), match(m.DebitReconciled),
			m.LastBalance.Fixed())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d rows, %d months\n", len(res.Transactions), len(res.Report.Months))
	if mm := res.Mismatches(); len(mm) > 0 {
		fmt.Fprintf(w, "mismatches: %v\n", mm)
	}
	fmt.Fprintln(w, "transactions:", filepath.Join(paths.Downloads, res.TransactionsFile))
	fmt.Fprintln(w, "monthly:     ", filepath.Join(paths.Downloads, res.MonthlyFile))
	for _, c := range res.ChartFiles {
		fmt.Fprintln(w, "chart:       ", c)
	}
	return nil
}

func match(ok bool) string {
	if ok {
		return "yes"
	}
	return "NO"
}
