// loanreport derives per-loan metrics from a "Loan Data" workbook and writes
// them as CSV or JSON, without starting the dashboard server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"loanlens/internal/config"
	"loanlens/internal/exporter"
	"loanlens/internal/infrastructure"
	"loanlens/internal/loandata"
)

func main() {
	in := flag.String("in", "", "path to the xlsx workbook with a \"Loan Data\" sheet")
	out := flag.String("out", "", "output file path (defaults to stdout)")
	format := flag.String("format", "csv", "output format: csv | json")
	flag.Parse()

	logger, err := infrastructure.InitializeLogger(config.LoggingConfig{
		Level:  "info",
		Output: "console",
	})
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: loanreport -in loans.xlsx [-out report.csv] [-format csv|json]")
		os.Exit(2)
	}

	switch strings.ToLower(*format) {
	case "csv", "json":
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q: want csv or json\n", *format)
		os.Exit(2)
	}

	loader := loandata.NewLoader(logger)
	table, err := loader.LoadFile(*in)
	if err != nil {
		logger.Error("failed to load workbook",
			slog.String("path", *in),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	report := exporter.BuildReport(table)
	logger.Info("report built",
		slog.Int("loans", len(report.Rows)),
		slog.Int("skipped", len(report.Skipped)))

	if *out == "" {
		if err := writeStdout(report, *format); err != nil {
			logger.Error("failed to write report", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	path := *out
	if strings.ToLower(*format) == "json" && !strings.HasSuffix(path, ".json") {
		path += ".json"
	}
	if err := report.WriteFile(path); err != nil {
		logger.Error("failed to write report",
			slog.String("path", path),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("report written", slog.String("path", path))
}

func writeStdout(report *exporter.Report, format string) error {
	if strings.ToLower(format) == "json" {
		return report.WriteJSON(os.Stdout)
	}
	return report.WriteCSV(os.Stdout)
}
