package holdingsync

import (
	"context"
	"log/slog"
	"strings"
)

// Default sheet names of the reporting area.
const (
	DefaultDashboardSheet = "Performance Dashboard"
	DefaultReportsSheet   = "Daily Reports"
)

const (
	dashboardMetricsRange = "A3:B7"
	reportsAppendRange    = "A:D"
	notAvailable          = "N/A"
)

// DailyReport is one line of the reports sheet.
type DailyReport struct {
	Date             string `json:"date"`
	NetWorth         string `json:"net_worth"`
	SavingsRate      string `json:"savings_rate"`
	InvestmentReturn string `json:"investment_return"`
}

// Row returns the report as an appendable row.
func (d DailyReport) Row() []any {
	return []any{d.Date, d.NetWorth, d.SavingsRate, d.InvestmentReturn}
}

// ReportSheets names the dashboard and report sheets.
type ReportSheets struct {
	Dashboard string
	Reports   string
}

func (s ReportSheets) withDefaults() ReportSheets {
	if s.Dashboard == "" {
		s.Dashboard = DefaultDashboardSheet
	}
	if s.Reports == "" {
		s.Reports = DefaultReportsSheet
	}
	return s
}

// GenerateDailyReport reads the dashboard metrics (label in column A, value
// in column B) and appends today's line to the reports sheet. Missing
// metrics are reported as N/A.
func GenerateDailyReport(ctx context.Context, gw *Gateway, sheets ReportSheets, today string, logger *slog.Logger) (DailyReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sheets = sheets.withDefaults()
	logger.Info("generating daily report", "date", today)

	metrics, err := gw.ReadSheetRange(ctx, sheets.Dashboard, dashboardMetricsRange)
	if err != nil {
		return DailyReport{}, err
	}
	report := DailyReport{
		Date:             today,
		NetWorth:         metricOrNA(metrics, 0),
		SavingsRate:      metricOrNA(metrics, 1),
		InvestmentReturn: metricOrNA(metrics, 2),
	}
	if err := gw.AppendRows(ctx, sheets.Reports, reportsAppendRange, [][]any{report.Row()}); err != nil {
		return report, err
	}
	logger.Info("daily report appended", "sheet", sheets.Reports, "net_worth", report.NetWorth)
	return report, nil
}

func metricOrNA(metrics [][]string, row int) string {
	if v := strings.TrimSpace(CellAt(metrics, row, 1)); v != "" {
		return v
	}
	return notAvailable
}
