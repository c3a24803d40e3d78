// Package render turns run results into markdown and renders markdown for
// the terminal.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	md "github.com/nao1215/markdown"

	"holdingsync/internal/a1"
	"holdingsync/internal/config"
	"holdingsync/pkg/holdingsync"
)

// Money formats an amount in currency, e.g. "$1,234.50" for CAD. Unknown
// currency codes fall back to "1234.50 XYZ".
func Money(a holdingsync.Amount, currency string) string {
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return a.StringFixed(2) + " " + currency
	}
	minor := a.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.IntPart())
}

// RefreshMarkdown summarizes a refresh run.
func RefreshMarkdown(rep *holdingsync.RunReport, currency string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Holdings Refresh")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold("Run"), md.Bold(rep.RunID)},
		Rows: [][]string{
			{"State", rep.State.String()},
			{"Rows written", strconv.Itoa(rep.RowsWritten)},
			{"Records skipped", strconv.Itoa(rep.Skipped)},
			{"Cell failures", strconv.Itoa(rep.CellFailures)},
			{"Failed files", strconv.Itoa(rep.FailedFiles)},
			{"Cleared through row", strconv.Itoa(rep.ClearedThrough)},
			{"Book value", Money(rep.BookValue, currency)},
			{"Duration", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond).String()},
		},
	})
	if rep.HeadersErr != nil {
		doc.PlainText(md.Bold("Headers not set: ") + rep.HeadersErr.Error())
	}

	if len(rep.Files) > 0 {
		doc.H2("Files")
		table := md.TableSet{
			Alignment: []md.TableAlignment{
				md.AlignLeft,
				md.AlignRight,
				md.AlignRight,
				md.AlignRight,
				md.AlignLeft,
				md.AlignRight,
				md.AlignLeft,
			},
			Header: []string{"File", "Records", "Skipped", "Rows", "Range", "Book Value", "Status"},
		}
		for _, f := range rep.Files {
			span := ""
			if f.Rows > 0 {
				span = fmt.Sprintf("%d-%d", f.FirstRow, f.LastRow)
			}
			table.Rows = append(table.Rows, []string{
				f.Name,
				strconv.Itoa(f.Records),
				strconv.Itoa(f.Skipped),
				strconv.Itoa(f.Rows),
				span,
				Money(f.BookValue, currency),
				fileStatus(f),
			})
		}
		doc.Table(table)
	}

	var failures []string
	for _, f := range rep.Files {
		for _, cf := range f.CellFailures {
			failures = append(failures, fmt.Sprintf("%s %s", f.Name, cf.Error()))
		}
	}
	if len(failures) > 0 {
		doc.H2("Cell Failures")
		doc.BulletList(failures...)
	}
	return doc.String()
}

func fileStatus(f holdingsync.FileReport) string {
	switch {
	case f.Failed():
		return "failed: " + f.Err.Error()
	case len(f.CellFailures) > 0:
		return fmt.Sprintf("%d cell failures", len(f.CellFailures))
	default:
		return "ok"
	}
}

// RowsMarkdown renders a block of sheet values with column letters as
// headers and row numbers starting at firstRow.
func RowsMarkdown(title string, rows [][]string, firstRow int) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1(title)

	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		doc.PlainText("No data.")
		return doc.String()
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignRight},
		Header:    []string{"#"},
	}
	for c := 1; c <= width; c++ {
		table.Alignment = append(table.Alignment, md.AlignLeft)
		table.Header = append(table.Header, a1.Column(c))
	}
	for i := range rows {
		line := []string{strconv.Itoa(firstRow + i)}
		for c := 0; c < width; c++ {
			line = append(line, holdingsync.CellAt(rows, i, c))
		}
		table.Rows = append(table.Rows, line)
	}
	doc.Table(table)
	return doc.String()
}

// DailyReportMarkdown renders an appended daily report line.
func DailyReportMarkdown(r holdingsync.DailyReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Daily Report")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold("Date"), md.Bold(r.Date)},
		Rows: [][]string{
			{"Net Worth", r.NetWorth},
			{"Savings Rate", r.SavingsRate},
			{"Investment Return", r.InvestmentReturn},
		},
	})
	return doc.String()
}

// RepairMarkdown renders the readback of a formula repair.
func RepairMarkdown(res holdingsync.RepairResult) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Formula Repair")
	if len(res.Rows) == 0 {
		doc.PlainText("No holdings rows found.")
		return doc.String()
	}
	doc.PlainText(fmt.Sprintf("Rewrote formulas on %d rows (last row %d).", len(res.Rows), res.LastRow))
	if len(res.Failures) > 0 {
		doc.H2("Cell Failures")
		items := make([]string, len(res.Failures))
		for i, f := range res.Failures {
			items[i] = f.Error()
		}
		doc.BulletList(items...)
	}
	if len(res.Readback) > 0 {
		doc.H2("Readback")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignRight},
			Header:    []string{"#"},
		}
		for c := holdingsync.ColCurrentPrice; c <= holdingsync.ColLastUpdated; c++ {
			table.Alignment = append(table.Alignment, md.AlignRight)
			table.Header = append(table.Header, c.Letter())
		}
		for i := range res.Readback {
			line := []string{strconv.Itoa(i + holdingsync.FirstDataRow)}
			for c := 0; c < len(table.Header)-1; c++ {
				line = append(line, holdingsync.CellAt(res.Readback, i, c))
			}
			table.Rows = append(table.Rows, line)
		}
		doc.Table(table)
	}
	return doc.String()
}

// SettingsMarkdown renders resolved settings. Inline credentials are never
// printed.
func SettingsMarkdown(path string, s config.Settings) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Settings")
	if path == "" {
		path = "(none)"
	}
	credentials := "(none)"
	switch {
	case len(s.CredentialsJSON) > 0:
		credentials = "inline JSON from " + config.EnvCredentialsJSON
	case s.CredentialsFile != "":
		credentials = s.CredentialsFile
	}
	journal := s.JournalPath
	if journal == "" {
		journal = "disabled"
	}
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft},
		Header:    []string{"Setting", "Value"},
		Rows: [][]string{
			{"Config file", path},
			{"Spreadsheet", s.SpreadsheetID},
			{"Credentials", credentials},
			{"CSV directory", s.CSVDir},
			{"Holdings sheet", s.HoldingsSheet},
			{"Dashboard sheet", s.DashboardSheet},
			{"Reports sheet", s.ReportsSheet},
			{"Write delay", s.WriteDelay.String()},
			{"Clear rows", strconv.Itoa(s.ClearRows)},
			{"Currency", s.Currency},
			{"Time zone", s.TimeZone},
			{"Journal", journal},
		},
	})
	return doc.String()
}

// JournalMarkdown renders journal entries, newest first.
func JournalMarkdown(entries []holdingsync.JournalEntry) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Run Journal")
	if len(entries) == 0 {
		doc.PlainText("No journal entries.")
		return doc.String()
	}
	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignRight,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
		},
		Header: []string{"ID", "Time", "Run", "Operation", "File", "Cell", "Details"},
	}
	for _, e := range entries {
		cell := ""
		if e.Row != nil && e.Column != nil {
			cell = *e.Column + strconv.FormatInt(*e.Row, 10)
		}
		run := e.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(e.ID, 10),
			deref(e.CreatedAt),
			run,
			e.Operation,
			deref(e.File),
			cell,
			deref(e.Details),
		})
	}
	doc.Table(table)
	return doc.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ReplaceAll(*s, "|", `\|`)
}

// Terminal renders markdown for display. An empty style picks one from the
// terminal background.
func Terminal(markdown, style string) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(120)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
