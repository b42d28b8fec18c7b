// Package render turns diagnostics and dashboards into markdown documents
// and converts those to HTML for the web or ANSI text for a terminal.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	md "github.com/nao1215/markdown"

	"ledgerdash/internal/core"
	"ledgerdash/internal/ingest"
	"ledgerdash/internal/report"
)

// maxListedValues caps the distinct values printed per categorical column.
const maxListedValues = 20

// DiagnosticsMarkdown renders the outcome of the validation pipeline.
func DiagnosticsMarkdown(d ingest.Diagnostics) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Data Quality Report")
	if d.Source != "" {
		doc.PlainText("Source: " + md.Code(d.Source))
	}

	doc.H2("Shape")
	doc.Table(md.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Rows read", strconv.Itoa(d.RowsIn)},
			{"Columns", strconv.Itoa(d.Columns)},
			{"Duplicate rows dropped", strconv.Itoa(d.DuplicateRows)},
			{"Negative amounts dropped", strconv.Itoa(d.DroppedNegatives())},
			{"Rows kept", strconv.Itoa(d.RowsOut)},
		},
	})

	doc.H2("Columns")
	missing := make(map[string]int, len(d.Missing))
	for _, m := range d.Missing {
		missing[m.Name] = m.Count
	}
	rows := make([][]string, 0, len(d.ColumnTypes))
	for _, c := range d.ColumnTypes {
		rows = append(rows, []string{c.Name, c.Type, strconv.Itoa(missing[c.Name])})
	}
	doc.Table(md.TableSet{Header: []string{"Column", "Type", "Missing"}, Rows: rows})

	if ids := d.TransactionIDs; ids != nil {
		doc.H2("Transaction IDs")
		doc.BulletList(
			fmt.Sprintf("Unique: %d", ids.Unique),
			fmt.Sprintf("Duplicated: %d", ids.Duplicated),
		)
	}

	if a := d.Amount; a != nil {
		doc.H2("Amounts")
		doc.Table(md.TableSet{
			Header: []string{"Statistic", "Value"},
			Rows: [][]string{
				{"count", strconv.Itoa(a.Count)},
				{"mean", strconv.FormatFloat(a.Mean, 'f', 2, 64)},
				{"std", strconv.FormatFloat(a.Std, 'f', 2, 64)},
				{"min", a.Min.StringFixed(2)},
				{"25%", a.Q1.StringFixed(2)},
				{"50%", a.Median.StringFixed(2)},
				{"75%", a.Q3.StringFixed(2)},
				{"max", a.Max.StringFixed(2)},
				{"negative", strconv.Itoa(a.Negative)},
				{"invalid", strconv.Itoa(a.Invalid)},
			},
		})
	}

	if dc := d.Dates; dc != nil {
		doc.H2("Dates")
		items := []string{fmt.Sprintf("Invalid dates: %d", dc.Invalid)}
		if dc.HasRange {
			items = append([]string{
				"Earliest: " + core.FormatDate(dc.Min),
				"Latest: " + core.FormatDate(dc.Max),
			}, items...)
		}
		doc.BulletList(items...)
	}

	if len(d.Categorical) > 0 {
		doc.H2("Categorical Columns")
		for _, c := range d.Categorical {
			doc.H3(fmt.Sprintf("%s (%d distinct)", c.Column, c.Distinct))
			values := c.Values
			if len(values) > maxListedValues {
				values = append(values[:maxListedValues:maxListedValues], fmt.Sprintf("... %d more", len(c.Values)-maxListedValues))
			}
			doc.PlainText(escape(strings.Join(values, ", ")))
		}
	}

	return doc.String()
}

// SummaryMarkdown renders the headline views of a dashboard.
func SummaryMarkdown(d *report.Dashboard, currency string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Transactions Summary")
	doc.PlainText(filterLine(d.Filter))

	if d.Empty() {
		doc.PlainText(md.Bold("No transactions match the current filters."))
		return doc.String()
	}

	top := "n/a"
	if d.HasTopCategory {
		top = escape(d.TopCategory.Name)
	}
	doc.Table(md.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total spend", core.FormatAmount(d.Summary.Total, currency)},
			{"Transactions", strconv.Itoa(d.Summary.Transactions)},
			{"Average monthly spend", core.FormatAmount(d.Summary.MonthlyAverage, currency)},
			{"Top category", top},
		},
	})

	doc.H2("Spending by Category")
	doc.Table(amountTable("Category", d.Categories, currency))

	if len(d.Trend) > 0 {
		doc.H2(fmt.Sprintf("Spending Over Time (%s)", d.Options.Granularity))
		rows := make([][]string, 0, len(d.Trend))
		for _, p := range d.Trend {
			rows = append(rows, []string{core.FormatDate(p.Date), core.FormatAmount(p.Amount, currency)})
		}
		doc.Table(md.TableSet{Header: []string{"Period ending", "Amount"}, Rows: rows})
	}

	if len(d.Merchants) > 0 {
		doc.H2(fmt.Sprintf("Top %d Merchants", len(d.Merchants)))
		doc.Table(amountTable("Merchant", d.Merchants, currency))
	}

	if len(d.PaymentMethods) > 0 {
		doc.H2("Payment Methods")
		doc.Table(amountTable("Payment method", d.PaymentMethods, currency))
	}

	if n := d.Negatives.Len(); n > 0 {
		doc.H2("Warnings")
		doc.PlainText(fmt.Sprintf("%d transactions have a negative amount.", n))
	}

	return doc.String()
}

func amountTable(label string, items []core.CategoryAmount, currency string) md.TableSet {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{escape(it.Name), core.FormatAmount(it.Amount, currency)})
	}
	return md.TableSet{Header: []string{label, "Amount"}, Rows: rows}
}

func filterLine(f report.Filter) string {
	from, to := "start", "end"
	if !f.Start.IsZero() {
		from = core.FormatDate(f.Start)
	}
	if !f.End.IsZero() {
		to = core.FormatDate(f.End)
	}
	return fmt.Sprintf("Period: %s to %s, %d categories selected.", from, to, len(f.Categories))
}

var escaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;", ">", "&gt;")

// escape keeps ledger text from being read as markdown or HTML.
func escape(s string) string {
	return escaper.Replace(s)
}
