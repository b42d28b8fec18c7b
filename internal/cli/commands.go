package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"ledgerdash/internal/config"
	"ledgerdash/internal/core"
	"ledgerdash/internal/dataset"
	"ledgerdash/internal/log"
	"ledgerdash/internal/render"
	"ledgerdash/internal/report"
)

// Env is what every subcommand shares: configuration, logging and the
// output streams.
type Env struct {
	Config *config.Config
	Logger *log.Logger
	Stdout io.Writer
	Stderr io.Writer
}

func (e *Env) logger() *log.Logger {
	if e.Logger == nil {
		return log.Discard().WithComponent(log.ComponentCLI)
	}
	return e.Logger.WithComponent(log.ComponentCLI)
}

func (e *Env) failf(format string, args ...any) {
	fmt.Fprintf(e.Stderr, "Error: "+format+"\n", args...)
}

// Register adds the ledgerctl subcommands to c.
func Register(c *subcommands.Commander, env *Env) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&validateCmd{env: env}, "ledger")
	c.Register(&summaryCmd{env: env}, "ledger")
	c.Register(&exportCmd{env: env}, "ledger")
}

// stringList collects a repeated string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	if strings.TrimSpace(v) != "" {
		*l = append(*l, v)
	}
	return nil
}

// source holds the flags naming the ledger file.
type source struct {
	file string
}

func (s *source) setFlags(f *flag.FlagSet, env *Env) {
	f.StringVar(&s.file, "file", env.Config.DataFile, "Path to the transactions CSV file")
}

func (s *source) load(ctx context.Context, env *Env) (*dataset.Snapshot, error) {
	store := dataset.New(s.file, dataset.Options{Logger: env.Logger})
	return store.Get(ctx)
}

// selection holds the flags that narrow the ledger to a filtered subset.
type selection struct {
	start      string
	end        string
	categories stringList
}

func (s *selection) setFlags(f *flag.FlagSet) {
	f.StringVar(&s.start, "start", "", "First day to include, YYYY-MM-DD (defaults to the earliest date)")
	f.StringVar(&s.end, "end", "", "Last day to include, YYYY-MM-DD (defaults to the latest date)")
	f.Var(&s.categories, "category", "Category to include; repeat for several (defaults to all)")
}

// filter resolves the flags against t. Unlike the web form, an invalid date
// is an error.
func (s *selection) filter(t *core.Table) (report.Filter, error) {
	f := report.DefaultFilter(t)
	for _, d := range []struct {
		name  string
		value string
		dst   *time.Time
	}{
		{"start", s.start, &f.Start},
		{"end", s.end, &f.End},
	} {
		if d.value == "" {
			continue
		}
		parsed, err := time.Parse(time.DateOnly, d.value)
		if err != nil {
			return report.Filter{}, fmt.Errorf("invalid -%s %q: want YYYY-MM-DD", d.name, d.value)
		}
		*d.dst = parsed
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.End.Before(f.Start) {
		return report.Filter{}, fmt.Errorf("-end %s is before -start %s", s.end, s.start)
	}
	if len(s.categories) > 0 {
		f.SelectCategories(append([]string(nil), s.categories...))
	}
	return f, nil
}

// output holds the flags controlling how markdown reaches the terminal.
type output struct {
	raw   bool
	style string
	width int
}

func (o *output) setFlags(f *flag.FlagSet) {
	f.BoolVar(&o.raw, "raw", false, "Print markdown instead of rendering it")
	f.StringVar(&o.style, "style", render.StyleAuto, "Terminal style: auto, dark, light or notty")
	f.IntVar(&o.width, "width", 100, "Word wrap width")
}

func (o *output) print(w io.Writer, markdown string) error {
	if o.raw {
		_, err := io.WriteString(w, markdown)
		return err
	}
	out, err := render.Terminal(markdown, o.style, o.width)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

type validateCmd struct {
	env *Env
	source
	output
}

func (*validateCmd) Name() string     { return "validate" }
func (*validateCmd) Synopsis() string { return "run the ingestion pipeline and print the data quality report" }
func (*validateCmd) Usage() string {
	return `ledgerctl validate [-file <path>] [-raw] [-style <style>]

  Loads, cleans and validates the ledger, then prints the diagnostics.
`
}

func (c *validateCmd) SetFlags(f *flag.FlagSet) {
	c.source.setFlags(f, c.env)
	c.output.setFlags(f)
}

func (c *validateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	snap, err := c.load(ctx, c.env)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	if err := c.print(c.env.Stdout, render.DiagnosticsMarkdown(snap.Diagnostics)); err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	env *Env
	source
	selection
	output
	view   string
	detail string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print the dashboard summary of a filtered subset" }
func (*summaryCmd) Usage() string {
	return `ledgerctl summary [-file <path>] [-start <date>] [-end <date>] [-category <name>]... [-view daily|weekly|monthly]

  Prints headline metrics, spending by category and over time, top merchants
  and payment methods for the selected transactions.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	c.source.setFlags(f, c.env)
	c.selection.setFlags(f)
	c.output.setFlags(f)
	f.StringVar(&c.view, "view", string(report.Monthly), "Trend granularity: daily, weekly or monthly")
	f.StringVar(&c.detail, "detail", "", "Category whose merchants are broken down (defaults to the top category)")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	opts := report.Options{
		Granularity:   report.Granularity(strings.ToLower(c.view)),
		TopCategories: c.env.Config.TopCategories,
		TopMerchants:  c.env.Config.TopMerchants,
		RowLimit:      c.env.Config.TableRowLimit,
		Detail:        c.detail,
	}
	if _, err := report.GetBucketer(opts.Granularity); err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitUsageError
	}

	snap, err := c.load(ctx, c.env)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	filter, err := c.filter(snap.Table)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitUsageError
	}
	d, err := report.Build(snap.Table, filter, opts)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	if err := c.print(c.env.Stdout, render.SummaryMarkdown(d, c.env.Config.Currency)); err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type exportCmd struct {
	env *Env
	source
	selection
	out string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the filtered transactions as CSV" }
func (*exportCmd) Usage() string {
	return `ledgerctl export [-file <path>] [-start <date>] [-end <date>] [-category <name>]... [-o <out.csv>]

  Writes the selected transactions with the dashboard download columns.
  Use -o - to write to standard output.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	c.source.setFlags(f, c.env)
	c.selection.setFlags(f)
	f.StringVar(&c.out, "o", report.ExportFilename, "Output file, or - for standard output")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	snap, err := c.load(ctx, c.env)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	filter, err := c.filter(snap.Table)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitUsageError
	}
	subset := report.Apply(snap.Table, filter)

	if err := c.write(subset); err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	c.env.logger().Info("Filtered transactions exported",
		log.FieldOperation, log.OpExport, log.FieldRows, subset.Len(), "output", c.out)
	return subcommands.ExitSuccess
}

func (c *exportCmd) write(t *core.Table) (err error) {
	if c.out == "-" {
		return report.WriteCSV(c.env.Stdout, t)
	}
	file, err := os.Create(c.out)
	if err != nil {
		return fmt.Errorf("create %s: %w", c.out, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", c.out, cerr)
		}
	}()
	return report.WriteCSV(file, t)
}
