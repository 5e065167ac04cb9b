// Command salesboard-report renders the dashboard figures for a sales file
// on the terminal and optionally exports the filtered rows.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"

	"salesboard/internal/config"
	"salesboard/internal/core"
	"salesboard/internal/filter"
	"salesboard/internal/loader"
	"salesboard/internal/report"
)

// listFlag collects repeated or comma-separated values.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

type options struct {
	file       string
	start      string
	end        string
	categories listFlag
	segments   listFlag
	profitMin  string
	profitMax  string
	csvPath    string
	xlsxPath   string
	asJSON     bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "salesboard-report:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options
	fs := flag.NewFlagSet("salesboard-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.file, "file", "", "sales file (.csv, .xlsx, .xls); defaults to DEFAULT_DATASET_PATH")
	fs.StringVar(&opts.start, "start", "", "first order date, YYYY-MM-DD")
	fs.StringVar(&opts.end, "end", "", "last order date, YYYY-MM-DD")
	fs.Var(&opts.categories, "category", "category to keep; repeat or separate with commas")
	fs.Var(&opts.segments, "segment", "segment to keep; repeat or separate with commas")
	fs.StringVar(&opts.profitMin, "profit-min", "", "minimum profit")
	fs.StringVar(&opts.profitMax, "profit-max", "", "maximum profit")
	fs.StringVar(&opts.csvPath, "csv", "", "write the filtered rows as CSV to this path")
	fs.StringVar(&opts.xlsxPath, "xlsx", "", "write the filtered rows as XLSX to this path")
	fs.BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := opts.file
	if path == "" {
		path = config.Load().DefaultDatasetPath
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := loader.Load(path, f)
	if err != nil {
		return err
	}

	c, ignored := filter.ParseQuery(opts.query())
	out := report.Render(ds, c)
	out.PrependNotices(ignored)

	if opts.csvPath != "" {
		if err := writeFile(opts.csvPath, out, report.WriteCSV); err != nil {
			return err
		}
	}
	if opts.xlsxPath != "" {
		if err := writeFile(opts.xlsxPath, out, report.WriteXLSX); err != nil {
			return err
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return printReport(stdout, out)
}

// query maps the flags onto the dashboard's query parameters so both share
// one parser.
func (o options) query() url.Values {
	q := url.Values{}
	set := func(key, v string) {
		if v != "" {
			q.Set(key, v)
		}
	}
	set(filter.ParamStart, o.start)
	set(filter.ParamEnd, o.end)
	set(filter.ParamProfitMin, o.profitMin)
	set(filter.ParamProfitMax, o.profitMax)
	q[filter.ParamCategory] = o.categories
	q[filter.ParamSegment] = o.segments
	return q
}

func writeFile(path string, out report.RenderedOutput, write func(io.Writer, core.FilteredView) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f, out.View); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func printReport(w io.Writer, out report.RenderedOutput) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Dataset\t%s\n", out.Source)
	fmt.Fprintf(tw, "Rows\t%d of %d\n", out.View.Len(), out.TotalRows)
	for _, card := range out.Cards {
		fmt.Fprintf(tw, "%s\t%s\n", card.Title, card.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !out.ByCategory.Empty() {
		fmt.Fprintf(w, "\n%s\n", out.ByCategory.Title)
		for i, label := range out.ByCategory.Labels {
			fmt.Fprintf(tw, "  %s\t%s\n", label, out.ByCategory.Series[0].Text[i])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, n := range out.Notices {
		fmt.Fprintf(w, "\nNote: %s", n)
	}
	if len(out.Notices) > 0 {
		fmt.Fprintln(w)
	}
	for _, a := range out.Advisories {
		fmt.Fprintf(w, "\n[%s] %s", a.Level, a.Message)
	}
	if len(out.Advisories) > 0 {
		fmt.Fprintln(w)
	}
	return nil
}
