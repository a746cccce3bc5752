// Package render converts Result values into human-readable or machine-parseable
// output. Every tabular kind is first flattened by tabulate; the table, CSV and
// Markdown writers share that flattening, and JSON/YAML serialise the payload.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/derickschaefer/pocketdash/internal/analyze"
	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/rally"
	"github.com/derickschaefer/pocketdash/internal/series"
	"github.com/derickschaefer/pocketdash/internal/todo"
	"github.com/derickschaefer/pocketdash/internal/util"
	"github.com/derickschaefer/pocketdash/internal/view"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatCSV   = "csv"
	FormatMD    = "md"
)

// Now is the clock used for relative dates in todo tables.
var Now = time.Now

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatYAML:
		return renderYAML(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── JSON / YAML ──────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// renderYAML routes through JSON so keys and missing-number handling match
// the JSON output exactly.
func renderYAML(w io.Writer, result *model.Result) error {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		return fmt.Errorf("re-decoding result: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// ─── Table ────────────────────────────────────────────────────────────────────

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	issueColor = color.New(color.FgRed, color.Bold)
)

// Pill renders an OK/ISSUE pill, coloured when the terminal supports it.
func Pill(p view.Pill) string {
	if p {
		return okColor.Sprint(p.String())
	}
	return issueColor.Sprint(p.String())
}

// Dot renders the overall device indicator.
func Dot(bad bool) string {
	if bad {
		return issueColor.Sprint("●")
	}
	return okColor.Sprint("●")
}

func renderTable(w io.Writer, result *model.Result) error {
	header, rows, err := tabulate(result)
	if err != nil {
		return renderJSON(w, result)
	}
	if title := tableTitle(result); title != "" {
		fmt.Fprintln(w, title)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return nil
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	for _, r := range rows {
		tw.Append(colorize(r))
	}
	tw.Render()

	if footer := tableFooter(result); footer != "" {
		fmt.Fprintln(w, footer)
	}
	return nil
}

// colorize swaps pill cells for their coloured form. Only the table writer
// calls it; CSV and Markdown keep plain text.
func colorize(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		switch c {
		case "OK":
			out[i] = Pill(true)
		case "ISSUE":
			out[i] = Pill(false)
		default:
			out[i] = c
		}
	}
	return out
}

func tableTitle(result *model.Result) string {
	switch d := result.Data.(type) {
	case *view.Display:
		host := d.Host
		if host == "" {
			host = "device"
		}
		return fmt.Sprintf("%s %s  %s", Dot(d.OverallBad), host, d.Timestamp)
	case *view.QuickDisplay:
		return fmt.Sprintf("%s quick stats  %s", Dot(d.OverallBad), d.Timestamp)
	case *view.TmuxSummary:
		return fmt.Sprintf("tmux  %s  %d sessions, %d attached", Pill(d.OK), d.Total, d.Attached)
	}
	return ""
}

func tableFooter(result *model.Result) string {
	switch d := result.Data.(type) {
	case *rally.Result:
		return fmt.Sprintf("%d routes, %d returns", d.Counts.Routes, d.Counts.Returns)
	}
	return ""
}

// ─── Tabulation ───────────────────────────────────────────────────────────────

// tabulate flattens a result into a header and rows.
func tabulate(result *model.Result) ([]string, [][]string, error) {
	switch d := result.Data.(type) {
	case *view.Display:
		return []string{"METRIC", "VALUE", "STATE"}, statusRows(d), nil
	case *view.QuickDisplay:
		return []string{"METRIC", "VALUE"}, [][]string{
			{"Battery", batteryText(d.Battery)},
			{"CPU", d.CPU},
			{"Memory", d.Mem},
			{"Temperature", d.Temp},
			{"Disk", d.Disk},
		}, nil
	case *view.TmuxSummary:
		rows := make([][]string, 0, len(d.Sessions))
		for _, s := range d.Sessions {
			rows = append(rows, []string{s.Name, yesNo(s.Attached), strconv.Itoa(s.Windows), strconv.Itoa(s.Panes), s.Uptime})
		}
		return []string{"SESSION", "ATTACHED", "WINDOWS", "PANES", "UPTIME"}, rows, nil
	case *view.IPTVView:
		rows := [][]string{
			{"Username", d.Username},
			{"Connections", d.Connections},
			{"Status", d.Status},
			{"Expires", d.Expires},
			{"Health", d.OK.String()},
		}
		if d.Error != "" {
			rows = append(rows, []string{"Error", d.Error})
		}
		return []string{"FIELD", "VALUE"}, rows, nil
	case *rally.Result:
		var rows [][]string
		for _, g := range d.Groups {
			for _, r := range g.Rows {
				rows = append(rows, []string{g.Origin, g.Destination, r.Model, r.Range.StartDate, r.Range.EndDate, r.URL})
			}
		}
		return []string{"ORIGIN", "DESTINATION", "MODEL", "FROM", "TO", "URL"}, rows, nil
	case rally.Options:
		return []string{"FILTER", "VALUES"}, [][]string{
			{"origin", strings.Join(d.Origins, ", ")},
			{"destination", strings.Join(d.Destinations, ", ")},
			{"model", strings.Join(d.Models, ", ")},
		}, nil
	case []model.TodoItem:
		return []string{"ID", "TITLE", "DUE", "DESCRIPTION", "DONE"}, todoRows(d), nil
	case model.TodoItem:
		return []string{"FIELD", "VALUE"}, todoFields(d), nil
	case series.Table:
		header := append([]string{"LABEL"}, d.IDs...)
		rows := make([][]string, len(d.Labels))
		for i, label := range d.Labels {
			row := []string{label}
			for _, id := range d.IDs {
				row = append(row, pointText(d.Series[id], i))
			}
			rows[i] = row
		}
		return header, rows, nil
	case []series.TimelinePoint:
		rows := make([][]string, len(d))
		for i, p := range d {
			rows[i] = []string{p.Label, pointText([]*float64{p.Value}, 0), p.Status}
		}
		return []string{"TIME", "CAPACITY", "STATUS"}, rows, nil
	case []view.Logged:
		rows := make([][]string, len(d))
		for i, l := range d {
			rows[i] = []string{
				l.FetchedAt.Local().Format("2006-01-02 15:04:05"),
				l.Host,
				l.Battery.Percent,
				l.CPU.Text,
				l.Mem.Text,
				l.Disk.Text,
				l.Temp.Text,
				view.Pill(!l.OverallBad).String(),
			}
		}
		return []string{"FETCHED", "HOST", "BATTERY", "CPU", "MEM", "DISK", "TEMP", "OVERALL"}, rows, nil
	case []analyze.Summary:
		rows := make([][]string, len(d))
		for i, sm := range d {
			rows[i] = []string{
				sm.SeriesID,
				strconv.Itoa(sm.Count),
				strconv.Itoa(sm.Missing),
				util.FormatFixed(sm.Min.Float(), 1, ""),
				util.FormatFixed(sm.Mean.Float(), 1, ""),
				util.FormatFixed(sm.Median.Float(), 1, ""),
				util.FormatFixed(sm.P95.Float(), 1, ""),
				util.FormatFixed(sm.Max.Float(), 1, ""),
				util.FormatFixed(sm.Last.Float(), 1, ""),
				orDash(sm.Trend),
			}
		}
		return []string{"SERIES", "N", "MISSING", "MIN", "MEAN", "MEDIAN", "P95", "MAX", "LAST", "TREND"}, rows, nil
	case []model.Field:
		rows := make([][]string, len(d))
		for i, f := range d {
			rows[i] = []string{f.Name, f.Value}
		}
		return []string{"FIELD", "VALUE"}, rows, nil
	}
	return nil, nil, fmt.Errorf("no tabular form for %T", result.Data)
}

func statusRows(d *view.Display) [][]string {
	rows := [][]string{
		{"Battery", batteryText(d.Battery), ""},
	}
	if d.Battery.Estimate != "" {
		rows = append(rows, []string{"Estimate", d.Battery.Estimate, d.Battery.EstimateCard})
	}
	rows = append(rows,
		[]string{"CPU", d.CPU.Text, d.CPU.OK.String()},
		[]string{"Memory", d.Mem.Text + "  " + d.MemInfo, d.Mem.OK.String()},
		[]string{"Disk", d.Disk.Text + "  " + d.DiskInfo, d.Disk.OK.String()},
		[]string{"Temperature", d.Temp.Text, d.Temp.OK.String()},
		[]string{"IP", d.IP, ""},
		[]string{"Network", fmt.Sprintf("↓ %.1f KB/s  ↑ %.1f KB/s", d.RxKBs, d.TxKBs), ""},
	)
	for _, iface := range d.Interfaces {
		rows = append(rows, []string{"  " + iface.Name, "rx " + iface.RxMB + " MB  tx " + iface.TxMB + " MB", ""})
	}
	rows = append(rows, []string{"Services", strconv.Itoa(len(d.Services)) + " monitored", d.ServicesOK.String()})
	for _, s := range d.Services {
		rows = append(rows, []string{"  " + s.Name, s.State, s.OK.String()})
	}
	rows = append(rows, []string{"Brightness", view.BrightnessText(d.Brightness), ""})
	return rows
}

func batteryText(b view.BatteryView) string {
	s := strings.TrimSpace(b.Percent + " " + b.Arrow)
	if b.Status != "" {
		s += " " + b.Status
	}
	return s
}

func todoRows(items []model.TodoItem) [][]string {
	now := Now()
	rows := make([][]string, len(items))
	for i, it := range items {
		due := view.DueText(it.DueDate, now)
		if cls := view.DueClass(it.DueDate, now); cls == view.DueOverdue && !it.Completed {
			due = issueColor.Sprint(due)
		}
		done := ""
		if it.Completed {
			done = "✓"
			if t, ok := todo.CompletedTime(it); ok {
				done += " " + humanize.RelTime(t, now, "ago", "from now")
			}
		}
		rows[i] = []string{it.ID, it.Title, due, todo.Preview(it.Description), done}
	}
	return rows
}

func todoFields(it model.TodoItem) [][]string {
	rows := [][]string{
		{"ID", it.ID},
		{"Title", it.Title},
		{"Due", orDash(view.DueText(it.DueDate, Now()))},
		{"Description", orDash(it.Description)},
		{"Notes", orDash(it.Notes)},
		{"Order", strconv.Itoa(it.Order)},
		{"Completed", yesNo(it.Completed)},
	}
	if it.CompletedAt != "" {
		rows = append(rows, []string{"Completed At", it.CompletedAt})
	}
	return rows
}

// ─── CSV ──────────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	header, rows, err := tabulate(result)
	if err != nil {
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	} else {
		_ = cw.Write(lower(header))
		for _, r := range rows {
			_ = cw.Write(r)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	header, rows, err := tabulate(result)
	if err != nil {
		return renderJSON(w, result)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(header, " | "))
	fmt.Fprintf(w, "|%s\n", strings.Repeat("----|", len(header)))
	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = mdEscape(c)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	return nil
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		fmt.Fprintf(w, "\n[%s • %d items • %dms]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func pointText(vals []*float64, i int) string {
	if i >= len(vals) || vals[i] == nil {
		return util.Placeholder
	}
	return util.FormatFixed(*vals[i], 1, "")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return util.Placeholder
	}
	return s
}

func lower(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(h)
	}
	return out
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
