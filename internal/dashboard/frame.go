package dashboard

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/derickschaefer/pocketdash/internal/chart"
	"github.com/derickschaefer/pocketdash/internal/model"
	"github.com/derickschaefer/pocketdash/internal/poll"
	"github.com/derickschaefer/pocketdash/internal/render"
	"github.com/derickschaefer/pocketdash/internal/terminal"
)

// chartHeight is the plot height used inside the live frame.
const chartHeight = 4

// termLines is how many history entries the terminal view lists.
const termLines = 10

// Draw writes one frame for the active view: the header, the quick strip,
// any widget errors, the view body and the key help.
func (s *State) Draw(w io.Writer, active string, width int) error {
	s.drawHeader(w, active)
	s.drawErrors(w)
	fmt.Fprintln(w)

	var err error
	switch active {
	case poll.ViewMetrics:
		err = s.drawMetrics(w, width)
	case poll.ViewControls:
		err = s.drawControls(w, width)
	case poll.ViewTmux:
		err = s.drawTmux(w)
	case poll.ViewRally:
		err = s.drawRally(w)
	case poll.ViewTodo:
		err = s.drawTodo(w)
	case poll.ViewTerminal:
		s.drawTerminal(w)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, Help(active))
	return nil
}

// Help is the key legend shown under every frame.
func Help(active string) string {
	keys := "1-6 view  q quit"
	if active == poll.ViewControls {
		keys += "  +/- brightness  enter apply"
	}
	return keys
}

func (s *State) drawHeader(w io.Writer, active string) {
	tabs := make([]string, len(poll.Views))
	for i, v := range poll.Views {
		if v == active {
			tabs[i] = fmt.Sprintf("[%d %s]", i+1, v)
		} else {
			tabs[i] = fmt.Sprintf(" %d %s ", i+1, v)
		}
	}
	fmt.Fprintf(w, "%s pocketdash  %s\n", render.Dot(s.Quick.OverallBad), strings.Join(tabs, ""))

	q := s.Quick
	disk := q.Disk
	if disk == "" {
		disk = "--%"
	}
	batt := q.Battery.Percent
	if batt == "" {
		batt = "--%"
	}
	fmt.Fprintf(w, "BAT %s %s  CPU %s  MEM %s  TEMP %s  DISK %s  %s\n",
		batt, q.Battery.Arrow, orDash(q.CPU), orDash(q.Mem), orDash(q.Temp), disk, q.Timestamp)
}

func (s *State) drawErrors(w io.Writer) {
	names := make([]string, 0, len(s.Errors))
	for name := range s.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "⚠  %s: %v\n", name, s.Errors[name])
	}
}

func (s *State) drawMetrics(w io.Writer, width int) error {
	if s.Status == nil {
		fmt.Fprintln(w, "waiting for status…")
		return nil
	}
	if err := table(w, model.KindStatus, s.Status); err != nil {
		return err
	}
	if s.Status.Battery.EstimateCard != "" {
		fmt.Fprintln(w, s.Status.Battery.EstimateCard)
	}
	units := map[string]string{SeriesCPU: "%", SeriesMem: "%", SeriesTemp: "°C", SeriesRx: "KB/s", SeriesTx: "KB/s"}
	for _, id := range SeriesIDs {
		fmt.Fprintln(w)
		err := chart.Plot(w, id, chart.FromPoints(s.Series.Points(id)), chart.PlotOptions{
			Width:  width,
			Height: chartHeight,
			Unit:   units[id],
		})
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", id, err)
		}
	}
	if len(s.Timeline) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "battery history")
		if err := chart.Strip(w, s.Timeline, width); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) drawControls(w io.Writer, width int) error {
	gw := width - 24
	if gw > 40 {
		gw = 40
	}
	chart.Gauge(w, "Brightness", float64(s.Brightness.Value()), gw)
	fmt.Fprintf(w, "Backlight KPI %s\n", s.Brightness.KPI())
	if s.Status != nil {
		chart.Gauge(w, "Disk      ", s.Status.DiskGauge, gw)
		fmt.Fprintf(w, "Services %s\n", render.Pill(s.Status.ServicesOK))
		for _, svc := range s.Status.Services {
			fmt.Fprintf(w, "  %-16s %-10s %s\n", svc.Name, svc.State, render.Pill(svc.OK))
		}
	}
	if s.IPTV != nil {
		fmt.Fprintln(w)
		return table(w, model.KindIPTV, s.IPTV)
	}
	return nil
}

func (s *State) drawTmux(w io.Writer) error {
	if s.Tmux == nil {
		fmt.Fprintln(w, "waiting for tmux…")
		return nil
	}
	return table(w, model.KindTmux, s.Tmux)
}

func (s *State) drawRally(w io.Writer) error {
	if !s.Rally.Loaded() {
		fmt.Fprintln(w, "loading routes…")
		return nil
	}
	res := s.Rally.Apply()
	fmt.Fprintf(w, "Dates: %s\n", s.Calendar.Label())
	return table(w, model.KindRoutes, &res)
}

func (s *State) drawTodo(w io.Writer) error {
	if !s.todosLoaded {
		fmt.Fprintln(w, "loading todos…")
		return nil
	}
	return table(w, model.KindTodos, s.Todos.Open())
}

func (s *State) drawTerminal(w io.Writer) {
	fmt.Fprintf(w, "Session %s  %s\n", s.Term.State(), s.Term.Prompt())
	if s.Term.State() != terminal.Active {
		fmt.Fprintln(w, "run `pocketdash term shell` to log in and open a shell")
	}
	entries := s.Term.History.Entries()
	if len(entries) > termLines {
		entries = entries[len(entries)-termLines:]
	}
	for _, e := range entries {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func table(w io.Writer, kind string, data interface{}) error {
	return render.Render(w, &model.Result{Kind: kind, GeneratedAt: time.Now(), Data: data}, render.FormatTable)
}

func orDash(s string) string {
	if s == "" {
		return "--"
	}
	return s
}
