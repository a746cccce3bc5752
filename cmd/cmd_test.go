package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
)

// ─── Test Output Helpers ──────────────────────────────────────────────────────

const (
	checkPass = "  ✅"
	checkFail = "  ❌"
	divider   = "──────────────────────────────────────────────────────────────────────────"
	separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
)

// result tracks pass/fail tallies for a single test group.
type result struct {
	passed int
	failed int
}

func (r *result) check(t *testing.T, condition bool, passLabel, failLabel string) {
	t.Helper()
	if condition {
		r.passed++
		t.Logf("%s %s", checkPass, passLabel)
		return
	}
	r.failed++
	t.Logf("%s %s", checkFail, failLabel)
	t.Fail()
}

func (r *result) summary(t *testing.T, groupName string) {
	t.Helper()
	icon := "✅"
	if r.failed > 0 {
		icon = "❌"
	}
	t.Logf("%s", divider)
	t.Logf("  %s  %s: %d/%d checks passed", icon, groupName, r.passed, r.passed+r.failed)
	t.Logf("%s", separator)
}

func printBanner(t *testing.T, title string) {
	t.Helper()
	t.Logf("")
	t.Logf("%s", separator)
	t.Logf("  🔬  %s", title)
	t.Logf("%s", divider)
}

// ─── Subcommand Routing ───────────────────────────────────────────────────────

func TestSubcommandRouting(t *testing.T) {
	printBanner(t, "SUBCOMMAND ROUTING")
	r := &result{}

	pairs := [][]string{
		{"status"},
		{"status", "log"},
		{"status", "prune"},
		{"quick"},
		{"brightness", "get"},
		{"brightness", "set"},
		{"tmux"},
		{"iptv"},
		{"history", "metrics"},
		{"history", "battery"},
		{"rally", "routes"},
		{"rally", "options"},
		{"rally", "calendar"},
		{"todo", "list"},
		{"todo", "add"},
		{"todo", "edit"},
		{"todo", "done"},
		{"todo", "reopen"},
		{"todo", "rm"},
		{"todo", "move"},
		{"term", "login"},
		{"term", "logout"},
		{"term", "exec"},
		{"term", "shell"},
		{"watch"},
		{"cache", "stats"},
		{"cache", "clear"},
		{"cache", "compact"},
		{"config", "init"},
		{"config", "get"},
		{"config", "set"},
		{"version"},
		{"completion"},
	}
	for _, pair := range pairs {
		c, _, err := rootCmd.Find(pair)
		path := strings.Join(pair, " ")
		r.check(t, err == nil && c != nil && c.Name() == pair[len(pair)-1],
			fmt.Sprintf("%q resolves", path),
			fmt.Sprintf("%q does not resolve (err=%v)", path, err))
	}
	r.summary(t, "SUBCOMMAND ROUTING")
}

// ─── End to End ───────────────────────────────────────────────────────────────

// hits counts requests per path.
type hits struct {
	mu sync.Mutex
	n  map[string]int
}

func (h *hits) count(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n[path]
}

func backend(t *testing.T) *httptest.Server {
	srv, _ := countingBackend(t)
	return srv
}

func countingBackend(t *testing.T) (*httptest.Server, *hits) {
	t.Helper()
	h := &hits{n: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.n[r.URL.Path]++
		h.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/quick-stats":
			io.WriteString(w, `{"battery": {"capacity": 18, "status": "Discharging"}, "cpu": 42, "memory": 93, "temperature": "N/A", "timestamp": "2026-03-10 12:00:00"}`)
		case "/api/status":
			io.WriteString(w, `{"system": {"hostname": "phone", "disk": {"percent": 55.2}}, "timestamp": "2026-03-10 12:00:00"}`)
		case "/api/metrics/history":
			io.WriteString(w, metricsHistoryJSON)
		case "/api/battery/history":
			io.WriteString(w, batteryHistoryJSON)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, h
}

const (
	metricsHistoryJSON = `{"timestamps": ["2026-03-10T11:59:40Z", "2026-03-10T11:59:45Z", "2026-03-10T11:59:50Z", "2026-03-10T11:59:55Z", "2026-03-10T12:00:00Z"],
  "cpu": [10, 20, 30, 40, 50], "memory": [40, 41, 42, 43, 44], "temperature": [30, 31, 32, 33, 34],
  "network_rx": [1, 2, 3, 4, 5], "network_tx": [0, 0, 0, 0, 0]}`
	batteryHistoryJSON = `[{"timestamp": "2026-03-10 11:00:00", "capacity": 80, "status": "Discharging"},
  {"timestamp": "2026-03-10 11:05:00", "capacity": 79, "status": "Discharging"},
  {"timestamp": "2026-03-10 11:10:00", "capacity": 77, "status": "Discharging"}]`
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	saved := globalFlags
	t.Cleanup(func() { globalFlags = saved })
	rootCmd.SetArgs(args)
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	return rootCmd.Execute()
}

func TestQuickCommandJSON(t *testing.T) {
	srv := backend(t)
	out := filepath.Join(t.TempDir(), "quick.json")
	if err := run(t, "quick", "--base-url", srv.URL, "--format", "json", "--out", out); err != nil {
		t.Fatalf("quick: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Kind string `json:"kind"`
		Data struct {
			CPU        string `json:"cpu"`
			Mem        string `json:"mem"`
			Temp       string `json:"temp"`
			Disk       string `json:"disk"`
			OverallBad bool   `json:"overall_bad"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, data)
	}
	if got.Kind != "quick" || got.Data.CPU != "42%" || got.Data.Disk != "55%" || got.Data.Temp != "--°C" {
		t.Errorf("unexpected quick output: %+v", got)
	}
	if !got.Data.OverallBad {
		t.Error("memory 93 should flag the overall dot")
	}
}

func TestBrightnessSetRejectsOutOfRange(t *testing.T) {
	srv := backend(t)
	if err := run(t, "brightness", "set", "140", "--base-url", srv.URL); err == nil {
		t.Fatal("expected error for 140")
	}
}

// ─── Watch ────────────────────────────────────────────────────────────────────

func TestWatchOnceFetchesEachPanelOnce(t *testing.T) {
	srv, h := countingBackend(t)
	t.Cleanup(func() { watchOnce, watchView = false, "metrics" })
	db := filepath.Join(t.TempDir(), "dash.db")
	if err := run(t, "watch", "--once", "--view", "metrics", "--base-url", srv.URL, "--db", db); err != nil {
		t.Fatalf("watch --once: %v", err)
	}
	// one tick: the disk reading and the metrics view both read /api/status
	if n := h.count("/api/status"); n != 2 {
		t.Errorf("/api/status requests: got %d, want 2", n)
	}
	if n := h.count("/api/quick-stats"); n != 1 {
		t.Errorf("/api/quick-stats requests: got %d, want 1", n)
	}
	if n := h.count("/api/battery/history"); n != 1 {
		t.Errorf("/api/battery/history requests: got %d, want 1", n)
	}
}

// ─── History ──────────────────────────────────────────────────────────────────

func resetHistoryFlags(t *testing.T) {
	t.Cleanup(func() {
		historyLast, historyBars, historyStats, historyWidth = 0, false, false, 0
	})
}

func TestHistoryMetricsLastKeepsAbsoluteFirstLabel(t *testing.T) {
	srv := backend(t)
	resetHistoryFlags(t)
	out := filepath.Join(t.TempDir(), "metrics.json")
	if err := run(t, "history", "metrics", "--last", "2", "--base-url", srv.URL, "--format", "json", "--out", out); err != nil {
		t.Fatalf("history metrics: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Data struct {
			Labels []string               `json:"labels"`
			Series map[string][]*float64 `json:"series"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, data)
	}
	if want := []string{"11:59:55", "5s"}; strings.Join(got.Data.Labels, ",") != strings.Join(want, ",") {
		t.Errorf("labels: got %v, want %v", got.Data.Labels, want)
	}
	if cpu := got.Data.Series["cpu"]; len(cpu) != 2 || cpu[0] == nil || *cpu[0] != 40 {
		t.Errorf("cpu should hold the newest two samples, got %v", cpu)
	}
}

func TestHistoryBatteryBars(t *testing.T) {
	srv := backend(t)
	resetHistoryFlags(t)
	out := filepath.Join(t.TempDir(), "battery.txt")
	if err := run(t, "history", "battery", "--bars", "--width", "60", "--base-url", srv.URL, "--format", "table", "--out", out); err != nil {
		t.Fatalf("history battery --bars: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var bars int
	for _, line := range strings.Split(string(data), "\n") {
		if (strings.HasPrefix(line, "Mar 10 11:00") || strings.HasPrefix(line, "11:05") || strings.HasPrefix(line, "11:10")) &&
			strings.Contains(line, "█") {
			bars++
		}
	}
	if bars != 3 {
		t.Errorf("want one bar per sample, got %d:\n%s", bars, data)
	}
}

// ─── Completion ───────────────────────────────────────────────────────────────

func TestFlagValueCompletions(t *testing.T) {
	printBanner(t, "FLAG VALUE COMPLETIONS")
	r := &result{}

	cases := []struct {
		cmd  *cobra.Command
		flag string
		want string
	}{
		{watchCmd, "view", "metrics,controls,tmux,rally,todo,terminal"},
		{historyMetricsCmd, "series", "cpu,memory,temperature,rx,tx"},
		{rootCmd, "format", "table,json,yaml,csv,md"},
		{rootCmd, "log-format", "text,json"},
	}
	for _, c := range cases {
		fn, ok := c.cmd.GetFlagCompletionFunc(c.flag)
		if !ok {
			r.check(t, false, "", fmt.Sprintf("%s --%s has no completion", c.cmd.Name(), c.flag))
			continue
		}
		got, directive := fn(c.cmd, nil, "")
		r.check(t, strings.Join(got, ",") == c.want && directive == cobra.ShellCompDirectiveNoFileComp,
			fmt.Sprintf("%s --%s completes %s", c.cmd.Name(), c.flag, c.want),
			fmt.Sprintf("%s --%s completes %v (directive %d)", c.cmd.Name(), c.flag, got, directive))
	}
	r.summary(t, "FLAG VALUE COMPLETIONS")
}
