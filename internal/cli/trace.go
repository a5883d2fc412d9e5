package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/slox-lang/slox/pkg/evaluator"
	"github.com/slox-lang/slox/pkg/runtime"
)

// TraceSummary aggregates a JSON-lines trace written by `slox run --trace`.
type TraceSummary struct {
	RunID       string         `json:"runId"`
	TotalEvents int            `json:"totalEvents"`
	Runs        int            `json:"runs"`
	Statements  int            `json:"statements"`
	Calls       int            `json:"calls"`
	CallsByName map[string]int `json:"callsByName"`
	MaxDepth    int            `json:"maxDepth"`
	StartTime   string         `json:"startTime,omitempty"`
	EndTime     string         `json:"endTime,omitempty"`
	DurationMs  float64        `json:"durationMs"`
}

func (a *app) cmdTrace(args []string) int {
	var file string
	textOutput := false

	for _, arg := range args {
		switch arg {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.stderr, "usage: slox trace <file.jsonl> [--json|--text]")
		return runtime.ExitUsage
	}

	f, err := os.Open(file)
	if err != nil {
		return a.ioError("cannot read file: %s", file)
	}
	defer f.Close()

	summary := computeTraceSummary(f)
	if textOutput {
		printTraceSummaryText(a.stdout, summary)
		return runtime.ExitOK
	}
	b, _ := json.Marshal(summary)
	fmt.Fprintln(a.stdout, string(b))
	return runtime.ExitOK
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		CallsByName: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}
		if event.Depth > summary.MaxDepth {
			summary.MaxDepth = event.Depth
		}
		if summary.StartTime == "" {
			summary.StartTime = event.Timestamp
		}
		summary.EndTime = event.Timestamp

		switch event.Event {
		case "run_start":
			summary.Runs++
		case evaluator.TraceStmtStart:
			summary.Statements++
		case evaluator.TraceFnCallStart:
			summary.Calls++
			summary.CallsByName[event.Name]++
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := time.Parse(time.RFC3339Nano, summary.StartTime)
		end, err2 := time.Parse(time.RFC3339Nano, summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Statements: %d\n", s.Statements)
	fmt.Fprintf(w, "Calls: %d (max depth %d)\n", s.Calls, s.MaxDepth)
	names := make([]string, 0, len(s.CallsByName))
	for name := range s.CallsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, s.CallsByName[name])
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}
