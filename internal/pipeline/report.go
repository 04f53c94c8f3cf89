package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Status is the terminal state of one (package, variant) attempt.
type Status int

const (
	StatusSkipped Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome records how one variant attempt ended. Created once, never
// mutated.
type Outcome struct {
	Status    Status
	Reason    string
	Artifacts int
}

// Result ties an outcome to the unit of work that produced it.
type Result struct {
	Package string
	Variant string
	Outcome Outcome
}

// Unit renders the package/variant identifier used in summaries and
// failure lists.
func (r Result) Unit() string {
	if r.Variant == "" {
		return r.Package
	}
	return r.Package + "/" + r.Variant
}

// Report is the single accumulator for a run, threaded through the
// orchestrator and returned at the end.
type Report struct {
	Results  []Result
	IndexErr error
	LogPath  string
	Started  time.Time
}

func newReport(logPath string) *Report {
	return &Report{LogPath: logPath, Started: time.Now()}
}

func (rep *Report) record(pkg, variant string, o Outcome) {
	rep.Results = append(rep.Results, Result{Package: pkg, Variant: variant, Outcome: o})
}

func (rep *Report) byStatus(s Status) []Result {
	var out []Result
	for _, r := range rep.Results {
		if r.Outcome.Status == s {
			out = append(out, r)
		}
	}
	return out
}

// Succeeded returns the built units in run order.
func (rep *Report) Succeeded() []Result { return rep.byStatus(StatusSucceeded) }

// Failed returns the failed units in run order.
func (rep *Report) Failed() []Result { return rep.byStatus(StatusFailed) }

// Skipped returns the up-to-date units in run order.
func (rep *Report) Skipped() []Result { return rep.byStatus(StatusSkipped) }

// WriteSummary emits the human-readable end-of-run summary. It is always
// written, whatever the individual outcomes were.
func (rep *Report) WriteSummary(w io.Writer) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	succeeded, failed, skipped := rep.Succeeded(), rep.Failed(), rep.Skipped()
	fmt.Fprintf(w, "\nrun finished in %s: %s built, %s failed, %s skipped\n",
		time.Since(rep.Started).Round(time.Second),
		green(len(succeeded)), red(len(failed)), yellow(len(skipped)))

	for _, r := range failed {
		fmt.Fprintf(w, "  %s %s: %s\n", red("✗"), r.Unit(), r.Outcome.Reason)
	}
	if rep.IndexErr != nil {
		fmt.Fprintf(w, "  %s index update: %v\n", red("✗"), rep.IndexErr)
	}
	if rep.LogPath != "" {
		fmt.Fprintf(w, "log: %s\n", rep.LogPath)
	}
}
