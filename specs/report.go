package specs

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Result is the outcome of one check
type Result struct {
	Group    string
	Check    string
	Failure  string
	Duration time.Duration
}

func (r Result) Passed() bool {
	return r.Failure == ""
}

// Report collects results in execution order
type Report struct {
	Results []Result
}

func (r *Report) add(result Result) {
	r.Results = append(r.Results, result)
}

func (r *Report) Passed() int {
	n := 0
	for _, result := range r.Results {
		if result.Passed() {
			n++
		}
	}
	return n
}

func (r *Report) Failed() int {
	return len(r.Results) - r.Passed()
}

// Find returns the result of the named check
func (r *Report) Find(group, check string) (Result, bool) {
	for _, result := range r.Results {
		if result.Group == group && result.Check == check {
			return result, true
		}
	}
	return Result{}, false
}

var (
	groupStyle   = lipgloss.NewStyle().Bold(true)
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#50FA7B"})
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	failureStyle = lipgloss.NewStyle().PaddingLeft(6)
)

// Write renders the report grouped by check group
func (r *Report) Write(w io.Writer) error {
	group := ""
	for i, result := range r.Results {
		if result.Group != group || i == 0 {
			group = result.Group
			if _, err := fmt.Fprintln(w, groupStyle.Render(group)); err != nil {
				return err
			}
		}

		mark := passStyle.Render("✓")
		if !result.Passed() {
			mark = failStyle.Render("✗")
		}
		duration := dimStyle.Render(fmt.Sprintf("(%s)", result.Duration.Round(time.Millisecond)))
		if _, err := fmt.Fprintf(w, "  %s %s %s\n", mark, result.Check, duration); err != nil {
			return err
		}

		if !result.Passed() {
			if _, err := fmt.Fprintln(w, failureStyle.Render(result.Failure)); err != nil {
				return err
			}
		}
	}

	summary := passStyle.Render(fmt.Sprintf("%d passed", r.Passed()))
	if r.Failed() > 0 {
		summary += ", " + failStyle.Render(fmt.Sprintf("%d failed", r.Failed()))
	}
	_, err := fmt.Fprintf(w, "\n%s\n", summary)
	return err
}
