package specs

import (
	"context"
	"fmt"
	"time"

	"github.com/onsi/gomega"
	log "github.com/sirupsen/logrus"
)

const defaultCheckTimeout = 15 * time.Second

// Runner executes check groups outside of a test binary
type Runner struct {
	harness *Harness
}

func NewRunner(h *Harness) *Runner {
	return &Runner{harness: h}
}

// Run executes groups and their checks in declaration order. A failing check
// never stops the checks after it.
func (r *Runner) Run(ctx context.Context, groups []Group) *Report {
	report := &Report{}

	for _, group := range groups {
		if err := r.harness.Isolate(); err != nil {
			for _, check := range group.Checks {
				report.add(Result{Group: group.Name, Check: check.Name, Failure: fmt.Sprintf("resetting page: %v", err)})
			}
			continue
		}

		for _, check := range group.Checks {
			if ctx.Err() != nil {
				report.add(Result{Group: group.Name, Check: check.Name, Failure: ctx.Err().Error()})
				continue
			}
			report.add(r.runCheck(ctx, group, check))
		}
	}

	// Let fire-and-forget loads settle before the caller tears things down
	r.harness.Loader.Wait()
	return report
}

func (r *Runner) runCheck(ctx context.Context, group Group, check Check) Result {
	start := time.Now()
	result := Result{Group: group.Name, Check: check.Name}

	if group.BeforeEach != nil {
		timeout := r.harness.Options.CheckTimeout
		if timeout <= 0 {
			timeout = defaultCheckTimeout
		}

		hookCtx, cancel := context.WithTimeout(ctx, timeout)
		err := runHook(hookCtx, group.BeforeEach)
		cancel()

		if err != nil {
			result.Failure = fmt.Sprintf("beforeEach: %v", err)
			result.Duration = time.Since(start)
			logResult(result)
			return result
		}
	}

	result.Failure = runBody(check.Body)
	result.Duration = time.Since(start)
	logResult(result)
	return result
}

// checkFailure carries a gomega failure message out of a check body
type checkFailure struct {
	message string
}

func runHook(ctx context.Context, hook func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return hook(ctx)
}

// runBody runs body and returns its first failure message, or "" if it passed
func runBody(body func(g gomega.Gomega)) (failure string) {
	g := gomega.NewGomega(func(message string, _ ...int) {
		panic(checkFailure{message: message})
	})

	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(checkFailure); ok {
				failure = f.message
				return
			}
			failure = fmt.Sprintf("panic: %v", r)
		}
	}()

	body(g)
	return ""
}

func logResult(result Result) {
	entry := log.WithFields(log.Fields{
		"group":    result.Group,
		"check":    result.Check,
		"duration": result.Duration,
	})
	if result.Passed() {
		entry.Debug("Check passed")
		return
	}
	entry.WithField("failure", result.Failure).Warn("Check failed")
}
