package fixtures

import (
	"github.com/aescanero/dago-childcare-router/internal/router"
)

// Result is the outcome of one fixture row against a strategy
type Result struct {
	Fixture Fixture
	Got     router.Decision
	Passed  bool
}

// Report summarizes a verification run
type Report struct {
	Strategy string
	Results  []Result
	Skipped  int
}

// Failed returns the rows whose decision did not match
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed {
			failed = append(failed, res)
		}
	}
	return failed
}

// OK reports whether every applicable row passed
func (r Report) OK() bool {
	return len(r.Failed()) == 0
}

// Verify runs every row that applies to the strategy
func Verify(s router.Strategy) Report {
	report := Report{Strategy: s.Name()}

	for _, f := range table {
		if !f.AppliesTo(s.Kind()) {
			report.Skipped++
			continue
		}

		got := s.DetermineAgent(router.Request{Message: f.Input})
		passed := got.AgentID == f.ExpectedPrimary
		if f.ForceRouting && s.Kind() == router.KindKeyword {
			passed = passed && got.Layer == router.LayerForce
		}

		report.Results = append(report.Results, Result{
			Fixture: f,
			Got:     got,
			Passed:  passed,
		})
	}

	return report
}
