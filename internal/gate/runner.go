package gate

import (
	"context"
	"time"
)

// Runner ties the state store, the halt rule and the checks together.
type Runner struct {
	Store     *RecordStore
	Threshold int
	Timeout   time.Duration
}

// Run executes one gate evaluation. The halt rule is consulted before any
// check runs; a halted gate does no work unless bypass is set. Bypass
// skips the halt rule only: the checks still run and the streak is still
// updated from their results, so a bypassed run cannot hide failures.
func (r *Runner) Run(ctx context.Context, checks []Check, bypass bool) (Decision, error) {
	rec := r.Store.Load()
	now := time.Now()

	if ShouldHalt(rec, r.Threshold) && !bypass {
		d := HaltDecision(rec, r.Threshold, now)
		if err := r.Store.Save(d.Record); err != nil {
			return d, err
		}
		return d, nil
	}

	results := make([]CheckResult, 0, len(checks))
	for _, c := range checks {
		results = append(results, r.runOne(ctx, c))
	}

	d := Decide(rec, results, r.Threshold, now)
	if bypass {
		d.Outcome = OutcomeBypassed
		d.Record.LastOutcome = string(OutcomeBypassed)
		d.Reason = "halt rule bypassed by operator; counter updated from check results"
	}
	if err := r.Store.Save(d.Record); err != nil {
		return d, err
	}
	return d, nil
}

func (r *Runner) runOne(ctx context.Context, c Check) CheckResult {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return c.Run(ctx)
}
