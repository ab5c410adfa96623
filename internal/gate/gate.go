package gate

import "time"

// Outcome is the terminal result of one gate run.
type Outcome string

const (
	OutcomePassed   Outcome = "passed"
	OutcomeFailed   Outcome = "failed"
	OutcomeHalted   Outcome = "halted"
	OutcomeBypassed Outcome = "bypassed"
)

// State is the coarse lifecycle position the gate rests in between runs.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePassed  State = "passed"
	StateFailed  State = "failed"
	StateHalted  State = "halted"
)

// StateOf derives the resting state from a persisted record. Running is
// never derived; it only exists while checks execute.
func StateOf(rec Record, threshold int) State {
	switch {
	case ShouldHalt(rec, threshold):
		return StateHalted
	case rec.LastOutcome == "":
		return StateIdle
	case rec.ConsecutiveFailures > 0:
		return StateFailed
	default:
		return StatePassed
	}
}

// Record is the persisted gate state. The failure counter survives across
// invocations; everything else is advisory.
type Record struct {
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastOutcome         string `json:"last_outcome,omitempty"`
	LastRunAt           string `json:"last_run_at,omitempty"`
}

// CheckResult is the observed result of one quality check.
type CheckResult struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Decision is what one gate evaluation produced. The embedded Record is
// the new state to persist.
type Decision struct {
	Outcome   Outcome       `json:"outcome"`
	State     State         `json:"state"`
	Counter   int           `json:"counter"`
	Threshold int           `json:"threshold"`
	Reason    string        `json:"reason"`
	Results   []CheckResult `json:"results,omitempty"`
	Record    Record        `json:"-"`
}

// ShouldHalt reports whether the failure streak has reached the halt
// threshold. It is evaluated before any check runs: a halted gate does
// no work until the operator intervenes.
func ShouldHalt(rec Record, threshold int) bool {
	return rec.ConsecutiveFailures >= threshold
}

// HaltDecision builds the decision for a halted gate without touching the
// counter. Halting is not a failure; the streak stays where it is.
func HaltDecision(rec Record, threshold int, now time.Time) Decision {
	rec.LastOutcome = string(OutcomeHalted)
	rec.LastRunAt = now.UTC().Format(time.RFC3339)
	return Decision{
		Outcome:   OutcomeHalted,
		State:     StateHalted,
		Counter:   rec.ConsecutiveFailures,
		Threshold: threshold,
		Reason:    "failure streak reached the halt threshold; fix the underlying checks or bypass explicitly",
		Record:    rec,
	}
}

// Decide folds a set of check results into the next gate state. Any
// failure increments the streak; a fully green run (an empty check set
// counts as green) resets it to zero. Decide is pure: same inputs, same
// decision.
func Decide(rec Record, results []CheckResult, threshold int, now time.Time) Decision {
	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}

	d := Decision{Threshold: threshold, Results: results}
	if failed == 0 {
		rec.ConsecutiveFailures = 0
		d.Outcome = OutcomePassed
		d.Reason = "all checks passed"
	} else {
		rec.ConsecutiveFailures++
		d.Outcome = OutcomeFailed
		d.Reason = failReason(failed, rec.ConsecutiveFailures, threshold)
	}
	rec.LastOutcome = string(d.Outcome)
	rec.LastRunAt = now.UTC().Format(time.RFC3339)
	d.Counter = rec.ConsecutiveFailures
	d.State = StateOf(rec, threshold)
	d.Record = rec
	return d
}

func failReason(failed, streak, threshold int) string {
	if streak >= threshold {
		return "checks failed; the gate will halt on the next run"
	}
	if failed == 1 {
		return "one check failed"
	}
	return "multiple checks failed"
}
