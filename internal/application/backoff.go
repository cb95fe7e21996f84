package application

import (
	"time"

	"invoicehub-sync/internal/domain"
)

// retryDelays is the fixed retry schedule for transient failures. The index
// advances once per consecutive transient failure and caps at the last
// entry.
var retryDelays = []time.Duration{
	1 * time.Second,
	60 * time.Second,
	300 * time.Second,
	900 * time.Second,
	3600 * time.Second,
	14400 * time.Second,
}

// RetrySchedule is a small explicit state machine over the fixed delay
// table, so retry policy is testable independently of the code that loops.
type RetrySchedule struct {
	failures  int
	permanent bool
}

// NewRetrySchedule returns a schedule with no observed failures.
func NewRetrySchedule() *RetrySchedule {
	return &RetrySchedule{}
}

// Observe feeds the outcome of an attempt into the schedule. A nil error
// resets to the start of the table; a transient failure advances one step;
// an auth failure short-circuits the schedule entirely until Reset.
func (r *RetrySchedule) Observe(err error) {
	if err == nil {
		r.failures = 0
		r.permanent = false
		return
	}

	if domain.IsAuth(err) {
		r.permanent = true
		return
	}

	r.failures++
}

// Next returns the delay before the next attempt, and false when no
// automatic retry should be scheduled: either nothing has failed yet or a
// permanent failure flagged the connection for manual re-authentication.
func (r *RetrySchedule) Next() (time.Duration, bool) {
	if r.permanent || r.failures == 0 {
		return 0, false
	}
	idx := r.failures - 1
	if idx >= len(retryDelays) {
		idx = len(retryDelays) - 1
	}
	return retryDelays[idx], true
}

// Reset clears the schedule after a manual re-authentication.
func (r *RetrySchedule) Reset() {
	r.failures = 0
	r.permanent = false
}
