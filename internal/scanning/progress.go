package scanning

import "sync"

// Progress checkpoints shared by the recognizers.
const (
	ProgressStarted  = 0
	ProgressPrepared = 20
	ProgressSent     = 40
	ProgressDone     = 100
)

// ProgressReporter forwards progress to a ProgressFunc, clamped to [0, 100]
// and never moving backwards. A nil func is allowed.
type ProgressReporter struct {
	mu      sync.Mutex
	fn      ProgressFunc
	last    float64
	started bool
	stopped bool
}

// NewProgressReporter wraps fn
func NewProgressReporter(fn ProgressFunc) *ProgressReporter {
	return &ProgressReporter{fn: fn}
}

// Report forwards percent unless it would repeat or go back.
func (p *ProgressReporter) Report(percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	// fn runs under the lock so Stop cannot return while a callback is in flight
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || (p.started && percent <= p.last) {
		return
	}
	p.started = true
	p.last = percent

	if p.fn != nil {
		p.fn(percent)
	}
}

// Done reports completion.
func (p *ProgressReporter) Done() {
	p.Report(ProgressDone)
}

// Stop silences the reporter once the recognition has resolved. It waits
// for a callback already running.
func (p *ProgressReporter) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}
