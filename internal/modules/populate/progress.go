package populate

import (
	"time"
)

// progressReporter turns batch completions into throttled progress
// callbacks. It observes the loop only; affected counts never pass
// through it.
type progressReporter struct {
	phase       string
	report      func(phase string, processed, total int, perSec float64)
	total       int
	processed   int
	started     time.Time
	minInterval time.Duration
	lastAt      time.Time
}

func newProgressReporter(phase string, report func(phase string, processed, total int, perSec float64), total int, minInterval time.Duration) *progressReporter {
	if minInterval <= 0 {
		minInterval = 2 * time.Second
	}
	return &progressReporter{
		phase:       phase,
		report:      report,
		total:       total,
		started:     time.Now(),
		minInterval: minInterval,
	}
}

// Advance records items more processed. The first and final updates are
// always reported; intermediate ones are dropped while they arrive faster
// than minInterval.
func (p *progressReporter) Advance(items int) {
	if p == nil || p.report == nil {
		return
	}
	if items < 0 {
		items = 0
	}
	p.processed += items
	if p.processed > p.total {
		p.processed = p.total
	}

	now := time.Now()
	first := p.lastAt.IsZero()
	final := p.processed >= p.total
	if !first && !final && now.Sub(p.lastAt) < p.minInterval {
		return
	}
	p.lastAt = now
	p.report(p.phase, p.processed, p.total, p.perSec(now))
}

func (p *progressReporter) perSec(now time.Time) float64 {
	elapsed := now.Sub(p.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.processed) / elapsed
}
