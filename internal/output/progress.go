package output

import (
	"fmt"
	"sync"
)

// PercentReporter fires only when the integer percentage of a download
// changes, so chunk-level updates do not flood the terminal.
type PercentReporter struct {
	mu     sync.Mutex
	total  int64
	last   int
	notify func(percent int, downloaded, total int64)
}

func NewPercentReporter(total int64, notify func(percent int, downloaded, total int64)) *PercentReporter {
	return &PercentReporter{total: total, last: -1, notify: notify}
}

// Update records the cumulative downloaded byte count and reports whether a
// notification was emitted.
func (p *PercentReporter) Update(downloaded int64) bool {
	if p.total <= 0 {
		return false
	}
	percent := int(downloaded * 100 / p.total)
	p.mu.Lock()
	if percent == p.last {
		p.mu.Unlock()
		return false
	}
	p.last = percent
	p.mu.Unlock()
	if p.notify != nil {
		p.notify(percent, downloaded, p.total)
	}
	return true
}

// PrintPercent is the terminal notifier used by the CLI.
func PrintPercent(percent int, downloaded, total int64) {
	fmt.Fprintf(Out, "Downloaded %d%% %s\n", percent, ProgressBar(downloaded, total))
}
