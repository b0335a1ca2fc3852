package throttle

import (
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultInterval = time.Second

// Replenisher adds a fixed budget to a bucket every interval until the
// bucket is terminated. Unconsumed tokens carry over (a soft limit) unless
// hard is set, in which case the bucket is reset to the budget instead.
type Replenisher struct {
	bucket   *TokenBucket
	amount   int64
	interval time.Duration
	hard     bool
}

func NewReplenisher(bucket *TokenBucket, amount int64, interval time.Duration, hard bool) *Replenisher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Replenisher{bucket: bucket, amount: amount, interval: interval, hard: hard}
}

// Run blocks until the bucket is terminated.
func (r *Replenisher) Run() {
	if r.bucket.Unlimited() || r.amount <= 0 {
		<-r.bucket.Done()
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.bucket.Done():
			log.Debug().Str("op", "throttle/replenisher").Msg("bucket terminated, stopping")
			return
		case <-ticker.C:
			if r.hard {
				r.bucket.Set(r.amount)
			} else {
				r.bucket.Add(r.amount)
			}
		}
	}
}
