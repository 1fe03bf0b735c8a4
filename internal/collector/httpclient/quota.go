package httpclient

import (
	"sync"
	"time"
)

// DefaultRequestsPerDay is the YouTube Data API daily unit budget.
const DefaultRequestsPerDay = 10000

// quotaThreshold is the fraction of the daily limit after which requests
// are slowed down.
const quotaThreshold = 0.9

// Quota counts requests made against a daily limit. The counter resets once
// 24 hours have passed since the last reset. It never refuses a request; the
// client only pauses while the counter is near the limit.
type Quota struct {
	mu        sync.Mutex
	limit     int
	made      int
	lastReset time.Time
	now       func() time.Time
}

// NewQuota creates a quota counter. A non-positive limit selects
// DefaultRequestsPerDay.
func NewQuota(limit int) *Quota {
	if limit <= 0 {
		limit = DefaultRequestsPerDay
	}
	q := &Quota{limit: limit, now: time.Now}
	q.lastReset = q.now()
	return q
}

// Approaching reports whether at least 90% of the daily limit has been used.
func (q *Quota) Approaching() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetIfDue()
	return float64(q.made) >= quotaThreshold*float64(q.limit)
}

// Add records n completed requests.
func (q *Quota) Add(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetIfDue()
	q.made += n
}

// Used returns the number of requests counted since the last reset.
func (q *Quota) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resetIfDue()
	return q.made
}

// Limit returns the daily request limit.
func (q *Quota) Limit() int {
	return q.limit
}

func (q *Quota) resetIfDue() {
	now := q.now()
	if now.Sub(q.lastReset) >= 24*time.Hour {
		q.made = 0
		q.lastReset = now
	}
}
