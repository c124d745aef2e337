package resource

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Quota is a bounded, periodically-reset counter of resource consumption.
// Allocate and Release are atomic check-and-swap operations; an allocation
// that would exceed the maximum fails without mutating current usage.
type Quota struct {
	name          string
	max           int64
	unit          string
	resetInterval time.Duration

	current   atomic.Int64
	lastReset atomic.Int64 // unix nanos

	now func() time.Time
}

// NewQuota creates a quota. resetInterval of zero disables periodic resets.
func NewQuota(name string, max int64, unit string, resetInterval time.Duration) (*Quota, error) {
	if max <= 0 {
		return nil, fmt.Errorf("quota %s: max must be positive, got %d", name, max)
	}
	q := &Quota{
		name:          name,
		max:           max,
		unit:          unit,
		resetInterval: resetInterval,
		now:           time.Now,
	}
	q.lastReset.Store(q.now().UnixNano())
	return q, nil
}

// Allocate reserves amount against the quota.
func (q *Quota) Allocate(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("quota %s: negative allocation %d", q.name, amount)
	}
	q.maybeReset()

	for {
		cur := q.current.Load()
		next := cur + amount
		if next > q.max {
			quotaExceeded.WithLabelValues(q.name).Inc()
			return fmt.Errorf("quota %s: %d + %d exceeds %d %s: %w",
				q.name, cur, amount, q.max, q.unit, ErrQuotaExceeded)
		}
		if q.current.CompareAndSwap(cur, next) {
			return nil
		}
	}
}

// Release returns amount to the quota, clamping at zero.
func (q *Quota) Release(amount int64) {
	if amount <= 0 {
		return
	}
	for {
		cur := q.current.Load()
		next := cur - amount
		if next < 0 {
			next = 0
		}
		if q.current.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Usage returns current usage.
func (q *Quota) Usage() int64 {
	q.maybeReset()
	return q.current.Load()
}

// Remaining returns the unallocated amount.
func (q *Quota) Remaining() int64 {
	q.maybeReset()
	return q.max - q.current.Load()
}

// maybeReset zeroes usage when the reset interval has elapsed. The CAS on
// lastReset ensures exactly one caller performs the reset.
func (q *Quota) maybeReset() {
	if q.resetInterval <= 0 {
		return
	}
	nowN := q.now().UnixNano()
	last := q.lastReset.Load()
	if nowN-last < int64(q.resetInterval) {
		return
	}
	if q.lastReset.CompareAndSwap(last, nowN) {
		q.current.Store(0)
	}
}
