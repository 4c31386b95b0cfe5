package core

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyExports is returned when every export slot stays busy for the
// limiter's wait time.
var ErrTooManyExports = errors.New("too many concurrent exports, please try again later")

const (
	// DefaultMaxConcurrentExports bounds open export cursors. Each one pins a
	// pooled connection for the whole response.
	DefaultMaxConcurrentExports = 8

	// DefaultExportWait is how long Acquire queues before rejecting.
	DefaultExportWait = 10 * time.Second
)

// ExportLimiter caps concurrent streaming exports so that long downloads
// cannot drain the connection pool for regular CRUD requests.
type ExportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
	served  atomic.Int64
	refused atomic.Int64
}

// NewExportLimiter allows at most maxConcurrent simultaneous exports.
// Non-positive arguments fall back to the package defaults.
func NewExportLimiter(maxConcurrent int, maxWait time.Duration) *ExportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentExports
	}
	if maxWait <= 0 {
		maxWait = DefaultExportWait
	}
	return &ExportLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to the configured time. It returns
// ErrTooManyExports on timeout and ctx.Err() when ctx ends first. Every
// successful Acquire must be paired with Release.
func (l *ExportLimiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		l.taken()
		return nil
	default:
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.taken()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		l.refused.Add(1)
		return ErrTooManyExports
	}
}

// TryAcquire takes a slot without waiting.
func (l *ExportLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.taken()
		return true
	default:
		return false
	}
}

func (l *ExportLimiter) taken() {
	l.active.Add(1)
	l.served.Add(1)
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *ExportLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of exports holding a slot.
func (l *ExportLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *ExportLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *ExportLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no export holds a slot or ctx ends. Shutdown
// calls it so in-flight downloads can finish.
func (l *ExportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// ExportLimiterStatus is a point-in-time view of the limiter for /health.
type ExportLimiterStatus struct {
	Active        int   `json:"active"`
	Available     int   `json:"available"`
	MaxConcurrent int   `json:"maxConcurrent"`
	Served        int64 `json:"served"`
	Refused       int64 `json:"refused"`
}

// Status snapshots the limiter.
func (l *ExportLimiter) Status() ExportLimiterStatus {
	return ExportLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
		Served:        l.served.Load(),
		Refused:       l.refused.Load(),
	}
}
