// Package debounce collapses bursts of field edits into a single resolver
// run per field, fired once the field has been quiet for its window.
package debounce

import (
	"sync"
	"time"

	"pickup_portal_backend/internal/locations/domain"
	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
)

// FireFunc receives the settled value of a field.
type FireFunc func(field domain.Field, value string)

type channel struct {
	window  time.Duration
	timer   *time.Timer
	seq     uint64
	value   string
	pending bool
}

// Trigger owns one independent timer channel per field. It never cancels
// work already handed to the FireFunc.
type Trigger struct {
	mu       sync.Mutex
	channels map[domain.Field]*channel
	fire     FireFunc
	stopped  bool
	log      *logger.Logger
}

// New creates a trigger with the given per-field quiet windows.
func New(windows map[domain.Field]time.Duration, fire FireFunc, log *logger.Logger) *Trigger {
	channels := make(map[domain.Field]*channel, len(windows))
	for field, window := range windows {
		channels[field] = &channel{window: window}
	}
	return &Trigger{channels: channels, fire: fire, log: log}
}

// NewFromConfig creates a trigger for the address and map link fields.
func NewFromConfig(cfg config.LocationSessionConfig, fire FireFunc, log *logger.Logger) *Trigger {
	return New(map[domain.Field]time.Duration{
		domain.FieldAddress: cfg.GetAddressDebounce(),
		domain.FieldMapLink: cfg.GetMapLinkDebounce(),
	}, fire, log)
}

// Change records a new value and restarts the field's window. Any timer
// armed by an earlier change is superseded and will not fire.
func (t *Trigger) Change(field domain.Field, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.channels[field]
	if !ok || t.stopped {
		if !ok {
			t.log.Warn("debounce: change on unknown field", "field", field)
		}
		return
	}

	ch.seq++
	if ch.timer != nil {
		ch.timer.Stop()
	}
	ch.value = value
	ch.pending = true

	seq := ch.seq
	ch.timer = time.AfterFunc(ch.window, func() {
		t.fireIfCurrent(field, seq)
	})
}

// fireIfCurrent runs from the timer goroutine. Timer.Stop can lose the race
// against an already-started callback, so the sequence is rechecked here.
func (t *Trigger) fireIfCurrent(field domain.Field, seq uint64) {
	t.mu.Lock()
	ch := t.channels[field]
	if t.stopped || ch.seq != seq || !ch.pending {
		t.mu.Unlock()
		return
	}
	ch.pending = false
	ch.timer = nil
	value := ch.value
	t.mu.Unlock()

	t.fire(field, value)
}

// Flush fires a pending field immediately on the calling goroutine.
// Returns false when nothing was pending.
func (t *Trigger) Flush(field domain.Field) bool {
	t.mu.Lock()
	ch, ok := t.channels[field]
	if !ok || t.stopped || !ch.pending {
		t.mu.Unlock()
		return false
	}
	ch.seq++
	if ch.timer != nil {
		ch.timer.Stop()
		ch.timer = nil
	}
	ch.pending = false
	value := ch.value
	t.mu.Unlock()

	t.fire(field, value)
	return true
}

// FlushAll flushes every pending field, map link first.
func (t *Trigger) FlushAll() int {
	flushed := 0
	for _, field := range []domain.Field{domain.FieldMapLink, domain.FieldAddress} {
		if t.Flush(field) {
			flushed++
		}
	}
	return flushed
}

// Cancel drops a pending change without firing it.
func (t *Trigger) Cancel(field domain.Field) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.channels[field]
	if !ok {
		return
	}
	ch.seq++
	if ch.timer != nil {
		ch.timer.Stop()
		ch.timer = nil
	}
	ch.pending = false
}

// Pending reports whether any field has an armed timer.
func (t *Trigger) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.channels {
		if ch.pending {
			return true
		}
	}
	return false
}

// Stop cancels all timers; the trigger ignores further changes.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for _, ch := range t.channels {
		ch.seq++
		if ch.timer != nil {
			ch.timer.Stop()
			ch.timer = nil
		}
		ch.pending = false
	}
}
