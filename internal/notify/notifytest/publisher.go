// Package notifytest provides a Publisher that records events for tests.
package notifytest

import (
	"context"
	"sync"

	"gitea.jw6.us/james/shalendar/internal/notify"
)

// Published is one recorded Publish call.
type Published struct {
	CalendarID  int64
	Name        string
	Payload     any
	SkipIfAlone bool
}

// Publisher records every Publish call. Publishing to a real Notifier with
// a Recorder transport needs live subscribers; this does not.
type Publisher struct {
	mu     sync.Mutex
	events []Published
}

func (p *Publisher) Publish(_ context.Context, calendarID int64, name string, payload any, opts ...notify.PublishOption) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Published{
		CalendarID:  calendarID,
		Name:        name,
		Payload:     payload,
		SkipIfAlone: notify.SkipsIfAlone(opts...),
	})
}

// Events returns a copy of what has been published so far.
func (p *Publisher) Events() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.events...)
}

// Names returns the published event names in order.
func (p *Publisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.Name)
	}
	return names
}

// Reset forgets recorded events.
func (p *Publisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
