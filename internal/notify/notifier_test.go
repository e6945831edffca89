package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToGroupMembers(t *testing.T) {
	reg := NewRegistry()
	reg.Add("3", "a")
	reg.Add("3", "b")
	reg.Add("4", "c")
	rec := &Recorder{}
	n := NewNotifier(reg, rec, zerolog.Nop())

	n.Publish(context.Background(), 3, TicketScheduled, "2025-03-24")

	got := rec.Deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a", "b"}, got[0].ConnIDs)
	assert.Equal(t, Event{Name: TicketScheduled, Payload: "2025-03-24"}, got[0].Event)
}

func TestPublishSkipsEmptyGroup(t *testing.T) {
	rec := &Recorder{}
	n := NewNotifier(NewRegistry(), rec, zerolog.Nop())

	n.Publish(context.Background(), 9, CalendarDeleted, nil)
	assert.Empty(t, rec.Deliveries())
}

func TestPublishSkipIfAlone(t *testing.T) {
	reg := NewRegistry()
	reg.Add("5", "only")
	rec := &Recorder{}
	n := NewNotifier(reg, rec, zerolog.Nop())

	n.Publish(context.Background(), 5, TicketReorderedInCalendarLists, nil, SkipIfAlone())
	assert.Empty(t, rec.Deliveries())

	n.Publish(context.Background(), 5, TicketCreatedInCalendarLists, nil)
	assert.Len(t, rec.Deliveries(), 1)

	reg.Add("5", "second")
	n.Publish(context.Background(), 5, TicketReorderedInCalendarLists, nil, SkipIfAlone())
	assert.Len(t, rec.Deliveries(), 2)
}

func TestPublishSwallowsDeliveryErrors(t *testing.T) {
	reg := NewRegistry()
	reg.Add("6", "a")
	var logs bytes.Buffer
	rec := &Recorder{Err: errors.New("socket closed")}
	n := NewNotifier(reg, rec, zerolog.New(&logs))

	assert.NotPanics(t, func() {
		n.Publish(context.Background(), 6, TicketDeletedInDayView, "2025-03-24")
	})
	assert.Contains(t, logs.String(), "notification delivery failed")
	assert.Contains(t, logs.String(), TicketDeletedInDayView)
}

func TestSkipsIfAlone(t *testing.T) {
	assert.False(t, SkipsIfAlone())
	assert.True(t, SkipsIfAlone(SkipIfAlone()))
}
