package notify

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"gitea.jw6.us/james/shalendar/internal/metrics"
)

// Transport delivers an event to a set of connections.
type Transport interface {
	Deliver(ctx context.Context, connIDs []string, ev Event) error
}

// Publisher is what mutating services depend on. Publishing never fails
// from the caller's point of view.
type Publisher interface {
	Publish(ctx context.Context, calendarID int64, name string, payload any, opts ...PublishOption)
}

type publishOptions struct {
	skipIfAlone bool
}

// PublishOption tunes a single Publish call.
type PublishOption func(*publishOptions)

// SkipIfAlone suppresses the broadcast when the group has a single
// subscriber, which is normally the session that made the change.
func SkipIfAlone() PublishOption {
	return func(o *publishOptions) { o.skipIfAlone = true }
}

// SkipsIfAlone reports whether opts request SkipIfAlone.
func SkipsIfAlone(opts ...PublishOption) bool {
	var o publishOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o.skipIfAlone
}

// GroupKey is the group name of a calendar.
func GroupKey(calendarID int64) string {
	return strconv.FormatInt(calendarID, 10)
}

// Notifier fans events out to a calendar's subscribers.
type Notifier struct {
	tracker   GroupTracker
	transport Transport
	logger    zerolog.Logger
}

func NewNotifier(tracker GroupTracker, transport Transport, logger zerolog.Logger) *Notifier {
	return &Notifier{tracker: tracker, transport: transport, logger: logger}
}

// Publish delivers name to every subscriber of the calendar's group.
// Delivery failures are logged and counted, never returned.
func (n *Notifier) Publish(ctx context.Context, calendarID int64, name string, payload any, opts ...PublishOption) {
	group := GroupKey(calendarID)
	if SkipsIfAlone(opts...) && n.tracker.IsAlone(group) {
		return
	}
	members := n.tracker.Members(group)
	if len(members) == 0 {
		return
	}

	if err := n.transport.Deliver(ctx, members, Event{Name: name, Payload: payload}); err != nil {
		metrics.NotificationFailed()
		n.logger.Warn().Err(err).
			Str("group", group).
			Str("event", name).
			Str("request_id", metrics.RequestIDFromContext(ctx)).
			Msg("notification delivery failed")
		return
	}
	metrics.NotificationPublished(name)
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, int64, string, any, ...PublishOption) {}
