package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitea.jw6.us/james/shalendar/internal/store"
)

type readersOf map[int64]bool

func (r readersOf) HasPermission(_ context.Context, _ int64, calendarID int64, _ store.PermissionType) (bool, error) {
	return r[calendarID], nil
}

type userKey struct{}

func newHubServer(t *testing.T, reg *Registry, readable readersOf) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(HubConfig{
		Tracker:    reg,
		Authorizer: readable,
		UserID: func(ctx context.Context) (int64, bool) {
			id, ok := ctx.Value(userKey{}).(int64)
			return id, ok
		},
		Logger: zerolog.Nop(),
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test-User") == "" {
			hub.ServeHTTP(w, r)
			return
		}
		hub.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, int64(1))))
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Test-User": []string{"1"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestHubRejectsAnonymous(t *testing.T) {
	_, srv := newHubServer(t, NewRegistry(), readersOf{})
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHubJoinPublishAndDisconnect(t *testing.T) {
	reg := NewRegistry()
	hub, srv := newHubServer(t, reg, readersOf{1: true})
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "join", Group: "1"}))
	var reply hubReply
	readJSON(t, conn, &reply)
	assert.Equal(t, hubReply{Type: "joined", Group: "1"}, reply)
	require.Len(t, reg.Members("1"), 1)

	n := NewNotifier(reg, hub, zerolog.Nop())
	n.Publish(context.Background(), 1, TicketCreatedInDayView, "2025-03-24")

	var ev struct {
		Event   string `json:"event"`
		Payload string `json:"payload"`
	}
	readJSON(t, conn, &ev)
	assert.Equal(t, TicketCreatedInDayView, ev.Event)
	assert.Equal(t, "2025-03-24", ev.Payload)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return len(reg.Members("1")) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubJoinRequiresReadPermission(t *testing.T) {
	reg := NewRegistry()
	_, srv := newHubServer(t, reg, readersOf{1: true})
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "join", Group: "2"}))
	var reply hubReply
	readJSON(t, conn, &reply)
	assert.Equal(t, "error", reply.Type)
	assert.Empty(t, reg.Members("2"))

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "join", Group: "abc"}))
	readJSON(t, conn, &reply)
	assert.Equal(t, "group must be a calendar id", reply.Message)
}

func TestHubDeliverSkipsUnknownConnections(t *testing.T) {
	hub := NewHub(HubConfig{Tracker: NewRegistry(), Logger: zerolog.Nop()})
	assert.NoError(t, hub.Deliver(context.Background(), []string{"ghost"}, Event{Name: CalendarCopied}))
}
