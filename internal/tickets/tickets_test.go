package tickets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitea.jw6.us/james/shalendar/internal/access"
	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/notify"
	"gitea.jw6.us/james/shalendar/internal/notify/notifytest"
	"gitea.jw6.us/james/shalendar/internal/store"
	"gitea.jw6.us/james/shalendar/internal/testutil"
)

type fixture struct {
	store *store.Store
	svc   *Service
	pub   *notifytest.Publisher
	owner *store.User
	cal   *store.Calendar
	list  *store.CalendarList
	actor access.Actor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s := testutil.NewStore(t)
	owner := testutil.SeedUser(t, s, "anna")
	cal, list := testutil.SeedCalendar(t, s, owner.ID, "Work")
	pub := &notifytest.Publisher{}
	return fixture{
		store: s,
		svc:   NewService(s, access.NewResolver(s.Permissions, s.Calendars), pub),
		pub:   pub,
		owner: owner,
		cal:   cal,
		list:  list,
		actor: access.Actor{UserID: owner.ID, CalendarID: cal.ID},
	}
}

func (f fixture) create(t *testing.T, name string) *store.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), f.actor, CreateRequest{Name: name, CalendarListID: f.list.ID})
	require.NoError(t, err)
	return ticket
}

func clock(s string) *store.ClockTime {
	c := store.MustClock(s)
	return &c
}

func TestScheduleAndMoveBackRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := store.MustDate("2025-03-24")

	ticket := f.create(t, "Report")
	assert.Equal(t, store.InList{ListID: f.list.ID}, ticket.Placement)

	scheduled, err := f.svc.Schedule(ctx, f.actor, ScheduleRequest{
		TicketID: ticket.ID,
		Date:     date,
		Start:    clock("09:00"),
		End:      clock("10:00"),
	})
	require.NoError(t, err)

	day, err := f.store.Days.Find(ctx, f.cal.ID, date)
	require.NoError(t, err)
	assert.Equal(t, store.ScheduledOn{DayID: day.ID, Start: store.MustClock("09:00"), End: store.MustClock("10:00")}, scheduled.Placement)

	views, err := f.svc.ListScheduled(ctx, f.owner.ID, f.cal.ID, date)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Report", views[0].Name)
	require.NotNil(t, views[0].Color)
	assert.Equal(t, "#45DFB1", *views[0].Color)

	back, err := f.svc.MoveBack(ctx, f.actor, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, store.InList{ListID: f.list.ID}, back.Placement)
	start, end := back.Times()
	assert.Nil(t, start)
	assert.Nil(t, end)

	_, err = f.store.Days.GetByID(ctx, day.ID)
	require.NoError(t, err, "vacated day must survive")

	assert.Equal(t, []string{
		notify.TicketCreatedInCalendarLists,
		notify.TicketScheduled,
		notify.TicketMovedBackToCalendar,
	}, f.pub.Names())
	assert.Equal(t, date, f.pub.Events()[2].Payload)
}

func TestCreateOnDateWithoutTimesIsTodo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := store.MustDate("2025-04-01")

	ticket, err := f.svc.Create(ctx, f.actor, CreateRequest{Name: "Call", CalendarListID: f.list.ID, Date: &date})
	require.NoError(t, err)

	_, ok := ticket.Placement.(store.OnDay)
	assert.True(t, ok)
	assert.Equal(t, 1, ticket.Position)

	second, err := f.svc.Create(ctx, f.actor, CreateRequest{Name: "Mail", CalendarListID: f.list.ID, Date: &date})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position)

	todo, err := f.svc.ListTodo(ctx, f.owner.ID, f.cal.ID, date)
	require.NoError(t, err)
	assert.Len(t, todo, 2)

	events := f.pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, notify.TicketCreatedInDayView, events[0].Name)
	assert.Equal(t, date, events[0].Payload)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := store.MustDate("2025-04-01")

	_, err := f.svc.Create(ctx, f.actor, CreateRequest{Name: "  ", CalendarListID: f.list.ID})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = f.svc.Create(ctx, f.actor, CreateRequest{Name: "x", CalendarListID: f.list.ID, Date: &date, Start: clock("09:00")})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = f.svc.Create(ctx, f.actor, CreateRequest{Name: "x", CalendarListID: f.list.ID, Start: clock("09:00"), End: clock("10:00")})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = f.svc.Create(ctx, f.actor, CreateRequest{Name: "x", CalendarListID: f.list.ID + 1000})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	assert.Empty(t, f.pub.Events())
}

func TestReaderCannotMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reader := testutil.SeedUser(t, f.store, "ben")
	testutil.Grant(t, f.store, f.cal.ID, reader.ID, store.PermissionRead)
	ticket := f.create(t, "Report")

	as := access.Actor{UserID: reader.ID, CalendarID: f.cal.ID}
	_, err := f.svc.Create(ctx, as, CreateRequest{Name: "x", CalendarListID: f.list.ID})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	err = f.svc.Delete(ctx, as, ticket.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.ListForDay(ctx, reader.ID, f.cal.ID, store.MustDate("2025-01-01"))
	assert.NoError(t, err)
}

func TestForeignTicketIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t, "Report")

	other, _ := testutil.SeedCalendar(t, f.store, f.owner.ID, "Home")
	as := access.Actor{UserID: f.owner.ID, CalendarID: other.ID}

	_, err := f.svc.MoveBack(ctx, as, ticket.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	err = f.svc.Delete(ctx, as, ticket.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestScheduleFromAnotherDayNotifiesBoth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := store.MustDate("2025-05-01")
	second := store.MustDate("2025-05-02")

	ticket, err := f.svc.Create(ctx, f.actor, CreateRequest{Name: "Move me", CalendarListID: f.list.ID, Date: &first})
	require.NoError(t, err)
	f.pub.Reset()

	moved, err := f.svc.Schedule(ctx, f.actor, ScheduleRequest{TicketID: ticket.ID, Date: second})
	require.NoError(t, err)
	_, ok := moved.Placement.(store.OnDay)
	assert.True(t, ok, "no time range keeps it a todo")

	events := f.pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, second, events[0].Payload)
	assert.Equal(t, first, events[1].Payload)
}

func TestScheduleRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t, "Report")

	_, err := f.svc.Schedule(ctx, f.actor, ScheduleRequest{TicketID: 0, Date: store.MustDate("2025-01-01")})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = f.svc.Schedule(ctx, f.actor, ScheduleRequest{TicketID: ticket.ID, CalendarID: f.cal.ID + 1, Date: store.MustDate("2025-01-01")})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = f.svc.Schedule(ctx, f.actor, ScheduleRequest{TicketID: ticket.ID, Date: store.MustDate("2025-01-01"), End: clock("10:00")})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestMoveBackRejectsListTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t, "Report")

	_, err := f.svc.MoveBack(context.Background(), f.actor, ticket.ID)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestUpdateTogglesScheduledState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := store.MustDate("2025-06-10")

	ticket, err := f.svc.Create(ctx, f.actor, CreateRequest{Name: "Standup", CalendarListID: f.list.ID, Date: &date})
	require.NoError(t, err)
	dayID, _ := ticket.DayID()

	updated, err := f.svc.Update(ctx, f.actor, UpdateRequest{ID: ticket.ID, Name: "Standup", Start: clock("08:30"), End: clock("08:45")})
	require.NoError(t, err)
	assert.Equal(t, store.ScheduledOn{DayID: dayID, Start: store.MustClock("08:30"), End: store.MustClock("08:45")}, updated.Placement)

	updated, err = f.svc.Update(ctx, f.actor, UpdateRequest{ID: ticket.ID, Name: "Standup"})
	require.NoError(t, err)
	assert.Equal(t, store.OnDay{DayID: dayID}, updated.Placement)

	list := f.create(t, "Backlog")
	updated, err = f.svc.Update(ctx, f.actor, UpdateRequest{ID: list.ID, Name: "Backlog item", Start: clock("08:30"), End: clock("08:45")})
	require.NoError(t, err)
	assert.Equal(t, store.InList{ListID: f.list.ID}, updated.Placement)
	assert.Equal(t, notify.TicketUpdatedInCalendarLists, f.pub.Names()[len(f.pub.Names())-1])
}

func TestChangeDateKeepsTimes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	from := store.MustDate("2025-07-01")
	to := store.MustDate("2025-07-03")

	ticket, err := f.svc.Create(ctx, f.actor, CreateRequest{
		Name: "Review", CalendarListID: f.list.ID, Date: &from, Start: clock("13:00"), End: clock("14:00"),
	})
	require.NoError(t, err)
	f.pub.Reset()

	moved, err := f.svc.ChangeDate(ctx, f.actor, ticket.ID, to)
	require.NoError(t, err)
	start, end := moved.Times()
	require.NotNil(t, start)
	assert.Equal(t, "13:00:00", start.String())
	assert.Equal(t, "14:00:00", end.String())

	events := f.pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, notify.TicketMovedBetweenDays, events[0].Name)
	assert.Equal(t, to, events[0].Payload)
	assert.Equal(t, from, events[1].Payload)

	listTicket := f.create(t, "Loose")
	_, err = f.svc.ChangeDate(ctx, f.actor, listTicket.ID, to)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestReorderSkipsUnknownAndSkipsIfAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "a")
	b := f.create(t, "b")
	f.pub.Reset()

	err := f.svc.Reorder(ctx, f.actor, []OrderUpdate{
		{TicketID: b.ID, Position: 1},
		{TicketID: 99999, Position: 5},
		{TicketID: a.ID, Position: 2},
	})
	require.NoError(t, err)

	inList, err := f.svc.ListInList(ctx, f.owner.ID, f.list.ID)
	require.NoError(t, err)
	require.Len(t, inList, 2)
	assert.Equal(t, b.ID, inList[0].ID)
	assert.Equal(t, a.ID, inList[1].ID)

	events := f.pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.TicketReorderedInCalendarLists, events[0].Name)
	assert.True(t, events[0].SkipIfAlone)

	err = f.svc.Reorder(ctx, f.actor, nil)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestSetCompletedAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := store.MustDate("2025-08-08")

	ticket, err := f.svc.Create(ctx, f.actor, CreateRequest{Name: "Ship", CalendarListID: f.list.ID, Date: &date})
	require.NoError(t, err)
	f.pub.Reset()

	done, err := f.svc.SetCompleted(ctx, f.actor, ticket.ID, true)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)

	require.NoError(t, f.svc.Delete(ctx, f.actor, ticket.ID))
	_, err = f.store.Tickets.GetByID(ctx, ticket.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	assert.Equal(t, []string{notify.TicketCompletedUpdatedInDayView, notify.TicketDeletedInDayView}, f.pub.Names())
	assert.Equal(t, date, f.pub.Events()[1].Payload)
}

func TestListForDayID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	date := store.MustDate("2025-09-09")

	ticket, err := f.svc.Create(ctx, f.actor, CreateRequest{Name: "Plan", CalendarListID: f.list.ID, Date: &date})
	require.NoError(t, err)
	dayID, _ := ticket.DayID()

	views, err := f.svc.ListForDayID(ctx, f.owner.ID, dayID)
	require.NoError(t, err)
	assert.Len(t, views, 1)

	stranger := testutil.SeedUser(t, f.store, "carl")
	_, err = f.svc.ListForDayID(ctx, stranger.ID, dayID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.ListForDayID(ctx, f.owner.ID, dayID+100)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
