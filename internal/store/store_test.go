package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitea.jw6.us/james/shalendar/internal/store"
	"gitea.jw6.us/james/shalendar/internal/testutil"
)

func TestDaysInsertIgnoreIsIdempotent(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "anna")
	cal, _ := testutil.SeedCalendar(t, s, owner.ID, "Home")
	date := store.MustDate("2025-03-24")

	require.NoError(t, s.Days.InsertIgnore(ctx, cal.ID, date))
	require.NoError(t, s.Days.InsertIgnore(ctx, cal.ID, date))

	days, err := s.Days.ListByCalendar(ctx, cal.ID)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.True(t, days[0].Date.Equal(date))

	found, err := s.Days.Find(ctx, cal.ID, date)
	require.NoError(t, err)
	assert.Equal(t, days[0].ID, found.ID)

	_, err = s.Days.Find(ctx, cal.ID, store.MustDate("2025-03-25"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDaysListRangeIsInclusive(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "anna")
	cal, _ := testutil.SeedCalendar(t, s, owner.ID, "Home")

	for _, d := range []string{"2025-03-01", "2025-03-10", "2025-03-31", "2025-04-01"} {
		require.NoError(t, s.Days.InsertIgnore(ctx, cal.ID, store.MustDate(d)))
	}

	days, err := s.Days.ListRange(ctx, cal.ID, store.MustDate("2025-03-01"), store.MustDate("2025-03-31"))
	require.NoError(t, err)
	var got []string
	for _, d := range days {
		got = append(got, d.Date.String())
	}
	assert.Equal(t, []string{"2025-03-01", "2025-03-10", "2025-03-31"}, got)
}

func TestTicketPlacementRoundTrip(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "anna")
	cal, list := testutil.SeedCalendar(t, s, owner.ID, "Home")
	require.NoError(t, s.Days.InsertIgnore(ctx, cal.ID, store.MustDate("2025-03-24")))
	day, err := s.Days.Find(ctx, cal.ID, store.MustDate("2025-03-24"))
	require.NoError(t, err)

	desc := "bring receipts"
	prio := 2
	cases := []store.Placement{
		store.InList{ListID: list.ID},
		store.OnDay{DayID: day.ID},
		store.ScheduledOn{DayID: day.ID, Start: store.MustClock("09:00"), End: store.MustClock("10:30")},
	}
	for _, p := range cases {
		created, err := s.Tickets.Create(ctx, store.Ticket{
			Name:           "Taxes",
			Description:    &desc,
			Priority:       &prio,
			Position:       1,
			CalendarListID: list.ID,
			Placement:      p,
		})
		require.NoError(t, err)

		loaded, err := s.Tickets.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, p, loaded.Placement)
		assert.Equal(t, "Taxes", loaded.Name)
		require.NotNil(t, loaded.Description)
		assert.Equal(t, desc, *loaded.Description)
		require.NotNil(t, loaded.Priority)
		assert.Equal(t, prio, *loaded.Priority)
	}
}

func TestTicketMaxPositionSeparatesParents(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "anna")
	cal, list := testutil.SeedCalendar(t, s, owner.ID, "Home")
	require.NoError(t, s.Days.InsertIgnore(ctx, cal.ID, store.MustDate("2025-03-24")))
	day, err := s.Days.Find(ctx, cal.ID, store.MustDate("2025-03-24"))
	require.NoError(t, err)

	empty, err := s.Tickets.MaxPosition(ctx, store.OnDay{DayID: day.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, empty)

	_, err = s.Tickets.Create(ctx, store.Ticket{Name: "a", Position: 4, CalendarListID: list.ID, Placement: store.OnDay{DayID: day.ID}})
	require.NoError(t, err)
	_, err = s.Tickets.Create(ctx, store.Ticket{Name: "b", Position: 7, CalendarListID: list.ID,
		Placement: store.ScheduledOn{DayID: day.ID, Start: store.MustClock("08:00"), End: store.MustClock("09:00")}})
	require.NoError(t, err)
	_, err = s.Tickets.Create(ctx, store.Ticket{Name: "c", Position: 11, CalendarListID: list.ID, Placement: store.InList{ListID: list.ID}})
	require.NoError(t, err)

	onDay, err := s.Tickets.MaxPosition(ctx, store.OnDay{DayID: day.ID})
	require.NoError(t, err)
	assert.Equal(t, 7, onDay)

	inList, err := s.Tickets.MaxPosition(ctx, store.InList{ListID: list.ID})
	require.NoError(t, err)
	assert.Equal(t, 11, inList)
}

func TestListOnDayCarriesListColour(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "anna")
	cal, list := testutil.SeedCalendar(t, s, owner.ID, "Home")
	require.NoError(t, s.Days.InsertIgnore(ctx, cal.ID, store.MustDate("2025-03-24")))
	day, err := s.Days.Find(ctx, cal.ID, store.MustDate("2025-03-24"))
	require.NoError(t, err)

	_, err = s.Tickets.Create(ctx, store.Ticket{Name: "todo", Position: 1, CalendarListID: list.ID, Placement: store.OnDay{DayID: day.ID}})
	require.NoError(t, err)
	_, err = s.Tickets.Create(ctx, store.Ticket{Name: "slot", Position: 2, CalendarListID: list.ID,
		Placement: store.ScheduledOn{DayID: day.ID, Start: store.MustClock("08:00"), End: store.MustClock("09:00")}})
	require.NoError(t, err)

	all, err := s.Tickets.ListOnDay(ctx, day.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].Color)
	assert.Equal(t, "#45DFB1", *all[0].Color)

	scheduled, err := s.Tickets.ListOnDay(ctx, day.ID, store.ParentScheduledList)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "slot", scheduled[0].Name)
}

func TestFindByNameColorTreatsNullColoursAsEqual(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "anna")
	cal, seeded := testutil.SeedCalendar(t, s, owner.ID, "Home")

	plain, err := s.Lists.Create(ctx, store.CalendarList{Name: "Errands", CalendarID: cal.ID})
	require.NoError(t, err)

	got, err := s.Lists.FindByNameColor(ctx, cal.ID, "Errands", nil)
	require.NoError(t, err)
	assert.Equal(t, plain.ID, got.ID)

	got, err = s.Lists.FindByNameColor(ctx, cal.ID, "Default List", seeded.Color)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)

	other := "#000000"
	_, err = s.Lists.FindByNameColor(ctx, cal.ID, "Default List", &other)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPermissionUpsertReplacesLevel(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "anna")
	guest := testutil.SeedUser(t, s, "ben")
	cal, _ := testutil.SeedCalendar(t, s, owner.ID, "Home")

	require.NoError(t, s.Permissions.Upsert(ctx, cal.ID, guest.ID, store.PermissionRead))
	require.NoError(t, s.Permissions.Upsert(ctx, cal.ID, guest.ID, store.PermissionWrite))

	p, err := s.Permissions.Get(ctx, cal.ID, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, store.PermissionWrite, p.Type)

	grants, err := s.Permissions.ListGrants(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, []store.PermissionGrant{
		{Email: "anna@example.com", Type: store.PermissionOwner},
		{Email: "ben@example.com", Type: store.PermissionWrite},
	}, grants)

	owners, err := s.Permissions.CountOwners(ctx, cal.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, owners)
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(q *store.Queries) error {
		if _, err := q.Calendars.Create(ctx, "Doomed"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	owner := testutil.SeedUser(t, s, "anna")
	cals, err := s.Calendars.ListWithPermission(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, cals)

	var count int
	require.NoError(t, s.DB().GetContext(ctx, &count, `SELECT COUNT(*) FROM calendars`))
	assert.Zero(t, count)
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.InTx(ctx, func(q *store.Queries) error {
			if _, err := q.Calendars.Create(ctx, "Doomed"); err != nil {
				return err
			}
			panic("boom")
		})
	})

	var count int
	require.NoError(t, s.DB().GetContext(ctx, &count, `SELECT COUNT(*) FROM calendars`))
	assert.Zero(t, count)
}

func TestDeleteForCalendarRemovesDayAndListTickets(t *testing.T) {
	s := testutil.NewStore(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, s, "anna")
	cal, list := testutil.SeedCalendar(t, s, owner.ID, "Home")
	_, otherList := testutil.SeedCalendar(t, s, owner.ID, "Work")
	require.NoError(t, s.Days.InsertIgnore(ctx, cal.ID, store.MustDate("2025-03-24")))
	day, err := s.Days.Find(ctx, cal.ID, store.MustDate("2025-03-24"))
	require.NoError(t, err)

	_, err = s.Tickets.Create(ctx, store.Ticket{Name: "d", CalendarListID: list.ID, Placement: store.OnDay{DayID: day.ID}})
	require.NoError(t, err)
	_, err = s.Tickets.Create(ctx, store.Ticket{Name: "l", CalendarListID: list.ID, Placement: store.InList{ListID: list.ID}})
	require.NoError(t, err)
	keep, err := s.Tickets.Create(ctx, store.Ticket{Name: "k", CalendarListID: otherList.ID, Placement: store.InList{ListID: otherList.ID}})
	require.NoError(t, err)

	n, err := s.Tickets.DeleteForCalendar(ctx, []int64{day.ID}, []int64{list.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = s.Tickets.GetByID(ctx, keep.ID)
	require.NoError(t, err)

	n, err = s.Tickets.DeleteForCalendar(ctx, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
