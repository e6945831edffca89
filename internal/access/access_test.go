package access

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/store"
)

func TestAllowsTable(t *testing.T) {
	const (
		r = store.PermissionRead
		w = store.PermissionWrite
		o = store.PermissionOwner
	)
	cases := []struct {
		actual, required store.PermissionType
		want             bool
	}{
		{o, r, true},
		{o, w, true},
		{o, o, true},
		{w, r, true},
		{w, w, true},
		{w, o, false},
		{r, r, true},
		{r, w, false},
		{r, o, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, Allows(tc.actual, tc.required), "actual=%s required=%s", tc.actual, tc.required)
	}
}

type fakePerms map[[2]int64]store.PermissionType

func (f fakePerms) Get(_ context.Context, calendarID, userID int64) (*store.Permission, error) {
	typ, ok := f[[2]int64{calendarID, userID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &store.Permission{CalendarID: calendarID, UserID: userID, Type: typ}, nil
}

type fakeCalendars map[int64]string

func (f fakeCalendars) GetByID(_ context.Context, id int64) (*store.Calendar, error) {
	name, ok := f[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &store.Calendar{ID: id, Name: name}, nil
}

type brokenPerms struct{}

func (brokenPerms) Get(context.Context, int64, int64) (*store.Permission, error) {
	return nil, errors.New("connection reset")
}

func TestHasPermissionMissingRowIsFalse(t *testing.T) {
	res := NewResolver(fakePerms{{1, 7}: store.PermissionRead}, fakeCalendars{})
	ctx := context.Background()

	ok, err := res.HasPermission(ctx, 8, 1, store.PermissionRead)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = res.HasPermission(ctx, 7, 1, store.PermissionRead)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasPermissionFromHeaderFailsClosed(t *testing.T) {
	res := NewResolver(fakePerms{{1, 7}: store.PermissionOwner}, fakeCalendars{})
	ctx := context.Background()

	for _, value := range []string{"", "abc", "1.5"} {
		h := http.Header{}
		if value != "" {
			h.Set(CalendarHeader, value)
		}
		ok, err := res.HasPermissionFromHeader(ctx, 7, h, store.PermissionRead)
		require.NoError(t, err)
		assert.Falsef(t, ok, "header %q", value)
	}

	h := http.Header{}
	h.Set(CalendarHeader, "1")
	ok, err := res.HasPermissionFromHeader(ctx, 7, h, store.PermissionOwner)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRequireNamesCalendar(t *testing.T) {
	res := NewResolver(fakePerms{{1, 7}: store.PermissionWrite}, fakeCalendars{1: "Family"})
	ctx := context.Background()

	require.NoError(t, res.Require(ctx, 7, 1, store.PermissionWrite))

	err := res.Require(ctx, 7, 1, store.PermissionOwner)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, "Required permission: owner for calendar: 'Family'", err.Error())

	err = res.Require(ctx, 7, 99, store.PermissionRead)
	assert.Equal(t, "Required permission: read", err.Error())
}

func TestRequireSurfacesStoreFailure(t *testing.T) {
	res := NewResolver(brokenPerms{}, fakeCalendars{})
	err := res.Require(context.Background(), 1, 1, store.PermissionRead)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestCalendarIDFromHeader(t *testing.T) {
	h := http.Header{}
	_, err := CalendarIDFromHeader(h)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	h.Set(CalendarHeader, "x1")
	_, err = CalendarIDFromHeader(h)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	h.Set(CalendarHeader, " 42 ")
	id, err := CalendarIDFromHeader(h)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}
