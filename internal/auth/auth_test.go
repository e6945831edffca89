package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitea.jw6.us/james/shalendar/internal/access"
	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/calendars"
	"gitea.jw6.us/james/shalendar/internal/config"
	"gitea.jw6.us/james/shalendar/internal/notify/notifytest"
	"gitea.jw6.us/james/shalendar/internal/store"
	"gitea.jw6.us/james/shalendar/internal/testutil"
)

func testConfig() *config.Config {
	cfg := &config.Config{BaseURL: "http://localhost:8080"}
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	return cfg
}

type fixture struct {
	store    *store.Store
	svc      *Service
	sessions *SessionManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	s := testutil.NewStore(t)
	resolver := access.NewResolver(s.Permissions, s.Calendars)
	cals := calendars.NewService(s, resolver, &notifytest.Publisher{}, zerolog.Nop())
	sessions := NewSessionManager(testConfig())
	return fixture{
		store:    s,
		svc:      NewService(s, sessions, resolver, cals, zerolog.Nop()),
		sessions: sessions,
	}
}

func TestValidatePassword(t *testing.T) {
	cases := map[string]bool{
		"short1A":   false,
		"alllower1": false,
		"NoDigitsX": false,
		"Valid123":  true,
	}
	for pw, ok := range cases {
		err := ValidatePassword(pw)
		if ok {
			assert.NoError(t, err, pw)
		} else {
			assert.True(t, apperr.Is(err, apperr.KindBadRequest), pw)
		}
	}
}

func TestRegisterCreatesDefaultCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "anna", "anna@example.com", "Secret123")
	require.NoError(t, err)
	require.NotNil(t, user.DefaultCalendarID)
	assert.NotEqual(t, "Secret123", user.PasswordHash)

	cal, err := f.store.Calendars.GetByID(ctx, *user.DefaultCalendarID)
	require.NoError(t, err)
	assert.Equal(t, "anna's Default Calendar", cal.Name)

	perm, err := f.store.Permissions.Get(ctx, cal.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, store.PermissionOwner, perm.Type)

	lists, err := f.store.Lists.ListByCalendar(ctx, cal.ID)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "#CCCCCC", *lists[0].Color)

	_, err = f.svc.Register(ctx, "other", "anna@example.com", "Secret123")
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestLoginSetsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	registered, err := f.svc.Register(ctx, "anna", "anna@example.com", "Secret123")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	_, err = f.svc.Login(ctx, rec, "nobody@example.com", "Secret123")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = f.svc.Login(ctx, rec, "anna@example.com", "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	user, err := f.svc.Login(ctx, rec, "anna@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	id, ok := f.sessions.CurrentUserID(req)
	require.True(t, ok)
	assert.Equal(t, registered.ID, id)
}

func TestExpiredSessionRejected(t *testing.T) {
	m := NewSessionManager(testConfig())
	rec := httptest.NewRecorder()
	require.NoError(t, m.Issue(rec, 7))

	m.now = func() time.Time { return time.Now().Add(2 * sessionTTL) }
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	_, ok := m.CurrentUserID(req)
	assert.False(t, ok)
}

func TestRequireSession(t *testing.T) {
	f := newFixture(t)
	var status int
	h := f.svc.RequireSession(func(w http.ResponseWriter, _ *http.Request, err error) {
		status = http.StatusUnauthorized
		w.WriteHeader(status)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, int64(42), id)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	issued := httptest.NewRecorder()
	require.NoError(t, f.sessions.Issue(issued, 42))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range issued.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.svc.Register(ctx, "anna", "anna@example.com", "Secret123")
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, user.ID, "wrong", "Newpass123")
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	err = f.svc.ChangePassword(ctx, user.ID, "Secret123", "weak")
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	require.NoError(t, f.svc.ChangePassword(ctx, user.ID, "Secret123", "Newpass123"))

	_, err = f.svc.Login(ctx, httptest.NewRecorder(), "anna@example.com", "Newpass123")
	assert.NoError(t, err)
}

func TestSetDefaultCalendarNeedsRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna, err := f.svc.Register(ctx, "anna", "anna@example.com", "Secret123")
	require.NoError(t, err)
	ben, err := f.svc.Register(ctx, "ben", "ben@example.com", "Secret123")
	require.NoError(t, err)

	err = f.svc.SetDefaultCalendar(ctx, ben.ID, *anna.DefaultCalendarID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	testutil.Grant(t, f.store, *anna.DefaultCalendarID, ben.ID, store.PermissionRead)
	require.NoError(t, f.svc.SetDefaultCalendar(ctx, ben.ID, *anna.DefaultCalendarID))
}

func TestDeleteAccountKeepsSharedCalendars(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna, err := f.svc.Register(ctx, "anna", "anna@example.com", "Secret123")
	require.NoError(t, err)
	ben, err := f.svc.Register(ctx, "ben", "ben@example.com", "Secret123")
	require.NoError(t, err)
	testutil.Grant(t, f.store, *ben.DefaultCalendarID, anna.ID, store.PermissionWrite)

	require.NoError(t, f.svc.DeleteAccount(ctx, anna.ID))

	_, err = f.store.Users.GetByID(ctx, anna.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.store.Calendars.GetByID(ctx, *anna.DefaultCalendarID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.store.Calendars.GetByID(ctx, *ben.DefaultCalendarID)
	assert.NoError(t, err)
	_, err = f.store.Permissions.Get(ctx, *ben.DefaultCalendarID, anna.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
