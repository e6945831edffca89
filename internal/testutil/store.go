// Package testutil holds helpers shared by store-backed tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gitea.jw6.us/james/shalendar/internal/store"
)

// NewStore opens a fresh SQLite database under t.TempDir with all migrations
// applied. It automatically closes the store when the test completes.
func NewStore(t *testing.T) *store.Store {
	t.Helper()

	ctx := context.Background()
	s, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "shalendar.db"))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	if err := store.ApplyMigrations(ctx, s); err != nil {
		t.Fatalf("migrating test store: %v", err)
	}
	return s
}

// SeedUser inserts a user with a placeholder password hash.
func SeedUser(t *testing.T, s *store.Store, username string) *store.User {
	t.Helper()

	u, err := s.Users.Create(context.Background(), store.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return u
}

// SeedCalendar creates a calendar with one list and grants owner to ownerID.
func SeedCalendar(t *testing.T, s *store.Store, ownerID int64, name string) (*store.Calendar, *store.CalendarList) {
	t.Helper()

	ctx := context.Background()
	var (
		cal  *store.Calendar
		list *store.CalendarList
	)
	err := s.InTx(ctx, func(q *store.Queries) error {
		var err error
		if cal, err = q.Calendars.Create(ctx, name); err != nil {
			return err
		}
		if err = q.Permissions.Upsert(ctx, cal.ID, ownerID, store.PermissionOwner); err != nil {
			return err
		}
		color := "#45DFB1"
		list, err = q.Lists.Create(ctx, store.CalendarList{Name: "Default List", Color: &color, CalendarID: cal.ID})
		return err
	})
	if err != nil {
		t.Fatalf("seeding calendar %s: %v", name, err)
	}
	return cal, list
}

// Grant gives userID typ on calendarID.
func Grant(t *testing.T, s *store.Store, calendarID, userID int64, typ store.PermissionType) {
	t.Helper()

	if err := s.Permissions.Upsert(context.Background(), calendarID, userID, typ); err != nil {
		t.Fatalf("granting %s on %d to %d: %v", typ, calendarID, userID, err)
	}
}
