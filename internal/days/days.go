// Package days materialises calendar dates on demand and removes them once
// nothing is attached.
package days

import (
	"context"
	"fmt"

	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/store"
)

// GetOrCreate returns the Day of (calendarID, date), creating it if needed.
// It is safe under concurrent callers: the unique (calendar_id, day_date)
// key makes every caller converge on the same row.
func GetOrCreate(ctx context.Context, days store.DayRepository, calendarID int64, date store.Date) (*store.Day, error) {
	if err := days.InsertIgnore(ctx, calendarID, date); err != nil {
		return nil, err
	}
	day, err := days.Find(ctx, calendarID, date)
	if err != nil {
		return nil, fmt.Errorf("load day %s: %w", date, err)
	}
	return day, nil
}

type permissionChecker interface {
	Require(ctx context.Context, userID, calendarID int64, required store.PermissionType) error
}

// Manager exposes day operations to callers holding the right permission.
type Manager struct {
	store  *store.Store
	access permissionChecker
}

func NewManager(s *store.Store, access permissionChecker) *Manager {
	return &Manager{store: s, access: access}
}

// GetOrCreateDay requires write on calendarID.
func (m *Manager) GetOrCreateDay(ctx context.Context, userID, calendarID int64, date store.Date) (*store.Day, error) {
	if err := m.access.Require(ctx, userID, calendarID, store.PermissionWrite); err != nil {
		return nil, err
	}

	var day *store.Day
	err := m.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		day, err = GetOrCreate(ctx, q.Days, calendarID, date)
		return err
	})
	if err != nil {
		return nil, apperr.Internal(err, "create day")
	}
	return day, nil
}

// Find returns the day, or nil when the date has not been materialised.
func (m *Manager) Find(ctx context.Context, userID, calendarID int64, date store.Date) (*store.Day, error) {
	if err := m.access.Require(ctx, userID, calendarID, store.PermissionRead); err != nil {
		return nil, err
	}

	day, err := m.store.Days.Find(ctx, calendarID, date)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err, "find day")
	}
	return day, nil
}

// ListRange returns the materialised days between from and to, inclusive.
func (m *Manager) ListRange(ctx context.Context, userID, calendarID int64, from, to store.Date) ([]store.Day, error) {
	if err := m.access.Require(ctx, userID, calendarID, store.PermissionRead); err != nil {
		return nil, err
	}
	if to.Time().Before(from.Time()) {
		return nil, apperr.BadRequest("end date %s is before start date %s", to, from)
	}

	days, err := m.store.Days.ListRange(ctx, calendarID, from, to)
	if err != nil {
		return nil, apperr.Internal(err, "list days")
	}
	return days, nil
}

// TryDeleteIfEmpty removes the day when no todo or scheduled ticket points
// at it. An occupied day is reported as not deleted, without error.
func (m *Manager) TryDeleteIfEmpty(ctx context.Context, userID, calendarID int64, date store.Date) (bool, error) {
	if err := m.access.Require(ctx, userID, calendarID, store.PermissionWrite); err != nil {
		return false, err
	}

	var deleted bool
	err := m.store.InTx(ctx, func(q *store.Queries) error {
		day, err := q.Days.Find(ctx, calendarID, date)
		if err != nil {
			return err
		}
		n, err := q.Tickets.CountOnDay(ctx, day.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := q.Days.Delete(ctx, day.ID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	switch {
	case apperr.Is(err, apperr.KindNotFound):
		return false, apperr.NotFound("Day not found.")
	case err != nil:
		return false, apperr.Internal(err, "delete day")
	}
	return deleted, nil
}
