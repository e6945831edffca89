package tickets

import (
	"context"

	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/store"
)

// ListTodo returns the untimed tickets on date. A date with no Day row
// yields an empty slice.
func (s *Service) ListTodo(ctx context.Context, userID, calendarID int64, date store.Date) ([]store.TicketView, error) {
	return s.listOnDate(ctx, userID, calendarID, date, store.ParentTodoList)
}

// ListScheduled returns the time-slotted tickets on date.
func (s *Service) ListScheduled(ctx context.Context, userID, calendarID int64, date store.Date) ([]store.TicketView, error) {
	return s.listOnDate(ctx, userID, calendarID, date, store.ParentScheduledList)
}

// ListForDay returns every ticket attached to date.
func (s *Service) ListForDay(ctx context.Context, userID, calendarID int64, date store.Date) ([]store.TicketView, error) {
	return s.listOnDate(ctx, userID, calendarID, date, "")
}

func (s *Service) listOnDate(ctx context.Context, userID, calendarID int64, date store.Date, only store.ParentType) ([]store.TicketView, error) {
	if err := s.access.Require(ctx, userID, calendarID, store.PermissionRead); err != nil {
		return nil, err
	}

	day, err := s.store.Days.Find(ctx, calendarID, date)
	if apperr.Is(err, apperr.KindNotFound) {
		return []store.TicketView{}, nil
	}
	if err != nil {
		return nil, apperr.Internal(err, "find day")
	}
	views, err := s.store.Tickets.ListOnDay(ctx, day.ID, only)
	if err != nil {
		return nil, apperr.Internal(err, "list day tickets")
	}
	return views, nil
}

// ListForDayID returns every ticket attached to a day by its id. Read
// access is checked against the day's own calendar.
func (s *Service) ListForDayID(ctx context.Context, userID, dayID int64) ([]store.TicketView, error) {
	day, err := s.store.Days.GetByID(ctx, dayID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound("Day not found.")
	}
	if err != nil {
		return nil, apperr.Internal(err, "get day")
	}
	if err := s.access.Require(ctx, userID, day.CalendarID, store.PermissionRead); err != nil {
		return nil, err
	}

	views, err := s.store.Tickets.ListOnDay(ctx, day.ID, "")
	if err != nil {
		return nil, apperr.Internal(err, "list day tickets")
	}
	return views, nil
}

// ListInList returns the tickets resting in a calendar list.
func (s *Service) ListInList(ctx context.Context, userID, listID int64) ([]store.Ticket, error) {
	list, err := s.store.Lists.GetByID(ctx, listID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound("Calendar list not found.")
	}
	if err != nil {
		return nil, apperr.Internal(err, "get calendar list")
	}
	if err := s.access.Require(ctx, userID, list.CalendarID, store.PermissionRead); err != nil {
		return nil, err
	}

	tickets, err := s.store.Tickets.ListInList(ctx, list.ID)
	if err != nil {
		return nil, apperr.Internal(err, "list tickets")
	}
	return tickets, nil
}
