package calendars

import (
	"context"
	"strings"

	"gitea.jw6.us/james/shalendar/internal/access"
	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/notify"
	"gitea.jw6.us/james/shalendar/internal/store"
)

// ListWithTickets is a calendar list with the tickets resting in it.
type ListWithTickets struct {
	store.CalendarList
	Tickets []store.Ticket
}

// Lists returns the calendar's lists, each with its list-parented tickets
// ordered by position.
func (s *Service) Lists(ctx context.Context, userID, calendarID int64) ([]ListWithTickets, error) {
	if err := s.access.Require(ctx, userID, calendarID, store.PermissionRead); err != nil {
		return nil, err
	}

	lists, err := s.store.Lists.ListByCalendar(ctx, calendarID)
	if err != nil {
		return nil, apperr.Internal(err, "list calendar lists")
	}
	if len(lists) == 0 {
		return nil, apperr.NotFound("No list found for this calendar")
	}

	out := make([]ListWithTickets, 0, len(lists))
	for _, l := range lists {
		tickets, err := s.store.Tickets.ListInList(ctx, l.ID)
		if err != nil {
			return nil, apperr.Internal(err, "list tickets of list %d", l.ID)
		}
		out = append(out, ListWithTickets{CalendarList: l, Tickets: tickets})
	}
	return out, nil
}

func (s *Service) CreateList(ctx context.Context, actor access.Actor, name string, color *string) (*store.CalendarList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("List name is required.")
	}
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionWrite); err != nil {
		return nil, err
	}

	list, err := s.store.Lists.Create(ctx, store.CalendarList{Name: name, Color: color, CalendarID: actor.CalendarID})
	if err != nil {
		return nil, apperr.Internal(err, "create calendar list")
	}
	s.pub.Publish(ctx, actor.CalendarID, notify.CalendarListCreated, nil, notify.SkipIfAlone())
	return list, nil
}

func (s *Service) UpdateList(ctx context.Context, actor access.Actor, listID int64, name string, color *string) (*store.CalendarList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("List name is required.")
	}
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionWrite); err != nil {
		return nil, err
	}

	var list *store.CalendarList
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		if list, err = lookupList(ctx, q, actor, listID); err != nil {
			return err
		}
		list.Name = name
		list.Color = color
		return q.Lists.Update(ctx, *list)
	})
	if err != nil {
		return nil, wrap(err, "update calendar list")
	}
	s.pub.Publish(ctx, actor.CalendarID, notify.CalendarListUpdated, nil, notify.SkipIfAlone())
	return list, nil
}

// DeleteList removes the list together with every ticket whose home it is.
func (s *Service) DeleteList(ctx context.Context, actor access.Actor, listID int64) error {
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionWrite); err != nil {
		return err
	}

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		list, err := lookupList(ctx, q, actor, listID)
		if err != nil {
			return err
		}
		if _, err := q.Tickets.DeleteByHomeList(ctx, list.ID); err != nil {
			return err
		}
		return q.Lists.Delete(ctx, list.ID)
	})
	if err != nil {
		return wrap(err, "delete calendar list")
	}
	s.pub.Publish(ctx, actor.CalendarID, notify.CalendarListDeleted, nil)
	return nil
}

// wrap keeps classified errors and marks the rest internal.
func wrap(err error, op string) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Internal(err, "%s", op)
}
