// Package replication copies tickets between calendars without creating
// duplicates on repeated runs.
package replication

import (
	"context"

	"github.com/rs/zerolog"

	"gitea.jw6.us/james/shalendar/internal/access"
	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/days"
	"gitea.jw6.us/james/shalendar/internal/notify"
	"gitea.jw6.us/james/shalendar/internal/store"
)

// CopyTicket copies sourceID into targetCalendarID using q, so it joins
// the caller's transaction. It reports false when the ticket or its home
// list is gone. A matching ticket already at the target counts as copied.
func CopyTicket(ctx context.Context, q *store.Queries, sourceID, targetCalendarID int64, date *store.Date) (bool, error) {
	src, err := q.Tickets.GetByID(ctx, sourceID)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	srcList, err := q.Lists.GetByID(ctx, src.CalendarListID)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return copyLoaded(ctx, q, src, srcList, targetCalendarID, date)
}

func copyLoaded(ctx context.Context, q *store.Queries, src *store.Ticket, srcList *store.CalendarList, targetCalendarID int64, date *store.Date) (bool, error) {
	targetList, err := q.Lists.FindByNameColor(ctx, targetCalendarID, srcList.Name, srcList.Color)
	if apperr.Is(err, apperr.KindNotFound) {
		targetList, err = q.Lists.Create(ctx, store.CalendarList{
			Name:       srcList.Name,
			Color:      srcList.Color,
			CalendarID: targetCalendarID,
		})
	}
	if err != nil {
		return false, err
	}

	var placement store.Placement = store.InList{ListID: targetList.ID}
	if date != nil {
		day, err := days.GetOrCreate(ctx, q.Days, targetCalendarID, *date)
		if err != nil {
			return false, err
		}
		start, end := src.Times()
		placement = store.DayPlacement(day.ID, start, end)
	}

	siblings, err := q.Tickets.ListByParent(ctx, placement)
	if err != nil {
		return false, err
	}
	for i := range siblings {
		if sameTicket(&siblings[i], src, targetList.ID) {
			return true, nil
		}
	}

	highest, err := q.Tickets.MaxPosition(ctx, placement)
	if err != nil {
		return false, err
	}
	_, err = q.Tickets.Create(ctx, store.Ticket{
		Name:           src.Name,
		Description:    src.Description,
		Priority:       src.Priority,
		Position:       highest + 1,
		IsCompleted:    src.IsCompleted,
		CalendarListID: targetList.ID,
		Placement:      placement,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// sameTicket treats nil and nil as equal for the optional fields.
func sameTicket(existing, src *store.Ticket, targetListID int64) bool {
	return existing.CalendarListID == targetListID &&
		existing.Name == src.Name &&
		existing.IsCompleted == src.IsCompleted &&
		equalPtr(existing.Description, src.Description) &&
		equalPtr(existing.Priority, src.Priority)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type permissionChecker interface {
	Require(ctx context.Context, userID, calendarID int64, required store.PermissionType) error
}

// Service copies on behalf of a user: read on the source calendar, write
// on the target.
type Service struct {
	store  *store.Store
	access permissionChecker
	pub    notify.Publisher
	logger zerolog.Logger
}

func NewService(s *store.Store, access permissionChecker, pub notify.Publisher, logger zerolog.Logger) *Service {
	return &Service{store: s, access: access, pub: pub, logger: logger}
}

func (s *Service) authorize(ctx context.Context, actor access.Actor, targetCalendarID int64) error {
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionRead); err != nil {
		return err
	}
	return s.access.Require(ctx, actor.UserID, targetCalendarID, store.PermissionWrite)
}

// CopyTicket copies one ticket of the actor's calendar. With a date the
// copy lands on that day of the target calendar, otherwise in the
// matching list.
func (s *Service) CopyTicket(ctx context.Context, actor access.Actor, ticketID, targetCalendarID int64, date *store.Date) error {
	if err := s.authorize(ctx, actor, targetCalendarID); err != nil {
		return err
	}

	var copied bool
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		src, err := q.Tickets.GetByID(ctx, ticketID)
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		srcList, err := q.Lists.GetByID(ctx, src.CalendarListID)
		if apperr.Is(err, apperr.KindNotFound) || (err == nil && srcList.CalendarID != actor.CalendarID) {
			return nil
		}
		if err != nil {
			return err
		}
		copied, err = copyLoaded(ctx, q, src, srcList, targetCalendarID, date)
		return err
	})
	if err != nil {
		return apperr.Internal(err, "copy ticket")
	}
	if !copied {
		return apperr.NotFound("Ticket or CalendarList not found.")
	}

	if date != nil {
		s.pub.Publish(ctx, targetCalendarID, notify.TicketCopiedInCalendar, *date)
	} else {
		s.pub.Publish(ctx, targetCalendarID, notify.TicketCopiedInCalendarLists, nil)
	}
	return nil
}

// CopyCalendar copies every ticket of the actor's calendar into the
// target: day tickets onto the same dates first, then list tickets. Each
// ticket is copied in its own transaction, so a failed run can simply be
// repeated. It returns how many tickets were processed.
func (s *Service) CopyCalendar(ctx context.Context, actor access.Actor, targetCalendarID int64) (int, error) {
	if err := s.authorize(ctx, actor, targetCalendarID); err != nil {
		return 0, err
	}

	copyOne := func(id int64, date *store.Date) error {
		return s.store.InTx(ctx, func(q *store.Queries) error {
			_, err := CopyTicket(ctx, q, id, targetCalendarID, date)
			return err
		})
	}

	var processed int
	sourceDays, err := s.store.Days.ListByCalendar(ctx, actor.CalendarID)
	if err != nil {
		return 0, apperr.Internal(err, "list source days")
	}
	for _, day := range sourceDays {
		onDay, err := s.store.Tickets.ListOnDay(ctx, day.ID, "")
		if err != nil {
			return processed, apperr.Internal(err, "list day tickets")
		}
		for _, t := range onDay {
			date := day.Date
			if err := copyOne(t.ID, &date); err != nil {
				return processed, apperr.Internal(err, "copy ticket %d", t.ID)
			}
			processed++
		}
	}

	lists, err := s.store.Lists.ListByCalendar(ctx, actor.CalendarID)
	if err != nil {
		return processed, apperr.Internal(err, "list source lists")
	}
	for _, list := range lists {
		inList, err := s.store.Tickets.ListInList(ctx, list.ID)
		if err != nil {
			return processed, apperr.Internal(err, "list tickets")
		}
		for _, t := range inList {
			if err := copyOne(t.ID, nil); err != nil {
				return processed, apperr.Internal(err, "copy ticket %d", t.ID)
			}
			processed++
		}
	}

	s.logger.Info().
		Int64("source_calendar_id", actor.CalendarID).
		Int64("target_calendar_id", targetCalendarID).
		Int("tickets", processed).
		Msg("calendar copied")
	s.pub.Publish(ctx, targetCalendarID, notify.CalendarCopied, nil)
	return processed, nil
}
