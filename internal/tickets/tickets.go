// Package tickets moves tickets between calendar lists and days.
package tickets

import (
	"context"
	"strings"

	"gitea.jw6.us/james/shalendar/internal/access"
	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/days"
	"gitea.jw6.us/james/shalendar/internal/notify"
	"gitea.jw6.us/james/shalendar/internal/store"
)

type permissionChecker interface {
	Require(ctx context.Context, userID, calendarID int64, required store.PermissionType) error
}

// Service owns ticket placement. Every mutation requires write on the
// actor's calendar and publishes after commit.
type Service struct {
	store  *store.Store
	access permissionChecker
	pub    notify.Publisher
}

func NewService(s *store.Store, access permissionChecker, pub notify.Publisher) *Service {
	return &Service{store: s, access: access, pub: pub}
}

// CreateRequest describes a new ticket. Without Date the ticket rests in
// CalendarListID; with Date it lands on that day, scheduled when both
// times are given.
type CreateRequest struct {
	Name           string
	Description    *string
	Priority       *int
	Position       *int
	IsCompleted    bool
	CalendarListID int64
	Date           *store.Date
	Start          *store.ClockTime
	End            *store.ClockTime
}

type ScheduleRequest struct {
	TicketID int64
	// CalendarID defaults to the actor's calendar and must match it.
	CalendarID int64
	Date       store.Date
	Start      *store.ClockTime
	End        *store.ClockTime
}

type UpdateRequest struct {
	ID          int64
	Name        string
	Description *string
	Priority    *int
	Start       *store.ClockTime
	End         *store.ClockTime
}

// OrderUpdate sets one ticket's position.
type OrderUpdate struct {
	TicketID int64
	Position int
}

// location is where a ticket sat, captured before a mutation so the
// notification can name the right view.
type location struct {
	onDay bool
	date  store.Date
}

func checkRange(start, end *store.ClockTime) error {
	if (start == nil) != (end == nil) {
		return apperr.BadRequest("StartTime and EndTime must be set together.")
	}
	return nil
}

// loadTicket returns the ticket when its home list belongs to calendarID.
// Tickets of other calendars are reported as missing.
func loadTicket(ctx context.Context, q *store.Queries, calendarID, ticketID int64) (*store.Ticket, error) {
	ticket, err := q.Tickets.GetByID(ctx, ticketID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound("Ticket not found.")
	}
	if err != nil {
		return nil, err
	}
	list, err := q.Lists.GetByID(ctx, ticket.CalendarListID)
	if apperr.Is(err, apperr.KindNotFound) || (err == nil && list.CalendarID != calendarID) {
		return nil, apperr.NotFound("Ticket not found.")
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func locate(ctx context.Context, q *store.Queries, t *store.Ticket) (location, error) {
	dayID, ok := t.DayID()
	if !ok {
		return location{}, nil
	}
	day, err := q.Days.GetByID(ctx, dayID)
	if apperr.Is(err, apperr.KindNotFound) {
		return location{}, apperr.BadRequest("Associated Day not found.")
	}
	if err != nil {
		return location{}, err
	}
	return location{onDay: true, date: day.Date}, nil
}

// publishAt picks the list-view or day-view event for loc.
func (s *Service) publishAt(ctx context.Context, calendarID int64, loc location, listEvent, dayEvent string, opts ...notify.PublishOption) {
	if loc.onDay {
		s.pub.Publish(ctx, calendarID, dayEvent, loc.date, opts...)
		return
	}
	s.pub.Publish(ctx, calendarID, listEvent, nil, opts...)
}

// run executes fn in a transaction and classifies failures: domain errors
// pass through, anything else becomes Internal.
func (s *Service) run(ctx context.Context, op string, fn func(q *store.Queries) error) error {
	err := s.store.InTx(ctx, fn)
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Internal(err, "%s", op)
}

func (s *Service) Create(ctx context.Context, actor access.Actor, req CreateRequest) (*store.Ticket, error) {
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionWrite); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperr.BadRequest("Ticket name is required.")
	}
	if err := checkRange(req.Start, req.End); err != nil {
		return nil, err
	}
	if req.Date == nil && req.Start != nil {
		return nil, apperr.BadRequest("A time range needs a date.")
	}

	var (
		created *store.Ticket
		loc     location
	)
	err := s.run(ctx, "create ticket", func(q *store.Queries) error {
		list, err := q.Lists.GetByID(ctx, req.CalendarListID)
		if apperr.Is(err, apperr.KindNotFound) || (err == nil && list.CalendarID != actor.CalendarID) {
			return apperr.NotFound("Calendar list not found.")
		}
		if err != nil {
			return err
		}

		var placement store.Placement = store.InList{ListID: list.ID}
		if req.Date != nil {
			day, err := days.GetOrCreate(ctx, q.Days, actor.CalendarID, *req.Date)
			if err != nil {
				return err
			}
			placement = store.DayPlacement(day.ID, req.Start, req.End)
			loc = location{onDay: true, date: day.Date}
		}

		position, err := nextPosition(ctx, q, placement, req.Position)
		if err != nil {
			return err
		}
		created, err = q.Tickets.Create(ctx, store.Ticket{
			Name:           req.Name,
			Description:    req.Description,
			Priority:       req.Priority,
			Position:       position,
			IsCompleted:    req.IsCompleted,
			CalendarListID: list.ID,
			Placement:      placement,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishAt(ctx, actor.CalendarID, loc, notify.TicketCreatedInCalendarLists, notify.TicketCreatedInDayView)
	return created, nil
}

func nextPosition(ctx context.Context, q *store.Queries, p store.Placement, requested *int) (int, error) {
	if requested != nil {
		return *requested, nil
	}
	highest, err := q.Tickets.MaxPosition(ctx, p)
	if err != nil {
		return 0, err
	}
	return highest + 1, nil
}

// Schedule attaches the ticket to a day, with a time range when both
// times are given. A ticket leaving another day notifies that day too.
func (s *Service) Schedule(ctx context.Context, actor access.Actor, req ScheduleRequest) (*store.Ticket, error) {
	if req.TicketID <= 0 {
		return nil, apperr.BadRequest("Invalid data.")
	}
	if req.CalendarID == 0 {
		req.CalendarID = actor.CalendarID
	}
	if req.CalendarID != actor.CalendarID {
		return nil, apperr.BadRequest("CalendarId does not match %s.", access.CalendarHeader)
	}
	if req.Date.IsZero() {
		return nil, apperr.BadRequest("Invalid date format.")
	}
	if err := checkRange(req.Start, req.End); err != nil {
		return nil, err
	}
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionWrite); err != nil {
		return nil, err
	}

	var (
		ticket      *store.Ticket
		prev        location
		prevDayID   int64
		target      *store.Day
		leftPrevDay bool
	)
	err := s.run(ctx, "schedule ticket", func(q *store.Queries) error {
		var err error
		if ticket, err = loadTicket(ctx, q, actor.CalendarID, req.TicketID); err != nil {
			return err
		}
		if prev, err = locate(ctx, q, ticket); err != nil {
			return err
		}
		prevDayID, _ = ticket.DayID()

		if target, err = days.GetOrCreate(ctx, q.Days, req.CalendarID, req.Date); err != nil {
			return err
		}
		ticket.Placement = store.DayPlacement(target.ID, req.Start, req.End)
		leftPrevDay = prev.onDay && prevDayID != target.ID
		return q.Tickets.Update(ctx, *ticket)
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ctx, actor.CalendarID, notify.TicketScheduled, target.Date)
	if leftPrevDay {
		s.pub.Publish(ctx, actor.CalendarID, notify.TicketScheduled, prev.date)
	}
	return ticket, nil
}

// MoveBack returns a day ticket to its home list and clears its times.
// The vacated day is left in place.
func (s *Service) MoveBack(ctx context.Context, actor access.Actor, ticketID int64) (*store.Ticket, error) {
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionWrite); err != nil {
		return nil, err
	}

	var (
		ticket *store.Ticket
		prev   location
	)
	err := s.run(ctx, "move ticket back", func(q *store.Queries) error {
		var err error
		if ticket, err = loadTicket(ctx, q, actor.CalendarID, ticketID); err != nil {
			return err
		}
		if _, onDay := ticket.DayID(); !onDay {
			return apperr.BadRequest("Ticket is not on a day.")
		}
		if prev, err = locate(ctx, q, ticket); err != nil {
			return err
		}
		ticket.Placement = store.InList{ListID: ticket.CalendarListID}
		return q.Tickets.Update(ctx, *ticket)
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ctx, actor.CalendarID, notify.TicketMovedBackToCalendar, prev.date)
	return ticket, nil
}

// Update rewrites the editable fields. On a day, the presence of a time
// range decides between todo and scheduled without changing the day;
// list tickets never carry times.
func (s *Service) Update(ctx context.Context, actor access.Actor, req UpdateRequest) (*store.Ticket, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperr.BadRequest("Ticket name is required.")
	}
	if err := checkRange(req.Start, req.End); err != nil {
		return nil, err
	}
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionWrite); err != nil {
		return nil, err
	}

	var (
		ticket *store.Ticket
		prev   location
	)
	err := s.run(ctx, "update ticket", func(q *store.Queries) error {
		var err error
		if ticket, err = loadTicket(ctx, q, actor.CalendarID, req.ID); err != nil {
			return err
		}
		if prev, err = locate(ctx, q, ticket); err != nil {
			return err
		}

		ticket.Name = req.Name
		ticket.Description = req.Description
		ticket.Priority = req.Priority
		if dayID, onDay := ticket.DayID(); onDay {
			ticket.Placement = store.DayPlacement(dayID, req.Start, req.End)
		}
		return q.Tickets.Update(ctx, *ticket)
	})
	if err != nil {
		return nil, err
	}

	s.publishAt(ctx, actor.CalendarID, prev, notify.TicketUpdatedInCalendarLists, notify.TicketUpdatedInDayView)
	return ticket, nil
}

// SetCompleted only flips the completion flag.
func (s *Service) SetCompleted(ctx context.Context, actor access.Actor, ticketID int64, completed bool) (*store.Ticket, error) {
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionWrite); err != nil {
		return nil, err
	}

	var (
		ticket *store.Ticket
		loc    location
	)
	err := s.run(ctx, "complete ticket", func(q *store.Queries) error {
		var err error
		if ticket, err = loadTicket(ctx, q, actor.CalendarID, ticketID); err != nil {
			return err
		}
		if loc, err = locate(ctx, q, ticket); err != nil {
			return err
		}
		ticket.IsCompleted = completed
		return q.Tickets.SetCompleted(ctx, ticket.ID, completed)
	})
	if err != nil {
		return nil, err
	}

	s.publishAt(ctx, actor.CalendarID, loc, notify.TicketCompletedUpdatedInCalendarLists, notify.TicketCompletedUpdatedInDayView)
	return ticket, nil
}

// ChangeDate moves a day ticket to another date of the same calendar,
// keeping its time range. The old day is not removed.
func (s *Service) ChangeDate(ctx context.Context, actor access.Actor, ticketID int64, date store.Date) (*store.Ticket, error) {
	if date.IsZero() {
		return nil, apperr.BadRequest("Invalid date format.")
	}
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionWrite); err != nil {
		return nil, err
	}

	var (
		ticket  *store.Ticket
		prevDay *store.Day
		newDay  *store.Day
	)
	err := s.run(ctx, "change ticket date", func(q *store.Queries) error {
		var err error
		if ticket, err = loadTicket(ctx, q, actor.CalendarID, ticketID); err != nil {
			return err
		}
		dayID, onDay := ticket.DayID()
		if !onDay {
			return apperr.BadRequest("Calendar not found for the ticket.")
		}
		prevDay, err = q.Days.GetByID(ctx, dayID)
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.BadRequest("Calendar not found for the ticket.")
		}
		if err != nil {
			return err
		}

		if newDay, err = days.GetOrCreate(ctx, q.Days, prevDay.CalendarID, date); err != nil {
			return err
		}
		start, end := ticket.Times()
		ticket.Placement = store.DayPlacement(newDay.ID, start, end)
		return q.Tickets.Update(ctx, *ticket)
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ctx, actor.CalendarID, notify.TicketMovedBetweenDays, newDay.Date)
	s.pub.Publish(ctx, actor.CalendarID, notify.TicketMovedBetweenDays, prevDay.Date)
	return ticket, nil
}

// Reorder applies positions as given; unknown tickets are skipped. The
// first ticket decides which view is notified.
func (s *Service) Reorder(ctx context.Context, actor access.Actor, updates []OrderUpdate) error {
	if len(updates) == 0 {
		return apperr.BadRequest("Invalid order update data.")
	}
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionWrite); err != nil {
		return err
	}

	var loc location
	err := s.run(ctx, "reorder tickets", func(q *store.Queries) error {
		for _, u := range updates {
			if _, err := loadTicket(ctx, q, actor.CalendarID, u.TicketID); err != nil {
				if apperr.Is(err, apperr.KindNotFound) {
					continue
				}
				return err
			}
			if _, err := q.Tickets.SetPosition(ctx, u.TicketID, u.Position); err != nil {
				return err
			}
		}

		first, err := loadTicket(ctx, q, actor.CalendarID, updates[0].TicketID)
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.BadRequest("No valid tickets found.")
		}
		if err != nil {
			return err
		}
		loc, err = locate(ctx, q, first)
		return err
	})
	if err != nil {
		return err
	}

	s.publishAt(ctx, actor.CalendarID, loc, notify.TicketReorderedInCalendarLists, notify.TicketReorderedInDayView, notify.SkipIfAlone())
	return nil
}

func (s *Service) Delete(ctx context.Context, actor access.Actor, ticketID int64) error {
	if err := s.access.Require(ctx, actor.UserID, actor.CalendarID, store.PermissionWrite); err != nil {
		return err
	}

	var loc location
	err := s.run(ctx, "delete ticket", func(q *store.Queries) error {
		ticket, err := loadTicket(ctx, q, actor.CalendarID, ticketID)
		if err != nil {
			return err
		}
		if loc, err = locate(ctx, q, ticket); err != nil {
			return err
		}
		return q.Tickets.Delete(ctx, ticket.ID)
	})
	if err != nil {
		return err
	}

	s.publishAt(ctx, actor.CalendarID, loc, notify.TicketDeletedInCalendarLists, notify.TicketDeletedInDayView)
	return nil
}
