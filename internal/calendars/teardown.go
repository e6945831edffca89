package calendars

import (
	"context"

	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/notify"
	"gitea.jw6.us/james/shalendar/internal/store"
)

// Outcome is what leaving a calendar amounted to.
type Outcome int

const (
	// OutcomeNothing means the user held no permission on the calendar.
	OutcomeNothing Outcome = iota
	// OutcomePermissionRemoved means only the user's grant was dropped.
	OutcomePermissionRemoved
	// OutcomeDeleted means the calendar and everything in it is gone.
	OutcomeDeleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomePermissionRemoved:
		return "User permission removed."
	case OutcomeDeleted:
		return "Calendar deleted."
	default:
		return "Nothing to remove."
	}
}

// decide removes userID's grant unless it is the calendar's sole owner,
// in which case the calendar itself should go.
func decide(ctx context.Context, q *store.Queries, userID, calendarID int64) (Outcome, error) {
	perm, err := q.Permissions.Get(ctx, calendarID, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return OutcomeNothing, nil
	}
	if err != nil {
		return OutcomeNothing, err
	}

	if perm.Type == store.PermissionOwner {
		owners, err := q.Permissions.CountOwners(ctx, calendarID)
		if err != nil {
			return OutcomeNothing, err
		}
		if owners <= 1 {
			return OutcomeDeleted, nil
		}
	}
	if err := q.Permissions.Delete(ctx, perm.ID); err != nil {
		return OutcomeNothing, err
	}
	return OutcomePermissionRemoved, nil
}

// purge removes the calendar with its permissions, tickets, days and
// lists, and clears it as anyone's default. A calendar row that is already
// gone is not an error.
func purge(ctx context.Context, q *store.Queries, calendarID int64) error {
	if _, err := q.Users.ClearDefaultCalendar(ctx, calendarID); err != nil {
		return err
	}
	if _, err := q.Permissions.DeleteByCalendar(ctx, calendarID); err != nil {
		return err
	}

	calDays, err := q.Days.ListByCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	dayIDs := make([]int64, 0, len(calDays))
	for _, d := range calDays {
		dayIDs = append(dayIDs, d.ID)
	}
	lists, err := q.Lists.ListByCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	listIDs := make([]int64, 0, len(lists))
	for _, l := range lists {
		listIDs = append(listIDs, l.ID)
	}

	if _, err := q.Tickets.DeleteForCalendar(ctx, dayIDs, listIDs); err != nil {
		return err
	}
	if _, err := q.Days.DeleteByCalendar(ctx, calendarID); err != nil {
		return err
	}
	if _, err := q.Lists.DeleteByCalendar(ctx, calendarID); err != nil {
		return err
	}
	if err := q.Calendars.Delete(ctx, calendarID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return err
	}
	return nil
}

// ShouldDelete reports whether userID is the calendar's sole owner. Any
// other holder loses their grant as a side effect and gets false.
func (s *Service) ShouldDelete(ctx context.Context, userID, calendarID int64) (bool, error) {
	var outcome Outcome
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		outcome, err = decide(ctx, q, userID, calendarID)
		return err
	})
	if err != nil {
		return false, apperr.Internal(err, "decide calendar deletion")
	}
	return outcome == OutcomeDeleted, nil
}

// DeleteCalendar tears the calendar down atomically and tells its viewers.
func (s *Service) DeleteCalendar(ctx context.Context, calendarID int64) error {
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		return purge(ctx, q, calendarID)
	})
	if err != nil {
		return apperr.Internal(err, "delete calendar %d", calendarID)
	}

	s.logger.Info().Int64("calendar_id", calendarID).Msg("calendar deleted")
	s.pub.Publish(ctx, calendarID, notify.CalendarDeleted, nil)
	return nil
}

// Delete is the user-facing leave: sole owners delete the calendar,
// everyone else just loses access.
func (s *Service) Delete(ctx context.Context, userID, calendarID int64) (Outcome, error) {
	var outcome Outcome
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		outcome, err = decide(ctx, q, userID, calendarID)
		return err
	})
	if err != nil {
		return OutcomeNothing, apperr.Internal(err, "decide calendar deletion")
	}
	if outcome != OutcomeDeleted {
		return outcome, nil
	}
	if err := s.DeleteCalendar(ctx, calendarID); err != nil {
		return OutcomeNothing, err
	}
	return OutcomeDeleted, nil
}
