// Package access decides whether a user may act on a calendar.
package access

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/store"
)

// CalendarHeader carries the calendar a request operates in.
const CalendarHeader = "X-Calendar-Id"

// Allows applies the permission order owner >= write >= read. Write never
// satisfies owner.
func Allows(actual, required store.PermissionType) bool {
	switch {
	case actual == store.PermissionOwner:
		return true
	case actual == store.PermissionWrite && (required == store.PermissionRead || required == store.PermissionWrite):
		return true
	default:
		return actual == required
	}
}

// Actor is an authenticated user acting within the calendar named by the
// request header.
type Actor struct {
	UserID     int64
	CalendarID int64
}

type permissionSource interface {
	Get(ctx context.Context, calendarID, userID int64) (*store.Permission, error)
}

type calendarSource interface {
	GetByID(ctx context.Context, id int64) (*store.Calendar, error)
}

// Resolver answers permission questions from stored grants. It never writes.
type Resolver struct {
	perms     permissionSource
	calendars calendarSource
}

func NewResolver(perms permissionSource, calendars calendarSource) *Resolver {
	return &Resolver{perms: perms, calendars: calendars}
}

// HasPermission reports whether userID holds at least required on
// calendarID. A missing grant is a plain false.
func (r *Resolver) HasPermission(ctx context.Context, userID, calendarID int64, required store.PermissionType) (bool, error) {
	p, err := r.perms.Get(ctx, calendarID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load permission: %w", err)
	}
	return Allows(p.Type, required), nil
}

// HasPermissionFromHeader is HasPermission with the calendar taken from the
// X-Calendar-Id header. A missing or malformed header fails closed.
func (r *Resolver) HasPermissionFromHeader(ctx context.Context, userID int64, h http.Header, required store.PermissionType) (bool, error) {
	calendarID, err := CalendarIDFromHeader(h)
	if err != nil {
		return false, nil
	}
	return r.HasPermission(ctx, userID, calendarID, required)
}

// Require returns a Forbidden error naming the required level, and the
// calendar's name when it exists, unless userID holds it.
func (r *Resolver) Require(ctx context.Context, userID, calendarID int64, required store.PermissionType) error {
	ok, err := r.HasPermission(ctx, userID, calendarID, required)
	if err != nil {
		return apperr.Internal(err, "check permission")
	}
	if ok {
		return nil
	}

	var subject string
	if cal, err := r.calendars.GetByID(ctx, calendarID); err == nil {
		subject = cal.Name
	} else if !errors.Is(err, store.ErrNotFound) {
		return apperr.Internal(err, "load calendar")
	}
	return apperr.Forbidden(required, subject)
}

// CalendarIDFromHeader parses the X-Calendar-Id header. Absence or a
// non-integer value is a BadRequest, distinct from a permission failure.
func CalendarIDFromHeader(h http.Header) (int64, error) {
	raw := strings.TrimSpace(h.Get(CalendarHeader))
	if raw == "" {
		return 0, apperr.BadRequest("missing %s header", CalendarHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.BadRequest("invalid %s header", CalendarHeader)
	}
	return id, nil
}
