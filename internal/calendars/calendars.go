// Package calendars manages calendars, their sharing and their lists, and
// tears a calendar down once its last owner leaves.
package calendars

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"gitea.jw6.us/james/shalendar/internal/access"
	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/notify"
	"gitea.jw6.us/james/shalendar/internal/store"
)

const (
	DefaultListName  = "Default List"
	DefaultListColor = "#45DFB1"
)

type permissionChecker interface {
	Require(ctx context.Context, userID, calendarID int64, required store.PermissionType) error
}

type Service struct {
	store  *store.Store
	access permissionChecker
	pub    notify.Publisher
	logger zerolog.Logger
}

func NewService(s *store.Store, access permissionChecker, pub notify.Publisher, logger zerolog.Logger) *Service {
	return &Service{store: s, access: access, pub: pub, logger: logger}
}

// CreateWithDefaults creates a calendar owned by ownerID holding one
// default list of the given colour, inside the caller's transaction.
func CreateWithDefaults(ctx context.Context, q *store.Queries, ownerID int64, name, listColor string) (*store.Calendar, error) {
	cal, err := q.Calendars.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := q.Permissions.Upsert(ctx, cal.ID, ownerID, store.PermissionOwner); err != nil {
		return nil, err
	}
	color := listColor
	if _, err := q.Lists.Create(ctx, store.CalendarList{Name: DefaultListName, Color: &color, CalendarID: cal.ID}); err != nil {
		return nil, err
	}
	return cal, nil
}

func (s *Service) Create(ctx context.Context, userID int64, name string) (*store.Calendar, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("Calendar name is required.")
	}

	var cal *store.Calendar
	err := s.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		cal, err = CreateWithDefaults(ctx, q, userID, name, DefaultListColor)
		return err
	})
	if err != nil {
		return nil, apperr.Internal(err, "create calendar")
	}
	return cal, nil
}

// Get returns the calendar when userID may read it. A missing calendar is
// reported before a missing permission.
func (s *Service) Get(ctx context.Context, userID, calendarID int64) (*store.Calendar, error) {
	cal, err := s.GetPublic(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Require(ctx, userID, calendarID, store.PermissionRead); err != nil {
		return nil, err
	}
	return cal, nil
}

// GetPublic returns the calendar without a permission check; only its id
// and name are exposed.
func (s *Service) GetPublic(ctx context.Context, calendarID int64) (*store.Calendar, error) {
	cal, err := s.store.Calendars.GetByID(ctx, calendarID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound("Calendar not found.")
	}
	if err != nil {
		return nil, apperr.Internal(err, "get calendar")
	}
	return cal, nil
}

// Accessible lists the calendars userID may write to.
func (s *Service) Accessible(ctx context.Context, userID int64) ([]store.Calendar, error) {
	cals, err := s.store.Calendars.ListWithPermission(ctx, userID, store.PermissionOwner, store.PermissionWrite)
	if err != nil {
		return nil, apperr.Internal(err, "list accessible calendars")
	}
	if len(cals) == 0 {
		return nil, apperr.NotFound("No calendars found with owner or write permissions.")
	}
	return cals, nil
}

func (s *Service) PermissionsOf(ctx context.Context, userID int64) ([]store.Permission, error) {
	perms, err := s.store.Permissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err, "list permissions")
	}
	return perms, nil
}

// Permissions lists who can access the calendar. Owner only.
func (s *Service) Permissions(ctx context.Context, userID, calendarID int64) ([]store.PermissionGrant, error) {
	if err := s.access.Require(ctx, userID, calendarID, store.PermissionOwner); err != nil {
		return nil, err
	}
	grants, err := s.store.Permissions.ListGrants(ctx, calendarID)
	if err != nil {
		return nil, apperr.Internal(err, "list grants")
	}
	if len(grants) == 0 {
		return nil, apperr.NotFound("No permissions found for this calendar.")
	}
	return grants, nil
}

// Grant gives the user with email typ on the calendar, replacing any
// level they already hold. Owner only.
func (s *Service) Grant(ctx context.Context, userID, calendarID int64, email string, typ store.PermissionType) error {
	if !typ.Valid() {
		return apperr.BadRequest("Invalid permission type %q.", typ)
	}
	if err := s.access.Require(ctx, userID, calendarID, store.PermissionOwner); err != nil {
		return err
	}

	grantee, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.store.Permissions.Upsert(ctx, calendarID, grantee.ID, typ); err != nil {
		return apperr.Internal(err, "grant permission")
	}
	s.logger.Info().
		Int64("calendar_id", calendarID).
		Int64("grantee_id", grantee.ID).
		Str("permission", string(typ)).
		Msg("permission granted")
	return nil
}

// Revoke removes the grant of the user with email. Owner only.
func (s *Service) Revoke(ctx context.Context, userID, calendarID int64, email string) error {
	if err := s.access.Require(ctx, userID, calendarID, store.PermissionOwner); err != nil {
		return err
	}

	grantee, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	perm, err := s.store.Permissions.Get(ctx, calendarID, grantee.ID)
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.NotFound("Permission not found.")
	}
	if err != nil {
		return apperr.Internal(err, "get permission")
	}
	if err := s.store.Permissions.Delete(ctx, perm.ID); err != nil {
		return apperr.Internal(err, "revoke permission")
	}
	return nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (*store.User, error) {
	u, err := s.store.Users.GetByEmail(ctx, strings.TrimSpace(email))
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound("User not found.")
	}
	if err != nil {
		return nil, apperr.Internal(err, "get user")
	}
	return u, nil
}

// lookupList returns the list when it belongs to the actor's calendar.
func lookupList(ctx context.Context, q *store.Queries, actor access.Actor, listID int64) (*store.CalendarList, error) {
	list, err := q.Lists.GetByID(ctx, listID)
	if apperr.Is(err, apperr.KindNotFound) || (err == nil && list.CalendarID != actor.CalendarID) {
		return nil, apperr.NotFound("Calendar list not found.")
	}
	return list, err
}
