package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/calendars"
	"gitea.jw6.us/james/shalendar/internal/store"
)

const registrationListColor = "#CCCCCC"

type permissionChecker interface {
	Require(ctx context.Context, userID, calendarID int64, required store.PermissionType) error
}

type calendarLeaver interface {
	Delete(ctx context.Context, userID, calendarID int64) (calendars.Outcome, error)
}

// Service encapsulates account registration, login and removal.
type Service struct {
	store     *store.Store
	sessions  *SessionManager
	access    permissionChecker
	calendars calendarLeaver
	logger    zerolog.Logger
}

func NewService(s *store.Store, sessions *SessionManager, access permissionChecker, cals calendarLeaver, logger zerolog.Logger) *Service {
	return &Service{store: s, sessions: sessions, access: access, calendars: cals, logger: logger}
}

// Register creates the account with its own default calendar and list.
func (s *Service) Register(ctx context.Context, username, email, password string) (*store.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, apperr.BadRequest("Username and email are required.")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	if taken, err := s.store.Users.EmailTaken(ctx, email); err != nil {
		return nil, apperr.Internal(err, "check email")
	} else if taken {
		return nil, apperr.BadRequest("An account with this email already exists.")
	}
	if taken, err := s.store.Users.UsernameTaken(ctx, username); err != nil {
		return nil, apperr.Internal(err, "check username")
	} else if taken {
		return nil, apperr.BadRequest("An account with this username already exists.")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, apperr.Internal(err, "hash password")
	}

	var user *store.User
	err = s.store.InTx(ctx, func(q *store.Queries) error {
		var err error
		if user, err = q.Users.Create(ctx, store.User{Username: username, Email: email, PasswordHash: hash}); err != nil {
			return err
		}
		cal, err := calendars.CreateWithDefaults(ctx, q, user.ID, fmt.Sprintf("%s's Default Calendar", username), registrationListColor)
		if err != nil {
			return err
		}
		if err := q.Users.SetDefaultCalendar(ctx, user.ID, &cal.ID); err != nil {
			return err
		}
		user.DefaultCalendarID = &cal.ID
		return nil
	})
	if err != nil {
		return nil, apperr.Internal(err, "register user")
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login checks the credentials and sets the session cookie.
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, email, password string) (*store.User, error) {
	user, err := s.store.Users.GetByEmail(ctx, strings.TrimSpace(email))
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Unauthorized("This email address is not registered.")
	}
	if err != nil {
		return nil, apperr.Internal(err, "get user")
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, apperr.Unauthorized("Invalid password.")
	}

	if err := s.sessions.Issue(w, user.ID); err != nil {
		return nil, apperr.Internal(err, "issue session")
	}
	return user, nil
}

func (s *Service) Logout(w http.ResponseWriter) {
	s.sessions.Clear(w)
}

func (s *Service) Me(ctx context.Context, userID int64) (*store.User, error) {
	user, err := s.store.Users.GetByID(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound("User not found.")
	}
	if err != nil {
		return nil, apperr.Internal(err, "get user")
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !checkPassword(user.PasswordHash, oldPassword) {
		return apperr.BadRequest("Incorrect old password.")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err, "hash password")
	}
	if err := s.store.Users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return apperr.Internal(err, "update password")
	}
	return nil
}

// SetDefaultCalendar points the user's default at a calendar they can read.
func (s *Service) SetDefaultCalendar(ctx context.Context, userID, calendarID int64) error {
	if _, err := s.Me(ctx, userID); err != nil {
		return err
	}
	if err := s.access.Require(ctx, userID, calendarID, store.PermissionRead); err != nil {
		return err
	}
	if err := s.store.Users.SetDefaultCalendar(ctx, userID, &calendarID); err != nil {
		return apperr.Internal(err, "set default calendar")
	}
	return nil
}

// DeleteAccount leaves every calendar, deleting those the user solely
// owns, then removes the user.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	perms, err := s.store.Permissions.ListByUser(ctx, userID)
	if err != nil {
		return apperr.Internal(err, "list permissions")
	}
	for _, p := range perms {
		outcome, err := s.calendars.Delete(ctx, userID, p.CalendarID)
		if err != nil {
			return err
		}
		s.logger.Debug().
			Int64("user_id", userID).
			Int64("calendar_id", p.CalendarID).
			Stringer("outcome", outcome).
			Msg("left calendar")
	}

	if err := s.store.Users.Delete(ctx, userID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return apperr.Internal(err, "delete user")
	}
	s.logger.Info().Int64("user_id", userID).Msg("user deleted")
	return nil
}

// RequireSession admits requests carrying a valid session and puts the
// user id into the request context.
func (s *Service) RequireSession(onUnauthorized func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := s.sessions.CurrentUserID(r)
			if !ok {
				onUnauthorized(w, r, apperr.Unauthorized("User not authenticated."))
				return
			}
			ctx := WithUserID(r.Context(), userID)
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Int64("user_id", userID)
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
