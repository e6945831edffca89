// Package api serves the JSON endpoints consumed by the web client.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gitea.jw6.us/james/shalendar/internal/access"
	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/auth"
	"gitea.jw6.us/james/shalendar/internal/calendars"
	"gitea.jw6.us/james/shalendar/internal/days"
	httperrors "gitea.jw6.us/james/shalendar/internal/http/errors"
	"gitea.jw6.us/james/shalendar/internal/replication"
	"gitea.jw6.us/james/shalendar/internal/store"
	"gitea.jw6.us/james/shalendar/internal/tickets"
)

const maxBodyBytes = 1 << 20

// Services are the domain services behind the endpoints.
type Services struct {
	Auth        *auth.Service
	Calendars   *calendars.Service
	Days        *days.Manager
	Tickets     *tickets.Service
	Replication *replication.Service
}

type Handler struct {
	auth        *auth.Service
	calendars   *calendars.Service
	days        *days.Manager
	tickets     *tickets.Service
	replication *replication.Service
}

func NewHandler(s Services) *Handler {
	return &Handler{
		auth:        s.Auth,
		calendars:   s.Calendars,
		days:        s.Days,
		tickets:     s.Tickets,
		replication: s.Replication,
	}
}

// PublicRoutes registers the endpoints reachable without a session.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/api/users", h.Register)
	r.Post("/api/users/login", h.Login)
}

// Routes registers the endpoints that need a session.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		r.Put("/change-password", h.ChangePassword)
		r.Put("/set-default-calendar/{calendarId}", h.SetDefaultCalendar)
		r.Delete("/delete", h.DeleteAccount)
	})

	r.Route("/api/calendars", func(r chi.Router) {
		r.Get("/accessible", h.AccessibleCalendars)
		r.Get("/user/{userId}", h.UserPermissions)
		r.Get("/noPermissionNeeded/{id}", h.GetCalendarPublic)
		r.Get("/{id}", h.GetCalendar)
		r.Post("/", h.CreateCalendar)
		r.Post("/copy-all-tickets", h.CopyAllTickets)
		r.Delete("/{calendarId}", h.DeleteCalendar)
		r.Get("/{calendarId}/permissions", h.CalendarPermissions)
		r.Post("/{calendarId}/permissions/{email}/{permissionType}", h.GrantPermission)
		r.Delete("/{calendarId}/permissions/{email}", h.RevokePermission)
	})

	r.Route("/api/calendarlists", func(r chi.Router) {
		r.Get("/calendar/{calendarId}", h.ListsOfCalendar)
		r.Post("/", h.CreateList)
		r.Put("/{id}", h.UpdateList)
		r.Delete("/{id}", h.DeleteList)
	})

	r.Route("/api/days", func(r chi.Router) {
		r.Get("/range/{startDate}/{endDate}/{calendarId}", h.DaysInRange)
		r.Get("/{date}/{calendarId}", h.DayID)
		r.Post("/create", h.CreateDay)
		r.Delete("/{calendarId}/{date}", h.DeleteDay)
	})

	r.Route("/api/tickets", func(r chi.Router) {
		r.Get("/todolist/{date}/{calendarId}", h.TodoTickets)
		r.Get("/scheduled/{date}/{calendarId}", h.ScheduledTickets)
		r.Get("/AllDailyTickets/{date}/{calendarId}", h.DailyTickets)
		r.Get("/AllDailyTicketsByDay/{dayId}", h.DailyTicketsByDay)
		r.Post("/", h.CreateTicket)
		r.Post("/ScheduleTicket", h.ScheduleTicket)
		r.Post("/copy-ticket", h.CopyTicket)
		r.Put("/reorder", h.ReorderTickets)
		r.Put("/move-to-calendar/{ticketId}", h.MoveTicketBack)
		r.Put("/updateTicket", h.UpdateTicket)
		r.Put("/updateTicketCompleted", h.UpdateTicketCompleted)
		r.Put("/changeDate/{ticketId}", h.ChangeTicketDate)
		r.Delete("/{id}", h.DeleteTicket)
	})
}

func currentUser(r *http.Request) (int64, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return 0, apperr.Unauthorized("User not authenticated.")
	}
	return id, nil
}

// actorOf combines the session user with the X-Calendar-Id header.
func actorOf(r *http.Request) (access.Actor, error) {
	userID, err := currentUser(r)
	if err != nil {
		return access.Actor{}, err
	}
	calendarID, err := access.CalendarIDFromHeader(r.Header)
	if err != nil {
		return access.Actor{}, apperr.BadRequest("Invalid or missing %s header.", access.CalendarHeader)
	}
	return access.Actor{UserID: userID, CalendarID: calendarID}, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	return parseID(chi.URLParam(r, name), name)
}

func queryID(r *http.Request, name string) (int64, error) {
	return parseID(r.URL.Query().Get(name), name)
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("Invalid %s.", name)
	}
	return id, nil
}

func pathDate(r *http.Request, name string) (store.Date, error) {
	d, err := store.ParseDate(chi.URLParam(r, name))
	if err != nil {
		return store.Date{}, apperr.BadRequest("Invalid date format.")
	}
	return d, nil
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.BadRequest("Request body is required.")
		}
		return apperr.BadRequest("Invalid request body.")
	}
	return nil
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	httperrors.Write(w, r, err)
}

func ok(w http.ResponseWriter, v any) {
	httperrors.JSON(w, http.StatusOK, v)
}

func message(w http.ResponseWriter, status int, msg string) {
	httperrors.Message(w, status, msg)
}

func writeCreated(w http.ResponseWriter, v any) {
	httperrors.JSON(w, http.StatusCreated, v)
}

// urlParam returns the path parameter with percent-encoding removed.
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
