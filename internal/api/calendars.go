package api

import (
	"net/http"

	"gitea.jw6.us/james/shalendar/internal/store"
)

func (h *Handler) AccessibleCalendars(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	cals, err := h.calendars.Accessible(r.Context(), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, toCalendars(cals))
}

// UserPermissions lists the caller's own grants; other users' grants are
// not visible.
func (h *Handler) UserPermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	requested, err := pathID(r, "userId")
	if err != nil {
		fail(w, r, err)
		return
	}
	if requested != userID {
		message(w, http.StatusForbidden, "Permissions of other users are not visible.")
		return
	}

	perms, err := h.calendars.PermissionsOf(r.Context(), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResponse{ID: p.ID, CalendarID: p.CalendarID, UserID: p.UserID, PermissionType: p.Type})
	}
	ok(w, out)
}

func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	cal, err := h.calendars.Get(r.Context(), userID, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, calendarResponse{ID: cal.ID, Name: cal.Name})
}

func (h *Handler) GetCalendarPublic(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	cal, err := h.calendars.GetPublic(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, calendarResponse{ID: cal.ID, Name: cal.Name})
}

type createCalendarRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req createCalendarRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	cal, err := h.calendars.Create(r.Context(), userID, req.Name)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCreated(w, calendarResponse{ID: cal.ID, Name: cal.Name})
}

func (h *Handler) DeleteCalendar(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	calendarID, err := pathID(r, "calendarId")
	if err != nil {
		fail(w, r, err)
		return
	}
	outcome, err := h.calendars.Delete(r.Context(), userID, calendarID)
	if err != nil {
		fail(w, r, err)
		return
	}
	message(w, http.StatusOK, outcome.String())
}

func (h *Handler) CalendarPermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	calendarID, err := pathID(r, "calendarId")
	if err != nil {
		fail(w, r, err)
		return
	}
	grants, err := h.calendars.Permissions(r.Context(), userID, calendarID)
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]grantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, grantResponse{Email: g.Email, PermissionType: g.Type})
	}
	ok(w, out)
}

func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	calendarID, err := pathID(r, "calendarId")
	if err != nil {
		fail(w, r, err)
		return
	}
	typ := store.PermissionType(urlParam(r, "permissionType"))
	if err := h.calendars.Grant(r.Context(), userID, calendarID, urlParam(r, "email"), typ); err != nil {
		fail(w, r, err)
		return
	}
	message(w, http.StatusOK, "Permission granted.")
}

func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	calendarID, err := pathID(r, "calendarId")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.calendars.Revoke(r.Context(), userID, calendarID, urlParam(r, "email")); err != nil {
		fail(w, r, err)
		return
	}
	message(w, http.StatusOK, "Permission removed.")
}

type copyAllResponse struct {
	Message string `json:"message"`
	Copied  int    `json:"copied"`
}

// CopyAllTickets copies the header calendar into ?calendarId=.
func (h *Handler) CopyAllTickets(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	target, err := queryID(r, "calendarId")
	if err != nil {
		fail(w, r, err)
		return
	}
	n, err := h.replication.CopyCalendar(r.Context(), actor, target)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, copyAllResponse{Message: "All tickets successfully copied.", Copied: n})
}
