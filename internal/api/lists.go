package api

import (
	"net/http"

	"gitea.jw6.us/james/shalendar/internal/apperr"
)

func (h *Handler) ListsOfCalendar(w http.ResponseWriter, r *http.Request) {
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
	lists, err := h.calendars.Lists(r.Context(), userID, calendarID)
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]listResponse, 0, len(lists))
	for i := range lists {
		l := toList(&lists[i].CalendarList)
		l.Tickets = toTickets(lists[i].Tickets)
		out = append(out, l)
	}
	ok(w, out)
}

type listRequest struct {
	Name       string  `json:"name"`
	Color      *string `json:"color"`
	CalendarID int64   `json:"calendarId"`
}

func (h *Handler) CreateList(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req listRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.CalendarID != 0 && req.CalendarID != actor.CalendarID {
		fail(w, r, apperr.BadRequest("CalendarId does not match the X-Calendar-Id header."))
		return
	}
	list, err := h.calendars.CreateList(r.Context(), actor, req.Name, req.Color)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCreated(w, toList(list))
}

func (h *Handler) UpdateList(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var req listRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	list, err := h.calendars.UpdateList(r.Context(), actor, id, req.Name, req.Color)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, toList(list))
}

func (h *Handler) DeleteList(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.calendars.DeleteList(r.Context(), actor, id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
