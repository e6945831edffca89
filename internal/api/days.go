package api

import (
	"net/http"

	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/store"
)

type dayIDResponse struct {
	ID *int64 `json:"id"`
}

// DayID answers with the id of the day, or null when it does not exist.
func (h *Handler) DayID(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	date, err := pathDate(r, "date")
	if err != nil {
		fail(w, r, err)
		return
	}
	calendarID, err := pathID(r, "calendarId")
	if err != nil {
		fail(w, r, err)
		return
	}
	day, err := h.days.Find(r.Context(), userID, calendarID, date)
	if err != nil {
		fail(w, r, err)
		return
	}
	var resp dayIDResponse
	if day != nil {
		resp.ID = &day.ID
	}
	ok(w, resp)
}

func (h *Handler) DaysInRange(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	from, err := pathDate(r, "startDate")
	if err != nil {
		fail(w, r, err)
		return
	}
	to, err := pathDate(r, "endDate")
	if err != nil {
		fail(w, r, err)
		return
	}
	calendarID, err := pathID(r, "calendarId")
	if err != nil {
		fail(w, r, err)
		return
	}
	found, err := h.days.ListRange(r.Context(), userID, calendarID, from, to)
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]dayResponse, 0, len(found))
	for _, d := range found {
		out = append(out, dayResponse{ID: d.ID, Date: d.Date})
	}
	ok(w, map[string]any{"days": out})
}

type createDayRequest struct {
	CalendarID int64  `json:"calendarId"`
	Date       string `json:"date"`
}

func (h *Handler) CreateDay(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req createDayRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	date, err := store.ParseDate(req.Date)
	if err != nil {
		fail(w, r, apperr.BadRequest("Invalid date format."))
		return
	}
	day, err := h.days.GetOrCreateDay(r.Context(), userID, req.CalendarID, date)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, dayIDResponse{ID: &day.ID})
}

func (h *Handler) DeleteDay(w http.ResponseWriter, r *http.Request) {
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
	date, err := pathDate(r, "date")
	if err != nil {
		fail(w, r, err)
		return
	}
	deleted, err := h.days.TryDeleteIfEmpty(r.Context(), userID, calendarID, date)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !deleted {
		message(w, http.StatusOK, "Day was not deleted as it still has tickets.")
		return
	}
	message(w, http.StatusOK, "Day deleted successfully.")
}
