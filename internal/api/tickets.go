package api

import (
	"context"
	"net/http"
	"strconv"

	"gitea.jw6.us/james/shalendar/internal/apperr"
	"gitea.jw6.us/james/shalendar/internal/store"
	"gitea.jw6.us/james/shalendar/internal/tickets"
)

type dayLister func(ctx context.Context, userID, calendarID int64, date store.Date) ([]store.TicketView, error)

func (h *Handler) listOnDate(list dayLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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
		views, err := list(r.Context(), userID, calendarID, date)
		if err != nil {
			fail(w, r, err)
			return
		}
		ok(w, toTicketViews(views))
	}
}

func (h *Handler) TodoTickets(w http.ResponseWriter, r *http.Request) {
	h.listOnDate(h.tickets.ListTodo)(w, r)
}

func (h *Handler) ScheduledTickets(w http.ResponseWriter, r *http.Request) {
	h.listOnDate(h.tickets.ListScheduled)(w, r)
}

func (h *Handler) DailyTickets(w http.ResponseWriter, r *http.Request) {
	h.listOnDate(h.tickets.ListForDay)(w, r)
}

func (h *Handler) DailyTicketsByDay(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	dayID, err := pathID(r, "dayId")
	if err != nil {
		fail(w, r, err)
		return
	}
	views, err := h.tickets.ListForDayID(r.Context(), userID, dayID)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, toTicketViews(views))
}

type createTicketRequest struct {
	Name            string           `json:"name"`
	Description     *string          `json:"description"`
	Priority        *int             `json:"priority"`
	CurrentPosition *int             `json:"currentPosition"`
	IsCompleted     bool             `json:"isCompleted"`
	CalendarListID  int64            `json:"calendarListId"`
	Date            *store.Date      `json:"date"`
	StartTime       *store.ClockTime `json:"startTime"`
	EndTime         *store.ClockTime `json:"endTime"`
}

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req createTicketRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	ticket, err := h.tickets.Create(r.Context(), actor, tickets.CreateRequest{
		Name:           req.Name,
		Description:    req.Description,
		Priority:       req.Priority,
		Position:       req.CurrentPosition,
		IsCompleted:    req.IsCompleted,
		CalendarListID: req.CalendarListID,
		Date:           req.Date,
		Start:          req.StartTime,
		End:            req.EndTime,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCreated(w, toTicket(ticket))
}

type scheduleRequest struct {
	CalendarID int64            `json:"calendarId"`
	Date       store.Date       `json:"date"`
	TicketID   int64            `json:"ticketId"`
	StartTime  *store.ClockTime `json:"startTime"`
	EndTime    *store.ClockTime `json:"endTime"`
}

func (h *Handler) ScheduleTicket(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req scheduleRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	ticket, err := h.tickets.Schedule(r.Context(), actor, tickets.ScheduleRequest{
		TicketID:   req.TicketID,
		CalendarID: req.CalendarID,
		Date:       req.Date,
		Start:      req.StartTime,
		End:        req.EndTime,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, toTicket(ticket))
}

// CopyTicket copies ?ticketId= into ?calendarId=, onto ?date= when given.
func (h *Handler) CopyTicket(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	ticketID, err := queryID(r, "ticketId")
	if err != nil {
		fail(w, r, err)
		return
	}
	target, err := queryID(r, "calendarId")
	if err != nil {
		fail(w, r, err)
		return
	}
	var date *store.Date
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := store.ParseDate(raw)
		if err != nil {
			fail(w, r, apperr.BadRequest("Invalid date format."))
			return
		}
		date = &d
	}
	if err := h.replication.CopyTicket(r.Context(), actor, ticketID, target, date); err != nil {
		fail(w, r, err)
		return
	}
	message(w, http.StatusOK, "Ticket successfully copied or already existed.")
}

type orderUpdate struct {
	TicketID    int64 `json:"ticketId"`
	NewPosition int   `json:"newPosition"`
}

func (h *Handler) ReorderTickets(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req []orderUpdate
	if err := decode(r, &req); err != nil {
		fail(w, r, apperr.BadRequest("Invalid order update data."))
		return
	}
	updates := make([]tickets.OrderUpdate, 0, len(req))
	for _, u := range req {
		updates = append(updates, tickets.OrderUpdate{TicketID: u.TicketID, Position: u.NewPosition})
	}
	if err := h.tickets.Reorder(r.Context(), actor, updates); err != nil {
		fail(w, r, err)
		return
	}
	message(w, http.StatusOK, "Tickets reordered.")
}

func (h *Handler) MoveTicketBack(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	ticketID, err := pathID(r, "ticketId")
	if err != nil {
		fail(w, r, err)
		return
	}
	ticket, err := h.tickets.MoveBack(r.Context(), actor, ticketID)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, toTicket(ticket))
}

type updateTicketRequest struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Priority    *int             `json:"priority"`
	StartTime   *store.ClockTime `json:"startTime"`
	EndTime     *store.ClockTime `json:"endTime"`
}

func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req updateTicketRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if len(req.Name) > 255 {
		fail(w, r, apperr.BadRequest("Ticket name must be at most 255 characters."))
		return
	}
	ticket, err := h.tickets.Update(r.Context(), actor, tickets.UpdateRequest{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
		Start:       req.StartTime,
		End:         req.EndTime,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, toTicket(ticket))
}

// UpdateTicketCompleted reads ?ticketId= and ?isCompleted=.
func (h *Handler) UpdateTicketCompleted(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	ticketID, err := queryID(r, "ticketId")
	if err != nil {
		fail(w, r, err)
		return
	}
	completed, err := strconv.ParseBool(r.URL.Query().Get("isCompleted"))
	if err != nil {
		fail(w, r, apperr.BadRequest("Invalid isCompleted."))
		return
	}
	ticket, err := h.tickets.SetCompleted(r.Context(), actor, ticketID, completed)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, toTicket(ticket))
}

// ChangeTicketDate takes the new date as a bare JSON string body.
func (h *Handler) ChangeTicketDate(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	ticketID, err := pathID(r, "ticketId")
	if err != nil {
		fail(w, r, err)
		return
	}
	var raw string
	if err := decode(r, &raw); err != nil {
		fail(w, r, err)
		return
	}
	date, err := store.ParseDate(raw)
	if err != nil {
		fail(w, r, apperr.BadRequest("Invalid date format."))
		return
	}
	ticket, err := h.tickets.ChangeDate(r.Context(), actor, ticketID, date)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, toTicket(ticket))
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
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
	if err := h.tickets.Delete(r.Context(), actor, id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
