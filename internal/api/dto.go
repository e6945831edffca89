package api

import "gitea.jw6.us/james/shalendar/internal/store"

type userResponse struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	DefaultCalendarID *int64 `json:"defaultCalendarId"`
}

func toUser(u *store.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, DefaultCalendarID: u.DefaultCalendarID}
}

type calendarResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toCalendars(cals []store.Calendar) []calendarResponse {
	out := make([]calendarResponse, 0, len(cals))
	for _, c := range cals {
		out = append(out, calendarResponse{ID: c.ID, Name: c.Name})
	}
	return out
}

type permissionResponse struct {
	ID             int64                `json:"id"`
	CalendarID     int64                `json:"calendarId"`
	UserID         int64                `json:"userId"`
	PermissionType store.PermissionType `json:"permissionType"`
}

type grantResponse struct {
	Email          string               `json:"email"`
	PermissionType store.PermissionType `json:"permissionType"`
}

type dayResponse struct {
	ID   int64      `json:"id"`
	Date store.Date `json:"date"`
}

type ticketResponse struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	Description       *string          `json:"description"`
	Priority          *int             `json:"priority"`
	CurrentPosition   int              `json:"currentPosition"`
	IsCompleted       bool             `json:"isCompleted"`
	CalendarListID    int64            `json:"calendarListId"`
	CurrentParentType store.ParentType `json:"currentParentType"`
	ParentID          int64            `json:"parentId"`
	StartTime         *store.ClockTime `json:"startTime"`
	EndTime           *store.ClockTime `json:"endTime"`
	Color             *string          `json:"color,omitempty"`
}

func toTicket(t *store.Ticket) ticketResponse {
	start, end := t.Times()
	return ticketResponse{
		ID:                t.ID,
		Name:              t.Name,
		Description:       t.Description,
		Priority:          t.Priority,
		CurrentPosition:   t.Position,
		IsCompleted:       t.IsCompleted,
		CalendarListID:    t.CalendarListID,
		CurrentParentType: t.Placement.Type(),
		ParentID:          t.Placement.ParentID(),
		StartTime:         start,
		EndTime:           end,
	}
}

func toTickets(ts []store.Ticket) []ticketResponse {
	out := make([]ticketResponse, 0, len(ts))
	for i := range ts {
		out = append(out, toTicket(&ts[i]))
	}
	return out
}

func toTicketViews(vs []store.TicketView) []ticketResponse {
	out := make([]ticketResponse, 0, len(vs))
	for i := range vs {
		t := toTicket(&vs[i].Ticket)
		t.Color = vs[i].Color
		out = append(out, t)
	}
	return out
}

type listResponse struct {
	ID         int64            `json:"id"`
	Name       string           `json:"name"`
	Color      *string          `json:"color"`
	CalendarID int64            `json:"calendarId"`
	Tickets    []ticketResponse `json:"tickets,omitempty"`
}

func toList(l *store.CalendarList) listResponse {
	return listResponse{ID: l.ID, Name: l.Name, Color: l.Color, CalendarID: l.CalendarID}
}
