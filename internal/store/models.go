package store

// PermissionType is the access level a user holds on a calendar.
type PermissionType string

const (
	PermissionRead  PermissionType = "read"
	PermissionWrite PermissionType = "write"
	PermissionOwner PermissionType = "owner"
)

// Valid reports whether p is one of the known permission levels.
func (p PermissionType) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionOwner:
		return true
	}
	return false
}

// ParentType tags which kind of container a ticket currently lives in.
// The values are persisted and sent to clients verbatim.
type ParentType string

const (
	ParentCalendarList  ParentType = "CalendarList"
	ParentTodoList      ParentType = "TodoList"
	ParentScheduledList ParentType = "ScheduledList"
)

// OnDay reports whether the parent type refers to a Day row.
func (p ParentType) OnDay() bool {
	return p == ParentTodoList || p == ParentScheduledList
}

// User is a registered account.
type User struct {
	ID                int64
	Username          string
	Email             string
	PasswordHash      string
	DefaultCalendarID *int64
}

// Calendar is a shared container of lists, days and tickets. Ownership is
// expressed through Permission rows.
type Calendar struct {
	ID   int64
	Name string
}

// Permission grants one user a level of access on one calendar.
type Permission struct {
	ID         int64
	CalendarID int64
	UserID     int64
	Type       PermissionType
}

// CalendarList is a named bucket holding unscheduled tickets.
type CalendarList struct {
	ID         int64
	Name       string
	Color      *string
	CalendarID int64
}

// Day materialises one date of one calendar.
type Day struct {
	ID         int64
	CalendarID int64
	Date       Date
}

// Ticket is a todo item. CalendarListID is its home bucket; Placement
// says where it currently lives.
type Ticket struct {
	ID             int64
	Name           string
	Description    *string
	Priority       *int
	Position       int
	IsCompleted    bool
	CalendarListID int64
	Placement      Placement
}

// Times returns the scheduled range, or nils when the ticket is not
// time-slotted.
func (t *Ticket) Times() (start, end *ClockTime) {
	if s, ok := t.Placement.(ScheduledOn); ok {
		st, en := s.Start, s.End
		return &st, &en
	}
	return nil, nil
}

// DayID returns the id of the Day the ticket is attached to, if any.
func (t *Ticket) DayID() (int64, bool) {
	switch p := t.Placement.(type) {
	case OnDay:
		return p.DayID, true
	case ScheduledOn:
		return p.DayID, true
	}
	return 0, false
}

// PermissionGrant is a permission joined with the grantee's email.
type PermissionGrant struct {
	Email string
	Type  PermissionType
}

// TicketView is a ticket enriched with its home list colour for display.
type TicketView struct {
	Ticket
	Color *string
}
