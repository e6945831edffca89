package store

import "context"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	SetDefaultCalendar(ctx context.Context, id int64, calendarID *int64) error
	// ClearDefaultCalendar nulls every user's default pointing at calendarID.
	ClearDefaultCalendar(ctx context.Context, calendarID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// CalendarRepository handles the calendar lifecycle.
type CalendarRepository interface {
	Create(ctx context.Context, name string) (*Calendar, error)
	GetByID(ctx context.Context, id int64) (*Calendar, error)
	// ListWithPermission returns calendars on which the user holds one of types.
	ListWithPermission(ctx context.Context, userID int64, types ...PermissionType) ([]Calendar, error)
	Delete(ctx context.Context, id int64) error
}

// PermissionRepository manages calendar access grants.
type PermissionRepository interface {
	Get(ctx context.Context, calendarID, userID int64) (*Permission, error)
	ListByUser(ctx context.Context, userID int64) ([]Permission, error)
	ListGrants(ctx context.Context, calendarID int64) ([]PermissionGrant, error)
	// Upsert creates the grant or replaces the level of an existing one.
	Upsert(ctx context.Context, calendarID, userID int64, typ PermissionType) error
	Delete(ctx context.Context, id int64) error
	CountOwners(ctx context.Context, calendarID int64) (int, error)
	DeleteByCalendar(ctx context.Context, calendarID int64) (int64, error)
}

// ListRepository manages calendar lists.
type ListRepository interface {
	Create(ctx context.Context, list CalendarList) (*CalendarList, error)
	GetByID(ctx context.Context, id int64) (*CalendarList, error)
	ListByCalendar(ctx context.Context, calendarID int64) ([]CalendarList, error)
	// FindByNameColor matches a list of calendarID by name and colour,
	// treating two null colours as equal.
	FindByNameColor(ctx context.Context, calendarID int64, name string, color *string) (*CalendarList, error)
	Update(ctx context.Context, list CalendarList) error
	Delete(ctx context.Context, id int64) error
	DeleteByCalendar(ctx context.Context, calendarID int64) (int64, error)
}

// DayRepository manages materialised days.
type DayRepository interface {
	// InsertIgnore creates the day unless (calendarID, date) already exists.
	InsertIgnore(ctx context.Context, calendarID int64, date Date) error
	Find(ctx context.Context, calendarID int64, date Date) (*Day, error)
	GetByID(ctx context.Context, id int64) (*Day, error)
	ListRange(ctx context.Context, calendarID int64, from, to Date) ([]Day, error)
	ListByCalendar(ctx context.Context, calendarID int64) ([]Day, error)
	Delete(ctx context.Context, id int64) error
	DeleteByCalendar(ctx context.Context, calendarID int64) (int64, error)
}

// TicketRepository handles ticket storage.
type TicketRepository interface {
	Create(ctx context.Context, ticket Ticket) (*Ticket, error)
	GetByID(ctx context.Context, id int64) (*Ticket, error)
	// Update writes every mutable column, placement included.
	Update(ctx context.Context, ticket Ticket) error
	SetPosition(ctx context.Context, id int64, position int) (bool, error)
	SetCompleted(ctx context.Context, id int64, completed bool) error
	Delete(ctx context.Context, id int64) error
	// MaxPosition is the highest position under the parent of p, or 0.
	MaxPosition(ctx context.Context, p Placement) (int, error)
	// ListByParent returns tickets sharing the parent of p, by position.
	ListByParent(ctx context.Context, p Placement) ([]Ticket, error)
	// ListOnDay returns the day's tickets with their list colour, optionally
	// narrowed to one parent type.
	ListOnDay(ctx context.Context, dayID int64, only ParentType) ([]TicketView, error)
	ListInList(ctx context.Context, listID int64) ([]Ticket, error)
	CountOnDay(ctx context.Context, dayID int64) (int, error)
	DeleteByHomeList(ctx context.Context, listID int64) (int64, error)
	// DeleteForCalendar removes tickets parented by any of dayIDs or listIDs
	// or homed in any of listIDs.
	DeleteForCalendar(ctx context.Context, dayIDs, listIDs []int64) (int64, error)
}
