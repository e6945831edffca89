package store

import (
	"database/sql"
	"fmt"
)

// Placement is the current parent of a ticket. The concrete types are
// InList, OnDay and ScheduledOn; no other implementations exist.
type Placement interface {
	Type() ParentType
	ParentID() int64
	placement()
}

// InList parks a ticket in a calendar list.
type InList struct {
	ListID int64
}

// OnDay attaches a ticket to a day without a time range (TodoList).
type OnDay struct {
	DayID int64
}

// ScheduledOn attaches a ticket to a day with a time range (ScheduledList).
type ScheduledOn struct {
	DayID int64
	Start ClockTime
	End   ClockTime
}

func (InList) Type() ParentType      { return ParentCalendarList }
func (OnDay) Type() ParentType       { return ParentTodoList }
func (ScheduledOn) Type() ParentType { return ParentScheduledList }

func (p InList) ParentID() int64      { return p.ListID }
func (p OnDay) ParentID() int64       { return p.DayID }
func (p ScheduledOn) ParentID() int64 { return p.DayID }

func (InList) placement()      {}
func (OnDay) placement()       {}
func (ScheduledOn) placement() {}

// DayPlacement builds the day placement implied by an optional time range:
// a complete range schedules the ticket, anything else makes it a todo.
func DayPlacement(dayID int64, start, end *ClockTime) Placement {
	if start != nil && end != nil {
		return ScheduledOn{DayID: dayID, Start: *start, End: *end}
	}
	return OnDay{DayID: dayID}
}

type placementCols struct {
	parentType ParentType
	parentID   int64
	start      sql.NullString
	end        sql.NullString
}

func placementColumns(p Placement) (placementCols, error) {
	switch v := p.(type) {
	case InList:
		return placementCols{parentType: ParentCalendarList, parentID: v.ListID}, nil
	case OnDay:
		return placementCols{parentType: ParentTodoList, parentID: v.DayID}, nil
	case ScheduledOn:
		return placementCols{
			parentType: ParentScheduledList,
			parentID:   v.DayID,
			start:      sql.NullString{String: v.Start.String(), Valid: true},
			end:        sql.NullString{String: v.End.String(), Valid: true},
		}, nil
	case nil:
		return placementCols{}, fmt.Errorf("ticket has no placement")
	default:
		return placementCols{}, fmt.Errorf("unknown placement %T", p)
	}
}

func decodePlacement(parentType string, parentID int64, start, end *ClockTime) (Placement, error) {
	switch ParentType(parentType) {
	case ParentCalendarList:
		if start != nil || end != nil {
			return nil, fmt.Errorf("list-parented ticket carries a time range")
		}
		return InList{ListID: parentID}, nil
	case ParentTodoList:
		if start != nil || end != nil {
			return nil, fmt.Errorf("todo ticket carries a time range")
		}
		return OnDay{DayID: parentID}, nil
	case ParentScheduledList:
		if start == nil || end == nil {
			return nil, fmt.Errorf("scheduled ticket is missing its time range")
		}
		return ScheduledOn{DayID: parentID, Start: *start, End: *end}, nil
	default:
		return nil, fmt.Errorf("unknown parent type %q", parentType)
	}
}
