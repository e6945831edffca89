package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type ticketRow struct {
	ID             int64          `db:"id"`
	Name           string         `db:"name"`
	Description    sql.NullString `db:"description"`
	Priority       sql.NullInt64  `db:"priority"`
	Position       int            `db:"current_position"`
	IsCompleted    bool           `db:"is_completed"`
	CalendarListID int64          `db:"calendar_list_id"`
	ParentType     string         `db:"parent_type"`
	ParentID       int64          `db:"parent_id"`
	StartTime      nullClock      `db:"start_time"`
	EndTime        nullClock      `db:"end_time"`
}

func (r ticketRow) toTicket() (Ticket, error) {
	placement, err := decodePlacement(r.ParentType, r.ParentID, r.StartTime.clock, r.EndTime.clock)
	if err != nil {
		return Ticket{}, fmt.Errorf("ticket %d: %w", r.ID, err)
	}
	t := Ticket{
		ID:             r.ID,
		Name:           r.Name,
		Position:       r.Position,
		IsCompleted:    r.IsCompleted,
		CalendarListID: r.CalendarListID,
		Placement:      placement,
	}
	if r.Description.Valid {
		d := r.Description.String
		t.Description = &d
	}
	if r.Priority.Valid {
		p := int(r.Priority.Int64)
		t.Priority = &p
	}
	return t, nil
}

type ticketViewRow struct {
	ticketRow
	Color sql.NullString `db:"color"`
}

const ticketColumns = `t.id, t.name, t.description, t.priority, t.current_position, t.is_completed,
t.calendar_list_id, t.parent_type, t.parent_id, t.start_time, t.end_time`

type ticketRepo struct {
	db ext
}

func (r *ticketRepo) Create(ctx context.Context, ticket Ticket) (*Ticket, error) {
	defer observeDB(ctx, "tickets.create")()

	cols, err := placementColumns(ticket.Placement)
	if err != nil {
		return nil, err
	}
	q := r.db.Rebind(`INSERT INTO tickets
(name, description, priority, current_position, is_completed, calendar_list_id, parent_type, parent_id, start_time, end_time)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	if err := r.db.GetContext(ctx, &id, q,
		ticket.Name, nullString(ticket.Description), nullInt(ticket.Priority), ticket.Position, ticket.IsCompleted,
		ticket.CalendarListID, string(cols.parentType), cols.parentID, cols.start, cols.end,
	); err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	ticket.ID = id
	return &ticket, nil
}

func (r *ticketRepo) GetByID(ctx context.Context, id int64) (*Ticket, error) {
	defer observeDB(ctx, "tickets.get_by_id")()

	var row ticketRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+ticketColumns+` FROM tickets t WHERE t.id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select ticket: %w", err)
	}
	t, err := row.toTicket()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *ticketRepo) Update(ctx context.Context, ticket Ticket) error {
	defer observeDB(ctx, "tickets.update")()

	cols, err := placementColumns(ticket.Placement)
	if err != nil {
		return err
	}
	q := r.db.Rebind(`UPDATE tickets SET
name = ?, description = ?, priority = ?, current_position = ?, is_completed = ?, calendar_list_id = ?,
parent_type = ?, parent_id = ?, start_time = ?, end_time = ?
WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q,
		ticket.Name, nullString(ticket.Description), nullInt(ticket.Priority), ticket.Position, ticket.IsCompleted,
		ticket.CalendarListID, string(cols.parentType), cols.parentID, cols.start, cols.end, ticket.ID,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	return requireAffected(res)
}

func (r *ticketRepo) SetPosition(ctx context.Context, id int64, position int) (bool, error) {
	defer observeDB(ctx, "tickets.set_position")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE tickets SET current_position = ? WHERE id = ?`), position, id)
	if err != nil {
		return false, fmt.Errorf("set ticket position: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *ticketRepo) SetCompleted(ctx context.Context, id int64, completed bool) error {
	defer observeDB(ctx, "tickets.set_completed")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE tickets SET is_completed = ? WHERE id = ?`), completed, id)
	if err != nil {
		return fmt.Errorf("set ticket completed: %w", err)
	}
	return requireAffected(res)
}

func (r *ticketRepo) Delete(ctx context.Context, id int64) error {
	defer observeDB(ctx, "tickets.delete")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM tickets WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return requireAffected(res)
}

// parentFilter narrows a query to the parent of p. Day placements share a
// parent regardless of whether they carry a time range.
func parentFilter(p Placement) (string, []any) {
	if p.Type().OnDay() {
		return `t.parent_type IN (?, ?) AND t.parent_id = ?`,
			[]any{string(ParentTodoList), string(ParentScheduledList), p.ParentID()}
	}
	return `t.parent_type = ? AND t.parent_id = ?`, []any{string(ParentCalendarList), p.ParentID()}
}

func (r *ticketRepo) MaxPosition(ctx context.Context, p Placement) (int, error) {
	defer observeDB(ctx, "tickets.max_position")()

	where, args := parentFilter(p)
	var highest int
	if err := r.db.GetContext(ctx, &highest, r.db.Rebind(`SELECT COALESCE(MAX(t.current_position), 0) FROM tickets t WHERE `+where), args...); err != nil {
		return 0, fmt.Errorf("max ticket position: %w", err)
	}
	return highest, nil
}

func (r *ticketRepo) ListByParent(ctx context.Context, p Placement) ([]Ticket, error) {
	defer observeDB(ctx, "tickets.list_by_parent")()

	where, args := parentFilter(p)
	return r.selectTickets(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE `+where+` ORDER BY t.current_position, t.id`, args...)
}

func (r *ticketRepo) ListInList(ctx context.Context, listID int64) ([]Ticket, error) {
	defer observeDB(ctx, "tickets.list_in_list")()
	return r.selectTickets(ctx, `SELECT `+ticketColumns+` FROM tickets t
WHERE t.parent_type = ? AND t.parent_id = ?
ORDER BY t.current_position, t.id`, string(ParentCalendarList), listID)
}

func (r *ticketRepo) selectTickets(ctx context.Context, query string, args ...any) ([]Ticket, error) {
	var rows []ticketRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	tickets := make([]Ticket, 0, len(rows))
	for _, row := range rows {
		t, err := row.toTicket()
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (r *ticketRepo) ListOnDay(ctx context.Context, dayID int64, only ParentType) ([]TicketView, error) {
	defer observeDB(ctx, "tickets.list_on_day")()

	query := `SELECT ` + ticketColumns + `, l.color FROM tickets t
JOIN calendar_lists l ON l.id = t.calendar_list_id
WHERE t.parent_id = ? AND t.parent_type IN (?)
ORDER BY t.current_position, t.id`
	types := []string{string(ParentTodoList), string(ParentScheduledList)}
	if only != "" {
		types = []string{string(only)}
	}
	query, args, err := sqlx.In(query, dayID, types)
	if err != nil {
		return nil, fmt.Errorf("build day query: %w", err)
	}

	var rows []ticketViewRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list day tickets: %w", err)
	}
	views := make([]TicketView, 0, len(rows))
	for _, row := range rows {
		t, err := row.toTicket()
		if err != nil {
			return nil, err
		}
		v := TicketView{Ticket: t}
		if row.Color.Valid {
			c := row.Color.String
			v.Color = &c
		}
		views = append(views, v)
	}
	return views, nil
}

func (r *ticketRepo) CountOnDay(ctx context.Context, dayID int64) (int, error) {
	defer observeDB(ctx, "tickets.count_on_day")()

	var count int
	q := r.db.Rebind(`SELECT COUNT(*) FROM tickets WHERE parent_type IN (?, ?) AND parent_id = ?`)
	if err := r.db.GetContext(ctx, &count, q, string(ParentTodoList), string(ParentScheduledList), dayID); err != nil {
		return 0, fmt.Errorf("count day tickets: %w", err)
	}
	return count, nil
}

func (r *ticketRepo) DeleteByHomeList(ctx context.Context, listID int64) (int64, error) {
	defer observeDB(ctx, "tickets.delete_by_home_list")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM tickets WHERE calendar_list_id = ?`), listID)
	if err != nil {
		return 0, fmt.Errorf("delete list tickets: %w", err)
	}
	return res.RowsAffected()
}

func (r *ticketRepo) DeleteForCalendar(ctx context.Context, dayIDs, listIDs []int64) (int64, error) {
	defer observeDB(ctx, "tickets.delete_for_calendar")()

	var (
		clauses []string
		args    []any
	)
	if len(dayIDs) > 0 {
		clauses = append(clauses, `(parent_type IN (?) AND parent_id IN (?))`)
		args = append(args, []string{string(ParentTodoList), string(ParentScheduledList)}, dayIDs)
	}
	if len(listIDs) > 0 {
		clauses = append(clauses, `(parent_type = ? AND parent_id IN (?))`, `calendar_list_id IN (?)`)
		args = append(args, string(ParentCalendarList), listIDs, listIDs)
	}
	if len(clauses) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`DELETE FROM tickets WHERE `+strings.Join(clauses, " OR "), args...)
	if err != nil {
		return 0, fmt.Errorf("build ticket delete: %w", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete calendar tickets: %w", err)
	}
	return res.RowsAffected()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
