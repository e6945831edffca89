package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type listRow struct {
	ID         int64          `db:"id"`
	Name       string         `db:"name"`
	Color      sql.NullString `db:"color"`
	CalendarID int64          `db:"calendar_id"`
}

func (r listRow) toList() CalendarList {
	l := CalendarList{ID: r.ID, Name: r.Name, CalendarID: r.CalendarID}
	if r.Color.Valid {
		c := r.Color.String
		l.Color = &c
	}
	return l
}

const listColumns = `id, name, color, calendar_id`

type listRepo struct {
	db ext
}

func (r *listRepo) Create(ctx context.Context, list CalendarList) (*CalendarList, error) {
	defer observeDB(ctx, "lists.create")()

	q := r.db.Rebind(`INSERT INTO calendar_lists (name, color, calendar_id) VALUES (?, ?, ?) RETURNING id`)
	var id int64
	if err := r.db.GetContext(ctx, &id, q, list.Name, nullString(list.Color), list.CalendarID); err != nil {
		return nil, fmt.Errorf("insert calendar list: %w", err)
	}
	list.ID = id
	return &list, nil
}

func (r *listRepo) GetByID(ctx context.Context, id int64) (*CalendarList, error) {
	defer observeDB(ctx, "lists.get_by_id")()

	var row listRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+listColumns+` FROM calendar_lists WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select calendar list: %w", err)
	}
	l := row.toList()
	return &l, nil
}

func (r *listRepo) ListByCalendar(ctx context.Context, calendarID int64) ([]CalendarList, error) {
	defer observeDB(ctx, "lists.list_by_calendar")()
	return r.selectLists(ctx, `SELECT `+listColumns+` FROM calendar_lists WHERE calendar_id = ? ORDER BY id`, calendarID)
}

func (r *listRepo) FindByNameColor(ctx context.Context, calendarID int64, name string, color *string) (*CalendarList, error) {
	defer observeDB(ctx, "lists.find_by_name_color")()

	candidates, err := r.selectLists(ctx, `SELECT `+listColumns+` FROM calendar_lists WHERE calendar_id = ? AND name = ? ORDER BY id`, calendarID, name)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if equalStringPtr(candidates[i].Color, color) {
			return &candidates[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *listRepo) selectLists(ctx context.Context, query string, args ...any) ([]CalendarList, error) {
	var rows []listRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list calendar lists: %w", err)
	}
	lists := make([]CalendarList, 0, len(rows))
	for _, row := range rows {
		lists = append(lists, row.toList())
	}
	return lists, nil
}

func (r *listRepo) Update(ctx context.Context, list CalendarList) error {
	defer observeDB(ctx, "lists.update")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE calendar_lists SET name = ?, color = ? WHERE id = ?`),
		list.Name, nullString(list.Color), list.ID)
	if err != nil {
		return fmt.Errorf("update calendar list: %w", err)
	}
	return requireAffected(res)
}

func (r *listRepo) Delete(ctx context.Context, id int64) error {
	defer observeDB(ctx, "lists.delete")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM calendar_lists WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete calendar list: %w", err)
	}
	return requireAffected(res)
}

func (r *listRepo) DeleteByCalendar(ctx context.Context, calendarID int64) (int64, error) {
	defer observeDB(ctx, "lists.delete_by_calendar")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM calendar_lists WHERE calendar_id = ?`), calendarID)
	if err != nil {
		return 0, fmt.Errorf("delete calendar lists: %w", err)
	}
	return res.RowsAffected()
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
