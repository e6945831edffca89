package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type dayRow struct {
	ID         int64 `db:"id"`
	CalendarID int64 `db:"calendar_id"`
	Date       Date  `db:"day_date"`
}

const dayColumns = `id, calendar_id, day_date`

type dayRepo struct {
	db ext
}

func (r *dayRepo) InsertIgnore(ctx context.Context, calendarID int64, date Date) error {
	defer observeDB(ctx, "days.insert_ignore")()

	q := r.db.Rebind(`INSERT INTO days (calendar_id, day_date) VALUES (?, ?) ON CONFLICT (calendar_id, day_date) DO NOTHING`)
	if _, err := r.db.ExecContext(ctx, q, calendarID, date); err != nil {
		return fmt.Errorf("insert day: %w", err)
	}
	return nil
}

func (r *dayRepo) Find(ctx context.Context, calendarID int64, date Date) (*Day, error) {
	defer observeDB(ctx, "days.find")()
	return r.getOne(ctx, `SELECT `+dayColumns+` FROM days WHERE calendar_id = ? AND day_date = ?`, calendarID, date)
}

func (r *dayRepo) GetByID(ctx context.Context, id int64) (*Day, error) {
	defer observeDB(ctx, "days.get_by_id")()
	return r.getOne(ctx, `SELECT `+dayColumns+` FROM days WHERE id = ?`, id)
}

func (r *dayRepo) getOne(ctx context.Context, query string, args ...any) (*Day, error) {
	var row dayRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select day: %w", err)
	}
	return &Day{ID: row.ID, CalendarID: row.CalendarID, Date: row.Date}, nil
}

func (r *dayRepo) ListRange(ctx context.Context, calendarID int64, from, to Date) ([]Day, error) {
	defer observeDB(ctx, "days.list_range")()
	return r.selectDays(ctx, `SELECT `+dayColumns+` FROM days
WHERE calendar_id = ? AND day_date >= ? AND day_date <= ?
ORDER BY day_date`, calendarID, from, to)
}

func (r *dayRepo) ListByCalendar(ctx context.Context, calendarID int64) ([]Day, error) {
	defer observeDB(ctx, "days.list_by_calendar")()
	return r.selectDays(ctx, `SELECT `+dayColumns+` FROM days WHERE calendar_id = ? ORDER BY day_date`, calendarID)
}

func (r *dayRepo) selectDays(ctx context.Context, query string, args ...any) ([]Day, error) {
	var rows []dayRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	days := make([]Day, 0, len(rows))
	for _, row := range rows {
		days = append(days, Day{ID: row.ID, CalendarID: row.CalendarID, Date: row.Date})
	}
	return days, nil
}

func (r *dayRepo) Delete(ctx context.Context, id int64) error {
	defer observeDB(ctx, "days.delete")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM days WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete day: %w", err)
	}
	return requireAffected(res)
}

func (r *dayRepo) DeleteByCalendar(ctx context.Context, calendarID int64) (int64, error) {
	defer observeDB(ctx, "days.delete_by_calendar")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM days WHERE calendar_id = ?`), calendarID)
	if err != nil {
		return 0, fmt.Errorf("delete calendar days: %w", err)
	}
	return res.RowsAffected()
}
