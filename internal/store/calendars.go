package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type calendarRepo struct {
	db ext
}

func (r *calendarRepo) Create(ctx context.Context, name string) (*Calendar, error) {
	defer observeDB(ctx, "calendars.create")()

	var id int64
	if err := r.db.GetContext(ctx, &id, r.db.Rebind(`INSERT INTO calendars (name) VALUES (?) RETURNING id`), name); err != nil {
		return nil, fmt.Errorf("insert calendar: %w", err)
	}
	return &Calendar{ID: id, Name: name}, nil
}

func (r *calendarRepo) GetByID(ctx context.Context, id int64) (*Calendar, error) {
	defer observeDB(ctx, "calendars.get_by_id")()

	var cal Calendar
	if err := r.db.GetContext(ctx, &cal, r.db.Rebind(`SELECT id, name FROM calendars WHERE id = ?`), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select calendar: %w", err)
	}
	return &cal, nil
}

func (r *calendarRepo) ListWithPermission(ctx context.Context, userID int64, types ...PermissionType) ([]Calendar, error) {
	defer observeDB(ctx, "calendars.list_with_permission")()

	if len(types) == 0 {
		types = []PermissionType{PermissionRead, PermissionWrite, PermissionOwner}
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	query, args, err := sqlx.In(`SELECT c.id, c.name FROM calendars c
JOIN permissions p ON p.calendar_id = c.id
WHERE p.user_id = ? AND p.permission_type IN (?)
ORDER BY c.id`, userID, names)
	if err != nil {
		return nil, fmt.Errorf("build calendar query: %w", err)
	}
	var cals []Calendar
	if err := r.db.SelectContext(ctx, &cals, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	return cals, nil
}

func (r *calendarRepo) Delete(ctx context.Context, id int64) error {
	defer observeDB(ctx, "calendars.delete")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM calendars WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	return requireAffected(res)
}
