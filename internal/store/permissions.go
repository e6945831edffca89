package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type permissionRow struct {
	ID         int64  `db:"id"`
	CalendarID int64  `db:"calendar_id"`
	UserID     int64  `db:"user_id"`
	Type       string `db:"permission_type"`
}

func (r permissionRow) toPermission() Permission {
	return Permission{ID: r.ID, CalendarID: r.CalendarID, UserID: r.UserID, Type: PermissionType(r.Type)}
}

type permissionRepo struct {
	db ext
}

func (r *permissionRepo) Get(ctx context.Context, calendarID, userID int64) (*Permission, error) {
	defer observeDB(ctx, "permissions.get")()

	var row permissionRow
	q := r.db.Rebind(`SELECT id, calendar_id, user_id, permission_type FROM permissions WHERE calendar_id = ? AND user_id = ?`)
	if err := r.db.GetContext(ctx, &row, q, calendarID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select permission: %w", err)
	}
	p := row.toPermission()
	return &p, nil
}

func (r *permissionRepo) ListByUser(ctx context.Context, userID int64) ([]Permission, error) {
	defer observeDB(ctx, "permissions.list_by_user")()

	var rows []permissionRow
	q := r.db.Rebind(`SELECT id, calendar_id, user_id, permission_type FROM permissions WHERE user_id = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	perms := make([]Permission, 0, len(rows))
	for _, row := range rows {
		perms = append(perms, row.toPermission())
	}
	return perms, nil
}

func (r *permissionRepo) ListGrants(ctx context.Context, calendarID int64) ([]PermissionGrant, error) {
	defer observeDB(ctx, "permissions.list_grants")()

	var rows []struct {
		Email string `db:"email"`
		Type  string `db:"permission_type"`
	}
	q := r.db.Rebind(`SELECT u.email, p.permission_type FROM permissions p
JOIN users u ON u.id = p.user_id
WHERE p.calendar_id = ?
ORDER BY p.id`)
	if err := r.db.SelectContext(ctx, &rows, q, calendarID); err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	grants := make([]PermissionGrant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, PermissionGrant{Email: row.Email, Type: PermissionType(row.Type)})
	}
	return grants, nil
}

func (r *permissionRepo) Upsert(ctx context.Context, calendarID, userID int64, typ PermissionType) error {
	defer observeDB(ctx, "permissions.upsert")()

	q := r.db.Rebind(`INSERT INTO permissions (calendar_id, user_id, permission_type) VALUES (?, ?, ?)
ON CONFLICT (calendar_id, user_id) DO UPDATE SET permission_type = excluded.permission_type`)
	if _, err := r.db.ExecContext(ctx, q, calendarID, userID, string(typ)); err != nil {
		return fmt.Errorf("upsert permission: %w", err)
	}
	return nil
}

func (r *permissionRepo) Delete(ctx context.Context, id int64) error {
	defer observeDB(ctx, "permissions.delete")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM permissions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	return requireAffected(res)
}

func (r *permissionRepo) CountOwners(ctx context.Context, calendarID int64) (int, error) {
	defer observeDB(ctx, "permissions.count_owners")()

	var count int
	q := r.db.Rebind(`SELECT COUNT(*) FROM permissions WHERE calendar_id = ? AND permission_type = ?`)
	if err := r.db.GetContext(ctx, &count, q, calendarID, string(PermissionOwner)); err != nil {
		return 0, fmt.Errorf("count owners: %w", err)
	}
	return count, nil
}

func (r *permissionRepo) DeleteByCalendar(ctx context.Context, calendarID int64) (int64, error) {
	defer observeDB(ctx, "permissions.delete_by_calendar")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM permissions WHERE calendar_id = ?`), calendarID)
	if err != nil {
		return 0, fmt.Errorf("delete calendar permissions: %w", err)
	}
	return res.RowsAffected()
}
