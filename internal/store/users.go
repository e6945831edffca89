package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type userRow struct {
	ID                int64         `db:"id"`
	Username          string        `db:"username"`
	Email             string        `db:"email"`
	PasswordHash      string        `db:"password_hash"`
	DefaultCalendarID sql.NullInt64 `db:"default_calendar_id"`
}

func (r userRow) toUser() *User {
	u := &User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
	}
	if r.DefaultCalendarID.Valid {
		id := r.DefaultCalendarID.Int64
		u.DefaultCalendarID = &id
	}
	return u
}

const userColumns = `id, username, email, password_hash, default_calendar_id`

type userRepo struct {
	db ext
}

func (r *userRepo) Create(ctx context.Context, user User) (*User, error) {
	defer observeDB(ctx, "users.create")()

	q := r.db.Rebind(`INSERT INTO users (username, email, password_hash, default_calendar_id)
VALUES (?, ?, ?, ?) RETURNING id`)
	var id int64
	if err := r.db.GetContext(ctx, &id, q, user.Username, user.Email, user.PasswordHash, nullInt64(user.DefaultCalendarID)); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return &user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	defer observeDB(ctx, "users.get_by_id")()
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	defer observeDB(ctx, "users.get_by_email")()
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *userRepo) getOne(ctx context.Context, query string, args ...any) (*User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return row.toUser(), nil
}

func (r *userRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	defer observeDB(ctx, "users.email_taken")()
	return r.exists(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email)
}

func (r *userRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	defer observeDB(ctx, "users.username_taken")()
	return r.exists(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username)
}

func (r *userRepo) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), args...); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

func (r *userRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	defer observeDB(ctx, "users.update_password")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET password_hash = ? WHERE id = ?`), hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireAffected(res)
}

func (r *userRepo) SetDefaultCalendar(ctx context.Context, id int64, calendarID *int64) error {
	defer observeDB(ctx, "users.set_default_calendar")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET default_calendar_id = ? WHERE id = ?`), nullInt64(calendarID), id)
	if err != nil {
		return fmt.Errorf("set default calendar: %w", err)
	}
	return requireAffected(res)
}

func (r *userRepo) ClearDefaultCalendar(ctx context.Context, calendarID int64) (int64, error) {
	defer observeDB(ctx, "users.clear_default_calendar")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET default_calendar_id = NULL WHERE default_calendar_id = ?`), calendarID)
	if err != nil {
		return 0, fmt.Errorf("clear default calendar: %w", err)
	}
	return res.RowsAffected()
}

func (r *userRepo) Delete(ctx context.Context, id int64) error {
	defer observeDB(ctx, "users.delete")()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res)
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
