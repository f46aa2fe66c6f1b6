package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mbolis/survey-dashboard/model"
)

type userRow struct {
	ID        string         `db:"id"`
	Email     string         `db:"email"`
	Name      string         `db:"name"`
	AvatarURL string         `db:"avatar_url"`
	GoogleID  sql.NullString `db:"google_id"`
}

func (r userRow) toUser() *model.User {
	return &model.User{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		AvatarURL: r.AvatarURL,
		GoogleID:  r.GoogleID.String,
	}
}

const userColumns = `id, email, name, avatar_url, google_id`

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM user WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("GetUser", "user", id, "user not found", ErrNotFound)
	}
	if err != nil {
		return nil, NewStoreError("GetUser", "user", id, err.Error(), err)
	}
	return row.toUser(), nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM user WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("GetUserByEmail", "user", email, "user not found", ErrNotFound)
	}
	if err != nil {
		return nil, NewStoreError("GetUserByEmail", "user", email, err.Error(), err)
	}
	return row.toUser(), nil
}

// PasswordHash returns nil for users that only ever signed in with Google.
func (s *SQLiteStore) PasswordHash(ctx context.Context, email string) ([]byte, error) {
	var hash sql.NullString
	err := s.db.GetContext(ctx, &hash, `SELECT password_hash FROM user WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("PasswordHash", "user", email, "user not found", ErrNotFound)
	}
	if err != nil {
		return nil, NewStoreError("PasswordHash", "user", email, err.Error(), err)
	}
	if !hash.Valid {
		return nil, nil
	}
	return []byte(hash.String), nil
}

// UpsertGoogleUser links a Google account to the user with the same email,
// creating the user with the Google profile when there is none.
func (s *SQLiteStore) UpsertGoogleUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user (id, email, name, avatar_url, google_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			google_id = excluded.google_id,
			updated_at = excluded.updated_at`,
		s.newID(), user.Email, user.Name, user.AvatarURL, toNullString(user.GoogleID), now, now,
	)
	if err != nil {
		return nil, classify("UpsertGoogleUser", "user", user.Email, err)
	}
	return s.GetUserByEmail(ctx, user.Email)
}

func (s *SQLiteStore) UpsertPasswordUser(ctx context.Context, email, name string, passwordHash []byte) (*model.User, error) {
	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user (id, email, name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			password_hash = excluded.password_hash,
			updated_at = excluded.updated_at`,
		s.newID(), email, name, string(passwordHash), now, now,
	)
	if err != nil {
		return nil, classify("UpsertPasswordUser", "user", email, err)
	}
	return s.GetUserByEmail(ctx, email)
}
