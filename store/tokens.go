package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func (s *SQLiteStore) StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token (username, token_id, refresh_token_id, expiration)
		VALUES (?, ?, ?, ?)`,
		username, tokenID, refreshTokenID, formatTime(expiration),
	)
	if err != nil {
		return classify("StoreToken", "token", tokenID, err)
	}
	return nil
}

// ConsumeToken deletes the token pair so a refresh token works only once.
func (s *SQLiteStore) ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) error {
	var expiration string
	err := s.db.GetContext(ctx, &expiration, `
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?
		RETURNING expiration`,
		username, tokenID, refreshTokenID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return NewStoreError("ConsumeToken", "token", tokenID, "token not found", ErrNotFound)
	}
	if err != nil {
		return NewStoreError("ConsumeToken", "token", tokenID, err.Error(), err)
	}
	return s.checkExpiration("ConsumeToken", "token", tokenID, expiration)
}

func (s *SQLiteStore) RevokeTokens(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM token WHERE username = ?`, username)
	if err != nil {
		return NewStoreError("RevokeTokens", "token", username, err.Error(), err)
	}
	return nil
}

func (s *SQLiteStore) CreateLoginTicket(ctx context.Context, userID, ticketHash string, expiration time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO login_ticket (ticket_hash, user_id, expiration)
		VALUES (?, ?, ?)`,
		ticketHash, userID, formatTime(expiration),
	)
	if err != nil {
		return classify("CreateLoginTicket", "login_ticket", userID, err)
	}
	return nil
}

// ConsumeLoginTicket deletes the ticket whether or not it is still valid.
func (s *SQLiteStore) ConsumeLoginTicket(ctx context.Context, userID, ticketHash string) error {
	var expiration string
	err := s.db.GetContext(ctx, &expiration, `
		DELETE FROM login_ticket
		WHERE ticket_hash = ?
			AND user_id = ?
		RETURNING expiration`,
		ticketHash, userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return NewStoreError("ConsumeLoginTicket", "login_ticket", userID, "ticket not found", ErrNotFound)
	}
	if err != nil {
		return NewStoreError("ConsumeLoginTicket", "login_ticket", userID, err.Error(), err)
	}
	return s.checkExpiration("ConsumeLoginTicket", "login_ticket", userID, expiration)
}

func (s *SQLiteStore) checkExpiration(op, entity, id, expiration string) error {
	exp, err := parseTime(expiration)
	if err != nil {
		return NewStoreError(op, entity, id, "bad expiration", err)
	}
	if !exp.After(s.now()) {
		return NewStoreError(op, entity, id, "expired at "+expiration, ErrExpired)
	}
	return nil
}
