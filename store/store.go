// Package store persists users, categories and surveys in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mbolis/survey-dashboard/model"
	"github.com/mbolis/survey-dashboard/pagination"
)

// Store defines the persistence interface used by the handlers.
type Store interface {
	// Slug checks and collection counts
	SlugExists(ctx context.Context, coll model.Collection, slug string) (bool, error)
	CountAll(ctx context.Context, coll model.Collection) (int, error)

	// User operations
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	PasswordHash(ctx context.Context, email string) ([]byte, error)
	UpsertGoogleUser(ctx context.Context, user *model.User) (*model.User, error)
	UpsertPasswordUser(ctx context.Context, email, name string, passwordHash []byte) (*model.User, error)

	// Token bookkeeping for the bearer server
	StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error
	ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) error
	RevokeTokens(ctx context.Context, username string) error
	CreateLoginTicket(ctx context.Context, userID, ticketHash string, expiration time.Time) error
	ConsumeLoginTicket(ctx context.Context, userID, ticketHash string) error

	// Category operations
	CreateCategory(ctx context.Context, category *model.Category) error
	ListAllCategories(ctx context.Context) ([]model.Category, error)
	ListCategories(ctx context.Context, offset, limit int) ([]model.Category, error)
	CategorySource() pagination.Source[model.Category]

	// Question type operations
	ListQuestionTypes(ctx context.Context) ([]model.QuestionType, error)
	CreateQuestionType(ctx context.Context, qt *model.QuestionType) error

	// Survey operations
	CreateSurvey(ctx context.Context, survey *model.Survey) error
	GetSurvey(ctx context.Context, id string) (*model.Survey, error)
	UpdateSurvey(ctx context.Context, survey *model.Survey) error
	ListSurveys(ctx context.Context, offset, limit int) ([]model.SurveySummary, error)
	SurveySource() pagination.Source[model.SurveySummary]
}

var _ Store = (*SQLiteStore)(nil)

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

// timeLayout is fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var collectionTables = map[model.Collection]string{
	model.Categories: "category",
	model.Surveys:    "survey",
}

func tableFor(coll model.Collection) (string, error) {
	table, ok := collectionTables[coll]
	if !ok {
		return "", fmt.Errorf("unknown collection %q", coll)
	}
	return table, nil
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sqlx.DB
	now   func() time.Time
	newID func() string
}

// New wraps an opened and migrated database.
func New(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError(op, "", "", "begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError(op, "", "", "commit", err)
	}
	return nil
}

func (s *SQLiteStore) SlugExists(ctx context.Context, coll model.Collection, slug string) (bool, error) {
	table, err := tableFor(coll)
	if err != nil {
		return false, NewStoreError("SlugExists", string(coll), "", err.Error(), err)
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE slug = ?)`
	if err := s.db.GetContext(ctx, &exists, query, slug); err != nil {
		return false, NewStoreError("SlugExists", table, slug, err.Error(), err)
	}
	return exists, nil
}

func (s *SQLiteStore) CountAll(ctx context.Context, coll model.Collection) (int, error) {
	table, err := tableFor(coll)
	if err != nil {
		return 0, NewStoreError("CountAll", string(coll), "", err.Error(), err)
	}

	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table); err != nil {
		return 0, NewStoreError("CountAll", table, "", err.Error(), err)
	}
	return n, nil
}

type categorySource struct{ s *SQLiteStore }

func (src categorySource) Count(ctx context.Context) (int, error) {
	return src.s.CountAll(ctx, model.Categories)
}

func (src categorySource) Fetch(ctx context.Context, offset, limit int) ([]model.Category, error) {
	return src.s.ListCategories(ctx, offset, limit)
}

func (s *SQLiteStore) CategorySource() pagination.Source[model.Category] {
	return categorySource{s}
}

type surveySource struct{ s *SQLiteStore }

func (src surveySource) Count(ctx context.Context) (int, error) {
	return src.s.CountAll(ctx, model.Surveys)
}

func (src surveySource) Fetch(ctx context.Context, offset, limit int) ([]model.SurveySummary, error) {
	return src.s.ListSurveys(ctx, offset, limit)
}

func (s *SQLiteStore) SurveySource() pagination.Source[model.SurveySummary] {
	return surveySource{s}
}
