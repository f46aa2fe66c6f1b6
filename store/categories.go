package store

import (
	"context"

	"github.com/mbolis/survey-dashboard/model"
)

type categoryRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Slug      string `db:"slug"`
	UserID    string `db:"user_id"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r categoryRow) toCategory() (model.Category, error) {
	c := model.Category{ID: r.ID, Name: r.Name, Slug: r.Slug, UserID: r.UserID}

	var err error
	if c.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return c, NewStoreError("scan", "category", r.ID, "bad created_at", err)
	}
	if c.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return c, NewStoreError("scan", "category", r.ID, "bad updated_at", err)
	}
	return c, nil
}

func rowsToCategories(rows []categoryRow) ([]model.Category, error) {
	categories := make([]model.Category, 0, len(rows))
	for _, row := range rows {
		c, err := row.toCategory()
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, nil
}

// CreateCategory inserts category with the slug already assigned. Losing a
// race on name or slug yields *UniqueViolationError.
func (s *SQLiteStore) CreateCategory(ctx context.Context, category *model.Category) error {
	if category.ID == "" {
		category.ID = s.newID()
	}
	now := s.now().UTC()
	category.CreatedAt, category.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category (id, name, slug, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		category.ID, category.Name, category.Slug, category.UserID, formatTime(now), formatTime(now),
	)
	if err != nil {
		return classify("CreateCategory", "category", category.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListAllCategories(ctx context.Context) ([]model.Category, error) {
	var rows []categoryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, slug, user_id, created_at, updated_at
		FROM category
		ORDER BY name ASC`)
	if err != nil {
		return nil, NewStoreError("ListAllCategories", "category", "", err.Error(), err)
	}
	return rowsToCategories(rows)
}

func (s *SQLiteStore) ListCategories(ctx context.Context, offset, limit int) ([]model.Category, error) {
	var rows []categoryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, slug, user_id, created_at, updated_at
		FROM category
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, NewStoreError("ListCategories", "category", "", err.Error(), err)
	}
	return rowsToCategories(rows)
}

func (s *SQLiteStore) ListQuestionTypes(ctx context.Context) ([]model.QuestionType, error) {
	questionTypes := []model.QuestionType{}
	err := s.db.SelectContext(ctx, &questionTypes, `
		SELECT id, name, slug
		FROM question_type
		ORDER BY rowid`)
	if err != nil {
		return nil, NewStoreError("ListQuestionTypes", "question_type", "", err.Error(), err)
	}
	return questionTypes, nil
}

func (s *SQLiteStore) CreateQuestionType(ctx context.Context, qt *model.QuestionType) error {
	if qt.ID == "" {
		qt.ID = s.newID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO question_type (id, name, slug) VALUES (?, ?, ?)`,
		qt.ID, qt.Name, qt.Slug,
	)
	if err != nil {
		return classify("CreateQuestionType", "question_type", qt.ID, err)
	}
	return nil
}
