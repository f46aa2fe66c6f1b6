package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/mbolis/survey-dashboard/model"
)

type surveyRow struct {
	ID            string         `db:"id"`
	Title         string         `db:"title"`
	Subtitle      string         `db:"subtitle"`
	Description   string         `db:"description"`
	Instructions  string         `db:"instructions"`
	Slug          string         `db:"slug"`
	IsPublished   bool           `db:"is_published"`
	CategoryID    sql.NullString `db:"category_id"`
	UserID        string         `db:"user_id"`
	ResponseCount int            `db:"response_count"`
	CreatedAt     string         `db:"created_at"`
	UpdatedAt     string         `db:"updated_at"`
}

type surveySummaryRow struct {
	ID            string `db:"id"`
	Title         string `db:"title"`
	Description   string `db:"description"`
	Slug          string `db:"slug"`
	IsPublished   bool   `db:"is_published"`
	CategoryName  string `db:"category_name"`
	ResponseCount int    `db:"response_count"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

type questionRow struct {
	SurveyID       string `db:"survey_id"`
	Text           string `db:"text"`
	QuestionTypeID string `db:"question_type_id"`
}

// CreateSurvey inserts the survey and its questions and custom fields in one
// transaction. Losing a race on the slug yields *UniqueViolationError.
func (s *SQLiteStore) CreateSurvey(ctx context.Context, survey *model.Survey) error {
	if survey.ID == "" {
		survey.ID = s.newID()
	}
	now := s.now().UTC()
	survey.CreatedAt, survey.UpdatedAt = now, now

	return s.withTx(ctx, "CreateSurvey", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO survey (
				id, title, subtitle, description, instructions, slug,
				is_published, category_id, user_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			survey.ID, survey.Title, survey.Subtitle, survey.Description, survey.Instructions, survey.Slug,
			survey.IsPublished, toNullString(survey.CategoryID), survey.UserID, formatTime(now), formatTime(now),
		)
		if err != nil {
			return classify("CreateSurvey", "survey", survey.ID, err)
		}

		return s.insertChildren(ctx, tx, "CreateSurvey", survey)
	})
}

// UpdateSurvey rewrites the survey's editable columns and replaces its
// questions and custom fields wholesale. Slug, owner and creation time are
// never touched.
func (s *SQLiteStore) UpdateSurvey(ctx context.Context, survey *model.Survey) error {
	now := s.now().UTC()

	err := s.withTx(ctx, "UpdateSurvey", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE survey
			SET
				title = ?,
				subtitle = ?,
				description = ?,
				instructions = ?,
				is_published = ?,
				category_id = ?,
				updated_at = ?
			WHERE id = ?`,
			survey.Title, survey.Subtitle, survey.Description, survey.Instructions,
			survey.IsPublished, toNullString(survey.CategoryID), formatTime(now),
			survey.ID,
		)
		if err != nil {
			return classify("UpdateSurvey", "survey", survey.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return NewStoreError("UpdateSurvey", "survey", survey.ID, err.Error(), err)
		}
		if n < 1 {
			return NewStoreError("UpdateSurvey", "survey", survey.ID, "survey not found", ErrNotFound)
		}

		// delete all children, then recreate them
		if _, err := tx.ExecContext(ctx, `DELETE FROM question WHERE survey_id = ?`, survey.ID); err != nil {
			return NewStoreError("UpdateSurvey", "question", survey.ID, err.Error(), err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM custom_field WHERE survey_id = ?`, survey.ID); err != nil {
			return NewStoreError("UpdateSurvey", "custom_field", survey.ID, err.Error(), err)
		}

		return s.insertChildren(ctx, tx, "UpdateSurvey", survey)
	})
	if err != nil {
		return err
	}

	survey.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) insertChildren(ctx context.Context, exec executor, op string, survey *model.Survey) error {
	for i, q := range survey.Questions {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO question (id, survey_id, position, text, question_type_id)
			VALUES (?, ?, ?, ?, ?)`,
			s.newID(), survey.ID, i, q.Text, q.QuestionTypeID,
		)
		if err != nil {
			return classify(op, "question", survey.ID, err)
		}
	}

	for i, f := range survey.CustomFields {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO custom_field (id, survey_id, position, key, value)
			VALUES (?, ?, ?, ?, ?)`,
			s.newID(), survey.ID, i, f.Key, f.Value,
		)
		if err != nil {
			return classify(op, "custom_field", survey.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetSurvey(ctx context.Context, id string) (*model.Survey, error) {
	var row surveyRow
	err := s.db.GetContext(ctx, &row, `
		SELECT
			s.id, s.title, s.subtitle, s.description, s.instructions, s.slug,
			s.is_published, s.category_id, s.user_id,
			(SELECT COUNT(*) FROM response r WHERE r.survey_id = s.id) AS response_count,
			s.created_at, s.updated_at
		FROM survey s
		WHERE s.id = ?`,
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("GetSurvey", "survey", id, "survey not found", ErrNotFound)
	}
	if err != nil {
		return nil, NewStoreError("GetSurvey", "survey", id, err.Error(), err)
	}

	survey := &model.Survey{
		ID:            row.ID,
		Title:         row.Title,
		Subtitle:      row.Subtitle,
		Description:   row.Description,
		Instructions:  row.Instructions,
		Slug:          row.Slug,
		IsPublished:   row.IsPublished,
		CategoryID:    row.CategoryID.String,
		UserID:        row.UserID,
		ResponseCount: row.ResponseCount,
		Questions:     []model.Question{},
		CustomFields:  []model.CustomField{},
	}
	if survey.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return nil, NewStoreError("GetSurvey", "survey", id, "bad created_at", err)
	}
	if survey.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return nil, NewStoreError("GetSurvey", "survey", id, "bad updated_at", err)
	}

	var questions []questionRow
	err = s.db.SelectContext(ctx, &questions, `
		SELECT survey_id, text, question_type_id
		FROM question
		WHERE survey_id = ?
		ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, NewStoreError("GetSurvey", "question", id, err.Error(), err)
	}
	for _, q := range questions {
		survey.Questions = append(survey.Questions, model.Question{Text: q.Text, QuestionTypeID: q.QuestionTypeID})
	}

	err = s.db.SelectContext(ctx, &survey.CustomFields, `
		SELECT key, value
		FROM custom_field
		WHERE survey_id = ?
		ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, NewStoreError("GetSurvey", "custom_field", id, err.Error(), err)
	}

	return survey, nil
}

// ListSurveys returns surveys newest first. SQLite reads a negative offset
// as zero.
func (s *SQLiteStore) ListSurveys(ctx context.Context, offset, limit int) ([]model.SurveySummary, error) {
	var rows []surveySummaryRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT
			s.id, s.title, s.description, s.slug, s.is_published,
			COALESCE(c.name, '') AS category_name,
			(SELECT COUNT(*) FROM response r WHERE r.survey_id = s.id) AS response_count,
			s.created_at, s.updated_at
		FROM survey s
		LEFT OUTER JOIN category c ON (c.id = s.category_id)
		ORDER BY s.created_at DESC, s.rowid DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, NewStoreError("ListSurveys", "survey", "", err.Error(), err)
	}

	surveys := make([]model.SurveySummary, 0, len(rows))
	if len(rows) == 0 {
		return surveys, nil
	}

	ids := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		summary := model.SurveySummary{
			ID:            row.ID,
			Title:         row.Title,
			Description:   row.Description,
			Slug:          row.Slug,
			IsPublished:   row.IsPublished,
			CategoryName:  row.CategoryName,
			Questions:     []string{},
			ResponseCount: row.ResponseCount,
		}
		if summary.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
			return nil, NewStoreError("ListSurveys", "survey", row.ID, "bad created_at", err)
		}
		if summary.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
			return nil, NewStoreError("ListSurveys", "survey", row.ID, "bad updated_at", err)
		}
		surveys = append(surveys, summary)
		ids = append(ids, row.ID)
		index[row.ID] = i
	}

	query, args, err := sqlx.In(`
		SELECT survey_id, text, question_type_id
		FROM question
		WHERE survey_id IN (?)
		ORDER BY survey_id, position`,
		ids,
	)
	if err != nil {
		return nil, NewStoreError("ListSurveys", "question", "", err.Error(), err)
	}

	var questions []questionRow
	if err := s.db.SelectContext(ctx, &questions, s.db.Rebind(query), args...); err != nil {
		return nil, NewStoreError("ListSurveys", "question", "", err.Error(), err)
	}
	for _, q := range questions {
		i := index[q.SurveyID]
		surveys[i].Questions = append(surveys[i].Questions, q.Text)
	}

	return surveys, nil
}
