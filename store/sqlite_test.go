package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey-dashboard/config"
	"github.com/mbolis/survey-dashboard/database"
	"github.com/mbolis/survey-dashboard/model"
	"github.com/mbolis/survey-dashboard/pagination"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := database.Open(config.Config{DBUrl: ":memory:"})
	require.NoError(t, err)

	st := New(db)
	t.Cleanup(func() {
		st.Close()
	})

	// one second per call keeps creation order unambiguous
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return st
}

func createTestUser(t *testing.T, st *SQLiteStore) *model.User {
	t.Helper()
	user, err := st.UpsertPasswordUser(context.Background(), "test@example.com", "Test User", []byte("hash"))
	require.NoError(t, err)
	return user
}

func createTestQuestionType(t *testing.T, st *SQLiteStore, name string) *model.QuestionType {
	t.Helper()
	qt := &model.QuestionType{Name: name, Slug: name}
	require.NoError(t, st.CreateQuestionType(context.Background(), qt))
	return qt
}

func createTestSurvey(t *testing.T, st *SQLiteStore, user *model.User, slug string) *model.Survey {
	t.Helper()
	survey := &model.Survey{Title: slug, Slug: slug, UserID: user.ID}
	require.NoError(t, st.CreateSurvey(context.Background(), survey))
	return survey
}

// =============================================================================
// Slugs and Counts
// =============================================================================

func TestSlugExists_PerCollection(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)

	require.NoError(t, st.CreateCategory(ctx, &model.Category{Name: "Marketing", Slug: "marketing", UserID: user.ID}))

	exists, err := st.SlugExists(ctx, model.Categories, "marketing")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = st.SlugExists(ctx, model.Surveys, "marketing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSlugExists_UnknownCollection(t *testing.T) {
	st := setupTestStore(t)

	_, err := st.SlugExists(context.Background(), model.Collection("notes"), "x")
	assert.Error(t, err)
}

func TestCountAll(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)

	n, err := st.CountAll(ctx, model.Surveys)
	require.NoError(t, err)
	assert.Zero(t, n)

	createTestSurvey(t, st, user, "one")
	createTestSurvey(t, st, user, "two")

	n, err = st.CountAll(ctx, model.Surveys)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = st.CountAll(ctx, model.Categories)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// =============================================================================
// Categories
// =============================================================================

func TestCreateCategory_UniqueViolation(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)

	require.NoError(t, st.CreateCategory(ctx, &model.Category{Name: "Health", Slug: "health", UserID: user.ID}))

	err := st.CreateCategory(ctx, &model.Category{Name: "Health!", Slug: "health", UserID: user.ID})
	var uv *UniqueViolationError
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, "category", uv.Entity)
	assert.Equal(t, "category.slug", uv.Constraint)
	assert.True(t, IsUniqueViolation(err))

	err = st.CreateCategory(ctx, &model.Category{Name: "Health", Slug: "health-2", UserID: user.ID})
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, "category.name", uv.Constraint)
}

func TestCreateCategory_UnknownUser(t *testing.T) {
	st := setupTestStore(t)

	err := st.CreateCategory(context.Background(), &model.Category{Name: "Orphan", Slug: "orphan", UserID: "nobody"})
	assert.ErrorIs(t, err, ErrForeignKey)
	assert.False(t, IsUniqueViolation(err))
}

func TestListCategories(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)

	for _, name := range []string{"Beta", "Alpha", "Gamma"} {
		require.NoError(t, st.CreateCategory(ctx, &model.Category{Name: name, Slug: name, UserID: user.ID}))
	}

	all, err := st.ListAllCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Alpha", all[0].Name)
	assert.Equal(t, "Gamma", all[2].Name)

	newest, err := st.ListCategories(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, "Gamma", newest[0].Name)
	assert.Equal(t, "Alpha", newest[1].Name)
	assert.Equal(t, user.ID, newest[0].UserID)
	assert.False(t, newest[0].CreatedAt.IsZero())
}

// =============================================================================
// Surveys
// =============================================================================

func TestCreateSurvey_RoundTrip(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)
	slider := createTestQuestionType(t, st, "slider")
	text := createTestQuestionType(t, st, "texto")
	category := &model.Category{Name: "Health", Slug: "health", UserID: user.ID}
	require.NoError(t, st.CreateCategory(ctx, category))

	survey := &model.Survey{
		Title:        "Wellbeing",
		Subtitle:     "Quarterly",
		Description:  "How are you?",
		Instructions: "Answer honestly",
		Slug:         "wellbeing",
		IsPublished:  true,
		CategoryID:   category.ID,
		UserID:       user.ID,
		Questions: []model.Question{
			{Text: "How rested are you?", QuestionTypeID: slider.ID},
			{Text: "Anything else?", QuestionTypeID: text.ID},
		},
		CustomFields: []model.CustomField{
			{Key: "team", Value: "ops"},
			{Key: "site", Value: "remote"},
		},
	}
	require.NoError(t, st.CreateSurvey(ctx, survey))
	require.NotEmpty(t, survey.ID)

	got, err := st.GetSurvey(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, survey.Title, got.Title)
	assert.Equal(t, survey.Subtitle, got.Subtitle)
	assert.Equal(t, survey.Instructions, got.Instructions)
	assert.Equal(t, "wellbeing", got.Slug)
	assert.True(t, got.IsPublished)
	assert.Equal(t, category.ID, got.CategoryID)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, survey.Questions, got.Questions)
	assert.Equal(t, survey.CustomFields, got.CustomFields)
	assert.Zero(t, got.ResponseCount)
	assert.True(t, survey.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateSurvey_DuplicateSlug(t *testing.T) {
	st := setupTestStore(t)
	user := createTestUser(t, st)
	createTestSurvey(t, st, user, "same")

	err := st.CreateSurvey(context.Background(), &model.Survey{Title: "Same", Slug: "same", UserID: user.ID})
	var uv *UniqueViolationError
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, "survey.slug", uv.Constraint)
}

func TestCreateSurvey_UnknownQuestionTypeRollsBack(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)

	err := st.CreateSurvey(ctx, &model.Survey{
		Title:     "Broken",
		Slug:      "broken",
		UserID:    user.ID,
		Questions: []model.Question{{Text: "?", QuestionTypeID: "missing"}},
	})
	assert.ErrorIs(t, err, ErrForeignKey)

	exists, err := st.SlugExists(ctx, model.Surveys, "broken")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetSurvey_NotFound(t *testing.T) {
	st := setupTestStore(t)

	_, err := st.GetSurvey(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSurvey_ReplacesChildren(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)
	qt := createTestQuestionType(t, st, "texto")

	survey := &model.Survey{
		Title:        "Original",
		Slug:         "original",
		UserID:       user.ID,
		Questions:    []model.Question{{Text: "Q1", QuestionTypeID: qt.ID}, {Text: "Q2", QuestionTypeID: qt.ID}},
		CustomFields: []model.CustomField{{Key: "a", Value: "1"}},
	}
	require.NoError(t, st.CreateSurvey(ctx, survey))

	update := &model.Survey{
		ID:           survey.ID,
		Title:        "Renamed",
		Description:  "now with description",
		Slug:         "ignored",
		UserID:       "someone-else",
		Questions:    []model.Question{{Text: "Only question", QuestionTypeID: qt.ID}},
		CustomFields: nil,
	}
	require.NoError(t, st.UpdateSurvey(ctx, update))

	got, err := st.GetSurvey(ctx, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "now with description", got.Description)
	assert.Equal(t, "original", got.Slug, "title edits never reslug")
	assert.Equal(t, user.ID, got.UserID, "ownership is fixed at creation")
	assert.Equal(t, []model.Question{{Text: "Only question", QuestionTypeID: qt.ID}}, got.Questions)
	assert.Empty(t, got.CustomFields)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestUpdateSurvey_NotFound(t *testing.T) {
	st := setupTestStore(t)

	err := st.UpdateSurvey(context.Background(), &model.Survey{ID: "missing", Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSurveys_NewestFirstWithDetails(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)
	qt := createTestQuestionType(t, st, "texto")
	category := &model.Category{Name: "Health", Slug: "health", UserID: user.ID}
	require.NoError(t, st.CreateCategory(ctx, category))

	older := createTestSurvey(t, st, user, "older")
	newer := &model.Survey{
		Title:      "Newer",
		Slug:       "newer",
		UserID:     user.ID,
		CategoryID: category.ID,
		Questions:  []model.Question{{Text: "first", QuestionTypeID: qt.ID}, {Text: "second", QuestionTypeID: qt.ID}},
	}
	require.NoError(t, st.CreateSurvey(ctx, newer))

	_, err := st.db.Exec(`INSERT INTO response (id, survey_id, user_id, created_at) VALUES ('r1', ?, ?, ?), ('r2', ?, NULL, ?)`,
		newer.ID, user.ID, formatTime(time.Now()), newer.ID, formatTime(time.Now()))
	require.NoError(t, err)

	surveys, err := st.ListSurveys(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, surveys, 2)

	assert.Equal(t, newer.ID, surveys[0].ID)
	assert.Equal(t, "Health", surveys[0].CategoryName)
	assert.Equal(t, []string{"first", "second"}, surveys[0].Questions)
	assert.Equal(t, 2, surveys[0].ResponseCount)

	assert.Equal(t, older.ID, surveys[1].ID)
	assert.Empty(t, surveys[1].CategoryName)
	assert.Equal(t, []string{}, surveys[1].Questions)
}

func TestListSurveys_Window(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)
	for i := 1; i <= 5; i++ {
		createTestSurvey(t, st, user, fmt.Sprintf("survey-%d", i))
	}

	page, err := st.ListSurveys(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "survey-3", page[0].Slug)
	assert.Equal(t, "survey-2", page[1].Slug)

	beyond, err := st.ListSurveys(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond)

	negative, err := st.ListSurveys(ctx, -2, 2)
	require.NoError(t, err)
	require.Len(t, negative, 2)
	assert.Equal(t, "survey-5", negative[0].Slug, "negative offset reads from the start")
}

func TestSurveySource_PagedListing(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)
	for i := 1; i <= 12; i++ {
		createTestSurvey(t, st, user, fmt.Sprintf("survey-%02d", i))
	}

	res, err := pagination.List(ctx, st.SurveySource(), 5, 10)
	require.NoError(t, err)

	assert.Equal(t, pagination.Pagination{From: 11, To: 12, CurrentPage: 2, Total: 12, TotalPages: 2}, res.Pagination)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "survey-02", res.Data[0].Slug)
	assert.Equal(t, "survey-01", res.Data[1].Slug)

	again, err := pagination.List(ctx, st.SurveySource(), 5, 10)
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestCategorySource_Empty(t *testing.T) {
	st := setupTestStore(t)

	res, err := pagination.List(context.Background(), st.CategorySource(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []model.Category{}, res.Data)
	assert.Equal(t, pagination.Pagination{From: 1, To: 0, CurrentPage: 1}, res.Pagination)
}

// =============================================================================
// Users, Tokens and Tickets
// =============================================================================

func TestUsers(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)

	got, err := st.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", got.Email)

	hash, err := st.PasswordHash(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), hash)

	_, err = st.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	again, err := st.UpsertPasswordUser(ctx, user.Email, "Renamed", []byte("new-hash"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID, "email stays unique")
	assert.Equal(t, "Test User", again.Name)
}

func TestUpsertGoogleUser(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	existing := createTestUser(t, st)

	linked, err := st.UpsertGoogleUser(ctx, &model.User{Email: existing.Email, Name: "Other Name", GoogleID: "g-1"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
	assert.Equal(t, "Test User", linked.Name, "existing profile is kept")
	assert.Equal(t, "g-1", linked.GoogleID)

	hash, err := st.PasswordHash(ctx, existing.Email)
	require.NoError(t, err)
	assert.NotNil(t, hash, "password login keeps working")

	created, err := st.UpsertGoogleUser(ctx, &model.User{Email: "new@example.com", Name: "New", AvatarURL: "http://img", GoogleID: "g-2"})
	require.NoError(t, err)
	assert.Equal(t, "New", created.Name)
	assert.Equal(t, "http://img", created.AvatarURL)

	hash, err = st.PasswordHash(ctx, created.Email)
	require.NoError(t, err)
	assert.Nil(t, hash)
}

func TestTokens(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	now := st.now()

	require.NoError(t, st.StoreToken(ctx, "u", "t1", "r1", now.Add(time.Hour)))
	require.NoError(t, st.ConsumeToken(ctx, "u", "t1", "r1"))
	assert.ErrorIs(t, st.ConsumeToken(ctx, "u", "t1", "r1"), ErrNotFound, "refresh tokens are single use")

	require.NoError(t, st.StoreToken(ctx, "u", "t2", "r2", now.Add(-time.Hour)))
	assert.ErrorIs(t, st.ConsumeToken(ctx, "u", "t2", "r2"), ErrExpired)

	require.NoError(t, st.StoreToken(ctx, "u", "t3", "r3", now.Add(time.Hour)))
	require.NoError(t, st.RevokeTokens(ctx, "u"))
	assert.ErrorIs(t, st.ConsumeToken(ctx, "u", "t3", "r3"), ErrNotFound)
}

func TestLoginTickets(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, st)
	now := st.now()

	require.NoError(t, st.CreateLoginTicket(ctx, user.ID, "h1", now.Add(5*time.Minute)))
	assert.ErrorIs(t, st.ConsumeLoginTicket(ctx, "someone-else", "h1"), ErrNotFound)
	require.NoError(t, st.ConsumeLoginTicket(ctx, user.ID, "h1"))
	assert.ErrorIs(t, st.ConsumeLoginTicket(ctx, user.ID, "h1"), ErrNotFound)

	require.NoError(t, st.CreateLoginTicket(ctx, user.ID, "h2", now))
	assert.ErrorIs(t, st.ConsumeLoginTicket(ctx, user.ID, "h2"), ErrExpired)
}
