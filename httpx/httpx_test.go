package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/survey-dashboard/config"
	"github.com/mbolis/survey-dashboard/database"
	"github.com/mbolis/survey-dashboard/model"
	"github.com/mbolis/survey-dashboard/store"
)

func setupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := database.Open(config.Config{DBUrl: ":memory:"})
	require.NoError(t, err)

	st := store.New(db)
	t.Cleanup(func() { st.Close() })
	return st
}

func createTestUser(t *testing.T, st store.Store, email, password string) *model.User {
	t.Helper()
	ctx := context.Background()
	if password == "" {
		user, err := st.UpsertGoogleUser(ctx, &model.User{Email: email, Name: "Test User", GoogleID: "g-" + email})
		require.NoError(t, err)
		return user
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := st.UpsertPasswordUser(ctx, email, "Test User", hash)
	require.NoError(t, err)
	return user
}

// =============================================================================
// Credentials and tokens
// =============================================================================

func TestRequestToken_Password(t *testing.T) {
	st := setupTestStore(t)
	createTestUser(t, st, "test@example.com", "password123")
	bs := oauth.NewBearerServer("secret", time.Minute, CredentialsVerifier(st), nil)
	ctx := context.Background()

	token, err := RequestToken(ctx, bs, PasswordGrant("test@example.com", "password123"))
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.NotEmpty(t, token.RefreshToken)
	assert.EqualValues(t, 60, token.ExpiresIn)

	_, err = RequestToken(ctx, bs, PasswordGrant("test@example.com", "wrong"))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = RequestToken(ctx, bs, PasswordGrant("nobody@example.com", "password123"))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRequestToken_RefreshIsSingleUse(t *testing.T) {
	st := setupTestStore(t)
	createTestUser(t, st, "test@example.com", "password123")
	bs := oauth.NewBearerServer("secret", time.Minute, CredentialsVerifier(st), nil)
	ctx := context.Background()

	token, err := RequestToken(ctx, bs, PasswordGrant("test@example.com", "password123"))
	require.NoError(t, err)

	refreshed, err := RequestToken(ctx, bs, RefreshGrant(token.RefreshToken))
	require.NoError(t, err)
	assert.NotEqual(t, token.RefreshToken, refreshed.RefreshToken)

	_, err = RequestToken(ctx, bs, RefreshGrant(token.RefreshToken))
	assert.Error(t, err)
}

func TestRequestToken_LoginTicket(t *testing.T) {
	st := setupTestStore(t)
	user := createTestUser(t, st, "google@example.com", "")
	bs := oauth.NewBearerServer("secret", time.Minute, CredentialsVerifier(st), nil)
	ctx := context.Background()

	require.NoError(t, st.CreateLoginTicket(ctx, user.ID, HashTicket("ticket-1"), time.Now().Add(time.Minute)))

	_, err := RequestToken(ctx, bs, PasswordGrant("google@example.com", "ticket-1"))
	require.NoError(t, err)

	_, err = RequestToken(ctx, bs, PasswordGrant("google@example.com", "ticket-1"))
	assert.ErrorIs(t, err, ErrUnauthorized, "tickets are single use")
}

func TestCredentialsVerifier_Claims(t *testing.T) {
	st := setupTestStore(t)
	user := createTestUser(t, st, "test@example.com", "password123")
	verifier := CredentialsVerifier(st)

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	claims, err := verifier.AddClaims(oauth.UserToken, "test@example.com", "id", "", r)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"uid": user.ID, "email": "test@example.com"}, claims)

	assert.Error(t, verifier.ValidateClient("client", "secret", "", r))
}

func TestHashTicket(t *testing.T) {
	assert.Len(t, HashTicket("abc"), 64)
	assert.Equal(t, HashTicket("abc"), HashTicket("abc"))
	assert.NotEqual(t, HashTicket("abc"), HashTicket("abd"))
}

// =============================================================================
// Cookies
// =============================================================================

func TestSessionCookies(t *testing.T) {
	w := httptest.NewRecorder()
	SetSessionCookies(w, &TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 120}, true)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, AccessTokenCookie, cookies[0].Name)
	assert.Equal(t, "a", cookies[0].Value)
	assert.Equal(t, 120, cookies[0].MaxAge)
	assert.True(t, cookies[0].Secure)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, RefreshTokenCookie, cookies[1].Name)
	assert.Equal(t, "r", cookies[1].Value)

	w = httptest.NewRecorder()
	ClearSessionCookies(w, false)
	for _, c := range w.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestFlash(t *testing.T) {
	w := httptest.NewRecorder()
	SetFlash(w, `Survey "Wellbeing" was created successfully`, true)

	set := w.Result().Cookies()
	require.Len(t, set, 1)
	assert.True(t, set[0].HttpOnly)
	assert.True(t, set[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, set[0].SameSite)

	r := httptest.NewRequest(http.MethodGet, "/dashboard/surveys", nil)
	for _, c := range set {
		r.AddCookie(c)
	}

	w = httptest.NewRecorder()
	msg, ok := PopFlash(w, r, true)
	assert.True(t, ok)
	assert.Equal(t, `Survey "Wellbeing" was created successfully`, msg)

	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
	assert.True(t, cleared[0].HttpOnly)
	assert.True(t, cleared[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cleared[0].SameSite)

	_, ok = PopFlash(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), true)
	assert.False(t, ok)
}

func TestFlash_Insecure(t *testing.T) {
	w := httptest.NewRecorder()
	SetFlash(w, "saved", false)

	set := w.Result().Cookies()
	require.Len(t, set, 1)
	assert.False(t, set[0].Secure)
	assert.True(t, set[0].HttpOnly)
}

// =============================================================================
// Forms
// =============================================================================

type testQuestion struct {
	Text string `form:"text"`
	Type string `form:"type"`
}

type testSurveyForm struct {
	Title       string         `form:"title"`
	IsPublished string         `form:"isPublished"`
	Questions   []testQuestion `form:"questions"`
}

func TestDecodeForm_Brackets(t *testing.T) {
	body := url.Values{
		"title":               {"Wellbeing"},
		"isPublished":         {"on"},
		"questions[0][text]":  {"How rested are you?"},
		"questions[0][type]":  {"qt-1"},
		"questions[1][text]":  {"Anything else?"},
		"questions[1][type]":  {"qt-2"},
		"somethingUnexpected": {"x"},
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body.Encode()))
	r.Header.Set("content-type", "application/x-www-form-urlencoded")

	var f testSurveyForm
	require.NoError(t, DecodeForm(r, &f))

	assert.Equal(t, "Wellbeing", f.Title)
	assert.True(t, Checkbox(f.IsPublished))
	assert.Equal(t, []testQuestion{
		{Text: "How rested are you?", Type: "qt-1"},
		{Text: "Anything else?", Type: "qt-2"},
	}, f.Questions)
}

func TestDecodeForm_IndexLimit(t *testing.T) {
	for _, key := range []string{
		"questions[20000000][text]",
		"questions[500][text]",
		"questions[-1][text]",
		"questions[99999999999999999999999][text]",
		"questions.20000000.text",
	} {
		var f testSurveyForm
		err := DecodeValues(url.Values{key: {"x"}}, &f)
		assert.Error(t, err, key)
		assert.Empty(t, f.Questions, key)
	}

	var f testSurveyForm
	require.NoError(t, DecodeValues(url.Values{"questions[499][text]": {"last"}}, &f))
	require.Len(t, f.Questions, maxFormItems)
	assert.Equal(t, "last", f.Questions[maxFormItems-1].Text)
}

func TestCheckbox(t *testing.T) {
	assert.True(t, Checkbox("on"))
	assert.True(t, Checkbox("TRUE"))
	assert.False(t, Checkbox(""))
	assert.False(t, Checkbox("off"))
}

// =============================================================================
// Response buffer
// =============================================================================

func TestResponseBuffer(t *testing.T) {
	buf := NewResponseBuffer()
	assert.Nil(t, buf.Body())

	buf.Header().Set("x-test", "1")
	buf.WriteHeader(http.StatusCreated)
	buf.WriteHeader(http.StatusTeapot)
	_, err := buf.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, buf.Status())

	w := httptest.NewRecorder()
	require.NoError(t, buf.Flush(w))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("x-test"))
	assert.Equal(t, "hello", w.Body.String())

	implicit := NewResponseBuffer()
	implicit.Write([]byte("ok"))
	assert.Equal(t, http.StatusOK, implicit.Status())
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, UserFromContext(ctx))

	user := &model.User{ID: "u1"}
	assert.Same(t, user, UserFromContext(WithUser(ctx, user)))
}
