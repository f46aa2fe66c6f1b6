package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/survey-dashboard/app"
	"github.com/mbolis/survey-dashboard/httpx"
	"github.com/mbolis/survey-dashboard/log"
	"github.com/mbolis/survey-dashboard/model"
	"github.com/mbolis/survey-dashboard/pagination"
	"github.com/mbolis/survey-dashboard/slug"
	"github.com/mbolis/survey-dashboard/store"
)

const (
	msgTitleRequired   = "The survey title is required"
	msgTitleInvalid    = "The survey title must contain letters or numbers"
	msgTitleTaken      = "A survey with that name already exists"
	msgUnknownRef      = "Unknown category or question type"
	msgSurveyUpdated   = "Survey updated successfully"
	msgSurveyCreatedFn = "Survey %q was created successfully"
)

type surveyForm struct {
	Title        string            `form:"title"`
	Subtitle     string            `form:"subtitle"`
	Description  string            `form:"description"`
	Instructions string            `form:"instructions"`
	Category     string            `form:"category"`
	IsPublished  string            `form:"isPublished"`
	CustomFields []customFieldForm `form:"customFields"`
	Questions    []questionForm    `form:"questions"`
}

type customFieldForm struct {
	Key   string `form:"key"`
	Value string `form:"value"`
}

type questionForm struct {
	Text           string `form:"text"`
	Type           string `form:"type"`
	QuestionTypeID string `form:"questionTypeId"`
}

// toSurvey drops blank rows left behind by removed form entries.
func (f surveyForm) toSurvey() model.Survey {
	survey := model.Survey{
		Title:        strings.TrimSpace(f.Title),
		Subtitle:     f.Subtitle,
		Description:  f.Description,
		Instructions: f.Instructions,
		CategoryID:   strings.TrimSpace(f.Category),
		IsPublished:  httpx.Checkbox(f.IsPublished),
		Questions:    []model.Question{},
		CustomFields: []model.CustomField{},
	}
	for _, q := range f.Questions {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		typeID := q.QuestionTypeID
		if typeID == "" {
			typeID = q.Type
		}
		survey.Questions = append(survey.Questions, model.Question{Text: q.Text, QuestionTypeID: typeID})
	}
	for _, cf := range f.CustomFields {
		if strings.TrimSpace(cf.Key) == "" {
			continue
		}
		survey.CustomFields = append(survey.CustomFields, model.CustomField{Key: cf.Key, Value: cf.Value})
	}
	return survey
}

func decodeSurvey(w http.ResponseWriter, r *http.Request) (model.Survey, bool) {
	var form surveyForm
	if err := httpx.DecodeForm(r, &form); err != nil {
		httpx.RenderError(w, r, http.StatusBadRequest, "request.parse_form", err.Error())
		return model.Survey{}, false
	}

	survey := form.toSurvey()
	if survey.Title == "" {
		httpx.RenderFieldErrors(w, r, "survey.title", httpx.FieldErrors{"title": msgTitleRequired})
		return survey, false
	}
	return survey, true
}

// saveErrors answers the write failures a user can fix.
func saveErrors(w http.ResponseWriter, r *http.Request, code string, err error) {
	switch {
	case store.IsUniqueViolation(err):
		httpx.RenderFieldErrors(w, r, code+".unique", httpx.FieldErrors{"name": msgTitleTaken})
	case errors.Is(err, store.ErrForeignKey):
		httpx.RenderFieldErrors(w, r, code+".reference", httpx.FieldErrors{"unknown": msgUnknownRef})
	default:
		httpx.LogInternalError(w, code, err)
	}
}

func createSurvey(w http.ResponseWriter, r *http.Request, app app.App) (*model.Survey, bool) {
	survey, ok := decodeSurvey(w, r)
	if !ok {
		return nil, false
	}

	surveySlug, err := app.Slugs.Assign(r.Context(), model.Surveys, survey.Title)
	var invalidName *slug.InvalidNameError
	if errors.As(err, &invalidName) {
		httpx.RenderFieldErrors(w, r, "survey.slug", httpx.FieldErrors{"name": msgTitleInvalid})
		return nil, false
	}
	if err != nil {
		httpx.LogInternalError(w, "db.survey_slug", err)
		return nil, false
	}

	survey.Slug = surveySlug
	survey.UserID = httpx.UserFromContext(r.Context()).ID
	if err := app.Store.CreateSurvey(r.Context(), &survey); err != nil {
		saveErrors(w, r, "db.insert_survey", err)
		return nil, false
	}
	return &survey, true
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePage(r, app.PageSize)
		if err != nil {
			badPage(w, err)
			return
		}

		surveys, err := pagination.List(r.Context(), app.SurveySource(), page, app.PageSize)
		if err != nil {
			httpx.LogInternalError(w, "db.list_surveys", err)
			return
		}
		if surveys.Empty() {
			log.Debugf("list_surveys: page %d of %d is empty", surveys.Pagination.CurrentPage, surveys.Pagination.TotalPages)
		}

		questionTypes, err := app.Store.ListQuestionTypes(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.list_question_types", err)
			return
		}

		var success any
		if msg, ok := httpx.PopFlash(w, r, app.CookieSecure); ok {
			success = msg
		}

		render.JSON(w, r, render.M{
			"user":          httpx.UserFromContext(r.Context()),
			"questionTypes": questionTypes,
			"surveys":       surveys,
			"success":       success,
		})
	}
}

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := createSurvey(w, r, app); !ok {
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, render.M{"success": true})
	}
}

func NewSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionTypes, err := app.Store.ListQuestionTypes(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.list_question_types", err)
			return
		}
		categories, err := app.ListAllCategories(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.list_all_categories", err)
			return
		}

		render.JSON(w, r, render.M{
			"user":          httpx.UserFromContext(r.Context()),
			"questionTypes": questionTypes,
			"categories":    categories,
		})
	}
}

func CreateSurveyAndRedirect(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey, ok := createSurvey(w, r, app)
		if !ok {
			return
		}
		httpx.SetFlash(w, fmt.Sprintf(msgSurveyCreatedFn, survey.Title), app.CookieSecure)
		http.Redirect(w, r, redirectBase(r)+"/surveys", http.StatusSeeOther)
	}
}

func GetSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		survey, err := app.Store.GetSurvey(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "get_survey", id)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey", err)
			return
		}

		questionTypes, err := app.Store.ListQuestionTypes(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.list_question_types", err)
			return
		}

		render.JSON(w, r, render.M{
			"user":          httpx.UserFromContext(r.Context()),
			"questionTypes": questionTypes,
			"survey":        survey,
		})
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		survey, ok := decodeSurvey(w, r)
		if !ok {
			return
		}
		survey.ID = id

		err := app.Store.UpdateSurvey(r.Context(), &survey)
		if errors.Is(err, store.ErrNotFound) {
			httpx.LogNotFound(w, "update_survey", id)
			return
		}
		if err != nil {
			saveErrors(w, r, "db.update_survey", err)
			return
		}

		render.JSON(w, r, render.M{"success": msgSurveyUpdated})
	}
}

// redirectBase is where the dashboard router is mounted, "/dashboard" or "/api".
func redirectBase(r *http.Request) string {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return "/api"
	}
	return "/dashboard"
}
