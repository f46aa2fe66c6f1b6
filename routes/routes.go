package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/survey-dashboard/app"
	"github.com/mbolis/survey-dashboard/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	authorized := middlewares.Authorized(app.TokenSecret, app.Store)
	cookieAuth := middlewares.CookieAuth(app.BearerServer, app.CookieSecure)

	root := chi.NewRouter()
	root.Use(middlewares.RequestLogger, middleware.Recoverer)

	root.Get("/health", Health)
	root.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	root.Get("/login", LoginPage(app))
	root.Post("/login", LoginForm(app))
	root.Get("/logout", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
	root.With(cookieAuth, authorized).Post("/logout", Logout(app))

	if app.GoogleOAuth != nil {
		root.Get("/auth/google", GoogleLogin(app))
		root.Get("/auth/google/callback", GoogleCallback(app))
	}

	root.With(cookieAuth, authorized).Mount("/dashboard", dashboardRouter(app))
	root.Mount("/api", apiRouter(app, authorized))

	return root
}

func apiRouter(app app.App, authorized func(http.Handler) http.Handler) http.Handler {
	api := chi.NewRouter()

	api.Post("/token", Token(app))
	api.Post("/refresh", Refresh(app))

	api.With(authorized).Mount("/", dashboardRouter(app))

	return api
}

func dashboardRouter(app app.App) http.Handler {
	r := chi.NewRouter()

	r.Get("/", Dashboard(app))

	r.Get("/categories", ListCategories(app))
	r.Post("/categories", CreateCategory(app))

	r.Get("/question-types", ListQuestionTypes(app))

	r.Get("/surveys", ListSurveys(app))
	r.Post("/surveys", CreateSurvey(app))
	r.Get("/surveys/new", NewSurvey(app))
	r.Post("/surveys/new", CreateSurveyAndRedirect(app))
	r.Get("/surveys/{id}", GetSurvey(app))
	r.Post("/surveys/{id}", UpdateSurvey(app))

	return r
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}
