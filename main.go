package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/oauth"

	"github.com/mbolis/survey-dashboard/app"
	"github.com/mbolis/survey-dashboard/config"
	"github.com/mbolis/survey-dashboard/database"
	"github.com/mbolis/survey-dashboard/httpx"
	"github.com/mbolis/survey-dashboard/log"
	"github.com/mbolis/survey-dashboard/routes"
	"github.com/mbolis/survey-dashboard/slug"
	"github.com/mbolis/survey-dashboard/store"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	st := store.New(db)
	defer st.Close()

	if cfg.Seed {
		if err := database.Seed(context.Background(), st, cfg); err != nil {
			log.Fatal("main.db.seed:", err)
		}
	}

	app := app.App{
		Store:        st,
		BearerServer: oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, httpx.CredentialsVerifier(st), nil),
		Slugs:        slug.NewAssigner(st),
		GoogleOAuth:  routes.NewGoogleConfig(cfg),
		Config:       cfg,
	}
	if app.GoogleOAuth == nil {
		log.Info("Google sign-in disabled: GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET not set")
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
