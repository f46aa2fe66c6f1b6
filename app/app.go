package app

import (
	"github.com/go-chi/oauth"
	"golang.org/x/oauth2"

	"github.com/mbolis/survey-dashboard/config"
	"github.com/mbolis/survey-dashboard/slug"
	"github.com/mbolis/survey-dashboard/store"
)

type App struct {
	store.Store
	*oauth.BearerServer
	Slugs *slug.Assigner
	// GoogleOAuth is nil when Google sign-in is not configured.
	GoogleOAuth *oauth2.Config
	config.Config
}
