package database

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/survey-dashboard/config"
	"github.com/mbolis/survey-dashboard/log"
	"github.com/mbolis/survey-dashboard/model"
	"github.com/mbolis/survey-dashboard/slug"
)

var questionTypes = []string{
	"Slider",
	"Opción múltiple",
	"Texto",
	"Texto largo",
}

type SeedStore interface {
	ListQuestionTypes(ctx context.Context) ([]model.QuestionType, error)
	CreateQuestionType(ctx context.Context, qt *model.QuestionType) error
	UpsertPasswordUser(ctx context.Context, email, name string, passwordHash []byte) (*model.User, error)
}

// Seed installs the built-in question types when there are none yet, and the
// local user configured through SURVEY_SEED_EMAIL / SURVEY_SEED_PASSWORD.
func Seed(ctx context.Context, st SeedStore, cfg config.Config) error {
	existing, err := st.ListQuestionTypes(ctx)
	if err != nil {
		return fmt.Errorf("seed: list question types: %w", err)
	}
	if len(existing) == 0 {
		for _, name := range questionTypes {
			qt := model.QuestionType{Name: name, Slug: slug.Slugify(name)}
			if err := st.CreateQuestionType(ctx, &qt); err != nil {
				return fmt.Errorf("seed: question type %q: %w", name, err)
			}
			log.Debugf("seed: question type %s (%s)", qt.Name, qt.Slug)
		}
	}

	if cfg.SeedEmail == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed: hash password: %w", err)
	}
	user, err := st.UpsertPasswordUser(ctx, cfg.SeedEmail, "Test User", hash)
	if err != nil {
		return fmt.Errorf("seed: user %s: %w", cfg.SeedEmail, err)
	}
	log.Infof("seed: local user %s ready", user.Email)

	return nil
}
