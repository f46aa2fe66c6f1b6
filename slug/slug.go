// Package slug derives URL-safe identifiers for named entities.
package slug

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mbolis/survey-dashboard/model"
)

const suffixLen = 24

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// InvalidNameError is returned when a name has nothing left after slugification.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("slug: name %q has no alphanumeric characters", e.Name)
}

// Slugify lowercases name, folds diacritics, collapses every run of
// non-alphanumeric characters into a single "-" and trims the ends.
//
//	Slugify("Café!!!")         // "cafe"
//	Slugify("Opción múltiple") // "opcion-multiple"
func Slugify(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	s := strings.ToLower(folded)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NewSuffix returns a 24 character base-36 token built from a random UUID.
func NewSuffix() string {
	id := uuid.New()
	s := new(big.Int).SetBytes(id[:]).Text(36)
	if len(s) < suffixLen {
		s = strings.Repeat("0", suffixLen-len(s)) + s
	}
	return s[len(s)-suffixLen:]
}

type Checker interface {
	SlugExists(ctx context.Context, coll model.Collection, slug string) (bool, error)
}

type Assigner struct {
	store  Checker
	suffix func() string
}

func NewAssigner(store Checker) *Assigner {
	return &Assigner{store: store, suffix: NewSuffix}
}

// Assign picks the slug for a new entity of coll named name. It only reads:
// the caller writes the slug together with the entity, and the store's
// unique constraint decides between concurrent writers.
//
// On a conflict the name is re-slugged once with a random suffix appended.
// The suffixed slug is not checked again.
func (a *Assigner) Assign(ctx context.Context, coll model.Collection, name string) (string, error) {
	candidate := Slugify(name)
	if candidate == "" {
		return "", &InvalidNameError{Name: name}
	}

	taken, err := a.store.SlugExists(ctx, coll, candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	return Slugify(name + a.suffix()), nil
}
