package routes

import (
	"errors"
	"net/http"
	"strings"

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
	msgCategoryNameRequired = "The category name is required"
	msgCategoryNameInvalid  = "The category name must contain letters or numbers"
	msgCategoryNameTaken    = "A category with that name already exists"
)

type categoryForm struct {
	Name string `form:"name"`
}

func ListCategories(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePage(r, app.PageSize)
		if err != nil {
			badPage(w, err)
			return
		}

		categories, err := pagination.List(r.Context(), app.CategorySource(), page, app.PageSize)
		if err != nil {
			httpx.LogInternalError(w, "db.list_categories", err)
			return
		}
		if categories.Empty() {
			log.Debugf("list_categories: page %d of %d is empty", categories.Pagination.CurrentPage, categories.Pagination.TotalPages)
		}

		render.JSON(w, r, render.M{
			"user":       httpx.UserFromContext(r.Context()),
			"categories": categories,
		})
	}
}

func CreateCategory(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form categoryForm
		if err := httpx.DecodeForm(r, &form); err != nil {
			httpx.RenderError(w, r, http.StatusBadRequest, "request.parse_form", err.Error())
			return
		}

		name := strings.TrimSpace(form.Name)
		if name == "" {
			httpx.RenderError(w, r, http.StatusBadRequest, "category.name", msgCategoryNameRequired)
			return
		}

		categorySlug, err := app.Slugs.Assign(r.Context(), model.Categories, name)
		var invalidName *slug.InvalidNameError
		if errors.As(err, &invalidName) {
			httpx.RenderFieldErrors(w, r, "category.slug", httpx.FieldErrors{"name": msgCategoryNameInvalid})
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.category_slug", err)
			return
		}

		category := model.Category{
			Name:   name,
			Slug:   categorySlug,
			UserID: httpx.UserFromContext(r.Context()).ID,
		}
		err = app.Store.CreateCategory(r.Context(), &category)
		if store.IsUniqueViolation(err) {
			httpx.RenderFieldErrors(w, r, "db.insert_category.unique", httpx.FieldErrors{"name": msgCategoryNameTaken})
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.insert_category", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, render.M{"success": category})
	}
}
