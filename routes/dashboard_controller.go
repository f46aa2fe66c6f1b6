package routes

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"github.com/mbolis/survey-dashboard/app"
	"github.com/mbolis/survey-dashboard/httpx"
	"github.com/mbolis/survey-dashboard/log"
)

// parsePage reads ?page=, 1 when absent. Values below 1 are passed on as is,
// unless (page-1)*pageSize would overflow.
func parsePage(r *http.Request, pageSize int) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if pageSize > 0 && page < math.MinInt/pageSize+1 {
		return 0, fmt.Errorf("page %d out of range", page)
	}
	return page, nil
}

func Dashboard(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, render.M{"user": httpx.UserFromContext(r.Context())})
	}
}

func ListQuestionTypes(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionTypes, err := app.Store.ListQuestionTypes(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.list_question_types", err)
			return
		}
		render.JSON(w, r, render.M{"questionTypes": questionTypes})
	}
}

func badPage(w http.ResponseWriter, err error) {
	httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.query.page", "invalid page: %s", err)
}
