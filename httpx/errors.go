package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/mbolis/survey-dashboard/log"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// Will log an error code at debug level, and send a JSON response
// {"error": msg} with the given status
func RenderError(w http.ResponseWriter, r *http.Request, status int, code string, msg string) {
	log.Debugf("%s: %s", code, msg)
	render.Status(r, status)
	render.JSON(w, r, render.M{"error": msg})
}

// FieldErrors maps form field names to a message for the user.
type FieldErrors map[string]string

// Will log an error code at debug level, and send a JSON response
// {"errors": {field: msg}} with status 400
func RenderFieldErrors(w http.ResponseWriter, r *http.Request, code string, errs FieldErrors) {
	log.Debugf("%s: %v", code, errs)
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, render.M{"errors": errs})
}
