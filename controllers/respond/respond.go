// Package respond writes JSON responses and maps service errors to HTTP
// status codes.
package respond

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"stackit-backend/services"
)

var logger = loggo.GetLogger("stackit.http")

// JSON writes body with the given status.
func JSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debugf("writing response: %v", err)
	}
}

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// Status returns the HTTP status for err.
func Status(err error) int {
	var verrs services.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, errors.BadRequest), errors.Is(err, errors.NotValid):
		return http.StatusBadRequest
	case errors.Is(err, errors.NotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.Unauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errors.Forbidden):
		return http.StatusForbidden
	case errors.Is(err, errors.AlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errors.QuotaLimitExceeded):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// Error writes err as {"error": "..."}, or {"errors": {...}} for validation
// failures. Unexpected errors are logged and hidden from the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		JSON(w, status, map[string]interface{}{"errors": verrs})
		return
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %s", r.Method, r.URL.Path, errors.Details(err))
		msg = http.StatusText(status)
	} else {
		logger.Debugf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	JSON(w, status, map[string]string{"error": msg})
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.BadRequestf("invalid request body")
	}
	return nil
}

// ID returns the numeric route variable name.
func ID(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.BadRequestf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

// Page reads page and per_page query parameters. Missing or malformed values
// are left zero for the paginator to default.
func Page(r *http.Request) services.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return services.Page{Page: page, PerPage: perPage}
}

// Paged returns the envelope of a paginated listing with items under key.
// pg must already be normalized.
func Paged(key string, items interface{}, total int64, pg services.Page) map[string]interface{} {
	return map[string]interface{}{
		key:        items,
		"total":    total,
		"page":     pg.Page,
		"per_page": pg.PerPage,
		"pages":    pg.Pages(total),
	}
}
