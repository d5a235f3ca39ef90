// Package controllers assembles the HTTP API.
package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stackit-backend/controllers/admin"
	"stackit-backend/controllers/answers"
	"stackit-backend/controllers/authentication"
	"stackit-backend/controllers/httpCors"
	"stackit-backend/controllers/notifications"
	"stackit-backend/controllers/questions"
	"stackit-backend/controllers/respond"
)

// Deps - everything the router mounts. Google, Limiter, Metrics and Health
// may be nil; UploadDir empty disables /uploads/.
type Deps struct {
	Auth          *authentication.Authenticator
	Accounts      *authentication.Handler
	Google        *authentication.GoogleAuth
	Limiter       *authentication.RateLimiter
	Questions     *questions.Handler
	Answers       *answers.Handler
	Notifications *notifications.Handler
	Stream        *notifications.Stream
	Admin         *admin.Handler
	Metrics       prometheus.Gatherer
	Health        func(ctx context.Context) error
	UploadDir     string
	CORSOrigins   []string
}

func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	user := func(h http.HandlerFunc) http.Handler { return d.Auth.RequireUser(h) }
	adminOnly := func(h http.HandlerFunc) http.Handler { return d.Auth.RequireAdmin(h) }
	limited := func(h http.HandlerFunc) http.Handler {
		if d.Limiter == nil {
			return h
		}
		return d.Limiter.Limit(h)
	}

	api.HandleFunc("/health", d.health).Methods(http.MethodGet)

	api.Handle("/auth/register", limited(d.Accounts.Register)).Methods(http.MethodPost)
	api.Handle("/auth/login", limited(d.Accounts.Login)).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", d.Accounts.Logout).Methods(http.MethodPost)
	if d.Google != nil {
		api.HandleFunc("/auth/google/login", d.Google.HandleGoogleLogin).Methods(http.MethodGet)
		api.HandleFunc("/auth/google/callback", d.Google.HandleGoogleCallback).Methods(http.MethodGet)
	}

	// profile routes before {username}
	api.Handle("/users/profile", user(d.Accounts.GetProfile)).Methods(http.MethodGet)
	api.Handle("/users/profile", user(d.Accounts.UpdateProfile)).Methods(http.MethodPut)
	api.Handle("/users/profile/password", user(d.Accounts.ChangePassword)).Methods(http.MethodPut)
	api.HandleFunc("/users/{username}", d.Accounts.PublicProfile).Methods(http.MethodGet)
	api.HandleFunc("/users/{username}/questions", d.Accounts.UserQuestions).Methods(http.MethodGet)
	api.HandleFunc("/users/{username}/answers", d.Accounts.UserAnswers).Methods(http.MethodGet)

	api.HandleFunc("/questions", d.Questions.List).Methods(http.MethodGet)
	api.Handle("/questions", user(d.Questions.Create)).Methods(http.MethodPost)
	api.Handle("/questions/upload-image", user(d.Questions.UploadImage)).Methods(http.MethodPost)
	api.HandleFunc("/questions/{id:[0-9]+}", d.Questions.Get).Methods(http.MethodGet)
	api.Handle("/questions/{id:[0-9]+}", user(d.Questions.Update)).Methods(http.MethodPut)
	api.Handle("/questions/{id:[0-9]+}", user(d.Questions.Delete)).Methods(http.MethodDelete)
	api.HandleFunc("/tags", d.Questions.Tags).Methods(http.MethodGet)

	api.Handle("/answers", user(d.Answers.Create)).Methods(http.MethodPost)
	api.Handle("/answers/{id:[0-9]+}", user(d.Answers.Update)).Methods(http.MethodPut)
	api.Handle("/answers/{id:[0-9]+}", user(d.Answers.Delete)).Methods(http.MethodDelete)
	api.Handle("/answers/{id:[0-9]+}/accept", user(d.Answers.Accept)).Methods(http.MethodPut)
	api.Handle("/answers/{id:[0-9]+}/vote", user(d.Answers.Vote)).Methods(http.MethodPost)
	api.HandleFunc("/answers/{id:[0-9]+}/comments", d.Answers.GetComments).Methods(http.MethodGet)
	api.Handle("/answers/{id:[0-9]+}/comments", user(d.Answers.CreateComment)).Methods(http.MethodPost)

	api.Handle("/notifications", user(d.Notifications.GetNotifications)).Methods(http.MethodGet)
	api.Handle("/notifications/stream", d.Auth.RequireUser(d.Stream)).Methods(http.MethodGet)
	api.Handle("/notifications/digest", user(d.Notifications.SendDigest)).Methods(http.MethodPost)
	api.Handle("/notifications/read-all", user(d.Notifications.MarkAllAsRead)).Methods(http.MethodPut)
	api.Handle("/notifications/{id:[0-9]+}/read", user(d.Notifications.MarkNotificationAsRead)).Methods(http.MethodPut)

	api.Handle("/admin/users", adminOnly(d.Accounts.SearchUsers)).Methods(http.MethodGet)
	api.Handle("/admin/users/{id:[0-9]+}/ban", adminOnly(d.Admin.Ban)).Methods(http.MethodPut)
	api.Handle("/admin/questions/{id:[0-9]+}", adminOnly(d.Questions.Delete)).Methods(http.MethodDelete)
	api.Handle("/admin/answers/{id:[0-9]+}", adminOnly(d.Answers.Delete)).Methods(http.MethodDelete)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.Message(w, http.StatusNotFound, "not found")
	})

	if d.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if d.UploadDir != "" {
		r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))))
	}

	return httpCors.CorsSettings(d.CORSOrigins).Handler(r)
}

func (d Deps) health(w http.ResponseWriter, r *http.Request) {
	if d.Health != nil {
		if err := d.Health(r.Context()); err != nil {
			respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
