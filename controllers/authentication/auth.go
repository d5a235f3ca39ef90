package authentication

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gorilla/sessions"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"stackit-backend/config"
	"stackit-backend/controllers/respond"
	"stackit-backend/models/users"
	"stackit-backend/services"
)

var logger = loggo.GetLogger("stackit.http.auth")

const sessionUserKey = "user_id"

// Claims - payload of the bearer token.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

// Authenticator issues tokens and resolves the user behind a request, from a
// bearer token or, for browser EventSource clients, the session cookie.
type Authenticator struct {
	Secret   []byte
	TTL      time.Duration
	Users    *services.UserService
	Sessions sessions.Store
}

func (a *Authenticator) GenerateToken(u *users.User) (string, error) {
	claims := &Claims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(a.TTL).Unix(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
	return token, errors.Annotate(err, "signing token")
}

func (a *Authenticator) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.Secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.Unauthorizedf("invalid or expired token")
	}
	return claims, nil
}

// requestUserID finds the user id in the Authorization header, falling back
// to the session. Zero means anonymous.
func (a *Authenticator) requestUserID(r *http.Request) (uint, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		claims, err := a.ParseToken(tokenString)
		if err != nil {
			return 0, err
		}
		return claims.UserID, nil
	}
	if a.Sessions == nil {
		return 0, nil
	}
	session, err := a.Sessions.Get(r, config.SessionName)
	if err != nil {
		logger.Debugf("ignoring broken session: %v", err)
		return 0, nil
	}
	id, _ := session.Values[sessionUserKey].(uint)
	return id, nil
}

// ValidateToken returns the active user making r. Banned users are refused.
func (a *Authenticator) ValidateToken(r *http.Request) (*users.User, error) {
	id, err := a.requestUserID(r)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, errors.Unauthorizedf("authentication required")
	}
	u, err := a.Users.Get(r.Context(), id)
	if errors.Is(err, errors.NotFound) {
		return nil, errors.Unauthorizedf("user no longer exists")
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	if u.Banned {
		return nil, errors.Forbiddenf("your account has been banned")
	}
	return u, nil
}

// StartSession remembers u in the session cookie.
func (a *Authenticator) StartSession(w http.ResponseWriter, r *http.Request, u *users.User) error {
	if a.Sessions == nil {
		return nil
	}
	session, _ := a.Sessions.Get(r, config.SessionName)
	session.Values[sessionUserKey] = u.ID
	return errors.Annotate(session.Save(r, w), "saving session")
}

func (a *Authenticator) EndSession(w http.ResponseWriter, r *http.Request) error {
	if a.Sessions == nil {
		return nil
	}
	session, _ := a.Sessions.Get(r, config.SessionName)
	delete(session.Values, sessionUserKey)
	session.Options = &sessions.Options{Path: "/", MaxAge: -1}
	return errors.Annotate(session.Save(r, w), "clearing session")
}

type contextKey struct{}

func ContextWithUser(ctx context.Context, u *users.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// CurrentUser returns the user stored by RequireUser.
func CurrentUser(ctx context.Context) *users.User {
	u, _ := ctx.Value(contextKey{}).(*users.User)
	return u
}

// RequireUser rejects anonymous and banned callers.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := a.ValidateToken(r)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), u)))
	})
}

// RequireAdmin is RequireUser restricted to the admin role.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CurrentUser(r.Context()).IsAdmin() {
			respond.Error(w, r, errors.Forbiddenf("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// Handler serves the account endpoints.
type Handler struct {
	Auth      *Authenticator
	Users     *services.UserService
	Questions *services.QuestionService
	Answers   *services.AnswerService
	Paginator services.Paginator
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, status int, msg string, u *users.User) {
	token, err := h.Auth.GenerateToken(u)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.Auth.StartSession(w, r, u); err != nil {
		logger.Warningf("session for %q: %v", u.Username, err)
	}
	respond.JSON(w, status, map[string]interface{}{
		"message": msg,
		"user":    u.View(true),
		"token":   token,
	})
}

// Register - POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	u, err := h.Users.Register(r.Context(), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	h.issue(w, r, http.StatusCreated, "User registered successfully", u)
}

// Login - POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	u, err := h.Users.Authenticate(r.Context(), in.Username, in.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	logger.Debugf("user %q logged in", u.Username)
	h.issue(w, r, http.StatusOK, "Login successful", u)
}

// Logout drops the session cookie. Bearer tokens simply expire.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.EndSession(w, r); err != nil {
		logger.Warningf("logout: %v", err)
	}
	respond.Message(w, http.StatusOK, "Logged out successfully")
}
