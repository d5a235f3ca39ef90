package authentication

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/juju/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"stackit-backend/config"
	"stackit-backend/controllers/respond"
)

const oauthStateKey = "google_state"

// GoogleProfile - the parts of the Google userinfo we keep.
type GoogleProfile struct {
	Email string
	Name  string
}

// GoogleAuth serves the Google OAuth login. The state parameter is kept in
// the session cookie between the two legs.
type GoogleAuth struct {
	Config   *oauth2.Config
	Sessions sessions.Store
	Handler  *Handler

	// FetchProfile resolves the profile for an exchanged token. Nil uses the
	// Google userinfo API.
	FetchProfile func(ctx context.Context, tok *oauth2.Token) (*GoogleProfile, error)
	// Exchange trades the code for a token. Nil uses Config.Exchange.
	Exchange func(ctx context.Context, code string) (*oauth2.Token, error)
}

func NewGoogleOAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			oauth2v2.UserinfoEmailScope,
			oauth2v2.UserinfoProfileScope,
		},
		Endpoint: google.Endpoint,
	}
}

// HandleGoogleLogin - GET /api/auth/google/login
func (g *GoogleAuth) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	session, _ := g.Sessions.Get(r, config.SessionName)
	session.Values[oauthStateKey] = state
	if err := session.Save(r, w); err != nil {
		respond.Error(w, r, errors.Annotate(err, "saving oauth state"))
		return
	}
	http.Redirect(w, r, g.Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback - GET /api/auth/google/callback
func (g *GoogleAuth) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	session, _ := g.Sessions.Get(r, config.SessionName)
	want, _ := session.Values[oauthStateKey].(string)
	if want == "" || r.FormValue("state") != want {
		respond.Error(w, r, errors.BadRequestf("invalid oauth state"))
		return
	}
	delete(session.Values, oauthStateKey)

	ctx := r.Context()
	exchange := g.Exchange
	if exchange == nil {
		exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
			return g.Config.Exchange(ctx, code)
		}
	}
	tok, err := exchange(ctx, r.FormValue("code"))
	if err != nil {
		logger.Warningf("exchanging google code: %v", err)
		respond.Error(w, r, errors.Unauthorizedf("google login failed"))
		return
	}

	fetch := g.FetchProfile
	if fetch == nil {
		fetch = g.userinfo
	}
	profile, err := fetch(ctx, tok)
	if err != nil {
		logger.Warningf("fetching google profile: %v", err)
		respond.Error(w, r, errors.Unauthorizedf("google login failed"))
		return
	}

	u, err := g.Handler.Users.FindOrCreateGoogleUser(ctx, profile.Email, profile.Name)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	g.Handler.issue(w, r, http.StatusOK, "Login successful", u)
}

func (g *GoogleAuth) userinfo(ctx context.Context, tok *oauth2.Token) (*GoogleProfile, error) {
	svc, err := oauth2v2.NewService(ctx, option.WithTokenSource(g.Config.TokenSource(ctx, tok)))
	if err != nil {
		return nil, errors.Annotate(err, "creating userinfo client")
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, errors.Annotate(err, "reading userinfo")
	}
	if info.VerifiedEmail != nil && !*info.VerifiedEmail {
		return nil, errors.Forbiddenf("google email %q is not verified", info.Email)
	}
	return &GoogleProfile{Email: info.Email, Name: info.Name}, nil
}
