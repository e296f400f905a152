package server

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/bjarke-xyz/course-applications/internal/server/html"
	"github.com/bjarke-xyz/course-applications/internal/service"
	"github.com/samber/lo"
)

const idTokenCookieKey = "ID_TOKEN"

var (
	IdTokenCtxKey = &contextKey{"IdToken"}
)

// TokenVerifier checks a Firebase ID token. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// PasswordSignIn exchanges credentials for an ID token.
type PasswordSignIn interface {
	SignInWithEmailAndPassword(ctx context.Context, email string, password string) (service.IdTokenResponse, error)
}

func (s *server) handleGetLogin(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	s.render(w, http.StatusOK, func(w io.Writer) error {
		return html.LoginPage(w, html.LoginParams{Title: "Login", Error: query.Get("error"), Next: safeNext(query.Get("next"))})
	})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   idTokenCookieKey,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")
	next := safeNext(r.FormValue("next"))
	if email == "" || password == "" {
		redirectToLogin(w, r, "bad request", next)
		return
	}

	resp, err := s.signIn.SignInWithEmailAndPassword(r.Context(), email, password)
	if err != nil {
		s.logger.Error("failed to login", "error", err)
		redirectToLogin(w, r, "internal error", next)
		return
	}
	if resp.Error != nil {
		redirectToLogin(w, r, resp.Error.Message, next)
		return
	}

	// ID tokens live for an hour; fall back to that if expiresIn is missing
	maxAge := 3600
	if n, err := strconv.Atoi(resp.ExpiresIn); err == nil && n > 0 {
		maxAge = n
	}
	http.SetCookie(w, &http.Cookie{
		Name:     idTokenCookieKey,
		Value:    resp.IdToken,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// firebaseJwtVerifier sends unauthenticated requests to the login page and
// stores the verified token in the request context otherwise.
func (s *server) firebaseJwtVerifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idTokenCookie, ok := lo.Find(r.Cookies(), func(c *http.Cookie) bool { return c.Name == idTokenCookieKey })
		if !ok || len(idTokenCookie.Value) == 0 {
			redirectToLogin(w, r, "", r.URL.RequestURI())
			return
		}

		ctx := r.Context()
		token, err := s.verifier.VerifyIDToken(ctx, idTokenCookie.Value)
		if err != nil {
			s.logger.Info("rejected id token", "error", err)
			redirectToLogin(w, r, "session expired", r.URL.RequestURI())
			return
		}
		ctx = NewContext(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey struct {
	name string
}

func NewContext(ctx context.Context, t *auth.Token) context.Context {
	return context.WithValue(ctx, IdTokenCtxKey, t)
}

func TokenFromContext(ctx context.Context) *auth.Token {
	idToken, _ := ctx.Value(IdTokenCtxKey).(*auth.Token)
	return idToken
}

// UserIDFromContext returns the Firebase UID of the signed in user.
func UserIDFromContext(ctx context.Context) (string, bool) {
	token := TokenFromContext(ctx)
	if token == nil || token.UID == "" {
		return "", false
	}
	return token.UID, true
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, errMsg string, next string) {
	query := url.Values{}
	if errMsg != "" {
		query.Set("error", errMsg)
	}
	if next != "" && next != listPath {
		query.Set("next", next)
	}
	target := loginPath
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// safeNext only allows local redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return listPath
	}
	return next
}
