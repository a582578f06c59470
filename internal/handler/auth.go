package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chetan-code/taskcal/internal/apperr"
	"github.com/chetan-code/taskcal/internal/auth"
	"github.com/chetan-code/taskcal/internal/models"
	"github.com/markbates/goth/gothic"
)

// we are doing this to avoid collision with libraries
type contextKey string

const identityKey contextKey = "identity"

// AuthMiddleware is the only gate in front of task routes: it verifies the
// bearer token and puts the caller's identity on the request context.
func AuthMiddleware(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, r, err)
				return
			}

			who, err := tokens.Verify(raw)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, who)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity placed on the context by AuthMiddleware.
func IdentityFromContext(ctx context.Context) (models.Identity, error) {
	who, ok := ctx.Value(identityKey).(models.Identity)
	if !ok || who.UserID == "" {
		return models.Identity{}, apperr.Authentication("authentication required")
	}
	return who, nil
}

type AuthHandler struct {
	authn *auth.Authenticator
}

func NewAuthHandler(a *auth.Authenticator) *AuthHandler {
	return &AuthHandler{authn: a}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.authn.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.authn.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindAuthentication {
			slog.Info("login_failed", "ip", r.RemoteAddr)
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// BeginAuth starts the Google sign-in flow.
func (h *AuthHandler) BeginAuth(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, withGoogleProvider(r))
}

// AuthCallback finishes the Google sign-in flow and answers with our own session token.
func (h *AuthHandler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	user, err := gothic.CompleteUserAuth(w, withGoogleProvider(r))
	if err != nil {
		slog.Warn("oauth_callback_failed", "error", err)
		writeError(w, r, &apperr.Error{Kind: apperr.KindAuthentication, Message: "external sign-in failed", Err: err})
		return
	}

	res, err := h.authn.LoginExternal(r.Context(), user.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	//the provider session is only needed for the handshake
	if err := gothic.Logout(w, r); err != nil && !errors.Is(err, http.ErrNoCookie) {
		slog.Debug("oauth_session_cleanup_failed", "error", err)
	}
	writeJSON(w, http.StatusOK, res)
}

// gothic looks for the provider in the query by default, forcing google
func withGoogleProvider(r *http.Request) *http.Request {
	q := r.URL.Query()
	q.Set("provider", "google")
	r.URL.RawQuery = q.Encode()
	return r
}
