package http

import (
	"context"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/identity"
	"fintrack/internal/log"
	"fintrack/internal/session"
)

type userKey struct{}

// sessionHandler serves a request of a signed-in owner.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// authed resolves the bearer token to a user and that user's session. The
// user is available to the handler through userFrom.
func (s *Server) authed(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, core.ErrUnauthenticated)
			return
		}
		user, err := s.identity.Resolve(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		sess, err := s.sessions.Get(r.Context(), user.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, user)
		ctx = context.WithValue(ctx, log.LoggerContextKey, log.FromContext(ctx).With(log.FieldOwnerID, user.ID))
		next(w, r.WithContext(ctx), sess)
	})
}

func userFrom(ctx context.Context) (identity.User, bool) {
	u, ok := ctx.Value(userKey{}).(identity.User)
	return u, ok
}

type authResponse struct {
	Token string        `json:"token"`
	User  identity.User `json:"user"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, token, err := s.identity.SignUp(r.Context(), sanitizeInput(in.Name), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, token, err := s.identity.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	user, _ := userFrom(r.Context())
	writeJSON(w, http.StatusOK, struct {
		User      identity.User `json:"user"`
		UndoDepth int           `json:"undoDepth"`
	}{User: user, UndoDepth: sess.UndoDepth()})
}

// handleSignOut revokes the token. The session manager observes the
// sign-out and drops the owner's session.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, r, core.ErrUnauthenticated)
		return
	}
	if err := s.identity.SignOut(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
