package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/envelope-ledger/internal/response"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

// tokenVerifier is satisfied by *auth.Client.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type Middleware struct {
	AuthClient      tokenVerifier
	ResponseHandler response.ResponseHandler
}

func NewMiddleware(client tokenVerifier, rh response.ResponseHandler) *Middleware {
	return &Middleware{AuthClient: client, ResponseHandler: rh}
}

type contextKey string

const UIDKey contextKey = "uid"

// FirebaseAuth verifies the bearer ID token and scopes the request to its uid.
func (m *Middleware) FirebaseAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			m.unauthorized(w, r, "missing Authorization header")
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.unauthorized(w, r, "invalid Authorization header")
			return
		}

		token, err := m.AuthClient.VerifyIDToken(r.Context(), parts[1])
		if err != nil {
			logger.FromContext(r.Context()).Warn("id token rejected", "error", err)
			m.unauthorized(w, r, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UIDKey, token.UID)
		_, ctx = logger.With(ctx, "uid", token.UID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	m.ResponseHandler.WriteError(w, r, http.StatusUnauthorized, "unauthorized", message, nil)
}

// UID returns the verified uid, or "" outside FirebaseAuth.
func UID(ctx context.Context) string {
	uid, _ := ctx.Value(UIDKey).(string)
	return uid
}
