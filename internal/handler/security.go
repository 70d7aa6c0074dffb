package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/auth"
	"github.com/xenking/storefront-checkout/internal/domain/user"
	"github.com/xenking/storefront-checkout/pkg/httpmiddleware"
)

// SessionCookie carries the token for browser navigation to /checkout.
const SessionCookie = "__session"

// TokenParser verifies a bearer token.
type TokenParser interface {
	Parse(token string) (user.User, error)
}

// SecurityHandler authenticates requests with the provider's bearer JWT.
type SecurityHandler struct {
	tokens TokenParser
}

// NewSecurityHandler creates a SecurityHandler using tokens.
func NewSecurityHandler(tokens TokenParser) *SecurityHandler {
	return &SecurityHandler{tokens: tokens}
}

// Authenticate returns the shopper named by the Authorization header or,
// failing that, the session cookie. Cookie-authenticated writes must carry
// X-Requested-With, which a cross-site form cannot set.
func (s *SecurityHandler) Authenticate(r *http.Request) (user.User, error) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value == "" {
			return user.User{}, user.ErrUnauthenticated
		}
		if !safeMethod(r.Method) && r.Header.Get("X-Requested-With") == "" {
			return user.User{}, errors.Wrap(user.ErrUnauthenticated, "cookie write without X-Requested-With")
		}
		token = c.Value
	}
	return s.tokens.Parse(token)
}

func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// RequireUser rejects unauthenticated requests with 401 and stores the
// shopper in the context of the rest.
func (s *SecurityHandler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.Authenticate(r)
		if err != nil {
			zctx.From(r.Context()).Debug("Unauthenticated request", zap.Error(err))
			httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := user.WithUser(r.Context(), u)
		ctx = zctx.Base(ctx, zctx.From(ctx).With(zap.String("uid", u.UID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the shopper stored by RequireUser.
func currentUser(r *http.Request) (user.User, error) {
	u, ok := user.FromContext(r.Context())
	if !ok {
		return user.User{}, user.ErrUnauthenticated
	}
	return u, nil
}
