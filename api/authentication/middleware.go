package authentication

import (
	"context"
	"net/http"
	"strings"

	. "github.com/cear54/api-t-cuida/api/shared"
	"github.com/cear54/api-t-cuida/common/claims"
	"github.com/cear54/api-t-cuida/common/log"
	"github.com/cear54/api-t-cuida/common/subscriptions"
	"github.com/cear54/api-t-cuida/common/tokens"

	"github.com/pkg/errors"
)

var (
	ErrMissingToken = errors.New("missing authorization token")
)

type Authenticator struct {
	TokenService interface {
		Verify(token string) (claims.Claims, error)
	} `inject:""`
	Gate interface {
		Check(ctx context.Context, daycareId string) subscriptions.Decision
	} `inject:""`
	Logger *log.Logger `inject:""`
}

// Bearer verifies the session token of every request whose path is not excluded
// and places the claims on the request context.
func (f *Authenticator) Bearer(next http.Handler, excludePath []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// Some routes are public
		for _, path := range excludePath {
			if req.URL.Path == path {
				next.ServeHTTP(w, req)
				return
			}
		}

		token, err := bearerToken(req)
		if err != nil {
			HttpError(w, NewError(err.Error()), http.StatusUnauthorized)
			return
		}

		c, err := f.TokenService.Verify(token)
		if err != nil {
			f.Logger.Info(req.Context(), "rejected token", "err", err)
			HttpError(w, NewError(tokens.ErrInvalidToken.Error()), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, req.WithContext(claims.WithClaims(req.Context(), c)))
	})
}

func bearerToken(req *http.Request) (string, error) {
	authorizationHeader := req.Header.Get("Authorization")
	if authorizationHeader == "" {
		return "", ErrMissingToken
	}
	parts := strings.Fields(authorizationHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", tokens.ErrInvalidToken
	}
	return parts[1], nil
}

// Require lets the request through only if its claims grant the capability.
func (f *Authenticator) Require(next http.Handler, capability claims.Capability) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		c, ok := claims.ClaimsFromContext(req.Context())
		if !ok {
			HttpError(w, NewError(ErrMissingToken.Error()), http.StatusUnauthorized)
			return
		}

		authorized, err := claims.Authorize(c, capability)
		switch errors.Cause(err) {
		case nil:
		case claims.ErrMissingTenant, claims.ErrMissingActor:
			HttpError(w, NewError(err.Error()), http.StatusUnauthorized)
			return
		default:
			f.Logger.Info(req.Context(), "capability refused", "capability", capability.String(), "userId", c.UserId)
			HttpError(w, NewError(err.Error()), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, req.WithContext(claims.NewContext(req.Context(), authorized)))
	})
}

// Subscription refuses requests of daycares whose subscription does not grant access. It must run after Require.
func (f *Authenticator) Subscription(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		authorized, ok := claims.FromContext(req.Context())
		if !ok {
			HttpError(w, NewError(claims.ErrMissingTenant.Error()), http.StatusUnauthorized)
			return
		}

		decision := f.Gate.Check(req.Context(), authorized.DaycareId)
		if !decision.Allowed {
			if decision.Status == http.StatusInternalServerError {
				HttpError(w, ServerError, http.StatusInternalServerError)
				return
			}
			HttpError(w, NewError(decision.Reason), decision.Status)
			return
		}

		next.ServeHTTP(w, req)
	})
}

// Gated chains the guard and the subscription gate in front of a handler.
func (f *Authenticator) Gated(next http.Handler, capability claims.Capability) http.Handler {
	return f.Require(f.Subscription(next), capability)
}
