// Copyright (c) 2026 Authgate. All rights reserved.

package gate

import (
	"net/http"
	"strings"

	"github.com/authgate/authgate/internal/platform/constants"
	"github.com/authgate/authgate/internal/platform/ctxutil"
	"github.com/authgate/authgate/internal/platform/middleware"
	"github.com/authgate/authgate/internal/platform/respond"
)

// Middleware adapts the gate into the HTTP processing chain.
//
// It translates the transport request into a [Request], runs [Gate.Check],
// and either rejects with the mapped status code or forwards with the
// resolved identity installed in the request context.
func (gate *Gate) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			gateRequest := Request{
				Path:        request.URL.Path,
				ClientKey:   middleware.RealIP(request),
				Password:    routePasswordFrom(request),
				BearerToken: bearerTokenFrom(request),
				APIKey:      request.Header.Get(constants.APIKeyHeader),
			}

			decision, err := gate.Check(request.Context(), gateRequest)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// Routes whose policy did not demand identity still get one
			// attached when a valid credential was presented, so handlers can
			// apply their own authorization.
			identity := decision.Identity
			if identity == nil {
				identity = gate.OptionalIdentity(request.Context(), gateRequest)
			}

			if identity != nil {
				ctx := ctxutil.WithIdentity(request.Context(), identity)
				request = request.WithContext(ctx)
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// routePasswordFrom reads the candidate secret for password-protected routes.
// The header wins; the query parameter remains for clients that cannot set
// custom headers.
func routePasswordFrom(request *http.Request) string {
	if password := request.Header.Get(constants.RoutePasswordHeader); password != "" {
		return password
	}
	return request.URL.Query().Get(constants.RoutePasswordQueryParam)
}

// bearerTokenFrom extracts the JWT from the Authorization header.
func bearerTokenFrom(request *http.Request) string {
	authorization := request.Header.Get(constants.HeaderAuthorization)
	if authorization == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return ""
	}

	return strings.TrimSpace(authorization[len(prefix):])
}
