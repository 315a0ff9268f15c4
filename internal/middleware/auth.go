package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/sunio/internal/api"
	"github.com/mmynk/sunio/internal/auth"
)

type contextKey string

const (
	claimsKey  contextKey = "claims"
	visitorKey contextKey = "visitor_id"
)

// ClaimsFromContext returns the claims of the signed-in participant, or nil.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// ParticipantID returns the signed-in participant id, or "".
func ParticipantID(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.ParticipantID
	}
	return ""
}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// VisitorID returns the visitor id sent by the client, or "".
func VisitorID(ctx context.Context) string {
	id, _ := ctx.Value(visitorKey).(string)
	return id
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Authenticate validates bearer tokens and adds their claims to the context.
// Procedures listed in required reject requests without a valid token; every
// other procedure serves anonymous callers and ignores bad tokens.
func Authenticate(jwtManager *auth.JWTManager, required ...string) connect.UnaryInterceptorFunc {
	mustAuth := make(map[string]bool, len(required))
	for _, p := range required {
		mustAuth[p] = true
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			strict := mustAuth[req.Spec().Procedure]

			authHeader := req.Header().Get(api.AuthorizationHeader)
			if authHeader == "" {
				if strict {
					return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
				}
				return next(ctx, req)
			}

			tokenString, ok := bearerToken(authHeader)
			if !ok {
				if strict {
					return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
				}
				return next(ctx, req)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				if strict {
					return nil, connect.NewError(connect.CodeUnauthenticated, err)
				}
				return next(ctx, req)
			}
			return next(WithClaims(ctx, claims), req)
		}
	}
}

// Visitor copies the visitor header into the context.
func Visitor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if id := strings.TrimSpace(req.Header().Get(api.VisitorHeader)); id != "" {
				ctx = context.WithValue(ctx, visitorKey, id)
			}
			return next(ctx, req)
		}
	}
}
