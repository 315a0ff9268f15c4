package service

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/sunio/internal/api"
	"github.com/mmynk/sunio/internal/auth"
	"github.com/mmynk/sunio/internal/middleware"
)

// NewHandler mounts svc behind the visitor, auth and logging interceptors.
// outer interceptors run first and see every request, including the ones
// rejected for a missing token.
func NewHandler(svc *EventService, jwtManager *auth.JWTManager, logger *slog.Logger, outer ...connect.Interceptor) (string, http.Handler) {
	interceptors := append([]connect.Interceptor{}, outer...)
	interceptors = append(interceptors,
		middleware.Visitor(),
		middleware.Authenticate(jwtManager, AuthenticatedProcedures...),
		middleware.LoggingInterceptor(logger),
	)
	return api.NewEventServiceHandler(svc, connect.WithInterceptors(interceptors...))
}
