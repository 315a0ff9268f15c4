// Package service implements the event API on top of a storage.Store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/sunio/internal/api"
	"github.com/mmynk/sunio/internal/auth"
	"github.com/mmynk/sunio/internal/middleware"
	"github.com/mmynk/sunio/internal/models"
	"github.com/mmynk/sunio/internal/storage"
)

// AuthenticatedProcedures require a participant token of the addressed event.
var AuthenticatedProcedures = []string{
	api.CreateExpenseProcedure,
	api.UpdateExpenseProcedure,
	api.DeleteExpenseProcedure,
	api.CreatePaymentProcedure,
	api.DeletePaymentProcedure,
}

var _ api.EventServiceHandler = (*EventService)(nil)

// EventService implements the Connect event service.
type EventService struct {
	store  storage.Store
	authn  *auth.Authenticator
	logger *slog.Logger
}

// NewEventService creates an EventService. Tokens are issued by authn.
func NewEventService(store storage.Store, authn *auth.Authenticator, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		store:  store,
		authn:  authn,
		logger: logger.With("component", "event_service"),
	}
}

// toConnectError maps domain errors to Connect codes. Unknown errors are
// logged and reported as internal.
func (s *EventService) toConnectError(op string, err error) error {
	var ve *api.ValidationError
	switch {
	case errors.As(err, &ve):
		return api.NewValidationError(connect.CodeInvalidArgument, ve)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrNameTaken):
		return api.NewValidationError(connect.CodeAlreadyExists, api.Invalid("name", "is already taken"))
	case errors.Is(err, auth.ErrInvalidPin):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, auth.ErrPinNotSet), errors.Is(err, auth.ErrPinAlreadySet):
		return api.NewValidationError(connect.CodeFailedPrecondition, api.Invalid("pin", err.Error()))
	case errors.Is(err, auth.ErrMissingToken):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, errWrongEvent):
		return connect.NewError(connect.CodePermissionDenied, err)
	}
	s.logger.Error(op+" failed", "error", err)
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}

var errWrongEvent = errors.New("token was issued for another event")

// requireParticipant checks that the caller is signed in to eventID.
func requireParticipant(ctx context.Context, eventID string) (*auth.Claims, error) {
	claims := middleware.ClaimsFromContext(ctx)
	if claims == nil {
		return nil, auth.ErrMissingToken
	}
	if claims.EventID != eventID {
		return nil, errWrongEvent
	}
	return claims, nil
}

func (s *EventService) recentEvents(ctx context.Context) ([]models.RecentEvent, error) {
	visitor := middleware.VisitorID(ctx)
	if visitor == "" {
		return []models.RecentEvent{}, nil
	}
	return s.store.ListRecentEvents(ctx, visitor)
}

func (s *EventService) touch(ctx context.Context, eventID string) {
	visitor := middleware.VisitorID(ctx)
	if visitor == "" {
		return
	}
	if err := s.store.TouchRecentEvent(ctx, visitor, eventID); err != nil {
		s.logger.Warn("failed to record visit", "event_id", eventID, "error", err)
	}
}

// ListRecentEvents returns the events the calling visitor opened.
func (s *EventService) ListRecentEvents(ctx context.Context, _ *connect.Request[api.Empty]) (*connect.Response[api.ListRecentEventsResponse], error) {
	recent, err := s.recentEvents(ctx)
	if err != nil {
		return nil, s.toConnectError("ListRecentEvents", err)
	}
	return connect.NewResponse(&api.ListRecentEventsResponse{RecentEvents: recent}), nil
}

// ForgetRecentEvent drops an event from the visitor's list and returns what
// is left.
func (s *EventService) ForgetRecentEvent(ctx context.Context, req *connect.Request[api.EventRef]) (*connect.Response[api.ListRecentEventsResponse], error) {
	if visitor := middleware.VisitorID(ctx); visitor != "" {
		if err := s.store.ForgetRecentEvent(ctx, visitor, req.Msg.EventID); err != nil {
			return nil, s.toConnectError("ForgetRecentEvent", err)
		}
	}
	return s.ListRecentEvents(ctx, connect.NewRequest(&api.Empty{}))
}

// CreateEvent creates an event with its first participants. The first one
// administers it.
func (s *EventService) CreateEvent(ctx context.Context, req *connect.Request[api.CreateEventRequest]) (*connect.Response[api.CreateEventResponse], error) {
	name := strings.TrimSpace(req.Msg.Name)
	participants := make([]string, 0, len(req.Msg.Participants))
	for _, p := range req.Msg.Participants {
		participants = append(participants, strings.TrimSpace(p))
	}
	if err := api.ValidateEvent(name, participants); err != nil {
		return nil, s.toConnectError("CreateEvent", err)
	}

	event, err := s.store.CreateEvent(ctx, name, participants)
	if err != nil {
		return nil, s.toConnectError("CreateEvent", err)
	}
	s.touch(ctx, event.ID)

	s.logger.Info("Event created", "event_id", event.ID, "participants", len(participants))
	return connect.NewResponse(&api.CreateEventResponse{EventID: event.ID}), nil
}

// GetEvent returns an event and records the visit.
func (s *EventService) GetEvent(ctx context.Context, req *connect.Request[api.EventRef]) (*connect.Response[api.EventResponse], error) {
	event, err := s.store.GetEvent(ctx, req.Msg.EventID)
	if err != nil {
		return nil, s.toConnectError("GetEvent", err)
	}
	s.touch(ctx, event.ID)
	return connect.NewResponse(&api.EventResponse{Event: *event}), nil
}

// RenameEvent changes the event name.
func (s *EventService) RenameEvent(ctx context.Context, req *connect.Request[api.RenameEventRequest]) (*connect.Response[api.EventResponse], error) {
	name := strings.TrimSpace(req.Msg.Name)
	if err := api.ValidateName("name", name); err != nil {
		return nil, s.toConnectError("RenameEvent", err)
	}
	event, err := s.store.RenameEvent(ctx, req.Msg.EventID, name)
	if err != nil {
		return nil, s.toConnectError("RenameEvent", err)
	}
	return connect.NewResponse(&api.EventResponse{Event: *event}), nil
}
