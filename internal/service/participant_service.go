package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/sunio/internal/api"
	"github.com/mmynk/sunio/internal/auth"
	"github.com/mmynk/sunio/internal/models"
)

func (s *EventService) credentials(p *models.Participant, token string) *connect.Response[api.Credentials] {
	return connect.NewResponse(&api.Credentials{Participant: *p, Token: token})
}

// ListParticipants returns the participants of an event.
func (s *EventService) ListParticipants(ctx context.Context, req *connect.Request[api.EventRef]) (*connect.Response[api.ListParticipantsResponse], error) {
	if _, err := s.store.GetEvent(ctx, req.Msg.EventID); err != nil {
		return nil, s.toConnectError("ListParticipants", err)
	}
	participants, err := s.store.ListParticipants(ctx, req.Msg.EventID)
	if err != nil {
		return nil, s.toConnectError("ListParticipants", err)
	}
	return connect.NewResponse(&api.ListParticipantsResponse{Participants: participants}), nil
}

// CreateParticipant joins an event and signs the new participant in. The PIN
// is optional; without one it is set on first login.
func (s *EventService) CreateParticipant(ctx context.Context, req *connect.Request[api.CreateParticipantRequest]) (*connect.Response[api.Credentials], error) {
	name := strings.TrimSpace(req.Msg.Name)
	if err := api.ValidateName("name", name); err != nil {
		return nil, s.toConnectError("CreateParticipant", err)
	}

	var hash string
	if req.Msg.Pin != "" {
		if err := api.ValidatePin(req.Msg.Pin); err != nil {
			return nil, s.toConnectError("CreateParticipant", err)
		}
		var err error
		if hash, err = auth.HashPin(req.Msg.Pin); err != nil {
			return nil, s.toConnectError("CreateParticipant", err)
		}
	}

	p, err := s.store.CreateParticipant(ctx, req.Msg.EventID, name, hash)
	if err != nil {
		return nil, s.toConnectError("CreateParticipant", err)
	}
	token, err := s.authn.Issue(p)
	if err != nil {
		return nil, s.toConnectError("CreateParticipant", err)
	}

	s.logger.Info("Participant joined", "event_id", p.EventID, "participant_id", p.ID)
	return s.credentials(p, token), nil
}

// RenameParticipant changes a participant's name.
func (s *EventService) RenameParticipant(ctx context.Context, req *connect.Request[api.RenameParticipantRequest]) (*connect.Response[api.ParticipantResponse], error) {
	name := strings.TrimSpace(req.Msg.Name)
	if err := api.ValidateName("name", name); err != nil {
		return nil, s.toConnectError("RenameParticipant", err)
	}
	p, err := s.store.RenameParticipant(ctx, req.Msg.EventID, req.Msg.ParticipantID, name)
	if err != nil {
		return nil, s.toConnectError("RenameParticipant", err)
	}
	return connect.NewResponse(&api.ParticipantResponse{Participant: *p}), nil
}

// SetParticipantPin sets the first PIN of a participant and signs them in.
// A PIN that is already set cannot be replaced this way.
func (s *EventService) SetParticipantPin(ctx context.Context, req *connect.Request[api.PinRequest]) (*connect.Response[api.Credentials], error) {
	if err := api.ValidatePin(req.Msg.Pin); err != nil {
		return nil, s.toConnectError("SetParticipantPin", err)
	}
	p, token, err := s.authn.SetFirstPin(ctx, req.Msg.EventID, req.Msg.ParticipantID, req.Msg.Pin)
	if err != nil {
		return nil, s.toConnectError("SetParticipantPin", err)
	}
	s.logger.Info("Participant set pin", "event_id", p.EventID, "participant_id", p.ID)
	return s.credentials(p, token), nil
}

// Login checks a participant PIN and returns a token.
func (s *EventService) Login(ctx context.Context, req *connect.Request[api.PinRequest]) (*connect.Response[api.Credentials], error) {
	if err := api.ValidatePin(req.Msg.Pin); err != nil {
		return nil, s.toConnectError("Login", err)
	}
	p, token, err := s.authn.Login(ctx, req.Msg.EventID, req.Msg.ParticipantID, req.Msg.Pin)
	if err != nil {
		s.logger.Warn("Login failed", "event_id", req.Msg.EventID, "participant_id", req.Msg.ParticipantID, "error", err)
		return nil, s.toConnectError("Login", err)
	}
	return s.credentials(p, token), nil
}

// DeleteParticipant removes a participant with their expenses and payments.
func (s *EventService) DeleteParticipant(ctx context.Context, req *connect.Request[api.ParticipantRef]) (*connect.Response[api.Empty], error) {
	if err := s.store.DeleteParticipant(ctx, req.Msg.EventID, req.Msg.ParticipantID); err != nil {
		return nil, s.toConnectError("DeleteParticipant", err)
	}
	s.logger.Info("Participant deleted", "event_id", req.Msg.EventID, "participant_id", req.Msg.ParticipantID)
	return connect.NewResponse(&api.Empty{}), nil
}
