package auth

import (
	"context"
	"errors"

	"github.com/mmynk/sunio/internal/models"
)

var (
	ErrInvalidPin    = errors.New("invalid participant or pin")
	ErrPinNotSet     = errors.New("participant has no pin")
	ErrPinAlreadySet = errors.New("participant already has a pin")
)

// PinStore is the part of the storage the authenticator needs.
type PinStore interface {
	GetParticipant(ctx context.Context, eventID, participantID string) (*models.Participant, error)
	PinHash(ctx context.Context, eventID, participantID string) (string, error)
	SetPinHash(ctx context.Context, eventID, participantID, pinHash string) error
}

// Authenticator signs participants in with their PIN.
type Authenticator struct {
	store  PinStore
	tokens *JWTManager
}

// NewAuthenticator creates an authenticator issuing tokens with tokens.
func NewAuthenticator(store PinStore, tokens *JWTManager) *Authenticator {
	return &Authenticator{store: store, tokens: tokens}
}

// Issue returns a token for p without checking a PIN. It is used right
// after a participant is created.
func (a *Authenticator) Issue(p *models.Participant) (string, error) {
	return a.tokens.Generate(p)
}

// Login checks pin and returns the participant with a fresh token.
func (a *Authenticator) Login(ctx context.Context, eventID, participantID, pin string) (*models.Participant, string, error) {
	p, err := a.store.GetParticipant(ctx, eventID, participantID)
	if err != nil {
		return nil, "", err
	}
	hash, err := a.store.PinHash(ctx, eventID, participantID)
	if err != nil {
		return nil, "", err
	}
	if hash == "" {
		return nil, "", ErrPinNotSet
	}
	if !CheckPin(hash, pin) {
		return nil, "", ErrInvalidPin
	}

	token, err := a.tokens.Generate(p)
	if err != nil {
		return nil, "", err
	}
	return p, token, nil
}

// SetFirstPin stores the first PIN of a participant who has none and signs
// them in.
func (a *Authenticator) SetFirstPin(ctx context.Context, eventID, participantID, pin string) (*models.Participant, string, error) {
	hash, err := a.store.PinHash(ctx, eventID, participantID)
	if err != nil {
		return nil, "", err
	}
	if hash != "" {
		return nil, "", ErrPinAlreadySet
	}

	hash, err = HashPin(pin)
	if err != nil {
		return nil, "", err
	}
	if err := a.store.SetPinHash(ctx, eventID, participantID, hash); err != nil {
		return nil, "", err
	}

	p, err := a.store.GetParticipant(ctx, eventID, participantID)
	if err != nil {
		return nil, "", err
	}
	token, err := a.tokens.Generate(p)
	if err != nil {
		return nil, "", err
	}
	return p, token, nil
}
