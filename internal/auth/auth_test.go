package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmynk/sunio/internal/models"
	"github.com/mmynk/sunio/internal/storage"
)

type memPins struct {
	participants map[string]models.Participant
	hashes       map[string]string
}

func newMemPins(ps ...models.Participant) *memPins {
	m := &memPins{participants: map[string]models.Participant{}, hashes: map[string]string{}}
	for _, p := range ps {
		m.participants[p.ID] = p
	}
	return m
}

func (m *memPins) GetParticipant(_ context.Context, eventID, id string) (*models.Participant, error) {
	p, ok := m.participants[id]
	if !ok || p.EventID != eventID {
		return nil, storage.ErrNotFound
	}
	p.HasPin = m.hashes[id] != ""
	return &p, nil
}

func (m *memPins) PinHash(ctx context.Context, eventID, id string) (string, error) {
	if _, err := m.GetParticipant(ctx, eventID, id); err != nil {
		return "", err
	}
	return m.hashes[id], nil
}

func (m *memPins) SetPinHash(ctx context.Context, eventID, id, hash string) error {
	if _, err := m.GetParticipant(ctx, eventID, id); err != nil {
		return err
	}
	m.hashes[id] = hash
	return nil
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.Generate(&models.Participant{ID: "p1", EventID: "evt"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.ParticipantID != "p1" || claims.EventID != "evt" {
		t.Errorf("Claims mismatch: %+v", claims)
	}
}

func TestJWTRejects(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, _ := m.Generate(&models.Participant{ID: "p1", EventID: "evt"})

	t.Run("other secret", func(t *testing.T) {
		other := NewJWTManager("other", time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { m.now = time.Now }()
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestPinHash(t *testing.T) {
	hash, err := HashPin("1234")
	if err != nil {
		t.Fatalf("HashPin failed: %v", err)
	}
	if hash == "1234" {
		t.Fatal("Expected the pin to be hashed")
	}
	if !CheckPin(hash, "1234") {
		t.Error("Expected the pin to match")
	}
	if CheckPin(hash, "4321") {
		t.Error("Expected a wrong pin not to match")
	}
	if CheckPin("", "1234") {
		t.Error("Expected an empty hash never to match")
	}
}

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()
	tokens := NewJWTManager("secret", time.Hour)
	store := newMemPins(models.Participant{ID: "p1", EventID: "evt", Name: "Ana"})
	a := NewAuthenticator(store, tokens)

	if _, _, err := a.Login(ctx, "evt", "p1", "1234"); !errors.Is(err, ErrPinNotSet) {
		t.Fatalf("Expected ErrPinNotSet before a pin exists, got %v", err)
	}

	p, token, err := a.SetFirstPin(ctx, "evt", "p1", "1234")
	if err != nil {
		t.Fatalf("SetFirstPin failed: %v", err)
	}
	if !p.HasPin {
		t.Error("Expected HasPin after SetFirstPin")
	}
	if claims, err := tokens.Validate(token); err != nil || claims.ParticipantID != "p1" {
		t.Errorf("Expected a token for p1, got %+v, %v", claims, err)
	}

	if _, _, err := a.SetFirstPin(ctx, "evt", "p1", "9999"); !errors.Is(err, ErrPinAlreadySet) {
		t.Errorf("Expected ErrPinAlreadySet, got %v", err)
	}
	if _, _, err := a.Login(ctx, "evt", "p1", "9999"); !errors.Is(err, ErrInvalidPin) {
		t.Errorf("Expected ErrInvalidPin, got %v", err)
	}
	if _, _, err := a.Login(ctx, "other", "p1", "1234"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another event, got %v", err)
	}
	if _, token, err := a.Login(ctx, "evt", "p1", "1234"); err != nil || token == "" {
		t.Errorf("Login failed: %v", err)
	}
}
