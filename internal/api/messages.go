package api

import "github.com/mmynk/sunio/internal/models"

// EventRef addresses an event. Read-only procedures that only need the event
// code take it as their request.
type EventRef struct {
	EventID string `json:"event_id"`
}

// Empty is the response of procedures that return nothing.
type Empty struct{}

type ListRecentEventsResponse struct {
	RecentEvents []models.RecentEvent `json:"recent_events"`
}

type CreateEventRequest struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

type CreateEventResponse struct {
	EventID string `json:"event_id"`
}

type RenameEventRequest struct {
	EventID string `json:"event_id"`
	Name    string `json:"name"`
}

type EventResponse struct {
	Event models.Event `json:"event"`
}

type ListParticipantsResponse struct {
	Participants []models.Participant `json:"participants"`
}

type CreateParticipantRequest struct {
	EventID string `json:"event_id"`
	Name    string `json:"name"`
	Pin     string `json:"pin"`
}

type RenameParticipantRequest struct {
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
}

// PinRequest carries a PIN for a participant. It is used both to set the
// first PIN and to log in.
type PinRequest struct {
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
	Pin           string `json:"pin"`
}

type ParticipantRef struct {
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
}

type ParticipantResponse struct {
	Participant models.Participant `json:"participant"`
}

// Credentials identify a signed-in participant. Token is sent as a bearer
// token on expense and payment mutations.
type Credentials struct {
	Participant models.Participant `json:"participant"`
	Token       string             `json:"token"`
}

type ListExpensesResponse struct {
	Expenses []models.Expense `json:"expenses"`
}

// ExpenseInput is the editable part of an expense.
type ExpenseInput struct {
	PayerID     string   `json:"payer_id"`
	Amount      float64  `json:"amount"`
	Consumers   []string `json:"consumers"`
	Description string   `json:"description,omitempty"`
}

type CreateExpenseRequest struct {
	EventID string       `json:"event_id"`
	Expense ExpenseInput `json:"expense"`
}

type UpdateExpenseRequest struct {
	EventID   string       `json:"event_id"`
	ExpenseID string       `json:"expense_id"`
	Expense   ExpenseInput `json:"expense"`
}

type ExpenseRef struct {
	EventID   string `json:"event_id"`
	ExpenseID string `json:"expense_id"`
}

type ExpenseResponse struct {
	Expense models.Expense `json:"expense"`
}

type GetBalancesResponse struct {
	Balances map[string]float64 `json:"balances"`
}

type ListSettlementsResponse struct {
	Settlements []models.Settlement `json:"settlements"`
}

type ListPaymentsResponse struct {
	Payments []models.Payment `json:"payments"`
}

// PaymentInput describes a transfer to record.
type PaymentInput struct {
	From   string  `json:"from_participant"`
	To     string  `json:"to_participant"`
	Amount float64 `json:"amount"`
}

type CreatePaymentRequest struct {
	EventID string       `json:"event_id"`
	Payment PaymentInput `json:"payment"`
}

type PaymentRef struct {
	EventID   string `json:"event_id"`
	PaymentID string `json:"payment_id"`
}

type PaymentResponse struct {
	Payment models.Payment `json:"payment"`
}
