package models

// Payment is a recorded transfer from one participant to another.
type Payment struct {
	ID        string  `json:"id"`
	EventID   string  `json:"event_id"`
	From      string  `json:"from_participant"`
	To        string  `json:"to_participant"`
	Amount    float64 `json:"amount"`
	CreatedAt int64   `json:"created_at"`
}

// Settlement is a transfer that would clear part of the event debts.
// PaymentID is set once a matching payment has been recorded.
type Settlement struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	PaymentID string  `json:"payment_id,omitempty"`
}

// Settled reports whether a payment has been recorded for the settlement.
func (s Settlement) Settled() bool {
	return s.PaymentID != ""
}

// Involves reports whether participantID is the debtor or the creditor.
func (s Settlement) Involves(participantID string) bool {
	return participantID != "" && (s.From == participantID || s.To == participantID)
}
