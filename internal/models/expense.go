package models

// Expense is an amount paid by PayerID and shared equally by Consumers.
type Expense struct {
	ID          string   `json:"id"`
	EventID     string   `json:"event_id"`
	PayerID     string   `json:"payer_id"`
	Amount      float64  `json:"amount"`
	Consumers   []string `json:"consumers"`
	Description string   `json:"description,omitempty"`
	CreatedAt   int64    `json:"created_at"`
}

