package models

// Event is a shared-expense event. ID is the code participants type in to
// open it.
type Event struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// RecentEvent is an event the visitor opened, most recent first.
type RecentEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	VisitedAt int64  `json:"visited_at"`
}

// Participant is a member of an event.
type Participant struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
	Name    string `json:"name"`

	// HasPin reports whether the participant has set a PIN. A participant
	// without a PIN sets one on first login.
	HasPin  bool `json:"has_pin"`
	IsAdmin bool `json:"is_admin"`

	CreatedAt int64 `json:"created_at"`
}
