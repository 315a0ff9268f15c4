// Package models defines the domain models shared by the session client and
// the reference API server.
//
// # Models
//
//   - Event: an expense-sharing event, addressed by a short code
//   - Participant: a person taking part in an event, optionally protected by a PIN
//   - Expense: an amount paid by one participant on behalf of some consumers
//   - Payment: a recorded transfer that settles part of a debt
//   - Settlement: a suggested transfer computed from the event balances
//   - RecentEvent: an event the current visitor opened recently
//
// Relationships use ID strings rather than pointers. Amounts travel as
// float64 on the wire; arithmetic on them goes through shopspring/decimal.
package models
