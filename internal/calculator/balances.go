// Package calculator computes event balances and the transfers that settle
// them. All arithmetic is done in decimal cents.
package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/sunio/internal/models"
)

// threshold is the smallest amount worth a transfer.
var threshold = decimal.New(1, -2)

// Edge is a suggested transfer from a debtor to a creditor.
type Edge struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// ExpenseBalances nets what every participant paid against their share of
// each expense. Positive means the participant is owed money. Every
// participant appears in the result, even with a zero balance.
func ExpenseBalances(participants []string, expenses []models.Expense) (map[string]decimal.Decimal, error) {
	balances := make(map[string]decimal.Decimal, len(participants))
	for _, p := range participants {
		balances[p] = decimal.Zero
	}

	for _, e := range expenses {
		amount := decimal.NewFromFloat(e.Amount).Round(2)
		shares, err := SplitEqually(amount, e.Consumers)
		if err != nil {
			return nil, fmt.Errorf("failed to split expense %s: %w", e.ID, err)
		}

		// Payer contributed the full amount.
		balances[e.PayerID] = balances[e.PayerID].Add(amount)
		for consumer, share := range shares {
			balances[consumer] = balances[consumer].Sub(share)
		}
	}
	return balances, nil
}

// Balances applies recorded payments on top of the expense balances: the
// sender's balance improves and the receiver's decreases.
func Balances(participants []string, expenses []models.Expense, payments []models.Payment) (map[string]decimal.Decimal, error) {
	balances, err := ExpenseBalances(participants, expenses)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		amount := decimal.NewFromFloat(p.Amount).Round(2)
		balances[p.From] = balances[p.From].Add(amount)
		balances[p.To] = balances[p.To].Sub(amount)
	}
	return balances, nil
}

type party struct {
	id     string
	amount decimal.Decimal
}

// Settle proposes transfers that clear balances, matching the largest debts
// with the largest credits first. Ties are broken by participant id so the
// result is deterministic.
func Settle(balances map[string]decimal.Decimal) []Edge {
	var debtors, creditors []party
	for id, amount := range balances {
		switch {
		case amount.IsPositive():
			creditors = append(creditors, party{id: id, amount: amount})
		case amount.IsNegative():
			debtors = append(debtors, party{id: id, amount: amount.Neg()})
		}
	}
	byAmount := func(ps []party) func(i, j int) bool {
		return func(i, j int) bool {
			if c := ps[i].amount.Cmp(ps[j].amount); c != 0 {
				return c > 0
			}
			return ps[i].id < ps[j].id
		}
	}
	sort.Slice(debtors, byAmount(debtors))
	sort.Slice(creditors, byAmount(creditors))

	var edges []Edge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := &debtors[i], &creditors[j]

		amount := decimal.Min(d.amount, c.amount)
		if amount.GreaterThanOrEqual(threshold) {
			edges = append(edges, Edge{From: d.id, To: c.id, Amount: amount})
		}

		d.amount = d.amount.Sub(amount)
		c.amount = c.amount.Sub(amount)
		if d.amount.LessThan(threshold) {
			i++
		}
		if c.amount.LessThan(threshold) {
			j++
		}
	}
	return edges
}

// MatchPayments turns edges into settlements and marks each one settled by
// the first unused payment with the same parties and amount.
func MatchPayments(edges []Edge, payments []models.Payment) []models.Settlement {
	used := make(map[string]bool, len(payments))
	settlements := make([]models.Settlement, 0, len(edges))
	for _, e := range edges {
		s := models.Settlement{From: e.From, To: e.To, Amount: e.Amount.InexactFloat64()}
		for _, p := range payments {
			if used[p.ID] || p.From != e.From || p.To != e.To {
				continue
			}
			if decimal.NewFromFloat(p.Amount).Sub(e.Amount).Abs().LessThan(threshold) {
				used[p.ID] = true
				s.PaymentID = p.ID
				break
			}
		}
		settlements = append(settlements, s)
	}
	return settlements
}

// Settlements computes the suggested transfers of an event. Suggestions are
// based on expenses alone so that recording a payment marks its settlement
// instead of making it disappear.
func Settlements(participants []string, expenses []models.Expense, payments []models.Payment) ([]models.Settlement, error) {
	balances, err := ExpenseBalances(participants, expenses)
	if err != nil {
		return nil, err
	}
	return MatchPayments(Settle(balances), payments), nil
}
