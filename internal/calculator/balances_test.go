package calculator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/sunio/internal/models"
)

func sum(balances map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	return total
}

func TestExpenseBalances(t *testing.T) {
	participants := []string{"ana", "luis", "marta"}
	expenses := []models.Expense{
		{ID: "e1", PayerID: "ana", Amount: 30, Consumers: []string{"ana", "luis", "marta"}},
		{ID: "e2", PayerID: "luis", Amount: 10, Consumers: []string{"ana", "luis", "marta"}},
	}

	balances, err := ExpenseBalances(participants, expenses)
	if err != nil {
		t.Fatalf("ExpenseBalances() error: %v", err)
	}

	want := map[string]string{"ana": "16.66", "luis": "-3.33", "marta": "-13.33"}
	for id, w := range want {
		if !balances[id].Equal(d(w)) {
			t.Errorf("balance of %s = %s, want %s", id, balances[id], w)
		}
	}
	if !sum(balances).IsZero() {
		t.Errorf("balances sum to %s, want 0", sum(balances))
	}
}

func TestExpenseBalances_ParticipantWithoutExpenses(t *testing.T) {
	balances, err := ExpenseBalances([]string{"ana", "luis"}, nil)
	if err != nil {
		t.Fatalf("ExpenseBalances() error: %v", err)
	}
	if len(balances) != 2 || !balances["luis"].IsZero() {
		t.Errorf("balances = %v, want zero entries for every participant", balances)
	}
}

func TestExpenseBalances_InvalidExpense(t *testing.T) {
	_, err := ExpenseBalances([]string{"ana"}, []models.Expense{{ID: "e1", PayerID: "ana", Amount: 5}})
	if err == nil {
		t.Fatal("expected an error for an expense without consumers")
	}
}

func TestBalances_AppliesPayments(t *testing.T) {
	participants := []string{"ana", "luis"}
	expenses := []models.Expense{
		{ID: "e1", PayerID: "ana", Amount: 20, Consumers: []string{"ana", "luis"}},
	}
	payments := []models.Payment{{ID: "p1", From: "luis", To: "ana", Amount: 10}}

	balances, err := Balances(participants, expenses, payments)
	if err != nil {
		t.Fatalf("Balances() error: %v", err)
	}
	if !balances["ana"].IsZero() || !balances["luis"].IsZero() {
		t.Errorf("balances = %v, want everyone settled", balances)
	}
}

func TestSettle(t *testing.T) {
	balances := map[string]decimal.Decimal{
		"ana":   d("30"),
		"luis":  d("-20"),
		"marta": d("-10"),
		"pablo": d("0"),
	}

	edges := Settle(balances)
	want := []Edge{
		{From: "luis", To: "ana", Amount: d("20")},
		{From: "marta", To: "ana", Amount: d("10")},
	}
	if len(edges) != len(want) {
		t.Fatalf("Settle() = %v, want %v", edges, want)
	}
	for i := range want {
		if edges[i].From != want[i].From || edges[i].To != want[i].To || !edges[i].Amount.Equal(want[i].Amount) {
			t.Errorf("edge %d = %+v, want %+v", i, edges[i], want[i])
		}
	}
}

func TestSettle_IgnoresDust(t *testing.T) {
	edges := Settle(map[string]decimal.Decimal{"ana": d("0.004"), "luis": d("-0.004")})
	if len(edges) != 0 {
		t.Errorf("Settle() = %v, want no transfers below a cent", edges)
	}
}

func TestSettlements_MarksPaidTransfers(t *testing.T) {
	participants := []string{"ana", "luis", "marta"}
	expenses := []models.Expense{
		{ID: "e1", PayerID: "ana", Amount: 30, Consumers: []string{"ana", "luis", "marta"}},
	}
	payments := []models.Payment{{ID: "pay1", From: "luis", To: "ana", Amount: 10}}

	settlements, err := Settlements(participants, expenses, payments)
	if err != nil {
		t.Fatalf("Settlements() error: %v", err)
	}
	if len(settlements) != 2 {
		t.Fatalf("Settlements() = %v, want 2 transfers", settlements)
	}

	for _, s := range settlements {
		switch s.From {
		case "luis":
			if s.PaymentID != "pay1" {
				t.Errorf("luis -> ana payment id = %q, want pay1", s.PaymentID)
			}
		case "marta":
			if s.Settled() {
				t.Errorf("marta -> ana is settled, want pending")
			}
		default:
			t.Errorf("unexpected settlement %+v", s)
		}
	}
}
