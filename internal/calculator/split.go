package calculator

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNoConsumers   = errors.New("must have at least one consumer")
	ErrInvalidAmount = errors.New("amount must be positive")
)

var hundred = decimal.NewFromInt(100)

// SplitEqually divides amount between consumers in whole cents. Cents that do
// not divide evenly go to the first consumers in order, so the shares always
// add up to amount rounded to cents. A consumer listed twice is counted once.
func SplitEqually(amount decimal.Decimal, consumers []string) (map[string]decimal.Decimal, error) {
	unique := dedupe(consumers)
	if len(unique) == 0 {
		return nil, ErrNoConsumers
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	cents := amount.Mul(hundred).Round(0).IntPart()
	n := int64(len(unique))
	base, remainder := cents/n, cents%n

	shares := make(map[string]decimal.Decimal, len(unique))
	for i, c := range unique {
		share := base
		if int64(i) < remainder {
			share++
		}
		shares[c] = decimal.New(share, -2)
	}
	return shares, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
