package session

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/sunio/internal/api"
	"github.com/mmynk/sunio/internal/reactive"
)

// ExpenseValues are the fields of the expense form. Amount is the raw user
// input.
type ExpenseValues struct {
	PayerID     string
	Amount      string
	Consumers   []string
	Description string
}

// expenseOverrides holds the fields the user edited. epoch is the version of
// the edit target they were made against, so selecting a target again, even
// the same expense, starts from its defaults.
type expenseOverrides struct {
	epoch       uint64
	payerID     *string
	amount      *string
	consumers   []string
	hasConsumer bool
	description *string
}

// ExpenseDraft backs the expense form. Defaults are derived from the edit
// target and the participants every time either changes; user edits live in
// a separate override layer that is dropped when the edit target changes.
type ExpenseDraft struct {
	reg       *Registry
	defaults  *reactive.Memo[ExpenseValues]
	overrides *reactive.Var[expenseOverrides]
	values    *reactive.Memo[ExpenseValues]
}

// NewExpenseDraft returns a draft following r's edit target.
func NewExpenseDraft(r *Registry) *ExpenseDraft {
	d := &ExpenseDraft{
		reg:       r,
		overrides: reactive.NewVar(r.sched, expenseOverrides{}),
	}
	d.defaults = reactive.NewMemo(func() ExpenseValues {
		target := r.expenseToEdit.Get()
		if target == nil {
			return ExpenseValues{}
		}
		participants, _ := r.participants.Value()
		known := make(map[string]bool, len(participants))
		for _, p := range participants {
			known[p.ID] = true
		}

		v := ExpenseValues{
			Amount:      decimal.NewFromFloat(target.Amount).StringFixed(2),
			Description: target.Description,
			Consumers:   []string{},
		}
		if known[target.PayerID] {
			v.PayerID = target.PayerID
		}
		for _, c := range target.Consumers {
			if known[c] {
				v.Consumers = append(v.Consumers, c)
			}
		}
		return v
	}, r.expenseToEdit, r.participants)

	d.values = reactive.NewMemo(func() ExpenseValues {
		v := d.defaults.Get()
		o := d.overrides.Get()
		if o.epoch != d.reg.expenseToEdit.Version() {
			return v
		}
		if o.payerID != nil {
			v.PayerID = *o.payerID
		}
		if o.amount != nil {
			v.Amount = *o.amount
		}
		if o.hasConsumer {
			v.Consumers = append([]string(nil), o.consumers...)
		}
		if o.description != nil {
			v.Description = *o.description
		}
		return v
	}, d.defaults, d.overrides)
	return d
}

func (d *ExpenseDraft) targetID() string {
	if t := d.reg.expenseToEdit.Get(); t != nil {
		return t.ID
	}
	return ""
}

// Editing reports whether the draft edits an existing expense.
func (d *ExpenseDraft) Editing() bool {
	return d.targetID() != ""
}

// Values merges the defaults with the user's edits.
func (d *ExpenseDraft) Values() ExpenseValues {
	return d.values.Get()
}

// Node exposes the draft values to watchers.
func (d *ExpenseDraft) Node() reactive.Node {
	return d.values
}

func (d *ExpenseDraft) edit(fn func(*expenseOverrides)) {
	epoch := d.reg.expenseToEdit.Version()
	d.overrides.Update(func(o expenseOverrides) expenseOverrides {
		if o.epoch != epoch {
			o = expenseOverrides{epoch: epoch}
		}
		fn(&o)
		return o
	})
}

func (d *ExpenseDraft) SetPayer(participantID string) {
	d.edit(func(o *expenseOverrides) { o.payerID = &participantID })
}

func (d *ExpenseDraft) SetAmount(input string) {
	d.edit(func(o *expenseOverrides) { o.amount = &input })
}

func (d *ExpenseDraft) SetConsumers(participantIDs []string) {
	ids := append([]string(nil), participantIDs...)
	d.edit(func(o *expenseOverrides) {
		o.consumers = ids
		o.hasConsumer = true
	})
}

func (d *ExpenseDraft) SetDescription(description string) {
	d.edit(func(o *expenseOverrides) { o.description = &description })
}

// Reset discards every user edit.
func (d *ExpenseDraft) Reset() {
	d.overrides.Set(expenseOverrides{})
}

// Input converts the draft into a validated API input.
func (d *ExpenseDraft) Input() (api.ExpenseInput, error) {
	v := d.Values()
	in := api.ExpenseInput{
		PayerID:     v.PayerID,
		Amount:      ParseAmount(v.Amount).InexactFloat64(),
		Consumers:   v.Consumers,
		Description: strings.TrimSpace(v.Description),
	}
	if err := in.Validate(); err != nil {
		return api.ExpenseInput{}, err
	}
	return in, nil
}

// ParseAmount reads a user-typed amount. A comma is accepted as the decimal
// separator, anything but digits and the first point is dropped, and digits
// past the second decimal are cut. Unparseable input is zero.
func ParseAmount(input string) decimal.Decimal {
	input = strings.Replace(input, ",", ".", 1)

	var b strings.Builder
	seenPoint := false
	decimals := 0
	for _, r := range input {
		switch {
		case r == '.' && !seenPoint:
			seenPoint = true
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if seenPoint {
				if decimals == 2 {
					continue
				}
				decimals++
			}
			b.WriteRune(r)
		}
	}

	s := strings.TrimSuffix(b.String(), ".")
	if s == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
