package session

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/sunio/internal/models"
	"github.com/mmynk/sunio/internal/reactive"
)

// Sign classifies a balance for presentation.
type Sign string

const (
	SignPositive Sign = "positive"
	SignNegative Sign = "negative"
	SignZero     Sign = "zero"
)

// SignOf returns the sign of amount.
func SignOf(amount decimal.Decimal) Sign {
	switch amount.Sign() {
	case 1:
		return SignPositive
	case -1:
		return SignNegative
	default:
		return SignZero
	}
}

// UnknownPayer is shown for expenses whose payer is not a participant.
const UnknownPayer = "Unknown"

// ExpenseLine is an expense with its payer's display name.
type ExpenseLine struct {
	models.Expense
	PaidBy string
}

// Classified partitions settlements relative to the signed-in participant.
type Classified struct {
	MinePending []models.Settlement
	MineSettled []models.Settlement
	Others      []models.Settlement
}

type derived struct {
	personalBalance *reactive.Memo[decimal.Decimal]
	balanceSign     *reactive.Memo[Sign]
	names           *reactive.Memo[map[string]string]
	expenseListing  *reactive.Memo[[]ExpenseLine]
	settlementView  *reactive.Memo[Classified]

	signOverride *reactive.Var[signOverride]
}

// signOverride presets the balance sign. seq identifies each call to
// OverrideBalanceSign and base is the personal balance at that moment.
type signOverride struct {
	sign Sign
	seq  uint64
	base decimal.Decimal
}

func newDerived(r *Registry) *derived {
	d := &derived{
		signOverride: reactive.NewVar(r.sched, signOverride{}),
	}

	d.personalBalance = reactive.NewMemo(func() decimal.Decimal {
		id := r.identity.Get()
		if id == nil {
			return decimal.Zero
		}
		balances, ok := r.balances.Value()
		if !ok {
			return decimal.Zero
		}
		amount, ok := balances[id.Participant.ID]
		if !ok {
			return decimal.Zero
		}
		return amount
	}, r.identity, r.balances)

	d.balanceSign = reactive.NewMemo(newSignTracker(d.personalBalance, d.signOverride).compute,
		d.personalBalance, d.signOverride)

	d.names = reactive.NewMemo(func() map[string]string {
		participants, _ := r.participants.Value()
		names := make(map[string]string, len(participants))
		for _, p := range participants {
			names[p.ID] = p.Name
		}
		return names
	}, r.participants)

	d.expenseListing = reactive.NewMemo(func() []ExpenseLine {
		expenses, _ := r.expenses.Value()
		names := d.names.Get()
		lines := make([]ExpenseLine, 0, len(expenses))
		for _, e := range expenses {
			paidBy, ok := names[e.PayerID]
			if !ok {
				paidBy = UnknownPayer
			}
			lines = append(lines, ExpenseLine{Expense: e, PaidBy: paidBy})
		}
		return lines
	}, r.expenses, d.names)

	d.settlementView = reactive.NewMemo(func() Classified {
		settlements, _ := r.settlements.Value()
		var me string
		if id := r.identity.Get(); id != nil {
			me = id.Participant.ID
		}
		return classify(settlements, me)
	}, r.settlements, r.identity)

	return d
}

func classify(settlements []models.Settlement, me string) Classified {
	var c Classified
	for _, s := range settlements {
		switch {
		case !s.Involves(me):
			c.Others = append(c.Others, s)
		case s.Settled():
			c.MineSettled = append(c.MineSettled, s)
		default:
			c.MinePending = append(c.MinePending, s)
		}
	}
	return c
}

// signTracker drops an override as soon as the personal balance differs from
// the one it was set against. It is only called from its memo, which
// serializes computations.
type signTracker struct {
	balance  *reactive.Memo[decimal.Decimal]
	override *reactive.Var[signOverride]

	seenSeq uint64
	active  bool
	base    decimal.Decimal
}

func newSignTracker(balance *reactive.Memo[decimal.Decimal], override *reactive.Var[signOverride]) *signTracker {
	return &signTracker{balance: balance, override: override}
}

func (t *signTracker) compute() Sign {
	amount := t.balance.Get()
	ov := t.override.Get()
	if ov.seq != t.seenSeq {
		t.seenSeq = ov.seq
		t.active = true
		t.base = ov.base
	}
	if t.active && !amount.Equal(t.base) {
		t.active = false
	}
	if t.active {
		return ov.sign
	}
	return SignOf(amount)
}

// PersonalBalance is the signed-in participant's balance, or zero when the
// participant or the balances are missing.
func (r *Registry) PersonalBalance() decimal.Decimal {
	return r.derived.personalBalance.Get()
}

// BalanceSign classifies PersonalBalance unless an override is in effect.
func (r *Registry) BalanceSign() Sign {
	return r.derived.balanceSign.Get()
}

// OverrideBalanceSign presets the balance sign, e.g. to neutral before any
// balance is known. The override holds until the personal balance changes.
func (r *Registry) OverrideBalanceSign(s Sign) {
	base := r.PersonalBalance()
	r.derived.signOverride.Update(func(cur signOverride) signOverride {
		return signOverride{sign: s, seq: cur.seq + 1, base: base}
	})
}

// InDebt reports whether the balance sign is negative.
func (r *Registry) InDebt() bool {
	return r.BalanceSign() == SignNegative
}

// ParticipantNames maps participant ids to display names. The map is shared
// and must not be modified.
func (r *Registry) ParticipantNames() map[string]string {
	return r.derived.names.Get()
}

// ExpenseListing returns the loaded expenses with payer names.
func (r *Registry) ExpenseListing() []ExpenseLine {
	return r.derived.expenseListing.Get()
}

// SettlementView partitions the loaded settlements into the signed-in
// participant's pending and settled ones and everyone else's. Without a
// signed-in participant every settlement is in Others.
func (r *Registry) SettlementView() Classified {
	return r.derived.settlementView.Get()
}

// DerivedNodes exposes the derived values to watchers.
func (r *Registry) DerivedNodes() []reactive.Node {
	d := r.derived
	return []reactive.Node{d.personalBalance, d.balanceSign, d.names, d.expenseListing, d.settlementView}
}
