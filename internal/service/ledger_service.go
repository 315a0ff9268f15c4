package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/sunio/internal/api"
	"github.com/mmynk/sunio/internal/calculator"
	"github.com/mmynk/sunio/internal/models"
)

// ledger is everything the balance computations read.
type ledger struct {
	participants []string
	expenses     []models.Expense
	payments     []models.Payment
}

func (s *EventService) loadLedger(ctx context.Context, eventID string) (*ledger, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, eventID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.ListPayments(ctx, eventID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	return &ledger{participants: ids, expenses: expenses, payments: payments}, nil
}

// participantSet returns the ids of the event participants.
func (s *EventService) participantSet(ctx context.Context, eventID string) (map[string]bool, error) {
	participants, err := s.store.ListParticipants(ctx, eventID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(participants))
	for _, p := range participants {
		set[p.ID] = true
	}
	return set, nil
}

func roundCents(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// expenseFromInput validates in against the event participants.
func (s *EventService) expenseFromInput(ctx context.Context, eventID string, in api.ExpenseInput) (*models.Expense, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if roundCents(in.Amount) <= 0 {
		return nil, api.Invalid("amount", "amount must be at least 0.01")
	}
	known, err := s.participantSet(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !known[in.PayerID] {
		return nil, api.Invalid("payer_id", "payer is not a participant")
	}
	for _, c := range in.Consumers {
		if !known[c] {
			return nil, api.Invalid("consumers", "consumer is not a participant")
		}
	}
	return &models.Expense{
		EventID:     eventID,
		PayerID:     in.PayerID,
		Amount:      roundCents(in.Amount),
		Consumers:   dedupe(in.Consumers),
		Description: in.Description,
	}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ListExpenses returns the expenses of an event.
func (s *EventService) ListExpenses(ctx context.Context, req *connect.Request[api.EventRef]) (*connect.Response[api.ListExpensesResponse], error) {
	if _, err := s.store.GetEvent(ctx, req.Msg.EventID); err != nil {
		return nil, s.toConnectError("ListExpenses", err)
	}
	expenses, err := s.store.ListExpenses(ctx, req.Msg.EventID)
	if err != nil {
		return nil, s.toConnectError("ListExpenses", err)
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: expenses}), nil
}

// CreateExpense records an expense on behalf of the signed-in participant.
func (s *EventService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error) {
	claims, err := requireParticipant(ctx, req.Msg.EventID)
	if err != nil {
		return nil, s.toConnectError("CreateExpense", err)
	}
	expense, err := s.expenseFromInput(ctx, req.Msg.EventID, req.Msg.Expense)
	if err != nil {
		return nil, s.toConnectError("CreateExpense", err)
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, s.toConnectError("CreateExpense", err)
	}

	s.logger.Info("Expense created",
		"event_id", expense.EventID,
		"expense_id", expense.ID,
		"by", claims.ParticipantID,
		"amount", expense.Amount,
	)
	return connect.NewResponse(&api.ExpenseResponse{Expense: *expense}), nil
}

// UpdateExpense replaces the fields of an expense.
func (s *EventService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.ExpenseResponse], error) {
	if _, err := requireParticipant(ctx, req.Msg.EventID); err != nil {
		return nil, s.toConnectError("UpdateExpense", err)
	}
	expense, err := s.expenseFromInput(ctx, req.Msg.EventID, req.Msg.Expense)
	if err != nil {
		return nil, s.toConnectError("UpdateExpense", err)
	}
	expense.ID = req.Msg.ExpenseID
	if err := s.store.UpdateExpense(ctx, expense); err != nil {
		return nil, s.toConnectError("UpdateExpense", err)
	}
	return connect.NewResponse(&api.ExpenseResponse{Expense: *expense}), nil
}

// DeleteExpense removes an expense.
func (s *EventService) DeleteExpense(ctx context.Context, req *connect.Request[api.ExpenseRef]) (*connect.Response[api.Empty], error) {
	if _, err := requireParticipant(ctx, req.Msg.EventID); err != nil {
		return nil, s.toConnectError("DeleteExpense", err)
	}
	if err := s.store.DeleteExpense(ctx, req.Msg.EventID, req.Msg.ExpenseID); err != nil {
		return nil, s.toConnectError("DeleteExpense", err)
	}
	return connect.NewResponse(&api.Empty{}), nil
}

// GetBalances returns every participant's balance after expenses and
// recorded payments.
func (s *EventService) GetBalances(ctx context.Context, req *connect.Request[api.EventRef]) (*connect.Response[api.GetBalancesResponse], error) {
	l, err := s.loadLedger(ctx, req.Msg.EventID)
	if err != nil {
		return nil, s.toConnectError("GetBalances", err)
	}
	balances, err := calculator.Balances(l.participants, l.expenses, l.payments)
	if err != nil {
		return nil, s.toConnectError("GetBalances", err)
	}

	out := make(map[string]float64, len(balances))
	for id, amount := range balances {
		out[id] = amount.InexactFloat64()
	}
	return connect.NewResponse(&api.GetBalancesResponse{Balances: out}), nil
}

// ListSettlements returns the suggested transfers, marking those a payment
// has been recorded for.
func (s *EventService) ListSettlements(ctx context.Context, req *connect.Request[api.EventRef]) (*connect.Response[api.ListSettlementsResponse], error) {
	l, err := s.loadLedger(ctx, req.Msg.EventID)
	if err != nil {
		return nil, s.toConnectError("ListSettlements", err)
	}
	settlements, err := calculator.Settlements(l.participants, l.expenses, l.payments)
	if err != nil {
		return nil, s.toConnectError("ListSettlements", err)
	}
	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: settlements}), nil
}

// ListPayments returns the recorded payments of an event.
func (s *EventService) ListPayments(ctx context.Context, req *connect.Request[api.EventRef]) (*connect.Response[api.ListPaymentsResponse], error) {
	if _, err := s.store.GetEvent(ctx, req.Msg.EventID); err != nil {
		return nil, s.toConnectError("ListPayments", err)
	}
	payments, err := s.store.ListPayments(ctx, req.Msg.EventID)
	if err != nil {
		return nil, s.toConnectError("ListPayments", err)
	}
	return connect.NewResponse(&api.ListPaymentsResponse{Payments: payments}), nil
}

// CreatePayment records a transfer between two participants.
func (s *EventService) CreatePayment(ctx context.Context, req *connect.Request[api.CreatePaymentRequest]) (*connect.Response[api.PaymentResponse], error) {
	claims, err := requireParticipant(ctx, req.Msg.EventID)
	if err != nil {
		return nil, s.toConnectError("CreatePayment", err)
	}
	in := req.Msg.Payment
	if err := in.Validate(); err != nil {
		return nil, s.toConnectError("CreatePayment", err)
	}
	known, err := s.participantSet(ctx, req.Msg.EventID)
	if err != nil {
		return nil, s.toConnectError("CreatePayment", err)
	}
	if !known[in.From] || !known[in.To] {
		return nil, s.toConnectError("CreatePayment", api.Invalid("participants", "payer and payee must be participants"))
	}

	payment := &models.Payment{
		EventID: req.Msg.EventID,
		From:    in.From,
		To:      in.To,
		Amount:  roundCents(in.Amount),
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, s.toConnectError("CreatePayment", err)
	}

	s.logger.Info("Payment recorded", "event_id", payment.EventID, "payment_id", payment.ID, "by", claims.ParticipantID)
	return connect.NewResponse(&api.PaymentResponse{Payment: *payment}), nil
}

// DeletePayment removes a recorded payment.
func (s *EventService) DeletePayment(ctx context.Context, req *connect.Request[api.PaymentRef]) (*connect.Response[api.Empty], error) {
	if _, err := requireParticipant(ctx, req.Msg.EventID); err != nil {
		return nil, s.toConnectError("DeletePayment", err)
	}
	if err := s.store.DeletePayment(ctx, req.Msg.EventID, req.Msg.PaymentID); err != nil {
		return nil, s.toConnectError("DeletePayment", err)
	}
	return connect.NewResponse(&api.Empty{}), nil
}
