package api

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
)

// EventServiceHandler is implemented by the server side of the event service.
type EventServiceHandler interface {
	ListRecentEvents(context.Context, *connect.Request[Empty]) (*connect.Response[ListRecentEventsResponse], error)
	ForgetRecentEvent(context.Context, *connect.Request[EventRef]) (*connect.Response[ListRecentEventsResponse], error)
	CreateEvent(context.Context, *connect.Request[CreateEventRequest]) (*connect.Response[CreateEventResponse], error)
	GetEvent(context.Context, *connect.Request[EventRef]) (*connect.Response[EventResponse], error)
	RenameEvent(context.Context, *connect.Request[RenameEventRequest]) (*connect.Response[EventResponse], error)
	ListParticipants(context.Context, *connect.Request[EventRef]) (*connect.Response[ListParticipantsResponse], error)
	CreateParticipant(context.Context, *connect.Request[CreateParticipantRequest]) (*connect.Response[Credentials], error)
	RenameParticipant(context.Context, *connect.Request[RenameParticipantRequest]) (*connect.Response[ParticipantResponse], error)
	SetParticipantPin(context.Context, *connect.Request[PinRequest]) (*connect.Response[Credentials], error)
	Login(context.Context, *connect.Request[PinRequest]) (*connect.Response[Credentials], error)
	DeleteParticipant(context.Context, *connect.Request[ParticipantRef]) (*connect.Response[Empty], error)
	ListExpenses(context.Context, *connect.Request[EventRef]) (*connect.Response[ListExpensesResponse], error)
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[UpdateExpenseRequest]) (*connect.Response[ExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[ExpenseRef]) (*connect.Response[Empty], error)
	GetBalances(context.Context, *connect.Request[EventRef]) (*connect.Response[GetBalancesResponse], error)
	ListSettlements(context.Context, *connect.Request[EventRef]) (*connect.Response[ListSettlementsResponse], error)
	ListPayments(context.Context, *connect.Request[EventRef]) (*connect.Response[ListPaymentsResponse], error)
	CreatePayment(context.Context, *connect.Request[CreatePaymentRequest]) (*connect.Response[PaymentResponse], error)
	DeletePayment(context.Context, *connect.Request[PaymentRef]) (*connect.Response[Empty], error)
}

// NewEventServiceHandler builds an HTTP handler serving svc and returns the
// path to mount it on. Every codec in Codecs is accepted.
func NewEventServiceHandler(svc EventServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	hopts := make([]connect.HandlerOption, 0, len(opts)+2)
	for _, c := range Codecs() {
		hopts = append(hopts, connect.WithCodec(c))
	}
	hopts = append(hopts, opts...)

	mux := http.NewServeMux()
	mux.Handle(ListRecentEventsProcedure, connect.NewUnaryHandler(ListRecentEventsProcedure, svc.ListRecentEvents, hopts...))
	mux.Handle(ForgetRecentEventProcedure, connect.NewUnaryHandler(ForgetRecentEventProcedure, svc.ForgetRecentEvent, hopts...))
	mux.Handle(CreateEventProcedure, connect.NewUnaryHandler(CreateEventProcedure, svc.CreateEvent, hopts...))
	mux.Handle(GetEventProcedure, connect.NewUnaryHandler(GetEventProcedure, svc.GetEvent, hopts...))
	mux.Handle(RenameEventProcedure, connect.NewUnaryHandler(RenameEventProcedure, svc.RenameEvent, hopts...))
	mux.Handle(ListParticipantsProcedure, connect.NewUnaryHandler(ListParticipantsProcedure, svc.ListParticipants, hopts...))
	mux.Handle(CreateParticipantProcedure, connect.NewUnaryHandler(CreateParticipantProcedure, svc.CreateParticipant, hopts...))
	mux.Handle(RenameParticipantProcedure, connect.NewUnaryHandler(RenameParticipantProcedure, svc.RenameParticipant, hopts...))
	mux.Handle(SetParticipantPinProcedure, connect.NewUnaryHandler(SetParticipantPinProcedure, svc.SetParticipantPin, hopts...))
	mux.Handle(LoginProcedure, connect.NewUnaryHandler(LoginProcedure, svc.Login, hopts...))
	mux.Handle(DeleteParticipantProcedure, connect.NewUnaryHandler(DeleteParticipantProcedure, svc.DeleteParticipant, hopts...))
	mux.Handle(ListExpensesProcedure, connect.NewUnaryHandler(ListExpensesProcedure, svc.ListExpenses, hopts...))
	mux.Handle(CreateExpenseProcedure, connect.NewUnaryHandler(CreateExpenseProcedure, svc.CreateExpense, hopts...))
	mux.Handle(UpdateExpenseProcedure, connect.NewUnaryHandler(UpdateExpenseProcedure, svc.UpdateExpense, hopts...))
	mux.Handle(DeleteExpenseProcedure, connect.NewUnaryHandler(DeleteExpenseProcedure, svc.DeleteExpense, hopts...))
	mux.Handle(GetBalancesProcedure, connect.NewUnaryHandler(GetBalancesProcedure, svc.GetBalances, hopts...))
	mux.Handle(ListSettlementsProcedure, connect.NewUnaryHandler(ListSettlementsProcedure, svc.ListSettlements, hopts...))
	mux.Handle(ListPaymentsProcedure, connect.NewUnaryHandler(ListPaymentsProcedure, svc.ListPayments, hopts...))
	mux.Handle(CreatePaymentProcedure, connect.NewUnaryHandler(CreatePaymentProcedure, svc.CreatePayment, hopts...))
	mux.Handle(DeletePaymentProcedure, connect.NewUnaryHandler(DeletePaymentProcedure, svc.DeletePayment, hopts...))
	return "/" + EventServiceName + "/", mux
}

// UnimplementedEventServiceHandler returns CodeUnimplemented from every
// method. Embed it to implement a subset of the service.
type UnimplementedEventServiceHandler struct{}

func (UnimplementedEventServiceHandler) ListRecentEvents(context.Context, *connect.Request[Empty]) (*connect.Response[ListRecentEventsResponse], error) {
	return nil, unimplemented(ListRecentEventsProcedure)
}

func (UnimplementedEventServiceHandler) ForgetRecentEvent(context.Context, *connect.Request[EventRef]) (*connect.Response[ListRecentEventsResponse], error) {
	return nil, unimplemented(ForgetRecentEventProcedure)
}

func (UnimplementedEventServiceHandler) CreateEvent(context.Context, *connect.Request[CreateEventRequest]) (*connect.Response[CreateEventResponse], error) {
	return nil, unimplemented(CreateEventProcedure)
}

func (UnimplementedEventServiceHandler) GetEvent(context.Context, *connect.Request[EventRef]) (*connect.Response[EventResponse], error) {
	return nil, unimplemented(GetEventProcedure)
}

func (UnimplementedEventServiceHandler) RenameEvent(context.Context, *connect.Request[RenameEventRequest]) (*connect.Response[EventResponse], error) {
	return nil, unimplemented(RenameEventProcedure)
}

func (UnimplementedEventServiceHandler) ListParticipants(context.Context, *connect.Request[EventRef]) (*connect.Response[ListParticipantsResponse], error) {
	return nil, unimplemented(ListParticipantsProcedure)
}

func (UnimplementedEventServiceHandler) CreateParticipant(context.Context, *connect.Request[CreateParticipantRequest]) (*connect.Response[Credentials], error) {
	return nil, unimplemented(CreateParticipantProcedure)
}

func (UnimplementedEventServiceHandler) RenameParticipant(context.Context, *connect.Request[RenameParticipantRequest]) (*connect.Response[ParticipantResponse], error) {
	return nil, unimplemented(RenameParticipantProcedure)
}

func (UnimplementedEventServiceHandler) SetParticipantPin(context.Context, *connect.Request[PinRequest]) (*connect.Response[Credentials], error) {
	return nil, unimplemented(SetParticipantPinProcedure)
}

func (UnimplementedEventServiceHandler) Login(context.Context, *connect.Request[PinRequest]) (*connect.Response[Credentials], error) {
	return nil, unimplemented(LoginProcedure)
}

func (UnimplementedEventServiceHandler) DeleteParticipant(context.Context, *connect.Request[ParticipantRef]) (*connect.Response[Empty], error) {
	return nil, unimplemented(DeleteParticipantProcedure)
}

func (UnimplementedEventServiceHandler) ListExpenses(context.Context, *connect.Request[EventRef]) (*connect.Response[ListExpensesResponse], error) {
	return nil, unimplemented(ListExpensesProcedure)
}

func (UnimplementedEventServiceHandler) CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	return nil, unimplemented(CreateExpenseProcedure)
}

func (UnimplementedEventServiceHandler) UpdateExpense(context.Context, *connect.Request[UpdateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	return nil, unimplemented(UpdateExpenseProcedure)
}

func (UnimplementedEventServiceHandler) DeleteExpense(context.Context, *connect.Request[ExpenseRef]) (*connect.Response[Empty], error) {
	return nil, unimplemented(DeleteExpenseProcedure)
}

func (UnimplementedEventServiceHandler) GetBalances(context.Context, *connect.Request[EventRef]) (*connect.Response[GetBalancesResponse], error) {
	return nil, unimplemented(GetBalancesProcedure)
}

func (UnimplementedEventServiceHandler) ListSettlements(context.Context, *connect.Request[EventRef]) (*connect.Response[ListSettlementsResponse], error) {
	return nil, unimplemented(ListSettlementsProcedure)
}

func (UnimplementedEventServiceHandler) ListPayments(context.Context, *connect.Request[EventRef]) (*connect.Response[ListPaymentsResponse], error) {
	return nil, unimplemented(ListPaymentsProcedure)
}

func (UnimplementedEventServiceHandler) CreatePayment(context.Context, *connect.Request[CreatePaymentRequest]) (*connect.Response[PaymentResponse], error) {
	return nil, unimplemented(CreatePaymentProcedure)
}

func (UnimplementedEventServiceHandler) DeletePayment(context.Context, *connect.Request[PaymentRef]) (*connect.Response[Empty], error) {
	return nil, unimplemented(DeletePaymentProcedure)
}

func unimplemented(procedure string) error {
	return connect.NewError(connect.CodeUnimplemented, errors.New(procedure+" is not implemented"))
}
