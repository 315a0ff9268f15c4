// Package api is the contract between the session client and the event API:
// procedure names, request and response messages, wire codecs, the Connect
// client and the handler constructor used by the reference server.
package api

// EventServiceName is the fully-qualified name of the event service.
const EventServiceName = "sunio.v1.EventService"

// Procedure paths of the event service.
const (
	ListRecentEventsProcedure  = "/sunio.v1.EventService/ListRecentEvents"
	ForgetRecentEventProcedure = "/sunio.v1.EventService/ForgetRecentEvent"
	CreateEventProcedure       = "/sunio.v1.EventService/CreateEvent"
	GetEventProcedure          = "/sunio.v1.EventService/GetEvent"
	RenameEventProcedure       = "/sunio.v1.EventService/RenameEvent"
	ListParticipantsProcedure  = "/sunio.v1.EventService/ListParticipants"
	CreateParticipantProcedure = "/sunio.v1.EventService/CreateParticipant"
	RenameParticipantProcedure = "/sunio.v1.EventService/RenameParticipant"
	SetParticipantPinProcedure = "/sunio.v1.EventService/SetParticipantPin"
	LoginProcedure             = "/sunio.v1.EventService/Login"
	DeleteParticipantProcedure = "/sunio.v1.EventService/DeleteParticipant"
	ListExpensesProcedure      = "/sunio.v1.EventService/ListExpenses"
	CreateExpenseProcedure     = "/sunio.v1.EventService/CreateExpense"
	UpdateExpenseProcedure     = "/sunio.v1.EventService/UpdateExpense"
	DeleteExpenseProcedure     = "/sunio.v1.EventService/DeleteExpense"
	GetBalancesProcedure       = "/sunio.v1.EventService/GetBalances"
	ListSettlementsProcedure   = "/sunio.v1.EventService/ListSettlements"
	ListPaymentsProcedure      = "/sunio.v1.EventService/ListPayments"
	CreatePaymentProcedure     = "/sunio.v1.EventService/CreatePayment"
	DeletePaymentProcedure     = "/sunio.v1.EventService/DeletePayment"
)

// Header names set by the client.
const (
	AuthorizationHeader = "Authorization"
	VisitorHeader       = "X-Sunio-Visitor"
)
