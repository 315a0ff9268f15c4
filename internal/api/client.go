package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/sunio/internal/models"
)

// Client is the API collaborator of the session layer. Every call either
// returns a typed result or fails with a transport or validation error.
type Client interface {
	ListRecentEvents(ctx context.Context) ([]models.RecentEvent, error)
	ForgetRecentEvent(ctx context.Context, eventID string) ([]models.RecentEvent, error)

	CreateEvent(ctx context.Context, name string, participants []string) (string, error)
	GetEvent(ctx context.Context, eventID string) (models.Event, error)
	RenameEvent(ctx context.Context, eventID, name string) (models.Event, error)

	ListParticipants(ctx context.Context, eventID string) ([]models.Participant, error)
	CreateParticipant(ctx context.Context, eventID, name, pin string) (Credentials, error)
	RenameParticipant(ctx context.Context, eventID, participantID, name string) (models.Participant, error)
	SetParticipantPin(ctx context.Context, eventID, participantID, pin string) (Credentials, error)
	Login(ctx context.Context, eventID, participantID, pin string) (Credentials, error)
	DeleteParticipant(ctx context.Context, eventID, participantID string) error

	ListExpenses(ctx context.Context, eventID string) ([]models.Expense, error)
	CreateExpense(ctx context.Context, eventID string, in ExpenseInput) (models.Expense, error)
	UpdateExpense(ctx context.Context, eventID, expenseID string, in ExpenseInput) (models.Expense, error)
	DeleteExpense(ctx context.Context, eventID, expenseID string) error

	GetBalances(ctx context.Context, eventID string) (map[string]float64, error)
	ListSettlements(ctx context.Context, eventID string) ([]models.Settlement, error)

	ListPayments(ctx context.Context, eventID string) ([]models.Payment, error)
	CreatePayment(ctx context.Context, eventID string, in PaymentInput) (models.Payment, error)
	DeletePayment(ctx context.Context, eventID, paymentID string) error
}

type tokenKey struct{}

// WithToken returns a context whose calls carry token as a bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token set by WithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type clientOptions struct {
	codec        connect.Codec
	visitorID    string
	interceptors []connect.Interceptor
}

// ClientOption configures a ConnectClient.
type ClientOption func(*clientOptions)

// WithCodec selects the wire codec. The default is JSON.
func WithCodec(c connect.Codec) ClientOption {
	return func(o *clientOptions) { o.codec = c }
}

// WithVisitorID identifies the visitor so the server can track recent events.
func WithVisitorID(id string) ClientOption {
	return func(o *clientOptions) { o.visitorID = id }
}

// WithInterceptors appends Connect interceptors to every call.
func WithInterceptors(interceptors ...connect.Interceptor) ClientOption {
	return func(o *clientOptions) { o.interceptors = append(o.interceptors, interceptors...) }
}

var _ Client = (*ConnectClient)(nil)

// ConnectClient implements Client over Connect unary calls.
type ConnectClient struct {
	listRecentEvents  *connect.Client[Empty, ListRecentEventsResponse]
	forgetRecentEvent *connect.Client[EventRef, ListRecentEventsResponse]
	createEvent       *connect.Client[CreateEventRequest, CreateEventResponse]
	getEvent          *connect.Client[EventRef, EventResponse]
	renameEvent       *connect.Client[RenameEventRequest, EventResponse]
	listParticipants  *connect.Client[EventRef, ListParticipantsResponse]
	createParticipant *connect.Client[CreateParticipantRequest, Credentials]
	renameParticipant *connect.Client[RenameParticipantRequest, ParticipantResponse]
	setParticipantPin *connect.Client[PinRequest, Credentials]
	login             *connect.Client[PinRequest, Credentials]
	deleteParticipant *connect.Client[ParticipantRef, Empty]
	listExpenses      *connect.Client[EventRef, ListExpensesResponse]
	createExpense     *connect.Client[CreateExpenseRequest, ExpenseResponse]
	updateExpense     *connect.Client[UpdateExpenseRequest, ExpenseResponse]
	deleteExpense     *connect.Client[ExpenseRef, Empty]
	getBalances       *connect.Client[EventRef, GetBalancesResponse]
	listSettlements   *connect.Client[EventRef, ListSettlementsResponse]
	listPayments      *connect.Client[EventRef, ListPaymentsResponse]
	createPayment     *connect.Client[CreatePaymentRequest, PaymentResponse]
	deletePayment     *connect.Client[PaymentRef, Empty]
}

// NewConnectClient returns a client for the event service at baseURL.
func NewConnectClient(httpClient connect.HTTPClient, baseURL string, opts ...ClientOption) *ConnectClient {
	o := clientOptions{codec: jsonCodec{}}
	for _, opt := range opts {
		opt(&o)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")

	interceptors := append([]connect.Interceptor{headerInterceptor(o.visitorID)}, o.interceptors...)
	copts := []connect.ClientOption{
		connect.WithCodec(o.codec),
		connect.WithInterceptors(interceptors...),
	}

	return &ConnectClient{
		listRecentEvents:  connect.NewClient[Empty, ListRecentEventsResponse](httpClient, baseURL+ListRecentEventsProcedure, copts...),
		forgetRecentEvent: connect.NewClient[EventRef, ListRecentEventsResponse](httpClient, baseURL+ForgetRecentEventProcedure, copts...),
		createEvent:       connect.NewClient[CreateEventRequest, CreateEventResponse](httpClient, baseURL+CreateEventProcedure, copts...),
		getEvent:          connect.NewClient[EventRef, EventResponse](httpClient, baseURL+GetEventProcedure, copts...),
		renameEvent:       connect.NewClient[RenameEventRequest, EventResponse](httpClient, baseURL+RenameEventProcedure, copts...),
		listParticipants:  connect.NewClient[EventRef, ListParticipantsResponse](httpClient, baseURL+ListParticipantsProcedure, copts...),
		createParticipant: connect.NewClient[CreateParticipantRequest, Credentials](httpClient, baseURL+CreateParticipantProcedure, copts...),
		renameParticipant: connect.NewClient[RenameParticipantRequest, ParticipantResponse](httpClient, baseURL+RenameParticipantProcedure, copts...),
		setParticipantPin: connect.NewClient[PinRequest, Credentials](httpClient, baseURL+SetParticipantPinProcedure, copts...),
		login:             connect.NewClient[PinRequest, Credentials](httpClient, baseURL+LoginProcedure, copts...),
		deleteParticipant: connect.NewClient[ParticipantRef, Empty](httpClient, baseURL+DeleteParticipantProcedure, copts...),
		listExpenses:      connect.NewClient[EventRef, ListExpensesResponse](httpClient, baseURL+ListExpensesProcedure, copts...),
		createExpense:     connect.NewClient[CreateExpenseRequest, ExpenseResponse](httpClient, baseURL+CreateExpenseProcedure, copts...),
		updateExpense:     connect.NewClient[UpdateExpenseRequest, ExpenseResponse](httpClient, baseURL+UpdateExpenseProcedure, copts...),
		deleteExpense:     connect.NewClient[ExpenseRef, Empty](httpClient, baseURL+DeleteExpenseProcedure, copts...),
		getBalances:       connect.NewClient[EventRef, GetBalancesResponse](httpClient, baseURL+GetBalancesProcedure, copts...),
		listSettlements:   connect.NewClient[EventRef, ListSettlementsResponse](httpClient, baseURL+ListSettlementsProcedure, copts...),
		listPayments:      connect.NewClient[EventRef, ListPaymentsResponse](httpClient, baseURL+ListPaymentsProcedure, copts...),
		createPayment:     connect.NewClient[CreatePaymentRequest, PaymentResponse](httpClient, baseURL+CreatePaymentProcedure, copts...),
		deletePayment:     connect.NewClient[PaymentRef, Empty](httpClient, baseURL+DeletePaymentProcedure, copts...),
	}
}

// headerInterceptor attaches the bearer token from the call context and the
// visitor id to outgoing requests.
func headerInterceptor(visitorID string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				if token := TokenFromContext(ctx); token != "" {
					req.Header().Set(AuthorizationHeader, "Bearer "+token)
				}
				if visitorID != "" {
					req.Header().Set(VisitorHeader, visitorID)
				}
			}
			return next(ctx, req)
		}
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, FromConnectError(err)
	}
	return resp.Msg, nil
}

func (c *ConnectClient) ListRecentEvents(ctx context.Context) ([]models.RecentEvent, error) {
	resp, err := call(ctx, c.listRecentEvents, &Empty{})
	if err != nil {
		return nil, err
	}
	return resp.RecentEvents, nil
}

func (c *ConnectClient) ForgetRecentEvent(ctx context.Context, eventID string) ([]models.RecentEvent, error) {
	resp, err := call(ctx, c.forgetRecentEvent, &EventRef{EventID: eventID})
	if err != nil {
		return nil, err
	}
	return resp.RecentEvents, nil
}

func (c *ConnectClient) CreateEvent(ctx context.Context, name string, participants []string) (string, error) {
	resp, err := call(ctx, c.createEvent, &CreateEventRequest{Name: name, Participants: participants})
	if err != nil {
		return "", err
	}
	return resp.EventID, nil
}

func (c *ConnectClient) GetEvent(ctx context.Context, eventID string) (models.Event, error) {
	resp, err := call(ctx, c.getEvent, &EventRef{EventID: eventID})
	if err != nil {
		return models.Event{}, err
	}
	return resp.Event, nil
}

func (c *ConnectClient) RenameEvent(ctx context.Context, eventID, name string) (models.Event, error) {
	resp, err := call(ctx, c.renameEvent, &RenameEventRequest{EventID: eventID, Name: name})
	if err != nil {
		return models.Event{}, err
	}
	return resp.Event, nil
}

func (c *ConnectClient) ListParticipants(ctx context.Context, eventID string) ([]models.Participant, error) {
	resp, err := call(ctx, c.listParticipants, &EventRef{EventID: eventID})
	if err != nil {
		return nil, err
	}
	return resp.Participants, nil
}

func (c *ConnectClient) CreateParticipant(ctx context.Context, eventID, name, pin string) (Credentials, error) {
	resp, err := call(ctx, c.createParticipant, &CreateParticipantRequest{EventID: eventID, Name: name, Pin: pin})
	if err != nil {
		return Credentials{}, err
	}
	return *resp, nil
}

func (c *ConnectClient) RenameParticipant(ctx context.Context, eventID, participantID, name string) (models.Participant, error) {
	resp, err := call(ctx, c.renameParticipant, &RenameParticipantRequest{EventID: eventID, ParticipantID: participantID, Name: name})
	if err != nil {
		return models.Participant{}, err
	}
	return resp.Participant, nil
}

func (c *ConnectClient) SetParticipantPin(ctx context.Context, eventID, participantID, pin string) (Credentials, error) {
	resp, err := call(ctx, c.setParticipantPin, &PinRequest{EventID: eventID, ParticipantID: participantID, Pin: pin})
	if err != nil {
		return Credentials{}, err
	}
	return *resp, nil
}

func (c *ConnectClient) Login(ctx context.Context, eventID, participantID, pin string) (Credentials, error) {
	resp, err := call(ctx, c.login, &PinRequest{EventID: eventID, ParticipantID: participantID, Pin: pin})
	if err != nil {
		return Credentials{}, err
	}
	return *resp, nil
}

func (c *ConnectClient) DeleteParticipant(ctx context.Context, eventID, participantID string) error {
	_, err := call(ctx, c.deleteParticipant, &ParticipantRef{EventID: eventID, ParticipantID: participantID})
	return err
}

func (c *ConnectClient) ListExpenses(ctx context.Context, eventID string) ([]models.Expense, error) {
	resp, err := call(ctx, c.listExpenses, &EventRef{EventID: eventID})
	if err != nil {
		return nil, err
	}
	return resp.Expenses, nil
}

func (c *ConnectClient) CreateExpense(ctx context.Context, eventID string, in ExpenseInput) (models.Expense, error) {
	resp, err := call(ctx, c.createExpense, &CreateExpenseRequest{EventID: eventID, Expense: in})
	if err != nil {
		return models.Expense{}, err
	}
	return resp.Expense, nil
}

func (c *ConnectClient) UpdateExpense(ctx context.Context, eventID, expenseID string, in ExpenseInput) (models.Expense, error) {
	resp, err := call(ctx, c.updateExpense, &UpdateExpenseRequest{EventID: eventID, ExpenseID: expenseID, Expense: in})
	if err != nil {
		return models.Expense{}, err
	}
	return resp.Expense, nil
}

func (c *ConnectClient) DeleteExpense(ctx context.Context, eventID, expenseID string) error {
	_, err := call(ctx, c.deleteExpense, &ExpenseRef{EventID: eventID, ExpenseID: expenseID})
	return err
}

func (c *ConnectClient) GetBalances(ctx context.Context, eventID string) (map[string]float64, error) {
	resp, err := call(ctx, c.getBalances, &EventRef{EventID: eventID})
	if err != nil {
		return nil, err
	}
	return resp.Balances, nil
}

func (c *ConnectClient) ListSettlements(ctx context.Context, eventID string) ([]models.Settlement, error) {
	resp, err := call(ctx, c.listSettlements, &EventRef{EventID: eventID})
	if err != nil {
		return nil, err
	}
	return resp.Settlements, nil
}

func (c *ConnectClient) ListPayments(ctx context.Context, eventID string) ([]models.Payment, error) {
	resp, err := call(ctx, c.listPayments, &EventRef{EventID: eventID})
	if err != nil {
		return nil, err
	}
	return resp.Payments, nil
}

func (c *ConnectClient) CreatePayment(ctx context.Context, eventID string, in PaymentInput) (models.Payment, error) {
	resp, err := call(ctx, c.createPayment, &CreatePaymentRequest{EventID: eventID, Payment: in})
	if err != nil {
		return models.Payment{}, err
	}
	return resp.Payment, nil
}

func (c *ConnectClient) DeletePayment(ctx context.Context, eventID, paymentID string) error {
	_, err := call(ctx, c.deletePayment, &PaymentRef{EventID: eventID, PaymentID: paymentID})
	return err
}
