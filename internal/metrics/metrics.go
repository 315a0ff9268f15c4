// Package metrics exposes Prometheus collectors for the session client and
// the reference server. Collectors are registered on a caller-supplied
// registry so tests and commands never share global state.
package metrics

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/sunio/internal/session"
)

const namespace = "sunio"

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Client records session activity. It implements session.Recorder.
type Client struct {
	fetches   *prometheus.CounterVec
	stale     *prometheus.CounterVec
	drawer    *prometheus.CounterVec
	mutations *prometheus.CounterVec
}

var _ session.Recorder = (*Client)(nil)

// NewClient registers the client collectors on reg.
func NewClient(reg prometheus.Registerer) *Client {
	c := &Client{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resource",
			Name:      "fetches_total",
			Help:      "Settled resource fetches by resource and outcome.",
		}, []string{"resource", "outcome"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resource",
			Name:      "stale_responses_total",
			Help:      "Fetch responses discarded because a newer request had started.",
		}, []string{"resource"}),
		drawer: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drawer",
			Name:      "transitions_total",
			Help:      "Drawer state transitions by kind.",
		}, []string{"kind"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "mutations_total",
			Help:      "Mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
	}
	reg.MustRegister(c.fetches, c.stale, c.drawer, c.mutations)
	return c
}

func (c *Client) FetchSettled(resource string, err error) {
	c.fetches.WithLabelValues(resource, outcome(err)).Inc()
}

func (c *Client) StaleDiscarded(resource string) {
	c.stale.WithLabelValues(resource).Inc()
}

func (c *Client) Transition(kind string) {
	c.drawer.WithLabelValues(kind).Inc()
}

func (c *Client) MutationSettled(op string, err error) {
	c.mutations.WithLabelValues(op, outcome(err)).Inc()
}

// Server records RPCs handled by the reference server.
type Server struct {
	rpcs    *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewServer registers the server collectors on reg.
func NewServer(reg prometheus.Registerer) *Server {
	s := &Server{
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "handled_total",
			Help:      "Handled RPCs by procedure and Connect code.",
		}, []string{"procedure", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "RPC handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
	}
	reg.MustRegister(s.rpcs, s.latency)
	return s
}

// Interceptor counts every unary RPC and observes its latency.
func (s *Server) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			s.rpcs.WithLabelValues(procedure, code).Inc()
			s.latency.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			return resp, err
		}
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
