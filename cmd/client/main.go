// Command client opens an event session against the API and reports the
// derived session values as they change.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/sunio/internal/api"
	"github.com/mmynk/sunio/internal/config"
	"github.com/mmynk/sunio/internal/metrics"
	"github.com/mmynk/sunio/internal/models"
	"github.com/mmynk/sunio/internal/reactive"
	"github.com/mmynk/sunio/internal/session"
	"github.com/mmynk/sunio/pkg/logging"
)

type flags struct {
	event       string
	participant string
	pin         string
	watch       bool
}

func main() {
	var f flags
	flag.StringVar(&f.event, "event", "", "event code to open; lists recent events when empty")
	flag.StringVar(&f.participant, "participant", "", "participant name or id to sign in as")
	flag.StringVar(&f.pin, "pin", "", "participant PIN")
	flag.BoolVar(&f.watch, "watch", false, "keep running and report every change")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Client failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, f flags, logger *slog.Logger) error {
	codec, err := api.NewCodec(cfg.Client.Codec)
	if err != nil {
		return err
	}
	visitor := cfg.Client.VisitorID
	if visitor == "" {
		visitor = uuid.NewString()
		logger.Info("No visitor id configured, recent events will not persist", "visitor_id", visitor)
	}
	client := api.NewConnectClient(http.DefaultClient, cfg.Client.APIURL,
		api.WithCodec(codec),
		api.WithVisitorID(visitor),
	)

	promReg := prometheus.NewRegistry()
	recorder := metrics.NewClient(promReg)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler(promReg), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	reg := session.New(client,
		session.WithContext(ctx),
		session.WithLogger(logger),
		session.WithRecorder(recorder),
		session.WithDrawerDelay(cfg.Client.DrawerDelay),
		session.WithFetchTimeout(cfg.Client.FetchTimeout),
	)
	defer reg.Close()

	g.Go(func() error {
		return runSession(ctx, reg, f, logger)
	})
	err = g.Wait()
	if errors.Is(err, errDone) {
		return nil
	}
	return err
}

// errDone ends the errgroup once a one-shot report has been printed.
var errDone = errors.New("done")

func runSession(ctx context.Context, reg *session.Registry, f flags, logger *slog.Logger) error {
	if f.event == "" {
		recent, err := await(ctx, reg.RecentEvents())
		if err != nil {
			return err
		}
		if len(recent) == 0 {
			fmt.Println("No recent events.")
		}
		for _, e := range recent {
			fmt.Printf("%s  %s  (opened %s)\n", e.ID, e.Name, time.Unix(e.VisitedAt, 0).Format(time.DateTime))
		}
		return errDone
	}

	reg.SetSessionKey(f.event)
	event, err := await(ctx, reg.Event())
	if err != nil {
		return err
	}
	logger.Info("Event opened", "event_id", event.ID, "name", event.Name)

	if f.participant != "" {
		participants, err := await(ctx, reg.Participants())
		if err != nil {
			return err
		}
		p, ok := findParticipant(participants, f.participant)
		if !ok {
			return fmt.Errorf("no participant %q in event %s", f.participant, event.ID)
		}
		if _, err := session.NewMutations(reg).Login(ctx, p.ID, f.pin); err != nil {
			return fmt.Errorf("failed to sign in as %s: %w", p.Name, err)
		}
		logger.Info("Signed in", "participant_id", p.ID, "name", p.Name)
	}

	for _, wait := range []func() error{
		func() error { _, err := await(ctx, reg.Expenses()); return err },
		func() error { _, err := await(ctx, reg.Balances()); return err },
		func() error { _, err := await(ctx, reg.Settlements()); return err },
	} {
		if err := wait(); err != nil {
			return err
		}
	}

	if !f.watch {
		report(logger, reg)
		return errDone
	}
	stop := reactive.Effect(func() { report(logger, reg) }, reg.DerivedNodes()...)
	defer stop()
	<-ctx.Done()
	return ctx.Err()
}

func findParticipant(participants []models.Participant, nameOrID string) (models.Participant, bool) {
	for _, p := range participants {
		if p.ID == nameOrID || strings.EqualFold(p.Name, nameOrID) {
			return p, true
		}
	}
	return models.Participant{}, false
}

// await blocks until res has loaded or errored.
func await[K comparable, T any](ctx context.Context, res *reactive.Resource[K, T]) (T, error) {
	settled := make(chan struct{}, 1)
	stop := reactive.Effect(func() {
		switch res.Status() {
		case reactive.StatusLoaded, reactive.StatusErrored:
			select {
			case settled <- struct{}{}:
			default:
			}
		}
	}, res)
	defer stop()

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-settled:
	}
	if err := res.Err(); err != nil {
		return zero, err
	}
	v, _ := res.Value()
	return v, nil
}

func report(logger *slog.Logger, reg *session.Registry) {
	view := reg.SettlementView()
	logger.Info("Session",
		"balance", reg.PersonalBalance().StringFixed(2),
		"sign", string(reg.BalanceSign()),
		"in_debt", reg.InDebt(),
		"expenses", len(reg.ExpenseListing()),
		"pending", len(view.MinePending),
		"settled", len(view.MineSettled),
		"others", len(view.Others),
	)
	names := reg.ParticipantNames()
	for _, line := range reg.ExpenseListing() {
		fmt.Printf("  %-24s %8.2f  paid by %s\n", line.Description, line.Amount, line.PaidBy)
	}
	for _, s := range view.MinePending {
		fmt.Printf("  pending: %s -> %s %.2f\n", names[s.From], names[s.To], s.Amount)
	}
}
