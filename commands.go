package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"spread-arbitrage/bitstamp"
	"spread-arbitrage/config"
	"spread-arbitrage/executor"
	"spread-arbitrage/kraken"
	"spread-arbitrage/logging"
	"spread-arbitrage/notify"
	"spread-arbitrage/oracle"
	"spread-arbitrage/paper"
	"spread-arbitrage/trading"
	"spread-arbitrage/webhook"
)

const shutdownTimeout = 10 * time.Second

type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	clients []trading.Client
}

func setup(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	if lvl := c.GlobalString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if c.GlobalBool("dry-run") {
		cfg.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		clients: newClients(cfg, logger),
	}, nil
}

func newClients(cfg *config.Config, logger *zap.Logger) []trading.Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	clients := []trading.Client{
		kraken.NewClient(kraken.Config{
			URL:               cfg.Kraken.URL,
			APIKey:            cfg.Kraken.APIKey,
			APISecret:         cfg.Kraken.APISecret,
			RequestsPerSecond: cfg.Kraken.RequestsPerSecond,
		}, httpClient, logger),
		bitstamp.NewClient(bitstamp.Config{
			URL:               cfg.Bitstamp.URL,
			APIKey:            cfg.Bitstamp.APIKey,
			APISecret:         cfg.Bitstamp.APISecret,
			RequestsPerSecond: cfg.Bitstamp.RequestsPerSecond,
		}, httpClient, logger),
	}

	if cfg.DryRun {
		logger.Warn("dry run: orders are filled locally")
		for i, c := range clients {
			clients[i] = paper.NewClient(c, logger)
		}
	}
	return clients
}

func (rt *runtime) client(v trading.Venue) (trading.Client, error) {
	for _, c := range rt.clients {
		if c.Venue() == v {
			return c, nil
		}
	}
	return nil, errors.Wrapf(trading.ErrUnknownVenue, "%q", v)
}

func (rt *runtime) notifier(ctx context.Context) (notify.Notifier, error) {
	var senders []notify.Sender

	n := rt.cfg.Notify
	if n.SNSTopicARN != "" {
		s, err := notify.NewSNS(ctx, notify.SNSConfig{Region: n.SNSRegion, TopicARN: n.SNSTopicARN})
		if err != nil {
			return nil, err
		}
		senders = append(senders, s)
	}
	if n.TelegramToken != "" {
		t, err := notify.NewTelegram(notify.TelegramConfig{Token: n.TelegramToken, ChatID: n.TelegramChatID})
		if err != nil {
			return nil, err
		}
		senders = append(senders, t)
	}
	if len(senders) == 0 {
		rt.logger.Warn("no notification channel configured, notifications go to the log")
		senders = append(senders, notify.NewLog(rt.logger))
	}
	return notify.NewMulti(rt.logger, senders...), nil
}

func (rt *runtime) executor(ctx context.Context) (*executor.Executor, error) {
	pair, err := rt.cfg.Pair()
	if err != nil {
		return nil, err
	}
	notifier, err := rt.notifier(ctx)
	if err != nil {
		return nil, err
	}

	a, err := rt.client(trading.Venues[0])
	if err != nil {
		return nil, err
	}
	b, err := rt.client(trading.Venues[1])
	if err != nil {
		return nil, err
	}

	return executor.New(executor.Params{
		Pair:      pair,
		Budget:    rt.cfg.Amount,
		Threshold: rt.cfg.SpreadThreshold,
		Subject:   rt.cfg.Notify.Subject,
	}, oracle.New(a, b, rt.logger), rt.clients, notifier, rt.logger)
}

func watchAction(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exec, err := rt.executor(ctx)
	if err != nil {
		return err
	}

	res := exec.Run(ctx)
	if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
		return err
	}
	return exitError(res)
}

// exitError maps a result to the process exit status.
func exitError(res executor.Result) error {
	switch res.Status {
	case executor.StatusCompleted, executor.StatusSkipped:
		return nil
	case executor.StatusPartialFailure:
		return cli.NewExitError(res.Message, 2)
	default:
		return cli.NewExitError(res.Message, 1)
	}
}

func serveAction(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exec, err := rt.executor(ctx)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", rt.cfg.Server.Listen)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", rt.cfg.Server.Listen)
	}
	server := webhook.NewWebhook(listener, exec, rt.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		rt.logger.Info("shutting down", zap.String("server", server.Name()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func orderAction(c *cli.Context) error {
	venue := trading.Venue(c.String("venue"))
	id := c.String("id")
	if err := checkOrderLookup(venue, id, c.GlobalBool("dry-run")); err != nil {
		return err
	}

	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.logger.Sync()
	if err := checkOrderLookup(venue, id, rt.cfg.DryRun); err != nil {
		return err
	}

	client, err := rt.client(venue)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	detail, err := client.GetOrderDetail(ctx, trading.GetOrderDetailRequest{OrderID: id})
	if err != nil {
		return errors.Wrapf(err, "get order %s on %s", id, venue)
	}
	return json.NewEncoder(os.Stdout).Encode(struct {
		Venue    trading.Venue `json:"venue"`
		OrderID  string        `json:"orderId"`
		Status   string        `json:"status"`
		Executed string        `json:"executed"`
	}{venue, detail.OrderID, detail.Status, detail.Executed.String()})
}

// checkOrderLookup rejects lookups that cannot succeed. Paper orders exist only
// inside the process that filled them.
func checkOrderLookup(venue trading.Venue, id string, dryRun bool) error {
	if !venue.Valid() || id == "" {
		return cli.NewExitError("--venue (kraken or bitstamp) and --id are required", 1)
	}
	if dryRun {
		return cli.NewExitError("order lookup queries the live venue; paper orders are only logged by the process that placed them", 1)
	}
	return nil
}
