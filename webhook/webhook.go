package webhook

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Webhook struct {
	server   *http.Server
	listener net.Listener
	handler  *handler
}

func NewWebhook(listener net.Listener, runner Runner, logger *zap.Logger) *Webhook {
	w := &Webhook{
		server: &http.Server{
			ReadHeaderTimeout: 10 * time.Second,
		},
		handler: &handler{
			runner: runner,
			logger: logger,
		},
		listener: listener,
	}
	w.server.Handler = w.Router()
	return w
}

func (f *Webhook) Name() string {
	return "webhook"
}

func (f *Webhook) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/watch", f.handler.Watch).Methods(http.MethodPost)
	r.HandleFunc("/healthz", f.handler.Healthz).Methods(http.MethodGet)

	return r
}

// Serve blocks until Shutdown is called or the listener fails.
func (f *Webhook) Serve(_ context.Context) error {
	f.handler.logger.Info("webhook listening", zap.String("addr", f.listener.Addr().String()))
	if err := f.server.Serve(f.listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (f *Webhook) Shutdown(ctx context.Context) error {
	return f.server.Shutdown(ctx)
}
