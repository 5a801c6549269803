package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"spread-arbitrage/executor"
)

// Runner runs one arbitrage invocation.
type Runner interface {
	Run(ctx context.Context) executor.Result
}

type handler struct {
	runner Runner
	logger *zap.Logger

	// one invocation at a time; capital is committed per invocation
	running sync.Mutex
}

func (h *handler) Watch(w http.ResponseWriter, r *http.Request) {
	if !h.running.TryLock() {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "an invocation is already running"})
		return
	}
	defer h.running.Unlock()

	h.logger.Info("watch triggered", zap.String("remote", r.RemoteAddr))
	res := h.runner.Run(r.Context())
	writeJSON(w, int(res.Status), res)
}

func (h *handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
