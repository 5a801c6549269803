// Package notify delivers outcome reports to the operator. Delivery is best
// effort: callers log failures and carry on.
package notify

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Sender is a named Notifier, one per delivery channel.
type Sender interface {
	Notifier
	Name() string
}

// Multi sends every message to all senders. A failing sender does not stop
// delivery to the others.
type Multi struct {
	senders []Sender
	logger  *zap.Logger
}

func NewMulti(logger *zap.Logger, senders ...Sender) *Multi {
	return &Multi{
		senders: senders,
		logger:  logger.With(zap.String("component", "notify")),
	}
}

func (m *Multi) Notify(ctx context.Context, subject, body string) error {
	var failed []string
	for _, s := range m.senders {
		if err := s.Notify(ctx, subject, body); err != nil {
			m.logger.Error("sender failed", zap.String("sender", s.Name()), zap.Error(err))
			failed = append(failed, s.Name()+": "+err.Error())
			continue
		}
		m.logger.Debug("notification sent", zap.String("sender", s.Name()), zap.String("subject", subject))
	}
	if len(failed) > 0 {
		return errors.Errorf("notify: %d of %d senders failed: %s", len(failed), len(m.senders), strings.Join(failed, "; "))
	}
	return nil
}

// Log writes notifications to the logger. It is the sender of last resort when
// no remote channel is configured.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger.With(zap.String("component", "notify"))}
}

func (l *Log) Name() string {
	return "log"
}

func (l *Log) Notify(_ context.Context, subject, body string) error {
	l.logger.Info("notification", zap.String("subject", subject), zap.String("body", body))
	return nil
}
