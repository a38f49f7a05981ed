package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bimakw/wallet-watcher/internal/domain/entities"
	"github.com/bimakw/wallet-watcher/internal/infrastructure/metrics"
)

// Sink is a single delivery target
type Sink interface {
	Notify(ctx context.Context, n entities.Notification) error
}

type namedSink struct {
	name string
	sink Sink
}

// MultiNotifier fans a notification out to every registered sink
type MultiNotifier struct {
	sinks  []namedSink
	logger *zap.Logger
}

func NewMultiNotifier(logger *zap.Logger) *MultiNotifier {
	return &MultiNotifier{logger: logger}
}

// Add registers a sink under name, used in logs and metrics
func (m *MultiNotifier) Add(name string, sink Sink) *MultiNotifier {
	m.sinks = append(m.sinks, namedSink{name: name, sink: sink})
	return m
}

// Len returns the number of registered sinks
func (m *MultiNotifier) Len() int {
	return len(m.sinks)
}

// Notify delivers n to all sinks. Every sink is attempted even if an earlier
// one fails.
func (m *MultiNotifier) Notify(ctx context.Context, n entities.Notification) error {
	if len(m.sinks) == 0 {
		m.logger.Debug("No sinks configured, dropping notification", zap.String("signature", n.Signature))
		return nil
	}

	var errs []error
	for _, s := range m.sinks {
		if err := s.sink.Notify(ctx, n); err != nil {
			metrics.NotificationsTotal.WithLabelValues(s.name, "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(s.name, "success").Inc()
	}
	return errors.Join(errs...)
}
