// Package notify delivers hire notifications to downstream services.
//
// A Notifier reports delivery as a plain error: nil means the downstream
// accepted the notification, anything else means it did not and the hire
// that triggered it must not be committed. Notifiers never retry.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/garnizeh/bidboard/internal/config"
	"github.com/garnizeh/bidboard/pkg/models"
)

// Notifier is the hire notification dispatcher.
type Notifier interface {
	Notify(ctx context.Context, n models.HireNotification) error
}

// Func adapts an ordinary function to the Notifier interface.
type Func func(ctx context.Context, n models.HireNotification) error

func (f Func) Notify(ctx context.Context, n models.HireNotification) error {
	return f(ctx, n)
}

// ErrUnknownDriver is returned by New for an unsupported notifier driver.
var ErrUnknownDriver = errors.New("notify: unknown driver")

// New builds the notifier selected by cfg.Driver. The returned close
// function releases broker connections and is non-nil whenever err is nil.
func New(cfg config.NotifierConfig, logger *slog.Logger) (Notifier, func() error, error) {
	switch cfg.Driver {
	case "", config.NotifierLog:
		return NewLogNotifier(logger), func() error { return nil }, nil
	case config.NotifierAMQP:
		n, err := DialAMQP(cfg.URL, cfg.Queue, cfg.PublishTimeout, logger)
		if err != nil {
			return nil, nil, err
		}
		return n, n.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
