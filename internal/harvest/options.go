package harvest

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/integra-harvester/internal/logging"
)

type options struct {
	logger  *zap.Logger
	pauser  Pauser
	limiter Waiter
}

// Option customizes harvest components.
type Option func(*options)

// WithLogger sets the logger. Components default to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logging.OrNop(logger)
	}
}

// WithPauser replaces the timer used for retry and politeness pauses.
func WithPauser(p Pauser) Option {
	return func(o *options) {
		if p != nil {
			o.pauser = p
		}
	}
}

// WithLimiter throttles every request through w.
func WithLimiter(w Waiter) Option {
	return func(o *options) {
		if w != nil {
			o.limiter = w
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), pauser: timerPauser{}, limiter: noWait{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
