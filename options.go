package kdsplit

import (
	"log/slog"

	kderrors "github.com/tamirms/kdsplit/errors"
)

const (
	// DefaultLeafSize is the row count below which a unit is not split further.
	DefaultLeafSize = 3

	// DefaultWorkers is the pool size used when WithWorkers is not given or is 0.
	DefaultWorkers = 4
)

// Option is a functional option for configuring a partition run.
type Option func(*config)

type config struct {
	workers  int
	leafSize int
	policy   SplitPolicy
	logger   *slog.Logger
	verify   bool
}

func defaultConfig() *config {
	return &config{
		workers:  DefaultWorkers,
		leafSize: DefaultLeafSize,
		policy:   RoundRobin{},
		logger:   NoopLogger(),
	}
}

func newConfig(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.leafSize < 1 {
		return nil, kderrors.ErrInvalidLeafSize
	}
	if cfg.workers < 0 {
		return nil, kderrors.ErrInvalidWorkers
	}
	if cfg.workers == 0 {
		cfg.workers = DefaultWorkers
	}
	if cfg.policy == nil {
		cfg.policy = RoundRobin{}
	}
	if cfg.logger == nil {
		cfg.logger = NoopLogger()
	}
	return cfg, nil
}

// WithWorkers sets the number of pool workers. 0 selects DefaultWorkers.
// The pool never runs more workers than there are rows.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithLeafSize sets the leaf threshold: units with fewer rows are not split.
// Units of a single row are always leaves.
func WithLeafSize(n int) Option {
	return func(c *config) {
		c.leafSize = n
	}
}

// WithSplitPolicy sets how the split column is chosen for each unit.
// Default is RoundRobin.
func WithSplitPolicy(p SplitPolicy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithLogger sets the logger for run progress and the leaf trace.
// Leaves are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithVerify fingerprints the rows before and after the run and checks that
// the leaves tile the dataset exactly once.
func WithVerify() Option {
	return func(c *config) {
		c.verify = true
	}
}
