package connpool

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Configuration keys read by the pool itself. Durations are in milliseconds.
const (
	KeyMaxTotal                = "max-total"
	KeyMinIdle                 = "min-idle"
	KeyActiveTime              = "active-time"
	KeyMaintenanceInterval     = "maintenance-interval"
	KeyMaintenanceInitialDelay = "maintenance-initial-delay"
	KeyTopUpMaxFailures        = "top-up-max-failures"
	KeyProbeTimeout            = "probe-timeout"
)

const (
	defaultMaxTotal                = 20
	defaultActiveTime              = 30 * time.Minute
	defaultMaintenanceInterval     = 10 * time.Second
	defaultMaintenanceInitialDelay = time.Second
	defaultTopUpMaxFailures        = 3
	defaultProbeTimeout            = time.Second
)

// PoolConfig is the resolved pool configuration.
type PoolConfig struct {
	MaxTotal int
	// MinIdle is the idle target of the maintenance top-up. Defaults to
	// MaxTotal/2.
	MinIdle int
	// MaxActiveAge is how long a connection may stay checked out before
	// maintenance closes it.
	MaxActiveAge            time.Duration
	MaintenanceInterval     time.Duration
	MaintenanceInitialDelay time.Duration
	// TopUpMaxFailures bounds consecutive opener failures in one top-up.
	TopUpMaxFailures int
	// ProbeTimeout bounds a single liveness probe. Zero means no timeout.
	ProbeTimeout time.Duration
}

func (c PoolConfig) validate() error {
	switch {
	case c.MaxTotal <= 0:
		return fmt.Errorf("%s must be positive, got %d", KeyMaxTotal, c.MaxTotal)
	case c.MinIdle < 0 || c.MinIdle > c.MaxTotal:
		return fmt.Errorf("%s must be within [0, %d], got %d", KeyMinIdle, c.MaxTotal, c.MinIdle)
	case c.MaxActiveAge < 0:
		return fmt.Errorf("%s must not be negative", KeyActiveTime)
	case c.MaintenanceInterval <= 0:
		return fmt.Errorf("%s must be positive", KeyMaintenanceInterval)
	case c.MaintenanceInitialDelay < 0:
		return fmt.Errorf("%s must not be negative", KeyMaintenanceInitialDelay)
	case c.TopUpMaxFailures <= 0:
		return fmt.Errorf("%s must be positive", KeyTopUpMaxFailures)
	case c.ProbeTimeout < 0:
		return fmt.Errorf("%s must not be negative", KeyProbeTimeout)
	}
	return nil
}

// Option overrides a value of the resolved configuration or a collaborator.
type Option func(*options)

type options struct {
	minIdle          *int
	maxActiveAge     *time.Duration
	initialDelay     *time.Duration
	interval         *time.Duration
	topUpMaxFailures *int
	probeTimeout     *time.Duration

	opener Opener
	probe  ProbeFunc
	logger *zap.Logger
}

// WithMinIdle overrides the idle target.
func WithMinIdle(n int) Option {
	return func(o *options) { o.minIdle = &n }
}

// WithMaxActiveAge overrides the active-time setting.
func WithMaxActiveAge(d time.Duration) Option {
	return func(o *options) { o.maxActiveAge = &d }
}

// WithMaintenanceSchedule overrides when the first maintenance tick runs and
// the delay between the end of one tick and the start of the next.
func WithMaintenanceSchedule(initialDelay, interval time.Duration) Option {
	return func(o *options) {
		o.initialDelay = &initialDelay
		o.interval = &interval
	}
}

// WithTopUpMaxFailures overrides the consecutive failure cutoff of top-up.
func WithTopUpMaxFailures(n int) Option {
	return func(o *options) { o.topUpMaxFailures = &n }
}

// WithProbeTimeout overrides the probe-timeout setting. Zero disables it.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *options) { o.probeTimeout = &d }
}

// WithOpener replaces DriverOpener.
func WithOpener(opener Opener) Option {
	return func(o *options) { o.opener = opener }
}

// WithProbe replaces the default liveness probe.
func WithProbe(probe ProbeFunc) Option {
	return func(o *options) { o.probe = probe }
}

// WithLogger sets the logger. The default is zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// parsePoolConfig reads the pool keys from values. maxTotal > 0 takes
// precedence over the max-total key.
func parsePoolConfig(values map[string]string, maxTotal int, o *options) (PoolConfig, error) {
	var (
		cfg PoolConfig
		err error
	)
	if maxTotal > 0 {
		cfg.MaxTotal = maxTotal
	} else if cfg.MaxTotal, err = intValue(values, KeyMaxTotal, defaultMaxTotal); err != nil {
		return cfg, err
	}
	if cfg.MinIdle, err = intValue(values, KeyMinIdle, cfg.MaxTotal/2); err != nil {
		return cfg, err
	}
	if cfg.MaxActiveAge, err = millisValue(values, KeyActiveTime, defaultActiveTime); err != nil {
		return cfg, err
	}
	if cfg.MaintenanceInterval, err = millisValue(values, KeyMaintenanceInterval, defaultMaintenanceInterval); err != nil {
		return cfg, err
	}
	if cfg.MaintenanceInitialDelay, err = millisValue(values, KeyMaintenanceInitialDelay, defaultMaintenanceInitialDelay); err != nil {
		return cfg, err
	}
	if cfg.TopUpMaxFailures, err = intValue(values, KeyTopUpMaxFailures, defaultTopUpMaxFailures); err != nil {
		return cfg, err
	}
	if cfg.ProbeTimeout, err = millisValue(values, KeyProbeTimeout, defaultProbeTimeout); err != nil {
		return cfg, err
	}

	if o.minIdle != nil {
		cfg.MinIdle = *o.minIdle
	}
	if o.maxActiveAge != nil {
		cfg.MaxActiveAge = *o.maxActiveAge
	}
	if o.initialDelay != nil {
		cfg.MaintenanceInitialDelay = *o.initialDelay
	}
	if o.interval != nil {
		cfg.MaintenanceInterval = *o.interval
	}
	if o.topUpMaxFailures != nil {
		cfg.TopUpMaxFailures = *o.topUpMaxFailures
	}
	if o.probeTimeout != nil {
		cfg.ProbeTimeout = *o.probeTimeout
	}
	return cfg, cfg.validate()
}

func intValue(values map[string]string, key string, def int) (int, error) {
	raw, ok := values[key]
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func millisValue(values map[string]string, key string, def time.Duration) (time.Duration, error) {
	raw, ok := values[key]
	if !ok || raw == "" {
		return def, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
