// connpool-load drives a connection pool with concurrent checkout, hold and
// release cycles and reports the pool stats when it is done.
//
// Usage:
//
//	connpool-load --config db.properties --workers 32 --requests 10000 --hold 5ms
//
// The configuration file selects the driver (mysql or sqlite3) and the pool
// settings; see package connpool for the keys.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"connpool"
	"connpool/config"
	_ "connpool/mysql"
	_ "connpool/sqlite"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := pflag.StringP("config", "c", "db.properties", "pool configuration file (.properties, .yaml or .toml)")
	workers := pflag.IntP("workers", "w", 16, "number of concurrent callers")
	requests := pflag.IntP("requests", "n", 1000, "number of checkout/release cycles")
	hold := pflag.Duration("hold", 10*time.Millisecond, "how long a caller keeps a connection")
	maxTotal := pflag.Int("max-total", 0, "overrides max-total of the configuration file")
	logFile := pflag.String("log-file", "", "write rotated logs to this file instead of stderr")
	metricsAddr := pflag.String("metrics-addr", "", "serve /metrics on this address")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Parse()

	logger := newLogger(*logFile, *verbose)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	p, err := openPool(*configPath, *maxTotal, logger)
	if err != nil {
		logger.Error("failed to create pool", zap.Error(err))
		return 1
	}
	defer p.Close()

	if *metricsAddr != "" {
		srv := serveMetrics(*metricsAddr, connpool.NewCollector(filepath.Base(*configPath), p), logger)
		defer srv.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	res, err := runLoad(ctx, p, *workers, *requests, *hold, logger)
	if err != nil {
		logger.Error("load aborted", zap.Error(err))
		return 1
	}

	s := p.Stats()
	logger.Info("load finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int64("succeeded", res.succeeded.Load()),
		zap.Int64("exhausted", res.exhausted.Load()),
		zap.Int64("unavailable", res.unavailable.Load()),
		zap.Int64("releaseFailed", res.releaseFailed.Load()),
		zap.Int("idle", s.Idle),
		zap.Int("inUse", s.InUse),
		zap.Int64("opened", s.Opened),
		zap.Int64("openFailures", s.OpenFailures),
		zap.Int64("deadClosed", s.DeadClosed),
		zap.Int64("maxLifetimeClosed", s.MaxLifetimeClosed),
		zap.Int64("releaseClosed", s.ReleaseClosed))

	if err := p.Close(); err != nil {
		logger.Warn("closing pool", zap.Error(err))
		return 1
	}
	return 0
}

// openPool resolves the configuration file once and logs which keys it set.
// Values are left out; they may hold credentials.
func openPool(path string, maxTotal int, logger *zap.Logger) (*connpool.Pool, error) {
	values, err := config.File(path).Resolve()
	if err != nil {
		return nil, err
	}
	logger.Info("configuration loaded", zap.String("path", path), zap.Strings("keys", config.Keys(values)))
	return connpool.New(maxTotal, config.Map(values), connpool.WithLogger(logger))
}

// newLogger logs JSON to a lumberjack-rotated file, or to stderr when path
// is empty.
func newLogger(path string, verbose bool) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		level.SetLevel(zap.DebugLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if path == "" {
		sink = zapcore.Lock(os.Stderr)
	} else {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    64, // megabytes
			MaxBackups: 3,
			MaxAge:     7, // days
		})
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), sink, level)
	return zap.New(core, zap.AddCaller())
}

func serveMetrics(addr string, c prometheus.Collector, logger *zap.Logger) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
