package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"connpool"
)

type loadResult struct {
	succeeded     atomic.Int64
	exhausted     atomic.Int64
	unavailable   atomic.Int64
	releaseFailed atomic.Int64
}

// runLoad runs requests checkout/hold/release cycles on a worker pool of the
// given size. It stops submitting cycles once ctx is done.
func runLoad(ctx context.Context, p *connpool.Pool, workers, requests int, hold time.Duration, logger *zap.Logger) (*loadResult, error) {
	res := &loadResult{}
	var wg sync.WaitGroup

	wp, err := ants.NewPoolWithFunc(workers, func(interface{}) {
		defer wg.Done()
		res.cycle(ctx, p, hold, logger)
	}, ants.WithPanicHandler(func(v interface{}) {
		logger.Error("cycle panicked", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, err
	}
	defer wp.Release()

	for i := 0; i < requests && ctx.Err() == nil; i++ {
		wg.Add(1)
		if err := wp.Invoke(i); err != nil {
			wg.Done()
			wg.Wait()
			return res, err
		}
	}
	wg.Wait()
	return res, nil
}

func (r *loadResult) cycle(ctx context.Context, p *connpool.Pool, hold time.Duration, logger *zap.Logger) {
	conn, err := p.Checkout(ctx)
	switch {
	case errors.Is(err, connpool.ErrPoolExhausted):
		r.exhausted.Add(1)
		return
	case err != nil:
		r.unavailable.Add(1)
		logger.Debug("checkout failed", zap.Error(err))
		return
	}

	t := time.NewTimer(hold)
	select {
	case <-t.C:
	case <-ctx.Done():
		t.Stop()
	}

	if err := p.Release(conn); err != nil {
		// Held longer than active-time and closed by maintenance.
		r.releaseFailed.Add(1)
		logger.Debug("release failed", zap.Error(err))
		return
	}
	r.succeeded.Add(1)
}
