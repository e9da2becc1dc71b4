// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

package addrlist

import (
	"context"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kappuccino111/libcups/internal/util"
)

const (
	// defaultPoolSize bounds the number of concurrent connection
	// attempts. It bounds concurrency, not the total number of
	// candidates: as attempts leave the pool, new addresses are
	// admitted until the list is exhausted.
	defaultPoolSize = 100

	// fillInterval is the readiness wait in milliseconds while
	// unconsumed addresses remain, keeping the wait short so new
	// candidates keep joining the race.
	fillInterval = 100
	// drainInterval is the readiness wait in milliseconds once the
	// list is exhausted.
	drainInterval = 250

	// unboundedBudget stands in for "no timeout". The engine still
	// cycles at the usual intervals so cancellation stays responsive.
	unboundedBudget = math.MaxInt32
)

// ConnectConfig is the configuration for Connect.
type ConnectConfig struct {
	// Timeout bounds the whole race. Zero or negative means
	// unbounded.
	Timeout *time.Duration
	// PoolSize bounds the number of concurrent connection attempts.
	// Defaults to 100.
	PoolSize *int
	// Logger receives debug traces. Defaults to a nop logger.
	Logger *zerolog.Logger
}

// Connect races non-blocking connection attempts across the entries of
// the list, in list order, and returns the first connection to
// complete together with the entry it was opened against. Candidates
// that fail individually (unsupported family, refused connection) are
// skipped without aborting the race.
//
// Ownership of the returned connection transfers to the caller. The
// list itself remains the caller's and is not released.
//
// The context is the cancellation signal: it is sampled at the top of
// every fill/wait cycle and inside the readiness retry loop, so
// cancellation latency is bounded by one readiness wait (at most
// 250ms). Cancellation closes every pooled socket and overrides any
// other outcome.
func Connect(ctx context.Context, list List, conf *ConnectConfig) (net.Conn, *Entry, error) {
	conf, err := util.ConfigWithDefaults(conf, &ConnectConfig{
		Timeout:  util.PointerTo(time.Duration(0)),
		PoolSize: util.PointerTo(defaultPoolSize),
		Logger:   util.PointerTo(zerolog.Nop()),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to apply defaults to connect config: %w", err)
	}

	if *conf.PoolSize < 1 {
		return nil, nil, fmt.Errorf("%w: pool size must be positive", ErrInvalidArgument)
	}

	budget := unboundedBudget
	if *conf.Timeout > 0 {
		if ms := conf.Timeout.Milliseconds(); ms > 0 && ms < unboundedBudget {
			budget = int(ms)
		} else if ms <= 0 {
			// Sub-millisecond timeouts round up to one cycle.
			budget = 1
		}
	}

	return connectList(ctx, list, budget, *conf.PoolSize, *conf.Logger)
}
