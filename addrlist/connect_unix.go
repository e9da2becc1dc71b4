// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

//go:build unix

package addrlist

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// attempt pairs an in-flight non-blocking socket with the entry it was
// opened against, for the duration of one race.
type attempt struct {
	fd      int
	entry   *Entry
	revents int16
}

// connectList drives the race: a single logical flow that admits
// candidates into a bounded pool of non-blocking connects and
// multiplexes readiness across them until one wins, the list and pool
// drain, the budget runs out, or the context is canceled.
func connectList(ctx context.Context, list List, budget, poolSize int, logger zerolog.Logger) (net.Conn, *Entry, error) {
	next := 0
	pool := make([]attempt, 0, poolSize)

	closePool := func() {
		for _, at := range pool {
			_ = unix.Close(at.fd)
		}
		pool = pool[:0]
	}

	for budget > 0 {
		if ctx.Err() != nil {
			closePool()
			return nil, nil, ErrCanceled
		}

		// Admit candidates while the window has room.
		for len(pool) < poolSize && next < len(list) {
			entry := &list[next]
			next++

			fd, connected, err := startAttempt(entry)
			if err != nil {
				// Could be as simple as the local system not having
				// this candidate's family configured. Skip it.
				logger.Debug().Stringer("addr", entry).Err(err).Msg("skipping candidate")
				continue
			}

			if connected {
				// connect() finished synchronously; the race is over.
				closePool()
				return adoptConn(fd, entry, logger)
			}

			logger.Debug().Stringer("addr", entry).Msg("connection attempt pending")
			pool = append(pool, attempt{fd: fd, entry: entry})
		}

		if next >= len(list) && len(pool) == 0 {
			return nil, nil, ErrHostDown
		}

		waitMS := fillInterval
		if next >= len(list) {
			waitMS = drainInterval
			if budget < waitMS {
				waitMS = budget
			}
		}

		n, err := pollPool(ctx, pool, waitMS, logger)
		if err != nil {
			closePool()
			return nil, nil, err
		}

		if n > 0 {
			winner := -1
			for i := 0; i < len(pool) && winner < 0; i++ {
				switch classifyReadiness(pool[i].fd, pool[i].revents) {
				case readinessConnected:
					winner = i
				case readinessFailed:
					logger.Debug().Stringer("addr", pool[i].entry).Msg("candidate failed")
					_ = unix.Close(pool[i].fd)
					pool = append(pool[:i], pool[i+1:]...)
					i--
				}
			}

			if winner >= 0 {
				fd, entry := pool[winner].fd, pool[winner].entry
				for i := range pool {
					if i != winner {
						_ = unix.Close(pool[i].fd)
					}
				}
				pool = pool[:0]
				return adoptConn(fd, entry, logger)
			}
		}

		if next < len(list) {
			budget -= fillInterval
		} else {
			budget -= drainInterval
		}
	}

	closePool()
	return nil, nil, ErrTimeout
}

// pollPool waits for readiness on every pooled socket for up to waitMS
// milliseconds and records the returned events on each attempt. A wait
// interrupted by EINTR or EAGAIN is retried without consuming budget,
// with the cancellation signal sampled on every retry. Any other wait
// failure counts as an idle cycle, so the race keeps ticking toward
// its timeout instead of aborting.
func pollPool(ctx context.Context, pool []attempt, waitMS int, logger zerolog.Logger) (int, error) {
	pfds := make([]unix.PollFd, len(pool))

	for {
		if ctx.Err() != nil {
			return 0, ErrCanceled
		}

		for i := range pool {
			pfds[i] = unix.PollFd{Fd: int32(pool[i].fd), Events: unix.POLLIN | unix.POLLOUT}
		}

		n, err := unix.Poll(pfds, waitMS)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			logger.Debug().Err(err).Msg("readiness wait failed")
			return 0, nil
		}

		for i := range pool {
			pool[i].revents = pfds[i].Revents
		}

		return n, nil
	}
}

// readiness classifies one pooled socket after a poll cycle.
type readiness int

const (
	// readinessPending means the asynchronous connect has not
	// finished yet.
	readinessPending readiness = iota
	// readinessConnected means the socket is connected and usable.
	readinessConnected
	// readinessFailed means the connect genuinely failed.
	readinessFailed
)

// classifyReadiness interprets the poll result for one socket. The
// low-level SO_ERROR state is consulted before any flag is believed:
// some systems report POLLHUP together with POLLIN/POLLOUT while an
// asynchronous connect is still in progress or has already succeeded,
// and some report POLLERR/POLLHUP for a socket whose connect is still
// EINPROGRESS at the system level. Neither is a failure, and only a
// clear error state lets a hangup be discarded as connected.
func classifyReadiness(fd int, revents int16) readiness {
	if revents == 0 {
		return readinessPending
	}

	if revents&unix.POLLHUP != 0 && revents&(unix.POLLIN|unix.POLLOUT) != 0 {
		serr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		switch {
		case err != nil || (serr != 0 && serr != int(unix.EINPROGRESS)):
			revents |= unix.POLLERR
		case serr == int(unix.EINPROGRESS):
			// Still in flight despite the hangup report.
			return readinessPending
		default:
			revents &^= unix.POLLHUP
		}
	}

	if revents&(unix.POLLERR|unix.POLLHUP) != 0 {
		serr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err == nil && (serr == 0 || serr == int(unix.EINPROGRESS)) {
			// Spurious error report while the connect is in flight.
			return readinessPending
		}
		return readinessFailed
	}

	return readinessConnected
}

// startAttempt opens a non-blocking stream socket for the entry and
// issues the connect. connected reports synchronous success, in which
// case the race is already won.
func startAttempt(entry *Entry) (fd int, connected bool, err error) {
	domain, sa, err := entry.sockaddr()
	if err != nil {
		return -1, false, err
	}

	fd, err = unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, false, fmt.Errorf("failed to create socket: %w", err)
	}

	unix.CloseOnExec(fd)

	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, false, fmt.Errorf("failed to set non-blocking: %w", err)
	}

	// Best effort options: allow address reuse, and disable Nagle
	// buffering for responsiveness on slow loopback interfaces.
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if entry.Family != FamilyLocal {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}
	setExtraSockopts(fd)

	err = unix.Connect(fd, sa)
	switch {
	case err == nil:
		return fd, true, nil
	case err == unix.EINPROGRESS || err == unix.EAGAIN:
		return fd, false, nil
	default:
		_ = unix.Close(fd)
		return -1, false, fmt.Errorf("failed to connect: %w", err)
	}
}

// adoptConn hands a connected descriptor to the runtime poller as a
// net.Conn. net.FileConn duplicates the descriptor, so the raw fd is
// closed here on every path.
func adoptConn(fd int, entry *Entry, logger zerolog.Logger) (net.Conn, *Entry, error) {
	logger.Debug().Stringer("addr", entry).Msg("connected")

	f := os.NewFile(uintptr(fd), entry.String())
	conn, err := net.FileConn(f)
	_ = f.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to adopt connected socket: %w", err)
	}

	return conn, entry, nil
}
