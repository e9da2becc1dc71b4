// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

package addrlist_test

import (
	"context"
	"net"
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/Kappuccino111/libcups/addrlist"
)

// stallingEntry returns an entry whose connect never completes: a
// listener with a full accept queue, so further handshakes hang in
// SYN_SENT with their SYNs dropped.
func stallingEntry(t *testing.T) addrlist.Entry {
	t.Helper()

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = unix.Close(fd) })

	require.NoError(t, unix.Bind(fd, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}))
	require.NoError(t, unix.Listen(fd, 1))

	sa, err := unix.Getsockname(fd)
	require.NoError(t, err)
	port := sa.(*unix.SockaddrInet4).Port

	// Fill the accept queue.
	for i := 0; i < 4; i++ {
		cfd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
		require.NoError(t, err)
		t.Cleanup(func() { _ = unix.Close(cfd) })

		require.NoError(t, unix.SetNonblock(cfd, true))
		err = unix.Connect(cfd, &unix.SockaddrInet4{Port: port, Addr: [4]byte{127, 0, 0, 1}})
		require.True(t, err == nil || err == unix.EINPROGRESS)
	}
	time.Sleep(50 * time.Millisecond)

	return addrlist.Entry{
		Family: addrlist.FamilyIPv4,
		Addr:   netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), uint16(port)),
	}
}

// openFDs counts the open file descriptors of the test process.
func openFDs(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir("/proc/self/fd")
	require.NoError(t, err)

	return len(entries)
}

// primePoller forces lazy runtime poller initialization so descriptor
// counts stay stable across the measured section.
func primePoller(t *testing.T) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())
}

func TestConnectTimeout(t *testing.T) {
	ctx := context.Background()

	primePoller(t)
	list := addrlist.List{stallingEntry(t)}
	before := openFDs(t)

	start := time.Now()
	_, _, err := addrlist.Connect(ctx, list, &addrlist.ConnectConfig{
		Timeout: ptrTo(400 * time.Millisecond),
	})
	require.ErrorIs(t, err, addrlist.ErrTimeout)

	assert.GreaterOrEqual(t, time.Since(start), 350*time.Millisecond)
	assert.Equal(t, before, openFDs(t))
}

func TestConnectCanceledDuringRace(t *testing.T) {
	primePoller(t)
	list := addrlist.List{stallingEntry(t)}
	before := openFDs(t)

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(100*time.Millisecond, cancel)
	defer timer.Stop()

	start := time.Now()
	_, _, err := addrlist.Connect(ctx, list, &addrlist.ConnectConfig{
		Timeout: ptrTo(10 * time.Second),
	})
	require.ErrorIs(t, err, addrlist.ErrCanceled)

	// Cancellation latency is bounded by one readiness wait.
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, before, openFDs(t))
}

func TestConnectSocketAccounting(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		primePoller(t)
		list := addrlist.List{listenEntry(t)}
		before := openFDs(t)

		conn, _, err := addrlist.Connect(ctx, list, nil)
		require.NoError(t, err)

		// Exactly the winning socket remains open.
		assert.Equal(t, before+1, openFDs(t))

		require.NoError(t, conn.Close())
		assert.Equal(t, before, openFDs(t))
	})

	t.Run("HostDown", func(t *testing.T) {
		primePoller(t)
		list := addrlist.List{refusedEntry(t), refusedEntry(t)}
		before := openFDs(t)

		_, _, err := addrlist.Connect(ctx, list, nil)
		require.ErrorIs(t, err, addrlist.ErrHostDown)

		assert.Equal(t, before, openFDs(t))
	})

	t.Run("MixedWinnerAndStalls", func(t *testing.T) {
		primePoller(t)
		list := addrlist.List{stallingEntry(t), listenEntry(t)}
		before := openFDs(t)

		conn, entry, err := addrlist.Connect(ctx, list, &addrlist.ConnectConfig{
			Timeout: ptrTo(10 * time.Second),
		})
		require.NoError(t, err)

		// The loser's socket is closed once the winner is picked.
		require.Same(t, &list[1], entry)
		assert.Equal(t, before+1, openFDs(t))

		require.NoError(t, conn.Close())
		assert.Equal(t, before, openFDs(t))
	})
}
