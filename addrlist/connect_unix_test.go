// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

//go:build unix

package addrlist_test

import (
	"context"
	"net"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kappuccino111/libcups/addrlist"
)

// listenEntry starts a loopback TCP listener and returns the entry
// pointing at it.
func listenEntry(t *testing.T) addrlist.Entry {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	return tcpEntry(t, ln.Addr().String())
}

// refusedEntry returns an entry for a loopback port that nothing is
// listening on.
func refusedEntry(t *testing.T) addrlist.Entry {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	entry := tcpEntry(t, ln.Addr().String())
	require.NoError(t, ln.Close())

	return entry
}

func tcpEntry(t *testing.T, addr string) addrlist.Entry {
	t.Helper()

	ap, err := netip.ParseAddrPort(addr)
	require.NoError(t, err)

	family := addrlist.FamilyIPv4
	if ap.Addr().Is6() && !ap.Addr().Is4In6() {
		family = addrlist.FamilyIPv6
	}

	return addrlist.Entry{Family: family, Addr: ap}
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		list := addrlist.List{listenEntry(t)}

		conn, entry, err := addrlist.Connect(ctx, list, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Same(t, &list[0], entry)
		assert.Equal(t, entry.Addr.String(), conn.RemoteAddr().String())
	})

	t.Run("WinnerAmongFailures", func(t *testing.T) {
		// Only the third candidate accepts connections; the race must
		// settle on it without waiting out the full timeout.
		list := addrlist.List{
			refusedEntry(t),
			refusedEntry(t),
			listenEntry(t),
			refusedEntry(t),
		}

		start := time.Now()
		conn, entry, err := addrlist.Connect(ctx, list, &addrlist.ConnectConfig{
			Timeout: ptrTo(10 * time.Second),
		})
		require.NoError(t, err)
		defer conn.Close()

		require.Same(t, &list[2], entry)
		assert.Less(t, time.Since(start), 3*time.Second)
	})

	t.Run("UnixSocket", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.sock")

		ln, err := net.Listen("unix", path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = ln.Close() })

		list := addrlist.List{{Family: addrlist.FamilyLocal, Path: path}}

		conn, entry, err := addrlist.Connect(ctx, list, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Same(t, &list[0], entry)
	})

	t.Run("CanceledBeforeStart", func(t *testing.T) {
		// Cancellation overrides a candidate that would have won.
		list := addrlist.List{listenEntry(t)}

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := addrlist.Connect(canceled, list, nil)
		require.ErrorIs(t, err, addrlist.ErrCanceled)
	})

	t.Run("HostDown", func(t *testing.T) {
		list := addrlist.List{refusedEntry(t), refusedEntry(t)}

		start := time.Now()
		_, _, err := addrlist.Connect(ctx, list, &addrlist.ConnectConfig{
			Timeout: ptrTo(10 * time.Second),
		})
		require.ErrorIs(t, err, addrlist.ErrHostDown)

		// Exhausting the list is distinct from, and faster than, a timeout.
		assert.Less(t, time.Since(start), 3*time.Second)
	})

	t.Run("EmptyList", func(t *testing.T) {
		_, _, err := addrlist.Connect(ctx, nil, nil)
		require.ErrorIs(t, err, addrlist.ErrHostDown)
	})

	t.Run("SlidingWindow", func(t *testing.T) {
		// More candidates than pool slots: slots freed by failed
		// candidates must be refilled until the last entry gets its
		// turn and wins.
		list := addrlist.List{
			refusedEntry(t),
			refusedEntry(t),
			refusedEntry(t),
			refusedEntry(t),
			refusedEntry(t),
			refusedEntry(t),
			listenEntry(t),
		}

		conn, entry, err := addrlist.Connect(ctx, list, &addrlist.ConnectConfig{
			Timeout:  ptrTo(10 * time.Second),
			PoolSize: ptrTo(2),
		})
		require.NoError(t, err)
		defer conn.Close()

		require.Same(t, &list[len(list)-1], entry)
	})

	t.Run("SkipsUnusableCandidates", func(t *testing.T) {
		// A candidate whose socket cannot even be created must not
		// abort the race.
		bogus := addrlist.Entry{
			Family: addrlist.FamilyIPv4,
			Addr:   netip.MustParseAddrPort("[2001:db8::1]:631"),
		}
		list := addrlist.List{bogus, listenEntry(t)}

		conn, entry, err := addrlist.Connect(ctx, list, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Same(t, &list[1], entry)
	})

	t.Run("InvalidPoolSize", func(t *testing.T) {
		_, _, err := addrlist.Connect(ctx, addrlist.List{listenEntry(t)}, &addrlist.ConnectConfig{
			PoolSize: ptrTo(-1),
		})
		require.ErrorIs(t, err, addrlist.ErrInvalidArgument)
	})
}
