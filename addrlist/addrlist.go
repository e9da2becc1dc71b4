// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

// Package addrlist resolves service names (hostnames, IP literals, or
// local socket paths) into ordered lists of candidate addresses, and
// establishes connections by racing non-blocking connection attempts
// across all candidates at once.
package addrlist

import (
	"fmt"
	"net/netip"
)

// Family tags the address family of an Entry.
type Family int

const (
	// FamilyUnspec matches any address family.
	FamilyUnspec Family = iota
	// FamilyIPv4 restricts resolution to IPv4 addresses.
	FamilyIPv4
	// FamilyIPv6 restricts resolution to IPv6 addresses.
	FamilyIPv6
	// FamilyLocal denotes a local (unix domain) socket path.
	FamilyLocal
)

func (f Family) String() string {
	switch f {
	case FamilyUnspec:
		return "unspec"
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	case FamilyLocal:
		return "local"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Entry is one resolved endpoint: an IP address and port, or a local
// socket path. Entries are plain values and share no state, so copying
// an Entry never aliases the original.
type Entry struct {
	// Family is the address family of the endpoint.
	Family Family
	// Addr holds the endpoint for the IP families. The zone of a
	// link-local IPv6 address is carried inside the netip.Addr.
	Addr netip.AddrPort
	// Path holds the filesystem path for FamilyLocal entries.
	Path string
}

// Network returns the network name understood by the net package.
func (e Entry) Network() string {
	if e.Family == FamilyLocal {
		return "unix"
	}
	return "tcp"
}

func (e Entry) String() string {
	if e.Family == FamilyLocal {
		return e.Path
	}
	return e.Addr.String()
}

// List is an ordered sequence of resolved endpoints. Order is
// resolution order and determines the order in which Connect starts
// candidates; every transformation preserves it.
//
// A List is not safe for use by multiple concurrent races without
// external synchronization; give each race its own List or a Clone.
type List []Entry

// Clone returns a new list with the same sequence of entries. The
// clone shares no state with the source; mutating one never alters the
// other. Cloning a nil or empty list returns an empty list.
func (l List) Clone() List {
	if len(l) == 0 {
		return nil
	}
	dst := make(List, len(l))
	copy(dst, l)
	return dst
}

// Release drops every entry of the list. Releasing a nil or already
// released list is a no-op. The caller must not use the list afterward.
func (l *List) Release() {
	if l == nil {
		return
	}
	*l = nil
}
