// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

//go:build unix

package addrlist

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// sockaddr converts the entry into a socket domain and system address.
func (e *Entry) sockaddr() (int, unix.Sockaddr, error) {
	switch e.Family {
	case FamilyLocal:
		return unix.AF_UNIX, &unix.SockaddrUnix{Name: e.Path}, nil
	case FamilyIPv4:
		addr := e.Addr.Addr().Unmap()
		if !addr.Is4() {
			return 0, nil, fmt.Errorf("%w: %s is not an IPv4 address", ErrInvalidArgument, addr)
		}
		return unix.AF_INET, &unix.SockaddrInet4{
			Port: int(e.Addr.Port()),
			Addr: addr.As4(),
		}, nil
	case FamilyIPv6:
		addr := e.Addr.Addr()
		if !addr.Is6() || addr.Is4In6() {
			return 0, nil, fmt.Errorf("%w: %s is not an IPv6 address", ErrInvalidArgument, addr)
		}
		sa := &unix.SockaddrInet6{
			Port: int(e.Addr.Port()),
			Addr: addr.As16(),
		}
		if zone := addr.Zone(); zone != "" {
			sa.ZoneId = zoneID(zone)
		}
		return unix.AF_INET6, sa, nil
	default:
		return 0, nil, fmt.Errorf("%w: unknown address family %s", ErrInvalidArgument, e.Family)
	}
}

// zoneID maps an interface name or numeric zone to a scope id. An
// unknown zone maps to zero, matching the behavior of a missing zone.
func zoneID(zone string) uint32 {
	if ifi, err := net.InterfaceByName(zone); err == nil {
		return uint32(ifi.Index)
	}
	if n, err := strconv.Atoi(zone); err == nil {
		return uint32(n)
	}
	return 0
}
