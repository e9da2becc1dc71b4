// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

package addrlist

import (
	"errors"
	"net"
)

var (
	// ErrInvalidArgument is returned for arguments that can never
	// produce a usable address list, such as an out of range family.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCanceled is returned when the cancellation signal fires
	// during a race. It overrides any in-flight success.
	ErrCanceled = errors.New("connection canceled")
	// ErrHostDown is returned when every candidate has been attempted
	// and none connected.
	ErrHostDown = errors.New("host is down")
	// ErrTimeout is returned when the timeout budget is exhausted with
	// no winner.
	ErrTimeout = errors.New("connection timed out")
	// ErrUnknownService is returned for a service identifier that is
	// neither numeric, registered, nor a well known fallback.
	ErrUnknownService = errors.New("unknown service name")
	// ErrNoSuchHost is returned when a name resolves to no addresses.
	ErrNoSuchHost = errors.New("no such host")
	// ErrUnsupportedNetwork is returned for family filters the
	// resolver cannot serve.
	ErrUnsupportedNetwork = errors.New("unsupported network")
)

// isTemporary reports whether a lookup failure looks transient, e.g. a
// misbehaving resolver rather than a name that does not exist.
func isTemporary(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	return false
}
