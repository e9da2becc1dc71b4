// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

package addrlist

import (
	"context"
	"strconv"
)

// fallbackPorts maps well known printing services to their ports, for
// hosts whose service database is missing or incomplete.
var fallbackPorts = map[string]int{
	"http":   80,
	"https":  443,
	"ipp":    631,
	"ipps":   631,
	"lpd":    515,
	"socket": 9100,
}

// registeredPort resolves a service identifier on the normal lookup
// path: numeric string first, then the service database. An absent
// service means port 0. Numbers outside the 16 bit port range are not
// treated as numeric.
func (r *Resolver) registeredPort(ctx context.Context, service string) (int, error) {
	if service == "" {
		return 0, nil
	}

	if port, err := strconv.ParseUint(service, 10, 16); err == nil {
		return int(port), nil
	}

	port, err := r.lookupPortFn(ctx, "tcp", service)
	if err != nil {
		return 0, ErrUnknownService
	}

	return port, nil
}

// fallbackPort resolves a service identifier on the loopback/wildcard
// synthesis path, where the hardcoded fallback table is also
// consulted. A service that is neither numeric, registered, nor in the
// table fails with ErrUnknownService.
func (r *Resolver) fallbackPort(ctx context.Context, service string) (int, error) {
	port, err := r.registeredPort(ctx, service)
	if err == nil {
		return port, nil
	}

	if port, ok := fallbackPorts[service]; ok {
		return port, nil
	}

	return 0, ErrUnknownService
}
