// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

package addrlist

import (
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/kevinburke/hostsfile/lib"
	"github.com/miekg/dns"
)

// parseHosts parses hosts file contents into a name to address index.
// Names are stored fully qualified and lowercased; address order
// within a name follows file order.
func parseHosts(rd io.Reader) (map[string][]netip.Addr, error) {
	h, err := hostsfile.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hosts file: %w", err)
	}

	addrsByName := make(map[string][]netip.Addr)
	for _, record := range h.Records() {
		addr, err := netip.ParseAddr(record.IpAddress.String())
		if err != nil {
			return nil, fmt.Errorf("failed to parse hosts file address: %w", err)
		}

		for name := range record.Hostnames {
			name = dns.Fqdn(strings.ToLower(name))
			addrsByName[name] = append(addrsByName[name], addr)
		}
	}

	return addrsByName, nil
}
