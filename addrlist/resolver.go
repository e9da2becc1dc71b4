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
	"io"
	"net"
	"net/netip"
	"strings"
	"sync/atomic"

	"github.com/avast/retry-go/v4"
	"github.com/miekg/dns"
	"github.com/rs/zerolog"

	"github.com/Kappuccino111/libcups/internal/util"
)

// LookupFunc resolves a hostname into IP addresses. The network is one
// of "ip", "ip4" or "ip6".
type LookupFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)

// LookupPortFunc resolves a service name into a port number.
type LookupPortFunc func(ctx context.Context, network, service string) (int, error)

// ResolverConfig is the configuration for a Resolver.
type ResolverConfig struct {
	// Lookup resolves hostnames. Defaults to the system resolver.
	Lookup LookupFunc
	// LookupPort resolves service names. Defaults to the system
	// service database.
	LookupPort LookupPortFunc
	// LookupAttempts is the number of attempts made for transient
	// lookup failures. Defaults to 1 (no retry).
	LookupAttempts *int
	// HostsFileReader is an optional reader with hosts file contents,
	// consulted before the system lookup.
	HostsFileReader io.Reader
	// Reinit is run once at the start of the next resolution after a
	// transient lookup failure. Defaults to replacing the internal
	// system resolver instance.
	Reinit func()
	// Logger receives debug traces. Defaults to a nop logger.
	Logger *zerolog.Logger
}

// Resolver turns a (host, family, service) triple into a List of
// candidate addresses. A Resolver is safe for concurrent use.
type Resolver struct {
	lookup       LookupFunc
	lookupPortFn LookupPortFunc
	attempts     int
	hosts        map[string][]netip.Addr
	reinit       func()
	logger       zerolog.Logger

	system atomic.Pointer[net.Resolver]

	// needReinit is armed by a transient lookup failure and consumed
	// at the start of the next GetList call.
	needReinit atomic.Bool
}

// NewResolver creates a Resolver.
func NewResolver(conf *ResolverConfig) (*Resolver, error) {
	r := &Resolver{}
	r.system.Store(&net.Resolver{})

	conf, err := util.ConfigWithDefaults(conf, &ResolverConfig{
		Lookup:         r.systemLookup,
		LookupPort:     net.DefaultResolver.LookupPort,
		LookupAttempts: util.PointerTo(1),
		Reinit:         r.resetSystemResolver,
		Logger:         util.PointerTo(zerolog.Nop()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply defaults to resolver config: %w", err)
	}

	r.lookup = conf.Lookup
	r.lookupPortFn = conf.LookupPort
	r.attempts = *conf.LookupAttempts
	r.reinit = conf.Reinit
	r.logger = *conf.Logger

	if conf.HostsFileReader != nil {
		r.hosts, err = parseHosts(conf.HostsFileReader)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// GetList resolves host into an ordered list of candidate addresses.
//
// A host beginning with a path separator denotes a local socket and is
// returned as a single entry without any lookup. Bracketed IPv6
// literals are accepted, including the extended "[v1.addr+zone]" form
// where "+zone" is rewritten to the platform's "%zone" convention. An
// empty host produces wildcard addresses suitable for listening.
//
// When lookup yields nothing and host is empty or "localhost", entries
// are synthesized from the loopback (or wildcard) addresses allowed by
// the family filter, IPv6 before IPv4, all carrying the port resolved
// from service via the well known fallback table.
func (r *Resolver) GetList(ctx context.Context, host string, family Family, service string) (List, error) {
	if family < FamilyUnspec || family > FamilyLocal {
		return nil, fmt.Errorf("%w: unknown address family %d", ErrInvalidArgument, int(family))
	}

	// A transient failure on the previous lookup forces a fresh
	// resolver before this one runs, so temporary network errors do
	// not persist in cached resolver state.
	if r.needReinit.CompareAndSwap(true, false) {
		r.logger.Debug().Msg("reinitializing resolver after transient failure")
		r.reinit()
	}

	r.logger.Debug().
		Str("host", host).
		Stringer("family", family).
		Str("service", service).
		Msg("resolving address list")

	if strings.HasPrefix(host, "/") {
		return List{{Family: FamilyLocal, Path: host}}, nil
	}
	if family == FamilyLocal {
		return nil, fmt.Errorf("%w: local family requires a socket path", ErrInvalidArgument)
	}

	if host != "" && !strings.EqualFold(host, "localhost") {
		return r.lookupList(ctx, host, family, service)
	}

	// localhost and the empty host never reach the system resolver:
	// loopback or wildcard entries are synthesized directly, so a
	// missing hosts file entry (or a listening caller) still gets a
	// usable list.
	port, err := r.fallbackPort(ctx, service)
	if err != nil {
		return nil, err
	}

	var addrs []netip.Addr
	if host != "" {
		if family != FamilyIPv4 {
			addrs = append(addrs, netip.IPv6Loopback())
		}
		if family != FamilyIPv6 {
			addrs = append(addrs, netip.MustParseAddr("127.0.0.1"))
		}
	} else {
		if family != FamilyIPv4 {
			addrs = append(addrs, netip.IPv6Unspecified())
		}
		if family != FamilyIPv6 {
			addrs = append(addrs, netip.IPv4Unspecified())
		}
	}

	list := make(List, 0, len(addrs))
	for _, addr := range addrs {
		list = append(list, Entry{
			Family: familyOf(addr),
			Addr:   netip.AddrPortFrom(addr, uint16(port)),
		})
	}

	return list, nil
}

// lookupList handles the non-localhost resolution path: IP literals
// first, then the hosts file, then the system resolver.
func (r *Resolver) lookupList(ctx context.Context, host string, family Family, service string) (List, error) {
	name := unbracket(host)

	port, err := r.registeredPort(ctx, service)
	if err != nil {
		return nil, &net.DNSError{Err: err.Error(), Name: host}
	}

	network := networkFor(family)

	if addr, err := netip.ParseAddr(name); err == nil {
		addrs := filterAddrs([]netip.Addr{addr}, network)
		if len(addrs) == 0 {
			return nil, &net.DNSError{Err: ErrNoSuchHost.Error(), Name: host, IsNotFound: true}
		}
		return entriesFrom(addrs, port), nil
	}

	if _, ok := dns.IsDomainName(name); !ok {
		return nil, &net.DNSError{Err: ErrNoSuchHost.Error(), Name: host, IsNotFound: true}
	}

	if addrs := filterAddrs(r.hosts[dns.Fqdn(strings.ToLower(name))], network); len(addrs) > 0 {
		return entriesFrom(addrs, port), nil
	}

	addrs, err := r.lookupAddrs(ctx, network, name)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, &net.DNSError{Err: ErrNoSuchHost.Error(), Name: host, IsNotFound: true}
	}

	return entriesFrom(addrs, port), nil
}

// lookupAddrs invokes the host lookup, retrying transient failures up
// to the configured attempt budget. A transient failure arms the
// resolver reinitialization flag for the next GetList call.
func (r *Resolver) lookupAddrs(ctx context.Context, network, name string) ([]netip.Addr, error) {
	addrs, err := retry.DoWithData(func() ([]netip.Addr, error) {
		return r.lookup(ctx, network, name)
	},
		retry.Context(ctx),
		retry.Attempts(uint(r.attempts)),
		retry.RetryIf(isTemporary),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if isTemporary(err) {
			r.needReinit.Store(true)
		}
		return nil, err
	}

	return addrs, nil
}

func (r *Resolver) systemLookup(ctx context.Context, network, host string) ([]netip.Addr, error) {
	return r.system.Load().LookupNetIP(ctx, network, host)
}

func (r *Resolver) resetSystemResolver() {
	r.system.Store(&net.Resolver{})
}

// unbracket strips the bracket syntax from numeric IPv6 addresses. The
// newer "[v1.addr+zone]" form carries a zone suffix that is rewritten
// to the "%zone" separator understood by the address parser.
func unbracket(host string) string {
	if !strings.HasPrefix(host, "[") {
		return host
	}

	if strings.HasPrefix(host, "[v1.") {
		name := strings.TrimSuffix(strings.TrimPrefix(host, "[v1."), "]")
		if i := strings.LastIndexByte(name, '+'); i >= 0 {
			name = name[:i] + "%" + name[i+1:]
		}
		return name
	}

	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
}

func networkFor(family Family) string {
	switch family {
	case FamilyIPv4:
		return "ip4"
	case FamilyIPv6:
		return "ip6"
	default:
		return "ip"
	}
}

func familyOf(addr netip.Addr) Family {
	if addr.Unmap().Is4() {
		return FamilyIPv4
	}
	return FamilyIPv6
}

// filterAddrs keeps the addresses matching the requested network.
func filterAddrs(allAddrs []netip.Addr, network string) []netip.Addr {
	var addrs []netip.Addr
	for _, addr := range allAddrs {
		switch network {
		case "ip":
			addrs = append(addrs, addr)
		case "ip4":
			if addr.Unmap().Is4() {
				addrs = append(addrs, addr.Unmap())
			}
		case "ip6":
			if addr.Is6() && !addr.Is4In6() {
				addrs = append(addrs, addr)
			}
		}
	}
	return addrs
}

// entriesFrom copies resolver results into a new list, preserving the
// resolver-returned order.
func entriesFrom(addrs []netip.Addr, port int) List {
	list := make(List, 0, len(addrs))
	for _, addr := range addrs {
		if addr.Is4In6() {
			addr = addr.Unmap()
		}
		list = append(list, Entry{
			Family: familyOf(addr),
			Addr:   netip.AddrPortFrom(addr, uint16(port)),
		})
	}
	return list
}
