// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

// addrconnect is a small diagnostic tool: it resolves each target into
// an address list, races connection attempts across the candidates,
// and reports which address won.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Kappuccino111/libcups/addrlist"
)

func main() {
	var (
		familyName = flag.StringP("family", "f", "any", "address family to resolve (any, ipv4, ipv6)")
		service    = flag.StringP("service", "s", "ipp", "service name or port number")
		timeout    = flag.DurationP("timeout", "t", 30*time.Second, "connection timeout (0 for none)")
		verbose    = flag.BoolP("verbose", "v", false, "enable debug logging")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()
	if !*verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}

	targets := flag.Args()
	if len(targets) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] host|path ...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	family, err := parseFamily(*familyName)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid family")
	}

	res, err := addrlist.NewResolver(&addrlist.ResolverConfig{
		Logger: &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create resolver")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			list, err := res.GetList(ctx, target, family, *service)
			if err != nil {
				return fmt.Errorf("%s: %w", target, err)
			}
			defer list.Release()

			start := time.Now()
			conn, entry, err := addrlist.Connect(ctx, list, &addrlist.ConnectConfig{
				Timeout: timeout,
				Logger:  &logger,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", target, err)
			}
			defer conn.Close()

			logger.Info().
				Str("target", target).
				Stringer("addr", entry).
				Dur("elapsed", time.Since(start)).
				Msg("connected")

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("connection failed")
	}
}

func parseFamily(name string) (addrlist.Family, error) {
	switch name {
	case "any", "unspec", "":
		return addrlist.FamilyUnspec, nil
	case "ipv4", "4":
		return addrlist.FamilyIPv4, nil
	case "ipv6", "6":
		return addrlist.FamilyIPv6, nil
	default:
		return addrlist.FamilyUnspec, fmt.Errorf("unknown address family %q", name)
	}
}
