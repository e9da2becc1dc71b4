// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

//go:build !unix

package addrlist

import (
	"context"
	"net"

	"github.com/rs/zerolog"
)

func connectList(ctx context.Context, list List, budget, poolSize int, logger zerolog.Logger) (net.Conn, *Entry, error) {
	return nil, nil, ErrUnsupportedNetwork
}
