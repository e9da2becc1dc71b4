// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

package testutil

import (
	"context"
	"net/netip"

	"github.com/stretchr/testify/mock"
)

// MockLookup is a mock implementation of the resolver's host lookup
// seam. Its LookupNetIP method satisfies addrlist.LookupFunc.
type MockLookup struct {
	mock.Mock
}

func (m *MockLookup) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	args := m.Called(ctx, network, host)
	return args.Get(0).([]netip.Addr), args.Error(1)
}
