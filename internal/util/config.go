// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

package util

import "dario.cat/mergo"

// ConfigWithDefaults merges a possibly nil user supplied configuration
// with a set of defaults. Fields left zero in conf are filled in from
// defaults.
func ConfigWithDefaults[T any](conf, defaults *T) (*T, error) {
	if conf == nil {
		return defaults, nil
	}

	merged := *conf
	if err := mergo.Merge(&merged, *defaults); err != nil {
		return nil, err
	}

	return &merged, nil
}

// PointerTo returns a pointer to the given value.
func PointerTo[T any](v T) *T {
	return &v
}
