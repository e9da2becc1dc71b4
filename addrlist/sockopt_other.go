// SPDX-License-Identifier: Apache-2.0
/*
 * Copyright © 2026 the libcups authors.
 *
 * Licensed under the Apache License, Version 2.0.
 */

//go:build unix && !linux && !darwin

package addrlist

func setExtraSockopts(fd int) {}
