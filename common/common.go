// Copyright 2021 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import "time"

const (
	DefaultTimeout    = 1 * time.Second
	DefaultBufferSize = 4096
)
