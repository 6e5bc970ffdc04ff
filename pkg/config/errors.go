// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package config

import "errors"

var (
	// ErrMissingAdminAddr is returned when the admin API listen address is not set.
	ErrMissingAdminAddr = errors.New("admin address is required")

	// ErrInvalidScanInterval is returned when the timeout-scan interval is invalid.
	ErrInvalidScanInterval = errors.New("timeout scan interval must be greater than 0")

	// ErrInvalidLogFormat is returned when the log format is neither "json" nor "text".
	ErrInvalidLogFormat = errors.New("log format must be \"json\" or \"text\"")
)
