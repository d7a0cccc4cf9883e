// Package timeouts holds the deadline values used around database I/O.
// Keeping them in one place makes the budgets easy to compare and adjust.
package timeouts

import "time"

const (
	// ping bounds health checks and connectivity probes.
	ping = 2 * time.Second
	// connect bounds opening a client connection plus the initial ping.
	connect = 10 * time.Second
	// batch bounds bulk work such as question-set and policy-table imports.
	batch = 60 * time.Second
)

// Ping returns the deadline for health checks and connectivity probes.
func Ping() time.Duration { return ping }

// Connect returns the deadline for establishing a database connection.
func Connect() time.Duration { return connect }

// Batch returns the deadline for bulk imports.
func Batch() time.Duration { return batch }
