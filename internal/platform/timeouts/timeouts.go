// Package timeouts defines shared timeout constants for the field host.
package timeouts

import "time"

// HealthProbe caps how long a health probe waits for SERVING.
const HealthProbe = 5 * time.Second

// ConsoleSync caps how long a console command waits for its event to be
// folded before replying.
const ConsoleSync = 5 * time.Second

// Shutdown limits how long telemetry exporters get to flush on exit.
const Shutdown = 5 * time.Second
