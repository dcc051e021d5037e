// Package config holds the runtime's tunables (original spec §6) as a
// plain struct with sane defaults, plus a BindFlags helper in the
// teacher's ExtraFlags idiom (cmd/collection/main.go: flags bound
// directly to struct fields, default value as the third argument) so a
// host's CLI entrypoint can override any of them. This package never
// parses os.Args itself or defines a main package: flag-parsing
// mechanics are out of scope (§1), only the Config struct and its
// defaults are this module's concern.
package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Config collects every tunable named in the original spec's §6 table.
type Config struct {
	// Event accumulator (§4.1).
	MaxHistoryFrames int

	// Snapshot providers (§4.3).
	ReplicaPoolSize int

	// Deferred command buffer (§4.2).
	CommandBufferInitialBytes int

	// Distributed entity lifecycle (§4.6).
	ReliableInitTimeoutFrames uint32
	GhostTimeoutFrames        uint32

	// Continuous time controller PLL (§4.7).
	PLLGain           float64
	PLLMaxSlewPerTick float64
	SnapThresholdMs   float64
	JitterWindowSize  int

	// Frame pacing.
	FixedDeltaSeconds float64

	// Mode-switch coordinator (§4.7).
	PauseBarrierFrames uint32

	// Circuit breaker (§4.8).
	BreakerFailureThreshold int
	BreakerResetTimeout     time.Duration
}

// Default returns the Config populated with this module's default
// tunables. The components do not read Config themselves and do not fall
// back to these values when constructed with a zero argument: the kernel
// sizes each command buffer with its own 4096-byte constant, an
// accumulator built with 0 history frames retains no batches, and
// NewContinuousSlave substitutes a default (0.5 s) only for a
// non-positive snap threshold.
func Default() Config {
	return Config{
		MaxHistoryFrames:          64,
		ReplicaPoolSize:           8,
		CommandBufferInitialBytes: 320 * 1024,
		ReliableInitTimeoutFrames: 300,
		GhostTimeoutFrames:        300,
		PLLGain:                   0.1,
		PLLMaxSlewPerTick:         0.25,
		SnapThresholdMs:           500,
		JitterWindowSize:          5,
		FixedDeltaSeconds:         1.0 / 60.0,
		PauseBarrierFrames:        120,
		BreakerFailureThreshold:   3,
		BreakerResetTimeout:       5 * time.Second,
	}
}

// BindFlags registers every tunable against flags, in the teacher's
// ExtraFlags idiom: each flag is bound directly to the matching Config
// field with the field's current value (normally Default()'s) as the
// flag's default, so a host main package only needs
//
//	cfg := config.Default()
//	cfg.BindFlags(pflag.CommandLine)
//	pflag.Parse()
//
// to get CLI overrides for every tunable without this module ever
// calling pflag.Parse or touching os.Args itself.
func (c *Config) BindFlags(flags *pflag.FlagSet) {
	flags.IntVar(&c.MaxHistoryFrames, "max-history-frames", c.MaxHistoryFrames,
		"number of recent event-accumulator batches retained before older ones are pooled")
	flags.IntVar(&c.ReplicaPoolSize, "replica-pool-size", c.ReplicaPoolSize,
		"number of pre-warmed replicas held by each filtered on-demand snapshot pool")
	flags.IntVar(&c.CommandBufferInitialBytes, "command-buffer-initial-bytes", c.CommandBufferInitialBytes,
		"pre-sized byte capacity of each module's deferred command buffer")
	flags.Uint32Var(&c.ReliableInitTimeoutFrames, "reliable-init-timeout-frames", c.ReliableInitTimeoutFrames,
		"frames the peer-ack barrier waits before force-acking a reliable-init entity")
	flags.Uint32Var(&c.GhostTimeoutFrames, "ghost-timeout-frames", c.GhostTimeoutFrames,
		"frames an out-of-order-created Ghost may wait for its EntityMaster before being reaped")
	flags.Float64Var(&c.PLLGain, "pll-gain", c.PLLGain,
		"proportional gain of the continuous time slave's jitter-filter PLL")
	flags.Float64Var(&c.PLLMaxSlewPerTick, "pll-max-slew", c.PLLMaxSlewPerTick,
		"maximum per-tick scale correction the continuous time slave's PLL may apply")
	flags.Float64Var(&c.SnapThresholdMs, "snap-threshold-ms", c.SnapThresholdMs,
		"error magnitude, in milliseconds, above which the continuous time slave hard-snaps instead of correcting")
	flags.IntVar(&c.JitterWindowSize, "jitter-window-size", c.JitterWindowSize,
		"size of the median filter window over the continuous time slave's clock error")
	flags.Float64Var(&c.FixedDeltaSeconds, "fixed-delta-seconds", c.FixedDeltaSeconds,
		"fixed per-tick delta used by deterministic lockstep controllers")
	flags.Uint32Var(&c.PauseBarrierFrames, "pause-barrier-frames", c.PauseBarrierFrames,
		"lookahead, in frames, used by the mode-switch coordinator's barrier-frame handshake")
	flags.IntVar(&c.BreakerFailureThreshold, "breaker-failure-threshold", c.BreakerFailureThreshold,
		"consecutive module tick failures before a circuit breaker opens")
	flags.DurationVar(&c.BreakerResetTimeout, "breaker-reset-timeout", c.BreakerResetTimeout,
		"cooldown a circuit breaker waits in Open before allowing a half-open probe")
}
