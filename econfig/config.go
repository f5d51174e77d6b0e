// Package econfig holds the flag-driven tunables shared by the
// consumer and provider engines and the cmd/* binaries, following the
// flag.NewFlagSet convention (cmd/xmeta) rather than a config-file
// parser.
package econfig

import (
	"flag"
	"time"
)

// Config is a plain value; callers build it with Default and may override
// fields with RegisterFlags before handing it to an engine.
type Config struct {
	ConnectTimeout   time.Duration
	HostQueueDepth   int
	TreeFetchMaxPar  int
	KeepAliveWindow  time.Duration
	ConsumerPort     int
	ProviderPort     int
}

// Default returns the baseline tunables used when no flags override them.
func Default() Config {
	return Config{
		ConnectTimeout:  5 * time.Second,
		HostQueueDepth:  1024,
		TreeFetchMaxPar: 5,
		KeepAliveWindow: 15 * time.Second,
		ConsumerPort:    9092,
		ProviderPort:    9099,
	}
}

// RegisterFlags attaches Config fields to fs, seeded with Default values,
// for binaries that want flag-driven overrides. cmd/emberctl and cmd/emberd
// do not call it; both run with Default().
func RegisterFlags(fs *flag.FlagSet, c *Config) {
	d := Default()
	if c.ConnectTimeout == 0 {
		*c = d
	}
	fs.DurationVar(&c.ConnectTimeout, "connect-timeout", c.ConnectTimeout, "overall connect timeout")
	fs.IntVar(&c.HostQueueDepth, "host-queue-depth", c.HostQueueDepth, "bounded host command queue depth")
	fs.IntVar(&c.TreeFetchMaxPar, "tree-fetch-parallel", c.TreeFetchMaxPar, "max parallel GetDirectory requests during a tree fetch")
	fs.DurationVar(&c.KeepAliveWindow, "keepalive-window", c.KeepAliveWindow, "S101 keep-alive response window")
	fs.IntVar(&c.ConsumerPort, "port", c.ConsumerPort, "default device port to connect to")
	fs.IntVar(&c.ProviderPort, "listen-port", c.ProviderPort, "provider emulator listen port")
}
