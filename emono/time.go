// Package emono provides monotonic time helpers used for staleness and
// interval checks, transplanted from aistore's cmn/mono.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package emono

import "time"

var epoch = time.Now()

// NanoTime returns a monotonic timestamp in nanoseconds, suitable only for
// computing elapsed durations (not wall-clock display).
func NanoTime() int64 { return int64(time.Since(epoch)) }

// Since returns the elapsed duration since a NanoTime() reading.
func Since(start int64) time.Duration { return time.Duration(NanoTime() - start) }

// Expired reports whether d has elapsed since start.
func Expired(start int64, d time.Duration) bool { return Since(start) >= d }
