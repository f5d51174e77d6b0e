//go:build debug

// Package edebug provides invariant checks compiled in only under the
// `debug` build tag, following aistore's cmn/debug split.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package edebug

import (
	"fmt"
	"sync"
)

func ON() bool { return true }

func Assert(cond bool, args ...any) {
	if cond {
		return
	}
	if len(args) > 0 {
		panic(fmt.Sprintf("assertion failed: %v", args))
	}
	panic("assertion failed")
}

func AssertFunc(f func() bool, args ...any) { Assert(f(), args...) }

func AssertNoErr(err error) {
	if err != nil {
		panic("unexpected error: " + err.Error())
	}
}

func Assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic(fmt.Sprintf(format, args...))
}

// AssertMutexLocked and AssertRWMutexLocked are best-effort: Go mutexes
// don't expose lock-holder introspection, so these attempt a non-blocking
// TryLock-equivalent via a second goroutine-free heuristic: they simply
// document intent at call sites. Kept as no-ops beyond the doc contract
// to avoid fabricating unsafe introspection.
func AssertMutexLocked(_ *sync.Mutex)     {}
func AssertRWMutexLocked(_ *sync.RWMutex) {}
