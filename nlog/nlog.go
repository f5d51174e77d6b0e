// Package nlog is emberflow's logger: leveled, timestamped, process-global,
// modeled on aistore's cmn/nlog API surface (Info/Warn/Errorf as free
// functions, no logger-instance threading through call sites).
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stderr
	min           = sevInfo
)

// SetOutput redirects all subsequent log lines; mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// SetQuiet raises the minimum severity to Warn, suppressing Infof.
func SetQuiet(quiet bool) {
	mu.Lock()
	if quiet {
		min = sevWarn
	} else {
		min = sevInfo
	}
	mu.Unlock()
}

func Infof(format string, args ...any)  { logf(sevInfo, format, args...) }
func Warnf(format string, args ...any)  { logf(sevWarn, format, args...) }
func Errorf(format string, args ...any) { logf(sevErr, format, args...) }

func logf(sev severity, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if sev < min {
		return
	}
	ts := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	fmt.Fprintf(out, "%s %s %s\n", ts, sev.tag(), fmt.Sprintf(format, args...))
}

func (s severity) tag() string {
	switch s {
	case sevWarn:
		return "W"
	case sevErr:
		return "E"
	default:
		return "I"
	}
}
