// Package ecos provides common low-level error types shared by the protocol
// packages, modeled on aistore's cmn/cos error helpers.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package ecos

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

type (
	// ErrNotFound is returned when a path or invocation id is unknown to
	// the caller's local state (a host-side error, not a wire fault).
	ErrNotFound struct{ what string }

	// ErrSemantic marks a protocol-level violation that the wire has no
	// error PDU for: write to a read-only parameter, type mismatch,
	// connect on an unknown matrix path, invoke on a non-function.
	// Providers drop these silently on the wire and only surface them
	// locally; consumers surface them as decodeError.
	ErrSemantic struct{ what string }

	// Errs accumulates up to maxErrs distinct non-fatal errors for
	// batched reporting (e.g. a provider session's dispatch errors),
	// mirroring cmn/cos.Errs.
	Errs struct {
		errs []error
		cnt  int64
		mu   sync.Mutex
	}
)

const maxErrs = 8

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	var e *ErrNotFound
	return errors.As(err, &e)
}

func NewErrSemantic(format string, a ...any) *ErrSemantic {
	return &ErrSemantic{fmt.Sprintf(format, a...)}
}

func (e *ErrSemantic) Error() string { return e.what }

func IsErrSemantic(err error) bool {
	var e *ErrSemantic
	return errors.As(err, &e)
}

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
		atomic.StoreInt64(&e.cnt, int64(len(e.errs)))
	}
}

func (e *Errs) Cnt() int { return int(atomic.LoadInt64(&e.cnt)) }

func (e *Errs) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return ""
	}
	s := e.errs[0].Error()
	if n := len(e.errs); n > 1 {
		s = fmt.Sprintf("%s (and %d more)", s, n-1)
	}
	return s
}
