// Package model implements the path-keyed Ember+ device tree: nodes,
// parameters, matrices and functions, and the invariants that bind them.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package model

import (
	"strconv"
	"strings"
)

// Path is an ordered sequence of non-negative integers identifying one
// element in a device's tree. The zero value is the (invalid) empty path;
// GetDirectory at the root is represented separately, not as Path{}.
type Path []int

// ParsePath parses the dot-separated string form ("1.2.3") into a Path.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		p[i] = n
	}
	return p, nil
}

// MustParsePath panics on malformed input; only for literals in tests and
// well-known constants.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Child returns a new path one integer longer, appending n.
func (p Path) Child(n int) Path {
	c := make(Path, len(p)+1)
	copy(c, p)
	c[len(p)] = n
	return c
}

// Parent returns the path one shorter, and false if p is already a root
// (length 1) or empty.
func (p Path) Parent() (Path, bool) {
	if len(p) <= 1 {
		return nil, false
	}
	return p[:len(p)-1], true
}

// Last returns the final path component ("number" relative to the parent).
func (p Path) Last() int {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

// Equal reports whether two paths name the same element.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p is a strict ancestor of o, the
// directory-level relation broadcast targeting subscribes on.
func (p Path) IsAncestorOf(o Path) bool {
	if len(p) >= len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (p Path) Clone() Path {
	c := make(Path, len(p))
	copy(c, p)
	return c
}

// MatrixLabelMarker is the reserved path segment used for a matrix's
// synthetic label sub-tree. No real device element may use it.
const MatrixLabelMarker = 666999666

// MatrixTargetsLabelPath returns P.666999666.1 for matrix path P.
func (p Path) MatrixTargetsLabelPath() Path { return p.Child(MatrixLabelMarker).Child(1) }

// MatrixSourcesLabelPath returns P.666999666.2 for matrix path P.
func (p Path) MatrixSourcesLabelPath() Path { return p.Child(MatrixLabelMarker).Child(2) }

// IsMatrixLabelSubtree reports whether p is P.666999666 or lies beneath it
// for some matrix P, returning that matrix path.
func IsMatrixLabelSubtree(p Path) (matrixPath Path, ok bool) {
	for i, seg := range p {
		if seg == MatrixLabelMarker {
			return p[:i], true
		}
	}
	return nil, false
}
