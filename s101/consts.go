// Package s101 frames a raw byte stream into Ember+ messages: BOF/EOF
// delimiting, byte-stuffed escaping, a CRC-16 trailer, and keep-alive
// command handling.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package s101

const (
	BOF byte = 0xFE
	EOF byte = 0xFF
	CE  byte = 0xCE

	escapeXOR = 0x20
)

// Message types (byte 2 of the decoded payload).
const (
	MsgTypeEmBER byte = 0x0E
)

// Commands (byte 3 of the decoded payload, for MsgTypeEmBER).
const (
	CommandEmBER             byte = 0x00
	CommandKeepAliveRequest  byte = 0x01
	CommandKeepAliveResponse byte = 0x02
)

// EmBER command package flags (byte 5, the first command-specific byte).
const (
	FlagFirstPackage byte = 0x80
	FlagLastPackage  byte = 0x40
	FlagEmptyPackage byte = 0x20
)

const (
	dtdGlow    byte = 0x01
	version    byte = 0x01
	appBytesN  byte = 0x02
	defaultSlot byte = 0x00
)

// appBytes is emitted verbatim by encodeEmber; some devices reject frames
// without exactly these two bytes.
var appBytes = [2]byte{0x28, 0x02}
