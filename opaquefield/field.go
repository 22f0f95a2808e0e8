/*
 * VC5 load balancer. Copyright (C) 2021-present David Coles
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

// Package opaquefield implements the two SCION opaque-field atoms (info
// fields and hop fields) and the labeled container that strings them
// together into a path header.
//
// https://docs.scion.org/en/latest/protocols/scion-header.html - SCION opaque fields
package opaquefield

import (
	"encoding/binary"
	"fmt"
)

// OFLen is the wire length, in bytes, of every opaque field (IOF or HOF).
const OFLen = 8

// OpaqueField is implemented by *IOF and *HOF so an OpaqueFieldList can
// store either variant behind one slice and let callers type-switch on the
// result, per the sum-typed design note in SPEC_FULL.md.
type OpaqueField interface {
	Encode() [OFLen]byte
}

// IOF is an info opaque field: per-segment direction/flags and a hop count.
type IOF struct {
	UpFlag    bool
	Shortcut  bool
	Peer      bool
	Timestamp uint32
	ISD       uint16
	Hops      uint8
}

// Clone returns a deep copy (trivial for a value type, but named to match
// the copy.deepcopy calls the combinator makes on every IOF it touches).
func (i *IOF) Clone() *IOF {
	c := *i
	return &c
}

// Encode packs the IOF per the bit layout in spec.md:
//
//	byte 0 bit layout — [up_flag:1][shortcut:1][peer:1][reserved:5]
//	bytes 1..4        — timestamp (big-endian u32)
//	bytes 5..6        — ISD (big-endian u16)
//	byte 7            — hops (u8)
func (i *IOF) Encode() [OFLen]byte {
	var b [OFLen]byte

	var flags byte
	if i.UpFlag {
		flags |= 1 << 7
	}
	if i.Shortcut {
		flags |= 1 << 6
	}
	if i.Peer {
		flags |= 1 << 5
	}
	b[0] = flags

	binary.BigEndian.PutUint32(b[1:5], i.Timestamp)
	binary.BigEndian.PutUint16(b[5:7], i.ISD)
	b[7] = i.Hops

	return b
}

// DecodeIOF parses an 8-byte buffer into an IOF. Peer set without Shortcut
// violates the invariant in spec.md §3 (peer ⇒ shortcut); the caller
// (SCIONPath.Parse) rejects that with ErrInvalidPath rather than silently
// fixing it up here.
func DecodeIOF(b [OFLen]byte) IOF {
	return IOF{
		UpFlag:    b[0]&(1<<7) != 0,
		Shortcut:  b[0]&(1<<6) != 0,
		Peer:      b[0]&(1<<5) != 0,
		Timestamp: binary.BigEndian.Uint32(b[1:5]),
		ISD:       binary.BigEndian.Uint16(b[5:7]),
		Hops:      b[7],
	}
}

func (i IOF) String() string {
	return fmt.Sprintf("IOF(up=%v shortcut=%v peer=%v ts=%d isd=%d hops=%d)",
		i.UpFlag, i.Shortcut, i.Peer, i.Timestamp, i.ISD, i.Hops)
}

// HOF is a hop opaque field: per-hop ingress/egress interfaces and a MAC.
type HOF struct {
	Xover      bool
	VerifyOnly bool
	Expiration uint8
	Ingress    uint16 // 12-bit interface id
	Egress     uint16 // 12-bit interface id
	Mac        [3]byte
}

func (h *HOF) Clone() *HOF {
	c := *h
	return &c
}

// Encode packs the HOF per the bit layout in spec.md:
//
//	byte 0   — [xover:1][verify_only:1][reserved:6]
//	byte 1   — expiration
//	bytes 2..4 — ingress_if<<12 | egress_if, packed as 3 bytes of two 12-bit ids
//	bytes 5..7 — MAC (24 bits)
func (h *HOF) Encode() [OFLen]byte {
	var b [OFLen]byte

	var flags byte
	if h.Xover {
		flags |= 1 << 7
	}
	if h.VerifyOnly {
		flags |= 1 << 6
	}
	b[0] = flags
	b[1] = h.Expiration

	ingress := h.Ingress & 0x0FFF
	egress := h.Egress & 0x0FFF
	b[2] = byte(ingress >> 4)
	b[3] = byte(ingress<<4) | byte(egress>>8)
	b[4] = byte(egress)

	copy(b[5:8], h.Mac[:])

	return b
}

// DecodeHOF parses an 8-byte buffer into a HOF.
func DecodeHOF(b [OFLen]byte) HOF {
	ingress := uint16(b[2])<<4 | uint16(b[3])>>4
	egress := uint16(b[3]&0x0F)<<8 | uint16(b[4])

	var mac [3]byte
	copy(mac[:], b[5:8])

	return HOF{
		Xover:      b[0]&(1<<7) != 0,
		VerifyOnly: b[0]&(1<<6) != 0,
		Expiration: b[1],
		Ingress:    ingress,
		Egress:     egress,
		Mac:        mac,
	}
}

func (h HOF) String() string {
	return fmt.Sprintf("HOF(xover=%v verify_only=%v exp=%d ingress=%d egress=%d)",
		h.Xover, h.VerifyOnly, h.Expiration, h.Ingress, h.Egress)
}
