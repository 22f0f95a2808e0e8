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

// Package seg holds the path-segment types that the combinator consumes.
// These are the concrete stand-in for spec.md's "PathSegment (external)"
// collaborator: beaconing, storage and signature verification live outside
// this module (explicit non-goals); seg only carries the decoded shape a
// PCB (path construction beacon) leaves behind.
package seg

import "github.com/coles-net/scionpath/addr"
import "github.com/coles-net/scionpath/opaquefield"

// Extension is a PCB extension carried by an ASMarking. The only variant
// this engine understands is MTUExtension (§3, §4.8); others are opaque.
type Extension interface {
	isExtension()
}

// MTUExtension carries the per-AS link MTU contributed to the path MTU
// min-fold (§4.8).
type MTUExtension struct {
	MTU uint16
}

func (MTUExtension) isExtension() {}

// PCBMarking is one AS's own contribution to a PCB: its identity and the
// hop field it generated for this segment.
type PCBMarking struct {
	ISDAS addr.IA
	HOF   opaquefield.HOF
}

// PeerMarking is a peering-link hop field an AS attaches to a PCB, in
// addition to its own PCBMarking, when it has a direct peer link.
type PeerMarking struct {
	ISDAS addr.IA
	HOF   opaquefield.HOF
}

// ASMarking is one AS-hop's full contribution to a segment: its own
// PCBMarking, any peering markings, and any extensions (e.g. MTU).
type ASMarking struct {
	PCBM       PCBMarking
	PMs        []PeerMarking
	Extensions []Extension
}

// Segment is a read-only path segment as delivered by an external
// beacon/segment store: one IOF and the ASes that contributed a hop to it,
// in beaconing order (the AS that originated the PCB first).
type Segment struct {
	IOF  opaquefield.IOF
	Ases []ASMarking
}

// FirstPCBM returns the PCBMarking of the first AS in the segment.
func (s *Segment) FirstPCBM() PCBMarking {
	return s.Ases[0].PCBM
}

// LastPCBM returns the PCBMarking of the last AS in the segment.
func (s *Segment) LastPCBM() PCBMarking {
	return s.Ases[len(s.Ases)-1].PCBM
}
