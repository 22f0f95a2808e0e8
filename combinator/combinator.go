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

// Package combinator builds end-to-end SCIONPaths out of independently
// discovered up/core/down path segments, using crossover or peering links
// (§4.8).
package combinator

import (
	"errors"

	"github.com/coles-net/scionpath/opaquefield"
	"github.com/coles-net/scionpath/path"
	"github.com/coles-net/scionpath/seg"
)

// ErrMalformedCombine is returned when a segment is present but its AS list
// is empty.
var ErrMalformedCombine = errors.New("combinator: segment has no ASes")

// SCIONMinMTU is the IPv6 minimum MTU; path MTUs are floored at this value
// (§4.8, §GLOSSARY).
const SCIONMinMTU = 1280

// point is a crossover or peer candidate: an index into up.Ases and one
// into down.Ases.
type point struct {
	up, down int
}

func (pt point) sum() int { return pt.up + pt.down }

// BuildShortcutPaths returns every shortcut (crossover or peering) path
// that can be built from the given up- and down-segments.
func BuildShortcutPaths(ups, downs []*seg.Segment) []*path.SCIONPath {
	var paths []*path.SCIONPath
	for _, up := range ups {
		for _, down := range downs {
			p, err := buildShortcutPath(up, down)
			if err != nil || p == nil {
				continue
			}
			if !containsPath(paths, p) {
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// BuildCorePaths returns every path buildable from up, down and the given
// core segments, including the direct up-down join with no core segment.
func BuildCorePaths(up, down *seg.Segment, cores []*seg.Segment) []*path.SCIONPath {
	var paths []*path.SCIONPath

	if p, err := buildCorePath(up, nil, down); err == nil && p != nil {
		paths = append(paths, p)
	}

	for _, core := range cores {
		p, err := buildCorePath(up, core, down)
		if err != nil || p == nil {
			continue
		}
		if !containsPath(paths, p) {
			paths = append(paths, p)
		}
	}

	return paths
}

// TuplesToFullPaths splices each (up, core, down) triple into one
// end-to-end SCIONPath. Any element of a triple may be nil; an all-nil
// triple is skipped.
func TuplesToFullPaths(triples [][3]*seg.Segment) []*path.SCIONPath {
	var out []*path.SCIONPath

	for _, t := range triples {
		up, core, down := t[0], t[1], t[2]
		if up == nil && core == nil && down == nil {
			continue
		}

		upIOF, upHOFs, upMTU := copySegment(up, false, core != nil || down != nil, true)
		coreIOF, coreHOFs, coreMTU := copySegment(core, up != nil, down != nil, true)
		downIOF, downHOFs, downMTU := copySegment(down, up != nil || core != nil, false, false)

		p := compactFromValues(upIOF, upHOFs, coreIOF, coreHOFs, downIOF, downHOFs)
		p.MTU = minMTU(upMTU, coreMTU, downMTU)

		var upCore []seg.ASMarking
		if up != nil {
			upCore = append(upCore, reversedAses(up.Ases)...)
		}
		if core != nil {
			upCore = append(upCore, reversedAses(core.Ases)...)
		}
		addInterfaces(p, upCore, true)

		var downAses []seg.ASMarking
		if down != nil {
			downAses = down.Ases
		}
		addInterfaces(p, downAses, false)

		out = append(out, p)
	}

	return out
}

// compactFromValues assembles a SCIONPath from up to three (iof, hofs)
// pairs, skipping any pair whose iof is nil and sliding the remaining
// pairs down to fill A/B/C in order (python's `tuples_to_full_paths` does
// the same compaction before calling `from_values`, rather than
// `_build_core_path`'s positional up/core/down call, which leaves a gap in
// B when core is absent — see spec.md §3 invariant (iii): C present implies
// A and B are both present).
func compactFromValues(upIOF *opaquefield.IOF, upHOFs []*opaquefield.HOF, coreIOF *opaquefield.IOF, coreHOFs []*opaquefield.HOF, downIOF *opaquefield.IOF, downHOFs []*opaquefield.HOF) *path.SCIONPath {
	type pair struct {
		iof  *opaquefield.IOF
		hofs []*opaquefield.HOF
	}

	var pairs []pair
	for _, c := range []pair{{upIOF, upHOFs}, {coreIOF, coreHOFs}, {downIOF, downHOFs}} {
		if c.iof != nil {
			pairs = append(pairs, c)
		}
	}

	var slots [3]pair
	copy(slots[:], pairs)
	return path.FromValues(slots[0].iof, slots[0].hofs, slots[1].iof, slots[1].hofs, slots[2].iof, slots[2].hofs)
}

func buildShortcutPath(up, down *seg.Segment) (*path.SCIONPath, error) {
	if up == nil || down == nil {
		return nil, nil
	}
	if len(up.Ases) == 0 || len(down.Ases) == 0 {
		return nil, ErrMalformedCombine
	}

	xovr, peer := getXovrPeer(up, down)
	if xovr == nil && peer == nil {
		return nil, nil
	}

	if peer != nil && (xovr == nil || peer.sum() > xovr.sum()) {
		return joinShortcuts(up, down, *peer, true), nil
	}
	return joinShortcuts(up, down, *xovr, false), nil
}

func buildCorePath(up, core, down *seg.Segment) (*path.SCIONPath, error) {
	if up == nil || down == nil {
		return nil, nil
	}
	if len(up.Ases) == 0 || len(down.Ases) == 0 || (core != nil && len(core.Ases) == 0) {
		return nil, ErrMalformedCombine
	}

	if !checkConnected(up, core, down) {
		return nil, nil
	}

	upIOF, upHOFs, upMTU := copySegment(up, false, core != nil || down != nil, true)
	coreIOF, coreHOFs, coreMTU := copySegment(core, up != nil, down != nil, true)
	downIOF, downHOFs, downMTU := copySegment(down, up != nil || core != nil, false, false)

	p := compactFromValues(upIOF, upHOFs, coreIOF, coreHOFs, downIOF, downHOFs)
	p.MTU = minMTU(upMTU, coreMTU, downMTU)

	upCoreAses := reversedAses(up.Ases)
	if core != nil {
		upCoreAses = append(upCoreAses, reversedAses(core.Ases)...)
	}
	addInterfaces(p, upCoreAses, true)
	addInterfaces(p, down.Ases, false)

	return p, nil
}

// addInterfaces appends the (isd-as, interface-id) pairs contributed by
// segmentAses to path.Interfaces, in the order given by up.
func addInterfaces(p *path.SCIONPath, segmentAses []seg.ASMarking, up bool) {
	for _, block := range segmentAses {
		isdAS := block.PCBM.ISDAS
		egress := block.PCBM.HOF.Egress
		ingress := block.PCBM.HOF.Ingress

		if up {
			if egress != 0 {
				p.Interfaces = append(p.Interfaces, path.InterfaceHop{ISDAS: isdAS, IfID: egress})
			}
			if ingress != 0 {
				p.Interfaces = append(p.Interfaces, path.InterfaceHop{ISDAS: isdAS, IfID: ingress})
			}
		} else {
			if ingress != 0 {
				p.Interfaces = append(p.Interfaces, path.InterfaceHop{ISDAS: isdAS, IfID: ingress})
			}
			if egress != 0 {
				p.Interfaces = append(p.Interfaces, path.InterfaceHop{ISDAS: isdAS, IfID: egress})
			}
		}
	}
}

// copySegment deep-copies segment into a fresh IOF/HOFs pair, setting the
// up flag, the crossover boundary flags, and optionally reversing the hop
// order (§4.8). Returns nil/nil/0 when segment is nil.
func copySegment(segment *seg.Segment, xoverStart, xoverEnd, up bool) (*opaquefield.IOF, []*opaquefield.HOF, uint16) {
	if segment == nil {
		return nil, nil, 0
	}

	iof := segment.IOF.Clone()
	iof.UpFlag = up

	hofs, mtu := copyHOFs(segment.Ases, up)
	if xoverStart {
		hofs[0].Xover = true
	}
	if xoverEnd {
		hofs[len(hofs)-1].Xover = true
	}

	return iof, hofs, mtu
}

// copyHOFs deep-copies each AS's PCB-marking HOF, folding the MTU
// extensions found along the way, and optionally reverses the result.
func copyHOFs(ases []seg.ASMarking, reverse bool) ([]*opaquefield.HOF, uint16) {
	hofs := make([]*opaquefield.HOF, 0, len(ases))
	var mtu uint16

	for _, block := range ases {
		for _, ext := range block.Extensions {
			if m, ok := ext.(seg.MTUExtension); ok {
				mtu = minMTU(mtu, m.MTU)
			}
		}
		hofs = append(hofs, block.PCBM.HOF.Clone())
	}

	if reverse {
		reverseHOFs(hofs)
	}

	return hofs, mtu
}

func reverseHOFs(hofs []*opaquefield.HOF) {
	for i, j := 0, len(hofs)-1; i < j; i, j = i+1, j-1 {
		hofs[i], hofs[j] = hofs[j], hofs[i]
	}
}

// getXovrPeer finds the shortest (furthest-from-core) crossover and peer
// points between up and down (§4.8). Either return value may be nil.
func getXovrPeer(up, down *seg.Segment) (*point, *point) {
	var xovrs, peers []point

	for upI := 1; upI < len(up.Ases); upI++ {
		upAS := up.Ases[upI]
		for downI := 1; downI < len(down.Ases); downI++ {
			downAS := down.Ases[downI]

			if upAS.PCBM.ISDAS == downAS.PCBM.ISDAS {
				xovrs = append(xovrs, point{upI, downI})
				continue
			}

			for _, upPeer := range upAS.PMs {
				for _, downPeer := range downAS.PMs {
					if upPeer.ISDAS == downAS.PCBM.ISDAS && downPeer.ISDAS == upAS.PCBM.ISDAS {
						peers = append(peers, point{upI, downI})
					}
				}
			}
		}
	}

	var xovr, peer *point
	if len(xovrs) > 0 {
		xovr = maxBySum(xovrs)
	}
	if len(peers) > 0 {
		peer = maxBySum(peers)
	}
	return xovr, peer
}

func maxBySum(pts []point) *point {
	best := pts[0]
	for _, pt := range pts[1:] {
		if pt.sum() > best.sum() {
			best = pt
		}
	}
	return &best
}

// joinShortcuts splices up and down into a shortcut path at pt, using
// either a crossover or a peering link (§4.8).
func joinShortcuts(up, down *seg.Segment, pt point, peer bool) *path.SCIONPath {
	upIOF, upHOFs, upUpstream, upMTU := copySegmentShortcut(up, pt.up, true)
	downIOF, downHOFs, downUpstream, downMTU := copySegmentShortcut(down, pt.down, false)

	upIOF.Shortcut = true
	downIOF.Shortcut = true

	var upPeerHOF, downPeerHOF *opaquefield.HOF

	if !peer {
		upIOF.Peer = false
		downIOF.Peer = false
		upHOFs = append(upHOFs, upUpstream)
		downHOFs = append([]*opaquefield.HOF{downUpstream}, downHOFs...)
	} else {
		upIOF.Peer = true
		downIOF.Peer = true
		upPeerHOF, downPeerHOF = joinShortcutsPeer(up.Ases[pt.up], down.Ases[pt.down])
		upHOFs = append(upHOFs, upPeerHOF, upUpstream)
		downHOFs = append([]*opaquefield.HOF{downUpstream, downPeerHOF}, downHOFs...)
	}

	var aIOF, bIOF *opaquefield.IOF
	var aHOFs, bHOFs []*opaquefield.HOF

	// Any shortcut side with <= 2 HOFs is redundant and is dropped (§4.8).
	if len(upHOFs) > 2 {
		upIOF.Hops = uint8(len(upHOFs))
		aIOF, aHOFs = upIOF, upHOFs
	}
	if len(downHOFs) > 2 {
		downIOF.Hops = uint8(len(downHOFs))
		if aIOF == nil {
			aIOF, aHOFs = downIOF, downHOFs
		} else {
			bIOF, bHOFs = downIOF, downHOFs
		}
	}

	p := path.FromValues(aIOF, aHOFs, bIOF, bHOFs, nil, nil)

	for i := len(up.Ases) - 1; i >= pt.up; i-- {
		pcbm := up.Ases[i].PCBM
		if pcbm.HOF.Egress != 0 {
			p.Interfaces = append(p.Interfaces, path.InterfaceHop{ISDAS: pcbm.ISDAS, IfID: pcbm.HOF.Egress})
		}
		if i != pt.up {
			p.Interfaces = append(p.Interfaces, path.InterfaceHop{ISDAS: pcbm.ISDAS, IfID: pcbm.HOF.Ingress})
		}
	}

	if peer {
		upPCBM := up.Ases[pt.up].PCBM
		downPCBM := down.Ases[pt.down].PCBM
		p.Interfaces = append(p.Interfaces, path.InterfaceHop{ISDAS: upPCBM.ISDAS, IfID: upPeerHOF.Ingress})
		p.Interfaces = append(p.Interfaces, path.InterfaceHop{ISDAS: downPCBM.ISDAS, IfID: downPeerHOF.Ingress})
	}

	for i := pt.down; i < len(down.Ases); i++ {
		pcbm := down.Ases[i].PCBM
		if i != pt.down {
			p.Interfaces = append(p.Interfaces, path.InterfaceHop{ISDAS: pcbm.ISDAS, IfID: pcbm.HOF.Ingress})
		}
		if pcbm.HOF.Egress != 0 {
			p.Interfaces = append(p.Interfaces, path.InterfaceHop{ISDAS: pcbm.ISDAS, IfID: pcbm.HOF.Egress})
		}
	}

	p.MTU = minMTU(upMTU, downMTU)
	return p
}

// checkConnected verifies up, core (if present) and down chain together
// (§4.8).
func checkConnected(up, core, down *seg.Segment) bool {
	upFirst := up.FirstPCBM().ISDAS
	downFirst := down.FirstPCBM().ISDAS

	if core != nil {
		coreFirst := core.FirstPCBM().ISDAS
		coreLast := core.LastPCBM().ISDAS
		return coreLast == upFirst && coreFirst == downFirst
	}
	return upFirst == downFirst
}

// copySegmentShortcut copies segment from index onward for a shortcut
// join, extracting the upstream verify-only HOF and marking the crossover
// hop (§4.8).
func copySegmentShortcut(segment *seg.Segment, index int, up bool) (*opaquefield.IOF, []*opaquefield.HOF, *opaquefield.HOF, uint16) {
	iof := segment.IOF.Clone()
	iof.Hops -= uint8(index)
	iof.UpFlag = up

	hofs, mtu := copyHOFs(segment.Ases[index:], up)

	xovrIdx := len(hofs) - 1
	if !up {
		xovrIdx = 0
	}
	hofs[xovrIdx].Xover = true

	upstream := segment.Ases[index-1].PCBM.HOF.Clone()
	upstream.Xover = false
	upstream.VerifyOnly = true

	return iof, hofs, upstream, mtu
}

// joinShortcutsPeer finds the peering HOFs between upAS and downAS,
// returning the first match (§9 open question (a): multi-peering-link
// behavior is unspecified upstream; this preserves first-match semantics).
func joinShortcutsPeer(upAS, downAS seg.ASMarking) (*opaquefield.HOF, *opaquefield.HOF) {
	for _, upPeer := range upAS.PMs {
		for _, downPeer := range downAS.PMs {
			if upPeer.ISDAS == downAS.PCBM.ISDAS && downPeer.ISDAS == upAS.PCBM.ISDAS {
				up := upPeer.HOF
				down := downPeer.HOF
				return &up, &down
			}
		}
	}
	return nil, nil
}

func reversedAses(ases []seg.ASMarking) []seg.ASMarking {
	out := make([]seg.ASMarking, len(ases))
	for i, a := range ases {
		out[len(ases)-1-i] = a
	}
	return out
}

// validMTU reports whether mtu is usable: nonzero and at least the IPv6
// minimum MTU.
func validMTU(mtu uint16) bool {
	return mtu != 0 && mtu >= SCIONMinMTU
}

// minMTU folds candidates down to the minimum valid one, or 0 if none are
// valid (§4.8).
func minMTU(candidates ...uint16) uint16 {
	var best uint16
	for _, c := range candidates {
		if !validMTU(c) {
			continue
		}
		if best == 0 || c < best {
			best = c
		}
	}
	return best
}

func containsPath(paths []*path.SCIONPath, p *path.SCIONPath) bool {
	for _, existing := range paths {
		if pathsEqual(existing, p) {
			return true
		}
	}
	return false
}

// pathsEqual compares two SCIONPaths by wire content, cursor state, and
// derived metadata (§3: "Paths are value-like and equality-comparable").
func pathsEqual(a, b *path.SCIONPath) bool {
	if a.IofIdx() != b.IofIdx() || a.HofIdx() != b.HofIdx() || a.MTU != b.MTU {
		return false
	}
	if len(a.Interfaces) != len(b.Interfaces) {
		return false
	}
	for i := range a.Interfaces {
		if a.Interfaces[i] != b.Interfaces[i] {
			return false
		}
	}
	ra, rb := a.Pack(), b.Pack()
	if len(ra) != len(rb) {
		return false
	}
	for i := range ra {
		if ra[i] != rb[i] {
			return false
		}
	}
	return true
}
