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

package combinator

import (
	"testing"

	"github.com/coles-net/scionpath/addr"
	"github.com/coles-net/scionpath/opaquefield"
	"github.com/coles-net/scionpath/seg"
)

// as builds one ASMarking with a plain PCB HOF and no peer markings.
func as(isd uint16, asNum uint32, ingress, egress uint16) seg.ASMarking {
	return seg.ASMarking{
		PCBM: seg.PCBMarking{
			ISDAS: addr.New(isd, asNum),
			HOF:   opaquefield.HOF{Ingress: ingress, Egress: egress},
		},
	}
}

func asWithPeer(isd uint16, asNum uint32, ingress, egress uint16, peerISD uint16, peerAS uint32, peerIngress uint16) seg.ASMarking {
	a := as(isd, asNum, ingress, egress)
	a.PMs = []seg.PeerMarking{
		{ISDAS: addr.New(peerISD, peerAS), HOF: opaquefield.HOF{Ingress: peerIngress}},
	}
	return a
}

func withMTU(a seg.ASMarking, mtu uint16) seg.ASMarking {
	a.Extensions = append(a.Extensions, seg.MTUExtension{MTU: mtu})
	return a
}

// upSegment: core (1-0) -- 10 -- (1-1) -- 11 -- (1-2), beaconed core-first.
func upSegment() *seg.Segment {
	return &seg.Segment{
		IOF: opaquefield.IOF{Hops: 3, Timestamp: 1000},
		Ases: []seg.ASMarking{
			withMTU(as(1, 0, 0, 10), 1500),
			withMTU(as(1, 1, 10, 11), 1400),
			withMTU(as(1, 2, 11, 0), 1300),
		},
	}
}

// downSegment: core (1-0) -- 20 -- (1-3) -- 21 -- (1-4), beaconed core-first.
func downSegment() *seg.Segment {
	return &seg.Segment{
		IOF: opaquefield.IOF{Hops: 3, Timestamp: 1000},
		Ases: []seg.ASMarking{
			withMTU(as(1, 0, 0, 20), 1500),
			withMTU(as(1, 3, 20, 21), 1350),
			withMTU(as(1, 4, 21, 0), 1280),
		},
	}
}

func TestBuildCorePathsDirectJoin(t *testing.T) {
	up := upSegment()
	down := downSegment()

	paths := BuildCorePaths(up, down, nil)
	if len(paths) != 1 {
		t.Fatalf("expected exactly one direct up-down join, got %d", len(paths))
	}

	p := paths[0]
	if p.IofIdx() < 0 {
		t.Fatalf("expected a well-formed cursor on a non-empty path")
	}
	if p.MTU != 1280 {
		t.Fatalf("MTU = %d, want 1280 (floor across both segments)", p.MTU)
	}
	// With no core segment, up and down must land in A_IOF/B_IOF (not
	// A_IOF/C_IOF with an empty B_IOF in between) so GetAsHops() walks
	// both segments: 3 hops + 3 hops - 1 shared boundary AS = 5.
	if got := p.GetAsHops(); got != 5 {
		t.Fatalf("GetAsHops() = %d, want 5", got)
	}
	if len(p.Interfaces) == 0 {
		t.Fatalf("expected a non-empty interface list")
	}
}

func TestBuildCorePathsWithCoreSegment(t *testing.T) {
	up := upSegment()
	down := downSegment()

	// The core segment must start at down's first AS and end at up's first
	// AS; both are 1-0 here, so it runs 1-0 -> 2-0 -> 1-0.
	core := &seg.Segment{
		IOF: opaquefield.IOF{Hops: 3, Timestamp: 1000},
		Ases: []seg.ASMarking{
			withMTU(as(1, 0, 0, 30), 1500),
			withMTU(as(2, 0, 30, 31), 1450),
			withMTU(as(1, 0, 31, 0), 1500),
		},
	}

	paths := BuildCorePaths(up, down, []*seg.Segment{core})
	// direct join + the one through core
	if len(paths) != 2 {
		t.Fatalf("expected 2 core paths (direct + via core), got %d", len(paths))
	}

	for _, p := range paths {
		if p.Len() == 0 {
			t.Fatalf("expected non-empty packed path")
		}
		raw := p.Pack()
		if len(raw)%opaquefield.OFLen != 0 {
			t.Fatalf("packed length %d not a multiple of %d", len(raw), opaquefield.OFLen)
		}
	}
}

func TestBuildCorePathsRejectsDisconnectedCore(t *testing.T) {
	up := upSegment()
	down := downSegment()

	core := &seg.Segment{
		IOF: opaquefield.IOF{Hops: 2},
		Ases: []seg.ASMarking{
			as(9, 0, 0, 99),
			as(9, 9, 99, 0),
		},
	}

	paths := BuildCorePaths(up, down, []*seg.Segment{core})
	if len(paths) != 1 {
		t.Fatalf("disconnected core segment should be skipped, got %d paths", len(paths))
	}
}

// shortcutUp/shortcutDown share AS 1-1 as a crossover point.
func shortcutUp() *seg.Segment {
	return &seg.Segment{
		IOF: opaquefield.IOF{Hops: 3},
		Ases: []seg.ASMarking{
			as(1, 0, 0, 10),
			as(1, 1, 10, 11),
			as(1, 2, 11, 0),
		},
	}
}

func shortcutDown() *seg.Segment {
	return &seg.Segment{
		IOF: opaquefield.IOF{Hops: 3},
		Ases: []seg.ASMarking{
			as(1, 0, 0, 20),
			as(1, 1, 20, 21),
			as(1, 5, 21, 0),
		},
	}
}

func TestBuildShortcutPathsCrossover(t *testing.T) {
	ups := []*seg.Segment{shortcutUp()}
	downs := []*seg.Segment{shortcutDown()}

	paths := BuildShortcutPaths(ups, downs)
	if len(paths) != 1 {
		t.Fatalf("expected one crossover shortcut path, got %d", len(paths))
	}

	p := paths[0]
	iof := p.CurrentIOF()
	if iof == nil {
		t.Fatalf("expected a non-nil current IOF")
	}
}

// peerUp/peerDown share no common AS below the core AS 1-0 but have a
// peering link between AS 1-1 and AS 1-6.
func peerUp() *seg.Segment {
	return &seg.Segment{
		IOF: opaquefield.IOF{Hops: 3},
		Ases: []seg.ASMarking{
			as(1, 0, 0, 10),
			asWithPeer(1, 1, 10, 11, 1, 6, 100),
			as(1, 2, 11, 0),
		},
	}
}

func peerDown() *seg.Segment {
	return &seg.Segment{
		IOF: opaquefield.IOF{Hops: 3},
		Ases: []seg.ASMarking{
			as(1, 0, 0, 20),
			asWithPeer(1, 6, 20, 21, 1, 1, 200),
			as(1, 7, 21, 0),
		},
	}
}

func TestBuildShortcutPathsPeering(t *testing.T) {
	ups := []*seg.Segment{peerUp()}
	downs := []*seg.Segment{peerDown()}

	paths := BuildShortcutPaths(ups, downs)
	if len(paths) != 1 {
		t.Fatalf("expected one peering shortcut path, got %d", len(paths))
	}
}

func TestBuildShortcutPathsNoneWhenUnrelated(t *testing.T) {
	up := &seg.Segment{
		IOF:  opaquefield.IOF{Hops: 2},
		Ases: []seg.ASMarking{as(1, 0, 0, 10), as(1, 9, 10, 0)},
	}
	down := &seg.Segment{
		IOF:  opaquefield.IOF{Hops: 2},
		Ases: []seg.ASMarking{as(2, 0, 0, 20), as(2, 9, 20, 0)},
	}

	paths := BuildShortcutPaths([]*seg.Segment{up}, []*seg.Segment{down})
	if len(paths) != 0 {
		t.Fatalf("expected no shortcut path for unrelated segments, got %d", len(paths))
	}
}

func TestMinMTUFloorsAtSCIONMinimum(t *testing.T) {
	if got := minMTU(1500, 1200, 1400); got != 1400 {
		t.Fatalf("minMTU with one sub-minimum candidate = %d, want 1400 (1200 ignored)", got)
	}
	if got := minMTU(1000, 1100); got != 0 {
		t.Fatalf("minMTU with all candidates below minimum = %d, want 0", got)
	}
	if got := minMTU(); got != 0 {
		t.Fatalf("minMTU() with no candidates = %d, want 0", got)
	}
}

func TestValidMTU(t *testing.T) {
	cases := []struct {
		mtu  uint16
		want bool
	}{
		{0, false},
		{1279, false},
		{1280, true},
		{9000, true},
	}
	for _, c := range cases {
		if got := validMTU(c.mtu); got != c.want {
			t.Errorf("validMTU(%d) = %v, want %v", c.mtu, got, c.want)
		}
	}
}

func TestTuplesToFullPathsSkipsAllNilTriple(t *testing.T) {
	out := TuplesToFullPaths([][3]*seg.Segment{{nil, nil, nil}})
	if len(out) != 0 {
		t.Fatalf("expected an all-nil triple to be skipped, got %d paths", len(out))
	}
}

func TestTuplesToFullPathsBuildsPath(t *testing.T) {
	up := upSegment()
	down := downSegment()

	out := TuplesToFullPaths([][3]*seg.Segment{{up, nil, down}})
	if len(out) != 1 {
		t.Fatalf("expected one path, got %d", len(out))
	}
	if out[0].Len() == 0 {
		t.Fatalf("expected a non-empty path")
	}
	// A core-absent triple must compact into A_IOF/B_IOF, not leave a gap
	// at B_IOF, so both segments' hops are walked: 3 + 3 - 1 = 5.
	if got := out[0].GetAsHops(); got != 5 {
		t.Fatalf("GetAsHops() = %d, want 5", got)
	}
}
