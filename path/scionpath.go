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

// Package path implements SCIONPath: the end-to-end header container, its
// forwarding cursor, reversal, and wire codec.
//
// https://docs.scion.org/en/latest/protocols/scion-header.html
package path

import (
	"fmt"
	"strings"

	"github.com/coles-net/scionpath/addr"
	"github.com/coles-net/scionpath/opaquefield"
)

// Label names for the six groups a SCIONPath's OpaqueFieldList holds, in
// wire order.
const (
	AIOF  = "A_segment_iof"
	AHOFS = "A_segment_hofs"
	BIOF  = "B_segment_iof"
	BHOFS = "B_segment_hofs"
	CIOF  = "C_segment_iof"
	CHOFS = "C_segment_hofs"
)

var ofOrder = []string{AIOF, AHOFS, BIOF, BHOFS, CIOF, CHOFS}
var iofLabels = []string{AIOF, BIOF, CIOF}
var hofLabels = []string{AHOFS, BHOFS, CHOFS}

// InterfaceHop is one (ISD-AS, interface-id) pair in a path's travel-order
// interface list (§3, §4.8).
type InterfaceHop struct {
	ISDAS addr.IA
	IfID  uint16
}

// SCIONPath is a composed end-to-end path header: up to three labeled
// segments, a forwarding cursor, a derived interface list, and an MTU.
//
// Not safe for concurrent use — a SCIONPath is owned by whichever packet it
// is attached to (§5).
type SCIONPath struct {
	ofs    *opaquefield.List
	iofIdx int // -1 when undefined (empty path)
	hofIdx int // -1 when undefined (empty path)

	Interfaces []InterfaceHop
	MTU        uint16
}

func newEmpty() *SCIONPath {
	return &SCIONPath{
		ofs:    opaquefield.NewList(ofOrder...),
		iofIdx: -1,
		hofIdx: -1,
	}
}

// Parse decodes a wire buffer into a SCIONPath. An empty buffer yields an
// empty path. Length must be a multiple of opaquefield.OFLen.
func Parse(raw []byte) (*SCIONPath, error) {
	if len(raw)%opaquefield.OFLen != 0 {
		return nil, ErrInvalidPath
	}

	p := newEmpty()
	cur := 0

	var aIOF *opaquefield.IOF

	if cur < len(raw) {
		iof, next, err := parseIOF(raw, cur)
		if err != nil {
			return nil, err
		}
		aIOF = iof
		cur = next
		hofs, next, err := parseHOFs(raw, cur, int(iof.Hops))
		if err != nil {
			return nil, err
		}
		cur = next
		p.ofs.Set(AIOF, []opaquefield.OpaqueField{iof})
		p.ofs.Set(AHOFS, hofsToFields(hofs))
	}

	if cur < len(raw) {
		iof, next, err := parseIOF(raw, cur)
		if err != nil {
			return nil, err
		}
		cur = next
		hofs, next, err := parseHOFs(raw, cur, int(iof.Hops))
		if err != nil {
			return nil, err
		}
		cur = next
		p.ofs.Set(BIOF, []opaquefield.OpaqueField{iof})
		p.ofs.Set(BHOFS, hofsToFields(hofs))
	}

	if cur < len(raw) {
		if aIOF == nil || aIOF.Shortcut {
			return nil, ErrInvalidPath
		}
		iof, next, err := parseIOF(raw, cur)
		if err != nil {
			return nil, err
		}
		cur = next
		hofs, next, err := parseHOFs(raw, cur, int(iof.Hops))
		if err != nil {
			return nil, err
		}
		cur = next
		p.ofs.Set(CIOF, []opaquefield.OpaqueField{iof})
		p.ofs.Set(CHOFS, hofsToFields(hofs))
	}

	p.initOfIdxs()
	return p, nil
}

func parseIOF(raw []byte, at int) (*opaquefield.IOF, int, error) {
	if at+opaquefield.OFLen > len(raw) {
		return nil, 0, ErrInvalidPath
	}
	var b [opaquefield.OFLen]byte
	copy(b[:], raw[at:at+opaquefield.OFLen])
	iof := opaquefield.DecodeIOF(b)
	if iof.Peer && !iof.Shortcut {
		return nil, 0, ErrInvalidPath
	}
	return &iof, at + opaquefield.OFLen, nil
}

func parseHOFs(raw []byte, at, count int) ([]*opaquefield.HOF, int, error) {
	hofs := make([]*opaquefield.HOF, 0, count)
	for i := 0; i < count; i++ {
		if at+opaquefield.OFLen > len(raw) {
			return nil, 0, ErrInvalidPath
		}
		var b [opaquefield.OFLen]byte
		copy(b[:], raw[at:at+opaquefield.OFLen])
		hof := opaquefield.DecodeHOF(b)
		hofs = append(hofs, &hof)
		at += opaquefield.OFLen
	}
	return hofs, at, nil
}

func hofsToFields(hofs []*opaquefield.HOF) []opaquefield.OpaqueField {
	out := make([]opaquefield.OpaqueField, len(hofs))
	for i, h := range hofs {
		out[i] = h
	}
	return out
}

// FromValues builds a SCIONPath from up to three already-constructed
// segments. Any segment may be nil/empty, mirroring the original's
// `_set_ofs` (None -> []), so callers can build partial (e.g. up-only)
// paths the way the combinator's core-path builder does when the core
// segment is absent.
func FromValues(aIOF *opaquefield.IOF, aHofs []*opaquefield.HOF, bIOF *opaquefield.IOF, bHofs []*opaquefield.HOF, cIOF *opaquefield.IOF, cHofs []*opaquefield.HOF) *SCIONPath {
	p := newEmpty()
	p.setIOF(AIOF, aIOF)
	p.setHOFs(AHOFS, aHofs)
	p.setIOF(BIOF, bIOF)
	p.setHOFs(BHOFS, bHofs)
	p.setIOF(CIOF, cIOF)
	p.setHOFs(CHOFS, cHofs)
	p.initOfIdxs()
	return p
}

func (p *SCIONPath) setIOF(label string, iof *opaquefield.IOF) {
	if iof == nil {
		p.ofs.Set(label, nil)
		return
	}
	p.ofs.Set(label, []opaquefield.OpaqueField{iof})
}

func (p *SCIONPath) setHOFs(label string, hofs []*opaquefield.HOF) {
	p.ofs.Set(label, hofsToFields(hofs))
}

// initOfIdxs initializes the cursor per §4.3. Both indices remain -1
// (undefined) for an empty path.
func (p *SCIONPath) initOfIdxs() {
	if p.ofs.Len() == 0 {
		p.iofIdx = -1
		p.hofIdx = -1
		return
	}
	p.iofIdx = 0
	p.hofIdx = 0

	iof := p.curIOF()
	if iof.Peer {
		hof := p.hofAtAbsolute(1)
		if hof.Xover {
			p.hofIdx++
		}
	}
	p.IncHofIdx()
}

func (p *SCIONPath) curIOF() *opaquefield.IOF {
	f, err := p.ofs.ByIdx(p.iofIdx)
	if err != nil {
		panic(err)
	}
	iof, ok := f.(*opaquefield.IOF)
	if !ok {
		panic(fmt.Sprintf("path: cursor iof_idx %d does not reference an IOF", p.iofIdx))
	}
	return iof
}

func (p *SCIONPath) curHOF() *opaquefield.HOF {
	return p.hofAtAbsolute(p.hofIdx)
}

func (p *SCIONPath) hofAtAbsolute(idx int) *opaquefield.HOF {
	f, err := p.ofs.ByIdx(idx)
	if err != nil {
		panic(err)
	}
	hof, ok := f.(*opaquefield.HOF)
	if !ok {
		panic(fmt.Sprintf("path: index %d does not reference a HOF", idx))
	}
	return hof
}

// IncHofIdx advances the cursor to the next routing (non verify-only) HOF,
// crossing into the next segment when the current one is exhausted (§4.3).
func (p *SCIONPath) IncHofIdx() {
	iof := p.curIOF()
	for {
		p.hofIdx++
		if p.hofIdx-p.iofIdx > int(iof.Hops) {
			p.iofIdx = p.hofIdx
			iof = p.curIOF()
			continue
		}
		if !p.curHOF().VerifyOnly {
			break
		}
	}
}

// IofIdx and HofIdx return the current cursor position, or -1 if undefined.
func (p *SCIONPath) IofIdx() int { return p.iofIdx }
func (p *SCIONPath) HofIdx() int { return p.hofIdx }

// SetOfIdxs overrides the cursor directly. Exposed for callers that save
// and restore cursor state (e.g. around a speculative Reverse).
func (p *SCIONPath) SetOfIdxs(iofIdx, hofIdx int) {
	p.iofIdx = iofIdx
	p.hofIdx = hofIdx
}

// CurrentIOF returns the IOF at the cursor, or nil for an empty path.
func (p *SCIONPath) CurrentIOF() *opaquefield.IOF {
	if p.iofIdx < 0 {
		return nil
	}
	return p.curIOF()
}

// CurrentHOF returns the HOF at the cursor, or nil for an empty path.
func (p *SCIONPath) CurrentHOF() *opaquefield.HOF {
	if p.hofIdx < 0 {
		return nil
	}
	return p.curHOF()
}

// GetFwdIf returns the interface to forward the current packet to (§4.4).
func (p *SCIONPath) GetFwdIf() uint16 {
	if p.ofs.Len() == 0 {
		return 0
	}
	iof := p.curIOF()
	hof := p.curHOF()
	if iof.UpFlag {
		return hof.Ingress
	}
	return hof.Egress
}

// GetHofVer returns the HOF needed to verify the current HOF's MAC, or nil
// when no sibling HOF is needed (§4.5). ingress indicates whether the
// packet is arriving (true) or departing (false) at the local AS.
func (p *SCIONPath) GetHofVer(ingress bool) *opaquefield.HOF {
	iof := p.curIOF()
	hof := p.curHOF()

	if !hof.Xover || (iof.Shortcut && !iof.Peer) {
		// Normal hop, or the single cross-over hop of a non-peer
		// shortcut path: next/prev HOF, or none at a segment edge.
		return p.getHofVerNormal(iof)
	}

	if iof.Peer {
		// Peer shortcut paths carry two extra HOFs: the peering
		// interface's, and the upstream one used for verification only.
		offset, ok := peerVerOffset(ingress, iof.UpFlag)
		if !ok {
			return nil
		}
		return p.hofAtOffset(offset)
	}

	// A crossover hop on a plain (non-shortcut, non-peer) path: the
	// boundary between two segments in a core path. This needs the same
	// direction-dependent lookup as the peer case, not the plain
	// next/prev formula, because the hop being verified belongs to the
	// *other* segment at this exact position.
	offset, ok := coreXoverVerOffset(ingress, iof.UpFlag)
	if !ok {
		return nil
	}
	return p.hofAtOffset(offset)
}

func peerVerOffset(ingress, up bool) (int, bool) {
	switch {
	case ingress && up:
		return 2, true
	case ingress && !up:
		return 1, true
	case !ingress && up:
		return -1, true
	default:
		return -2, true
	}
}

func coreXoverVerOffset(ingress, up bool) (int, bool) {
	switch {
	case ingress && up:
		return 0, false
	case ingress && !up:
		return -1, true
	case !ingress && up:
		return 1, true
	default:
		return 0, false
	}
}

func (p *SCIONPath) getHofVerNormal(iof *opaquefield.IOF) *opaquefield.HOF {
	if (iof.UpFlag && p.hofIdx == p.iofIdx+int(iof.Hops)) ||
		(!iof.UpFlag && p.hofIdx == p.iofIdx+1) {
		return nil
	}
	offset := 1
	if !iof.UpFlag {
		offset = -1
	}
	return p.hofAtOffset(offset)
}

func (p *SCIONPath) hofAtOffset(offset int) *opaquefield.HOF {
	return p.hofAtAbsolute(p.hofIdx + offset)
}

// Reverse flips the direction of travel so the same path can be used for a
// response (§4.6).
func (p *SCIONPath) Reverse() {
	if p.ofs.Len() == 0 {
		return
	}

	iofLabel, err := p.ofs.LabelByIdx(p.iofIdx)
	if err != nil {
		panic(err)
	}

	var swapIOF, swapHOF string
	if p.ofs.Count(CIOF) > 0 {
		swapIOF, swapHOF = CIOF, CHOFS
	} else if p.ofs.Count(BIOF) > 0 {
		swapIOF, swapHOF = BIOF, BHOFS
	}

	if swapIOF != "" {
		p.ofs.Swap(AIOF, swapIOF)
		p.ofs.Swap(AHOFS, swapHOF)
	}

	for _, label := range iofLabels {
		p.ofs.ReverseUpFlag(label)
	}
	for _, label := range hofLabels {
		p.ofs.ReverseLabel(label)
	}

	var newIofIdx int
	switch {
	case swapIOF != "" && iofLabel == AIOF:
		newIofIdx, err = p.ofs.IdxByLabel(swapIOF)
	case swapIOF != "" && iofLabel == swapIOF:
		newIofIdx, err = p.ofs.IdxByLabel(AIOF)
	default:
		newIofIdx, err = p.ofs.IdxByLabel(iofLabel)
	}
	if err != nil {
		panic(err)
	}

	p.iofIdx = newIofIdx
	p.hofIdx = p.ofs.Len() - p.hofIdx
}

// GetAsHops returns the number of AS hops this path traverses (§4.7).
func (p *SCIONPath) GetAsHops() int {
	var total, segs int
	var peer bool

	for _, label := range iofLabels {
		res := p.ofs.ByLabel(label)
		if len(res) == 0 {
			break
		}
		iof := res[0].(*opaquefield.IOF)
		peer = peer || iof.Peer
		total += asHopsForSegment(iof)
		segs++
	}

	if !peer {
		total -= segs - 1
	}
	return total
}

func asHopsForSegment(iof *opaquefield.IOF) int {
	if !iof.Shortcut {
		return int(iof.Hops)
	}
	if !iof.Peer {
		return int(iof.Hops) - 1
	}
	return int(iof.Hops) - 2
}

// Len returns the path length in bytes.
func (p *SCIONPath) Len() int {
	return p.ofs.Len() * opaquefield.OFLen
}

// Pack serializes the path to wire bytes.
func (p *SCIONPath) Pack() []byte {
	raw := p.ofs.Pack()
	if len(raw) != p.Len() {
		panic("path: packed length does not match Len()")
	}
	return raw
}

// String renders a multi-line debug representation of the path (§6).
func (p *SCIONPath) String() string {
	var sb strings.Builder
	sb.WriteString("<SCION-Path>\n")

	segments := []struct {
		name string
		iof  string
		hofs string
	}{
		{"A", AIOF, AHOFS},
		{"B", BIOF, BHOFS},
		{"C", CIOF, CHOFS},
	}

	for _, s := range segments {
		iofs := p.ofs.ByLabel(s.iof)
		if len(iofs) == 0 {
			break
		}
		fmt.Fprintf(&sb, "  <%s-Segment>\n", s.name)
		fmt.Fprintf(&sb, "    %s\n", iofs[0].(*opaquefield.IOF))
		for _, of := range p.ofs.ByLabel(s.hofs) {
			fmt.Fprintf(&sb, "    %s\n", of.(*opaquefield.HOF))
		}
		fmt.Fprintf(&sb, "  </%s-Segment>\n", s.name)
	}

	sb.WriteString("</SCION-Path>")
	return sb.String()
}
