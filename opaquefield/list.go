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

package opaquefield

import "errors"

// ErrIndexOutOfRange is returned by ByIdx when the index is >= Len().
var ErrIndexOutOfRange = errors.New("opaquefield: index out of range")

// ErrEmptyLabel is returned by IdxByLabel when the named group is empty.
var ErrEmptyLabel = errors.New("opaquefield: label is empty")

// Range is the half-open [start, end) slice of the flat field vector that
// a label currently occupies.
type Range struct {
	Start, End int
}

func (r Range) len() int { return r.End - r.Start }

// List is an ordered set of labeled groups of opaque fields. Labels are
// fixed at construction; each label's group may hold zero or more fields.
// Global indexing walks labels in declaration order and fields within a
// label in insertion order.
//
// Internally this is one flat slice plus a table of label ranges (per the
// design note in spec.md §9) rather than N separate per-label slices, so
// ByIdx/LabelByIdx are O(1) and only the tail of the flat slice needs to
// shift when an earlier label's group changes size.
type List struct {
	labels []string
	ranges map[string]Range
	fields []OpaqueField
}

// NewList creates an empty list with the given label order. The label order
// is fixed for the lifetime of the list.
func NewList(labels ...string) *List {
	ranges := make(map[string]Range, len(labels))
	for _, l := range labels {
		ranges[l] = Range{}
	}
	return &List{labels: labels, ranges: ranges}
}

// Set replaces the group at label with seq, shifting every later label's
// range by the resulting size delta.
func (l *List) Set(label string, seq []OpaqueField) {
	old := l.ranges[label]
	delta := len(seq) - old.len()

	rebuilt := make([]OpaqueField, 0, len(l.fields)+delta)
	rebuilt = append(rebuilt, l.fields[:old.Start]...)
	rebuilt = append(rebuilt, seq...)
	rebuilt = append(rebuilt, l.fields[old.End:]...)
	l.fields = rebuilt

	l.ranges[label] = Range{Start: old.Start, End: old.Start + len(seq)}
	if delta != 0 {
		later := false
		for _, other := range l.labels {
			if other == label {
				later = true
				continue
			}
			if !later {
				continue
			}
			r := l.ranges[other]
			r.Start += delta
			r.End += delta
			l.ranges[other] = r
		}
	}
}

// ByLabel returns the current group stored at label.
func (l *List) ByLabel(label string) []OpaqueField {
	r := l.ranges[label]
	return l.fields[r.Start:r.End]
}

// Count returns the number of fields in label's group.
func (l *List) Count(label string) int {
	return l.ranges[label].len()
}

// ByIdx returns the i-th field in global order.
func (l *List) ByIdx(i int) (OpaqueField, error) {
	if i < 0 || i >= len(l.fields) {
		return nil, ErrIndexOutOfRange
	}
	return l.fields[i], nil
}

// LabelByIdx returns the label of the group containing global index i.
func (l *List) LabelByIdx(i int) (string, error) {
	if i < 0 || i >= len(l.fields) {
		return "", ErrIndexOutOfRange
	}
	for _, label := range l.labels {
		r := l.ranges[label]
		if i >= r.Start && i < r.End {
			return label, nil
		}
	}
	return "", ErrIndexOutOfRange
}

// IdxByLabel returns the global index of the first field of label's group.
func (l *List) IdxByLabel(label string) (int, error) {
	r := l.ranges[label]
	if r.len() == 0 {
		return 0, ErrEmptyLabel
	}
	return r.Start, nil
}

// Swap exchanges the groups stored at a and b.
func (l *List) Swap(a, b string) {
	seqA := append([]OpaqueField{}, l.ByLabel(a)...)
	seqB := append([]OpaqueField{}, l.ByLabel(b)...)
	l.Set(a, seqB)
	l.Set(b, seqA)
}

// ReverseLabel reverses label's group in place.
func (l *List) ReverseLabel(label string) {
	r := l.ranges[label]
	seq := l.fields[r.Start:r.End]
	for i, j := 0, len(seq)-1; i < j; i, j = i+1, j-1 {
		seq[i], seq[j] = seq[j], seq[i]
	}
}

// ReverseUpFlag flips the UpFlag of label's IOF, if it holds exactly one.
// An empty group is left untouched.
func (l *List) ReverseUpFlag(label string) {
	seq := l.ByLabel(label)
	if len(seq) != 1 {
		return
	}
	if iof, ok := seq[0].(*IOF); ok {
		iof.UpFlag = !iof.UpFlag
	}
}

// Pack concatenates all fields in global order to wire bytes.
func (l *List) Pack() []byte {
	out := make([]byte, 0, len(l.fields)*OFLen)
	for _, f := range l.fields {
		b := f.Encode()
		out = append(out, b[:]...)
	}
	return out
}

// Len returns the total number of fields across all labels.
func (l *List) Len() int {
	return len(l.fields)
}
