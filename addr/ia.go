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

// Package addr holds the ISD-AS identifier used throughout the path engine.
package addr

import "fmt"

// IA is a two-level SCION identifier: an Isolation Domain and an
// Autonomous System within it.
type IA struct {
	ISD uint16
	AS  uint32
}

func New(isd uint16, as uint32) IA {
	return IA{ISD: isd, AS: as}
}

func (ia IA) String() string {
	return fmt.Sprintf("%d-%d", ia.ISD, ia.AS)
}

func (ia IA) IsZero() bool {
	return ia.ISD == 0 && ia.AS == 0
}
