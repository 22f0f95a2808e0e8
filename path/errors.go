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

package path

import "errors"

// ErrInvalidPath is returned by Parse when the raw bytes are malformed: a
// length that is not a multiple of the opaque-field size, an IOF with peer
// set but shortcut clear, a declared hop count that overruns the buffer, or
// a third segment following a shortcut-flagged first segment.
var ErrInvalidPath = errors.New("path: invalid path")
