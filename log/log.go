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

// Package log defines the structured logging seam used across this
// module: callers attach free-form key/value context to a named event
// rather than formatting a message string.
package log

import (
	"fmt"
	stdlog "log"
	"sort"
)

// KV is a bag of structured fields attached to a log event.
type KV = map[string]any

// Log is the narrow logging interface the rest of this module depends on.
// NOTICE carries routine lifecycle events (a path parsed, a shortcut built);
// NOTICE is the only level the engine itself ever emits — it never fails an
// operation on a logging problem, so there is no ERR/ALERT tier to wire up.
type Log interface {
	NOTICE(component string, fields KV)
}

// Nil discards everything. It is the default when a caller doesn't care
// about logging.
type Nil struct{}

func (Nil) NOTICE(string, KV) {}

// Stderr writes NOTICE events to the standard library logger, one line per
// event with fields rendered in sorted-key order for stable output.
type Stderr struct{}

func (Stderr) NOTICE(component string, fields KV) {
	stdlog.Print(format(component, fields))
}

func format(component string, fields KV) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := component
	for _, k := range keys {
		out += fmt.Sprintf(" %s=%v", k, fields[k])
	}
	return out
}
