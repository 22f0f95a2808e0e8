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

package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/coles-net/scionpath/addr"
	"github.com/coles-net/scionpath/combinator"
	"github.com/coles-net/scionpath/log"
	"github.com/coles-net/scionpath/opaquefield"
	"github.com/coles-net/scionpath/path"
	"github.com/coles-net/scionpath/seg"
)

/*

  Examples:

  Dump a hex-encoded path's structure:

  # go run main.go -raw 8000000000000002000000000a000000000000a000000000

  Build and print a demo shortcut path between two synthetic segments,
  with no -raw argument:

  # go run main.go

*/

func main() {
	var logger log.Log = log.Stderr{}

	raw := parseCommandLineArguments()

	if raw != "" {
		dumpRawPath(raw, logger)
		return
	}

	demoShortcutPath(logger)
}

func parseCommandLineArguments() string {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	raw := flag.String("raw", "", "hex-encoded SCION path to parse and print")
	flag.Parse()

	return *raw
}

func dumpRawPath(hexPath string, logger log.Log) {
	b, err := hex.DecodeString(hexPath)
	if err != nil {
		fatal(logger, "bad hex input", err)
	}

	p, err := path.Parse(b)
	if err != nil {
		fatal(logger, "path did not parse", err)
	}

	logger.NOTICE("cmd", log.KV{"event": "path-parsed", "bytes": len(b), "as-hops": p.GetAsHops()})
	fmt.Println(p.String())
}

// demoShortcutPath builds two synthetic up/down segments sharing a
// crossover AS, combines them into a shortcut path, and prints a JSON
// summary alongside the path's debug rendering.
func demoShortcutPath(logger log.Log) {
	up := &seg.Segment{
		IOF: opaquefield.IOF{Hops: 3, Timestamp: 1000},
		Ases: []seg.ASMarking{
			{PCBM: seg.PCBMarking{ISDAS: addr.New(1, 0), HOF: opaquefield.HOF{Egress: 10}}},
			{PCBM: seg.PCBMarking{ISDAS: addr.New(1, 1), HOF: opaquefield.HOF{Ingress: 10, Egress: 11}}},
			{PCBM: seg.PCBMarking{ISDAS: addr.New(1, 2), HOF: opaquefield.HOF{Ingress: 11}}},
		},
	}
	down := &seg.Segment{
		IOF: opaquefield.IOF{Hops: 3, Timestamp: 1000},
		Ases: []seg.ASMarking{
			{PCBM: seg.PCBMarking{ISDAS: addr.New(1, 0), HOF: opaquefield.HOF{Egress: 20}}},
			{PCBM: seg.PCBMarking{ISDAS: addr.New(1, 1), HOF: opaquefield.HOF{Ingress: 20, Egress: 21}}},
			{PCBM: seg.PCBMarking{ISDAS: addr.New(1, 5), HOF: opaquefield.HOF{Ingress: 21}}},
		},
	}

	paths := combinator.BuildShortcutPaths([]*seg.Segment{up}, []*seg.Segment{down})
	logger.NOTICE("cmd", log.KV{"event": "shortcut-paths-built", "count": len(paths)})

	summary := struct {
		Count      int `json:"count"`
		Interfaces int `json:"first_path_interfaces,omitempty"`
		MTU        int `json:"first_path_mtu,omitempty"`
	}{Count: len(paths)}

	if len(paths) > 0 {
		summary.Interfaces = len(paths[0].Interfaces)
		summary.MTU = int(paths[0].MTU)
	}

	js, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		fatal(logger, "failed to marshal summary", err)
	}
	fmt.Println(string(js))

	for _, p := range paths {
		fmt.Println(p.String())
	}
}

func fatal(logger log.Log, msg string, err error) {
	logger.NOTICE("cmd", log.KV{"event": "fatal", "msg": msg, "error": err.Error()})
	fmt.Fprintln(os.Stderr, msg+":", err)
	os.Exit(1)
}
