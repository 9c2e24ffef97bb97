// gvpatch-go: Gottlieb Victory tournament scoring patch
// Copyright (C) 2025  Yishen Miao
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/mys721tx/gvpatch-go/pkg/patch"
)

var (
	dir     = flag.String("dir", ".", "directory containing PROM1.CPU and PROM2.CPU")
	out     = flag.String("out", "", "output directory (defaults to -dir)")
	version = flag.String("version", patch.Latest(), "patch version to apply")
	emitIPS = flag.Bool("ips", false, "also write IPS patch files")
	emitHex = flag.Bool("hex", false, "also write Intel HEX images")
	verbose = flag.Bool("v", false, "enable debug logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [options]\n\nPatches Gottlieb Victory PROM images for tournament scoring.\nKnown versions: %s\n\n",
			os.Args[0], strings.Join(patch.Versions(), ", "))
		flag.PrintDefaults()
	}

	flag.Parse()

	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	err := patch.Run(patch.Options{
		InputDir:  *dir,
		OutputDir: *out,
		Version:   *version,
		EmitIPS:   *emitIPS,
		EmitHex:   *emitHex,
	})
	if err != nil {
		log.Fatalf("%s", err)
	}
}
