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

/*
gvpatch patches the CPU PROM images of a Gottlieb Victory pinball machine to
improve multiplayer scoring for competitive play.

gvpatch reads the original PROM1.CPU (8 KB) and PROM2.CPU (2 KB) images,
verifies them against known checksums, applies the byte edits for the selected
patch version, fixes up the checksums the firmware stores on-chip, and writes
patched images named after the applied version. It can also write IPS patch
files and Intel HEX images alongside the binaries.

Usage:

	gvpatch [-dir inputdir] [-out outputdir] [-version v] [-ips] [-hex] [-v]
*/
package gvpatch
