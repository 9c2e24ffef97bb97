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

package patch

import (
	"encoding/binary"
	"fmt"

	"github.com/mys721tx/gvpatch-go/pkg/rom"
)

// Chip roles and image sizes for the Victory CPU board.
const (
	RolePROM1 = "PROM1"
	RolePROM2 = "PROM2"

	PROM1Size = 8192
	PROM2Size = 2048

	// File names of the original dumps, as shipped by Gottlieb.
	PROM1File = "PROM1.CPU"
	PROM2File = "PROM2.CPU"
)

// PROM1 stores a 16-bit sum for each chip near the end of the image. The
// firmware self-test recomputes PROM1's own sum with 0xFFFF in its slot.
const (
	p2SumOffset = 0x1FF6
	p1SumOffset = 0x1FF8
)

// Version is one release of the patch. The edit sets are deltas from the
// previous version; applying every delta up to a label is equivalent to
// patching an original image directly to that label.
type Version struct {
	Label string
	PROM1 EditSet
	PROM2 EditSet
}

// versions, oldest first. "1.0" is the unpatched original.
var versions = []Version{
	{Label: "1.0"},
	{
		Label: "1.01",
		// replace the "TEST MODE" banner with "VCTRY 1,01"; 0xB1 renders
		// on the Gottlieb display as a 1 followed by a comma
		PROM1: span(0x00E8, "TEST MODE\xff", "VCTRY \xb101\xff"),
		PROM2: join(
			// reset only the current player's checkpoint instead of all
			// four: jsr load_player_num_to_X, lda #$00, sta $ED,x, 3x nop
			span(0x02FD,
				"\xa9\x00\x85\xed\x85\xee\x85\xef\x85\xf0",
				"\x20\x91\x33\xa9\x00\x95\xed\xea\xea\xea"),
			// finishing the qualifying heat lights lamps for the current
			// player only: jsr $3008 -> jsr $2FCF
			span(0x0332, "\x08\x30", "\xcf\x2f"),
		),
	},
	{
		Label: "1.03",
		PROM1: span(0x00F0, "1", "3"),
		// reset the bonus multiplier for the current player only:
		// sta $F1 -> sta $F1,x (X still holds the player number here)
		PROM2: span(0x041C, "\x85", "\x95"),
	},
	{
		Label: "1.1",
		PROM1: span(0x00EF, "03\xff", "1\xff\xff"),
		// end-of-ball checkpoint lamps go to the current player only,
		// same redirect as the qualifying heat fix: jsr $3008 -> jsr $2FCF
		PROM2: span(0x05A1, "\x08\x30", "\xcf\x2f"),
	},
	{
		Label: "1.2",
		PROM1: span(0x00EF, "1", "2"),
		// do not carry the supercharger lamp state into the next player's
		// ball: lda #$01 -> lda #$00
		PROM2: span(0x071C, "\x01", "\x00"),
	},
}

// records holds every known (role, version) checksum. Additive sums for
// patched PROM1 images depend on the stored-checksum fixup and are only
// recorded where measured; CRC32 values come from published dumps.
var records = []rom.ChecksumRecord{
	{Role: RolePROM1, Version: "1.0", Length: PROM1Size, Sum: 0xD02F2, CRC32: 0xE724DB90},
	{Role: RolePROM1, Version: "1.01", Length: PROM1Size, Sum: 0xD03B4, CRC32: 0x3D673442},
	{Role: RolePROM1, Version: "1.2", Length: PROM1Size, CRC32: 0x0C24E956},

	{Role: RolePROM2, Version: "1.0", Length: PROM2Size, Sum: 0x32B32, CRC32: 0x6A42EAF4},
	{Role: RolePROM2, Version: "1.01", Length: PROM2Size, Sum: 0x32B4E},
	{Role: RolePROM2, Version: "1.03", Length: PROM2Size, Sum: 0x32B5E},
	{Role: RolePROM2, Version: "1.1", Length: PROM2Size, Sum: 0x32C24},
	{Role: RolePROM2, Version: "1.2", Length: PROM2Size, Sum: 0x32C23, CRC32: 0xFBCD3463},
}

// Latest returns the label of the newest version.
func Latest() string {
	return versions[len(versions)-1].Label
}

// Versions returns all version labels, oldest first, including the
// unpatched "1.0".
func Versions() []string {
	labels := make([]string, len(versions))

	for i, v := range versions {
		labels[i] = v.Label
	}

	return labels
}

// Releases returns every version with its delta edit sets, oldest first.
func Releases() []Version {
	return append([]Version(nil), versions...)
}

// Resolve returns the full edit sequences taking original PROM1 and PROM2
// images to the given version.
func Resolve(label string) (p1, p2 EditSet, err error) {
	for _, v := range versions {
		p1 = join(p1, v.PROM1)
		p2 = join(p2, v.PROM2)

		if v.Label == label {
			return p1, p2, nil
		}
	}

	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownVersion, label)
}

// Record returns the checksum record for a role at a version.
func Record(role, version string) (rom.ChecksumRecord, bool) {
	for _, rec := range records {
		if rec.Role == role && rec.Version == version {
			return rec, true
		}
	}

	return rom.ChecksumRecord{}, false
}

// Identify matches an image against the known records by length and
// additive sum. It is used for error reporting, e.g. to tell a user their
// "original" dump is in fact an already patched one.
func Identify(img *rom.Image) (rom.ChecksumRecord, bool) {
	s := rom.Sum(img.Data)

	for _, rec := range records {
		if rec.Length == len(img.Data) && rec.Sum != 0 && rec.Sum == s {
			return rec, true
		}
	}

	return rom.ChecksumRecord{}, false
}

// FixupChecksums rewrites the checksums PROM1 stores on-chip after its
// bytes have been edited: PROM2's 16-bit sum at 0x1FF6, then PROM1's own
// sum at 0x1FF8, computed with 0xFFFF in that slot the way the firmware
// self-test does.
func FixupChecksums(p1 *rom.Image, p2Sum uint16) {
	binary.BigEndian.PutUint16(p1.Data[p2SumOffset:], p2Sum)

	p1.Data[p1SumOffset] = 0xFF
	p1.Data[p1SumOffset+1] = 0xFF
	binary.BigEndian.PutUint16(p1.Data[p1SumOffset:], rom.Sum16(p1.Data))
}

// ApplyAll patches a pair of original images in place to the given
// version: PROM2 first, since PROM1 embeds PROM2's sum, then PROM1 and its
// stored checksums. The images are not verified here; on error they are in
// an undefined state and must be discarded.
func ApplyAll(p1, p2 *rom.Image, version string) error {
	p1set, p2set, err := Resolve(version)
	if err != nil {
		return err
	}

	if err := p2set.Apply(p2); err != nil {
		return err
	}

	if err := p1set.Apply(p1); err != nil {
		return err
	}

	FixupChecksums(p1, rom.Sum16(p2.Data))

	return nil
}
