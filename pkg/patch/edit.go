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

// Package patch holds the Victory edit tables and applies them to
// verified PROM images.
package patch

import (
	"errors"
	"fmt"

	"github.com/mys721tx/gvpatch-go/pkg/rom"
)

var (
	// ErrUnexpectedByte reports a pre-image byte that does not match the
	// edit table, meaning the image is the wrong version or the wrong chip.
	ErrUnexpectedByte = errors.New("unexpected byte")

	// ErrUnknownVersion reports a version label with no edit table.
	ErrUnknownVersion = errors.New("unknown version")
)

// Edit replaces a single byte. Old is the byte expected at Offset before
// the edit; an image that does not hold Old there must not be patched.
type Edit struct {
	Offset int
	Old    byte
	New    byte
}

// EditSet is an ordered list of edits for one chip.
type EditSet []Edit

// Apply applies the edits in order, checking each pre-image byte before
// overwriting it. On a mismatch the image is left partially edited and the
// error names the chip, the offset, and the expected and actual values;
// callers apply edits to a copy and discard it on failure.
//
// Applying a set to its own output fails the pre-image check. That is
// deliberate: it stops a patched image from being patched again.
func (s EditSet) Apply(img *rom.Image) error {
	for _, e := range s {
		if e.Offset < 0 || e.Offset >= len(img.Data) {
			return fmt.Errorf("edit offset 0x%04X out of range for %s (%d bytes)",
				e.Offset, img.Role, len(img.Data))
		}

		if got := img.Data[e.Offset]; got != e.Old {
			return fmt.Errorf("%w: %s offset 0x%04X is 0x%02X, expected 0x%02X",
				ErrUnexpectedByte, img.Role, e.Offset, got, e.Old)
		}

		img.Data[e.Offset] = e.New
	}

	return nil
}

// span expands an old/new byte string pair at offset into per-byte edits,
// skipping positions where the two agree.
func span(offset int, old, new string) EditSet {
	if len(old) != len(new) {
		panic(fmt.Sprintf("span at 0x%04X: %d old bytes vs %d new", offset, len(old), len(new)))
	}

	var s EditSet

	for i := 0; i < len(old); i++ {
		if old[i] == new[i] {
			continue
		}
		s = append(s, Edit{Offset: offset + i, Old: old[i], New: new[i]})
	}

	return s
}

// join concatenates edit sets in order.
func join(sets ...EditSet) EditSet {
	var s EditSet

	for _, set := range sets {
		s = append(s, set...)
	}

	return s
}
