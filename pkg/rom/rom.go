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

// Package rom handles fixed-size PROM images: loading, checksum
// verification, and writing patched results.
//
// Two checksums are involved. The additive sum is the one the firmware
// itself computes over a chip, and is the primary identity of an image.
// CRC32 (IEEE) is recorded where known as a stronger confirmation.
package rom

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/marcinbor85/gohex"
)

var (
	// ErrBadLength reports an image whose size does not match its role.
	ErrBadLength = errors.New("unexpected image length")

	// ErrChecksumMismatch reports an image whose content does not match
	// the expected checksum record.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Image is a PROM image held in memory. Data is mutated in place by the
// patcher; use Copy to keep the original around for diffing.
type Image struct {
	// Role names the chip the image belongs to, e.g. "PROM1".
	Role string

	Data []byte
}

// ChecksumRecord identifies one known image: a chip role at a specific
// patch level. A zero Sum or CRC32 means the value is not recorded and is
// not checked.
type ChecksumRecord struct {
	Role    string
	Version string
	Length  int
	Sum     uint32
	CRC32   uint32
}

// Load reads a PROM image from path. The file must be exactly size bytes;
// dumps with headers or padding are rejected.
func Load(path, role string, size int) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s image: %w", role, err)
	}

	if len(data) != size {
		return nil, fmt.Errorf("%w: %s is %d bytes, expected %d",
			ErrBadLength, path, len(data), size)
	}

	return &Image{Role: role, Data: data}, nil
}

// Copy returns a deep copy of the image.
func (img *Image) Copy() *Image {
	return &Image{
		Role: img.Role,
		Data: append([]byte(nil), img.Data...),
	}
}

// Sum is the additive checksum used by the firmware: the plain sum of all
// bytes in the image.
func Sum(data []byte) uint32 {
	var s uint32
	for _, b := range data {
		s += uint32(b)
	}
	return s
}

// Sum16 is the low 16 bits of Sum, the value the firmware stores on-chip.
func Sum16(data []byte) uint16 {
	return uint16(Sum(data))
}

// CRC32 is the IEEE CRC32 of the image, as reported by common ROM tools.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Verify checks an image against a checksum record. It returns a
// descriptive error on the first mismatch and has no side effects. An
// image of the wrong length fails the length check before any checksum is
// computed.
func Verify(img *Image, rec ChecksumRecord) error {
	if len(img.Data) != rec.Length {
		return fmt.Errorf("%w: %s is %d bytes, expected %d",
			ErrBadLength, img.Role, len(img.Data), rec.Length)
	}

	if s := Sum(img.Data); rec.Sum != 0 && s != rec.Sum {
		return fmt.Errorf("%w: %s sum 0x%X, expected 0x%X",
			ErrChecksumMismatch, img.Role, s, rec.Sum)
	}

	if c := CRC32(img.Data); rec.CRC32 != 0 && c != rec.CRC32 {
		return fmt.Errorf("%w: %s crc32 %08x, expected %08x",
			ErrChecksumMismatch, img.Role, c, rec.CRC32)
	}

	return nil
}

// WriteFile writes the image to path atomically: the data goes to a
// temporary file in the same directory, which is renamed over path only
// after a successful write. A failed write leaves no partial output.
func (img *Image) WriteFile(path string) error {
	dir, base := filepath.Split(path)

	tmp, err := os.CreateTemp(dir, base+".*")
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}

	if _, err := tmp.Write(img.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("unable to write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("unable to close %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("unable to rename %s: %w", path, err)
	}

	return nil
}

// WriteHex writes the image as Intel HEX for chip programmers that do not
// accept raw binaries. base is the address of the first byte; chip images
// are usually written with base 0.
func (img *Image) WriteHex(w io.Writer, base uint32) error {
	mem := gohex.NewMemory()

	if err := mem.AddBinary(base, img.Data); err != nil {
		return fmt.Errorf("unable to build %s hex image: %w", img.Role, err)
	}

	if err := mem.DumpIntelHex(w, 16); err != nil {
		return fmt.Errorf("unable to write %s hex image: %w", img.Role, err)
	}

	return nil
}
