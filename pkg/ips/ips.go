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

// Package ips reads and writes IPS patch files.
//
// An IPS file is the string "PATCH", a sequence of records, and the
// string "EOF". Each record is a 3-byte big-endian offset, a 2-byte
// big-endian length, and that many replacement bytes. A zero length marks
// the run-length form instead: a 2-byte count followed by a single byte to
// repeat. Diff never produces the run-length form but Read accepts it, so
// patches made by other tools apply too.
package ips

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	header = "PATCH"
	footer = "EOF"

	// eofOffset is the record offset whose encoding collides with the
	// "EOF" footer. Diff starts such a record one byte early instead.
	eofOffset = 0x454F46

	// maxOffset is the largest offset a 3-byte field can address.
	maxOffset = 0xFFFFFF

	// maxRecordLen is the largest record a 2-byte length field can carry.
	maxRecordLen = 0xFFFF

	// minGap is the per-record overhead in bytes. Differing runs closer
	// together than this are cheaper to encode as one record.
	minGap = 5
)

// ErrBadPatch reports a malformed patch file.
var ErrBadPatch = errors.New("malformed IPS patch")

// ErrRange reports a record that does not fit the target image.
var ErrRange = errors.New("record out of range")

// Record is one run of replacement bytes.
type Record struct {
	Offset uint32
	Data   []byte
}

// Patch is an ordered list of records. Records produced by Diff are in
// ascending offset order and never overlap.
type Patch []Record

// Diff returns a patch turning original into patched. The two images must
// be the same length; IPS cannot describe a size change of a raw chip
// image. Nearby differing runs are coalesced when a separate record would
// cost more than encoding the unchanged gap.
func Diff(original, patched []byte) (Patch, error) {
	if len(original) != len(patched) {
		return nil, fmt.Errorf("image sizes differ: %d vs %d bytes",
			len(original), len(patched))
	}

	if len(original) > maxOffset+1 {
		return nil, fmt.Errorf("%w: image larger than %d bytes", ErrRange, maxOffset+1)
	}

	type run struct{ start, end int }

	var runs []run

	for i := range patched {
		if original[i] == patched[i] {
			continue
		}

		if n := len(runs); n > 0 && i-runs[n-1].end < minGap {
			runs[n-1].end = i + 1
			continue
		}

		runs = append(runs, run{i, i + 1})
	}

	var p Patch

	for _, r := range runs {
		for s := r.start; s < r.end; s += maxRecordLen {
			if s == eofOffset {
				// widen by one leading unchanged byte so the offset
				// field cannot read as "EOF"
				s--
			}

			e := min(s+maxRecordLen, r.end)

			p = append(p, Record{
				Offset: uint32(s),
				Data:   append([]byte(nil), patched[s:e]...),
			})
		}
	}

	return p, nil
}

// Apply replays the patch against data in place. Records must fit inside
// the image; IPS can grow a file, but chip images have a fixed size.
func (p Patch) Apply(data []byte) error {
	for _, r := range p {
		if int(r.Offset)+len(r.Data) > len(data) {
			return fmt.Errorf("%w: 0x%06X+%d exceeds image size %d",
				ErrRange, r.Offset, len(r.Data), len(data))
		}

		copy(data[r.Offset:], r.Data)
	}

	return nil
}

// Write writes the patch in IPS format.
func Write(w io.Writer, p Patch) error {
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}

	for _, r := range p {
		if len(r.Data) == 0 || len(r.Data) > maxRecordLen {
			return fmt.Errorf("%w: record at 0x%06X has %d bytes",
				ErrBadPatch, r.Offset, len(r.Data))
		}

		if r.Offset > maxOffset || r.Offset == eofOffset {
			return fmt.Errorf("%w: unencodable offset 0x%X", ErrBadPatch, r.Offset)
		}

		var hdr [5]byte
		hdr[0] = byte(r.Offset >> 16)
		hdr[1] = byte(r.Offset >> 8)
		hdr[2] = byte(r.Offset)
		binary.BigEndian.PutUint16(hdr[3:], uint16(len(r.Data)))

		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}

		if _, err := w.Write(r.Data); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, footer)

	return err
}

// Read parses an IPS patch, expanding run-length records.
func Read(r io.Reader) (Patch, error) {
	magic := make([]byte, len(header))

	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("%w: missing header: %s", ErrBadPatch, err)
	}

	if string(magic) != header {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadPatch, magic)
	}

	var p Patch

	for {
		var off [3]byte

		if _, err := io.ReadFull(r, off[:]); err != nil {
			return nil, fmt.Errorf("%w: truncated record offset: %s", ErrBadPatch, err)
		}

		if string(off[:]) == footer {
			return p, nil
		}

		offset := uint32(off[0])<<16 | uint32(off[1])<<8 | uint32(off[2])

		var size [2]byte

		if _, err := io.ReadFull(r, size[:]); err != nil {
			return nil, fmt.Errorf("%w: truncated record size: %s", ErrBadPatch, err)
		}

		n := int(binary.BigEndian.Uint16(size[:]))

		var data []byte

		if n == 0 {
			// run-length record: 2-byte count, 1 repeated byte
			var rle [3]byte

			if _, err := io.ReadFull(r, rle[:]); err != nil {
				return nil, fmt.Errorf("%w: truncated RLE record: %s", ErrBadPatch, err)
			}

			count := int(binary.BigEndian.Uint16(rle[:2]))
			if count == 0 {
				return nil, fmt.Errorf("%w: zero-length RLE record at 0x%06X",
					ErrBadPatch, offset)
			}

			data = make([]byte, count)
			for i := range data {
				data[i] = rle[2]
			}
		} else {
			data = make([]byte, n)

			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("%w: truncated record data: %s", ErrBadPatch, err)
			}
		}

		p = append(p, Record{Offset: offset, Data: data})
	}
}
