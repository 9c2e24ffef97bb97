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

package rom_test

import (
	"bytes"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mys721tx/gvpatch-go/pkg/rom"
)

func TestSum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint32
	}{
		{
			name:     "empty",
			data:     nil,
			expected: 0,
		},
		{
			name:     "single byte",
			data:     []byte{0xFF},
			expected: 0xFF,
		},
		{
			name:     "carries past one byte",
			data:     []byte{0xFF, 0xFF, 0x02},
			expected: 0x200,
		},
		{
			name:     "all 0xFF 2KB",
			data:     bytes.Repeat([]byte{0xFF}, 2048),
			expected: 0xFF * 2048,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rom.Sum(tt.data))
		})
	}
}

func TestSum16(t *testing.T) {
	// Sum16 is the low word of Sum, matching what the firmware stores
	data := bytes.Repeat([]byte{0xFF}, 2048)

	assert.Equal(t, uint16(rom.Sum(data)), rom.Sum16(data))
	assert.Equal(t, uint16(0xF800), rom.Sum16(data))
}

func TestVerify(t *testing.T) {
	data := bytes.Repeat([]byte{0xA5}, 2048)

	good := rom.ChecksumRecord{
		Role:    "PROM2",
		Version: "1.0",
		Length:  len(data),
		Sum:     rom.Sum(data),
		CRC32:   crc32.ChecksumIEEE(data),
	}

	tests := []struct {
		name    string
		data    []byte
		rec     rom.ChecksumRecord
		wantErr error
	}{
		{
			name: "matching image",
			data: data,
			rec:  good,
		},
		{
			name:    "wrong length",
			data:    data[:1024],
			rec:     good,
			wantErr: rom.ErrBadLength,
		},
		{
			name:    "wrong sum",
			data:    bytes.Repeat([]byte{0xA6}, 2048),
			rec:     good,
			wantErr: rom.ErrChecksumMismatch,
		},
		{
			name: "wrong crc with matching sum",
			// nudge two bytes in opposite directions: same sum,
			// different content
			data:    append([]byte{0xA4, 0xA6}, data[2:]...),
			rec:     good,
			wantErr: rom.ErrChecksumMismatch,
		},
		{
			name: "unrecorded sum is not checked",
			data: bytes.Repeat([]byte{0xA5}, 2048),
			rec: rom.ChecksumRecord{
				Role:   "PROM2",
				Length: 2048,
				CRC32:  crc32.ChecksumIEEE(data),
			},
		},
		{
			name: "unrecorded crc is not checked",
			data: bytes.Repeat([]byte{0xA5}, 2048),
			rec: rom.ChecksumRecord{
				Role:   "PROM2",
				Length: 2048,
				Sum:    rom.Sum(data),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := &rom.Image{Role: tt.rec.Role, Data: tt.data}
			err := rom.Verify(img, tt.rec)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifyWrongLengthNeverPanics(t *testing.T) {
	// a half-size dump must fail cleanly against every record shape
	img := &rom.Image{Role: "PROM1", Data: make([]byte, 4096)}

	recs := []rom.ChecksumRecord{
		{Role: "PROM1", Length: 8192, Sum: 0xD02F2, CRC32: 0xE724DB90},
		{Role: "PROM2", Length: 2048, Sum: 0x32B32},
		{Role: "PROM1", Length: 8192},
	}

	for _, rec := range recs {
		assert.NotPanics(t, func() {
			assert.ErrorIs(t, rom.Verify(img, rec), rom.ErrBadLength)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, size int) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x42}, size), 0644))
		return path
	}

	t.Run("exact size", func(t *testing.T) {
		img, err := rom.Load(write("exact.bin", 2048), "PROM2", 2048)

		require.NoError(t, err)
		assert.Equal(t, "PROM2", img.Role)
		assert.Len(t, img.Data, 2048)
	})

	t.Run("short file", func(t *testing.T) {
		_, err := rom.Load(write("short.bin", 2047), "PROM2", 2048)

		assert.ErrorIs(t, err, rom.ErrBadLength)
	})

	t.Run("padded file", func(t *testing.T) {
		_, err := rom.Load(write("padded.bin", 4096), "PROM2", 2048)

		assert.ErrorIs(t, err, rom.ErrBadLength)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := rom.Load(filepath.Join(dir, "nope.bin"), "PROM2", 2048)

		assert.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "PROM2")
	})
}

func TestCopy(t *testing.T) {
	img := &rom.Image{Role: "PROM1", Data: []byte{1, 2, 3}}
	dup := img.Copy()

	dup.Data[0] = 9

	assert.Equal(t, byte(1), img.Data[0])
	assert.Equal(t, img.Role, dup.Role)
}

func TestWriteFile(t *testing.T) {
	img := &rom.Image{Role: "PROM2", Data: bytes.Repeat([]byte{0x5A}, 2048)}

	t.Run("writes content", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.bin")

		require.NoError(t, img.WriteFile(path))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, img.Data, got)
	})

	t.Run("leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()

		require.NoError(t, img.WriteFile(filepath.Join(dir, "out.bin")))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "out.bin", entries[0].Name())
	})

	t.Run("missing directory", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "missing", "out.bin")

		assert.Error(t, img.WriteFile(path))

		_, err := os.Stat(path)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestWriteHex(t *testing.T) {
	img := &rom.Image{Role: "PROM2", Data: bytes.Repeat([]byte{0x11}, 32)}

	var buf bytes.Buffer
	require.NoError(t, img.WriteHex(&buf, 0))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	for _, line := range lines {
		assert.True(t, strings.HasPrefix(strings.TrimSpace(line), ":"), "line %q", line)
	}

	// data records for 32 bytes at 16 per line, then the EOF record
	assert.Equal(t, ":00000001FF", strings.TrimSpace(lines[len(lines)-1]))
}
