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
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/mys721tx/gvpatch-go/pkg/ips"
	"github.com/mys721tx/gvpatch-go/pkg/rom"
)

// Options configures a patch run.
type Options struct {
	// InputDir holds the original PROM1.CPU and PROM2.CPU dumps.
	InputDir string

	// OutputDir receives the patched images. Defaults to InputDir.
	OutputDir string

	// Version selects the edit tables. Defaults to the latest version.
	Version string

	// EmitIPS also writes an IPS patch file per image.
	EmitIPS bool

	// EmitHex also writes an Intel HEX image per chip.
	EmitHex bool
}

// Run executes the whole pipeline: load and verify the original dumps,
// patch both chips, verify the results where checksums are known, and
// write the outputs. No output file is left behind on failure.
func Run(opt Options) error {
	if opt.Version == "" {
		opt.Version = Latest()
	}

	if _, _, err := Resolve(opt.Version); err != nil {
		return err
	}

	if opt.OutputDir == "" {
		opt.OutputDir = opt.InputDir
	}

	p1, err := loadOriginal(opt.InputDir, PROM1File, RolePROM1, PROM1Size)
	if err != nil {
		return err
	}

	p2, err := loadOriginal(opt.InputDir, PROM2File, RolePROM2, PROM2Size)
	if err != nil {
		return err
	}

	out1, out2 := p1.Copy(), p2.Copy()

	if err := ApplyAll(out1, out2, opt.Version); err != nil {
		return err
	}

	checkResult(out1, opt.Version)
	checkResult(out2, opt.Version)

	var written []string

	fail := func(err error) error {
		for _, path := range written {
			os.Remove(path)
		}
		return err
	}

	for _, img := range []*rom.Image{out1, out2} {
		path := filepath.Join(opt.OutputDir,
			fmt.Sprintf("victory-v%s-%s.bin", opt.Version, img.Role))

		if err := img.WriteFile(path); err != nil {
			return fail(err)
		}

		written = append(written, path)
		log.Infof("wrote %s", path)
	}

	if opt.EmitIPS {
		for _, pair := range []struct{ orig, out *rom.Image }{{p1, out1}, {p2, out2}} {
			path := filepath.Join(opt.OutputDir,
				fmt.Sprintf("victory-v%s-%s.ips", opt.Version, pair.out.Role))

			if err := writeIPS(path, pair.orig, pair.out); err != nil {
				return fail(err)
			}

			written = append(written, path)
			log.Infof("wrote %s", path)
		}
	}

	if opt.EmitHex {
		for _, img := range []*rom.Image{out1, out2} {
			path := filepath.Join(opt.OutputDir,
				fmt.Sprintf("victory-v%s-%s.hex", opt.Version, img.Role))

			if err := writeHex(path, img); err != nil {
				return fail(err)
			}

			written = append(written, path)
			log.Infof("wrote %s", path)
		}
	}

	return nil
}

// loadOriginal loads one dump and verifies it against the unpatched
// record. If verification fails but the image matches another known
// record, the error says which version the dump already is.
func loadOriginal(dir, file, role string, size int) (*rom.Image, error) {
	img, err := rom.Load(filepath.Join(dir, file), role, size)
	if err != nil {
		return nil, err
	}

	rec, ok := Record(role, "1.0")
	if !ok {
		return nil, fmt.Errorf("no original checksum record for %s", role)
	}

	if err := rom.Verify(img, rec); err != nil {
		if found, ok := Identify(img); ok && found.Version != "1.0" {
			return nil, fmt.Errorf("%s matches patch v%s, not an original dump: %w",
				file, found.Version, err)
		}
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	log.Debugf("%s verified: sum 0x%X, crc32 %08x",
		file, rom.Sum(img.Data), rom.CRC32(img.Data))

	return img, nil
}

// checkResult compares a patched image against its record, where one
// exists. A mismatch here means the compiled-in tables are wrong, which is
// worth a warning but not an abort.
func checkResult(img *rom.Image, version string) {
	rec, ok := Record(img.Role, version)
	if !ok {
		log.Debugf("no checksum record for %s v%s", img.Role, version)
		return
	}

	if err := rom.Verify(img, rec); err != nil {
		log.Warnf("patched %s: %s", img.Role, err)
		return
	}

	log.Infof("patched %s checksum is expected 0x%X", img.Role, rom.Sum(img.Data))
}

func writeIPS(path string, orig, patched *rom.Image) error {
	p, err := ips.Diff(orig.Data, patched.Data)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}

	if err := ips.Write(f, p); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("unable to write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("unable to close %s: %w", path, err)
	}

	return nil
}

func writeHex(path string, img *rom.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}

	if err := img.WriteHex(f, 0); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("unable to close %s: %w", path, err)
	}

	return nil
}
