/*
 * rv32emu - Configuration file parser test set.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package configparser

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	name := filepath.Join(dir, "test.cfg")
	if err := os.WriteFile(name, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return name
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Harts != 1 {
		t.Errorf("got Harts=%d want 1", cfg.Harts)
	}
	if cfg.RAMSize != 128<<20 {
		t.Errorf("got RAMSize=%d want %d", cfg.RAMSize, 128<<20)
	}
}

func TestLoadConfigFileBasicKeys(t *testing.T) {
	name := writeTempConfig(t, `# comment line
harts 4
ram 256M
kernel vmlinux
initrd rootfs.cpio
dtb platform.dtb
disk disk.img
monitor-addr 127.0.0.1:4444
log trace.log
`)
	cfg, err := LoadConfigFile(name, Default())
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Harts != 4 {
		t.Errorf("got Harts=%d want 4", cfg.Harts)
	}
	if cfg.RAMSize != 256<<20 {
		t.Errorf("got RAMSize=%d want %d", cfg.RAMSize, 256<<20)
	}
	if cfg.Kernel != "vmlinux" {
		t.Errorf("got Kernel=%q want vmlinux", cfg.Kernel)
	}
	if cfg.Initrd != "rootfs.cpio" {
		t.Errorf("got Initrd=%q want rootfs.cpio", cfg.Initrd)
	}
	if cfg.DTB != "platform.dtb" {
		t.Errorf("got DTB=%q want platform.dtb", cfg.DTB)
	}
	if cfg.Disk != "disk.img" {
		t.Errorf("got Disk=%q want disk.img", cfg.Disk)
	}
	if cfg.MonitorAddr != "127.0.0.1:4444" {
		t.Errorf("got MonitorAddr=%q want 127.0.0.1:4444", cfg.MonitorAddr)
	}
	if cfg.Log != "trace.log" {
		t.Errorf("got Log=%q want trace.log", cfg.Log)
	}
}

func TestLoadConfigFileQuotedPath(t *testing.T) {
	name := writeTempConfig(t, `kernel "/opt/images/my kernel.bin"
`)
	cfg, err := LoadConfigFile(name, Default())
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Kernel != "/opt/images/my kernel.bin" {
		t.Errorf("got Kernel=%q want /opt/images/my kernel.bin", cfg.Kernel)
	}
}

func TestLoadConfigFileRAMSuffixes(t *testing.T) {
	for _, tc := range []struct {
		value string
		want  uint32
	}{
		{"1024", 1024},
		{"64K", 64 << 10},
		{"2M", 2 << 20},
		{"4m", 4 << 20},
	} {
		name := writeTempConfig(t, "ram "+tc.value+"\n")
		cfg, err := LoadConfigFile(name, Default())
		if err != nil {
			t.Fatalf("LoadConfigFile(%s): %v", tc.value, err)
		}
		if cfg.RAMSize != tc.want {
			t.Errorf("ram %s: got %d want %d", tc.value, cfg.RAMSize, tc.want)
		}
	}
}

func TestLoadConfigFileUnknownKeyFails(t *testing.T) {
	name := writeTempConfig(t, "bogus value\n")
	if _, err := LoadConfigFile(name, Default()); err == nil {
		t.Fatal("expected an error for an unknown config key")
	}
}

func TestLoadConfigFileInvalidHartsFails(t *testing.T) {
	name := writeTempConfig(t, "harts zero\n")
	if _, err := LoadConfigFile(name, Default()); err == nil {
		t.Fatal("expected an error for a non-numeric harts value")
	}
}

func TestLoadConfigFileBlankAndCommentLinesIgnored(t *testing.T) {
	name := writeTempConfig(t, "\n   \n# just a comment\nharts 2\n")
	cfg, err := LoadConfigFile(name, Default())
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Harts != 2 {
		t.Errorf("got Harts=%d want 2", cfg.Harts)
	}
}

func TestLoadConfigFileMissingFile(t *testing.T) {
	if _, err := LoadConfigFile("/no/such/path.cfg", Default()); err == nil {
		t.Fatal("expected an error opening a missing config file")
	}
}
