/*
 * rv32emu - Configuration file parser
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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

/* Configuration file format:
 *
 * '#' indicates comment, rest of line is ignored.
 * <line> := <key> <whitespace> <value> |
 *            <key> <whitespace> <quotedvalue>
 * <key>   ::= 'harts' | 'ram' | 'kernel' | 'initrd' | 'dtb' | 'disk' |
 *             'monitor-addr' | 'log'
 * <value> ::= <string> | '"' *(<letter> | <whitespace>) '"'
 */

// Config is the platform configuration assembled from a config file and
// overridden by matching CLI flags.
type Config struct {
	Harts       int
	RAMSize     uint32
	Kernel      string
	Initrd      string
	DTB         string
	Disk        string
	MonitorAddr string
	Log         string
}

// Default returns the built-in configuration used when neither a config
// file nor a CLI flag sets a field.
func Default() Config {
	return Config{
		Harts:   1,
		RAMSize: 128 << 20,
	}
}

// Current line being parsed.
type optionLine struct {
	line string
	pos  int
}

var lineNumber int

// LoadConfigFile reads name and merges its keys onto cfg, returning the
// updated value. Keys not present in the file leave cfg's field alone.
func LoadConfigFile(name string, cfg Config) (Config, error) {
	file, err := os.Open(name)
	if err != nil {
		return cfg, err
	}
	defer file.Close()

	lineNumber = 0
	reader := bufio.NewReader(file)
	for {
		var err error

		line := optionLine{}
		line.line, err = reader.ReadString('\n')
		lineNumber++
		if len(line.line) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return cfg, err
		}
		if err := line.parseLine(&cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Parse one line from file.
func (line *optionLine) parseLine(cfg *Config) error {
	key, err := line.parseKey()
	if err != nil {
		return err
	}
	if key == "" {
		return nil
	}

	line.skipSpace()
	value, ok := line.parseQuoteString()
	if !ok {
		return fmt.Errorf("invalid quoted value for %s, line %d", key, lineNumber)
	}

	return cfg.set(key, value)
}

// set applies one key/value pair onto cfg.
func (cfg *Config) set(key, value string) error {
	switch strings.ToLower(key) {
	case "harts":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid harts value %q, line %d", value, lineNumber)
		}
		cfg.Harts = n
	case "ram":
		size, err := parseSize(value)
		if err != nil {
			return fmt.Errorf("invalid ram value %q, line %d: %w", value, lineNumber, err)
		}
		cfg.RAMSize = size
	case "kernel":
		cfg.Kernel = value
	case "initrd":
		cfg.Initrd = value
	case "dtb":
		cfg.DTB = value
	case "disk":
		cfg.Disk = value
	case "monitor-addr":
		cfg.MonitorAddr = value
	case "log":
		cfg.Log = value
	default:
		return fmt.Errorf("unknown config key %q, line %d", key, lineNumber)
	}
	return nil
}

// parseSize accepts a plain decimal byte count, or one suffixed with K/k
// (KiB) or M/m (MiB).
func parseSize(value string) (uint32, error) {
	mult := uint64(1)
	switch {
	case strings.HasSuffix(value, "K") || strings.HasSuffix(value, "k"):
		mult = 1 << 10
		value = value[:len(value)-1]
	case strings.HasSuffix(value, "M") || strings.HasSuffix(value, "m"):
		mult = 1 << 20
		value = value[:len(value)-1]
	}
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n * mult), nil
}

// Skip forward over line until a non-whitespace character is found.
func (line *optionLine) skipSpace() {
	for {
		if line.pos >= len(line.line) {
			return
		}
		if unicode.IsSpace(rune(line.line[line.pos])) {
			line.pos++
			continue
		}
		return
	}
}

// Check if at end of line or a comment.
func (line *optionLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}
	return line.line[line.pos] == '#'
}

// parseKey reads the key at the start of a line: letters, digits and '-'.
func (line *optionLine) parseKey() (string, error) {
	line.skipSpace()
	if line.isEOL() {
		return "", nil
	}

	by := line.line[line.pos]
	if !unicode.IsLetter(rune(by)) {
		return "", fmt.Errorf("invalid config key, line %d", lineNumber)
	}

	key := ""
	for {
		if line.isEOL() {
			break
		}
		by := line.line[line.pos]
		if unicode.IsLetter(rune(by)) || unicode.IsNumber(rune(by)) || by == '-' {
			key += string([]byte{by})
			line.pos++
			continue
		}
		break
	}
	return key, nil
}

// parseQuoteString reads either a bare token (terminated by space or EOL)
// or a "double-quoted string" that may contain spaces. pos must already
// sit on the value's first character.
func (line *optionLine) parseQuoteString() (string, bool) {
	if line.isEOL() {
		return "", true
	}

	value := ""
	if line.line[line.pos] == '"' {
		line.pos++
		for {
			if line.pos >= len(line.line) {
				return value, false // unterminated quote
			}
			by := line.line[line.pos]
			line.pos++
			if by == '"' {
				return value, true
			}
			value += string(by)
		}
	}

	for {
		if line.isEOL() || unicode.IsSpace(rune(line.line[line.pos])) {
			return value, true
		}
		value += string(line.line[line.pos])
		line.pos++
	}
}
