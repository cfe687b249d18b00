package cdc

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// CommandTable maps command codes (frame byte 2) to descriptions.
// It is never modified by the decoder.
type CommandTable map[uint8]string

// Lookup returns the description for code, if any.
func (t CommandTable) Lookup(code uint8) (string, bool) {
	desc, ok := t[code]
	return desc, ok
}

// DefaultCommands returns the built-in radio to changer command set.
func DefaultCommands() CommandTable {
	return CommandTable{
		0x08: "Stop",
		0x0C: "CD 1",
		0x8C: "CD 2",
		0x4C: "CD 3",
		0xCC: "CD 4",
		0x2C: "CD 5",
		0xAC: "CD 6",
		0x10: "Load CD",
		0x20: "Play",
		0x38: "Next track",
		0x58: "Seek back",
		0x78: "Previous track",
		0xA0: "Scan",
		0xD8: "Seek forward",
		0xE0: "Mix",
	}
}

// LoadCommands parses a YAML mapping of codes to descriptions. Keys may be
// written in hex (0x12) or decimal (18); two keys naming the same code are an
// error.
func LoadCommands(r io.Reader) (CommandTable, error) {
	var raw map[string]string
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return CommandTable{}, nil
		}
		return nil, fmt.Errorf("parse command table: %w", err)
	}
	table := make(CommandTable, len(raw))
	keys := make(map[uint8]string, len(raw))
	for key, desc := range raw {
		code, err := parseCode(key)
		if err != nil {
			return nil, fmt.Errorf("command code %q: %w", key, err)
		}
		if prev, ok := keys[code]; ok {
			return nil, fmt.Errorf("command code %q duplicates %q (0x%02X)", key, prev, code)
		}
		keys[code] = key
		table[code] = desc
	}
	return table, nil
}

// parseCode reads a byte written as 0x-prefixed hex or plain decimal.
// Leading zeros are decimal, never octal.
func parseCode(key string) (uint8, error) {
	base, digits := 10, key
	if len(key) > 2 && (key[:2] == "0x" || key[:2] == "0X") {
		base, digits = 16, key[2:]
	}
	v, err := strconv.ParseUint(digits, base, 8)
	return uint8(v), err
}

// LoadCommandsFile reads a command table from a YAML file.
func LoadCommandsFile(path string) (CommandTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open command table: %w", err)
	}
	defer f.Close()
	return LoadCommands(f)
}
