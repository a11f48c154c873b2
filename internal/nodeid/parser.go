// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// nameRegex matches the element and component segments.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// opRegex matches the op segment, e.g. `local` or `array[2]`.
var opRegex = regexp.MustCompile(`^([a-zA-Z0-9_.:-]+)(?:\[(\d+)\])?$`)

// isValidName checks for undesirable but technically valid names.
func isValidName(name string) bool {
	if name == "." || name == ".." || name == "-" {
		return false
	}
	return true
}

// Parse creates a Key by parsing its canonical string representation.
func Parse(raw string) (Key, error) {
	if raw == "" {
		return Key{}, fmt.Errorf("identifier cannot be empty")
	}

	parts := strings.Split(raw, "/")
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("identifier %q must have the form element/component/op", raw)
	}
	for i, part := range parts[:2] {
		if part == "" {
			return Key{}, fmt.Errorf("identifier %q contains empty segment %d", raw, i)
		}
		if !nameRegex.MatchString(part) || !isValidName(part) {
			return Key{}, fmt.Errorf("invalid segment name: %q", part)
		}
	}

	matches := opRegex.FindStringSubmatch(parts[2])
	if matches == nil {
		return Key{}, fmt.Errorf("invalid op segment format: %q", parts[2])
	}
	if !isValidName(matches[1]) {
		return Key{}, fmt.Errorf("invalid segment name: %q", matches[1])
	}

	key := New(parts[0], parts[1], matches[1])
	if matches[2] != "" {
		index, err := strconv.Atoi(matches[2])
		if err != nil {
			return Key{}, fmt.Errorf("internal error parsing index: %w", err)
		}
		key.Index = index
	}
	return key, nil
}

// MustParse is Parse for keys known at compile time. It panics on error.
func MustParse(raw string) Key {
	k, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return k
}
