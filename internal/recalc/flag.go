package recalc

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Version is the revision of the reason enumeration below. Bump it whenever a
// bit is added or retired.
const Version = 3

// Flag is a bitset of pending change reasons.
type Flag uint32

const (
	Transform Flag = 1 << iota
	Geometry
	Animation
	Time
	Visibility
	Shading
	Selection
	PointCache
	Parameters
	Source
	Editors

	// All is the catch-all used when the precise cause cannot be determined.
	All Flag = 1 << 31
)

// Unknown is the label returned for reason bits this build does not know.
const Unknown = "unknown"

var names = map[Flag]string{
	Transform:  "transform",
	Geometry:   "geometry",
	Animation:  "animation",
	Time:       "time",
	Visibility: "visibility",
	Shading:    "shading",
	Selection:  "selection",
	PointCache: "pointcache",
	Parameters: "parameters",
	Source:     "source",
	Editors:    "editors",
	All:        "all",
}

// Known is the union of every reason bit recognized by this build.
var Known = func() Flag {
	var f Flag
	for bit := range names {
		f |= bit
	}
	return f
}()

// Normalize maps the zero mask to All. A tag without reasons means
// "something changed, re-evaluate everything".
func Normalize(f Flag) Flag {
	if f == 0 {
		return All
	}
	return f
}

// Has reports whether any bit of other is set in f.
func (f Flag) Has(other Flag) bool { return f&other != 0 }

// Intersects reports whether a relation triggered by f must fire for the
// carried mask m. All on either side always matches.
func (f Flag) Intersects(m Flag) bool {
	if f&All != 0 || m&All != 0 {
		return f != 0 && m != 0
	}
	return f&m != 0
}

// Bits splits f into its single-bit components, lowest first.
func (f Flag) Bits() []Flag {
	out := make([]Flag, 0, bits.OnesCount32(uint32(f)))
	for f != 0 {
		bit := f & -f
		out = append(out, bit)
		f &^= bit
	}
	return out
}

// Describe returns the name of a single reason bit. Unrecognized bits, and
// values with more than one bit set, return Unknown.
func Describe(bit Flag) string {
	if name, ok := names[bit]; ok {
		return name
	}
	return Unknown
}

// String renders f as "transform|geometry". Unrecognized bits collapse into a
// single "unknown" entry.
func (f Flag) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	sawUnknown := false
	for _, bit := range f.Bits() {
		name := Describe(bit)
		if name == Unknown {
			if sawUnknown {
				continue
			}
			sawUnknown = true
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, "|")
}

// Parse converts a comma or pipe separated list of reason names into a Flag.
func Parse(s string) (Flag, error) {
	var f Flag
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' }) {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		bit, ok := byName[part]
		if !ok {
			return 0, fmt.Errorf("unknown recalc reason %q", part)
		}
		f |= bit
	}
	return f, nil
}

var byName = func() map[string]Flag {
	m := make(map[string]Flag, len(names))
	for bit, name := range names {
		m[name] = bit
	}
	return m
}()

// Names returns every known reason name in bit order.
func Names() []string {
	bitsList := make([]Flag, 0, len(names))
	for bit := range names {
		bitsList = append(bitsList, bit)
	}
	sort.Slice(bitsList, func(i, j int) bool { return bitsList[i] < bitsList[j] })
	out := make([]string, len(bitsList))
	for i, bit := range bitsList {
		out[i] = names[bit]
	}
	return out
}
