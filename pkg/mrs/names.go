package mrs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// reservedNames are path segments (compared case-insensitively, extension
// stripped) that can never appear in an archive. The superscript COM and LPT
// variants are blocked alongside the plain digits.
var reservedNames = map[string]struct{}{
	".": {}, "..": {},
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM0": {}, "COM1": {}, "COM2": {}, "COM3": {}, "COM4": {},
	"COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"COM¹": {}, "COM²": {}, "COM³": {},
	"LPT0": {}, "LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {},
	"LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
	"LPT¹": {}, "LPT²": {}, "LPT³": {},
}

const invalidNameChars = `<>:"|?*`

// ValidateName rejects display names containing the characters <>:"|?* or
// any control rune 1-31, and names any of whose backslash-separated segments
// is a reserved device name once its extension is stripped. Only the exact
// reserved stems are blocked: COM10.txt and a.b.txt are both fine.
func ValidateName(name string) error {
	for _, r := range name {
		if r >= 1 && r <= 31 {
			return fmt.Errorf("%w: %q contains control character %#02x", ErrInvalidName, name, r)
		}
		if strings.ContainsRune(invalidNameChars, r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	for _, seg := range strings.Split(name, `\`) {
		stem := stripExt(seg)
		if _, ok := reservedNames[strings.ToUpper(stem)]; ok {
			return fmt.Errorf("%w: %q uses reserved name %q", ErrInvalidName, name, seg)
		}
	}
	return nil
}

// stripExt removes the last dot-suffix from a segment. Leading dots do not
// start an extension, so "." and ".." survive intact and ".txt" has no
// extension to strip.
func stripExt(seg string) string {
	dot := strings.LastIndexByte(seg, '.')
	if dot <= 0 {
		return seg
	}
	if strings.Trim(seg[:dot], ".") == "" {
		return seg
	}
	return seg[:dot]
}

// nameKey is the (stem, numeric suffix, extension) triple parsed from a
// display name. The numeric suffix comes from a trailing " (digits)" group
// before the extension and defaults to 0 when absent.
type nameKey struct {
	stem string
	num  int
	ext  string
}

// splitName parses name into its duplicate key, matching the pattern
// stem[" (" digits ")"]ext anchored at the end of the string. The extension
// is the last dot-suffix, provided the dot is not the first character and
// at least one character follows it.
func splitName(name string) nameKey {
	k := nameKey{stem: name}
	if dot := strings.LastIndexByte(name, '.'); dot > 0 && dot < len(name)-1 {
		k.stem, k.ext = name[:dot], name[dot:]
	}
	rest := k.stem
	if !strings.HasSuffix(rest, ")") {
		return k
	}
	open := strings.LastIndex(rest, " (")
	if open < 1 {
		return k
	}
	digits := rest[open+2 : len(rest)-1]
	if digits == "" {
		return k
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return k
	}
	k.stem = rest[:open]
	k.num = n
	return k
}

// suggested renders the collision-free form of a key.
func (k nameKey) suggested(num int) string {
	return fmt.Sprintf("%s (%d)%s", k.stem, num, k.ext)
}

// sameFile reports whether two keys name the same stem and extension,
// ignoring case.
func (k nameKey) sameFile(o nameKey) bool {
	return strings.EqualFold(k.stem, o.stem) && strings.EqualFold(k.ext, o.ext)
}

// duplicate describes a name collision: the directory index of the exact
// match and the first collision-free numbered rename.
type duplicate struct {
	index     int
	suggested string
}

// findDuplicate scans existing display names for a collision with name. An
// existing entry is an exact match when stem, extension and numeric suffix
// all agree; entries sharing only stem and extension contribute their
// numbers to the candidate set. With an exact match present, the suggested
// number starts at 2 and advances through the consecutive run of taken
// numbers. No exact match means no collision, regardless of near misses.
//
// When several entries parse to the same key the last one wins.
func findDuplicate(name string, existing []string) *duplicate {
	key := splitName(name)

	var taken []int
	match := -1
	for i, have := range existing {
		k := splitName(have)
		if !key.sameFile(k) {
			continue
		}
		if k.num == key.num {
			match = i
			continue
		}
		taken = append(taken, k.num)
	}
	if match < 0 {
		return nil
	}

	sort.Ints(taken)
	num := 2
	for _, n := range taken {
		if n != num {
			break
		}
		num++
	}
	return &duplicate{index: match, suggested: key.suggested(num)}
}
