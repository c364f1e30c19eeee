package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a four-part numeric version, as found in executable resources.
type Version struct {
	Major int
	Minor int
	Patch int
	Build int
}

// String formats all four components, e.g. "4.11.3.0".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

func (v Version) IsZero() bool {
	return v == Version{}
}

// ParseVersion parses a dotted version such as "2.3", "4.11.3.0" or
// "g4.12pre-77". A leading non-digit prefix is skipped and each component
// stops at its first non-digit, so "4.12pre" reads as 4.12.
func ParseVersion(s string) (Version, error) {
	orig := s
	s = strings.TrimSpace(s)
	if i := strings.IndexFunc(s, isDigit); i > 0 {
		s = s[i:]
	}
	s = strings.ReplaceAll(s, ",", ".")

	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return Version{}, fmt.Errorf("invalid version format: %q (expected at least major.minor)", orig)
	}

	var nums [4]int
	for i := 0; i < len(parts) && i < len(nums); i++ {
		p := strings.TrimSpace(parts[i])
		if end := strings.IndexFunc(p, func(r rune) bool { return !isDigit(r) }); end >= 0 {
			p = p[:end]
			parts = parts[:i+1]
		}
		if p == "" {
			if i < 2 {
				return Version{}, fmt.Errorf("invalid version component %d in %q", i, orig)
			}
			break
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version component %d in %q: %w", i, orig, err)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Build: nums[3]}, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Compare returns -1 if v < o, 0 if v == o, 1 if v > o.
func (v Version) Compare(o Version) int {
	a := [4]int{v.Major, v.Minor, v.Patch, v.Build}
	b := [4]int{o.Major, o.Minor, o.Patch, o.Build}
	for i := range a {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// CompareVersions compares two version strings
// Returns -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) (int, error) {
	info1, err := ParseVersion(v1)
	if err != nil {
		return 0, fmt.Errorf("error parsing version %s: %w", v1, err)
	}

	info2, err := ParseVersion(v2)
	if err != nil {
		return 0, fmt.Errorf("error parsing version %s: %w", v2, err)
	}

	return info1.Compare(info2), nil
}
