package subscription

import (
	"fmt"
	"strconv"
	"strings"
)

// TorVersion is a parsed Tor version number (major.minor.micro.patch).
// Status tags such as "-alpha" are ignored for ordering, matching how the
// directory authorities compare versions for recommendation purposes.
type TorVersion struct {
	Major int
	Minor int
	Micro int
	Patch int
}

// ParseTorVersion parses strings like "0.4.8.12" or "0.4.9.1-alpha".
func ParseTorVersion(s string) (TorVersion, error) {
	base := s
	if i := strings.IndexAny(base, "- "); i >= 0 {
		base = base[:i]
	}

	parts := strings.Split(base, ".")
	if len(parts) < 3 || len(parts) > 4 {
		return TorVersion{}, fmt.Errorf("malformed tor version: %q", s)
	}

	nums := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return TorVersion{}, fmt.Errorf("malformed tor version: %q", s)
		}
		nums[i] = n
	}

	return TorVersion{Major: nums[0], Minor: nums[1], Micro: nums[2], Patch: nums[3]}, nil
}

// Compare returns -1, 0, or 1 as v orders before, equal to, or after o.
func (v TorVersion) Compare(o TorVersion) int {
	a := [4]int{v.Major, v.Minor, v.Micro, v.Patch}
	b := [4]int{o.Major, o.Minor, o.Micro, o.Patch}
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

// VersionOK decides whether a relay's version satisfies the policy given
// the recommended-version list from the directory authorities.
//
// unrecommended: OK only when the version appears in the list.
// obsolete: OK unless the version is older than every recommended version.
//
// An unparsable relay version is treated as OK: the check is skipped
// rather than nagging an operator over a string this code cannot read.
func VersionOK(policy NotifyType, version string, recommended []string) bool {
	if version == "" || len(recommended) == 0 {
		return true
	}

	for _, r := range recommended {
		if strings.TrimSpace(r) == version {
			return true
		}
	}

	if policy == NotifyUnrecommended {
		return false
	}

	// Obsolete policy: older than everything recommended.
	v, err := ParseTorVersion(version)
	if err != nil {
		return true
	}
	for _, r := range recommended {
		rv, err := ParseTorVersion(r)
		if err != nil {
			continue
		}
		if v.Compare(rv) >= 0 {
			return true
		}
	}
	return false
}
