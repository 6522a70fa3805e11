package torctl

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// StatusEntry is one relay's router status entry from a network status
// document ("r", "s", "v", "w" lines).
type StatusEntry struct {
	Nickname     string
	Fingerprint  string
	Flags        map[string]bool
	Version      string
	BandwidthKBs int64
}

// HasFlag reports whether the consensus lists the given flag for this relay.
func (e *StatusEntry) HasFlag(flag string) bool {
	return e.Flags[flag]
}

// decodeIdentity converts the unpadded base64 identity field of an "r" line
// into the usual upper-case hex fingerprint.
func decodeIdentity(ident string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(ident, "="))
	if err != nil {
		return "", fmt.Errorf("failed to decode identity %q: %w", ident, err)
	}
	return strings.ToUpper(hex.EncodeToString(raw)), nil
}

// ParseStatusEntry parses a single router status entry.
func ParseStatusEntry(doc string) (*StatusEntry, error) {
	entries, err := ParseStatusEntries(doc)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no router status entry found")
	}
	return entries[0], nil
}

// ParseStatusEntries parses a network status document into one entry per
// relay. Lines before the first "r" line are skipped; unknown line types
// inside an entry are ignored.
func ParseStatusEntries(doc string) ([]*StatusEntry, error) {
	var entries []*StatusEntry
	var current *StatusEntry

	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		keyword, rest, _ := strings.Cut(line, " ")
		switch keyword {
		case "r":
			// r nickname identity digest publication-date publication-time
			//   address or-port dir-port
			fields := strings.Fields(rest)
			if len(fields) < 2 {
				return nil, fmt.Errorf("malformed r line: %q", line)
			}
			fingerprint, err := decodeIdentity(fields[1])
			if err != nil {
				return nil, err
			}
			current = &StatusEntry{
				Nickname:    fields[0],
				Fingerprint: fingerprint,
				Flags:       make(map[string]bool),
			}
			entries = append(entries, current)
		case "s":
			if current == nil {
				continue
			}
			for _, flag := range strings.Fields(rest) {
				current.Flags[flag] = true
			}
		case "v":
			if current == nil {
				continue
			}
			// v Tor 0.4.8.12
			current.Version = strings.TrimSpace(strings.TrimPrefix(rest, "Tor "))
		case "w":
			if current == nil {
				continue
			}
			for _, field := range strings.Fields(rest) {
				if value, ok := strings.CutPrefix(field, "Bandwidth="); ok {
					kbs, err := strconv.ParseInt(value, 10, 64)
					if err != nil {
						return nil, fmt.Errorf("malformed w line: %q", line)
					}
					current.BandwidthKBs = kbs
				}
			}
		}
	}

	return entries, nil
}

// PolicyRule is one accept or reject line of an exit policy.
type PolicyRule struct {
	Accept   bool
	Address  string
	PortLow  int
	PortHigh int
}

// Matches reports whether the rule covers the given port. Address patterns
// are not evaluated since the queries here only care about exiting anywhere.
func (r PolicyRule) Matches(port int) bool {
	return port >= r.PortLow && port <= r.PortHigh
}

// ExitPolicy is an ordered rule list; the first matching rule wins.
type ExitPolicy []PolicyRule

// CanExitTo reports whether the policy permits exiting to the given port
// on at least some address.
func (p ExitPolicy) CanExitTo(port int) bool {
	for _, rule := range p {
		if rule.Matches(port) {
			return rule.Accept
		}
	}
	// Tor's default exit policy ends in reject *:*.
	return false
}

// Descriptor is the subset of a server descriptor Tor Weather reads.
type Descriptor struct {
	Nickname    string
	Platform    string
	Version     string
	ObservedBps int64
	Contact     string
	Hibernating bool
	ExitPolicy  ExitPolicy
}

// ObservedKBs returns the observed bandwidth in whole KB/s.
func (d *Descriptor) ObservedKBs() int64 {
	return d.ObservedBps / 1024
}

func parsePolicyRule(accept bool, rest string) (PolicyRule, error) {
	rule := PolicyRule{Accept: accept}

	addr, portSpec, ok := strings.Cut(rest, ":")
	if !ok {
		return rule, fmt.Errorf("malformed policy pattern: %q", rest)
	}
	rule.Address = addr

	if portSpec == "*" {
		rule.PortLow = 1
		rule.PortHigh = 65535
		return rule, nil
	}

	lowStr, highStr, isRange := strings.Cut(portSpec, "-")
	low, err := strconv.Atoi(lowStr)
	if err != nil {
		return rule, fmt.Errorf("malformed policy port %q: %w", portSpec, err)
	}
	high := low
	if isRange {
		high, err = strconv.Atoi(highStr)
		if err != nil {
			return rule, fmt.Errorf("malformed policy port %q: %w", portSpec, err)
		}
	}
	rule.PortLow = low
	rule.PortHigh = high
	return rule, nil
}

// ParseDescriptor parses a server descriptor document.
func ParseDescriptor(doc string) (*Descriptor, error) {
	desc := &Descriptor{}
	seenRouter := false

	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		keyword, rest, _ := strings.Cut(line, " ")
		// Older descriptors prefix optional lines with "opt".
		if keyword == "opt" {
			keyword, rest, _ = strings.Cut(rest, " ")
		}

		switch keyword {
		case "router":
			// router nickname address or-port socks-port dir-port
			fields := strings.Fields(rest)
			if len(fields) < 1 {
				return nil, fmt.Errorf("malformed router line: %q", line)
			}
			desc.Nickname = fields[0]
			seenRouter = true
		case "platform":
			// platform Tor 0.4.8.12 on Linux
			desc.Platform = rest
			if version, ok := strings.CutPrefix(rest, "Tor "); ok {
				desc.Version, _, _ = strings.Cut(version, " ")
			}
		case "bandwidth":
			// bandwidth average burst observed, in bytes per second
			fields := strings.Fields(rest)
			if len(fields) < 3 {
				return nil, fmt.Errorf("malformed bandwidth line: %q", line)
			}
			observed, err := strconv.ParseInt(fields[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed bandwidth line: %q", line)
			}
			desc.ObservedBps = observed
		case "contact":
			desc.Contact = rest
		case "hibernating":
			desc.Hibernating = rest == "1"
		case "accept", "reject":
			rule, err := parsePolicyRule(keyword == "accept", rest)
			if err != nil {
				return nil, err
			}
			desc.ExitPolicy = append(desc.ExitPolicy, rule)
		}
	}

	if !seenRouter {
		return nil, fmt.Errorf("no router line in descriptor")
	}
	return desc, nil
}

// ParseRecommendedVersions parses the comma-separated value of the
// status/version/recommended key.
func ParseRecommendedVersions(value string) []string {
	var versions []string
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			versions = append(versions, v)
		}
	}
	return versions
}
