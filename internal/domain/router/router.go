// Package router holds the relay aggregate: one row per Tor relay that
// Tor Weather has seen in a consensus, identified by fingerprint.
package router

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// FingerprintLen is the length of a hex-encoded relay fingerprint.
	FingerprintLen = 40

	// NameMaxLen is the maximum relay nickname length stored.
	NameMaxLen = 100

	// DefaultName is used for relays whose consensus entry carries no nickname.
	DefaultName = "Unnamed"
)

var fingerprintRe = regexp.MustCompile(`^[0-9A-F]{40}$`)

// NormalizeFingerprint strips spaces and upper-cases a user-supplied
// fingerprint so "4094 8034 ..." and "40948034..." compare equal.
func NormalizeFingerprint(fp string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(fp), " ", ""))
}

// ValidFingerprint reports whether fp is a normalized 40-char hex fingerprint.
func ValidFingerprint(fp string) bool {
	return fingerprintRe.MatchString(fp)
}

// SpacedFingerprint returns fp with a space inserted every four characters,
// the format used in all subscriber-facing mail and pages.
func SpacedFingerprint(fp string) string {
	var groups []string
	for i := 0; i+4 <= len(fp); i += 4 {
		groups = append(groups, fp[i:i+4])
	}
	return strings.Join(groups, " ")
}

// Router represents a Tor relay tracked by the poller.
type Router struct {
	id          uint
	fingerprint string
	name        string
	welcomed    bool
	up          bool
	exit        bool
	stable      bool
	hibernating bool
	version     string
	observedKBs int64
	contact     string
	lastSeen    time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

// NewRouter creates a relay record for a fingerprint first seen in a consensus.
func NewRouter(fingerprint, name string, now time.Time) (*Router, error) {
	fingerprint = NormalizeFingerprint(fingerprint)
	if !ValidFingerprint(fingerprint) {
		return nil, fmt.Errorf("invalid fingerprint: %q", fingerprint)
	}
	if name == "" {
		name = DefaultName
	}
	if len(name) > NameMaxLen {
		name = name[:NameMaxLen]
	}

	return &Router{
		fingerprint: fingerprint,
		name:        name,
		up:          true,
		lastSeen:    now,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructRouter rebuilds a relay from persistence.
func ReconstructRouter(
	id uint,
	fingerprint, name string,
	welcomed, up, exit, stable, hibernating bool,
	version string,
	observedKBs int64,
	contact string,
	lastSeen, createdAt, updatedAt time.Time,
) (*Router, error) {
	if id == 0 {
		return nil, fmt.Errorf("router ID cannot be zero")
	}
	if !ValidFingerprint(fingerprint) {
		return nil, fmt.Errorf("invalid fingerprint: %q", fingerprint)
	}

	return &Router{
		id:          id,
		fingerprint: fingerprint,
		name:        name,
		welcomed:    welcomed,
		up:          up,
		exit:        exit,
		stable:      stable,
		hibernating: hibernating,
		version:     version,
		observedKBs: observedKBs,
		contact:     contact,
		lastSeen:    lastSeen,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}, nil
}

func (r *Router) ID() uint             { return r.id }
func (r *Router) Fingerprint() string  { return r.fingerprint }
func (r *Router) Name() string         { return r.name }
func (r *Router) Welcomed() bool       { return r.welcomed }
func (r *Router) Up() bool             { return r.up }
func (r *Router) Exit() bool           { return r.exit }
func (r *Router) Stable() bool         { return r.stable }
func (r *Router) Hibernating() bool    { return r.hibernating }
func (r *Router) Version() string      { return r.version }
func (r *Router) ObservedKBs() int64   { return r.observedKBs }
func (r *Router) Contact() string      { return r.contact }
func (r *Router) LastSeen() time.Time  { return r.lastSeen }
func (r *Router) CreatedAt() time.Time { return r.createdAt }
func (r *Router) UpdatedAt() time.Time { return r.updatedAt }

// SetID assigns the database ID after the initial insert.
func (r *Router) SetID(id uint) error {
	if r.id != 0 {
		return fmt.Errorf("router ID already set")
	}
	if id == 0 {
		return fmt.Errorf("router ID cannot be zero")
	}
	r.id = id
	return nil
}

// SpacedFingerprint returns this relay's fingerprint grouped in fours.
func (r *Router) SpacedFingerprint() string {
	return SpacedFingerprint(r.fingerprint)
}

// DisplayName renders the "name (id: XXXX XXXX ...)" form used in mail
// subjects and bodies. Unnamed relays show only the fingerprint.
func (r *Router) DisplayName() string {
	if r.name == "" || r.name == DefaultName {
		return fmt.Sprintf("(id: %s)", r.SpacedFingerprint())
	}
	return fmt.Sprintf("%s (id: %s)", r.name, r.SpacedFingerprint())
}

// ConsensusStatus is the per-relay state extracted from a consensus entry
// and descriptor during a poll cycle.
type ConsensusStatus struct {
	Name        string
	Exit        bool
	Stable      bool
	Hibernating bool
	Version     string
	ObservedKBs int64
	Contact     string
}

// MarkSeen applies a fresh consensus observation. A hibernating relay is
// recorded as down: it is unreachable even though it stays listed.
func (r *Router) MarkSeen(st ConsensusStatus, now time.Time) {
	if st.Name != "" {
		name := st.Name
		if len(name) > NameMaxLen {
			name = name[:NameMaxLen]
		}
		r.name = name
	}
	r.up = !st.Hibernating
	r.exit = st.Exit
	r.stable = st.Stable
	r.hibernating = st.Hibernating
	if st.Version != "" {
		r.version = st.Version
	}
	if st.ObservedKBs > 0 {
		r.observedKBs = st.ObservedKBs
	}
	if st.Contact != "" {
		r.contact = st.Contact
	}
	r.lastSeen = now
	r.updatedAt = now
}

// MarkUnseen records that the relay was absent from the latest consensus.
func (r *Router) MarkUnseen(now time.Time) {
	r.up = false
	r.updatedAt = now
}

// MarkWelcomed records that the operator welcome mail went out.
func (r *Router) MarkWelcomed(now time.Time) {
	r.welcomed = true
	r.updatedAt = now
}

// EligibleForWelcome reports whether the operator should receive the
// one-time welcome mail: relay up, holding the Stable flag, not yet
// welcomed, with a contact address on file.
func (r *Router) EligibleForWelcome() bool {
	return r.up && r.stable && !r.welcomed && r.contact != ""
}
