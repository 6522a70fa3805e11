package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFingerprint = "4094803429B41070E43CBDBDD0B8B27CCCB7AAC3"

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	r, err := NewRouter(testFingerprint, "WesCSTor", time.Now())
	require.NoError(t, err)
	return r
}

func TestNormalizeFingerprint(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already normalized", testFingerprint, testFingerprint},
		{"spaced groups", "4094 8034 29B4 1070 E43C BDBD D0B8 B27C CCB7 AAC3", testFingerprint},
		{"lower case", "4094803429b41070e43cbdbdd0b8b27cccb7aac3", testFingerprint},
		{"surrounding whitespace", "  " + testFingerprint + " ", testFingerprint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFingerprint(tt.input))
		})
	}
}

func TestValidFingerprint(t *testing.T) {
	assert.True(t, ValidFingerprint(testFingerprint))
	assert.False(t, ValidFingerprint(""))
	assert.False(t, ValidFingerprint(testFingerprint[:39]))
	assert.False(t, ValidFingerprint(testFingerprint+"0"))
	assert.False(t, ValidFingerprint("Z094803429B41070E43CBDBDD0B8B27CCCB7AAC3"))
	// Not normalized: lower case hex is rejected
	assert.False(t, ValidFingerprint("4094803429b41070e43cbdbdd0b8b27cccb7aac3"))
}

func TestSpacedFingerprint(t *testing.T) {
	assert.Equal(t,
		"4094 8034 29B4 1070 E43C BDBD D0B8 B27C CCB7 AAC3",
		SpacedFingerprint(testFingerprint))
}

func TestNewRouterDefaults(t *testing.T) {
	now := time.Now()
	r, err := NewRouter(testFingerprint, "", now)
	require.NoError(t, err)

	assert.Equal(t, DefaultName, r.Name())
	assert.True(t, r.Up(), "a freshly seen relay starts up")
	assert.False(t, r.Welcomed())
	assert.False(t, r.Exit())
	assert.Equal(t, now, r.LastSeen())
}

func TestNewRouterRejectsBadFingerprint(t *testing.T) {
	_, err := NewRouter("not-a-fingerprint", "x", time.Now())
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, "WesCSTor (id: 4094 8034 29B4 1070 E43C BDBD D0B8 B27C CCB7 AAC3)", r.DisplayName())

	unnamed, err := NewRouter(testFingerprint, DefaultName, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "(id: 4094 8034 29B4 1070 E43C BDBD D0B8 B27C CCB7 AAC3)", unnamed.DisplayName())
}

func TestMarkSeenHibernatingCountsAsDown(t *testing.T) {
	r := newTestRouter(t)
	now := time.Now()

	r.MarkSeen(ConsensusStatus{Name: "WesCSTor", Hibernating: true, Stable: true}, now)

	assert.False(t, r.Up())
	assert.True(t, r.Hibernating())
	assert.Equal(t, now, r.LastSeen())
}

func TestMarkSeenUpdatesState(t *testing.T) {
	r := newTestRouter(t)
	now := time.Now()

	r.MarkSeen(ConsensusStatus{
		Name:        "Renamed",
		Exit:        true,
		Stable:      true,
		Version:     "0.4.8.12",
		ObservedKBs: 512,
		Contact:     "op@example.org",
	}, now)

	assert.True(t, r.Up())
	assert.True(t, r.Exit())
	assert.True(t, r.Stable())
	assert.Equal(t, "Renamed", r.Name())
	assert.Equal(t, "0.4.8.12", r.Version())
	assert.Equal(t, int64(512), r.ObservedKBs())
	assert.Equal(t, "op@example.org", r.Contact())
}

func TestMarkUnseen(t *testing.T) {
	r := newTestRouter(t)
	seen := r.LastSeen()

	r.MarkUnseen(time.Now())

	assert.False(t, r.Up())
	assert.Equal(t, seen, r.LastSeen(), "last_seen keeps the last consensus sighting")
}

func TestEligibleForWelcome(t *testing.T) {
	r := newTestRouter(t)
	now := time.Now()

	r.MarkSeen(ConsensusStatus{Stable: true, Contact: "op@example.org"}, now)
	assert.True(t, r.EligibleForWelcome())

	r.MarkWelcomed(now)
	assert.False(t, r.EligibleForWelcome(), "welcome goes out once")

	r2 := newTestRouter(t)
	r2.MarkSeen(ConsensusStatus{Stable: true}, now)
	assert.False(t, r2.EligibleForWelcome(), "no contact address, nobody to welcome")
}
