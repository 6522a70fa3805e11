package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTorVersion(t *testing.T) {
	v, err := ParseTorVersion("0.4.8.12")
	require.NoError(t, err)
	assert.Equal(t, TorVersion{0, 4, 8, 12}, v)

	v, err = ParseTorVersion("0.4.9.1-alpha")
	require.NoError(t, err)
	assert.Equal(t, TorVersion{0, 4, 9, 1}, v)

	v, err = ParseTorVersion("0.3.5")
	require.NoError(t, err)
	assert.Equal(t, TorVersion{0, 3, 5, 0}, v)

	for _, bad := range []string{"", "1", "1.2", "a.b.c.d", "0.4.-1.0", "0.4.8.12.3"} {
		_, err := ParseTorVersion(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestTorVersionCompare(t *testing.T) {
	older, _ := ParseTorVersion("0.4.7.16")
	newer, _ := ParseTorVersion("0.4.8.12")

	assert.Equal(t, -1, older.Compare(newer))
	assert.Equal(t, 1, newer.Compare(older))
	assert.Equal(t, 0, newer.Compare(newer))
}

func TestVersionOK(t *testing.T) {
	recommended := []string{"0.4.8.12", "0.4.8.13", "0.4.9.1-alpha"}

	tests := []struct {
		name    string
		policy  NotifyType
		version string
		want    bool
	}{
		{"unrecommended, listed", NotifyUnrecommended, "0.4.8.12", true},
		{"unrecommended, unlisted but newer", NotifyUnrecommended, "0.4.9.2", false},
		{"unrecommended, unlisted and old", NotifyUnrecommended, "0.4.7.1", false},
		{"obsolete, listed", NotifyObsolete, "0.4.8.12", true},
		{"obsolete, unlisted but not oldest", NotifyObsolete, "0.4.8.14", true},
		{"obsolete, older than all", NotifyObsolete, "0.4.7.1", false},
		{"obsolete, unparsable version", NotifyObsolete, "experimental", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VersionOK(tt.policy, tt.version, recommended))
		})
	}
}

func TestVersionOKSkipsWithoutData(t *testing.T) {
	assert.True(t, VersionOK(NotifyUnrecommended, "", []string{"0.4.8.12"}))
	assert.True(t, VersionOK(NotifyUnrecommended, "0.4.8.12", nil))
}
