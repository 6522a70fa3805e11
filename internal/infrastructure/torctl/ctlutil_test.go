package torctl

import (
	"fmt"
	"testing"

	"github.com/cretz/bine/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn answers GETINFO from a canned key/value map and fails for
// anything else, mimicking the 552 a real control port sends for unknown
// fingerprints.
type fakeConn struct {
	responses map[string]string
}

func (f *fakeConn) GetInfo(keys ...string) ([]*control.KeyVal, error) {
	kvs := make([]*control.KeyVal, 0, len(keys))
	for _, key := range keys {
		val, ok := f.responses[key]
		if !ok {
			return nil, fmt.Errorf("552 unrecognized key %q", key)
		}
		kvs = append(kvs, control.NewKeyVal(key, val))
	}
	return kvs, nil
}

func newFakeCtlUtil(responses map[string]string) *CtlUtil {
	return NewWithConn(&fakeConn{responses: responses})
}

func TestCtlUtil_IsUp(t *testing.T) {
	c := newFakeCtlUtil(map[string]string{
		"ns/id/" + wantFingerprint: statusEntryDoc,
	})

	assert.True(t, c.IsUp(wantFingerprint))
	assert.False(t, c.IsUp("0000000000000000000000000000000000000000"))
}

func TestCtlUtil_IsStable(t *testing.T) {
	unstableDoc := "r OtherRelay qqqqqqqqqqqqqqqqqqqqqqqqqqo oHW9siIZZdBZqEA4+yQyDTQpwdM 2026-08-30 12:00:00 192.0.2.11 9001 0\n" +
		"s Fast Running Valid\n"

	c := newFakeCtlUtil(map[string]string{
		"ns/id/" + wantFingerprint: statusEntryDoc,
		"ns/id/AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA": unstableDoc,
	})

	assert.True(t, c.IsStable(wantFingerprint))
	assert.False(t, c.IsStable("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"))
	assert.False(t, c.IsStable("0000000000000000000000000000000000000000"))
}

func TestCtlUtil_IsExit(t *testing.T) {
	nonExitDoc := "router MiddleRelay 192.0.2.15 9001 0 0\n" +
		"reject *:*\n"

	c := newFakeCtlUtil(map[string]string{
		"desc/id/" + wantFingerprint: descriptorDoc,
		"desc/id/AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA": nonExitDoc,
	})

	assert.True(t, c.IsExit(wantFingerprint))
	assert.False(t, c.IsExit("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"))
	assert.False(t, c.IsExit("0000000000000000000000000000000000000000"))
}

func TestCtlUtil_IsHibernating(t *testing.T) {
	hibernatingDoc := "router SleepyRelay 192.0.2.12 9001 0 0\n" +
		"hibernating 1\n" +
		"reject *:*\n"

	c := newFakeCtlUtil(map[string]string{
		"desc/id/" + wantFingerprint: descriptorDoc,
		"desc/id/AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA": hibernatingDoc,
	})

	assert.False(t, c.IsHibernating(wantFingerprint))
	assert.True(t, c.IsHibernating("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"))
	assert.False(t, c.IsHibernating("0000000000000000000000000000000000000000"))
}

func TestCtlUtil_AllStatusEntries(t *testing.T) {
	doc := statusEntryDoc +
		"r OtherRelay qqqqqqqqqqqqqqqqqqqqqqqqqqo oHW9siIZZdBZqEA4+yQyDTQpwdM 2026-08-30 12:00:00 192.0.2.11 9001 0\n" +
		"s Fast Running Valid\n"

	c := newFakeCtlUtil(map[string]string{"ns/all": doc})

	entries, err := c.AllStatusEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCtlUtil_RecommendedVersions(t *testing.T) {
	c := newFakeCtlUtil(map[string]string{
		"status/version/recommended": "0.4.7.16,0.4.8.12",
	})

	versions, err := c.RecommendedVersions()
	require.NoError(t, err)
	assert.Equal(t, []string{"0.4.7.16", "0.4.8.12"}, versions)
}

func TestCtlUtil_GetDescriptor(t *testing.T) {
	c := newFakeCtlUtil(map[string]string{
		"desc/id/" + wantFingerprint: descriptorDoc,
	})

	desc, err := c.GetDescriptor(wantFingerprint)
	require.NoError(t, err)
	assert.Equal(t, "Example Operator <op@example.org>", desc.Contact)

	_, err = c.GetDescriptor("0000000000000000000000000000000000000000")
	assert.Error(t, err)
}
