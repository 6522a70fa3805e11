package subscriber

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torweather/internal/shared/id"
)

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("user@example.org"))
	assert.True(t, ValidEmail("first.last+tag@sub.example.org"))
	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("not-an-address"))
	assert.False(t, ValidEmail("Display Name <user@example.org>"))

	long := "user@" + string(make([]byte, EmailMaxLen)) + ".org"
	assert.False(t, ValidEmail(long))
}

func TestNewSubscriber(t *testing.T) {
	now := time.Now()
	sub, err := NewSubscriber("user@example.org", 7, now)
	require.NoError(t, err)

	assert.False(t, sub.Confirmed(), "subscribers start unconfirmed")
	assert.Equal(t, uint(7), sub.RouterID())
	assert.Equal(t, now, sub.SubDate())

	assert.True(t, id.ValidAuthKey(sub.ConfirmAuth()))
	assert.True(t, id.ValidAuthKey(sub.UnsubsAuth()))
	assert.True(t, id.ValidAuthKey(sub.PrefAuth()))

	// The three keys gate different URLs and must not collide.
	assert.NotEqual(t, sub.ConfirmAuth(), sub.UnsubsAuth())
	assert.NotEqual(t, sub.ConfirmAuth(), sub.PrefAuth())
	assert.NotEqual(t, sub.UnsubsAuth(), sub.PrefAuth())
}

func TestNewSubscriberRejectsBadInput(t *testing.T) {
	_, err := NewSubscriber("nope", 1, time.Now())
	assert.Error(t, err)

	_, err = NewSubscriber("user@example.org", 0, time.Now())
	assert.Error(t, err)
}

func TestConfirmIsIdempotent(t *testing.T) {
	sub, err := NewSubscriber("user@example.org", 1, time.Now())
	require.NoError(t, err)

	sub.Confirm(time.Now())
	assert.True(t, sub.Confirmed())

	sub.Confirm(time.Now())
	assert.True(t, sub.Confirmed())
}
