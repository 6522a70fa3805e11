package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torweather/internal/application/subscribe/dto"
	"torweather/internal/shared/errors"
	"torweather/internal/shared/logger"
)

// seedSubscriber signs up a subscriber with a node-down rule and returns
// the response carrying the three auth keys.
func seedSubscriber(t *testing.T, env *testEnv) *dto.SubscriberResponse {
	t.Helper()

	resp, err := env.subscribeUC().Execute(context.Background(), dto.SubscribeRequest{
		Email:           "watcher@example.org",
		Fingerprint:     testFingerprint,
		GetNodeDown:     true,
		NodeDownGraceHr: 12,
	})
	require.NoError(t, err)
	return resp
}

func TestConfirmUseCase_Execute(t *testing.T) {
	env := newTestEnv(t)
	seeded := seedSubscriber(t, env)
	uc := NewConfirmUseCase(env.routers, env.subscribers, env.subscriptions, env.mailer, env.clock, logger.NewLogger())
	ctx := context.Background()

	resp, err := uc.Execute(ctx, seeded.ConfirmAuth)
	require.NoError(t, err)
	assert.True(t, resp.Confirmed)

	// subscribe mail + confirmed mail
	require.Len(t, env.mailer.sent, 2)
	assert.Equal(t, "confirmed", env.mailer.sent[1].kind)

	t.Run("revisiting the link is idempotent", func(t *testing.T) {
		resp, err := uc.Execute(ctx, seeded.ConfirmAuth)
		require.NoError(t, err)
		assert.True(t, resp.Confirmed)
		assert.Len(t, env.mailer.sent, 2, "no duplicate confirmed mail")
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := uc.Execute(ctx, "nosuchkeynosuchkeynosuch")
		assert.True(t, errors.IsNotFoundError(err))
	})
}

func TestResendConfirmationUseCase_Execute(t *testing.T) {
	env := newTestEnv(t)
	seeded := seedSubscriber(t, env)
	uc := NewResendConfirmationUseCase(env.routers, env.subscribers, env.mailer, logger.NewLogger())
	ctx := context.Background()

	_, err := uc.Execute(ctx, seeded.ConfirmAuth)
	require.NoError(t, err)
	require.Len(t, env.mailer.sent, 2)
	assert.Equal(t, "confirmation", env.mailer.sent[1].kind)

	t.Run("already confirmed", func(t *testing.T) {
		confirmUC := NewConfirmUseCase(env.routers, env.subscribers, env.subscriptions, env.mailer, env.clock, logger.NewLogger())
		_, err := confirmUC.Execute(ctx, seeded.ConfirmAuth)
		require.NoError(t, err)

		_, err = uc.Execute(ctx, seeded.ConfirmAuth)
		assert.True(t, errors.IsConflictError(err))
	})
}

func TestUnsubscribeUseCase_Execute(t *testing.T) {
	env := newTestEnv(t)
	seeded := seedSubscriber(t, env)
	uc := NewUnsubscribeUseCase(env.routers, env.subscribers, logger.NewLogger())
	ctx := context.Background()

	resp, err := uc.Execute(ctx, seeded.UnsubsAuth)
	require.NoError(t, err)
	assert.Equal(t, "watcher@example.org", resp.Email)

	// Subscriber and rules are gone.
	sub, err := env.subscribers.GetByUnsubsAuth(ctx, seeded.UnsubsAuth)
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Empty(t, env.subscriptions.subscriptions)

	t.Run("second visit fails", func(t *testing.T) {
		_, err := uc.Execute(ctx, seeded.UnsubsAuth)
		assert.True(t, errors.IsNotFoundError(err))
	})
}

func TestGetPreferencesUseCase_Execute(t *testing.T) {
	env := newTestEnv(t)
	seeded := seedSubscriber(t, env)
	uc := NewGetPreferencesUseCase(env.routers, env.subscribers, env.subscriptions, logger.NewLogger())

	resp, err := uc.Execute(context.Background(), seeded.PrefAuth)
	require.NoError(t, err)
	require.Len(t, resp.Subscriptions, 1)
	assert.Equal(t, "node_down", resp.Subscriptions[0].Type)
	assert.Equal(t, 12, resp.Subscriptions[0].GraceHours)

	_, err = uc.Execute(context.Background(), "nosuchkeynosuchkeynosuch")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestUpdatePreferencesUseCase_Execute(t *testing.T) {
	env := newTestEnv(t)
	seeded := seedSubscriber(t, env)
	uc := NewUpdatePreferencesUseCase(env.routers, env.subscribers, env.subscriptions, env.clock, logger.NewLogger())
	ctx := context.Background()

	t.Run("change settings and swap rule types", func(t *testing.T) {
		resp, err := uc.Execute(ctx, seeded.PrefAuth, dto.UpdatePreferencesRequest{
			GetNodeDown:      true,
			NodeDownGraceHr:  96,
			GetBandLow:       true,
			BandLowThreshold: 50,
		})
		require.NoError(t, err)
		require.Len(t, resp.Subscriptions, 2)

		byType := make(map[string]dto.SubscriptionSettings)
		for _, s := range resp.Subscriptions {
			byType[s.Type] = s
		}
		assert.Equal(t, 96, byType["node_down"].GraceHours)
		assert.Equal(t, int64(50), byType["bandwidth"].ThresholdKBs)
	})

	t.Run("deselecting a rule removes it", func(t *testing.T) {
		resp, err := uc.Execute(ctx, seeded.PrefAuth, dto.UpdatePreferencesRequest{
			GetBandLow:       true,
			BandLowThreshold: 50,
		})
		require.NoError(t, err)
		require.Len(t, resp.Subscriptions, 1)
		assert.Equal(t, "bandwidth", resp.Subscriptions[0].Type)
	})

	t.Run("must keep at least one rule", func(t *testing.T) {
		_, err := uc.Execute(ctx, seeded.PrefAuth, dto.UpdatePreferencesRequest{})
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := uc.Execute(ctx, "nosuchkeynosuchkeynosuch", dto.UpdatePreferencesRequest{GetTShirt: true})
		assert.True(t, errors.IsNotFoundError(err))
	})
}
