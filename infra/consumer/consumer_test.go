package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/kaushal/skillcredits/pkg/service/rewards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsumer(h HandlerFunc) *Consumer {
	return &Consumer{handler: h, log: slog.Default()}
}

func TestProcess(t *testing.T) {
	body := []byte(`{"type":"badge_earned","payload":{"badge_id":"b1","points":10}}`)

	tests := []struct {
		name        string
		body        []byte
		err         error
		redelivered bool
		want        outcome
	}{
		{"handled", body, nil, false, ack},
		{"malformed json", []byte(`{`), nil, false, drop},
		{"validation", body, fmt.Errorf("%w: bad", domain.ErrValidation), false, drop},
		{"unknown type", body, rewards.ErrUnknownEventType, false, drop},
		{"no account", body, fmt.Errorf("earn: %w", account.ErrAccountNotFound), false, drop},
		{"non-positive amount", body, account.ErrAmountMustBePositive, false, drop},
		{"oversized amount", body, account.ErrAmountTooLarge, false, drop},
		{"transient first delivery", body, domain.ErrStoreUnavailable, false, requeue},
		{"transient redelivery", body, domain.ErrStoreUnavailable, true, drop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConsumer(func(ctx context.Context, env rewards.Envelope) error {
				return tt.err
			})
			assert.Equal(t, tt.want, c.process(context.Background(), tt.body, tt.redelivered))
		})
	}
}

func TestProcess_PassesEnvelope(t *testing.T) {
	var got rewards.Envelope
	c := newTestConsumer(func(ctx context.Context, env rewards.Envelope) error {
		got = env
		_, ok := ctx.Deadline()
		require.True(t, ok)
		return nil
	})

	out := c.process(context.Background(),
		[]byte(`{"type":"daily_streak","user_id":"5f0c7c4e-6d2a-4a8e-9b6f-2d4f8c1a3b7e","payload":{"days":3}}`),
		false)

	assert.Equal(t, ack, out)
	assert.Equal(t, rewards.EventDailyStreak, got.Type)
	assert.Equal(t, "5f0c7c4e-6d2a-4a8e-9b6f-2d4f8c1a3b7e", got.UserID.String())
	assert.JSONEq(t, `{"days":3}`, string(got.Payload))
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(configWithoutURL(), HandlerFunc(func(context.Context, rewards.Envelope) error {
		return errors.New("unused")
	}), nil)
	assert.Error(t, err)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "ack", ack.String())
	assert.Equal(t, "requeue", requeue.String())
	assert.Equal(t, "drop", drop.String())
}

func configWithoutURL() config.Rabbit {
	return config.Rabbit{Queue: "reward_events", Workers: 1}
}
