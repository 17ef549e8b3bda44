package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gw2bot/internal/config"
	"gw2bot/internal/dispatch"
	"gw2bot/internal/domain"
	"gw2bot/internal/notifier"
	kit "gw2bot/internal/transport"
	logx "gw2bot/pkg/logx"
)

func TestMapDispatchPolicy(t *testing.T) {
	t.Parallel()

	p, err := mapDispatchPolicy(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, dispatch.DefaultPolicy(), p)

	p, err = mapDispatchPolicy(&config.Config{Dispatch: config.DispatchConfig{
		Interval:       "5s",
		FireGuard:      "45s",
		SuppressWindow: "3m",
		Workers:        2,
	}})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, p.Interval)
	assert.Equal(t, 45*time.Second, p.FireGuard)
	assert.Equal(t, 3*time.Minute, p.SuppressWindow)
	assert.Equal(t, dispatch.DefaultDeliveryTimeout, p.DeliveryTimeout)
	assert.Equal(t, 2, p.Workers)

	_, err = mapDispatchPolicy(&config.Config{Dispatch: config.DispatchConfig{Interval: "200ms"}})
	assert.ErrorContains(t, err, "at least 1s")
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()

	sc, err := mapStorageConfig(&config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "", sc.Driver)

	sc, err = mapStorageConfig(&config.Config{Storage: config.StorageConfig{Driver: "SQLite", Path: " ./gw2bot.db "}})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", sc.Driver)
	assert.Equal(t, "./gw2bot.db", sc.Path)
	assert.Equal(t, defaultBusyTimeout, sc.BusyTimeout)

	_, err = mapStorageConfig(&config.Config{Storage: config.StorageConfig{Driver: "sqlite"}})
	assert.ErrorContains(t, err, "storage.path")
	_, err = mapStorageConfig(&config.Config{Storage: config.StorageConfig{Driver: "mongo"}})
	assert.Error(t, err)
}

func TestMapLoggingAndNotifier(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Logging: config.LoggingConfig{
			Level:   "debug",
			OpsChat: config.LoggingOpsChat{Enabled: true, ChatID: -42, MinLevel: "error"},
		},
		Notifier: config.NotifierConfig{RatePerSec: 5, RetryMax: 1, RetryBase: "250ms", Timeout: "3s"},
	}

	lc := mapLoggingConfig(cfg)
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, logx.OpsChatConfig{Enabled: true, ChatID: -42, MinLevel: "error"}, lc.OpsChat)

	nc, err := mapNotifierConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, notifier.Config{RatePerSec: 5, RetryMax: 1, RetryBase: 250 * time.Millisecond, Timeout: 3 * time.Second}, nc)

	require.NoError(t, validateConfig(cfg))
	cfg.Notifier.Timeout = "forever"
	assert.Error(t, validateConfig(cfg))
}

type fakeReminders struct {
	removed bool
	err     error
	owner   int64
	ref     domain.MessageRef
}

func (f *fakeReminders) UnsubscribeByMessage(_ context.Context, owner int64, ref domain.MessageRef) (bool, error) {
	f.owner, f.ref = owner, ref
	return f.removed, f.err
}

type fakeMessages struct{ deleted []domain.MessageRef }

func (f *fakeMessages) Delete(_ context.Context, ref domain.MessageRef) error {
	f.deleted = append(f.deleted, ref)
	return nil
}

type fakeAnswers struct{ texts []string }

func (f *fakeAnswers) AnswerCallback(_ context.Context, _ string, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func unsubscribePress() kit.Update {
	return kit.Update{Kind: kit.UpdateCallback, Callback: &kit.Callback{
		ID:        "cb1",
		FromID:    77,
		ChatID:    77,
		MessageID: 501,
		Unique:    notifier.ActionUnsubscribe,
		Data:      "reminder-1",
		IsPrivate: true,
	}}
}

func TestUnsubscribeButton(t *testing.T) {
	t.Parallel()
	rem := &fakeReminders{removed: true}
	msgs := &fakeMessages{}
	ans := &fakeAnswers{}
	h := &updateHandler{reminders: rem, messages: msgs, answers: ans, log: logx.Nop()}

	h.Handle(context.Background(), unsubscribePress())

	assert.Equal(t, int64(77), rem.owner)
	assert.Equal(t, domain.MessageRef{ChatID: 77, MessageID: 501}, rem.ref)
	assert.Equal(t, []domain.MessageRef{{ChatID: 77, MessageID: 501}}, msgs.deleted)
	assert.Equal(t, []string{"Unsubscribed"}, ans.texts)
}

func TestUnsubscribeButtonEdgeCases(t *testing.T) {
	t.Parallel()

	t.Run("already removed", func(t *testing.T) {
		ans := &fakeAnswers{}
		msgs := &fakeMessages{}
		h := &updateHandler{reminders: &fakeReminders{}, messages: msgs, answers: ans, log: logx.Nop()}
		h.Handle(context.Background(), unsubscribePress())
		assert.Equal(t, []string{"Reminder already removed"}, ans.texts)
		assert.Len(t, msgs.deleted, 1)
	})

	t.Run("store error keeps the message", func(t *testing.T) {
		ans := &fakeAnswers{}
		msgs := &fakeMessages{}
		h := &updateHandler{reminders: &fakeReminders{err: errors.New("database is locked")}, messages: msgs, answers: ans, log: logx.Nop()}
		h.Handle(context.Background(), unsubscribePress())
		assert.Empty(t, msgs.deleted)
		assert.Equal(t, []string{"Could not unsubscribe, try again later"}, ans.texts)
	})

	t.Run("other buttons and messages", func(t *testing.T) {
		rem := &fakeReminders{removed: true}
		ans := &fakeAnswers{}
		h := &updateHandler{reminders: rem, messages: &fakeMessages{}, answers: ans, log: logx.Nop()}
		up := unsubscribePress()
		up.Callback.Unique = "snooze"
		h.Handle(context.Background(), up)
		h.Handle(context.Background(), kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 1, Text: "hi"}})
		assert.Zero(t, rem.owner)
		assert.Equal(t, []string{""}, ans.texts)
	})
}

func TestUpdateLoopStopsOnCancel(t *testing.T) {
	t.Parallel()
	rem := &fakeReminders{removed: true}
	h := &updateHandler{reminders: rem, messages: &fakeMessages{}, answers: &fakeAnswers{}, log: logx.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan kit.Update, 1)
	updates <- unsubscribePress()
	done := make(chan error, 1)
	go func() { done <- h.Loop(ctx, updates) }()

	require.Eventually(t, func() bool {
		select {
		case <-done:
			return false
		default:
			return len(updates) == 0
		}
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
