package app

import (
	"context"

	"gw2bot/internal/domain"
	"gw2bot/internal/notifier"
	kit "gw2bot/internal/transport"
	logx "gw2bot/pkg/logx"
)

type unsubscriber interface {
	UnsubscribeByMessage(ctx context.Context, owner int64, ref domain.MessageRef) (bool, error)
}

type messageDeleter interface {
	Delete(ctx context.Context, ref domain.MessageRef) error
}

type callbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// updateHandler reacts to inbound chat updates. Only the Unsubscribe
// button is handled; other updates are logged and dropped.
type updateHandler struct {
	reminders unsubscriber
	messages  messageDeleter
	answers   callbackAnswerer
	log       logx.Logger
}

func (h *updateHandler) Loop(ctx context.Context, updates <-chan kit.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			h.Handle(ctx, up)
		}
	}
}

func (h *updateHandler) Handle(ctx context.Context, up kit.Update) {
	switch {
	case up.Kind == kit.UpdateCallback && up.Callback != nil:
		h.handleCallback(ctx, up.Callback)
	case up.Message != nil:
		h.log.Debug("message ignored", logx.Int64("chat", up.Message.ChatID), logx.Int64("from", up.Message.FromID))
	}
}

func (h *updateHandler) handleCallback(ctx context.Context, cb *kit.Callback) {
	log := h.log.With(logx.Int64("owner", cb.FromID), logx.Int("message", cb.MessageID))
	if cb.Unique != notifier.ActionUnsubscribe {
		log.Debug("unknown callback", logx.String("unique", cb.Unique))
		h.answer(ctx, log, cb.ID, "")
		return
	}

	ref := domain.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	removed, err := h.reminders.UnsubscribeByMessage(ctx, cb.FromID, ref)
	if err != nil {
		log.Warn("unsubscribe failed", logx.Err(err))
		h.answer(ctx, log, cb.ID, "Could not unsubscribe, try again later")
		return
	}
	if err := h.messages.Delete(ctx, ref); err != nil {
		log.Debug("reminder message not deleted", logx.Err(err))
	}
	if !removed {
		log.Debug("unsubscribe matched nothing", logx.String("reminder", cb.Data))
		h.answer(ctx, log, cb.ID, "Reminder already removed")
		return
	}
	log.Info("unsubscribed via button", logx.String("reminder", cb.Data))
	h.answer(ctx, log, cb.ID, "Unsubscribed")
}

func (h *updateHandler) answer(ctx context.Context, log logx.Logger, id, text string) {
	if id == "" || h.answers == nil {
		return
	}
	if err := h.answers.AnswerCallback(ctx, id, text); err != nil {
		log.Debug("callback answer failed", logx.Err(err))
	}
}
