package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	kit "gw2bot/internal/transport"
)

const (
	opsMaxMessage = 3500
	opsMaxField   = 600
	opsMaxStack   = 900
)

func (s *Service) opsWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-s.opsQueue:
			if s.sender == nil {
				continue
			}
			_, _ = s.sender.SendText(ctx, it.to, it.msg, &kit.SendOptions{DisablePreview: true})
		}
	}
}

// enqueue never blocks; a full queue drops the line.
func (s *Service) enqueue(to kit.ChatTarget, msg string) {
	select {
	case s.opsQueue <- opsItem{to: to, msg: msg}:
	default:
	}
}

// opsWriter is a zerolog.LevelWriter feeding the ops chat.
type opsWriter struct{ svc *Service }

func (w *opsWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w *opsWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s := w.svc
	s.mu.Lock()
	chatID, threadID := s.chatID, s.threadID
	lim, minLevel := s.limiter, s.minLevel
	s.mu.Unlock()

	if chatID == 0 || s.sender == nil || lim == nil || level < minLevel {
		return len(p), nil
	}
	if !lim.Allow() {
		return len(p), nil
	}
	if msg := formatOpsLine(p); msg != "" {
		s.enqueue(kit.ChatTarget{ChatID: chatID, ThreadID: threadID}, msg)
	}
	return len(p), nil
}

// formatOpsLine renders a zerolog JSON line as "[LEVEL] msg" followed by
// one "- key=value" line per field in key order.
func formatOpsLine(p []byte) string {
	p = bytes.TrimSpace(p)
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return truncate(string(p), opsMaxMessage)
	}

	var b strings.Builder
	if lvl, _ := m["level"].(string); lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	msg, _ := m["message"].(string)
	b.WriteString(msg)

	for _, k := range slices.Sorted(maps.Keys(m)) {
		switch k {
		case "time", "level", "message":
			continue
		case "stack":
			b.WriteString("\n- stack=\n")
			b.WriteString(truncate(fmt.Sprint(m[k]), opsMaxStack))
			continue
		}
		b.WriteString("\n- " + k + "=")
		b.WriteString(truncate(fmt.Sprint(m[k]), opsMaxField))
	}
	return truncate(b.String(), opsMaxMessage)
}

func truncate(s string, maxN int) string {
	if maxN <= 0 || len(s) <= maxN {
		return s
	}
	if maxN < 10 {
		return s[:maxN]
	}
	return s[:maxN-3] + "..."
}
