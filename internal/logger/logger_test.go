package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewRespectsLevelAndFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "warn", true)
	log.Info("hidden")
	log.Warn("shown", "user_id", 7)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"user_id":7`) {
		t.Errorf("expected JSON warn record, got %s", out)
	}
}

func TestUpdateAttrs(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 80)
	msg := &models.Update{ID: 1, Message: &models.Message{
		Chat: models.Chat{ID: 10},
		From: &models.User{ID: 20},
		Text: long,
	}}
	attrs := attrMap(updateAttrs(msg))
	if attrs["update_type"] != "message" || attrs["user_id"] != int64(20) || attrs["chat_id"] != int64(10) {
		t.Errorf("unexpected message attrs: %v", attrs)
	}
	if preview := attrs["text_preview"].(string); len(preview) != previewLen {
		t.Errorf("text_preview length = %d, want %d", len(preview), previewLen)
	}

	cb := &models.Update{ID: 2, CallbackQuery: &models.CallbackQuery{
		From: models.User{ID: 30},
		Data: "confirm",
	}}
	attrs = attrMap(updateAttrs(cb))
	if attrs["update_type"] != "callback_query" || attrs["data"] != "confirm" || attrs["user_id"] != int64(30) {
		t.Errorf("unexpected callback attrs: %v", attrs)
	}

	attrs = attrMap(updateAttrs(&models.Update{ID: 3}))
	if attrs["update_type"] != "other" {
		t.Errorf("unexpected attrs for empty update: %v", attrs)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate kept = %q", got)
	}
	if got := truncate("привет мир", 7); got != "прив..." {
		t.Errorf("truncate runes = %q", got)
	}
	if got := truncate("abcdef", 2); got != "..." {
		t.Errorf("truncate tiny = %q", got)
	}
}

func attrMap(kv []any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}
