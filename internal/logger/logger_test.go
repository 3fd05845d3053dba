package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v want %v", in, got, want)
		}
	}
}

func TestContextLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	InitWriter(buf, "info")

	if FromContext(context.Background()) != L {
		t.Fatal("expected global logger without context value")
	}

	ctx := ToContext(context.Background(), L.With("requestID", "abc"))
	FromContext(ctx).Info("hello")
	FromContext(ctx).Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, `"requestID":"abc"`) || !strings.Contains(out, `"msg":"hello"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %s", out)
	}
}
