package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_Formats(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		terminal bool
		wantJSON bool
	}{
		{name: "json", format: "json", terminal: true, wantJSON: true},
		{name: "text", format: "text", terminal: false, wantJSON: false},
		{name: "auto on terminal", format: "auto", terminal: true, wantJSON: false},
		{name: "auto piped", format: "auto", terminal: false, wantJSON: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, "info", tc.format, tc.terminal)
			WithComponent(logger, "render").Info("render finished", "intervals", 3)

			var decoded map[string]any
			isJSON := json.Unmarshal(buf.Bytes(), &decoded) == nil
			if isJSON != tc.wantJSON {
				t.Fatalf("json output = %v, want %v: %s", isJSON, tc.wantJSON, buf.String())
			}
			if !strings.Contains(buf.String(), "component") {
				t.Errorf("component attribute missing: %s", buf.String())
			}
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json", false)
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn not logged: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{token: "short", want: "****"},
		{token: "12345678", want: "****"},
		{token: "abcd1234efgh5678", want: "abcd...5678"},
	}
	for _, tc := range tests {
		if got := SanitizeToken(tc.token); got != tc.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tc.token, got, tc.want)
		}
	}
}

func TestSanitizePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}

	inside := filepath.Join(home, "media", "clip.mp4")
	if got := SanitizePath(inside); got != "~"+string(os.PathSeparator)+filepath.Join("media", "clip.mp4") {
		t.Errorf("SanitizePath(%q) = %q", inside, got)
	}
	sibling := home + "-other/clip.mp4"
	if got := SanitizePath(sibling); got != sibling {
		t.Errorf("SanitizePath(%q) = %q, want unchanged", sibling, got)
	}
}
