package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// fakeBinary writes an executable shell script standing in for ffmpeg.
func fakeBinary(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script engine stand-ins need a unix shell")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write fake %s: %v", name, err)
	}
	return path
}

func newTestRunner(t *testing.T, ffmpegBody string, timeout time.Duration) *FFmpegRunner {
	t.Helper()
	cfg := DefaultConfig(nil)
	cfg.FFmpegPath = fakeBinary(t, "ffmpeg", ffmpegBody)
	cfg.FFprobePath = fakeBinary(t, "ffprobe", "exit 1")
	cfg.Timeout = timeout
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	return r
}

func TestCommand_Args(t *testing.T) {
	cmd := Command{
		Inputs: []Input{
			{Path: "color=c=black:s=1920x1080:r=30:d=2", Options: []string{"-f", "lavfi"}},
			{Path: "/media/a.mp4"},
		},
		Graph:    "[0:v][1:v]overlay[vout]",
		VideoMap: "[vout]",
		AudioMap: "[aout]",
		Profile:  DefaultProfile(),
		Duration: 2,
		Output:   "/tmp/out.mp4",
	}
	got := strings.Join(cmd.Args(), " ")

	for _, want := range []string{
		"-f lavfi -i color=c=black:s=1920x1080:r=30:d=2 -i /media/a.mp4",
		"-filter_complex [0:v][1:v]overlay[vout]",
		"-map [vout] -c:v libx264 -pix_fmt yuv420p -crf 20 -preset veryfast -r 30",
		"-map [aout] -c:a aac -b:a 192k -ar 48000 -ac 2",
		"-t 2",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Args() = %q, missing %q", got, want)
		}
	}
	if !strings.HasSuffix(got, "/tmp/out.mp4") {
		t.Errorf("Args() should end with the output path: %q", got)
	}

	cmd.AudioMap = ""
	if args := strings.Join(cmd.Args(), " "); !strings.Contains(args, " -an ") {
		t.Errorf("Args() without audio should contain -an: %q", args)
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{2, "2"},
		{1.5, "1.5"},
		{0.1 + 0.2, "0.3"},
		{12.34567, "12.346"},
	}
	for _, tt := range tests {
		if got := FormatSeconds(tt.in); got != tt.want {
			t.Errorf("FormatSeconds(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRun_Success(t *testing.T) {
	r := newTestRunner(t, `for last; do :; done; echo rendered > "$last"`, time.Minute)
	out := filepath.Join(t.TempDir(), "nested", "out.mp4")

	res, err := r.Run(context.Background(), Command{VideoMap: "0:v", Profile: DefaultProfile(), Output: out})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.IsSuccess() || res.OutputPath != out {
		t.Errorf("Run() = %+v", res)
	}
	if data, err := os.ReadFile(out); err != nil || strings.TrimSpace(string(data)) != "rendered" {
		t.Errorf("output = %q, %v", data, err)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	r := newTestRunner(t, `echo "Invalid filtergraph" >&2; exit 3`, time.Minute)

	_, err := r.Run(context.Background(), Command{Output: filepath.Join(t.TempDir(), "out.mp4")})
	if !errors.Is(err, ErrRenderEngineFailure) {
		t.Fatalf("Run() error = %v, want ErrRenderEngineFailure", err)
	}
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("error %T is not *RunError", err)
	}
	if runErr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", runErr.ExitCode)
	}
	if !strings.Contains(runErr.Output, "Invalid filtergraph") {
		t.Errorf("Output = %q", runErr.Output)
	}
}

func TestRun_TimeoutKillsProcessGroup(t *testing.T) {
	r := newTestRunner(t, "sleep 30; exit 0", 200*time.Millisecond)

	start := time.Now()
	_, err := r.Run(context.Background(), Command{Output: filepath.Join(t.TempDir(), "out.mp4")})
	if !errors.Is(err, ErrRenderTimeout) {
		t.Fatalf("Run() error = %v, want ErrRenderTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("Run() returned after %v; child group was not killed", elapsed)
	}
}

func TestRun_CallerCancellation(t *testing.T) {
	r := newTestRunner(t, "sleep 30", time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := r.Run(ctx, Command{Output: filepath.Join(t.TempDir(), "out.mp4")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestProbe(t *testing.T) {
	cfg := DefaultConfig(nil)
	cfg.FFmpegPath = fakeBinary(t, "ffmpeg", "exit 0")
	cfg.FFprobePath = fakeBinary(t, "ffprobe", `cat <<'JSON'
{"format":{"duration":"12.5"},"streams":[{"codec_type":"video","width":1280,"height":720},{"codec_type":"audio"}]}
JSON`)
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	info, err := r.Probe(context.Background(), "/media/a.mp4")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Duration != 12.5 || info.Width != 1280 || info.Height != 720 || !info.HasAudio || !info.HasVideo {
		t.Errorf("Probe() = %+v", info)
	}
}

func TestParseProbe_StreamDurationFallback(t *testing.T) {
	info, err := parseProbe([]byte(`{"format":{},"streams":[{"codec_type":"video","width":10,"height":20,"duration":"3.0"}]}`))
	if err != nil {
		t.Fatalf("parseProbe() error = %v", err)
	}
	if info.Duration != 3 || info.HasAudio {
		t.Errorf("parseProbe() = %+v", info)
	}
	if _, err := parseProbe([]byte("not json")); err == nil {
		t.Error("parseProbe() should fail on invalid JSON")
	}
}

func TestLimitedWriter_KeepsOnlyTail(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, limit: 10}

	lw.Write([]byte("hello"))
	lw.Write([]byte(" world of test data"))

	if got := buf.String(); got != " test data" {
		t.Errorf("after overflow got %q, want %q", got, " test data")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "...world"},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestResolveBinary_PreferredNotFound(t *testing.T) {
	if _, err := resolveBinary("/nonexistent/ffmpeg999", "ffmpeg"); err == nil {
		t.Fatal("expected error for nonexistent ffmpeg")
	}
}
