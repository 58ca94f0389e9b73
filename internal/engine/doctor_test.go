package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

const filtersListing = `Filters:
  T.. = Timeline support
  ------
 ... color             |->V       Provide an uniformly colored input.
 T.C overlay           VV->V      Overlay a video source on top of the input.
 TSC drawtext          V->V       Draw text on top of video frames.
`

func TestParseListing(t *testing.T) {
	names := parseListing(filtersListing)
	for _, want := range []string{"color", "overlay", "drawtext"} {
		if !names[want] {
			t.Errorf("parseListing() missing %q", want)
		}
	}
	if names["Timeline"] {
		t.Error("parseListing() picked up a header line")
	}
}

func TestParseVersion(t *testing.T) {
	if got := parseVersion("ffmpeg version 6.1.1 Copyright (c) 2000-2023\nbuilt with gcc"); got != "6.1.1" {
		t.Errorf("parseVersion() = %q, want 6.1.1", got)
	}
}

func TestRunDoctor_FakeEngine(t *testing.T) {
	r := newTestRunner(t, `case "$2" in
-version) echo "ffmpeg version 7.0 Copyright" ;;
-filters) echo " ... color  |->V  x"; echo " TSC drawtext V->V x" ;;
-encoders) echo " V....D libx264  H.264" ;;
esac`, time.Minute)

	caps, err := r.RunDoctor(context.Background())
	if err != nil {
		t.Fatalf("RunDoctor() error = %v", err)
	}
	if caps.FFmpegVersion != "7.0" || !caps.HasDrawtext || !caps.HasLibx264 {
		t.Errorf("RunDoctor() = %+v", caps)
	}
	if caps.Ready() {
		t.Error("Ready() should be false while filters are missing")
	}
}

type fakeDoctorRunner struct {
	fn func(ctx context.Context) (*Capabilities, error)
}

func (f *fakeDoctorRunner) RunDoctor(ctx context.Context) (*Capabilities, error) {
	return f.fn(ctx)
}

func TestCachedDoctor_TTL(t *testing.T) {
	calls := 0
	fake := &fakeDoctorRunner{fn: func(ctx context.Context) (*Capabilities, error) {
		calls++
		return &Capabilities{HasDrawtext: true, ProbedAt: time.Now()}, nil
	}}

	doc := NewCachedDoctor(fake, nil)
	doc.ttl = 100 * time.Millisecond
	ctx := context.Background()

	caps1, err := doc.Get(ctx)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	caps2, _ := doc.Get(ctx)
	if caps2.ProbedAt != caps1.ProbedAt || calls != 1 {
		t.Errorf("expected cached result, calls = %d", calls)
	}

	time.Sleep(150 * time.Millisecond)
	if _, err := doc.Get(ctx); err != nil {
		t.Fatalf("Get after TTL: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls after TTL expiry, got %d", calls)
	}
}

func TestCachedDoctor_StaleOnFailure(t *testing.T) {
	fail := false
	fake := &fakeDoctorRunner{fn: func(ctx context.Context) (*Capabilities, error) {
		if fail {
			return nil, errors.New("ffmpeg vanished")
		}
		return &Capabilities{FFmpegVersion: "6.0", ProbedAt: time.Now()}, nil
	}}
	doc := NewCachedDoctor(fake, nil)
	ctx := context.Background()

	if _, err := doc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	fail = true
	caps, err := doc.Refresh(ctx)
	if err != nil || caps.FFmpegVersion != "6.0" {
		t.Errorf("Refresh() = %+v, %v; want stale cache", caps, err)
	}

	doc.Invalidate()
	if _, err := doc.Get(ctx); err == nil {
		t.Error("Get() after Invalidate should surface the probe error")
	}
}
