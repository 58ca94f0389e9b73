// Package engine drives the external media engine (ffmpeg and ffprobe) as
// subprocesses: command rendering, bounded execution, media probing and
// capability detection.
package engine

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrRenderTimeout       = errors.New("render timed out")
	ErrRenderEngineFailure = errors.New("render engine failed")
)

// RunError is returned when the engine exits non-zero. It matches
// ErrRenderEngineFailure.
type RunError struct {
	ExitCode int
	Output   string // tail of combined stdout/stderr
	Args     []string
}

func (e *RunError) Error() string {
	return fmt.Sprintf("engine exited %d: %s", e.ExitCode, truncate(e.Output, 512))
}

func (e *RunError) Unwrap() error { return ErrRenderEngineFailure }

// Profile is the fixed encoding profile shared by every intermediate and the
// final output so they can be concatenated.
type Profile struct {
	VideoCodec   string `json:"video_codec"`
	PixelFormat  string `json:"pixel_format"`
	CRF          int    `json:"crf"`
	Preset       string `json:"preset"`
	FrameRate    int    `json:"frame_rate"`
	AudioCodec   string `json:"audio_codec"`
	AudioBitrate string `json:"audio_bitrate"`
	SampleRate   int    `json:"sample_rate"`
	Channels     int    `json:"channels"`
}

// DefaultProfile returns H.264/AAC at 30 fps, 48 kHz stereo.
func DefaultProfile() Profile {
	return Profile{
		VideoCodec:   "libx264",
		PixelFormat:  "yuv420p",
		CRF:          20,
		Preset:       "veryfast",
		FrameRate:    30,
		AudioCodec:   "aac",
		AudioBitrate: "192k",
		SampleRate:   48000,
		Channels:     2,
	}
}

// ChannelLayout names the layout used for synthesized silence.
func (p Profile) ChannelLayout() string {
	if p.Channels == 1 {
		return "mono"
	}
	return "stereo"
}

func (p Profile) videoArgs() []string {
	return []string{
		"-c:v", p.VideoCodec,
		"-pix_fmt", p.PixelFormat,
		"-crf", strconv.Itoa(p.CRF),
		"-preset", p.Preset,
		"-r", strconv.Itoa(p.FrameRate),
	}
}

func (p Profile) audioArgs() []string {
	return []string{
		"-c:a", p.AudioCodec,
		"-b:a", p.AudioBitrate,
		"-ar", strconv.Itoa(p.SampleRate),
		"-ac", strconv.Itoa(p.Channels),
	}
}

// Input is one engine input and the options that precede its -i.
type Input struct {
	Path    string   `json:"path"`
	Options []string `json:"options,omitempty"`
}

// Command is a complete engine invocation producing one output file.
type Command struct {
	Inputs   []Input `json:"inputs"`
	Graph    string  `json:"graph,omitempty"`
	VideoMap string  `json:"video_map"`
	AudioMap string  `json:"audio_map,omitempty"`
	Profile  Profile `json:"profile"`
	Duration float64 `json:"duration,omitempty"`
	Output   string  `json:"output"`
}

// Args renders the command as an ffmpeg argument vector.
func (c Command) Args() []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}
	for _, in := range c.Inputs {
		args = append(args, in.Options...)
		args = append(args, "-i", in.Path)
	}
	if c.Graph != "" {
		args = append(args, "-filter_complex", c.Graph)
	}
	if c.VideoMap != "" {
		args = append(args, "-map", c.VideoMap)
	}
	args = append(args, c.Profile.videoArgs()...)
	if c.AudioMap != "" {
		args = append(args, "-map", c.AudioMap)
		args = append(args, c.Profile.audioArgs()...)
	} else {
		args = append(args, "-an")
	}
	if c.Duration > 0 {
		args = append(args, "-t", FormatSeconds(c.Duration))
	}
	args = append(args, "-movflags", "+faststart", c.Output)
	return args
}

// FormatSeconds renders a time value with millisecond precision and no
// trailing zeros.
func FormatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	for len(s) > 1 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// RunResult is the structured outcome of one engine invocation.
type RunResult struct {
	ExitCode   int           `json:"exit_code"`
	OutputPath string        `json:"output_path,omitempty"`
	OutputTail string        `json:"output_tail,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// MediaInfo is what the prober learns about a source file.
type MediaInfo struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	HasVideo bool    `json:"has_video"`
	HasAudio bool    `json:"has_audio"`
}

// Capabilities reports what the installed engine supports.
type Capabilities struct {
	FFmpegPath     string    `json:"ffmpeg_path"`
	FFmpegVersion  string    `json:"ffmpeg_version"`
	FFprobePath    string    `json:"ffprobe_path,omitempty"`
	HasFFprobe     bool      `json:"has_ffprobe"`
	HasDrawtext    bool      `json:"has_drawtext"`
	HasLibx264     bool      `json:"has_libx264"`
	MissingFilters []string  `json:"missing_filters,omitempty"`
	ProbedAt       time.Time `json:"probed_at"`
}

// Ready reports whether the engine can render the fixed profile.
func (c Capabilities) Ready() bool {
	return c.FFmpegPath != "" && c.HasLibx264 && len(c.MissingFilters) == 0
}
