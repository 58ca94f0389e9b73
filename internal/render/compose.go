package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/engine"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// BackgroundColor fills the canvas under every interval.
const BackgroundColor = "black"

// FontResolver maps a font family to a font file.
type FontResolver interface {
	Resolve(ctx context.Context, family string) string
}

// Compiler turns plan intervals into engine commands.
type Compiler struct {
	assets  assets.Resolver
	fonts   FontResolver
	profile engine.Profile
	logger  *slog.Logger
}

func NewCompiler(resolver assets.Resolver, fonts FontResolver, profile engine.Profile, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{assets: resolver, fonts: fonts, profile: profile, logger: logger}
}

// graph accumulates the chains of one filter_complex.
type graph struct {
	inputs []engine.Input
	chains []string
	audio  []string
	seq    int
}

func (g *graph) input(in engine.Input) int {
	g.inputs = append(g.inputs, in)
	return len(g.inputs) - 1
}

func (g *graph) label(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s%d", prefix, g.seq)
}

func (g *graph) add(chain string) {
	g.chains = append(g.chains, chain)
}

// window is where a segment sits inside an interval, in interval-relative
// seconds, and the source offset its first frame comes from.
type window struct {
	from, to float64
	source   float64
	clock    float64 // filter time at from
}

func (w window) duration() float64 { return w.to - w.from }

func windowOf(iv Interval, b *timeline.Base, srcStart, srcDuration float64) window {
	from := math.Max(b.TimelineStart, iv.Start) - iv.Start
	to := math.Min(b.TimelineEnd, iv.End) - iv.Start
	src := srcStart + math.Max(0, iv.Start-b.TimelineStart)
	if src < 0 {
		src = 0
	}
	if srcDuration > 0 && src > srcDuration {
		src = srcDuration
	}
	clock := b.FilterClock + math.Max(0, iv.Start-b.TimelineStart)
	return window{from: from, to: to, source: src, clock: clock}
}

// filterChain runs filters on the segment's own clock, so time-based filters
// fire at the same point whichever interval the frame lands in, then shifts
// the stream to start at from within the interval.
func filterChain(w window, filters []string) []string {
	if len(filters) == 0 {
		return []string{setpts(w.from)}
	}
	steps := append([]string{setpts(w.clock)}, filters...)
	if w.clock != w.from {
		steps = append(steps, setpts(w.from))
	}
	return steps
}

// Compile builds the command rendering one interval to output.
func (c *Compiler) Compile(ctx context.Context, plan *Plan, iv Interval, output string) (engine.Command, error) {
	if iv.IsBackground() {
		return c.background(plan, iv, output), nil
	}

	g := &graph{}
	cur := "base"
	g.add(fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%s[%s]",
		BackgroundColor, plan.Width, plan.Height, c.profile.FrameRate, engine.FormatSeconds(iv.Duration()), cur))

	drawn := 0
	for _, seg := range iv.Visible {
		next, ok, err := c.element(ctx, g, iv, seg, cur)
		if err != nil {
			return engine.Command{}, err
		}
		if ok {
			drawn++
			cur = next
		}
	}
	if drawn == 0 {
		return engine.Command{}, fmt.Errorf("interval %d: %w: every visible element was skipped", iv.Index, assets.ErrMissingSourceAsset)
	}

	g.add(fmt.Sprintf("[%s]setsar=1[vout]", cur))
	cmd := engine.Command{
		Inputs:   g.inputs,
		VideoMap: "[vout]",
		Profile:  c.profile,
		Duration: iv.Duration(),
		Output:   output,
	}
	if n := len(g.audio); n > 0 {
		var mix string
		if n == 1 {
			mix = fmt.Sprintf("[%s]anull,apad[aout]", g.audio[0])
		} else {
			var sb strings.Builder
			for _, a := range g.audio {
				sb.WriteString("[" + a + "]")
			}
			mix = fmt.Sprintf("%samix=inputs=%d:duration=longest,apad[aout]", sb.String(), n)
		}
		g.add(mix)
		cmd.AudioMap = "[aout]"
	}
	cmd.Graph = strings.Join(g.chains, ";")
	return cmd, nil
}

func (c *Compiler) background(plan *Plan, iv Interval, output string) engine.Command {
	src := fmt.Sprintf("color=c=%s:s=%dx%d:r=%d:d=%s",
		BackgroundColor, plan.Width, plan.Height, c.profile.FrameRate, engine.FormatSeconds(iv.Duration()))
	return engine.Command{
		Inputs:   []engine.Input{{Path: src, Options: []string{"-f", "lavfi"}}},
		VideoMap: "0:v",
		Profile:  c.profile,
		Duration: iv.Duration(),
		Output:   output,
	}
}

// element adds one segment to the graph on top of cur. ok is false when the
// segment was skipped or draws nothing.
func (c *Compiler) element(ctx context.Context, g *graph, iv Interval, seg timeline.Segment, cur string) (string, bool, error) {
	switch s := seg.(type) {
	case *timeline.VideoSegment:
		local, ok, err := c.resolve(ctx, iv, s.ID, s.Source)
		if !ok {
			return cur, false, err
		}
		return c.video(g, iv, s, local, cur), true, nil
	case *timeline.ImageSegment:
		local, ok, err := c.resolve(ctx, iv, s.ID, s.Source)
		if !ok {
			return cur, false, err
		}
		return c.image(g, iv, s, local, cur), true, nil
	case *timeline.TextSegment:
		return c.text(ctx, g, iv, s, cur), true, nil
	case *timeline.AudioSegment:
		local, ok, err := c.resolve(ctx, iv, s.ID, s.Source)
		if !ok {
			return cur, false, err
		}
		w := windowOf(iv, &s.Base, s.SourceStart, s.SourceDuration)
		idx := g.input(engine.Input{Path: local})
		c.audioTrack(g, idx, w, s.Volume)
		return cur, true, nil
	}
	return cur, false, nil
}

// resolve maps a segment's source to a local file. A missing file skips the
// element; any other failure aborts the compile.
func (c *Compiler) resolve(ctx context.Context, iv Interval, id, source string) (string, bool, error) {
	local, err := c.assets.Resolve(ctx, source)
	if err == nil {
		return local, true, nil
	}
	if errors.Is(err, assets.ErrMissingSourceAsset) {
		c.logger.Warn("skipping element with missing source",
			"interval", iv.Index, "segment_id", id, "source", source, "error", err)
		return "", false, nil
	}
	return "", false, fmt.Errorf("resolve %s: %w", source, err)
}

func (c *Compiler) video(g *graph, iv Interval, s *timeline.VideoSegment, local, cur string) string {
	w := windowOf(iv, &s.Base, s.SourceStart, s.SourceDuration)
	idx := g.input(engine.Input{Path: local})

	steps := []string{
		fmt.Sprintf("trim=start=%s:duration=%s", engine.FormatSeconds(w.source), engine.FormatSeconds(w.duration())),
	}
	steps = append(steps, filterChain(w, s.Filters.Expressions())...)
	if k := timeline.EffectiveScale(s.Scale); k != 1 {
		steps = append(steps, fmt.Sprintf("scale=iw*%s:ih*%s", num(k), num(k)))
	}
	if s.Opacity < 1 {
		steps = append(steps, opacity(s.Opacity))
	}
	layer := g.label("v")
	g.add(fmt.Sprintf("[%d:v]%s[%s]", idx, strings.Join(steps, ","), layer))
	out := g.label("c")
	g.add(fmt.Sprintf("[%s][%s]%s[%s]", cur, layer, overlay(timeline.EffectivePosition(s.Position), w), out))

	if s.HasAudio {
		c.audioTrack(g, idx, w, s.Volume)
	}
	return out
}

func (c *Compiler) image(g *graph, iv Interval, s *timeline.ImageSegment, local, cur string) string {
	w := windowOf(iv, &s.Base, 0, 0)
	idx := g.input(engine.Input{
		Path:    local,
		Options: []string{"-loop", "1", "-t", engine.FormatSeconds(w.duration())},
	})

	steps := []string{imageScale(s)}
	steps = append(steps, filterChain(w, s.Filters.Expressions())...)
	if s.Opacity < 1 {
		steps = append(steps, opacity(s.Opacity))
	}
	layer := g.label("i")
	g.add(fmt.Sprintf("[%d:v]%s[%s]", idx, strings.Join(steps, ","), layer))
	out := g.label("c")
	g.add(fmt.Sprintf("[%s][%s]%s[%s]", cur, layer, overlay(timeline.EffectivePosition(s.Position), w), out))
	return out
}

// imageScale applies the sizing policy: exact custom size, an aspect-locked
// fit to the custom dimensions, or intrinsic size times the scale factor.
func imageScale(s *timeline.ImageSegment) string {
	cw, ch := s.CustomWidth, s.CustomHeight
	switch {
	case cw > 0 && ch > 0 && s.LockAspect:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", cw, ch)
	case cw > 0 && ch > 0:
		return fmt.Sprintf("scale=%d:%d", cw, ch)
	case cw > 0 && s.LockAspect:
		return fmt.Sprintf("scale=%d:-2", cw)
	case cw > 0:
		return fmt.Sprintf("scale=%d:ih", cw)
	case ch > 0 && s.LockAspect:
		return fmt.Sprintf("scale=-2:%d", ch)
	case ch > 0:
		return fmt.Sprintf("scale=iw:%d", ch)
	}
	k := num(timeline.EffectiveScale(s.Scale))
	return fmt.Sprintf("scale=iw*%s:ih*%s", k, k)
}

func (c *Compiler) audioTrack(g *graph, idx int, w window, volume float64) {
	steps := []string{
		fmt.Sprintf("atrim=start=%s:duration=%s", engine.FormatSeconds(w.source), engine.FormatSeconds(w.duration())),
		"asetpts=PTS-STARTPTS",
		fmt.Sprintf("aformat=sample_rates=%d:channel_layouts=%s", c.profile.SampleRate, c.profile.ChannelLayout()),
	}
	if volume != 1 {
		steps = append(steps, "volume="+num(volume))
	}
	if w.from > 0 {
		steps = append(steps, fmt.Sprintf("adelay=delays=%d:all=1", int(math.Round(w.from*1000))))
	}
	label := g.label("a")
	g.add(fmt.Sprintf("[%d:a]%s[%s]", idx, strings.Join(steps, ","), label))
	g.audio = append(g.audio, label)
}

func (c *Compiler) text(ctx context.Context, g *graph, iv Interval, s *timeline.TextSegment, cur string) string {
	w := windowOf(iv, &s.Base, 0, 0)
	style := s.Style
	// Keyframe times are segment-relative; t in the graph is interval-relative.
	offset := iv.Start - s.TimelineStart
	pos := timeline.EffectivePosition(s.Position)

	opts := []string{
		"fontfile=" + quote(c.fonts.Resolve(ctx, style.FontFamily)),
		"text=" + quote(s.Content),
		"expansion=none",
		"fontsize=" + expr(animated(s.Keyframes, timeline.PropFontSize, float64(style.FontSize), offset)),
		"fontcolor=" + engineColor(style.FontColor),
		"alpha=" + expr(animated(s.Keyframes, timeline.PropOpacity, s.Opacity, offset)),
		"x=" + expr(textX(style.Alignment, animated(s.Keyframes, timeline.PropX, pos.X, offset))),
		"y=" + expr(fmt.Sprintf("(h-text_h)/2+(%s)", animated(s.Keyframes, timeline.PropY, pos.Y, offset))),
	}
	if bg := style.Background; bg.Enabled {
		opts = append(opts,
			"box=1",
			"boxcolor="+engineColor(bg.Color)+"@"+num(bg.Opacity),
			"boxborderw="+strconv.Itoa(bg.Padding))
	}
	if b := style.Border; b.Width > 0 {
		opts = append(opts, "borderw="+strconv.Itoa(b.Width), "bordercolor="+engineColor(b.Color))
	}
	if sh := style.Shadow; sh.HasShadow() {
		opts = append(opts,
			"shadowx="+num(sh.OffsetX),
			"shadowy="+num(sh.OffsetY),
			"shadowcolor="+engineColor(sh.Color)+"@"+num(sh.Opacity))
	}
	opts = append(opts, gate(w))

	out := g.label("c")
	g.add(fmt.Sprintf("[%s]drawtext=%s[%s]", cur, strings.Join(opts, ":"), out))
	return out
}

func textX(align timeline.Alignment, offset string) string {
	switch align {
	case timeline.AlignLeft:
		return offset
	case timeline.AlignRight:
		return fmt.Sprintf("w-text_w+(%s)", offset)
	}
	return fmt.Sprintf("(w-text_w)/2+(%s)", offset)
}

// animated returns the static value, or a piecewise-linear expression over t
// when the property has keyframes.
func animated(kf timeline.Keyframes, prop string, static, offset float64) string {
	samples := kf[prop]
	if len(samples) == 0 {
		return num(static)
	}
	return piecewise(samples, offset)
}

// expr quotes an expression so its commas survive graph parsing.
func expr(e string) string {
	return "'" + e + "'"
}

// piecewise interpolates samples linearly and clamps outside their range.
// offset shifts graph time t onto the samples' time base.
func piecewise(samples []timeline.Keyframe, offset float64) string {
	u := "t"
	if offset != 0 {
		u = fmt.Sprintf("(t+%s)", num(offset))
	}
	last := samples[len(samples)-1]
	expr := num(last.Value)
	for i := len(samples) - 1; i > 0; i-- {
		a, b := samples[i-1], samples[i]
		slope := (b.Value - a.Value) / (b.Time - a.Time)
		seg := fmt.Sprintf("%s+(%s-%s)*%s", num(a.Value), u, num(a.Time), num(slope))
		expr = fmt.Sprintf("if(lt(%s,%s),%s,%s)", u, num(b.Time), seg, expr)
	}
	first := samples[0]
	return fmt.Sprintf("if(lt(%s,%s),%s,%s)", u, num(first.Time), num(first.Value), expr)
}

func setpts(from float64) string {
	if from <= 0 {
		return "setpts=PTS-STARTPTS"
	}
	return fmt.Sprintf("setpts=PTS-STARTPTS+%s/TB", num(from))
}

func opacity(o float64) string {
	return "format=rgba,colorchannelmixer=aa=" + num(o)
}

func overlay(p timeline.Point, w window) string {
	return fmt.Sprintf("overlay=x=(main_w-overlay_w)/2+%s:y=(main_h-overlay_h)/2+%s:%s", num(p.X), num(p.Y), gate(w))
}

func gate(w window) string {
	return fmt.Sprintf("enable='between(t,%s,%s)'", engine.FormatSeconds(w.from), engine.FormatSeconds(w.to))
}

// engineColor converts #RRGGBB to the engine's 0xRRGGBB.
func engineColor(hex string) string {
	return "0x" + strings.ToUpper(strings.TrimPrefix(hex, "#"))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// quote makes s a single literal option value. Option-level quotes protect
// ':' and the graph-level escapes protect the quotes and separators. A
// single quote cannot be expressed inside quotes, so it becomes U+2019.
func quote(s string) string {
	s = "'" + strings.ReplaceAll(s, "'", "’") + "'"
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '\'', '[', ']', ',', ';':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
