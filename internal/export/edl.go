package export

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// ClipsFromTimeline lists the video segments of tl in record order.
func ClipsFromTimeline(tl *timeline.Timeline) []ResolvedClip {
	videos := make([]*timeline.VideoSegment, len(tl.Videos))
	copy(videos, tl.Videos)
	sort.SliceStable(videos, func(i, j int) bool {
		if videos[i].TimelineStart != videos[j].TimelineStart {
			return videos[i].TimelineStart < videos[j].TimelineStart
		}
		return videos[i].Layer < videos[j].Layer
	})

	clips := make([]ResolvedClip, 0, len(videos))
	for _, v := range videos {
		name := strings.TrimSuffix(filepath.Base(v.Source), filepath.Ext(v.Source))
		clips = append(clips, ResolvedClip{
			ClipName:    name,
			MediaPath:   v.Source,
			SourceInMs:  secondsToMs(v.SourceStart),
			SourceOutMs: secondsToMs(v.SourceEnd),
			RecordInMs:  secondsToMs(v.TimelineStart),
		})
	}
	return clips
}

func GenerateEDL(clips []ResolvedClip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, clip := range clips {
		durationMs := clip.SourceOutMs - clip.SourceInMs
		srcIn := msToTimecode(clip.SourceInMs, fps)
		srcOut := msToTimecode(clip.SourceOutMs, fps)
		recIn := msToTimecode(clip.RecordInMs, fps)
		recOut := msToTimecode(clip.RecordInMs+durationMs, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clip.ClipName),
			fmt.Sprintf("* MEDIA PATH:  %s", clip.MediaPath),
		)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func secondsToMs(s float64) int {
	return int(math.Round(s * 1000))
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
