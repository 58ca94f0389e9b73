// Package export turns edit sessions into persisted export jobs and runs them
// in the background: MP4 renders through the render orchestrator and CMX3600
// edit decision lists of the video track.
package export

import (
	"errors"

	"github.com/heimdex/heimdex-editor/internal/project"
)

var (
	ErrExportNotFound     = errors.New("export not found")
	ErrExportFinished     = errors.New("export already finished")
	ErrUnsupportedFormat  = errors.New("unsupported export format")
	ErrOutputNotAvailable = errors.New("export output not available")
)

const (
	defaultName   = "export"
	maxNameLength = 120
)

// Request asks for an export of a session's current timeline.
type Request struct {
	Format       string `json:"format"`
	Name         string `json:"name"`
	CloseSession bool   `json:"close_session"`
}

func (r Request) format() string {
	if r.Format == "" {
		return project.FormatMP4
	}
	return r.Format
}

// fileName is the sanitized output file name for the request.
func (r Request) fileName() string {
	name := SanitizeName(r.Name, maxNameLength)
	if name == "" || name == "." || name == ".." {
		name = defaultName
	}
	return name + "." + r.format()
}

// ResolvedClip is one video segment placed on the record timeline.
type ResolvedClip struct {
	ClipName    string
	MediaPath   string
	SourceInMs  int
	SourceOutMs int
	RecordInMs  int
}
