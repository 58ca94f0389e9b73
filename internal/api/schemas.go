package api

import (
	"github.com/heimdex/heimdex-editor/internal/engine"
	"github.com/heimdex/heimdex-editor/internal/filters"
	"github.com/heimdex/heimdex-editor/internal/project"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State          string               `json:"state"`
	LastError      string               `json:"last_error,omitempty"`
	Sessions       int                  `json:"sessions"`
	ExportsRunning int                  `json:"exports_running"`
	ExportsPending int                  `json:"exports_pending"`
	Engine         *engine.Capabilities `json:"engine,omitempty"`
}

type CreateProjectRequest struct {
	Name   string `json:"name"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type ProjectsResponse struct {
	Projects []*project.Project `json:"projects"`
}

type StartSessionRequest struct {
	ProjectID string `json:"project_id,omitempty"`
}

type SessionsResponse struct {
	Sessions []session.Info `json:"sessions"`
}

type TimelineResponse struct {
	Session  session.Info       `json:"session"`
	Duration float64            `json:"duration"`
	Timeline *timeline.Timeline `json:"timeline"`
}

type CanvasRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type SegmentResponse struct {
	Kind    timeline.Kind    `json:"kind"`
	Segment timeline.Segment `json:"segment"`
}

type SplitRequest struct {
	Time float64 `json:"time"`
}

type SplitResponse struct {
	Left  SegmentResponse `json:"left"`
	Right SegmentResponse `json:"right"`
}

type SplitPointRequest struct {
	LeftID  string  `json:"left_id"`
	RightID string  `json:"right_id"`
	Time    float64 `json:"time"`
}

type MergeRequest struct {
	FirstID  string `json:"first_id"`
	SecondID string `json:"second_id"`
}

type FilterRequest struct {
	Type   string            `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

type RemovedFiltersResponse struct {
	Removed []string `json:"removed"`
}

type CatalogResponse struct {
	Filters []*filters.Definition `json:"filters"`
}

type KeyframeRequest struct {
	Property string  `json:"property"`
	Time     float64 `json:"time"`
	Value    float64 `json:"value"`
}

type ExportsResponse struct {
	Exports []*project.Export `json:"exports"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func SegmentToResponse(s timeline.Segment) SegmentResponse {
	return SegmentResponse{Kind: s.Kind(), Segment: s}
}
