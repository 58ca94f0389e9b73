package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/engine"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/filters"
	"github.com/heimdex/heimdex-editor/internal/project"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// errorStatus maps a service error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, timeline.ErrSegmentNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, export.ErrExportNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, timeline.ErrTimelineOverlap):
		return http.StatusConflict, "TIMELINE_OVERLAP"
	case errors.Is(err, timeline.ErrInvalidSplitPoint):
		return http.StatusUnprocessableEntity, "INVALID_SPLIT_POINT"
	case errors.Is(err, timeline.ErrSegmentsNotAdjacentOrSameSource),
		errors.Is(err, timeline.ErrSegmentsNotMergeable):
		return http.StatusUnprocessableEntity, "NOT_MERGEABLE"
	case errors.Is(err, render.ErrEmptyTimelineExport):
		return http.StatusUnprocessableEntity, "EMPTY_TIMELINE"
	case errors.Is(err, assets.ErrMissingSourceAsset):
		return http.StatusUnprocessableEntity, "MISSING_SOURCE"
	case errors.Is(err, filters.ErrUnknownFilterKind):
		return http.StatusBadRequest, "UNKNOWN_FILTER"
	case errors.Is(err, filters.ErrInvalidFilterParameter):
		return http.StatusBadRequest, "INVALID_FILTER_PARAMETER"
	case errors.Is(err, timeline.ErrInvalidSegment):
		return http.StatusBadRequest, "INVALID_SEGMENT"
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT"
	case errors.Is(err, export.ErrExportFinished):
		return http.StatusConflict, "EXPORT_FINISHED"
	case errors.Is(err, export.ErrOutputNotAvailable):
		return http.StatusConflict, "OUTPUT_NOT_AVAILABLE"
	case errors.Is(err, engine.ErrRenderTimeout):
		return http.StatusGatewayTimeout, "RENDER_TIMEOUT"
	case errors.Is(err, engine.ErrRenderEngineFailure):
		return http.StatusBadGateway, "RENDER_ENGINE_FAILURE"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeServiceError reports err with its mapped status. Internal errors are
// logged and their text is not echoed to the client.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		msg = "internal server error"
	}
	WriteError(w, status, msg, code)
}
