package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/editor"
)

func addVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editor.AddVideoRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		seg, err := cfg.Editor.AddVideo(r.Context(), chi.URLParam(r, "sessionID"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, SegmentToResponse(seg))
	}
}

func addAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editor.AddAudioRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		seg, err := cfg.Editor.AddAudio(r.Context(), chi.URLParam(r, "sessionID"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, SegmentToResponse(seg))
	}
}

func addImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editor.AddImageRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		seg, err := cfg.Editor.AddImage(r.Context(), chi.URLParam(r, "sessionID"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, SegmentToResponse(seg))
	}
}

func addTextHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editor.AddTextRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		seg, err := cfg.Editor.AddText(r.Context(), chi.URLParam(r, "sessionID"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, SegmentToResponse(seg))
	}
}

func updateSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch editor.SegmentPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		seg, err := cfg.Editor.Update(chi.URLParam(r, "sessionID"), chi.URLParam(r, "segmentID"), patch)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SegmentToResponse(seg))
	}
}

func removeSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.Remove(chi.URLParam(r, "sessionID"), chi.URLParam(r, "segmentID")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func splitHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SplitRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		left, right, err := cfg.Editor.Split(chi.URLParam(r, "sessionID"), chi.URLParam(r, "segmentID"), req.Time)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SplitResponse{Left: SegmentToResponse(left), Right: SegmentToResponse(right)})
	}
}

func splitPointHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SplitPointRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.LeftID == "" || req.RightID == "" {
			WriteError(w, http.StatusBadRequest, "left_id and right_id are required", "BAD_REQUEST")
			return
		}
		left, right, err := cfg.Editor.UpdateSplitPoint(chi.URLParam(r, "sessionID"), req.LeftID, req.RightID, req.Time)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SplitResponse{Left: SegmentToResponse(left), Right: SegmentToResponse(right)})
	}
}

func mergeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MergeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.FirstID == "" || req.SecondID == "" {
			WriteError(w, http.StatusBadRequest, "first_id and second_id are required", "BAD_REQUEST")
			return
		}
		seg, err := cfg.Editor.Merge(chi.URLParam(r, "sessionID"), req.FirstID, req.SecondID)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SegmentToResponse(seg))
	}
}

func updateTextHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch editor.TextPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		seg, err := cfg.Editor.UpdateText(chi.URLParam(r, "sessionID"), chi.URLParam(r, "segmentID"), patch)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SegmentToResponse(seg))
	}
}

func setKeyframeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req KeyframeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		seg, err := cfg.Editor.SetKeyframe(chi.URLParam(r, "sessionID"), chi.URLParam(r, "segmentID"), req.Property, req.Time, req.Value)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, SegmentToResponse(seg))
	}
}

func removeKeyframeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		prop := q.Get("property")
		t, err := strconv.ParseFloat(q.Get("time"), 64)
		if prop == "" || err != nil {
			WriteError(w, http.StatusBadRequest, "property and numeric time are required", "BAD_REQUEST")
			return
		}
		if err := cfg.Editor.RemoveKeyframe(chi.URLParam(r, "sessionID"), chi.URLParam(r, "segmentID"), prop, t); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func applyFilterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FilterRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		f, err := cfg.Editor.ApplyFilter(chi.URLParam(r, "sessionID"), chi.URLParam(r, "segmentID"), req.Type, req.Params)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, f)
	}
}

func updateFilterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FilterRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		f, err := cfg.Editor.UpdateFilter(chi.URLParam(r, "sessionID"), chi.URLParam(r, "segmentID"), chi.URLParam(r, "filterID"), req.Params)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, f)
	}
}

func removeFilterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := cfg.Editor.RemoveFilter(chi.URLParam(r, "sessionID"), chi.URLParam(r, "segmentID"), chi.URLParam(r, "filterID"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeAllFiltersHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := cfg.Editor.RemoveAllFilters(chi.URLParam(r, "sessionID"), chi.URLParam(r, "segmentID"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if removed == nil {
			removed = []string{}
		}
		WriteJSON(w, http.StatusOK, RemovedFiltersResponse{Removed: removed})
	}
}
