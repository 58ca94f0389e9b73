package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/project"
)

func createExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.Request
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		e, err := cfg.Exports.Create(r.Context(), chi.URLParam(r, "sessionID"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, e)
	}
}

// listExportsHandler serves both /exports and /projects/{projectID}/exports.
func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r)
		if !ok {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer", "BAD_REQUEST")
			return
		}

		projectID := chi.URLParam(r, "projectID")
		if projectID != "" {
			if _, err := cfg.Projects.Get(r.Context(), projectID); err != nil {
				writeServiceError(w, cfg.Logger, err)
				return
			}
		}

		exports, err := cfg.Exports.List(r.Context(), projectID, limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, ExportsResponse{Exports: exports})
	}
}

func getExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := cfg.Exports.Get(r.Context(), chi.URLParam(r, "exportID"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, e)
	}
}

func cancelExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := cfg.Exports.Cancel(r.Context(), chi.URLParam(r, "exportID"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, e)
	}
}

func downloadExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := cfg.Exports.Output(r.Context(), chi.URLParam(r, "exportID"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		f, err := os.Open(e.OutputPath)
		if err != nil {
			cfg.Logger.Warn("export output unreadable", "export_id", e.ID, "error", err)
			WriteError(w, http.StatusGone, "export output is no longer on disk", "OUTPUT_GONE")
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			WriteError(w, http.StatusGone, "export output is no longer on disk", "OUTPUT_GONE")
			return
		}

		name := filepath.Base(e.OutputPath)
		if e.Format == project.FormatEDL {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Cache-Control", "no-store")
		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}
