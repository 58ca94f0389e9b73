package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/project"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist(cfg.AllowedOrigins...))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/filters", filterCatalogHandler(cfg))
		r.Get("/doctor", doctorHandler(cfg))

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", listProjectsHandler(cfg))
			r.Post("/", createProjectHandler(cfg))
			r.Get("/{projectID}", getProjectHandler(cfg))
			r.Delete("/{projectID}", deleteProjectHandler(cfg))
			r.Get("/{projectID}/exports", listExportsHandler(cfg))
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", listSessionsHandler(cfg))
			r.Post("/", startSessionHandler(cfg))

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", getTimelineHandler(cfg))
				r.Delete("/", closeSessionHandler(cfg))
				r.Post("/save", saveSessionHandler(cfg))
				r.Put("/canvas", setCanvasHandler(cfg))
				r.Get("/plan", planHandler(cfg))

				r.Post("/videos", addVideoHandler(cfg))
				r.Post("/audios", addAudioHandler(cfg))
				r.Post("/images", addImageHandler(cfg))
				r.Post("/texts", addTextHandler(cfg))
				r.Delete("/segments", clearSegmentsHandler(cfg))
				r.Post("/merge", mergeHandler(cfg))
				r.Post("/split-point", splitPointHandler(cfg))
				r.Post("/exports", createExportHandler(cfg))

				r.Route("/segments/{segmentID}", func(r chi.Router) {
					r.Patch("/", updateSegmentHandler(cfg))
					r.Delete("/", removeSegmentHandler(cfg))
					r.Post("/split", splitHandler(cfg))
					r.Patch("/text", updateTextHandler(cfg))
					r.Put("/keyframes", setKeyframeHandler(cfg))
					r.Delete("/keyframes", removeKeyframeHandler(cfg))
					r.Post("/filters", applyFilterHandler(cfg))
					r.Delete("/filters", removeAllFiltersHandler(cfg))
					r.Patch("/filters/{filterID}", updateFilterHandler(cfg))
					r.Delete("/filters/{filterID}", removeFilterHandler(cfg))
				})
			})
		})

		r.Route("/exports", func(r chi.Router) {
			r.Get("/", listExportsHandler(cfg))
			r.Get("/{exportID}", getExportHandler(cfg))
			r.Post("/{exportID}/cancel", cancelExportHandler(cfg))
			r.With(LoopbackGuard()).Get("/{exportID}/download", downloadExportHandler(cfg))
		})
	})

	return r
}

// decodeJSON reads the request body into v, reporting a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "BAD_REQUEST")
		return false
	}
	return true
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := cfg.Version
		if version == "" {
			version = "dev"
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := StatusResponse{State: "idle"}

		if cfg.Sessions != nil {
			resp.Sessions = cfg.Sessions.Len()
		}
		if cfg.Runner != nil {
			resp.ExportsRunning = cfg.Runner.ActiveCount()
			if cfg.Runner.IsPaused() {
				resp.State = "paused"
			}
		}
		if pending, err := cfg.Repository.ListPendingExports(ctx); err == nil {
			resp.ExportsPending = len(pending)
		}
		if resp.State == "idle" && resp.ExportsRunning > 0 {
			resp.State = "rendering"
		}

		if cfg.Doctor != nil {
			if caps := cfg.Doctor.Peek(); caps != nil {
				resp.Engine = caps
				if !caps.Ready() && resp.State == "idle" {
					resp.State = "degraded"
				}
			}
		}

		if recent, err := cfg.Repository.ListExports(ctx, "", 10); err == nil {
			for _, e := range recent {
				if e.Status == project.ExportStatusFailed {
					resp.LastError = e.Error
					break
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func filterCatalogHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, CatalogResponse{Filters: cfg.Catalog.List()})
	}
}

func doctorHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Doctor == nil {
			WriteError(w, http.StatusServiceUnavailable, "engine doctor not configured", "UNAVAILABLE")
			return
		}
		get := cfg.Doctor.Get
		if r.URL.Query().Get("refresh") == "true" {
			get = cfg.Doctor.Refresh
		}
		caps, err := get(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, caps)
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Projects.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}
		if projects == nil {
			projects = []*project.Project{}
		}
		WriteJSON(w, http.StatusOK, ProjectsResponse{Projects: projects})
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Width < 0 || req.Height < 0 {
			WriteError(w, http.StatusBadRequest, "canvas size must not be negative", "BAD_REQUEST")
			return
		}

		p, err := cfg.Projects.Create(r.Context(), req.Name, req.Width, req.Height)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, p)
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Projects.Get(r.Context(), chi.URLParam(r, "projectID"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Projects.Delete(r.Context(), chi.URLParam(r, "projectID")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, SessionsResponse{Sessions: cfg.Sessions.List()})
	}
}

func startSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartSessionRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		info, err := cfg.Sessions.Start(r.Context(), req.ProjectID)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, info)
	}
}

func getTimelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, tl, err := cfg.Sessions.Snapshot(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, TimelineResponse{Session: info, Duration: tl.Duration(), Timeline: tl})
	}
}

func closeSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Sessions.Close(chi.URLParam(r, "sessionID")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func saveSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if err := cfg.Sessions.Save(r.Context(), id); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		info, err := cfg.Sessions.Info(id)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, info)
	}
}

func setCanvasHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CanvasRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "sessionID")
		tl, err := cfg.Editor.SetCanvas(id, req.Width, req.Height)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		info, err := cfg.Sessions.Info(id)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, TimelineResponse{Session: info, Duration: tl.Duration(), Timeline: tl})
	}
}

func planHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Planner == nil {
			WriteError(w, http.StatusServiceUnavailable, "render planner not configured", "UNAVAILABLE")
			return
		}
		tl, err := cfg.Editor.Timeline(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Planner.Plan(tl))
	}
}

func clearSegmentsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.Clear(chi.URLParam(r, "sessionID")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// limitParam parses the optional ?limit= query value.
func limitParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
