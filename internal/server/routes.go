package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lazypower/instinct/internal/evolve"
	"github.com/lazypower/instinct/internal/frontmatter"
	"github.com/lazypower/instinct/internal/instincts"
	"github.com/lazypower/instinct/internal/store"
)

const defaultLimit = 20

func (s *Server) handleListInstincts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.dir.Summaries()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(rows),
		"instincts": rows,
	})
}

func (s *Server) handleGetInstinct(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	f, ok, err := s.dir.Lookup(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "instinct not found: "+name)
		return
	}

	inst, err := s.dir.Load(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Filename   string               `json:"filename"`
		Name       string               `json:"name"`
		Confidence float64              `json:"confidence"`
		Category   string               `json:"category"`
		Metadata   frontmatter.Metadata `json:"metadata"`
		Body       string               `json:"body"`
	}{
		Filename:   inst.File.Name,
		Name:       inst.Name(),
		Confidence: inst.Confidence(instincts.DefaultStatusConfidence),
		Category:   inst.Category(),
		Metadata:   inst.Record.Meta,
		Body:       inst.Record.Body,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.dir.Export(time.Now())
	if errors.Is(err, instincts.ErrNoInstincts) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	minConf := instincts.DefaultContextConfidence
	if v := r.URL.Query().Get("min_confidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_confidence must be a number")
			return
		}
		minConf = f
	}

	all, _, err := s.dir.LoadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"context": instincts.Context(all, minConf),
	})
}

func (s *Server) handleEvolve(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "engine not configured")
		return
	}

	var opts evolve.RunOptions
	if v := r.URL.Query().Get("dry_run"); v != "" {
		dry, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "dry_run must be a boolean")
			return
		}
		opts.DryRun = dry
	}

	report, err := s.engine.Run(r.Context(), opts)
	if err != nil {
		s.logger.Error("api: evolve", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type runJSON struct {
	RunID            string          `json:"run_id"`
	Status           string          `json:"status"`
	Reason           string          `json:"reason,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       *time.Time      `json:"finished_at,omitempty"`
	DryRun           bool            `json:"dry_run"`
	ObservationCount int             `json:"observation_count"`
	InstinctCount    int             `json:"instinct_count"`
	EvolvedCount     int             `json:"evolved_count"`
	FailedCount      int             `json:"failed_count"`
	Evolutions       []evolutionJSON `json:"evolutions,omitempty"`
}

type evolutionJSON struct {
	RunID         string    `json:"run_id"`
	Filename      string    `json:"filename"`
	Name          string    `json:"name"`
	OldConfidence float64   `json:"old_confidence"`
	NewConfidence float64   `json:"new_confidence"`
	RelevantCount int       `json:"relevant_count"`
	EvolvedAt     time.Time `json:"evolved_at"`
}

func toRunJSON(run store.Run) runJSON {
	out := runJSON{
		RunID:            run.RunID,
		Status:           run.Status,
		Reason:           run.Reason,
		StartedAt:        time.UnixMilli(run.StartedAt),
		DryRun:           run.DryRun,
		ObservationCount: run.ObservationCount,
		InstinctCount:    run.InstinctCount,
		EvolvedCount:     run.EvolvedCount,
		FailedCount:      run.FailedCount,
	}
	if run.FinishedAt != nil {
		t := time.UnixMilli(*run.FinishedAt)
		out.FinishedAt = &t
	}
	return out
}

func toEvolutionsJSON(evs []store.Evolution) []evolutionJSON {
	out := make([]evolutionJSON, len(evs))
	for i, e := range evs {
		out[i] = evolutionJSON{
			RunID:         e.RunID,
			Filename:      e.Filename,
			Name:          e.Name,
			OldConfidence: e.OldConfidence,
			NewConfidence: e.NewConfidence,
			RelevantCount: e.RelevantCount,
			EvolvedAt:     time.UnixMilli(e.EvolvedAt),
		}
	}
	return out
}

// requireHistory writes 503 and returns false when no history DB is attached.
func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "history not available")
		return false
	}
	return true
}

func limitParam(r *http.Request) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			return n
		}
	}
	return defaultLimit
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	runs, err := s.db.ListRuns(limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]runJSON, len(runs))
	for i, run := range runs {
		out[i] = toRunJSON(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(out),
		"runs":  out,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	runID := chi.URLParam(r, "runID")

	run, err := s.db.GetRun(runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found: "+runID)
		return
	}

	evs, err := s.db.EvolutionsForRun(runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := toRunJSON(*run)
	out.Evolutions = toEvolutionsJSON(evs)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInstinctHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	name := chi.URLParam(r, "name")

	evs, err := s.db.InstinctHistory(name, limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":       name,
		"count":      len(evs),
		"evolutions": toEvolutionsJSON(evs),
	})
}
